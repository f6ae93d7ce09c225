// Package pipeline wires one Ether and a set of Trunks around two shared
// bounded queues and runs them to joint completion.
//
// The pipeline only terminates when the Trunk quotas add up to the Ether's
// capacity. Validate enforces that before any goroutine starts; a mismatch
// is reported as ErrQuotaMismatch instead of a permanent deadlock.
//
// Each collected result is raised on a notification channel and appended,
// as one fixed-width record, to the configured sink. Run returns a Report
// with per-Trunk latency statistics once every stage has finished and the
// channel has been flushed.
package pipeline
