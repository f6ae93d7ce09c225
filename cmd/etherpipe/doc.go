// Command etherpipe runs one Ether and its Trunks against an echo service
// and appends one fixed-width record per collected result to a trace file.
//
// Configuration comes from ETHERPIPE_* environment variables or from a YAML
// or TOML file given with -config. The process exits non-zero when the
// configuration is invalid or the echo service cannot be reached.
//
// With ETHERPIPE_METRICS_ADDR set, the status server stays up after the run
// so /stats can serve the final report, and exits on SIGINT or SIGTERM.
package main
