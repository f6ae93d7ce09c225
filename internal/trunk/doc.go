// Package trunk implements the worker stage of the pipeline.
//
// A Trunk drains exactly Quota items from the Ether's output queue, sends each
// item's successor through an Exchanger and waits for the reply, then
// publishes Quota results back onto the Ether's input queue. Both loops are
// paced by the configured per-item delay. A failed exchange is logged and
// counted but never retried, and it never changes the quota.
package trunk
