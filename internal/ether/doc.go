/*
Package ether implements the coordinating stage of the pipeline.

An Ether owns the two shared queues. It runs exactly once, in two phases
separated by a full barrier:

	Idle -> Generating -> Collecting -> Done

While Generating it enqueues Capacity sequential values on the outbound
queue and never touches the inbound queue. While Collecting it dequeues
Capacity results from the inbound queue and raises one notification per
result. The Trunks absorb all multi-producer/multi-consumer contention on
both queues.

If the Trunks' quotas do not add up to Capacity, Run blocks forever in one
of the two phases. The orchestrator validates this before starting.
*/
package ether
