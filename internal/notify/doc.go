/*
Package notify carries collected results out-of-band from the collecting
stage to a single observer.

# Overview

A Channel accepts events through Raise and hands them, one at a time, to a
dedicated observer goroutine that formats each event as a fixed-width
Record and appends it to a Sink. The main data path never waits on the
sink.

# Delivery Semantics

Events are queued, not coalesced. Every raised event is delivered exactly
once, including repeated events carrying equal or distinct payloads.
Pending events are ordered by Kind (lower kinds first, as with real-time
signals) and then by raise order. A Raise call only blocks while the
pending set is at its configured bound.

If the sink is missing or rejects a record, the observer logs a warning and
drops that record; the raiser is never told.

# Records

Each record is RecordSize bytes:

	SIGRTMIN+1       VALUE:                       6\n

Close flushes every pending event before returning, so a sink may be
closed safely right after it.
*/
package notify
