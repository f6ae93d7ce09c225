/*
Package resilience provides the circuit breaker that guards exchange clients.

# Overview

A Trunk never retries a failed exchange; it records the failure and moves
on to its next slot. When the remote echo service is down, every slot would
otherwise wait out a full transport timeout. The breaker turns a run of
failures into immediate ErrCircuitOpen results until the service has had
time to recover.

# Usage

	breaker := resilience.New("exchange", resilience.Settings{
		MaxRequests: 3,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})

	resp, err := resilience.Execute(breaker, func() (int64, error) {
		return transport.Exchange(ctx, v)
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]-> Open
*/
package resilience
