/*
Package resilience provides the circuit breaker that guards process spawning.

# Overview

When the OS refuses to create pseudo-terminals (fd exhaustion, a missing shell,
a pty device limit), every new tab or split would otherwise retry the same
failing fork. The breaker trips after consecutive spawn failures and fails fast
until a cooldown elapses, then lets a trial spawn through.

# Usage

	breaker := resilience.New("spawn", resilience.Settings{
		Cooldown: 10 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})

	err := breaker.Do(func() error {
		return spawn()
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		// fail fast, no fork attempted
	}

# States

	Closed --[ReadyToTrip]-> Open --[Cooldown]-> Half-Open --[HalfOpenSuccesses]-> Closed
	                                                |
	                                           [failure]
	                                                v
	                                              Open
*/
package resilience
