/*
Package session owns the pseudo-terminal backed processes of the multiplexer.

# Overview

A Manager keeps the session table: the one map from SessionID to live process
handle. The router consults the same table, so removing an id from it is enough
to make every in-flight event for that id stale.

Each session runs two goroutines:
  - a reader that copies PTY output into data events, in order
  - a waiter that reaps the process and emits exactly one exit event once the
    reader has drained (bounded by DrainTimeout)

Both push onto the single channel returned by Events.

# Teardown

Destroy removes the id from the table first, then sends SIGHUP to the process
group, closes the PTY master and escalates to SIGKILL if the process is still
running after KillTimeout.

# Spawning

Spawns run through a circuit breaker so a host that cannot allocate PTYs fails
fast instead of forking on every keystroke that opens a pane.
*/
package session
