/*
Package mux is the single entry point for user actions on the multiplexer.

An Engine serializes every layout mutation behind one mutex, drives the session
manager as panes come and go, turns routed session events into pane events and
fans layout changes out as terminal resizes.

# Exit policy

When a pane's process exits on its own the pane is closed after ExitGrace, so
the exit status stays visible for a moment, unless it is the last pane of its
tab. The last pane stays open indefinitely so its final output is kept. Timers
re-check that the pane still exists before closing it.

# Listeners

Listeners run with the engine lock held. They must not call back into the
Engine; hand events off to a channel instead.
*/
package mux
