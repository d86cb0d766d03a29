/*
Package routing defines the message contract between the process-owning side of
the multiplexer and its view surfaces.

Commands flow toward sessions (create, destroy, input, resize, get_cwd). Events
flow back (data, exit). Every message carries plain ids and byte slices, never
references, so a message naming a destroyed session is harmless: the Router
checks the session table and drops it.

A single dispatcher (Router.Run) drains the backend's event channel and fans
each event out to subscribers in subscription order. Data events for one session
arrive in write order; there is no ordering across sessions.
*/
package routing
