/*
Package ws is the WebSocket transport between the multiplexer and its view
surfaces.

Each connection gets a ClientID, a buffered outbound queue drained by a
dedicated writer goroutine, and subscriptions to UI events and to the raw
session events of sessions it created itself. Messages are JSON; byte payloads
travel base64-encoded.

Views report what only they know, pane bounding boxes and cell metrics, with
geometry and metrics messages. Those land in a ViewState shared with the
engine.
*/
package ws
