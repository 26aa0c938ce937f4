// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the session feed.
const (
	BadSubprotocolError  = 3000 // Client connected with an unsupported subprotocol.
	SessionFinishedError = 3001 // The session finished; no further events will follow.
	SlowConsumerError    = 3002 // The client fell too far behind the event stream.
)
