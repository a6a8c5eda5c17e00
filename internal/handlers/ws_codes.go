// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Application close codes for the game socket.
const (
	BadSubprotocolError   websocket.StatusCode = 4000 // client did not negotiate the "game" subprotocol
	InvalidAuthTokenError websocket.StatusCode = 4001 // token missing, expired or not signed by the auth service
)
