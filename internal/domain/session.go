package domain

import "time"

// SessionState represents the lifecycle state of the terminal session.
type SessionState string

const (
	StateDisconnected SessionState = "disconnected"
	StateConnecting   SessionState = "connecting"
	StateConnected    SessionState = "connected"
	StateReconnecting SessionState = "reconnecting"
	// StateFailed is entered after exhausting the retry budget or on an
	// authentication failure. Leaving it requires an explicit new Connect call.
	StateFailed SessionState = "failed"
)

// Session is the live handle to the terminal, owned exclusively by the
// connection manager. Other components never touch these fields directly.
type Session struct {
	State          SessionState
	LastError      string    // diagnostic from the most recent failed operation
	ConnectedSince time.Time // zero value while not connected
}

// ConnectionInfo is the success payload returned by connect operations.
type ConnectionInfo struct {
	State          SessionState `json:"state"`
	ConnectedSince time.Time    `json:"connectedSince"`
}
