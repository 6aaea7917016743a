package domain

type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
)

// Credentials identify the user on the registration handshake.
type Credentials struct {
	UserID   string
	Username string
}
