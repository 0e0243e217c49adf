package identity

import "time"

// Party is a registered identity able to grant or consume allowances.
type Party struct {
	ID           string
	Phone        string
	PINHash      []byte
	TokenVersion int
	CreatedAt    time.Time
}

// Credentials carry a registration or login request.
type Credentials struct {
	Phone string
	PIN   string
}
