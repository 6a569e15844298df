package pkg

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
)

// GeneratePlayerID - generates a new unique player identity.
func GeneratePlayerID() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "error-generating-player-id"
	}

	return base64.RawURLEncoding.EncodeToString(b)
}

// GenerateGuestName - generates a display name of the form Player_<suffix>
// for clients that join without one.
func GenerateGuestName() string {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "Player_guest"
	}

	return "Player_" + hex.EncodeToString(b)
}
