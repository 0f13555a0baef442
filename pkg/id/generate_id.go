package id

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewEntryID returns 32 lowercase hex chars from a UUIDv7, so ids sort by
// creation time. Falls back to random bytes if the v7 clock source fails.
func NewEntryID() string {
	u, err := uuid.NewV7()
	if err != nil {
		b := make([]byte, 16)
		_, _ = rand.Read(b)
		return hex.EncodeToString(b)
	}
	return hex.EncodeToString(u[:])
}
