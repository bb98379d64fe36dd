package chat

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// Room codes are 4 uppercase hex characters (16 bits).
const (
	roomCodeAlphabet = "0123456789ABCDEF"
	RoomCodeLength   = 4
)

// CodeGenerator produces room identifiers.
type CodeGenerator interface {
	Generate() string
}

// CodeGeneratorFunc adapts a function to CodeGenerator.
type CodeGeneratorFunc func() string

// Generate calls f.
func (f CodeGeneratorFunc) Generate() string {
	return f()
}

// NewRoomCodeGenerator returns a generator of random room codes: two random
// bytes rendered as uppercase hex.
func NewRoomCodeGenerator() CodeGenerator {
	return CodeGeneratorFunc(func() string {
		b := make([]byte, RoomCodeLength/2)
		// crypto/rand.Read never returns an error; it crashes the program instead.
		_, _ = rand.Read(b)
		return strings.ToUpper(hex.EncodeToString(b))
	})
}

// NormalizeRoomID trims and uppercases a room id so comparison is case-insensitive.
func NormalizeRoomID(roomID string) string {
	return strings.ToUpper(strings.TrimSpace(roomID))
}

// IsValidRoomCode checks that code is a normalized room code.
func IsValidRoomCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}
	for _, c := range code {
		if !strings.ContainsRune(roomCodeAlphabet, c) {
			return false
		}
	}
	return true
}
