package pkg

import (
	"crypto/rand"
	"math/big"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RoomCodeLength is the length of human-shareable private room codes.
const RoomCodeLength = 6

// GenerateRoomCode - a short uppercase code a player can read out to
// a friend. 36^6 codes make collisions among live rooms unlikely, but
// callers still probe the registry before using one.
func GenerateRoomCode() string {
	return randomString(RoomCodeLength)
}

// GenerateGuestSuffix - the short tag appended to anonymous identities.
func GenerateGuestSuffix() string {
	return randomString(4)
}

func randomString(length int) string {
	result := make([]byte, length)
	for i := range result {
		result[i] = codeAlphabet[randomIndex(len(codeAlphabet))]
	}
	return string(result)
}

func randomIndex(n int) int {
	value, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand never fails on supported platforms
		return 0
	}
	return int(value.Int64())
}
