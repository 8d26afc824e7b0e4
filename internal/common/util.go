package common

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

// MakeRandHexString generates size random bytes and returns them hex encoded,
// so the result is 2*size characters long.
func MakeRandHexString(size int) (string, error) {

	b := make([]byte, size)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

// WipeByteArray overwrites b with zeros. Nil is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// randInt is a seam for tests.
var randInt = rand.Int

// NewAccessCode draws a recovery code uniformly from
// [AccessCodeMin, AccessCodeMax] using crypto/rand.
func NewAccessCode() (int, error) {
	n, err := randInt(rand.Reader, big.NewInt(AccessCodeMax-AccessCodeMin+1))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()) + AccessCodeMin, nil
}
