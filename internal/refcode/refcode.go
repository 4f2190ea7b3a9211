// Package refcode generates the opaque reference handed to customers when an
// order is finalized.
package refcode

import (
	"crypto/rand"
	"fmt"
	"io"
)

const (
	Length   = 20
	Alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// New returns Length symbols drawn uniformly from Alphabet.
func New() (string, error) {
	return NewFrom(rand.Reader)
}

func NewFrom(r io.Reader) (string, error) {
	// 252 is the largest multiple of 36 below 256; larger bytes are rejected
	const limit = 256 - 256%len(Alphabet)

	out := make([]byte, 0, Length)
	buf := make([]byte, Length)
	for len(out) < Length {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, Alphabet[int(b)%len(Alphabet)])
			if len(out) == Length {
				break
			}
		}
	}
	return string(out), nil
}
