// Package idgenerator contains the default [domain.IDGenerator]
// implementation, producing IDs from base64-encoded random bytes with the
// two non-alphanumeric base64 characters filtered out.
package idgenerator

import (
	"crypto/rand"
	"encoding/base64"
	"io"

	"github.com/webbestmaster/nedb/domain"
)

// IDGenerator implements [domain.IDGenerator].
type IDGenerator struct {
	rng io.Reader
}

// NewIDGenerator implements [domain.IDGenerator].
func NewIDGenerator(opts ...Option) domain.IDGenerator {
	g := IDGenerator{rng: rand.Reader}
	for _, opt := range opts {
		opt(&g)
	}
	return &g
}

// GenerateID implements [domain.IDGenerator].
func (g *IDGenerator) GenerateID(length int) (string, error) {
	// Filtering '+' and '/' out of the base64 alphabet shrinks the usable
	// output, so twice as many source bytes are drawn than strictly
	// needed for length characters of encoded output.
	raw := make([]byte, max(8, length*2))
	if _, err := g.rng.Read(raw); err != nil {
		return "", err
	}

	encoded := base64.StdEncoding.EncodeToString(raw)

	out := make([]byte, length)
	written := 0
	for i := 0; written < length && i < len(encoded); i++ {
		switch c := encoded[i]; c {
		case '+', '/':
		default:
			out[written] = c
			written++
		}
	}

	return string(out), nil
}
