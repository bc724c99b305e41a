package idgenerator

import "io"

// WithReader sets the source of random bytes used to generate IDs.
func WithReader(r io.Reader) Option {
	return func(g *IDGenerator) {
		g.rng = r
	}
}

// Option configures behavior through the functional options pattern.
type Option func(*IDGenerator)
