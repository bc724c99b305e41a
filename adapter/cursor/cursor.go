// Package cursor contains the default [domain.Cursor] implementation.
package cursor

import (
	"context"

	"github.com/webbestmaster/nedb/adapter/decoder"
	"github.com/webbestmaster/nedb/domain"
)

// Cursor implements [domain.Cursor] over an already-materialized,
// already-sorted/paged/projected result slice: it only tracks the current
// read position and decodes on demand.
type Cursor struct {
	results []domain.Document
	ctx     context.Context
	cancel  context.CancelCauseFunc
	dec     domain.Decoder
	pos     int64
}

// NewCursor returns a new implementation of [domain.Cursor] over results.
func NewCursor(ctx context.Context, results []domain.Document, options ...domain.CursorOption) (domain.Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := domain.CursorOptions{
		Decoder: decoder.NewDecoder(),
	}
	for _, option := range options {
		option(&opts)
	}

	scoped, cancel := context.WithCancelCause(ctx)
	return &Cursor{
		ctx:     scoped,
		cancel:  cancel,
		pos:     -1,
		dec:     opts.Decoder,
		results: results,
	}, nil
}

// Err implements [domain.Cursor].
func (c *Cursor) Err() error {
	return context.Cause(c.ctx)
}

// Scan implements [domain.Cursor].
func (c *Cursor) Scan(ctx context.Context, target any) error {
	if err := c.ctx.Err(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.pos < 0 {
		return domain.ErrScanBeforeNext
	}
	return c.dec.Decode(c.results[c.pos], target)
}

// Close implements [domain.Cursor].
func (c *Cursor) Close() error {
	if err := c.ctx.Err(); err != nil {
		return context.Cause(c.ctx)
	}
	c.cancel(domain.ErrCursorClosed)
	c.results = nil
	return nil
}

// Next implements [domain.Cursor].
func (c *Cursor) Next() bool {
	if c.ctx.Err() != nil {
		return false
	}
	if c.pos+1 >= int64(len(c.results)) {
		return false
	}
	c.pos++
	return true
}
