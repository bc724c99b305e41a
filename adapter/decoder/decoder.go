// Package decoder contains the default [domain.Decoder] implementation.
package decoder

import (
	"fmt"

	"github.com/goccy/go-reflect"
	"github.com/mitchellh/mapstructure"
	"github.com/webbestmaster/nedb/domain"
)

var documentInterfaceType = reflect.TypeOf((*domain.Document)(nil)).Elem()

// Decoder implements [domain.Decoder] via mapstructure, decoding under the
// `nedb` struct tag.
type Decoder struct{}

// NewDecoder returns a new implementation of [domain.Decoder].
func NewDecoder() domain.Decoder {
	return &Decoder{}
}

// Decode implements [domain.Decoder].
func (d *Decoder) Decode(source, target any) error {
	if target == nil {
		return domain.ErrTargetNil
	}

	targetValue := reflect.ValueNoEscapeOf(target)
	if targetValue.Kind() != reflect.Ptr {
		return domain.ErrNonPointer
	}

	// Targets that don't themselves implement domain.Document need the
	// source plainified first, since mapstructure has no notion of the
	// document's own Get/Set contract.
	if !targetValue.Type().Elem().Implements(documentInterfaceType) {
		source = d.plainify(source)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "nedb",
		Result:  target,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(source); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDecode{Source: source, Target: target}, err)
	}
	return nil
}

// plainify recursively converts domain.Document/[]any values into plain
// map[string]any/[]any so mapstructure can walk them without knowing
// about the document interface.
func (d *Decoder) plainify(value any) any {
	switch t := value.(type) {
	case domain.Document:
		out := make(map[string]any, t.Len())
		for k, v := range t.Iter() {
			out[k] = d.plainify(v)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, v := range t {
			out[i] = d.plainify(v)
		}
		return out
	default:
		return value
	}
}
