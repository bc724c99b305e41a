// Package projector contains the default [domain.Projector] implementation.
package projector

import (
	"errors"

	"github.com/webbestmaster/nedb/adapter/data"
	"github.com/webbestmaster/nedb/adapter/fieldnavigator"
	"github.com/webbestmaster/nedb/domain"
)

// ErrMixOmitType is returned when a projection document mixes inclusion
// and exclusion operators on fields other than "_id".
var ErrMixOmitType = errors.New("can't both keep and omit fields except for _id")

// Projector implements [domain.Projector].
type Projector struct {
	nav    domain.FieldNavigator
	newDoc domain.DocumentFactory
}

// NewProjector returns a new implementation of [domain.Projector].
func NewProjector(opts ...Option) domain.Projector {
	p := Projector{newDoc: data.NewDocument}
	for _, opt := range opts {
		opt(&p)
	}
	if p.nav == nil {
		p.nav = fieldnavigator.NewFieldNavigator(p.newDoc)
	}
	return &p
}

// Project implements [domain.Projector].
func (p *Projector) Project(docs []domain.Document, spec map[string]uint8) ([]domain.Document, error) {
	if len(spec) == 0 {
		return docs, nil
	}

	idFlag, idMentioned := spec["_id"]
	keepID := !idMentioned || idFlag != 0

	addrs := make([][]string, 0, len(spec))
	var fieldCount, includeCount int

	for field, flag := range spec {
		if field == "_id" {
			continue
		}
		fieldCount++
		if flag > 0 {
			includeCount++
		}
		if includeCount > 0 && includeCount != fieldCount {
			return nil, ErrMixOmitType
		}
		addr, err := p.nav.GetAddress(field)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}

	// An inclusion projection that never mentions "_id" still keeps it by
	// default, so it must be added to the include list explicitly.
	if !idMentioned && includeCount > 0 {
		addrs = append(addrs, []string{"_id"})
	}

	inclusive := includeCount != 0
	out := make([]domain.Document, len(docs))
	for i, doc := range docs {
		projected, err := p.projectOne(doc, addrs, inclusive)
		if err != nil {
			return nil, err
		}

		if keepID {
			projected.Set("_id", doc.ID())
		} else {
			projected.Unset("_id")
		}
		out[i] = projected
	}

	return out, nil
}

func (p *Projector) projectOne(doc domain.Document, addrs [][]string, inclusive bool) (domain.Document, error) {
	if inclusive {
		return p.include(doc, addrs)
	}
	return p.exclude(doc, addrs)
}

func (p *Projector) include(doc domain.Document, addrs [][]string) (domain.Document, error) {
	out, err := p.newDoc(nil)
	if err != nil {
		return nil, err
	}

	for _, addr := range addrs {
		handles, fannedOut, err := p.nav.GetField(doc, addr...)
		if err != nil {
			return nil, err
		}
		value, ok := p.readHandles(handles, fannedOut)
		if !ok {
			continue
		}
		targets, err := p.nav.EnsureField(out, addr...)
		if err != nil {
			return nil, err
		}
		for _, target := range targets {
			target.Set(value)
		}
	}
	return out, nil
}

func (p *Projector) readHandles(handles []domain.GetSetter, fannedOut bool) (any, bool) {
	if !fannedOut {
		return handles[0].Get()
	}
	values := make([]any, len(handles))
	for i, h := range handles {
		v, _ := h.Get()
		values[i] = v
	}
	return values, true
}

func (p *Projector) exclude(doc domain.Document, addrs [][]string) (domain.Document, error) {
	out, err := p.newDoc(doc)
	if err != nil {
		return nil, err
	}
	for _, addr := range addrs {
		handles, _, err := p.nav.GetField(out, addr...)
		if err != nil {
			return nil, err
		}
		for _, h := range handles {
			h.Unset()
		}
	}
	return out, nil
}
