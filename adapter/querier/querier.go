// Package querier contains the default [domain.Querier] implementation.
package querier

import (
	"fmt"
	"iter"
	"slices"

	"github.com/webbestmaster/nedb/adapter/comparer"
	"github.com/webbestmaster/nedb/adapter/data"
	"github.com/webbestmaster/nedb/adapter/fieldnavigator"
	"github.com/webbestmaster/nedb/adapter/matcher"
	"github.com/webbestmaster/nedb/adapter/projector"
	"github.com/webbestmaster/nedb/domain"
)

// Querier implements [domain.Querier]: runs a compiled query over a stream
// of candidate documents, then applies sort, skip/limit and projection.
type Querier struct {
	matcher domain.Matcher
	cmp     domain.Comparer
	nav     domain.FieldNavigator
	project domain.Projector
	newDoc  domain.DocumentFactory
}

// NewQuerier returns a new implementation of [domain.Querier].
func NewQuerier(opts ...Option) domain.Querier {
	q := Querier{
		newDoc: data.NewDocument,
		cmp:    comparer.NewComparer(),
	}
	for _, opt := range opts {
		opt(&q)
	}
	if q.nav == nil {
		q.nav = fieldnavigator.NewFieldNavigator(q.newDoc)
	}
	if q.project == nil {
		q.project = projector.NewProjector(
			projector.WithDocumentFactory(q.newDoc),
			projector.WithFieldNavigator(q.nav),
		)
	}
	if q.matcher == nil {
		q.matcher = matcher.NewMatcher(
			matcher.WithComparer(q.cmp),
			matcher.WithDocumentFactory(q.newDoc),
			matcher.WithFieldNavigator(q.nav),
		)
	}
	return &q
}

// defaultResultCap is a starting capacity guess for the result slice,
// avoiding the worst-case repeated grow for typical query result sizes
// without over-allocating for a query that matches nothing.
const defaultResultCap = 256

// Query implements [domain.Querier].
func (q *Querier) Query(docs iter.Seq2[domain.Document, error], opts ...domain.QueryOption) ([]domain.Document, error) {
	if docs == nil {
		return make([]domain.Document, 0), nil
	}

	options := domain.QueryOptions{Cap: defaultResultCap}
	for _, opt := range opts {
		opt(&options)
	}

	matched, alreadyProjected, err := q.matchAndBound(docs, options)
	if err != nil {
		return nil, err
	}
	if alreadyProjected {
		return matched, nil
	}

	if options.Sort != nil {
		ordered, err := q.orderBy(matched, options.Sort)
		if err != nil {
			return nil, fmt.Errorf("sorting: %w", err)
		}
		matched = q.page(ordered, options.Skip, options.Limit)
	}

	projected, err := q.project.Project(matched, options.Projection)
	if err != nil {
		return nil, fmt.Errorf("projecting: %w", err)
	}
	return projected, nil
}

// matchAndBound streams docs through the compiled query, applying an
// unsorted skip/limit inline as it goes. When a limit is hit before a sort
// is needed, it projects immediately and reports alreadyProjected=true so
// the caller can skip the sort/page/project steps entirely.
func (q *Querier) matchAndBound(docs iter.Seq2[domain.Document, error], opts domain.QueryOptions) (result []domain.Document, alreadyProjected bool, err error) {
	var skipped int64
	result = make([]domain.Document, 0, opts.Cap)

	if opts.Query != nil {
		if err := q.matcher.SetQuery(opts.Query); err != nil {
			return nil, false, err
		}
	}

	for doc, err := range docs {
		if err != nil {
			return nil, false, err
		}

		if opts.Query != nil {
			ok, err := q.matcher.Match(doc)
			if err != nil {
				return nil, false, fmt.Errorf("matching document: %w", err)
			}
			if !ok {
				continue
			}
		}

		if opts.Sort == nil {
			if skipped < opts.Skip {
				skipped++
				continue
			}
			if opts.Limit > 0 && int64(len(result)) == opts.Limit {
				projected, err := q.project.Project(result, opts.Projection)
				if err != nil {
					return nil, false, fmt.Errorf("projecting: %w", err)
				}
				return projected, true, nil
			}
		}

		result = append(result, doc)
	}
	return result, false, nil
}

func (q *Querier) orderBy(docs []domain.Document, sort domain.Sort) ([]domain.Document, error) {
	ordered := slices.Clone(docs)

	var sortErr error
	slices.SortFunc(ordered, func(a, b domain.Document) int {
		if sortErr != nil {
			return 0
		}
		for _, crit := range sort {
			order, err := q.compareByCriterion(a, b, crit)
			if err != nil {
				sortErr = err
				return 0
			}
			if order != 0 {
				return order
			}
		}
		return 0
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return ordered, nil
}

func (q *Querier) compareByCriterion(a, b domain.Document, crit domain.SortName) (int, error) {
	addr, err := q.nav.GetAddress(crit.Key)
	if err != nil {
		return 0, fmt.Errorf("getting address: %w", err)
	}

	valuesA, _, err := q.nav.GetField(a, addr...)
	if err != nil {
		return 0, fmt.Errorf("getting field: %w", err)
	}
	valuesB, _, err := q.nav.GetField(b, addr...)
	if err != nil {
		return 0, fmt.Errorf("getting field: %w", err)
	}

	order, err := q.cmp.Compare(q.asAnySlice(valuesA), q.asAnySlice(valuesB))
	if err != nil {
		return 0, fmt.Errorf("comparing: %w", err)
	}
	return order * int(crit.Order), nil
}

func (q *Querier) asAnySlice(handles []domain.GetSetter) []any {
	out := make([]any, len(handles))
	for i, h := range handles {
		out[i] = h
	}
	return out
}

// page slices data to the [skip, skip+limit) window, clamped to data's
// bounds; a zero limit means "no limit", returning everything from skip
// onward.
func (q *Querier) page(data []domain.Document, skip, limit int64) []domain.Document {
	length := int64(len(data))

	skip = max(skip, 0)
	skip = min(skip, length)

	end := min(skip+limit, length)
	if end == skip {
		end = length
	}

	return data[skip:end]
}
