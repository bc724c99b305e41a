// Package index contains the default [domain.Index] implementation.
package index

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/vinicius-lino-figueiredo/bst"
	"github.com/vinicius-lino-figueiredo/bst/adapter/avl"
	"github.com/webbestmaster/nedb/adapter/comparer"
	"github.com/webbestmaster/nedb/adapter/data"
	"github.com/webbestmaster/nedb/adapter/fieldnavigator"
	"github.com/webbestmaster/nedb/adapter/hasher"
	"github.com/webbestmaster/nedb/domain"
	"github.com/webbestmaster/nedb/pkg/uncomparable"
)

// Index implements [domain.Index]: one AVL-backed tree per indexed field
// (or per compound-field group), keyed by the field's runtime value(s) and
// storing every document sharing that key.
type Index struct {
	fieldName  string
	fieldParts []string
	unique     bool
	sparse     bool

	// Tree is exported to let tests inspect the underlying AVL tree
	// directly; Index is otherwise consumed through the domain.Index
	// interface.
	Tree bst.BST[any, domain.Document]

	cmp     domain.Comparer
	treeCmp bst.Comparer[any, domain.Document]
	hash    domain.Hasher
	nav     domain.FieldNavigator
}

// FieldName implements [domain.Index].
func (i *Index) FieldName() string {
	return i.fieldName
}

// Sparse implements [domain.Index].
func (i *Index) Sparse() bool {
	return i.sparse
}

// Unique implements [domain.Index].
func (i *Index) Unique() bool {
	return i.unique
}

// NewIndex returns a new implementation of [domain.Index].
func NewIndex(options ...domain.IndexOption) (domain.Index, error) {
	opts := domain.IndexOptions{
		FieldName:       "",
		Unique:          false,
		Sparse:          false,
		ExpireAfter:     0,
		DocumentFactory: data.NewDocument,
		Comparer:        comparer.NewComparer(),
		Hasher:          hasher.NewHasher(),
	}
	for _, option := range options {
		option(&opts)
	}

	if opts.FieldNavigator == nil {
		opts.FieldNavigator = fieldnavigator.NewFieldNavigator(opts.DocumentFactory)
	}

	fieldParts, err := opts.FieldNavigator.SplitFields(opts.FieldName)
	if err != nil {
		return nil, err
	}

	treeCmp := NewBSTComparer(opts.Comparer)

	return &Index{
		fieldName:  opts.FieldName,
		fieldParts: fieldParts,
		unique:     opts.Unique,
		sparse:     opts.Sparse,
		Tree:       avl.NewBST(opts.Unique, 8, treeCmp),
		cmp:        opts.Comparer,
		treeCmp:    treeCmp,
		hash:       opts.Hasher,
		nav:        opts.FieldNavigator,
	}, nil
}

// Reset implements [domain.Index].
func (i *Index) Reset(ctx context.Context, newData ...domain.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	i.Tree = avl.NewBST(i.unique, 8, i.treeCmp)
	return i.Insert(ctx, newData...)
}

// keysOf resolves the index key(s) a document contributes. A single-field
// index may still yield several keys when the field path crosses an array
// (each array element becomes its own key); a compound index instead
// collapses its fields into one composite-key document.
func (i *Index) keysOf(doc domain.Document) ([]any, error) {
	if len(i.fieldParts) != 1 {
		return i.compoundKeysOf(doc)
	}

	addr, err := i.nav.GetAddress(i.fieldParts[0])
	if err != nil {
		return nil, err
	}

	handles, _, err := i.nav.GetField(doc, addr...)
	if err != nil {
		return nil, err
	}

	values := make([]any, len(handles))
	anySet := false
	for n, h := range handles {
		v, isSet := h.Get()
		anySet = anySet || isSet
		values[n] = v
	}

	if i.sparse && !anySet {
		return nil, nil
	}
	if len(values) == 0 {
		return []any{nil}, nil
	}
	if fanned, ok := values[0].([]any); ok {
		return fanned, nil
	}
	return values, nil
}

func (i *Index) compoundKeysOf(doc domain.Document) ([]any, error) {
	var anyFieldSet bool
	composite := make(data.M)

	for _, field := range i.fieldParts {
		addr, err := i.nav.GetAddress(field)
		if err != nil {
			return nil, err
		}
		handles, _, err := i.nav.GetField(doc, addr...)
		if err != nil {
			return nil, err
		}

		composite[field] = nil
		values := make([]any, len(handles))
		anySet := false
		for n, h := range handles {
			v, isSet := h.Get()
			anySet = anySet || isSet
			values[n] = v
		}
		if anySet { // undefined fields fall back to the zero value nil
			composite[field] = values[0]
		}
		anyFieldSet = anyFieldSet || composite[field] != nil
	}

	if i.sparse && !anyFieldSet {
		return nil, nil
	}
	return []any{composite}, nil
}

// Insert implements [domain.Index].
func (i *Index) Insert(ctx context.Context, docs ...domain.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	type inserted struct {
		key any
		doc domain.Document
	}
	done := make([]inserted, 0, len(docs))

	var failure error
insertLoop:
	for _, d := range docs {
		keys, err := i.keysOf(d)
		if err != nil {
			failure = err
			break
		}

		keys = slices.CompactFunc(sortedByCmp(keys, i.cmp), func(a, b any) bool { return i.compareKeys(a, b) == 0 })

		for _, k := range keys {
			if err := i.Tree.Insert(k, d); err != nil {
				var violation *bst.ErrUniqueViolated
				if errors.As(err, &violation) {
					err = fmt.Errorf("%w: %w", domain.ErrConstraintViolated, err)
				}
				failure = err
				break insertLoop
			}
			done = append(done, inserted{key: k, doc: d})
		}
	}

	if failure == nil {
		return nil
	}

	rollbackErrs := make([]error, 1, len(done)+1)
	rollbackErrs[0] = failure
	for _, ins := range done {
		if err := i.Tree.Delete(ins.key, &ins.doc); err != nil {
			rollbackErrs = append(rollbackErrs, err)
		}
	}
	if len(rollbackErrs) > 1 {
		return errors.Join(rollbackErrs...)
	}
	return failure
}

func sortedByCmp(keys []any, cmp domain.Comparer) []any {
	slices.SortFunc(keys, func(a, b any) int {
		c, _ := cmp.Compare(a, b)
		return c
	})
	return keys
}

// Remove implements [domain.Index].
func (i *Index) Remove(ctx context.Context, docs ...domain.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var errs []error

	for _, d := range docs {
		var keys []any
		var anyFieldSet bool

		for _, field := range i.fieldParts {
			addr, err := i.nav.GetAddress(field)
			if err != nil {
				return err
			}
			handles, _, err := i.nav.GetField(d, addr...)
			if err != nil {
				return err
			}

			var isSet bool
			keys, isSet = i.flattenKeys(handles, keys)
			anyFieldSet = anyFieldSet || isSet
		}

		if i.sparse && !anyFieldSet {
			continue
		}

		distinct := slices.Clone(keys)
		slices.SortFunc(distinct, i.compareKeys)
		distinct = slices.Compact(distinct)
		for _, k := range distinct {
			if err := i.Tree.Delete(k, &d); err != nil {
				errs = append(errs, err)
			}
		}

		if err := i.Tree.Delete(keys, &d); err != nil {
			errs = append(errs, err)
		}

		if len(i.fieldParts) != 1 {
			composite, err := i.compoundKeysOf(d)
			if err != nil {
				return err
			}
			for _, k := range composite {
				if err := i.Tree.Delete(k, &d); err != nil {
					errs = append(errs, err)
				}
			}
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func (i *Index) flattenKeys(handles []domain.GetSetter, into []any) ([]any, bool) {
	anySet := false
	for _, h := range handles {
		v, isSet := h.Get()
		anySet = anySet || isSet
		if fanned, ok := v.([]any); ok {
			into = append(into, fanned...)
		} else {
			into = append(into, v)
		}
	}
	return into, anySet
}

// Update implements [domain.Index].
func (i *Index) Update(ctx context.Context, oldDoc, newDoc domain.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := i.Remove(ctx, oldDoc); err != nil {
		return err
	}
	if err := i.Insert(ctx, newDoc); err != nil {
		_ = i.Insert(context.WithoutCancel(context.Background()), oldDoc)
		return err
	}
	return nil
}

// UpdateMultipleDocs implements [domain.Index].
func (i *Index) UpdateMultipleDocs(ctx context.Context, pairs ...domain.Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var failingAt int
	var failure error

	removeCtx := context.WithoutCancel(ctx)
	for _, pair := range pairs {
		if failure = i.Remove(removeCtx, pair.OldDoc); failure != nil {
			break
		}
	}

	if failure == nil {
	insertLoop:
		for n, pair := range pairs {
			if err := ctx.Err(); err != nil {
				failure = err
				failingAt = n
				break insertLoop
			}
			if failure = i.Insert(ctx, pair.NewDoc); failure != nil {
				failingAt = n
				break
			}
		}
	}

	if failure != nil {
		undoCtx := context.WithoutCancel(ctx)
		for n := range failingAt {
			_ = i.Remove(undoCtx, pairs[n].NewDoc)
		}
		for _, pair := range pairs {
			_ = i.Insert(undoCtx, pair.OldDoc)
		}
	}

	return failure
}

// RevertUpdate implements [domain.Index].
func (i *Index) RevertUpdate(ctx context.Context, oldDoc, newDoc domain.Document) error {
	return i.Update(ctx, newDoc, oldDoc)
}

// RevertMultipleUpdates implements [domain.Index].
func (i *Index) RevertMultipleUpdates(ctx context.Context, pairs ...domain.Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	reversed := make([]domain.Update, len(pairs))
	for n, pair := range pairs {
		reversed[n] = domain.Update{OldDoc: pair.NewDoc, NewDoc: pair.OldDoc}
	}
	return i.UpdateMultipleDocs(ctx, reversed...)
}

// GetMatching implements [domain.Index].
func (i *Index) GetMatching(values ...any) (iter.Seq2[domain.Document, error], error) {
	byKey := uncomparable.New[[]domain.Document](i.hash, i.cmp)

	for _, v := range values {
		found, err := i.Tree.Search(v)
		if err != nil {
			return nil, err
		}
		if found == nil {
			continue
		}
		if err := byKey.Set(found.Key(), slices.Clone(found.Values())); err != nil {
			return nil, err
		}
	}

	keys := slices.Collect(byKey.Keys())
	var sortErr error
	slices.SortFunc(keys, func(a, b any) int {
		if sortErr != nil {
			return 0
		}
		c, err := i.cmp.Compare(a, b)
		if err != nil {
			sortErr = err
		}
		return c
	})
	if sortErr != nil {
		return nil, sortErr
	}

	return func(yield func(domain.Document, error) bool) {
		for _, key := range keys {
			docs, _, err := byKey.Get(key)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, d := range docs {
				if !yield(d, nil) {
					return
				}
			}
		}
	}, nil
}

// GetBetweenBounds implements [domain.Index].
func (i *Index) GetBetweenBounds(ctx context.Context, query domain.Document) (iter.Seq2[domain.Document, error], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var bounds bst.Query[any]
	for op, v := range query.Iter() {
		switch op {
		case "$gt":
			bounds.GreaterThan = &bst.Bound[any]{Value: v, IncludeEqual: false}
		case "$gte":
			bounds.GreaterThan = &bst.Bound[any]{Value: v, IncludeEqual: true}
		case "$lt":
			bounds.LowerThan = &bst.Bound[any]{Value: v, IncludeEqual: false}
		case "$lte":
			bounds.LowerThan = &bst.Bound[any]{Value: v, IncludeEqual: true}
		}
	}

	return i.Tree.Query(bounds), nil
}

// GetAll implements [domain.Index].
func (i *Index) GetAll() iter.Seq[domain.Document] {
	return i.Tree.GetAll()
}

// GetNumberOfKeys implements [domain.Index].
func (i *Index) GetNumberOfKeys() int {
	return i.Tree.GetNumberOfKeys()
}

func (i *Index) compareKeys(a, b any) int {
	c, _ := i.cmp.Compare(a, b)
	return c
}
