// Package uncomparable implements a hash map keyed by values that are not
// Go-[comparable] (slices, maps, or anything else that can't be a native
// map key), using caller-supplied [domain.Hasher]/[domain.Comparer]
// collaborators instead of Go's built-in equality.
package uncomparable

import (
	"iter"
	"slices"

	"github.com/webbestmaster/nedb/domain"
)

const defaultBucketCount = 8

// entry is one stored key/value pair within a bucket.
type entry[T any] struct {
	key   any
	value T
}

// Map is a hash map over arbitrary, non-comparable keys. Collisions within
// a bucket are resolved with a linear scan using comparer, since the
// stored keys can't be compared with Go's == operator.
type Map[T any] struct {
	buckets  [][]entry[T]
	hasher   domain.Hasher
	comparer domain.Comparer
	length   int
}

// New returns an empty Map keyed with the given hasher/comparer pair.
func New[T any](hasher domain.Hasher, comparer domain.Comparer) *Map[T] {
	return &Map[T]{
		buckets:  make([][]entry[T], defaultBucketCount),
		hasher:   hasher,
		comparer: comparer,
	}
}

func (m *Map[T]) bucketFor(key any) (int, error) {
	h, err := m.hasher.Hash(key)
	if err != nil {
		return 0, err
	}
	return int(h % uint64(len(m.buckets))), nil
}

// find returns the index of key within its bucket, or -1 if absent.
func (m *Map[T]) find(bucket []entry[T], key any) (int, error) {
	for i, e := range bucket {
		eq, err := m.comparer.Compare(key, e.key)
		if err != nil {
			return -1, err
		}
		if eq == 0 {
			return i, nil
		}
	}
	return -1, nil
}

// Get returns the value stored under key and whether it was present.
func (m *Map[T]) Get(key any) (T, bool, error) {
	idx, err := m.bucketFor(key)
	if err != nil {
		return *new(T), false, err
	}

	pos, err := m.find(m.buckets[idx], key)
	if err != nil || pos < 0 {
		return *new(T), false, err
	}
	return m.buckets[idx][pos].value, true, nil
}

// Set inserts or overwrites the value stored under key.
func (m *Map[T]) Set(key any, value T) error {
	idx, err := m.bucketFor(key)
	if err != nil {
		return err
	}

	pos, err := m.find(m.buckets[idx], key)
	if err != nil {
		return err
	}
	if pos >= 0 {
		m.buckets[idx][pos] = entry[T]{key: key, value: value}
		return nil
	}

	m.length++
	m.buckets[idx] = append(m.buckets[idx], entry[T]{key: key, value: value})
	return nil
}

// Delete removes key from the map, if present.
func (m *Map[T]) Delete(key any) error {
	idx, err := m.bucketFor(key)
	if err != nil {
		return err
	}

	pos, err := m.find(m.buckets[idx], key)
	if err != nil || pos < 0 {
		return err
	}
	m.length--
	m.buckets[idx] = slices.Delete(m.buckets[idx], pos, pos+1)
	return nil
}

// Len returns the number of stored entries.
func (m *Map[T]) Len() int {
	return m.length
}

// Keys returns an unordered iterator over every stored key.
func (m *Map[T]) Keys() iter.Seq[any] {
	return func(yield func(any) bool) {
		for _, bucket := range m.buckets {
			for _, e := range bucket {
				if !yield(e.key) {
					return
				}
			}
		}
	}
}

// Values returns an unordered iterator over every stored value.
func (m *Map[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, bucket := range m.buckets {
			for _, e := range bucket {
				if !yield(e.value) {
					return
				}
			}
		}
	}
}

// Iter returns an unordered iterator over every stored key/value pair.
func (m *Map[T]) Iter() iter.Seq2[any, T] {
	return func(yield func(any, T) bool) {
		for _, bucket := range m.buckets {
			for _, e := range bucket {
				if !yield(e.key, e.value) {
					return
				}
			}
		}
	}
}
