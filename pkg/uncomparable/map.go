// Package uncomparable contains a map whose keys are wire values, which Go
// cannot use as map keys because documents and lists are not [comparable].
// Keys are bucketed by a [domain.Hasher] and told apart by a
// [domain.Comparer], so two keys the comparer considers equal (1 and 1.0 for
// instance) are the same key. Errors from either are returned instead of
// panicking.
package uncomparable

import (
	"iter"
	"slices"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

const initialBuckets = 8

// Map represents a map[K]T where K does not need to be [comparable].
// Iteration follows insertion order.
type Map[T any] struct {
	buckets  [][]*entry[T]
	entries  []*entry[T]
	hasher   domain.Hasher
	comparer domain.Comparer
}

type entry[T any] struct {
	hash  uint64
	key   any
	value T
}

// New returns a new instance of [Map] with the given [domain.Hasher] and
// [domain.Comparer].
func New[T any](hasher domain.Hasher, comparer domain.Comparer) *Map[T] {
	return &Map[T]{
		buckets:  make([][]*entry[T], initialBuckets),
		hasher:   hasher,
		comparer: comparer,
	}
}

// find returns the hash of key and its entry, nil if missing.
func (m *Map[T]) find(key any) (uint64, *entry[T], error) {
	h, err := m.hasher.Hash(key)
	if err != nil {
		return 0, nil, err
	}
	for _, e := range m.buckets[h%uint64(len(m.buckets))] {
		if e.hash != h {
			continue
		}
		c, err := m.comparer.Compare(key, e.key)
		if err != nil {
			return 0, nil, err
		}
		if c == 0 {
			return h, e, nil
		}
	}
	return h, nil, nil
}

// Get returns the value for the given key with a bool to indicate whether it
// exists in the map or not. If hash or comparison fails, returns an error.
func (m *Map[T]) Get(key any) (T, bool, error) {
	_, e, err := m.find(key)
	if err != nil || e == nil {
		return *new(T), false, err
	}
	return e.value, true, nil
}

// Set adds or replaces the given key in the map, returning error on hash or
// comparison failure. A replaced key keeps its position and its first
// inserted representation.
func (m *Map[T]) Set(key any, value T) error {
	h, e, err := m.find(key)
	if err != nil {
		return err
	}
	if e != nil {
		e.value = value
		return nil
	}
	e = &entry[T]{hash: h, key: key, value: value}
	m.entries = append(m.entries, e)
	if len(m.entries) > 2*len(m.buckets) {
		m.grow()
	} else {
		i := h % uint64(len(m.buckets))
		m.buckets[i] = append(m.buckets[i], e)
	}
	return nil
}

func (m *Map[T]) grow() {
	m.buckets = make([][]*entry[T], 2*len(m.buckets))
	for _, e := range m.entries {
		i := e.hash % uint64(len(m.buckets))
		m.buckets[i] = append(m.buckets[i], e)
	}
}

// Delete removes a given key from the map, if it exists. If the given key could
// not be hashed or some comparison failed, it returns the error.
func (m *Map[T]) Delete(key any) error {
	h, e, err := m.find(key)
	if err != nil || e == nil {
		return err
	}
	i := h % uint64(len(m.buckets))
	m.buckets[i] = slices.DeleteFunc(m.buckets[i], func(o *entry[T]) bool { return o == e })
	m.entries = slices.DeleteFunc(m.entries, func(o *entry[T]) bool { return o == e })
	return nil
}

// Len returns the amount of stored values.
func (m *Map[T]) Len() int {
	return len(m.entries)
}

// Keys returns an [iter.Seq] containing all the stored keys.
func (m *Map[T]) Keys() iter.Seq[any] {
	return func(yield func(any) bool) {
		for _, e := range m.entries {
			if !yield(e.key) {
				return
			}
		}
	}
}

// Values returns an [iter.Seq] containing all the stored values.
func (m *Map[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, e := range m.entries {
			if !yield(e.value) {
				return
			}
		}
	}
}

// Iter returns an [iter.Seq2] containing all the key+value pairs.
func (m *Map[T]) Iter() iter.Seq2[any, T] {
	return func(yield func(any, T) bool) {
		for _, e := range m.entries {
			if !yield(e.key, e.value) {
				return
			}
		}
	}
}
