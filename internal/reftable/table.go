// Package reftable maps short numeric indices back to the objects they were
// issued for. Each Publish starts a new generation; references issued for an
// older generation no longer resolve.
package reftable

import (
	"fmt"

	"github.com/alanyoungcy/polytgbot/internal/domain"
)

// Table holds the most recently published sequence of objects of one kind.
// It is owned by a single session and is not safe for concurrent use.
type Table[T any] struct {
	gen   uint32
	items []T
}

// New returns an empty table whose first Publish yields start+1.
func New[T any](start uint32) *Table[T] {
	return &Table[T]{gen: start}
}

// Publish replaces the table contents and returns the new generation. The
// input slice is copied.
func (t *Table[T]) Publish(items []T) uint32 {
	t.gen++
	if t.gen == 0 {
		t.gen = 1
	}
	t.items = append(make([]T, 0, len(items)), items...)
	return t.gen
}

// Resolve returns the object at index for the given generation.
func (t *Table[T]) Resolve(gen uint32, index int) (T, error) {
	var zero T
	if gen != t.gen || t.items == nil {
		return zero, fmt.Errorf("reftable: generation %d superseded by %d: %w", gen, t.gen, domain.ErrNotFound)
	}
	if index < 0 || index >= len(t.items) {
		return zero, fmt.Errorf("reftable: index %d out of range [0,%d): %w", index, len(t.items), domain.ErrNotFound)
	}
	return t.items[index], nil
}

// Ref returns the reference for index in the current generation.
func (t *Table[T]) Ref(index int) domain.Ref {
	return domain.Ref{Gen: t.gen, Index: index}
}

// Generation returns the current generation.
func (t *Table[T]) Generation() uint32 { return t.gen }

// Len returns the number of objects in the current generation.
func (t *Table[T]) Len() int { return len(t.items) }

// Published reports whether Publish has been called at least once.
func (t *Table[T]) Published() bool { return t.items != nil }

// Items returns the current objects. Callers must not modify the slice.
func (t *Table[T]) Items() []T { return t.items }

// Page is a visible window over a table generation.
type Page[T any] struct {
	Gen     uint32
	Number  int
	Offset  int
	Items   []T
	Total   int
	HasPrev bool
	HasNext bool
}

// Window returns the slice [page*size, page*size+size) clamped to the table
// length. Prev and Next are offered only when the neighbouring slice is
// non-empty.
func (t *Table[T]) Window(page, size int) Page[T] {
	return window(t.gen, t.items, page, size)
}

func window[T any](gen uint32, items []T, page, size int) Page[T] {
	if size <= 0 {
		size = 1
	}
	if page < 0 {
		page = 0
	}
	n := len(items)
	start := min(page*size, n)
	end := min(start+size, n)
	return Page[T]{
		Gen:     gen,
		Number:  page,
		Offset:  start,
		Items:   items[start:end],
		Total:   n,
		HasPrev: page > 0 && (page-1)*size < n,
		HasNext: (page+1)*size < n,
	}
}
