package chron

import "iter"

// Range walks the entries (deleted and live) from nextTo(r.Head),
// inclusive, up to but not including nextTo(r.Tail). The walk is lazy
// and restartable: calling Range again replays it from the start. It
// terminates even if the tail boundary cannot be resolved, by falling
// through to the logical end of the document.
func (c *Chron[T]) Range(r Range) iter.Seq[Entry[T]] {
	return func(yield func(Entry[T]) bool) {
		cur, ok := c.nextTo(r.Head)
		if !ok {
			return
		}
		stopIndex := -1
		if end, ok := c.nextTo(r.Tail); ok {
			stopIndex = end.Index
		}
		for {
			if cur.Index == stopIndex {
				return
			}
			if !yield(cur) {
				return
			}
			if cur.Latter == -1 {
				return
			}
			next, ok := c.log.Get(cur.Latter)
			if !ok {
				return
			}
			cur = next
		}
	}
}

// Data walks the live atoms only, within r if given, else across the
// whole document.
func (c *Chron[T]) Data(r ...Range) iter.Seq[T] {
	rng := Range{Head: c.Head(), Tail: c.Tail()}
	if len(r) > 0 {
		rng = r[0]
	}
	return func(yield func(T) bool) {
		for e := range c.Range(rng) {
			if e.IsDeleted() {
				continue
			}
			atom, err := e.Atom()
			if err != nil {
				continue
			}
			if !yield(atom) {
				return
			}
		}
	}
}

// Slice bundles a Chron with a Range for convenient repeated iteration.
type Slice[T any] struct {
	Chron *Chron[T]
	Range Range
}

// Slice returns a Slice over r.
func (c *Chron[T]) Slice(r Range) Slice[T] {
	return Slice[T]{Chron: c, Range: r}
}

// Entries iterates this slice's entries (deleted and live).
func (s Slice[T]) Entries() iter.Seq[Entry[T]] {
	return s.Chron.Range(s.Range)
}

// Data iterates this slice's live atoms.
func (s Slice[T]) Data() iter.Seq[T] {
	return s.Chron.Data(s.Range)
}
