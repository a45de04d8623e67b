// Package chron implements an append-only, persistent, order-preserving
// log with stable cursors — the sequence CRDT primitive the editor uses
// for text (one entry per codepoint) and as the coordinate space
// ChronMarkup anchors its spans to.
//
// The log itself is a trie.Vector of Entry values; Chron only adds the
// logical former/latter linking and cursor resolution on top. This
// mirrors the teacher's MVCC version chains (pkg/mvcc/version.go) —
// immutable versioned records linked into a chain — generalized from a
// single per-key chain into the single global chain a document's text
// needs.
package chron

import (
	"math/rand/v2"

	"github.com/juju/loggo"

	"github.com/wavecollab/wave/pkg/trie"
)

var logger = loggo.GetLogger("wave.chron")

// maxKey is the exclusive upper bound for a 28-bit random key.
const maxKey = 1 << 28

// Chron is an order-preserving log of atoms of type T.
type Chron[T any] struct {
	log  *trie.Vector[Entry[T]]
	last int

	// keyIndex is a shared, append-only side index from Key to log
	// index. It is safe to share across every Chron derived from a
	// common ancestor because keys are never reused and an entry's
	// Index never changes once assigned — anchorOf always bounds-checks
	// the resolved index against this Chron's own log length, so a
	// newer sibling branch's keys are simply invisible to an older one.
	keyIndex map[Key]int
}

// New returns an empty Chron: a single immutable root entry whose atom
// is DELETED, anchoring the start and end of the document.
func New[T any]() *Chron[T] {
	root := Entry[T]{Index: 0, Key: 0, Former: -1, Latter: -1, deleted: true}
	log := trie.Empty[Entry[T]]().Append(root)
	return &Chron[T]{
		log:      log,
		last:     0,
		keyIndex: map[Key]int{0: 0},
	}
}

// RandomKey returns a uniform random integer in [1, 2^28), suitable as
// the key argument to Insert.
func RandomKey() Key {
	return Key(1 + rand.IntN(maxKey-1))
}

// Head returns the cursor bracketing the very start of the document.
func (c *Chron[T]) Head() Cursor {
	root, _ := c.log.Get(0)
	return root.Tail()
}

// Tail returns the cursor bracketing the very end of the document.
func (c *Chron[T]) Tail() Cursor {
	last, _ := c.log.Get(c.last)
	return last.Tail()
}

// anchorOf resolves a cursor to the current Entry sharing its
// (index,key) identity, falling back to a key search when the cursor
// only carries a bare key (or its cached index has since gone stale).
func (c *Chron[T]) anchorOf(cur Cursor) (Entry[T], bool) {
	if cur.entryIndex >= 0 && cur.entryIndex < c.log.Length() {
		if e, ok := c.log.Get(cur.entryIndex); ok && e.Key == cur.key {
			return e, true
		}
	}
	idx, ok := c.keyIndex[cur.key]
	if !ok || idx >= c.log.Length() {
		return Entry[T]{}, false
	}
	e, ok := c.log.Get(idx)
	if !ok || e.Key != cur.key {
		return Entry[T]{}, false
	}
	return e, true
}

// AnchorOf resolves a cursor to the entry it currently anchors to.
func (c *Chron[T]) AnchorOf(cur Cursor) (Entry[T], bool) {
	return c.anchorOf(cur)
}

// nextTo walks the logical order, respecting the cursor's offset, to
// the entry immediately following it. It reports false if the anchor
// can no longer be resolved, or if there is no such entry.
func (c *Chron[T]) nextTo(cur Cursor) (Entry[T], bool) {
	anchor, ok := c.anchorOf(cur)
	if !ok {
		return Entry[T]{}, false
	}
	if cur.offset == -1 {
		return anchor, true
	}
	if anchor.Latter == -1 {
		return Entry[T]{}, false
	}
	return c.log.Get(anchor.Latter)
}

// prevTo walks the logical order, respecting the cursor's offset, to
// the entry immediately preceding it.
func (c *Chron[T]) prevTo(cur Cursor) (Entry[T], bool) {
	anchor, ok := c.anchorOf(cur)
	if !ok {
		return Entry[T]{}, false
	}
	if cur.offset == +1 {
		return anchor, true
	}
	if anchor.Former == -1 {
		return Entry[T]{}, false
	}
	return c.log.Get(anchor.Former)
}

// NextTo exposes nextTo for ChronMarkup's enumeration walk.
func (c *Chron[T]) NextTo(cur Cursor) (Entry[T], bool) { return c.nextTo(cur) }

// PrevTo exposes prevTo for ChronMarkup's enumeration walk.
func (c *Chron[T]) PrevTo(cur Cursor) (Entry[T], bool) { return c.prevTo(cur) }

// Insert splices atom immediately after prevTo(cursor) and before that
// entry's former latter neighbour. Repeated inserts at the same cursor
// therefore appear in reverse chronological order relative to one
// another — each new sibling lands closer to the shared anchor — which
// is the deterministic tie-break that makes interleaved concurrent
// edits converge.
//
// If the anchor cannot be resolved, Insert is a silent no-op: it
// returns the receiver unchanged. key is optional; when omitted a
// fresh RandomKey is assigned.
func (c *Chron[T]) Insert(cursor Cursor, atom T, key ...Key) *Chron[T] {
	target, ok := c.prevTo(cursor)
	if !ok {
		logger.Tracef("insert: cursor anchor unresolved, no-op")
		return c
	}

	k := RandomKey()
	if len(key) > 0 {
		k = key[0]
	}

	newIndex := c.log.Length()
	newEntry := Entry[T]{
		Index:  newIndex,
		Key:    k,
		Former: target.Index,
		Latter: target.Latter,
		atom:   atom,
	}

	log2 := c.log
	target.Latter = newIndex
	log2 = log2.Set(target.Index, target)

	if newEntry.Latter != -1 {
		if oldLatter, ok := log2.Get(newEntry.Latter); ok {
			oldLatter.Former = newIndex
			log2 = log2.Set(newEntry.Latter, oldLatter)
		}
	}
	log2 = log2.Append(newEntry)

	newLast := c.last
	if target.Index == c.last && newEntry.Latter == -1 {
		newLast = newIndex
	}

	c.keyIndex[k] = newIndex
	return &Chron[T]{log: log2, last: newLast, keyIndex: c.keyIndex}
}

// Delete marks entry as DELETED, preserving its links. It is a no-op
// (idempotent, returns the receiver) if the entry is already deleted
// or its (index,key) identity no longer matches the current log.
func (c *Chron[T]) Delete(entry Entry[T]) *Chron[T] {
	cur, ok := c.log.Get(entry.Index)
	if !ok || cur.Key != entry.Key || cur.deleted {
		logger.Tracef("delete: entry %d/%d stale or already deleted, no-op", entry.Index, entry.Key)
		return c
	}
	cur.deleted = true
	return &Chron[T]{log: c.log.Set(entry.Index, cur), last: c.last, keyIndex: c.keyIndex}
}
