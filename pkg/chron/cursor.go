package chron

// Cursor is a cross-version-stable position in a Chron: a pair
// (anchor, offset) where offset -1 means "just before anchor" and +1
// means "just after anchor". The anchor is either a resolved entry
// (entryIndex >= 0, used as a fast path) or a bare key (entryIndex ==
// -1, forcing resolution by key search) — both carry the Key so a
// Cursor stays valid even if the anchor entry has since been replaced
// by a deletion.
type Cursor struct {
	entryIndex int
	key        Key
	offset     int8
}

// AnchorKey builds a cursor anchored to a bare key, as happens when a
// caller only has the identifier and not a resolved Entry (e.g. after
// a round trip through the wire format).
func AnchorKey(key Key, offset int8) Cursor {
	return Cursor{entryIndex: -1, key: key, offset: offset}
}

// Key returns the anchor's key.
func (c Cursor) Key() Key { return c.key }

// Offset returns -1 ("just before anchor") or +1 ("just after anchor").
func (c Cursor) Offset() int8 { return c.offset }

// Equal compares cursors by anchor key and offset — the parts that are
// stable across Chron versions.
func (c Cursor) Equal(o Cursor) bool {
	return c.key == o.key && c.offset == o.offset
}

// Range is a pair of cursors bracketing a span of a Chron. A range is
// collapsed when Head and Tail are equal.
type Range struct {
	Head Cursor
	Tail Cursor
}

// Collapsed reports whether this range brackets no span at all.
func (r Range) Collapsed() bool {
	return r.Head.Equal(r.Tail)
}
