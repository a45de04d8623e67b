package chron

import "errors"

// ErrCorruptAccess is returned when code reads the atom of a deleted
// entry directly. Cursors and ranges are expected to outlive their
// anchors during concurrent edits and degrade to silent no-ops; this
// error is reserved for callers that bypass that and touch a tombstone
// directly.
var ErrCorruptAccess = errors.New("chron: corrupt access of deleted entry")
