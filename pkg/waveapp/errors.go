// Package waveapp implements the App / WaveApp layer: a stack of
// World snapshots with undo/redo, wave-merge coalescing of rapid
// same-kind mutations into a single undo step, and a synchronous
// mutation stream watchers subscribe to. It sits directly atop
// pkg/world the way mjm918-tur's pkg/mvcc sits atop a bare key/value
// store, adding the transactional stack discipline the bare World
// type does not itself keep.
package waveapp

import "errors"

// ErrUnknownClass is returned when Create or Call names a class with
// no registered ClassDef.
var ErrUnknownClass = errors.New("waveapp: unknown class")

// ErrUnknownMethod is returned when Call names a method the class's
// ClassDef never registered.
var ErrUnknownMethod = errors.New("waveapp: unknown method")
