// Package world implements the layered, mutable-over-immutable MVCC
// state engine: World/Model/Slot, locking, commit-time conflict
// detection, and the flat LookupCache that keeps deep ancestor reads
// O(1). It generalizes mjm918-tur's pkg/mvcc (Transaction,
// VersionedStore, ConflictDetector, VersionChain) from a single
// key/value store into a tree of parent-linked worlds, each holding
// many Models, each with many slots.
package world

import "errors"

// ErrUnknownRef is returned when a Ref cannot be resolved in any
// ancestor world.
var ErrUnknownRef = errors.New("world: unknown ref")

// ErrLockedWrite is returned by WriteSlot against a locked world.
var ErrLockedWrite = errors.New("world: write to locked world")

// ErrTypeMismatch is returned when a slot assignment violates its
// declared type constraint.
var ErrTypeMismatch = errors.New("world: slot type mismatch")

// ErrCommitConflict is returned when Commit finds that a cached read
// no longer matches the parent's current value.
var ErrCommitConflict = errors.New("world: commit conflict")
