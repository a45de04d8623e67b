package world

import "fmt"

// World is a layered, mutable-over-immutable store of Models. A
// child world may shadow a parent's Model by holding a local version
// with its own read/write snapshots; everything else resolves by
// walking up the parent chain.
type World struct {
	parent    *World
	models    map[string]*Model
	keyStream *keyStream
	children  map[*World]struct{}
	locked    bool
	cache     *lookupCache
}

// NewRoot returns a fresh, unlocked root world with its own
// keyStream.
func NewRoot() *World {
	return &World{
		models:    map[string]*Model{},
		keyStream: newKeyStream(),
		children:  map[*World]struct{}{},
	}
}

// Advance returns a new, unlocked child of w, sharing w's keyStream.
// It does not lock w itself — callers that want the "push" half of
// the app-level advance discipline call Lock on w first.
func (w *World) Advance() *World {
	child := &World{
		parent:    w,
		models:    map[string]*Model{},
		keyStream: w.keyStream,
		children:  map[*World]struct{}{},
	}
	w.children[child] = struct{}{}
	return child
}

// Locked reports whether w currently rejects writes.
func (w *World) Locked() bool { return w.locked }

// Lock marks w immutable and opportunistically builds a LookupCache
// if the chain of uncached ancestors above (and including) w exceeds
// the threshold.
func (w *World) Lock() {
	w.locked = true
	w.buildLookupCache()
}

// Unlock clears w's own lock and cache, and invalidates (clears,
// without relocking) the cache of every descendant reachable from w —
// a cache merged through w is no longer trustworthy once w can be
// written again.
func (w *World) Unlock() {
	w.locked = false
	w.cache = nil
	for child := range w.children {
		child.invalidateCache()
	}
}

func (w *World) invalidateCache() {
	w.cache = nil
	for child := range w.children {
		child.invalidateCache()
	}
}

// Detach removes w from its parent's children set, intentionally
// bypassing the parent's lock: dropping an old branch of history must
// work even though the parent is locked.
func (w *World) Detach() {
	if w.parent != nil {
		delete(w.parent.children, w)
	}
}

// Create materializes a new Model of class in w, identified by a
// freshly minted Ref from the shared keyStream.
func (w *World) Create(class *Schema) (*Model, error) {
	if w.locked {
		return nil, fmt.Errorf("%w: create in %s", ErrLockedWrite, class.ClassName)
	}
	ref := RefOf(w.keyStream.NextKey())
	m := newModel(ref, class, w)
	w.models[ref.String()] = m
	return m, nil
}

// Bind returns the Model ref is bound to within w: the local copy if
// present, else a walk up parents that materializes a child-local
// shadow (empty reads/writes) in w on first resolution, else
// ErrUnknownRef if no ancestor ever held ref.
func (w *World) Bind(ref Ref) (*Model, error) {
	if m, ok := w.models[ref.String()]; ok {
		return m, nil
	}
	if w.parent == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRef, ref)
	}
	parentModel, err := w.parent.Bind(ref)
	if err != nil {
		return nil, err
	}
	shadow := parentModel.shadow(w)
	w.models[ref.String()] = shadow
	return shadow, nil
}

// getSlot is the ancestor-chain half of Model.ReadSlot: consult this
// world's cache, then its own local model, then recurse to the
// parent.
func (w *World) getSlot(ref Ref, i int) Value {
	if w.cache != nil {
		if e, ok := w.cache.entries[ref.String()]; ok && i < len(e.slots) {
			return e.slots[i]
		}
	}
	if m, ok := w.models[ref.String()]; ok {
		if !IsNone(m.writes[i]) {
			return m.writes[i]
		}
		if !IsNone(m.reads[i]) {
			return m.reads[i]
		}
	}
	if w.parent == nil {
		return None
	}
	return w.parent.getSlot(ref, i)
}

// HasModifiedModel reports whether w holds a local Model for ref with
// at least one pending write — the predicate WaveApp's watch uses to
// decide whether a published world is relevant to a given ref.
func (w *World) HasModifiedModel(ref Ref) bool {
	m, ok := w.models[ref.String()]
	return ok && m.Modified()
}

// Commit validates that every local model's cached reads still match
// the parent's current values, then merges writes into the parent
// (creating a parent-level shadow Model if one doesn't exist yet) and
// propagates reads upward wherever the parent had none cached. It
// fails with ErrCommitConflict, leaving both worlds unchanged, on the
// first mismatch.
func (w *World) Commit() error {
	if w.parent == nil {
		return fmt.Errorf("world: cannot commit the root world")
	}
	for id, m := range w.models {
		for i := 0; i < m.Class.SlotCount(); i++ {
			if IsNone(m.reads[i]) {
				continue
			}
			current := w.parent.getSlot(m.Ref, i)
			if !slotsEqual(current, m.reads[i]) {
				return fmt.Errorf("%w: %s.%s slot %d", ErrCommitConflict, m.Class.ClassName, id, i)
			}
		}
	}

	for id, m := range w.models {
		parentModel, ok := w.parent.models[id]
		if !ok {
			parentModel = newModel(m.Ref, m.Class, w.parent)
			w.parent.models[id] = parentModel
		}
		for i := 0; i < m.Class.SlotCount(); i++ {
			if !IsNone(m.writes[i]) {
				parentModel.writes[i] = m.writes[i]
			} else if !IsNone(m.reads[i]) && IsNone(parentModel.reads[i]) {
				parentModel.reads[i] = m.reads[i]
			}
		}
	}
	return nil
}

// slotsEqual compares two slot values: reference equality for Refs,
// == otherwise.
func slotsEqual(a, b Value) bool {
	ar, aok := a.(Ref)
	br, bok := b.(Ref)
	if aok || bok {
		return aok && bok && ar == br
	}
	return a == b
}
