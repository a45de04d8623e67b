package world

import "fmt"

// Model is a typed key-value record living in exactly one World, with
// read/write snapshots suitable for commit/merge — the unit mjm918-
// tur's pkg/mvcc calls a versioned record, generalized here to a
// fixed, named slot layout instead of a single value per key.
type Model struct {
	Ref    Ref
	Class  *Schema
	world  *World
	reads  []Value
	writes []Value
}

func newModel(ref Ref, class *Schema, w *World) *Model {
	reads := make([]Value, class.SlotCount())
	writes := make([]Value, class.SlotCount())
	for i := range reads {
		reads[i] = None
		writes[i] = None
	}
	return &Model{Ref: ref, Class: class, world: w, reads: reads, writes: writes}
}

// Modified reports whether any slot has a pending local write.
func (m *Model) Modified() bool {
	for _, w := range m.writes {
		if !IsNone(w) {
			return true
		}
	}
	return false
}

// downcast is applied to every value on its way into a Model's reads
// or writes. It returns v unchanged: a Ref is
// already a bare id with no world binding, so there is nothing to
// strip.
func downcast(v Value) Value {
	return v
}

// ReadSlot resolves slot i: the local write if any, else the local
// cached read if any, else a walk up parent worlds via the owning
// World's getSlot, with the result cached into reads[i] on first hit.
func (m *Model) ReadSlot(i int) (Value, error) {
	if i < 0 || i >= len(m.writes) {
		return None, fmt.Errorf("world: slot index %d out of range for %s", i, m.Class.ClassName)
	}
	if !IsNone(m.writes[i]) {
		return m.writes[i], nil
	}
	if !IsNone(m.reads[i]) {
		return m.reads[i], nil
	}
	if m.world.parent == nil {
		return None, nil
	}
	v := m.world.parent.getSlot(m.Ref, i)
	v = downcast(v)
	m.reads[i] = v
	return v, nil
}

// WriteSlot stores v in slot i, enforcing the schema's type
// constraint (if any) and rejecting the write if this Model's world
// is locked.
func (m *Model) WriteSlot(i int, v Value) error {
	if m.world.locked {
		return fmt.Errorf("%w: %s slot %d", ErrLockedWrite, m.Class.ClassName, i)
	}
	if i < 0 || i >= len(m.writes) {
		return fmt.Errorf("world: slot index %d out of range for %s", i, m.Class.ClassName)
	}
	if check := m.Class.Types[i]; check != nil && !IsNone(v) && !check(v) {
		return fmt.Errorf("%w: %s slot %d", ErrTypeMismatch, m.Class.ClassName, i)
	}
	m.writes[i] = downcast(v)
	return nil
}

// shadow returns a fresh, empty-reads/writes Model bound to w,
// sharing this Model's Ref and Class — the "child-local shadow" bind
// materializes when a Model is found only in an ancestor world.
func (m *Model) shadow(w *World) *Model {
	return newModel(m.Ref, m.Class, w)
}
