package world

import (
	"fmt"
	"strconv"
)

// ErrUnknownClass is returned by Restore when a snapshot names a class
// the caller's registry doesn't recognize.
var ErrUnknownClass = fmt.Errorf("world: unknown class")

// ModelSnapshot is a flattened view of one Model's effective state:
// the class it belongs to, its identity, and the current resolved
// value of every slot. It is the unit pkg/snapshot and the wire
// serializer persist or transport — a World's live structure (parent
// chain, locks, caches) never crosses that boundary, only the state a
// Model's slots currently resolve to.
type ModelSnapshot struct {
	Ref       Ref
	ClassName string
	Slots     []Value
}

// Snapshot flattens every Model visible from w — w's own Models plus
// whatever its ancestor chain still holds — into one slice, each slot
// resolved exactly as ReadSlot would resolve it from w. This is the
// "collapse the layered stack into one transportable view" step a
// caller takes before handing a World to the serializer or to
// pkg/snapshot, independent of Flatten (which merges layers into the
// live stack itself rather than producing a standalone copy).
func (w *World) Snapshot() []ModelSnapshot {
	seen := map[string]*Model{}
	for cur := w; cur != nil; cur = cur.parent {
		for id, m := range cur.models {
			if _, ok := seen[id]; !ok {
				seen[id] = m
			}
		}
	}
	out := make([]ModelSnapshot, 0, len(seen))
	for id, m := range seen {
		slots := make([]Value, m.Class.SlotCount())
		for i := range slots {
			slots[i] = w.getSlot(RefOf(id), i)
		}
		out = append(out, ModelSnapshot{Ref: m.Ref, ClassName: m.Class.ClassName, Slots: slots})
	}
	return out
}

// Restore rebuilds a fresh, unlocked root World from snapshots,
// looking up each Model's Schema by class name via classOf. Refs are
// preserved exactly as captured so any slot holding a Ref to another
// restored Model keeps resolving, and the root's keyStream is
// advanced past every restored identifier so newly created Models
// never collide with one carried over from the snapshot.
func Restore(snapshots []ModelSnapshot, classOf func(className string) (*Schema, bool)) (*World, error) {
	root := NewRoot()
	for _, snap := range snapshots {
		class, ok := classOf(snap.ClassName)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownClass, snap.ClassName)
		}
		m := newModel(snap.Ref, class, root)
		for i, v := range snap.Slots {
			if i >= len(m.writes) {
				break
			}
			if !IsNone(v) {
				m.writes[i] = v
			}
		}
		root.models[snap.Ref.String()] = m
		root.keyStream.advancePast(snap.Ref.String())
	}
	return root, nil
}

// advancePast bumps the stream forward so NextKey never reissues an
// identifier already in use by a restored Model.
func (k *keyStream) advancePast(id string) {
	n, err := strconv.ParseUint(id, 36, 64)
	if err != nil {
		return
	}
	if n+1 > k.next {
		k.next = n + 1
	}
}
