package world

import (
	"errors"
	"testing"
)

func isString(v Value) bool {
	_, ok := v.(string)
	return ok
}

func isInt(v Value) bool {
	_, ok := v.(int)
	return ok
}

func pointSchema() *Schema {
	return &Schema{
		ClassName: "Point",
		Names:     []string{"x", "y", "label"},
		Types:     []SlotType{isInt, isInt, isString},
	}
}

func TestCreateAndReadWriteSlot(t *testing.T) {
	root := NewRoot()
	class := pointSchema()

	m, err := root.Create(class)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := m.WriteSlot(0, 3); err != nil {
		t.Fatalf("WriteSlot: %v", err)
	}
	if err := m.WriteSlot(1, 4); err != nil {
		t.Fatalf("WriteSlot: %v", err)
	}

	v, err := m.ReadSlot(0)
	if err != nil || v != 3 {
		t.Fatalf("ReadSlot(0) = %v, %v, want 3, nil", v, err)
	}
	if !m.Modified() {
		t.Fatalf("expected Modified() true after writes")
	}
}

func TestWriteSlotRejectsTypeMismatch(t *testing.T) {
	root := NewRoot()
	m, _ := root.Create(pointSchema())
	if err := m.WriteSlot(2, 42); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("WriteSlot type mismatch = %v, want ErrTypeMismatch", err)
	}
}

func TestReadSlotResolvesThroughAncestors(t *testing.T) {
	root := NewRoot()
	class := pointSchema()
	m, _ := root.Create(class)
	_ = m.WriteSlot(0, 10)
	_ = m.WriteSlot(1, 20)
	root.Lock()

	child := root.Advance()
	bound, err := child.Bind(m.Ref)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	v, err := bound.ReadSlot(0)
	if err != nil || v != 10 {
		t.Fatalf("ReadSlot(0) via ancestor = %v, %v, want 10, nil", v, err)
	}

	grandchild := child.Advance()
	gbound, err := grandchild.Bind(m.Ref)
	if err != nil {
		t.Fatalf("Bind from grandchild: %v", err)
	}
	v, err = gbound.ReadSlot(1)
	if err != nil || v != 20 {
		t.Fatalf("ReadSlot(1) via two ancestors = %v, %v, want 20, nil", v, err)
	}
}

func TestBindUnknownRefFails(t *testing.T) {
	root := NewRoot()
	child := root.Advance()
	if _, err := child.Bind(RefOf("ghost")); !errors.Is(err, ErrUnknownRef) {
		t.Fatalf("Bind unknown ref = %v, want ErrUnknownRef", err)
	}
}

func TestWriteSlotRejectedWhenLocked(t *testing.T) {
	root := NewRoot()
	m, _ := root.Create(pointSchema())
	root.Lock()
	if err := m.WriteSlot(0, 1); !errors.Is(err, ErrLockedWrite) {
		t.Fatalf("WriteSlot on locked world = %v, want ErrLockedWrite", err)
	}
}

func TestCreateRejectedWhenLocked(t *testing.T) {
	root := NewRoot()
	root.Lock()
	if _, err := root.Create(pointSchema()); !errors.Is(err, ErrLockedWrite) {
		t.Fatalf("Create on locked world = %v, want ErrLockedWrite", err)
	}
}

func TestCommitMergesWritesIntoParent(t *testing.T) {
	root := NewRoot()
	class := pointSchema()
	m, _ := root.Create(class)
	_ = m.WriteSlot(0, 1)
	root.Lock()

	child := root.Advance()
	bound, _ := child.Bind(m.Ref)
	_ = bound.WriteSlot(1, 99)

	if err := child.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	root.Unlock()
	v, err := m.ReadSlot(1)
	if err != nil || v != 99 {
		t.Fatalf("parent slot after commit = %v, %v, want 99, nil", v, err)
	}
}

func TestCommitDetectsConflict(t *testing.T) {
	root := NewRoot()
	class := pointSchema()
	m, _ := root.Create(class)
	_ = m.WriteSlot(0, 1)
	root.Lock()

	child := root.Advance()
	bound, _ := child.Bind(m.Ref)
	if _, err := bound.ReadSlot(0); err != nil {
		t.Fatalf("ReadSlot: %v", err)
	}

	root.Unlock()
	if err := m.WriteSlot(0, 2); err != nil {
		t.Fatalf("WriteSlot on root after unlock: %v", err)
	}
	root.Lock()

	if err := child.Commit(); !errors.Is(err, ErrCommitConflict) {
		t.Fatalf("Commit after concurrent parent write = %v, want ErrCommitConflict", err)
	}
}

func TestUnlockInvalidatesDescendantCaches(t *testing.T) {
	root := NewRoot()
	child := root.Advance()
	grandchild := child.Advance()

	// Simulate caches having been built on both descendants, as
	// buildLookupCache would past the threshold.
	child.cache = &lookupCache{entries: map[string]*cacheEntry{}}
	grandchild.cache = &lookupCache{entries: map[string]*cacheEntry{}}

	root.Lock()
	root.Unlock()

	if child.cache != nil {
		t.Fatalf("expected child cache cleared after ancestor unlock")
	}
	if grandchild.cache != nil {
		t.Fatalf("expected grandchild cache cleared after ancestor unlock")
	}
}

func TestLookupCacheBuildsPastThreshold(t *testing.T) {
	root := NewRoot()
	class := pointSchema()
	m, _ := root.Create(class)
	_ = m.WriteSlot(0, 1)
	root.Lock()

	cur := root
	for i := 0; i < lookupCacheThreshold; i++ {
		cur = cur.Advance()
		cur.Lock()
	}

	if cur.cache == nil {
		t.Fatalf("expected a lookup cache to have been built once the ancestor chain exceeded the threshold")
	}
	entry, ok := cur.cache.entries[m.Ref.String()]
	if !ok {
		t.Fatalf("expected lookup cache to contain %s", m.Ref)
	}
	if entry.slots[0] != 1 {
		t.Fatalf("cached slot 0 = %v, want 1", entry.slots[0])
	}
}

func TestDetachRemovesFromParentChildren(t *testing.T) {
	root := NewRoot()
	child := root.Advance()
	if _, ok := root.children[child]; !ok {
		t.Fatalf("expected child registered in parent.children")
	}
	child.Detach()
	if _, ok := root.children[child]; ok {
		t.Fatalf("expected child removed from parent.children after Detach")
	}
}

func TestReadSlotReturnsNoneForNeverWrittenSlot(t *testing.T) {
	root := NewRoot()
	m, _ := root.Create(pointSchema())
	v, err := m.ReadSlot(2)
	if err != nil {
		t.Fatalf("ReadSlot: %v", err)
	}
	if !IsNone(v) {
		t.Fatalf("ReadSlot of untouched slot = %v, want None", v)
	}
}
