// Package textmodel is the reference Model: a collaborative plain-text
// document built directly from Chron, ChronMarkup, World, and WaveApp
// — the end-to-end wiring spec.md §8's scenarios (S1-S3) describe, and
// the shape any other Model subclass author would follow.
package textmodel

import (
	"fmt"
	"strings"

	"github.com/wavecollab/wave/pkg/chron"
	"github.com/wavecollab/wave/pkg/chronmarkup"
	"github.com/wavecollab/wave/pkg/model"
	"github.com/wavecollab/wave/pkg/waveapp"
	"github.com/wavecollab/wave/pkg/world"
)

// ClassName is the registered name Text instances share across
// worlds and in the wirecodec type registry.
const ClassName = "Text"

const (
	slotChron  = 0
	slotMarkup = 1
)

func isChron(v world.Value) bool {
	_, ok := v.(*chron.Chron[rune])
	return ok
}

func isMarkup(v world.Value) bool {
	_, ok := v.(*chronmarkup.Markup[string, rune])
	return ok
}

// RangeLookup is the result of the "rangeOf" method: the pure-method
// contract only returns a single Value, so a found flag rides
// alongside the Range rather than as a second return.
type RangeLookup struct {
	Range chron.Range
	Found bool
}

// Register declares the Text class's slots and methods and adds it to
// reg. It also wires *chron.Chron[rune] and
// *chronmarkup.Markup[string, rune] into the wirecodec type registry,
// since those are the types Text's slots actually hold. Call
// model.RegisterCoder(ClassName) separately (once, at startup) to
// additionally register the Text ModelRecord shell itself — together
// the two make a Text instance (chron, markup, and all) round-trip
// through pkg/snapshot.
func Register(reg *waveapp.Registry) *waveapp.ClassDef {
	chron.RegisterCoder[rune]()
	chronmarkup.RegisterCoder[string, rune]()

	return model.NewClass(ClassName).
		Slot("chron", isChron).
		Slot("markup", isMarkup).
		Construct(func(m *world.Model, args []world.Value) error {
			if err := m.WriteSlot(slotChron, chron.New[rune]()); err != nil {
				return err
			}
			return m.WriteSlot(slotMarkup, chronmarkup.New[string, rune]())
		}).
		Pure("head", func(m *world.Model, args []world.Value) (world.Value, error) {
			c, err := readChron(m)
			if err != nil {
				return world.None, err
			}
			return c.Head(), nil
		}).
		Pure("tail", func(m *world.Model, args []world.Value) (world.Value, error) {
			c, err := readChron(m)
			if err != nil {
				return world.None, err
			}
			return c.Tail(), nil
		}).
		Pure("codepoints", func(m *world.Model, args []world.Value) (world.Value, error) {
			c, err := readChron(m)
			if err != nil {
				return world.None, err
			}
			return collectString(c), nil
		}).
		Pure("rangeOf", func(m *world.Model, args []world.Value) (world.Value, error) {
			mk, err := readMarkup(m)
			if err != nil {
				return world.None, err
			}
			rng, ok := mk.RangeOf(args[0].(string))
			return RangeLookup{Range: rng, Found: ok}, nil
		}).
		// insert carries the caller's own tag/rate through opts at the
		// Call site; this template is the default used when opts.Tag is
		// empty, coalescing a single cursor's rapid typing into one wave.
		Mutating("insert", "typing:id", 1, func(m *world.Model, args []world.Value) (world.Value, error) {
			cur := args[0].(chron.Cursor)
			text := args[1].(string)
			c, err := readChron(m)
			if err != nil {
				return world.None, err
			}
			head := cur
			for _, r := range text {
				k := chron.RandomKey()
				c = c.Insert(cur, r, k)
				cur = chron.AnchorKey(k, +1)
			}
			if err := m.WriteSlot(slotChron, c); err != nil {
				return world.None, err
			}
			return chron.Range{Head: head, Tail: cur}, nil
		}).
		Mutating("deleteRange", "delete", 1, func(m *world.Model, args []world.Value) (world.Value, error) {
			rng := args[0].(chron.Range)
			c, err := readChron(m)
			if err != nil {
				return world.None, err
			}
			for e := range c.Range(rng) {
				if e.IsDeleted() {
					continue
				}
				c = c.Delete(e)
			}
			return world.None, m.WriteSlot(slotChron, c)
		}).
		Mutating("mark", "mark", 1, func(m *world.Model, args []world.Value) (world.Value, error) {
			rng := args[0].(chron.Range)
			data := args[1].(string)
			mk, err := readMarkup(m)
			if err != nil {
				return world.None, err
			}
			return world.None, m.WriteSlot(slotMarkup, mk.Mark(data, rng))
		}).
		Mutating("unmark", "mark", 1, func(m *world.Model, args []world.Value) (world.Value, error) {
			data := args[0].(string)
			mk, err := readMarkup(m)
			if err != nil {
				return world.None, err
			}
			return world.None, m.WriteSlot(slotMarkup, mk.Unmark(data))
		}).
		Register(reg)
}

func readChron(m *world.Model) (*chron.Chron[rune], error) {
	v, err := m.ReadSlot(slotChron)
	if err != nil {
		return nil, err
	}
	c, ok := v.(*chron.Chron[rune])
	if !ok {
		return nil, fmt.Errorf("textmodel: chron slot holds %T", v)
	}
	return c, nil
}

func readMarkup(m *world.Model) (*chronmarkup.Markup[string, rune], error) {
	v, err := m.ReadSlot(slotMarkup)
	if err != nil {
		return nil, err
	}
	mk, ok := v.(*chronmarkup.Markup[string, rune])
	if !ok {
		return nil, fmt.Errorf("textmodel: markup slot holds %T", v)
	}
	return mk, nil
}

func collectString(c *chron.Chron[rune]) string {
	var b strings.Builder
	for r := range c.Data() {
		b.WriteRune(r)
	}
	return b.String()
}
