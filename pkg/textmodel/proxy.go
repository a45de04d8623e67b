package textmodel

import (
	"fmt"

	"github.com/wavecollab/wave/pkg/chron"
	"github.com/wavecollab/wave/pkg/chronmarkup"
	"github.com/wavecollab/wave/pkg/waveapp"
	"github.com/wavecollab/wave/pkg/world"
)

// Text is the proxy a caller holds: a thin binding of an App and a
// Ref, standing in for the spec's generated proxy objects (DESIGN
// NOTES, Proxies) that dispatch property access to get(ref, property)
// and method calls to call(ref, name, args).
type Text struct {
	App *waveapp.App
	Ref world.Ref
}

// New creates a fresh Text document and returns a proxy bound to it.
func New(app *waveapp.App) (*Text, error) {
	ref, err := app.Create(ClassName, nil)
	if err != nil {
		return nil, err
	}
	return &Text{App: app, Ref: ref}, nil
}

// Bind wraps an existing ref as a Text proxy, without creating
// anything — the counterpart to a caller that already holds a Ref for
// a Text Model (e.g. received over the wire).
func Bind(app *waveapp.App, ref world.Ref) *Text {
	return &Text{App: app, Ref: ref}
}

// Head returns the cursor bracketing the document's start.
func (t *Text) Head() (chron.Cursor, error) {
	v, err := t.App.Call(t.Ref, "head", nil, waveapp.WaveOptions{})
	if err != nil {
		return chron.Cursor{}, err
	}
	return v.(chron.Cursor), nil
}

// Tail returns the cursor bracketing the document's end.
func (t *Text) Tail() (chron.Cursor, error) {
	v, err := t.App.Call(t.Ref, "tail", nil, waveapp.WaveOptions{})
	if err != nil {
		return chron.Cursor{}, err
	}
	return v.(chron.Cursor), nil
}

// Codepoints returns the document's current live text.
func (t *Text) Codepoints() (string, error) {
	v, err := t.App.Call(t.Ref, "codepoints", nil, waveapp.WaveOptions{})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Insert splices text at cursor, coalescing with prior inserts per
// opts' wave-merge tag/rate (pass waveapp.WaveOptions{} for "always a
// fresh undo step"). It returns the range the inserted text now
// occupies.
func (t *Text) Insert(cursor chron.Cursor, text string, opts waveapp.WaveOptions) (chron.Range, error) {
	v, err := t.App.Call(t.Ref, "insert", []world.Value{cursor, text}, opts)
	if err != nil {
		return chron.Range{}, err
	}
	return v.(chron.Range), nil
}

// DeleteRange marks every live entry within rng as deleted. Cursors
// bracketing the range remain resolvable afterward.
func (t *Text) DeleteRange(rng chron.Range, opts waveapp.WaveOptions) error {
	_, err := t.App.Call(t.Ref, "deleteRange", []world.Value{rng}, opts)
	return err
}

// Mark attaches a typed marker named data to rng, replacing any
// existing range already marked with that same data.
func (t *Text) Mark(rng chron.Range, data string) error {
	_, err := t.App.Call(t.Ref, "mark", []world.Value{rng, data}, waveapp.WaveOptions{})
	return err
}

// Unmark removes data's marker, if any.
func (t *Text) Unmark(data string) error {
	_, err := t.App.Call(t.Ref, "unmark", []world.Value{data}, waveapp.WaveOptions{})
	return err
}

// RangeOf returns the range currently marked with data, and whether
// one exists.
func (t *Text) RangeOf(data string) (chron.Range, bool, error) {
	v, err := t.App.Call(t.Ref, "rangeOf", []world.Value{data}, waveapp.WaveOptions{})
	if err != nil {
		return chron.Range{}, false, err
	}
	lookup := v.(RangeLookup)
	return lookup.Range, lookup.Found, nil
}

// chronAndMarkup fetches the raw slot values for Enumerate, bypassing
// Call since enumeration is read-only and needs the live Chron and
// Markup objects directly rather than a Value-boxed result.
func (t *Text) chronAndMarkup() (*chron.Chron[rune], *chronmarkup.Markup[string, rune], error) {
	top := t.App.Top()
	m, err := top.Bind(t.Ref)
	if err != nil {
		return nil, nil, err
	}
	c, err := readChron(m)
	if err != nil {
		return nil, nil, err
	}
	mk, err := readMarkup(m)
	if err != nil {
		return nil, nil, err
	}
	return c, mk, nil
}

// Enumerate runs ChronMarkup's boundary sweep over this Text's current
// Chron and Markup, within rng (or the whole document if rng is nil),
// delivering Add/Delete/Covered events to set.
func (t *Text) Enumerate(set chronmarkup.MarkerSet[string], rng *chron.Range) (func(yield func(chron.Entry[rune]) bool), error) {
	c, mk, err := t.chronAndMarkup()
	if err != nil {
		return nil, fmt.Errorf("textmodel: enumerate: %w", err)
	}
	return chronmarkup.Entries(c, mk, set, rng), nil
}
