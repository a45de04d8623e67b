package chron

import (
	"fmt"

	"github.com/wavecollab/wave/pkg/trie"
	"github.com/wavecollab/wave/pkg/wirecodec"
)

// wireTag is the wirecodec type tag every Chron instantiation shares.
// An application registers whichever concrete atom type it actually
// uses via RegisterCoder; this package only ever sees one T in
// practice (rune, from pkg/textmodel), but the tag itself carries no
// type information so decode doesn't need to know T up front.
const wireTag = "chron:chron"

var coderRegistered bool

// RegisterCoder wires Chron[T] into the wirecodec type registry as a
// Coder shell under the "chron:chron" tag. It is a no-op if a Chron
// coder was already registered in this process, since an application
// may legitimately call this more than once (once per test, or once
// per registry a caller builds).
//
// Call it once for the concrete atom type your application stores:
// pkg/textmodel calls RegisterCoder[rune]() because its Text class's
// chron slot only ever holds codepoints.
func RegisterCoder[T any]() {
	if coderRegistered {
		return
	}
	coderRegistered = true
	wirecodec.Register(wireTag, func() wirecodec.Coder { return &Chron[T]{} })
}

// WireTag implements wirecodec.Coder.
func (c *Chron[T]) WireTag() string { return wireTag }

// WireFields flattens the log to [last, count, then 6 fields per
// entry: index, key, former, latter, deleted, atom]. index is
// redundant with position (entries are always appended in order) but
// is written anyway so WireSetFields can detect a corrupt stream
// instead of silently misreading it.
func (c *Chron[T]) WireFields() []wirecodec.Value {
	n := c.log.Length()
	fields := make([]wirecodec.Value, 0, 2+6*n)
	fields = append(fields, int64(c.last), int64(n))
	for i, e := range c.log.All() {
		fields = append(fields,
			int64(i), int64(e.Key), int64(e.Former), int64(e.Latter),
			e.deleted, boxAtom(e.atom))
	}
	return fields
}

// WireSetFields rebuilds the log vector and the derived keyIndex side
// index entry by entry, in the order WireFields wrote them.
func (c *Chron[T]) WireSetFields(fields []wirecodec.Value) error {
	if len(fields) < 2 {
		return fmt.Errorf("chron: wire record has %d fields, want at least 2", len(fields))
	}
	last, ok := fields[0].(int64)
	if !ok {
		return fmt.Errorf("chron: field 0 (last) is not an int64")
	}
	count, ok := fields[1].(int64)
	if !ok {
		return fmt.Errorf("chron: field 1 (count) is not an int64")
	}
	if want := 2 + 6*int(count); len(fields) != want {
		return fmt.Errorf("chron: wire record has %d fields, want %d for %d entries", len(fields), want, count)
	}

	log := trie.Empty[Entry[T]]()
	keyIndex := make(map[Key]int, count)
	for i := 0; i < int(count); i++ {
		base := 2 + 6*i
		idx, ok := fields[base].(int64)
		if !ok || int(idx) != i {
			return fmt.Errorf("chron: entry %d has a corrupt or out-of-order index field", i)
		}
		key, ok := fields[base+1].(int64)
		if !ok {
			return fmt.Errorf("chron: entry %d key is not an int64", i)
		}
		former, ok := fields[base+2].(int64)
		if !ok {
			return fmt.Errorf("chron: entry %d former is not an int64", i)
		}
		latter, ok := fields[base+3].(int64)
		if !ok {
			return fmt.Errorf("chron: entry %d latter is not an int64", i)
		}
		deleted, ok := fields[base+4].(bool)
		if !ok {
			return fmt.Errorf("chron: entry %d deleted flag is not a bool", i)
		}
		atom, err := unboxAtom[T](fields[base+5])
		if err != nil {
			return fmt.Errorf("chron: entry %d: %w", i, err)
		}

		k := Key(key)
		log = log.Append(Entry[T]{
			Index:   i,
			Key:     k,
			Former:  int(former),
			Latter:  int(latter),
			atom:    atom,
			deleted: deleted,
		})
		keyIndex[k] = i
	}

	c.log = log
	c.last = int(last)
	c.keyIndex = keyIndex
	return nil
}

// boxAtom converts an atom to a wire-safe Value. rune (the atom type
// this codebase actually stores), int64, string, bool and float64 are
// recognized; any other type is passed through unconverted and left
// for wirecodec's own encoder to reject with "not encodable".
func boxAtom[T any](atom T) wirecodec.Value {
	switch v := any(atom).(type) {
	case rune:
		return int64(v)
	case int64:
		return v
	case string:
		return v
	case bool:
		return v
	case float64:
		return v
	default:
		return atom
	}
}

// unboxAtom reverses boxAtom, dispatching on T's zero value to know
// which wire representation to expect.
func unboxAtom[T any](v wirecodec.Value) (T, error) {
	var zero T
	switch any(zero).(type) {
	case rune:
		n, ok := v.(int64)
		if !ok {
			return zero, fmt.Errorf("wire atom %T is not an int64 rune", v)
		}
		return any(rune(n)).(T), nil
	case int64:
		n, ok := v.(int64)
		if !ok {
			return zero, fmt.Errorf("wire atom %T is not an int64", v)
		}
		return any(n).(T), nil
	case string:
		s, ok := v.(string)
		if !ok {
			return zero, fmt.Errorf("wire atom %T is not a string", v)
		}
		return any(s).(T), nil
	case bool:
		b, ok := v.(bool)
		if !ok {
			return zero, fmt.Errorf("wire atom %T is not a bool", v)
		}
		return any(b).(T), nil
	case float64:
		f, ok := v.(float64)
		if !ok {
			return zero, fmt.Errorf("wire atom %T is not a float64", v)
		}
		return any(f).(T), nil
	default:
		return zero, fmt.Errorf("atom type %T has no wire decoding", zero)
	}
}
