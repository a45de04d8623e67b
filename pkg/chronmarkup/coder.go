package chronmarkup

import (
	"fmt"

	"github.com/wavecollab/wave/pkg/chron"
	"github.com/wavecollab/wave/pkg/trie"
	"github.com/wavecollab/wave/pkg/wirecodec"
)

// wireTag is the wirecodec type tag every Markup instantiation shares.
const wireTag = "chronmarkup:markup"

var coderRegistered bool

// RegisterCoder wires Markup[D, T] into the wirecodec type registry
// as a Coder shell under the "chronmarkup:markup" tag. It is a no-op
// if a Markup coder was already registered in this process, since an
// application may legitimately call this more than once.
//
// Call it once for the concrete (data, atom) type pair your
// application stores: pkg/textmodel calls RegisterCoder[string,
// rune]() because its Text class's markup slot anchors string-keyed
// marks to a Chron of runes.
func RegisterCoder[D comparable, T any]() {
	if coderRegistered {
		return
	}
	coderRegistered = true
	wirecodec.Register(wireTag, func() wirecodec.Coder { return &Markup[D, T]{} })
}

// WireTag implements wirecodec.Coder.
func (m *Markup[D, T]) WireTag() string { return wireTag }

// WireFields flattens the marker vector to [noneCount, count, then 6
// fields per entry: data, head key, head offset, tail key, tail
// offset, present]. byData is not written; it is fully re-derivable
// from the marker entries themselves.
func (m *Markup[D, T]) WireFields() []wirecodec.Value {
	n := m.markers.Length()
	fields := make([]wirecodec.Value, 0, 2+6*n)
	fields = append(fields, int64(m.noneCount), int64(n))
	for _, e := range m.markers.All() {
		headKey, headOffset := encodeCursor(e.rng.Head)
		tailKey, tailOffset := encodeCursor(e.rng.Tail)
		fields = append(fields, boxData(e.data), headKey, headOffset, tailKey, tailOffset, e.present)
	}
	return fields
}

// WireSetFields rebuilds the marker vector and replays it to rebuild
// byData, mirroring the way Mark itself assigns byData[data] the
// first time data is seen and never removes the entry on Unmark.
func (m *Markup[D, T]) WireSetFields(fields []wirecodec.Value) error {
	if len(fields) < 2 {
		return fmt.Errorf("chronmarkup: wire record has %d fields, want at least 2", len(fields))
	}
	noneCount, ok := fields[0].(int64)
	if !ok {
		return fmt.Errorf("chronmarkup: field 0 (noneCount) is not an int64")
	}
	count, ok := fields[1].(int64)
	if !ok {
		return fmt.Errorf("chronmarkup: field 1 (count) is not an int64")
	}
	if want := 2 + 6*int(count); len(fields) != want {
		return fmt.Errorf("chronmarkup: wire record has %d fields, want %d for %d entries", len(fields), want, count)
	}

	markers := trie.Empty[markEntry[D]]()
	byData := make(map[D]int, count)
	for i := 0; i < int(count); i++ {
		base := 2 + 6*i
		data, err := unboxData[D](fields[base])
		if err != nil {
			return fmt.Errorf("chronmarkup: entry %d: %w", i, err)
		}
		headKey, ok := fields[base+1].(int64)
		if !ok {
			return fmt.Errorf("chronmarkup: entry %d head key is not an int64", i)
		}
		headOffset, ok := fields[base+2].(int64)
		if !ok {
			return fmt.Errorf("chronmarkup: entry %d head offset is not an int64", i)
		}
		tailKey, ok := fields[base+3].(int64)
		if !ok {
			return fmt.Errorf("chronmarkup: entry %d tail key is not an int64", i)
		}
		tailOffset, ok := fields[base+4].(int64)
		if !ok {
			return fmt.Errorf("chronmarkup: entry %d tail offset is not an int64", i)
		}
		present, ok := fields[base+5].(bool)
		if !ok {
			return fmt.Errorf("chronmarkup: entry %d present flag is not a bool", i)
		}

		markers = markers.Append(markEntry[D]{
			data: data,
			rng: chron.Range{
				Head: decodeCursor(headKey, headOffset),
				Tail: decodeCursor(tailKey, tailOffset),
			},
			present: present,
		})
		byData[data] = i
	}

	m.markers = markers
	m.byData = byData
	m.noneCount = int(noneCount)
	return nil
}

// encodeCursor flattens a cursor to its wire-stable parts: the
// anchor key and the -1/+1 offset. The unexported entryIndex fast
// path is never carried across the wire; a decoded cursor is built by
// AnchorKey and so always resolves by key search.
func encodeCursor(c chron.Cursor) (int64, int64) {
	return int64(c.Key()), int64(c.Offset())
}

func decodeCursor(key, offset int64) chron.Cursor {
	return chron.AnchorKey(chron.Key(key), int8(offset))
}

// boxData converts a marker's data value to a wire-safe Value. string
// (the data type this codebase actually stores), int64, bool and
// float64 are recognized; anything else is passed through unconverted
// and left for wirecodec's own encoder to reject with "not encodable".
func boxData[D comparable](data D) wirecodec.Value {
	switch v := any(data).(type) {
	case string:
		return v
	case int64:
		return v
	case bool:
		return v
	case float64:
		return v
	default:
		return data
	}
}

// unboxData reverses boxData, dispatching on D's zero value to know
// which wire representation to expect.
func unboxData[D comparable](v wirecodec.Value) (D, error) {
	var zero D
	switch any(zero).(type) {
	case string:
		s, ok := v.(string)
		if !ok {
			return zero, fmt.Errorf("wire data %T is not a string", v)
		}
		return any(s).(D), nil
	case int64:
		n, ok := v.(int64)
		if !ok {
			return zero, fmt.Errorf("wire data %T is not an int64", v)
		}
		return any(n).(D), nil
	case bool:
		b, ok := v.(bool)
		if !ok {
			return zero, fmt.Errorf("wire data %T is not a bool", v)
		}
		return any(b).(D), nil
	case float64:
		f, ok := v.(float64)
		if !ok {
			return zero, fmt.Errorf("wire data %T is not a float64", v)
		}
		return any(f).(D), nil
	default:
		return zero, fmt.Errorf("data type %T has no wire decoding", zero)
	}
}
