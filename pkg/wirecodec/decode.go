package wirecodec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// decoder replays the stream a reader produced by Encode. It walks
// the head/body pair twice: predecode allocates a shell per ranked
// object without resolving any pointer that isn't needed for shell
// selection, then decode rewinds and populates every shell's fields,
// by which point every shell — however it's referenced — already
// exists in slots.
type decoder struct {
	heads []Tag
	head  int
	body  *bytes.Reader
	slots []Value
}

func (d *decoder) nextTag() (Tag, error) {
	if d.head >= len(d.heads) {
		return 0, fmt.Errorf("%w: ran out of head tags", ErrMalformed)
	}
	t := d.heads[d.head]
	d.head++
	return t, nil
}

func (d *decoder) readCString() (string, error) {
	var b []byte
	for {
		c, err := d.body.ReadByte()
		if err != nil {
			return "", fmt.Errorf("%w: unterminated string: %v", ErrMalformed, err)
		}
		if c == 0 {
			return string(b), nil
		}
		b = append(b, c)
	}
}

// skipAtomRaw advances past one sub-atom without resolving any
// pointer it carries — the "advance past sub-atoms without
// recursing" step of predecode.
func (d *decoder) skipAtomRaw() error {
	tag, err := d.nextTag()
	if err != nil {
		return err
	}
	switch tag {
	case TagNull, TagUndefined, TagTrue, TagFalse:
		return nil
	case TagPositiveInt, TagNegativeInt, TagPointer:
		_, err := readUvarint(d.body)
		return err
	case TagFloat64:
		if _, err := d.body.Seek(8, io.SeekCurrent); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return nil
	case TagString:
		_, err := d.readCString()
		return err
	default:
		return fmt.Errorf("%w: tag %d is not a valid inline atom", ErrMalformed, tag)
	}
}

func (d *decoder) skipAtomsRaw(n int) error {
	for i := 0; i < n; i++ {
		if err := d.skipAtomRaw(); err != nil {
			return err
		}
	}
	return nil
}

// readTypeNamePointer reads an OBJECT atom's leading type-name child,
// which is always a POINTER to an already-interned string — the tag
// string's artificially high refcount guarantees it was assigned a
// lower rank than any object of its type, so it is always already
// resolved in slots by the time predecode reaches this object.
func (d *decoder) readTypeNamePointer() (string, error) {
	tag, err := d.nextTag()
	if err != nil {
		return "", err
	}
	if tag != TagPointer {
		return "", fmt.Errorf("%w: object type name must be a pointer", ErrMalformed)
	}
	r, err := readUvarint(d.body)
	if err != nil {
		return "", err
	}
	if int(r) >= len(d.slots) {
		return "", fmt.Errorf("%w: type name pointer rank %d out of range", ErrMalformed, r)
	}
	s, ok := d.slots[r].(string)
	if !ok {
		return "", fmt.Errorf("%w: type name slot is not a decoded string", ErrMalformed)
	}
	return s, nil
}

// readAtom reads one sub-atom, fully resolving POINTERs against
// slots. Used during decode (pass 2), when every shell already
// exists.
func (d *decoder) readAtom() (Value, error) {
	tag, err := d.nextTag()
	if err != nil {
		return nil, err
	}
	switch tag {
	case TagNull:
		return nil, nil
	case TagUndefined:
		return Undefined, nil
	case TagTrue:
		return true, nil
	case TagFalse:
		return false, nil
	case TagPositiveInt:
		v, err := readUvarint(d.body)
		if err != nil {
			return nil, err
		}
		return int64(v), nil
	case TagNegativeInt:
		v, err := readUvarint(d.body)
		if err != nil {
			return nil, err
		}
		return -(int64(v) + 1), nil
	case TagFloat64:
		var buf [8]byte
		if _, err := io.ReadFull(d.body, buf[:]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(buf[:])), nil
	case TagString:
		return d.readCString()
	case TagPointer:
		r, err := readUvarint(d.body)
		if err != nil {
			return nil, err
		}
		if int(r) >= len(d.slots) {
			return nil, fmt.Errorf("%w: pointer rank %d out of range", ErrMalformed, r)
		}
		return d.slots[r], nil
	default:
		return nil, fmt.Errorf("%w: tag %d is not a valid inline atom", ErrMalformed, tag)
	}
}

// predecode is decoding pass 1: allocate an uninitialised shell for
// every ranked object, in rank order, without following any pointer
// except an OBJECT atom's own type name (always already resolvable,
// see readTypeNamePointer).
func (d *decoder) predecode(objectCount int) error {
	d.slots = make([]Value, objectCount)
	for rank := 0; rank < objectCount; rank++ {
		tag, err := d.nextTag()
		if err != nil {
			return err
		}
		switch tag {
		case TagString:
			s, err := d.readCString()
			if err != nil {
				return err
			}
			d.slots[rank] = s
		case TagArray:
			n, err := readUvarint(d.body)
			if err != nil {
				return err
			}
			d.slots[rank] = &Array{Items: make([]Value, n)}
			if err := d.skipAtomsRaw(int(n)); err != nil {
				return err
			}
		case TagPlainObject:
			n, err := readUvarint(d.body)
			if err != nil {
				return err
			}
			d.slots[rank] = &Dict{Keys: make([]string, n), Vals: make([]Value, n)}
			if err := d.skipAtomsRaw(int(n) * 2); err != nil {
				return err
			}
		case TagMap:
			n, err := readUvarint(d.body)
			if err != nil {
				return err
			}
			d.slots[rank] = &MapVal{Pairs: make([]MapPair, n)}
			if err := d.skipAtomsRaw(int(n) * 2); err != nil {
				return err
			}
		case TagSet:
			n, err := readUvarint(d.body)
			if err != nil {
				return err
			}
			d.slots[rank] = &SetVal{Items: make([]Value, n)}
			if err := d.skipAtomsRaw(int(n)); err != nil {
				return err
			}
		case TagObject:
			name, err := d.readTypeNamePointer()
			if err != nil {
				return err
			}
			shell, ok := lookupShell(name)
			if !ok {
				return fmt.Errorf("%w: %q", ErrUnknownType, name)
			}
			d.slots[rank] = shell()
			n, err := readUvarint(d.body)
			if err != nil {
				return err
			}
			if err := d.skipAtomsRaw(int(n)); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: rank %d has non-object tag %d", ErrMalformed, rank, tag)
		}
	}
	return nil
}

// decode is decoding pass 2: rewound to the start of the stream,
// populate every shell's fields, resolving POINTERs freely since
// every shell now exists in slots.
func (d *decoder) decode(objectCount int) error {
	for rank := 0; rank < objectCount; rank++ {
		tag, err := d.nextTag()
		if err != nil {
			return err
		}
		switch tag {
		case TagString:
			if _, err := d.readCString(); err != nil {
				return err
			}
		case TagArray:
			n, err := readUvarint(d.body)
			if err != nil {
				return err
			}
			arr := d.slots[rank].(*Array)
			for i := 0; i < int(n); i++ {
				v, err := d.readAtom()
				if err != nil {
					return err
				}
				arr.Items[i] = v
			}
		case TagPlainObject:
			n, err := readUvarint(d.body)
			if err != nil {
				return err
			}
			dict := d.slots[rank].(*Dict)
			for i := 0; i < int(n); i++ {
				k, err := d.readAtom()
				if err != nil {
					return err
				}
				ks, ok := k.(string)
				if !ok {
					return fmt.Errorf("%w: plain object key is not a string", ErrMalformed)
				}
				v, err := d.readAtom()
				if err != nil {
					return err
				}
				dict.Keys[i] = ks
				dict.Vals[i] = v
			}
		case TagMap:
			n, err := readUvarint(d.body)
			if err != nil {
				return err
			}
			m := d.slots[rank].(*MapVal)
			for i := 0; i < int(n); i++ {
				k, err := d.readAtom()
				if err != nil {
					return err
				}
				v, err := d.readAtom()
				if err != nil {
					return err
				}
				m.Pairs[i] = MapPair{Key: k, Val: v}
			}
		case TagSet:
			n, err := readUvarint(d.body)
			if err != nil {
				return err
			}
			s := d.slots[rank].(*SetVal)
			for i := 0; i < int(n); i++ {
				v, err := d.readAtom()
				if err != nil {
					return err
				}
				s.Items[i] = v
			}
		case TagObject:
			if _, err := d.readAtom(); err != nil { // type name pointer, already used
				return err
			}
			n, err := readUvarint(d.body)
			if err != nil {
				return err
			}
			fields := make([]Value, n)
			for i := 0; i < int(n); i++ {
				v, err := d.readAtom()
				if err != nil {
					return err
				}
				fields[i] = v
			}
			coder := d.slots[rank].(Coder)
			if err := coder.WireSetFields(fields); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: rank %d has non-object tag %d", ErrMalformed, rank, tag)
		}
	}
	return nil
}

func unpackNibbles(data []byte, count int) []Tag {
	out := make([]Tag, count)
	for i := 0; i < count; i++ {
		b := data[i/2]
		if i%2 == 0 {
			out[i] = Tag(b & 0x0f)
		} else {
			out[i] = Tag(b >> 4)
		}
	}
	return out
}

// Decode reverses Encode, reconstructing the graph rooted at
// rootPointer, with every shared sub-object still shared (pointer
// identity preserved) and every cycle intact.
func Decode(data []byte) (Value, error) {
	r := bytes.NewReader(data)
	atomCount, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	objectCount, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	rootPointer, err := readUvarint(r)
	if err != nil {
		return nil, err
	}

	headBytes := make([]byte, (atomCount+1)/2)
	if _, err := io.ReadFull(r, headBytes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	heads := unpackNibbles(headBytes, int(atomCount))

	bodyBytes, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	d := &decoder{heads: heads, body: bytes.NewReader(bodyBytes)}
	if err := d.predecode(int(objectCount)); err != nil {
		return nil, err
	}

	d.head = 0
	if _, err := d.body.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := d.decode(int(objectCount)); err != nil {
		return nil, err
	}

	if int(rootPointer) >= len(d.slots) {
		return nil, fmt.Errorf("%w: root pointer out of range", ErrMalformed)
	}
	return d.slots[rootPointer], nil
}
