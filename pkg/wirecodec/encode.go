package wirecodec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// tagWeight is the artificial refcount boost a typed constructor's
// tag string receives each time an instance of that type is indexed,
// so the tag string sorts to a very low rank and is written once near
// the head of the stream, shared by pointer from every instance.
const tagWeight = 1 << 20

// indexer implements encoding pass 1: walk the reachable graph once,
// counting references to every object-class value (composites,
// interned strings, and typed objects) while never re-walking a
// value's children more than once, which is what makes the walk
// terminate on cycles.
type indexer struct {
	refcount map[Value]int
	order    []Value
}

func newIndexer() *indexer {
	return &indexer{refcount: map[Value]int{}}
}

// bump records a reference to key, weighted by weight, and reports
// whether this is the first time key has been seen.
func (ix *indexer) bump(key Value, weight int) bool {
	first := ix.refcount[key] == 0
	if first {
		ix.order = append(ix.order, key)
	}
	ix.refcount[key] += weight
	return first
}

func (ix *indexer) visit(v Value) error {
	switch x := v.(type) {
	case nil, undefinedType, bool, int64, float64:
		return nil
	case string:
		if len(x) <= 2 {
			return nil
		}
		ix.bump(x, 1)
		return nil
	case *Array:
		if ix.bump(x, 1) {
			for _, e := range x.Items {
				if err := ix.visit(e); err != nil {
					return err
				}
			}
		}
		return nil
	case *Dict:
		if ix.bump(x, 1) {
			for i, k := range x.Keys {
				if len(k) > 2 {
					ix.bump(k, 1)
				}
				if err := ix.visit(x.Vals[i]); err != nil {
					return err
				}
			}
		}
		return nil
	case *MapVal:
		if ix.bump(x, 1) {
			for _, p := range x.Pairs {
				if err := ix.visit(p.Key); err != nil {
					return err
				}
				if err := ix.visit(p.Val); err != nil {
					return err
				}
			}
		}
		return nil
	case *SetVal:
		if ix.bump(x, 1) {
			for _, e := range x.Items {
				if err := ix.visit(e); err != nil {
					return err
				}
			}
		}
		return nil
	case Coder:
		first := ix.bump(x, 1)
		ix.bump(x.WireTag(), tagWeight)
		if first {
			for _, f := range x.WireFields() {
				if err := ix.visit(f); err != nil {
					return err
				}
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: value of type %T is not encodable", ErrMalformed, v)
	}
}

// plan sorts every indexed value by descending refcount (ties broken
// by first-seen order, for determinism) and returns the rank of each.
func (ix *indexer) plan() (rank map[Value]int, values []Value) {
	keys := append([]Value(nil), ix.order...)
	sort.SliceStable(keys, func(i, j int) bool {
		return ix.refcount[keys[i]] > ix.refcount[keys[j]]
	})
	rank = make(map[Value]int, len(keys))
	for i, k := range keys {
		rank[k] = i
	}
	return rank, keys
}

// tagOf reports v's atom tag and whether v is object-class (ranked,
// referenced by POINTER rather than inlined).
func tagOf(v Value) (tag Tag, isObject bool, err error) {
	switch x := v.(type) {
	case nil:
		return TagNull, false, nil
	case undefinedType:
		return TagUndefined, false, nil
	case bool:
		if x {
			return TagTrue, false, nil
		}
		return TagFalse, false, nil
	case int64:
		if x >= 0 {
			return TagPositiveInt, false, nil
		}
		return TagNegativeInt, false, nil
	case float64:
		return TagFloat64, false, nil
	case string:
		return TagString, len(x) > 2, nil
	case *Array:
		return TagArray, true, nil
	case *Dict:
		return TagPlainObject, true, nil
	case *MapVal:
		return TagMap, true, nil
	case *SetVal:
		return TagSet, true, nil
	case Coder:
		return TagObject, true, nil
	default:
		return TagUnknown, false, fmt.Errorf("%w: value of type %T is not encodable", ErrMalformed, v)
	}
}

// encoder implements encoding pass 2: walk the ranked objects in
// rank order, emitting each one's tag and body exactly once.
type encoder struct {
	heads []Tag
	body  bytes.Buffer
	rank  map[Value]int
}

func (e *encoder) appendTag(t Tag) {
	e.heads = append(e.heads, t)
}

func (e *encoder) writeCString(s string) {
	e.body.WriteString(s)
	e.body.WriteByte(0)
}

// emitChild writes v as a sub-atom of whatever object is currently
// being written: a POINTER to its rank if v is object-class, else its
// tag and payload inline.
func (e *encoder) emitChild(v Value) error {
	tag, isObject, err := tagOf(v)
	if err != nil {
		return err
	}
	if isObject {
		r, ok := e.rank[v]
		if !ok {
			return fmt.Errorf("%w: unindexed object of type %T", ErrMalformed, v)
		}
		e.appendTag(TagPointer)
		writeUvarint(&e.body, uint64(r))
		return nil
	}
	return e.emitPrimitive(tag, v)
}

func (e *encoder) emitPrimitive(tag Tag, v Value) error {
	e.appendTag(tag)
	switch x := v.(type) {
	case nil, undefinedType, bool:
		// no payload beyond the tag
	case int64:
		if x >= 0 {
			writeUvarint(&e.body, uint64(x))
		} else {
			writeUvarint(&e.body, uint64(-(x + 1)))
		}
	case float64:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(x))
		e.body.Write(buf[:])
	case string:
		e.writeCString(x)
	default:
		return fmt.Errorf("%w: unexpected primitive type %T", ErrMalformed, v)
	}
	return nil
}

// writeObjectBody writes v's body: the fields or elements that make
// this ranked object's content, in encode order.
func (e *encoder) writeObjectBody(v Value) error {
	switch x := v.(type) {
	case string:
		e.writeCString(x)
		return nil
	case *Array:
		writeUvarint(&e.body, uint64(len(x.Items)))
		for _, item := range x.Items {
			if err := e.emitChild(item); err != nil {
				return err
			}
		}
		return nil
	case *Dict:
		writeUvarint(&e.body, uint64(len(x.Keys)))
		for i, k := range x.Keys {
			if err := e.emitChild(k); err != nil {
				return err
			}
			if err := e.emitChild(x.Vals[i]); err != nil {
				return err
			}
		}
		return nil
	case *MapVal:
		writeUvarint(&e.body, uint64(len(x.Pairs)))
		for _, p := range x.Pairs {
			if err := e.emitChild(p.Key); err != nil {
				return err
			}
			if err := e.emitChild(p.Val); err != nil {
				return err
			}
		}
		return nil
	case *SetVal:
		writeUvarint(&e.body, uint64(len(x.Items)))
		for _, item := range x.Items {
			if err := e.emitChild(item); err != nil {
				return err
			}
		}
		return nil
	case Coder:
		if err := e.emitChild(x.WireTag()); err != nil {
			return err
		}
		fields := x.WireFields()
		writeUvarint(&e.body, uint64(len(fields)))
		for _, f := range fields {
			if err := e.emitChild(f); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: value of type %T has no object body", ErrMalformed, v)
	}
}

func packNibbles(tags []Tag) []byte {
	out := make([]byte, (len(tags)+1)/2)
	for i, t := range tags {
		nib := byte(t) & 0x0f
		if i%2 == 0 {
			out[i/2] |= nib
		} else {
			out[i/2] |= nib << 4
		}
	}
	return out
}

// Encode walks root's reachable graph and produces the wire stream:
// varint(atomCount) varint(objectCount) varint(rootPointer), a packed
// head array of 4-bit tags, then the body of atom payloads.
func Encode(root Value) ([]byte, error) {
	ix := newIndexer()
	if err := ix.visit(root); err != nil {
		return nil, err
	}
	rank, values := ix.plan()

	_, isObject, err := tagOf(root)
	if err != nil {
		return nil, err
	}
	if !isObject {
		return nil, fmt.Errorf("%w: root value must be an indexable object", ErrMalformed)
	}
	rootRank, ok := rank[root]
	if !ok {
		return nil, fmt.Errorf("%w: root value was not indexed", ErrMalformed)
	}

	enc := &encoder{rank: rank}
	for _, v := range values {
		tag, _, err := tagOf(v)
		if err != nil {
			return nil, err
		}
		enc.appendTag(tag)
		if err := enc.writeObjectBody(v); err != nil {
			return nil, err
		}
	}

	var out bytes.Buffer
	writeUvarint(&out, uint64(len(enc.heads)))
	writeUvarint(&out, uint64(len(values)))
	writeUvarint(&out, uint64(rootRank))
	out.Write(packNibbles(enc.heads))
	out.Write(enc.body.Bytes())
	return out.Bytes(), nil
}
