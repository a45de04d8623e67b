package wirecodec

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// node is a small test fixture implementing Coder, used to exercise
// typed objects, shared references, and cycles.
type node struct {
	Name string
	Next *node
}

func (n *node) WireTag() string { return "wirecodec_test.node" }

func (n *node) WireFields() []Value {
	var next Value
	if n.Next != nil {
		next = n.Next
	}
	return []Value{n.Name, next}
}

func (n *node) WireSetFields(fields []Value) error {
	name, ok := fields[0].(string)
	if !ok {
		return errors.New("node: field 0 is not a string")
	}
	n.Name = name
	if fields[1] == nil {
		n.Next = nil
		return nil
	}
	next, ok := fields[1].(*node)
	if !ok {
		return errors.New("node: field 1 is not a *node")
	}
	n.Next = next
	return nil
}

func init() {
	Register("wirecodec_test.node", func() Coder { return &node{} })
}

func TestRoundTripPrimitivesInArray(t *testing.T) {
	arr := NewArray(int64(42), int64(-7), 3.5, "hi", true, false, nil, Undefined, "a longer string")

	data, err := Encode(arr)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	gotArr, ok := got.(*Array)
	if !ok {
		t.Fatalf("got %T, want *Array", got)
	}
	want := &Array{Items: []Value{int64(42), int64(-7), 3.5, "hi", true, false, nil, Undefined, "a longer string"}}
	if diff := cmp.Diff(want, gotArr); diff != "" {
		t.Fatalf("decode(encode(x)) structurally differs from x (-want +got):\n%s", diff)
	}
}

func TestRoundTripDict(t *testing.T) {
	d := NewDict().Set("name", "ada").Set("age", int64(36)).Set("active", true)

	data, err := Encode(d)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	gotDict, ok := got.(*Dict)
	if !ok {
		t.Fatalf("got %T, want *Dict", got)
	}
	if v, _ := gotDict.Get("name"); v != "ada" {
		t.Fatalf("name = %v", v)
	}
	if v, _ := gotDict.Get("age"); v != int64(36) {
		t.Fatalf("age = %v", v)
	}
	if v, _ := gotDict.Get("active"); v != true {
		t.Fatalf("active = %v", v)
	}
}

func TestRoundTripMapAndSet(t *testing.T) {
	m := &MapVal{Pairs: []MapPair{{Key: int64(1), Val: "one"}, {Key: int64(2), Val: "two"}}}
	s := &SetVal{Items: []Value{int64(1), int64(2), int64(3)}}
	root := NewArray(m, s)

	data, err := Encode(root)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	gotArr := got.(*Array)
	gotMap := gotArr.Items[0].(*MapVal)
	gotSet := gotArr.Items[1].(*SetVal)

	if len(gotMap.Pairs) != 2 || gotMap.Pairs[0].Val != "one" || gotMap.Pairs[1].Val != "two" {
		t.Fatalf("map round-trip mismatch: %+v", gotMap.Pairs)
	}
	if len(gotSet.Items) != 3 || gotSet.Items[2] != int64(3) {
		t.Fatalf("set round-trip mismatch: %+v", gotSet.Items)
	}
}

func TestRoundTripTypedObjectChain(t *testing.T) {
	tail := &node{Name: "tail"}
	mid := &node{Name: "mid", Next: tail}
	head := &node{Name: "head", Next: mid}

	data, err := Encode(head)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	gotHead, ok := got.(*node)
	if !ok {
		t.Fatalf("got %T, want *node", got)
	}
	if gotHead.Name != "head" || gotHead.Next.Name != "mid" || gotHead.Next.Next.Name != "tail" {
		t.Fatalf("chain mismatch: %+v -> %+v -> %+v", gotHead, gotHead.Next, gotHead.Next.Next)
	}
	if gotHead.Next.Next.Next != nil {
		t.Fatal("tail.Next should decode to nil")
	}
}

func TestRoundTripSharedSubobjectStaysShared(t *testing.T) {
	shared := NewArray(int64(1), int64(2), int64(3))
	root := NewArray(shared, shared, "marker")

	data, err := Encode(root)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	gotArr := got.(*Array)
	a := gotArr.Items[0].(*Array)
	b := gotArr.Items[1].(*Array)
	if a != b {
		t.Fatal("shared sub-array must decode to the same pointer identity")
	}
}

func TestRoundTripCycleBreaksViaPredecodeShell(t *testing.T) {
	a := &node{Name: "a"}
	b := &node{Name: "b"}
	a.Next = b
	b.Next = a

	data, err := Encode(a)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	gotA, ok := got.(*node)
	if !ok {
		t.Fatalf("got %T, want *node", got)
	}
	if gotA.Name != "a" || gotA.Next.Name != "b" || gotA.Next.Next != gotA {
		t.Fatalf("cycle not preserved: a=%+v b=%+v", gotA, gotA.Next)
	}
}

type ghostNode struct{ Name string }

func (g *ghostNode) WireTag() string             { return "wirecodec_test.never_registered" }
func (g *ghostNode) WireFields() []Value         { return []Value{g.Name} }
func (g *ghostNode) WireSetFields([]Value) error { return nil }

func TestDecodeUnregisteredTypeSignalsUnknownType(t *testing.T) {
	data, err := Encode(&ghostNode{Name: "boo"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, err = Decode(data)
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("got %v, want ErrUnknownType", err)
	}
}

func TestDecodeTruncatedStreamSignalsMalformed(t *testing.T) {
	data, err := Encode(NewArray(int64(1), int64(2)))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, err = Decode(data[:len(data)-2])
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("got %v, want ErrMalformed", err)
	}
}

func TestRegisterDuplicateTagPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	Register("wirecodec_test.node", func() Coder { return &node{} })
}

func TestVarintOverflowSignalsMalformed(t *testing.T) {
	// 8 bytes each with the continuation bit set overruns the 49-bit
	// payload limit.
	garbage := []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x01}
	_, err := readUvarint(bytes.NewReader(garbage))
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("got %v, want ErrMalformed", err)
	}
}
