package model

import (
	"github.com/wavecollab/wave/pkg/wirecodec"
	"github.com/wavecollab/wave/pkg/world"
)

// ModelRecord is the wire shape a bound Model takes when a World
// snapshot is encoded: its class name (for picking the right Schema
// on decode), its Ref's bare id, and its slots in declaration order.
// It is intentionally schema-agnostic — one ModelRecord shell serves
// every registered class, distinguished only by ClassName.
type ModelRecord struct {
	ClassName string
	RefID     string
	Slots     []world.Value
}

// WireTag reports the wirecodec type tag this class's Model instances
// serialize under — "model:" plus the class name, keeping Model
// records in their own tag namespace away from other registered Coder
// types.
func (r *ModelRecord) WireTag() string { return "model:" + r.ClassName }

// WireFields returns RefID and the slots, in that order, as the
// Coder's flat field list.
func (r *ModelRecord) WireFields() []wirecodec.Value {
	fields := make([]wirecodec.Value, 0, 1+len(r.Slots))
	fields = append(fields, r.RefID)
	for _, s := range r.Slots {
		fields = append(fields, s)
	}
	return fields
}

// WireSetFields populates RefID and Slots from a decoded field list.
func (r *ModelRecord) WireSetFields(fields []wirecodec.Value) error {
	if len(fields) == 0 {
		r.RefID = ""
		r.Slots = nil
		return nil
	}
	if id, ok := fields[0].(string); ok {
		r.RefID = id
	}
	r.Slots = append([]world.Value(nil), fields[1:]...)
	return nil
}

// registeredCoders tracks which class names RegisterCoder has already
// wired into wirecodec, since the process-wide registry panics on a
// duplicate tag and a Model class's registration may legitimately run
// more than once (e.g. once per test, or once per app instance sharing
// a process).
var registeredCoders = map[string]bool{}

// RegisterCoder wires className into the wirecodec type registry as a
// ModelRecord shell, the "serializer tagging" half of class
// registration (spec.md §6). It is a no-op if className was already
// registered in this process.
func RegisterCoder(className string) {
	if registeredCoders[className] {
		return
	}
	registeredCoders[className] = true
	wirecodec.Register("model:"+className, func() wirecodec.Coder {
		return &ModelRecord{ClassName: className}
	})
}
