// Package model is the Model-authoring interface: the collaborator-
// facing layer a Model subclass uses to declare its slots and methods
// and bind them into a waveapp.ClassDef, the way spec.md §6 describes
// — "declares its slots (name, optional type constraint) and its
// methods, annotating mutating methods with a wave-merge tag... and
// pure methods explicitly."
package model

import "github.com/wavecollab/wave/pkg/world"

// IsString, IsInt, IsFloat, IsBool, and IsRef are the common slot type
// constraints a Model declares its fields with — the Go stand-in for
// the spec's "a string primitive name, or a constructor" option.
func IsString(v world.Value) bool { _, ok := v.(string); return ok }
func IsInt(v world.Value) bool {
	switch v.(type) {
	case int, int64:
		return true
	}
	return false
}
func IsFloat(v world.Value) bool { _, ok := v.(float64); return ok }
func IsBool(v world.Value) bool  { _, ok := v.(bool); return ok }
func IsRef(v world.Value) bool   { _, ok := v.(world.Ref); return ok }

// Any leaves a slot unconstrained — equivalent to a nil SlotType.
func Any(world.Value) bool { return true }
