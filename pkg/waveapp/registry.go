package waveapp

import "github.com/wavecollab/wave/pkg/world"

// MethodSpec is one registered method of a ClassDef: its wave-merge
// tag template and rate baseline if mutating, or Pure if it skips
// wave-merge and returns synchronously without advancing or
// publishing to the mutation stream.
type MethodSpec struct {
	Name string
	Tag  string
	Rate float64
	Pure bool
	Fn   func(m *world.Model, args []world.Value) (world.Value, error)
}

// ClassDef is a registered Model class: its slot Schema, a
// constructor run once against a freshly created Model, and its
// callable methods keyed by name. Registration binds Name to both
// cross-world identification (every Model's Class.ClassName) and,
// separately, the wirecodec type tag a Coder wrapping this class would
// register under.
type ClassDef struct {
	Name        string
	Schema      *world.Schema
	Methods     map[string]*MethodSpec
	Constructor func(m *world.Model, args []world.Value) error
}

// Registry is the process-wide (or test-local) map from class name to
// ClassDef, the Go stand-in for the spec's name -> vtable/constructor
// registry style of polymorphism.
type Registry struct {
	classes map[string]*ClassDef
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{classes: map[string]*ClassDef{}}
}

// Register adds def under def.Name, overwriting any previous
// registration of the same name — callers that want SchemaConflict-
// style duplicate detection should check Lookup first.
func (r *Registry) Register(def *ClassDef) {
	r.classes[def.Name] = def
}

// Lookup returns the ClassDef registered under name, if any.
func (r *Registry) Lookup(name string) (*ClassDef, bool) {
	def, ok := r.classes[name]
	return def, ok
}
