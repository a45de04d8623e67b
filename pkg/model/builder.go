package model

import (
	"github.com/wavecollab/wave/pkg/waveapp"
	"github.com/wavecollab/wave/pkg/world"
)

// ClassBuilder accumulates one Model subclass's slot declarations and
// methods before Build/Register binds them into a waveapp.ClassDef.
type ClassBuilder struct {
	name        string
	names       []string
	types       []world.SlotType
	methods     map[string]*waveapp.MethodSpec
	constructor func(m *world.Model, args []world.Value) error
}

// NewClass starts declaring a Model subclass under name — the string
// used for both cross-world identification (Schema.ClassName) and
// serializer tagging (see RegisterCoder).
func NewClass(name string) *ClassBuilder {
	return &ClassBuilder{name: name, methods: map[string]*waveapp.MethodSpec{}}
}

// Slot declares a named slot with an optional type constraint (nil
// leaves it unconstrained).
func (b *ClassBuilder) Slot(name string, t world.SlotType) *ClassBuilder {
	b.names = append(b.names, name)
	b.types = append(b.types, t)
	return b
}

// Construct registers the function run once against a freshly created
// Model of this class, before the Model is returned to its creator.
func (b *ClassBuilder) Construct(fn func(m *world.Model, args []world.Value) error) *ClassBuilder {
	b.constructor = fn
	return b
}

// Mutating declares a method that participates in wave-merge: tag is
// the ':'-templated tag (e.g. "typing:id"), rate its baseline.
func (b *ClassBuilder) Mutating(name, tag string, rate float64, fn func(m *world.Model, args []world.Value) (world.Value, error)) *ClassBuilder {
	b.methods[name] = &waveapp.MethodSpec{Name: name, Tag: tag, Rate: rate, Fn: fn}
	return b
}

// Pure declares a method that skips wave-merge entirely and returns
// synchronously without advancing the world stack or publishing to
// the mutation stream.
func (b *ClassBuilder) Pure(name string, fn func(m *world.Model, args []world.Value) (world.Value, error)) *ClassBuilder {
	b.methods[name] = &waveapp.MethodSpec{Name: name, Pure: true, Fn: fn}
	return b
}

// Build assembles the declared slots and methods into a ClassDef
// without registering it anywhere.
func (b *ClassBuilder) Build() *waveapp.ClassDef {
	schema := &world.Schema{ClassName: b.name, Names: b.names, Types: b.types}
	methods := make(map[string]*waveapp.MethodSpec, len(b.methods))
	for k, v := range b.methods {
		methods[k] = v
	}
	return &waveapp.ClassDef{
		Name:        b.name,
		Schema:      schema,
		Methods:     methods,
		Constructor: b.constructor,
	}
}

// Register builds the ClassDef and adds it to reg, returning it.
func (b *ClassBuilder) Register(reg *waveapp.Registry) *waveapp.ClassDef {
	def := b.Build()
	reg.Register(def)
	return def
}
