package waveapp

import (
	"fmt"

	"github.com/wavecollab/wave/pkg/world"
)

// App is the WaveApp: a non-empty stack of Worlds (the last entry is
// the live, mutable top; the rest are locked history), a parallel
// redo stack, a wave-merge memory, and the synchronous mutation
// stream every Call/Assign/undo/redo publishes to.
type App struct {
	worlds    []*world.World
	redo      []*world.World
	wave      waveState
	mutations *Stream[MutationEvent]
	registry  *Registry
}

// NewApp starts an App with root as its sole, live world.
func NewApp(root *world.World, registry *Registry) *App {
	return &App{
		worlds:    []*world.World{root},
		mutations: NewStream[MutationEvent](),
		registry:  registry,
	}
}

// Top returns the current live world.
func (a *App) Top() *world.World {
	return a.worlds[len(a.worlds)-1]
}

// Depth returns the number of worlds currently on the undo stack,
// including the live top.
func (a *App) Depth() int {
	return len(a.worlds)
}

// Mutations returns the app's mutation stream for subscribing.
func (a *App) Mutations() *Stream[MutationEvent] {
	return a.mutations
}

// advance locks the current top, pushes a fresh child as the new top,
// and clears the redo stack — a new wave invalidates whatever future
// undo previously made available.
func (a *App) advance() *world.World {
	old := a.Top()
	old.Lock()
	next := old.Advance()
	a.worlds = append(a.worlds, next)
	a.redo = nil
	return next
}

func (a *App) publish(tag string) {
	a.mutations.Push(MutationEvent{World: a.Top(), Tag: tag})
}

// Create materializes a new Model of className in a fresh wave (class
// creation always starts its own undo step) and runs the class's
// constructor against it, returning the bound Ref.
func (a *App) Create(className string, args []world.Value) (world.Ref, error) {
	def, ok := a.registry.Lookup(className)
	if !ok {
		return world.Ref{}, fmt.Errorf("%w: %s", ErrUnknownClass, className)
	}
	a.wave.decide("create:"+className, className, 1)
	top := a.advance()

	m, err := top.Create(def.Schema)
	if err != nil {
		return world.Ref{}, err
	}
	if def.Constructor != nil {
		if err := def.Constructor(m, args); err != nil {
			return world.Ref{}, err
		}
	}
	a.publish("create:" + className)
	return m.Ref, nil
}

// Assign sets a slot by name directly, participating in wave-merge
// via opts the same way a mutating Call does.
func (a *App) Assign(ref world.Ref, slot string, value world.Value, opts WaveOptions) error {
	m, err := a.Top().Bind(ref)
	if err != nil {
		return err
	}
	idx := m.Class.IndexOf(slot)
	if idx < 0 {
		return fmt.Errorf("world: unknown slot %q on %s", slot, m.Class.ClassName)
	}

	merged := a.wave.decide(opts.Tag, opts.ID, opts.Rate)
	if !merged {
		a.advance()
		m, err = a.Top().Bind(ref)
		if err != nil {
			return err
		}
	}
	if err := m.WriteSlot(idx, value); err != nil {
		return err
	}
	a.publish(resolvedTagString(opts))
	return nil
}

// Get reads a slot by name from the live top world, bypassing wave
// merge and the mutation stream entirely — a pure read.
func (a *App) Get(ref world.Ref, slot string) (world.Value, error) {
	m, err := a.Top().Bind(ref)
	if err != nil {
		return world.None, err
	}
	idx := m.Class.IndexOf(slot)
	if idx < 0 {
		return world.None, fmt.Errorf("world: unknown slot %q on %s", slot, m.Class.ClassName)
	}
	return m.ReadSlot(idx)
}

// Call invokes method on the Model bound to ref. Pure methods run
// immediately against the live top without advancing or publishing.
// Mutating methods resolve the wave-merge decision from the method's
// tag template and opts, then run against whichever world ends up
// live (the existing top if merged, a freshly advanced one
// otherwise), publishing the result to the mutation stream.
func (a *App) Call(ref world.Ref, method string, args []world.Value, opts WaveOptions) (world.Value, error) {
	m, err := a.Top().Bind(ref)
	if err != nil {
		return world.None, err
	}
	def, ok := a.registry.Lookup(m.Class.ClassName)
	if !ok {
		return world.None, fmt.Errorf("%w: %s", ErrUnknownClass, m.Class.ClassName)
	}
	spec, ok := def.Methods[method]
	if !ok {
		return world.None, fmt.Errorf("%w: %s.%s", ErrUnknownMethod, def.Name, method)
	}
	if spec.Pure {
		return spec.Fn(m, args)
	}

	tag := opts.Tag
	if tag == "" {
		tag = spec.Tag
	}
	rate := opts.Rate
	if rate == 0 {
		rate = spec.Rate
	}
	merged := a.wave.decide(tag, opts.ID, rate)
	if !merged {
		a.advance()
	}
	m, err = a.Top().Bind(ref)
	if err != nil {
		return world.None, err
	}
	result, err := spec.Fn(m, args)
	a.publish(tag)
	return result, err
}

func resolvedTagString(opts WaveOptions) string {
	if opts.Tag == "" {
		return "assign"
	}
	return opts.Tag
}

// Watch subscribes fn to mutations whose world holds a locally-
// modified Model for ref, returning an unsubscribe function.
func (a *App) Watch(ref world.Ref, fn func(*world.World)) func() {
	return a.mutations.Subscribe(func(ev MutationEvent) {
		if ev.World.HasModifiedModel(ref) {
			fn(ev.World)
		}
	})
}

// Undo pops the live top onto the redo stack and unlocks the world
// beneath it, which becomes the new live top. It is a no-op if there
// is no history to undo (the stack holds only the root). The running
// wave is broken: a subsequent mutating call always starts a fresh
// wave rather than merging across the undo boundary.
func (a *App) Undo() error {
	if len(a.worlds) <= 1 {
		return nil
	}
	old := a.worlds[len(a.worlds)-1]
	a.worlds = a.worlds[:len(a.worlds)-1]
	a.redo = append(a.redo, old)
	a.Top().Unlock()
	a.wave.reset()
	a.publish("undo")
	return nil
}

// Redo pops the most recently undone world off the redo stack, locks
// the current top back into history, and makes the popped world live
// again. It is a no-op if nothing has been undone.
func (a *App) Redo() error {
	if len(a.redo) == 0 {
		return nil
	}
	next := a.redo[len(a.redo)-1]
	a.redo = a.redo[:len(a.redo)-1]
	a.Top().Lock()
	a.worlds = append(a.worlds, next)
	next.Unlock()
	a.wave.reset()
	a.publish("undo")
	return nil
}

// Flatten collapses the entire history into the root by committing
// top-down (each world into its immediate parent) and clearing the
// redo stack, leaving a single, live, unlocked root holding the fully
// merged state. This is one way old snapshots become reclaimable; the
// other is advance, which drops the redo stack whenever a new wave
// starts. The redo stack itself has no size bound.
func (a *App) Flatten() error {
	for i := len(a.worlds) - 1; i >= 1; i-- {
		if err := a.worlds[i].Commit(); err != nil {
			return err
		}
	}
	root := a.worlds[0]
	root.Unlock()
	a.worlds = []*world.World{root}
	a.redo = nil
	a.wave.reset()
	return nil
}
