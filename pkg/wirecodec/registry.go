package wirecodec

import "fmt"

// Coder is implemented by any domain type that wants to travel as a
// typed OBJECT atom. WireTag names the registered constructor and is
// itself written once, as an interned string, and shared by pointer
// from every instance. WireFields returns this instance's sub-values
// in encode order; WireSetFields is called on a freshly allocated
// shell (already resolvable from a POINTER, breaking any cycle
// through this instance) with exactly the values WireFields produced,
// in the same order.
type Coder interface {
	WireTag() string
	WireFields() []Value
	WireSetFields(fields []Value) error
}

// registry is the process-wide, write-once-at-startup type registry:
// populated by Register calls (normally from package init functions)
// and never mutated afterward, same lifecycle the spec gives the
// serializer's type registry.
var registry = map[string]func() Coder{}

// Register binds tag to a shell constructor. It panics on a duplicate
// tag, since registration is a startup-time program error, not a
// runtime condition callers recover from.
func Register(tag string, newShell func() Coder) {
	if _, exists := registry[tag]; exists {
		panic(fmt.Sprintf("%v: tag %q already registered", ErrSchemaConflict, tag))
	}
	registry[tag] = newShell
}

func lookupShell(tag string) (func() Coder, bool) {
	f, ok := registry[tag]
	return f, ok
}
