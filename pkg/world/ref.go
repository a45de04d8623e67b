package world

// Ref is the only cross-model pointer: an opaque string identity.
// Every graph is navigated through World resolution rather than
// direct pointers, so a Ref stays meaningful across a snapshot's
// transport to a remote peer.
type Ref struct {
	id string
}

// RefOf wraps a raw identifier as a Ref, as happens when rebinding a
// bare id string that arrived over the wire.
func RefOf(id string) Ref { return Ref{id: id} }

// String returns the bare identifier.
func (r Ref) String() string { return r.id }

// IsZero reports whether r is the zero Ref (never assigned an id).
func (r Ref) IsZero() bool { return r.id == "" }
