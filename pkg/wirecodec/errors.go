package wirecodec

import "errors"

// ErrUnknownType is returned when decode encounters an OBJECT atom
// whose type tag has no registered constructor.
var ErrUnknownType = errors.New("wirecodec: unknown type tag")

// ErrMalformed is returned when the stream is structurally invalid:
// a varint overran its 49-bit payload limit, a tag byte doesn't name
// a valid atom in context, or the stream ends mid-atom.
var ErrMalformed = errors.New("wirecodec: malformed stream")

// ErrSchemaConflict is raised (as a panic, since registration happens
// at program startup) when two typed constructors register the same
// tag.
var ErrSchemaConflict = errors.New("wirecodec: schema conflict")
