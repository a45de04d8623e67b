// Package snapshot persists World state to disk: it flattens a
// World's visible Models into model.ModelRecord wire values, encodes
// them with the graph-aware binary serializer, and writes the result
// atomically so a crash mid-write never corrupts the previous good
// file. This is the concrete realization of the spec's requirement
// that a World snapshot be "transported to remote participants and
// persisted intact" — the distillation names the requirement but
// leaves the on-disk mechanics unspecified.
package snapshot

import (
	"bytes"
	"fmt"
	"os"

	"github.com/juju/loggo"
	"github.com/natefinch/atomic"

	"github.com/wavecollab/wave/pkg/model"
	"github.com/wavecollab/wave/pkg/waveapp"
	"github.com/wavecollab/wave/pkg/wirecodec"
	"github.com/wavecollab/wave/pkg/world"
)

var logger = loggo.GetLogger("wave.snapshot")

// refRecord is how a world.Ref held in a slot travels across the
// wire: Ref itself carries no Coder methods (it's the bare identity
// type every other package depends on), so the snapshot boundary, not
// pkg/world or pkg/wirecodec, is where it gets boxed and unboxed.
type refRecord struct {
	ID string
}

func (r *refRecord) WireTag() string               { return "world:ref" }
func (r *refRecord) WireFields() []wirecodec.Value { return []wirecodec.Value{r.ID} }

func (r *refRecord) WireSetFields(f []wirecodec.Value) error {
	if len(f) > 0 {
		if s, ok := f[0].(string); ok {
			r.ID = s
		}
	}
	return nil
}

func init() {
	wirecodec.Register("world:ref", func() wirecodec.Coder { return &refRecord{} })
}

func boxSlot(v world.Value) wirecodec.Value {
	if world.IsNone(v) {
		return wirecodec.Undefined
	}
	if ref, ok := v.(world.Ref); ok {
		return &refRecord{ID: ref.String()}
	}
	return v
}

func unboxSlot(v wirecodec.Value) world.Value {
	if v == wirecodec.Undefined {
		return world.None
	}
	if rr, ok := v.(*refRecord); ok {
		return world.RefOf(rr.ID)
	}
	return v
}

// Save flattens w's visible Models into an array of ModelRecords,
// encodes it, and atomically replaces path's contents with the
// result — a reader opening path either sees the previous complete
// snapshot or the new one, never a partial write.
//
// Slots holding a world.Ref are boxed through refRecord so cross-
// Model references survive the trip; never-written (None) slots travel
// as wirecodec.Undefined and come back as None; slots holding a Chron or
// ChronMarkup value (as pkg/textmodel's Text class does) travel as
// themselves, since both implement wirecodec.Coder directly.
func Save(path string, w *world.World) error {
	snaps := w.Snapshot()
	items := make([]wirecodec.Value, 0, len(snaps))
	for _, s := range snaps {
		slots := make([]world.Value, len(s.Slots))
		for i, v := range s.Slots {
			slots[i] = boxSlot(v)
		}
		items = append(items, &model.ModelRecord{
			ClassName: s.ClassName,
			RefID:     s.Ref.String(),
			Slots:     slots,
		})
	}

	data, err := wirecodec.Encode(wirecodec.NewArray(items...))
	if err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("snapshot: write %s: %w", path, err)
	}
	logger.Debugf("wrote snapshot %s (%d models, %d bytes)", path, len(snaps), len(data))
	return nil
}

// Load reads path, decodes it, and rebuilds a fresh, unlocked root
// World whose Models are restored from the saved records. Class
// schemas are looked up by name in reg — normally the same Registry
// the live App was built from — so the restored World's Models carry
// exactly the slot layout their class currently declares.
func Load(path string, reg *waveapp.Registry) (*world.World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", path, err)
	}

	v, err := wirecodec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("snapshot: decode %s: %w", path, err)
	}
	arr, ok := v.(*wirecodec.Array)
	if !ok {
		return nil, fmt.Errorf("snapshot: %s: root is not an array", path)
	}

	snaps := make([]world.ModelSnapshot, 0, len(arr.Items))
	for _, item := range arr.Items {
		rec, ok := item.(*model.ModelRecord)
		if !ok {
			return nil, fmt.Errorf("snapshot: %s: element %T is not a Model record", path, item)
		}
		slots := make([]world.Value, len(rec.Slots))
		for i, v := range rec.Slots {
			slots[i] = unboxSlot(v)
		}
		snaps = append(snaps, world.ModelSnapshot{
			Ref:       world.RefOf(rec.RefID),
			ClassName: rec.ClassName,
			Slots:     slots,
		})
	}

	root, err := world.Restore(snaps, func(className string) (*world.Schema, bool) {
		def, ok := reg.Lookup(className)
		if !ok {
			return nil, false
		}
		return def.Schema, true
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: restore %s: %w", path, err)
	}
	logger.Debugf("loaded snapshot %s (%d models)", path, len(snaps))
	return root, nil
}
