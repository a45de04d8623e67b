package chronmarkup

import (
	"github.com/wavecollab/wave/pkg/chron"
)

// MarkerSet receives the boundary events fired by Entries as it sweeps
// a Chron range against a Markup. Add and Delete fire in traversal
// order as the live cursor crosses a marker's head or tail boundary.
// Covered fires once, after the walk, for every marker that was
// already active at the start of the queried range and still active
// at its end. Filter runs once per marker before the sweep begins;
// returning false excludes that marker from the entire traversal.
type MarkerSet[D comparable] interface {
	Add(data D, at chron.Cursor)
	Delete(data D, at chron.Cursor)
	Covered(data D, rng chron.Range)
	Filter(data D, queried chron.Range) bool
}

// NopMarkerSet is a MarkerSet whose callbacks all do nothing and whose
// Filter always admits the marker. Embed it to implement only the
// callbacks a particular consumer cares about.
type NopMarkerSet[D comparable] struct{}

func (NopMarkerSet[D]) Add(D, chron.Cursor)        {}
func (NopMarkerSet[D]) Delete(D, chron.Cursor)     {}
func (NopMarkerSet[D]) Covered(D, chron.Range)     {}
func (NopMarkerSet[D]) Filter(D, chron.Range) bool { return true }

// boundary buckets a marker's head or tail cursor by the Chron entry
// index it currently resolves to, with -1 reserved for markers whose
// boundary anchors to the document's synthetic root entry (index 0) —
// i.e. the document's own start/end boundary, which never appears
// inside a Range walk and so needs its own bucket swept before the
// walk begins.
func boundary[T any](c *chron.Chron[T], cur chron.Cursor) (int, bool) {
	e, ok := c.AnchorOf(cur)
	if !ok {
		return 0, false
	}
	if e.Index == 0 {
		return -1, true
	}
	return e.Index, true
}

// Entries sweeps chr's entries across rng (the whole document if rng
// is nil), firing set's Add/Delete/Covered callbacks as markers in
// markup come into and out of scope, and yields each visited Entry in
// document order. It is the sole way ChronMarkup reports marker
// boundaries: callers never compare ranges directly, since a marker's
// cursors can straddle deleted entries and insertions that happened
// after the marker was placed.
func Entries[D comparable, T any](chr *chron.Chron[T], markup *Markup[D, T], set MarkerSet[D], rng *chron.Range) func(yield func(chron.Entry[T]) bool) {
	return func(yield func(chron.Entry[T]) bool) {
		effective := chron.Range{Head: chr.Head(), Tail: chr.Tail()}
		if rng != nil {
			effective = *rng
		}

		// Step 1: bucket every surviving, filter-admitted marker by its
		// head and tail boundary.
		headsByBucket := map[int][]D{}
		tailsByBucket := map[int][]D{}
		rangeOf := map[D]chron.Range{}

		for _, me := range markup.markers.All() {
			if !me.present {
				continue
			}
			if !set.Filter(me.data, effective) {
				continue
			}
			hb, ok := boundary(chr, me.rng.Head)
			if !ok {
				continue
			}
			tb, ok := boundary(chr, me.rng.Tail)
			if !ok {
				continue
			}
			headsByBucket[hb] = append(headsByBucket[hb], me.data)
			tailsByBucket[tb] = append(tailsByBucket[tb], me.data)
			rangeOf[me.data] = me.rng
		}

		active := map[D]bool{}
		silent := !effective.Head.Equal(chr.Head())

		// Step 2-3: the -1 bucket holds markers anchored to the
		// document boundary itself, which the Range walk below never
		// visits as an entry. Fire (or silently apply) those events
		// first: heads in bucket order, tails in reverse so a marker
		// that both opens and closes at the boundary nets to empty.
		for _, d := range headsByBucket[-1] {
			active[d] = true
			if !silent {
				set.Add(d, rangeOf[d].Head)
			}
		}
		tails := tailsByBucket[-1]
		for i := len(tails) - 1; i >= 0; i-- {
			d := tails[i]
			if active[d] {
				delete(active, d)
				if !silent {
					set.Delete(d, rangeOf[d].Tail)
				}
			}
		}

		// Step 4: if the query starts partway through the document,
		// silently replay every boundary from the true start up to the
		// query's head, so active ends up holding exactly the markers
		// that cover the query's starting point.
		if silent {
			for e := range chr.Range(chron.Range{Head: chr.Head(), Tail: effective.Head}) {
				for _, d := range headsByBucket[e.Index] {
					active[d] = true
				}
				tb := tailsByBucket[e.Index]
				for i := len(tb) - 1; i >= 0; i-- {
					d := tb[i]
					delete(active, d)
				}
			}
		}

		coveredCandidates := make(map[D]bool, len(active))
		for d := range active {
			coveredCandidates[d] = true
		}

		// Step 5: walk the queried range for real, firing Add/Delete as
		// boundaries are crossed and yielding each entry in between.
		for e := range chr.Range(effective) {
			for _, d := range headsByBucket[e.Index] {
				active[d] = true
				set.Add(d, rangeOf[d].Head)
			}
			if !yield(e) {
				return
			}
			tb := tailsByBucket[e.Index]
			for i := len(tb) - 1; i >= 0; i-- {
				d := tb[i]
				if active[d] {
					delete(active, d)
					set.Delete(d, rangeOf[d].Tail)
				}
			}
		}

		// Step 6: anything that was active at the query's start and is
		// still active at its end spans the whole query without ever
		// crossing a boundary inside it.
		for d := range coveredCandidates {
			if active[d] {
				set.Covered(d, rangeOf[d])
			}
		}
	}
}
