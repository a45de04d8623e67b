package world

// lookupCacheThreshold is the ancestor-chain depth beyond which lock
// opportunistically flattens reads into a LookupCache. It is a var
// rather than a const so pkg/config can override it at startup
// (SetLookupCacheThreshold); the default matches the "64" spec.md §4.5
// names.
var lookupCacheThreshold = 64

// SetLookupCacheThreshold overrides the ancestor-chain depth that
// triggers opportunistic LookupCache building. It affects only worlds
// locked afterward; it is meant to be called once, at startup, before
// any World is created.
func SetLookupCacheThreshold(n int) {
	lookupCacheThreshold = n
}

// cacheEntry is one Ref's fully merged slot array as of the world
// the cache was built on.
type cacheEntry struct {
	class *Schema
	slots []Value
}

// lookupCache is the flat map id -> (model, slot[]) the spec
// describes: built top-down so a world many generations deep can
// still resolve any ancestor's slot in O(1), instead of walking the
// whole chain.
type lookupCache struct {
	entries map[string]*cacheEntry
}

// buildLookupCache walks from w up through however many consecutive
// uncached ancestors exist, and — only if that chain is longer than
// lookupCacheThreshold — merges them (and any cache found at the top
// of the chain) into a single flat cache stored on w. Nearer worlds'
// writes/reads override farther ones, since they're more recent.
func (w *World) buildLookupCache() {
	var chain []*World
	cur := w
	for cur != nil && cur.cache == nil {
		chain = append(chain, cur)
		cur = cur.parent
	}
	if len(chain) <= lookupCacheThreshold {
		return
	}

	merged := map[string]*cacheEntry{}
	if cur != nil && cur.cache != nil {
		for id, e := range cur.cache.entries {
			merged[id] = &cacheEntry{class: e.class, slots: append([]Value(nil), e.slots...)}
		}
	}

	for i := len(chain) - 1; i >= 0; i-- {
		layer := chain[i]
		for id, m := range layer.models {
			entry, ok := merged[id]
			if !ok {
				entry = &cacheEntry{class: m.Class, slots: make([]Value, m.Class.SlotCount())}
				for j := range entry.slots {
					entry.slots[j] = None
				}
				merged[id] = entry
			}
			for j := 0; j < m.Class.SlotCount(); j++ {
				if !IsNone(m.writes[j]) {
					entry.slots[j] = m.writes[j]
				} else if !IsNone(m.reads[j]) {
					entry.slots[j] = m.reads[j]
				}
			}
		}
	}
	w.cache = &lookupCache{entries: merged}
}
