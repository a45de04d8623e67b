package waveapp

import (
	"strconv"
	"strings"
)

// WaveOptions describes a mutating call's wave-merge participation.
// Tag is a ':'-separated template whose "id" and "rate" tokens are
// substituted with ID and a formatted Rate before comparison; "*" in
// either the template or the prior wave's resolved tag matches
// anything. The zero value never merges: an empty Rate (0) can never
// exceed the post-advance baseline rate of 1.
type WaveOptions struct {
	Tag  string
	Rate float64
	ID   string
}

// waveState is the App's rolling wave-merge memory: the most recently
// resolved tag tokens and the rate that produced them.
type waveState struct {
	tag  []string
	rate float64
}

// resolveTag splits tmpl on ':' and substitutes the literal tokens
// "id" and "rate" with the call's id and formatted rate.
func resolveTag(tmpl, id string, rate float64) []string {
	tokens := strings.Split(tmpl, ":")
	for i, t := range tokens {
		switch t {
		case "id":
			tokens[i] = id
		case "rate":
			tokens[i] = strconv.FormatFloat(rate, 'g', -1, 64)
		}
	}
	return tokens
}

// tagsMatch compares two resolved tag token arrays elementwise,
// treating "*" in either array as a wildcard.
func tagsMatch(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] == "*" || b[i] == "*" {
			continue
		}
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// decide applies the wave-merge rule: a call merges into the live top
// world iff the resolved tag matches the previous wave's tag
// elementwise and the incoming rate exceeds the previous wave's rate.
// A merge keeps the baseline rate moving forward (becomes the new
// comparison point); a non-merge resets it to 1 and remembers the new
// tag — preserved as-specified per the spec's open question on this
// exact reset behavior.
func (ws *waveState) decide(tmpl, id string, rate float64) bool {
	tokens := resolveTag(tmpl, id, rate)
	if ws.tag != nil && tagsMatch(ws.tag, tokens) && rate > ws.rate {
		ws.rate = rate
		return true
	}
	ws.tag = tokens
	ws.rate = 1
	return false
}

// reset clears the wave memory, as happens whenever undo/redo breaks
// the running wave by changing the live top out from under it.
func (ws *waveState) reset() {
	ws.tag = nil
	ws.rate = 0
}
