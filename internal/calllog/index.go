package calllog

import (
	"sort"

	"github.com/roach88/understudy/internal/core"
)

// matchEntry is one recorded (version, invocation) pair for a setup.
type matchEntry struct {
	version    int64
	invocation core.Invocation
}

// matchIndex maps setup identifiers to their recorded matches, ordered by
// strictly increasing version. Storing explicit versions per setup lets the
// "matched at or before version V" probe be a plain binary search instead
// of a hash lookup under an asymmetric equality relation.
//
// The index itself is not synchronized; the owning Log serializes access.
// A Clear replaces the whole index rather than emptying it, so a
// verification context holding the old reference keeps a consistent view.
type matchIndex struct {
	bySetup map[int][]matchEntry
}

func newMatchIndex() *matchIndex {
	return &matchIndex{bySetup: make(map[int][]matchEntry)}
}

// record appends a match for a setup. Versions come from a monotonic clock,
// so entries stay sorted without re-sorting.
func (x *matchIndex) record(setupID int, version int64, inv core.Invocation) {
	x.bySetup[setupID] = append(x.bySetup[setupID], matchEntry{version: version, invocation: inv})
}

// latestAtOrBefore returns the newest invocation matched for the setup at
// or before the given version.
func (x *matchIndex) latestAtOrBefore(setupID int, version int64) (core.Invocation, bool) {
	entries := x.bySetup[setupID]
	// First entry strictly after version; the one before it is the answer.
	i := sort.Search(len(entries), func(i int) bool {
		return entries[i].version > version
	})
	if i == 0 {
		return nil, false
	}
	return entries[i-1].invocation, true
}

// records returns all matches in version order, across setups. Used when
// exporting a log to the trace store.
func (x *matchIndex) records() []MatchRecord {
	var out []MatchRecord
	for setupID, entries := range x.bySetup {
		for _, e := range entries {
			out = append(out, MatchRecord{
				SetupID:    setupID,
				Version:    e.version,
				Invocation: e.invocation,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out
}

// MatchRecord is an exported view of one matched-invocation record.
type MatchRecord struct {
	SetupID    int
	Version    int64
	Invocation core.Invocation
}
