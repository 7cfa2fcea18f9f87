package calllog

import (
	"github.com/roach88/understudy/internal/registry"
)

// Context is a point-in-time view over the matched-invocation index, used
// to answer "was this setup satisfied" as of the capture. Contexts are
// short-lived: create one per verification pass and Close it afterward.
type Context struct {
	log     *Log
	idx     *matchIndex
	version int64
}

// AsContext atomically captures the current index reference and version.
// Matches recorded after the capture carry higher versions and stay
// invisible; a concurrent Clear swaps the log's index and leaves the
// captured one untouched.
func (l *Log) AsContext() *Context {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &Context{log: l, idx: l.index, version: l.clock.Current()}
}

// IsMatchedBy reports whether some recorded match for the setup exists at
// or before the captured version. When it does, the matched invocation is
// marked verified (idempotent).
//
// A non-nil skip predicate excludes setups from this pass: when skip
// returns true the setup counts as satisfied without probing the index.
//
// Probing a closed context reports no match.
func (c *Context) IsMatchedBy(s registry.RegisteredSetup, skip func(registry.RegisteredSetup) bool) bool {
	if skip != nil && skip(s) {
		return true
	}
	if c.idx == nil {
		return false
	}

	// The captured index may still receive concurrent records until the
	// next Clear, so the probe runs under the log's lock.
	c.log.mu.Lock()
	defer c.log.mu.Unlock()

	inv, ok := c.idx.latestAtOrBefore(s.ID, c.version)
	if !ok {
		return false
	}
	inv.MarkVerified()
	return true
}

// Version returns the captured version.
func (c *Context) Version() int64 {
	return c.version
}

// Close releases the captured index reference so it can be reclaimed. The
// context must not be used afterward.
func (c *Context) Close() {
	c.idx = nil
}
