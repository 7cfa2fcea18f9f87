// Package registry implements the ordered, append-only setup collection and
// its override-aware matching: most recent specification wins, and an
// identical later specification shadows an earlier one.
package registry

import (
	"sync"
	"sync/atomic"

	"github.com/roach88/understudy/internal/core"
)

// RegisteredSetup wraps a Setup with the dense, zero-based identifier
// assigned at registration time. Identifiers are never reassigned or reused
// within the lifetime of a Registry.
type RegisteredSetup struct {
	core.Setup

	// ID is the registration order, starting at 0.
	ID int

	// CanVerify is derived once at registration: only setups of the kind
	// that owns a nested mock participate in recursive verification.
	CanVerify bool
}

// Registry is the ordered collection of registered setups. All operations
// are safe for concurrent use; mutation and matching share one lock.
type Registry struct {
	mu       sync.Mutex
	setups   []RegisteredSetup
	nextID   int
	shadowed bitset

	// size mirrors len(setups) so FindMatchFor can take its empty fast
	// path without the lock. A stale zero only causes a benign "no match";
	// a stale non-zero falls through to the locked path.
	size atomic.Int64
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{}
}

// Add registers a setup under the next identifier and returns the wrapper.
// Identifiers keep counting across Clear so a stale identifier can never
// alias a later registration.
func (r *Registry) Add(s core.Setup) RegisteredSetup {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs := RegisteredSetup{
		Setup:     s,
		ID:        r.nextID,
		CanVerify: s.Kind() == core.KindReturn,
	}
	r.nextID++
	r.setups = append(r.setups, rs)
	r.size.Store(int64(len(r.setups)))
	return rs
}

// Len returns the number of registered setups, including shadowed ones.
func (r *Registry) Len() int {
	return int(r.size.Load())
}

// FindMatchFor resolves the setup governing a call, scanning non-shadowed
// entries from newest to oldest so that recency wins. The comma-ok result
// is false when no registered setup matches.
//
// The scan is two-tier: until some candidate matches, every candidate's
// full predicate is evaluated. Once one has matched, older candidates are
// considered only if their signature exactly equals the call's signature,
// because only an exact-signature setup can out-rank a match that was not
// itself exact. An exact-signature match ends the scan immediately.
func (r *Registry) FindMatchFor(call core.Invocation) (RegisteredSetup, bool) {
	if r.size.Load() == 0 {
		return RegisteredSetup{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var matched RegisteredSetup
	found := false
	for i := len(r.setups) - 1; i >= 0; i-- {
		if r.shadowed.Get(i) {
			continue
		}
		s := r.setups[i]
		if !found {
			if s.Matches(call) {
				matched, found = s, true
				if s.Method() == call.Method() {
					break
				}
			}
		} else if s.Method() == call.Method() && s.Matches(call) {
			matched = s
			break
		}
	}
	return matched, found
}

// ToArrayLive returns, newest first, the live (non-shadowed) setups
// satisfying pred. A nil pred keeps everything live.
//
// Override detection runs during the walk: the newest occurrence of each
// expectation identity is kept, older unguarded duplicates are skipped and
// memoized in the shadow set so later scans skip them without repeating the
// identity check. Conditional setups take no part in shadowing: they
// neither hide other setups nor get hidden by signature.
func (r *Registry) ToArrayLive(pred func(RegisteredSetup) bool) []RegisteredSetup {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[core.Expectation]struct{})
	var live []RegisteredSetup
	for i := len(r.setups) - 1; i >= 0; i-- {
		if r.shadowed.Get(i) {
			continue
		}
		s := r.setups[i]
		if !s.Conditional() {
			exp := s.Expectation()
			if _, dup := seen[exp]; dup {
				r.shadowed.Set(i)
				continue
			}
			seen[exp] = struct{}{}
		}
		if pred == nil || pred(s) {
			live = append(live, s)
		}
	}
	return live
}

// GetInnerMockSetups returns the live setups that materialize a nested
// mock, newest first. Used by the verification traversal to descend into
// inner mocks.
func (r *Registry) GetInnerMockSetups() []RegisteredSetup {
	return r.ToArrayLive(func(s RegisteredSetup) bool {
		_, ok := s.InnerMock()
		return ok
	})
}

// ByID returns the registered setup with the given identifier, shadowed or
// not. The comma-ok result is false for identifiers cleared away or never
// issued.
func (r *Registry) ByID(id int) (RegisteredSetup, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.setups {
		if s.ID == id {
			return s, true
		}
	}
	return RegisteredSetup{}, false
}

// Any reports whether any registered setup, shadowed or not, satisfies
// pred. Existence checks are unrelated to dispatch and ignore overrides.
func (r *Registry) Any(pred func(RegisteredSetup) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.setups {
		if pred(s) {
			return true
		}
	}
	return false
}

// Clear discards all setups and the shadow memo atomically.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.setups = nil
	r.shadowed.Reset()
	r.size.Store(0)
}
