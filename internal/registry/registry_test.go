package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/understudy/internal/core"
	"github.com/roach88/understudy/internal/testutil"
)

func TestRegistry_Add_AssignsDenseIdentifiers(t *testing.T) {
	r := New()

	s0 := r.Add(testutil.NewSetup("Cart", "addItem", 2))
	s1 := r.Add(testutil.NewSetup("Cart", "removeItem", 1))
	s2 := r.Add(testutil.NewSetup("Cart", "checkout", 0))

	assert.Equal(t, 0, s0.ID)
	assert.Equal(t, 1, s1.ID)
	assert.Equal(t, 2, s2.ID)
	assert.Equal(t, 3, r.Len())
}

func TestRegistry_Add_DerivesCanVerify(t *testing.T) {
	r := New()

	void := testutil.NewSetup("Cart", "clear", 0)
	void.SetupKind = core.KindVoid

	ret := testutil.NewSetup("Cart", "total", 0)
	ret.SetupKind = core.KindReturn

	assert.False(t, r.Add(void).CanVerify)
	assert.True(t, r.Add(ret).CanVerify)
}

func TestRegistry_Add_IdentifiersNotReusedAfterClear(t *testing.T) {
	r := New()
	r.Add(testutil.NewSetup("Cart", "addItem", 2))
	r.Add(testutil.NewSetup("Cart", "removeItem", 1))

	r.Clear()
	assert.Equal(t, 0, r.Len())

	s := r.Add(testutil.NewSetup("Cart", "checkout", 0))
	assert.Equal(t, 2, s.ID, "identifiers keep counting across Clear")
}

func TestRegistry_FindMatchFor_EmptyFastPath(t *testing.T) {
	r := New()

	_, ok := r.FindMatchFor(testutil.NewInvocation("Cart", "addItem", "sku-1", 2))
	assert.False(t, ok)
}

func TestRegistry_FindMatchFor_RecencyWins(t *testing.T) {
	r := New()

	// Overlapping predicates: both match the same call.
	s1 := testutil.NewSetup("Cart", "addItem", 2)
	s1.Exp = core.MustExpectation(s1.Sig, core.Object{"pattern": core.String("old")})
	s2 := testutil.NewSetup("Cart", "addItem", 2)
	s2.Exp = core.MustExpectation(s2.Sig, core.Object{"pattern": core.String("new")})

	r.Add(s1)
	newer := r.Add(s2)

	got, ok := r.FindMatchFor(testutil.NewInvocation("Cart", "addItem", "sku-1", 2))
	require.True(t, ok)
	assert.Equal(t, newer.ID, got.ID)
}

func TestRegistry_FindMatchFor_ExactSignatureShortCircuit(t *testing.T) {
	r := New()

	older := testutil.NewSetup("Cart", "addItem", 2)
	older.Exp = core.MustExpectation(older.Sig, core.Object{"pattern": core.String("old")})
	newer := testutil.NewSetup("Cart", "addItem", 2)
	newer.Exp = core.MustExpectation(newer.Sig, core.Object{"pattern": core.String("new")})

	olderCalls := 0
	older.MatchFunc = func(call core.Invocation) bool {
		olderCalls++
		return true
	}

	r.Add(older)
	want := r.Add(newer)

	got, ok := r.FindMatchFor(testutil.NewInvocation("Cart", "addItem", "sku-1", 2))
	require.True(t, ok)
	assert.Equal(t, want.ID, got.ID)
	assert.Zero(t, olderCalls, "exact-signature match must stop the scan")
}

func TestRegistry_FindMatchFor_OlderExactSignatureOutranksInexactMatch(t *testing.T) {
	r := New()

	// Older setup sits on the call's exact signature; the newer one matches
	// the call through a broader predicate on a different signature.
	exact := testutil.NewSetup("Cart", "addItem", 2)
	exact.Exp = core.MustExpectation(exact.Sig, core.Object{"pattern": core.String("exact")})

	broad := &testutil.FakeSetup{
		Sig:       core.NewMethod("Cart", "addItem", 1),
		MatchFunc: func(call core.Invocation) bool { return call.Method().Name == "addItem" },
		Exp:       core.MustExpectation(core.NewMethod("Cart", "addItem", 1), core.Object{"pattern": core.String("broad")}),
	}

	want := r.Add(exact)
	r.Add(broad)

	got, ok := r.FindMatchFor(testutil.NewInvocation("Cart", "addItem", "sku-1", 2))
	require.True(t, ok)
	assert.Equal(t, want.ID, got.ID)
}

func TestRegistry_FindMatchFor_NoMatch(t *testing.T) {
	r := New()
	r.Add(testutil.NewSetup("Cart", "addItem", 2))

	_, ok := r.FindMatchFor(testutil.NewInvocation("Cart", "checkout"))
	assert.False(t, ok)
}

func TestRegistry_ToArrayLive_CollapsesDuplicates(t *testing.T) {
	r := New()

	exp := core.MustExpectation(core.NewMethod("Cart", "addItem", 2), core.Object{"args": core.String("*")})
	s1 := testutil.NewSetup("Cart", "addItem", 2)
	s1.Exp = exp
	s2 := testutil.NewSetup("Cart", "addItem", 2)
	s2.Exp = exp

	r.Add(s1)
	newer := r.Add(s2)

	live := r.ToArrayLive(nil)
	require.Len(t, live, 1)
	assert.Equal(t, newer.ID, live[0].ID)

	// Once shadowed, the memo keeps the result stable on repeat calls.
	live = r.ToArrayLive(nil)
	require.Len(t, live, 1)
	assert.Equal(t, newer.ID, live[0].ID)
}

func TestRegistry_ToArrayLive_NewestFirst(t *testing.T) {
	r := New()
	first := r.Add(testutil.NewSetup("Cart", "addItem", 2))
	second := r.Add(testutil.NewSetup("Cart", "removeItem", 1))

	live := r.ToArrayLive(nil)
	require.Len(t, live, 2)
	assert.Equal(t, second.ID, live[0].ID)
	assert.Equal(t, first.ID, live[1].ID)
}

func TestRegistry_ToArrayLive_GuardedSetupsNeverCollapse(t *testing.T) {
	r := New()

	exp := core.MustExpectation(core.NewMethod("Cart", "addItem", 2), core.Object{"args": core.String("*")})
	plain := testutil.NewSetup("Cart", "addItem", 2)
	plain.Exp = exp
	guarded := testutil.NewSetup("Cart", "addItem", 2)
	guarded.Exp = exp
	guarded.Guarded = true

	r.Add(plain)
	r.Add(guarded)

	live := r.ToArrayLive(nil)
	assert.Len(t, live, 2, "a guarded duplicate must appear alongside the unguarded one")
}

func TestRegistry_ToArrayLive_ShadowingBeyondThirtyTwoEntries(t *testing.T) {
	r := New()

	// Fill past any fixed-width mask, then register a duplicate of an
	// early expectation. The duplicate detection must still collapse it.
	exp := core.MustExpectation(core.NewMethod("Svc", "ping", 0), core.Object{"args": core.String("*")})
	dup1 := testutil.NewSetup("Svc", "ping", 0)
	dup1.Exp = exp
	r.Add(dup1)

	for i := 0; i < 40; i++ {
		r.Add(testutil.NewSetup("Svc", "other", i))
	}

	dup2 := testutil.NewSetup("Svc", "ping", 0)
	dup2.Exp = exp
	newest := r.Add(dup2)
	require.Greater(t, newest.ID, 32)

	var pings []RegisteredSetup
	for _, s := range r.ToArrayLive(nil) {
		if s.Method().Name == "ping" {
			pings = append(pings, s)
		}
	}
	require.Len(t, pings, 1)
	assert.Equal(t, newest.ID, pings[0].ID)
}

func TestRegistry_GetInnerMockSetups(t *testing.T) {
	r := New()

	inner := testutil.NewSetup("Svc", "repo", 0)
	inner.SetupKind = core.KindReturn
	inner.Inner = struct{ name string }{"inner-mock"}

	r.Add(testutil.NewSetup("Svc", "ping", 0))
	want := r.Add(inner)

	got := r.GetInnerMockSetups()
	require.Len(t, got, 1)
	assert.Equal(t, want.ID, got[0].ID)
}

func TestRegistry_Any_SeesShadowedEntries(t *testing.T) {
	r := New()

	exp := core.MustExpectation(core.NewMethod("Svc", "ping", 0), core.Object{"args": core.String("*")})
	old := testutil.NewSetup("Svc", "ping", 0)
	old.Exp = exp
	dup := testutil.NewSetup("Svc", "ping", 0)
	dup.Exp = exp

	shadowedID := r.Add(old).ID
	r.Add(dup)
	r.ToArrayLive(nil) // trigger shadow detection

	assert.True(t, r.Any(func(s RegisteredSetup) bool { return s.ID == shadowedID }))
}

func TestRegistry_ConcurrentAddAndMatch(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				r.Add(testutil.NewSetup("Svc", "ping", 0))
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				r.FindMatchFor(testutil.NewInvocation("Svc", "ping"))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, r.Len())
	_, ok := r.FindMatchFor(testutil.NewInvocation("Svc", "ping"))
	assert.True(t, ok)
}
