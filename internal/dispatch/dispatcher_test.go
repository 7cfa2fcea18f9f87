package dispatch

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/understudy/internal/calllog"
	"github.com/roach88/understudy/internal/core"
	"github.com/roach88/understudy/internal/registry"
	"github.com/roach88/understudy/internal/testutil"
)

func newDispatcher() *Dispatcher {
	return New(registry.New(), calllog.New(), nil)
}

func TestDispatcher_MatchedCallIsLoggedAndRecorded(t *testing.T) {
	d := newDispatcher()
	s := d.Registry().Add(testutil.NewSetup("Cart", "addItem", 2))

	call := testutil.NewInvocation("Cart", "addItem", "sku-1", 2)
	res := d.Dispatch(call)

	require.True(t, res.Matched)
	assert.Equal(t, s.ID, res.Setup.ID)
	assert.Equal(t, int64(1), res.Version)
	assert.Equal(t, 1, d.Log().Count())

	recs := d.Log().MatchRecords()
	require.Len(t, recs, 1)
	assert.Equal(t, s.ID, recs[0].SetupID)
}

func TestDispatcher_UnmatchedCallIsStillLogged(t *testing.T) {
	d := newDispatcher()

	res := d.Dispatch(testutil.NewInvocation("Cart", "checkout"))

	assert.False(t, res.Matched)
	assert.Zero(t, res.Version)
	assert.Equal(t, 1, d.Log().Count())
	assert.Empty(t, d.Log().MatchRecords())
}

func TestDispatcher_RecencyAcrossDispatches(t *testing.T) {
	d := newDispatcher()

	old := testutil.NewSetup("Cart", "addItem", 2)
	old.Exp = core.MustExpectation(old.Sig, core.Object{"pattern": core.String("old")})
	d.Registry().Add(old)

	newer := testutil.NewSetup("Cart", "addItem", 2)
	newer.Exp = core.MustExpectation(newer.Sig, core.Object{"pattern": core.String("new")})
	want := d.Registry().Add(newer)

	res := d.Dispatch(testutil.NewInvocation("Cart", "addItem", "sku-1", 2))
	require.True(t, res.Matched)
	assert.Equal(t, want.ID, res.Setup.ID)
}

func TestDispatcher_Unsatisfied(t *testing.T) {
	d := newDispatcher()

	hit := d.Registry().Add(testutil.NewSetup("Cart", "addItem", 2))
	miss := d.Registry().Add(testutil.NewSetup("Cart", "checkout", 0))

	d.Dispatch(testutil.NewInvocation("Cart", "addItem", "sku-1", 2))

	unsat := d.Unsatisfied([]registry.RegisteredSetup{hit, miss}, nil)
	require.Len(t, unsat, 1)
	assert.Equal(t, miss.ID, unsat[0].ID)
}

func TestDispatcher_UnsatisfiedHonorsSkip(t *testing.T) {
	d := newDispatcher()
	miss := d.Registry().Add(testutil.NewSetup("Cart", "checkout", 0))

	unsat := d.Unsatisfied([]registry.RegisteredSetup{miss},
		func(s registry.RegisteredSetup) bool { return !s.CanVerify })
	assert.Empty(t, unsat, "void setups are skipped by this pass")
}

func TestDispatcher_ConcurrentDispatch(t *testing.T) {
	d := newDispatcher()
	d.Registry().Add(testutil.NewSetup("Svc", "call", 1))

	const workers, perWorker = 8, 100
	var wg sync.WaitGroup
	for g := 0; g < workers; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				d.Dispatch(testutil.NewInvocation("Svc", "call", i))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*perWorker, d.Log().Count())

	recs := d.Log().MatchRecords()
	require.Len(t, recs, workers*perWorker)
	for i := 1; i < len(recs); i++ {
		require.Greater(t, recs[i].Version, recs[i-1].Version)
	}
	assert.Equal(t, int64(workers*perWorker), d.Log().Version())
}
