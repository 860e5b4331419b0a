package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadsync/models"
)

func fixedClock() Clock {
	return func() time.Time { return testNow }
}

func staticFetcher(leads ...models.Lead) FetcherFunc {
	return func(context.Context) ([]models.Lead, error) {
		return append([]models.Lead(nil), leads...), nil
	}
}

func TestRefreshPartitionsAndPersists(t *testing.T) {
	store := newMemStore(
		[]models.Lead{{ID: "1", ReachOut: models.ReachOut{CallAttempts: 2}}},
		[]models.Lead{{ID: "5", Name: "Archived By User", Archived: true}},
	)
	store.permanentIDs = []string{"6"}

	fetcher := staticFetcher(
		models.Lead{ID: "1", Stage: models.StageQuoted},
		models.Lead{ID: "5", Name: "Archived By User"},
		models.Lead{ID: "6", Source: "Website"},
		models.Lead{ID: "7", Source: "ViciDial"},
		models.Lead{ID: "8", Archived: true},
	)

	o := NewOrchestrator(fetcher, store, WithClock(fixedClock()))
	summary, err := o.Refresh(context.Background(), TriggerManual)
	require.NoError(t, err)

	assert.False(t, summary.Coalesced)
	assert.NotEmpty(t, summary.PassID)
	assert.Equal(t, 5, summary.Fetched)
	assert.Equal(t, 2, summary.Active)
	assert.Equal(t, 3, summary.Archived)

	p := store.snapshot()
	require.Len(t, p.Active, 2)
	assert.Equal(t, "1", p.Active[0].ID)
	assert.Equal(t, 2, p.Active[0].ReachOut.CallAttempts, "cached outreach carried over")
	assert.Equal(t, "7", p.Active[1].ID)

	require.Len(t, p.Archived, 3)
	assert.Equal(t, "5", p.Archived[0].ID)
	assert.Equal(t, "6", p.Archived[1].ID)
	assert.Equal(t, "8", p.Archived[2].ID)

	state, err := store.GetSyncState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SyncServiceLeads, state.Service)
	assert.Equal(t, models.SyncStatusIdle, state.Status)
	assert.Equal(t, summary.PassID, state.LastPassID)
	assert.Equal(t, 2, state.ActiveCount)
	assert.Equal(t, 3, state.ArchiveCount)
	require.NotNil(t, state.LastSyncTime)
}

func TestRefreshIsIdempotent(t *testing.T) {
	store := newMemStore(nil, nil)
	store.permanentIDs = []string{"3"}
	fetcher := staticFetcher(
		models.Lead{ID: "1", Source: "ViciDial"},
		models.Lead{ID: "2", Archived: true},
		models.Lead{ID: "3"},
		models.Lead{ID: "4", Email: "x@example.com"},
	)

	o := NewOrchestrator(fetcher, store, WithClock(fixedClock()))

	_, err := o.Refresh(context.Background(), TriggerManual)
	require.NoError(t, err)
	first := store.snapshot()

	_, err = o.Refresh(context.Background(), TriggerManual)
	require.NoError(t, err)
	second := store.snapshot()

	assert.Equal(t, first, second)
}

func TestRefreshFetchFailureRetainsState(t *testing.T) {
	store := newMemStore([]models.Lead{{ID: "1"}}, []models.Lead{{ID: "2", Archived: true}})
	before := store.snapshot()

	fetchErr := errors.New("server unavailable")
	fetcher := FetcherFunc(func(context.Context) ([]models.Lead, error) { return nil, fetchErr })

	o := NewOrchestrator(fetcher, store, WithClock(fixedClock()))
	_, err := o.Refresh(context.Background(), TriggerTimer)

	require.Error(t, err)
	assert.ErrorIs(t, err, fetchErr)
	assert.Equal(t, 0, store.replaceCalls)
	assert.Equal(t, before, store.snapshot())

	state, stateErr := store.GetSyncState(context.Background())
	require.NoError(t, stateErr)
	assert.Equal(t, models.SyncStatusError, state.Status)
	assert.Contains(t, state.ErrorMessage, "server unavailable")
}

func TestRefreshLoadFailureRetainsState(t *testing.T) {
	store := newMemStore([]models.Lead{{ID: "1"}}, nil)
	store.loadErr = errors.New("disk on fire")

	o := NewOrchestrator(staticFetcher(models.Lead{ID: "9"}), store, WithClock(fixedClock()))
	_, err := o.Refresh(context.Background(), TriggerManual)

	require.Error(t, err)
	assert.Equal(t, 0, store.replaceCalls)
}

func TestRefreshKeepsPreviousSyncTimeOnFailure(t *testing.T) {
	store := newMemStore(nil, nil)
	var fail atomic.Bool
	fetcher := FetcherFunc(func(context.Context) ([]models.Lead, error) {
		if fail.Load() {
			return nil, errors.New("boom")
		}
		return []models.Lead{{ID: "1"}}, nil
	})

	o := NewOrchestrator(fetcher, store, WithClock(fixedClock()))
	_, err := o.Refresh(context.Background(), TriggerManual)
	require.NoError(t, err)

	fail.Store(true)
	_, err = o.Refresh(context.Background(), TriggerManual)
	require.Error(t, err)

	state, err := store.GetSyncState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusError, state.Status)
	require.NotNil(t, state.LastSyncTime)
	assert.Equal(t, 1, state.ActiveCount)
}

func TestRefreshCoalescesOverlappingCalls(t *testing.T) {
	store := newMemStore(nil, nil)

	var calls atomic.Int32
	started := make(chan struct{}, 16)
	release := make(chan struct{})

	fetcher := FetcherFunc(func(context.Context) ([]models.Lead, error) {
		n := calls.Add(1)
		started <- struct{}{}
		if n == 1 {
			<-release
		}
		return []models.Lead{{ID: "1"}}, nil
	})

	o := NewOrchestrator(fetcher, store, WithClock(fixedClock()))

	type result struct {
		summary Summary
		err     error
	}
	done := make(chan result, 1)
	go func() {
		s, err := o.Refresh(context.Background(), TriggerNavigation)
		done <- result{s, err}
	}()

	<-started

	for i := 0; i < 5; i++ {
		s, err := o.Refresh(context.Background(), TriggerTimer)
		require.NoError(t, err)
		assert.True(t, s.Coalesced)
	}

	close(release)
	res := <-done

	require.NoError(t, res.err)
	assert.Equal(t, 1, res.summary.Reruns)
	assert.Equal(t, TriggerRerun, res.summary.Trigger)
	assert.Equal(t, int32(2), calls.Load(), "five coalesced calls must produce exactly one re-run")
	assert.Equal(t, 2, store.replaceCalls)
}

func TestRefreshConcurrentCallersNeverInterleave(t *testing.T) {
	store := newMemStore(nil, nil)

	var inFlight, maxInFlight atomic.Int32
	fetcher := FetcherFunc(func(context.Context) ([]models.Lead, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		return []models.Lead{{ID: "1"}}, nil
	})

	o := NewOrchestrator(fetcher, store, WithClock(fixedClock()))

	var wg stdsync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = o.Refresh(context.Background(), TriggerManual)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load())
	assert.Len(t, store.snapshot().Active, 1)
}

func TestRefreshNotifiesMountedLeadView(t *testing.T) {
	store := newMemStore(nil, nil)

	var rendered []ViewContext
	renderer := RendererFunc(func(view ViewContext, p models.Partition) {
		rendered = append(rendered, view)
		assert.Len(t, p.Active, 1)
	})

	o := NewOrchestrator(staticFetcher(models.Lead{ID: "1"}), store,
		WithClock(fixedClock()), WithRenderer(renderer))

	summary, err := o.Refresh(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.False(t, summary.Rendered, "nothing mounted")

	o.Mount(ViewContext{Name: ViewSettings})
	summary, err = o.Refresh(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.False(t, summary.Rendered, "settings does not show leads")

	o.Mount(ViewContext{Name: ViewTodos, SortField: "createdAt", SortDesc: true})
	summary, err = o.Refresh(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.True(t, summary.Rendered)

	o.Unmount()
	summary, err = o.Refresh(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.False(t, summary.Rendered)

	require.Len(t, rendered, 1)
	assert.Equal(t, ViewTodos, rendered[0].Name)
	assert.True(t, rendered[0].SortDesc)
}

func TestViewDependsOnLeads(t *testing.T) {
	for _, name := range []string{ViewLeads, ViewTodos, ViewDashboard, ViewArchive} {
		assert.True(t, ViewContext{Name: name}.DependsOnLeads(), name)
	}
	for _, name := range []string{ViewPolicies, ViewSettings, ""} {
		assert.False(t, ViewContext{Name: name}.DependsOnLeads(), name)
	}
}

func TestRunRejectsShortInterval(t *testing.T) {
	o := NewOrchestrator(staticFetcher(), newMemStore(nil, nil))
	err := o.Run(context.Background(), time.Second)
	assert.Error(t, err)
}

func TestRunRefreshesUntilCancelled(t *testing.T) {
	store := newMemStore(nil, nil)
	fetched := make(chan struct{}, 1)

	fetcher := FetcherFunc(func(context.Context) ([]models.Lead, error) {
		select {
		case fetched <- struct{}{}:
		default:
		}
		return []models.Lead{{ID: "1"}}, nil
	})

	o := NewOrchestrator(fetcher, store, WithClock(fixedClock()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx, MinSyncInterval) }()

	<-fetched
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRefreshPersistFailureRetainsState(t *testing.T) {
	store := newMemStore([]models.Lead{{ID: "1", Name: "Ada"}}, []models.Lead{{ID: "2", Archived: true}})
	before := store.snapshot()

	replaceErr := errors.New("disk full")
	store.replaceErr = replaceErr

	o := NewOrchestrator(staticFetcher(models.Lead{ID: "1"}, models.Lead{ID: "3"}), store, WithClock(fixedClock()))
	summary, err := o.Refresh(context.Background(), TriggerManual)

	require.Error(t, err)
	assert.ErrorIs(t, err, replaceErr)
	assert.Contains(t, err.Error(), "failed to persist partition")
	assert.Equal(t, 1, store.replaceCalls)
	assert.Equal(t, 0, summary.Active)
	assert.Equal(t, before, store.snapshot())

	state, stateErr := store.GetSyncState(context.Background())
	require.NoError(t, stateErr)
	assert.Equal(t, models.SyncStatusError, state.Status)
	assert.Contains(t, state.ErrorMessage, "disk full")
}

// blockingStore holds the first ReplacePartition until release is closed.
type blockingStore struct {
	*memStore
	entered chan struct{}
	release chan struct{}
	once    stdsync.Once
}

func (s *blockingStore) ReplacePartition(ctx context.Context, p models.Partition) error {
	s.once.Do(func() {
		close(s.entered)
		<-s.release
	})
	return s.memStore.ReplacePartition(ctx, p)
}

func TestMutateDuringPassIsNotOverwritten(t *testing.T) {
	store := &blockingStore{
		memStore: newMemStore(nil, nil),
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	ctx := context.Background()

	o := NewOrchestrator(staticFetcher(
		models.Lead{ID: "1", Name: "Ada"},
		models.Lead{ID: "2", Name: "Bob"},
	), store, WithClock(fixedClock()))

	refreshed := make(chan error, 1)
	go func() {
		_, err := o.Refresh(ctx, TriggerTimer)
		refreshed <- err
	}()
	<-store.entered

	// The pass has loaded the cache and is about to write its partition.
	mutated := make(chan error, 1)
	go func() {
		mutated <- o.Mutate(ctx, func(ctx context.Context) error {
			p, err := store.LoadPartition(ctx)
			if err != nil {
				return err
			}
			if err := p.Archive("1", testNow); err != nil {
				return err
			}
			return store.memStore.ReplacePartition(ctx, p)
		})
	}()

	select {
	case <-mutated:
		t.Fatal("archive ran while the pass held the namespaces")
	case <-time.After(50 * time.Millisecond):
	}

	close(store.release)
	require.NoError(t, <-refreshed)
	require.NoError(t, <-mutated)

	_, ns, ok := store.snapshot().Find("1")
	require.True(t, ok)
	assert.Equal(t, models.NamespaceArchived, ns)

	_, err := o.Refresh(ctx, TriggerTimer)
	require.NoError(t, err)

	_, ns, ok = store.snapshot().Find("1")
	require.True(t, ok)
	assert.Equal(t, models.NamespaceArchived, ns, "the next pass keeps the user's archive")
}

func TestMutateHonorsCancelledContext(t *testing.T) {
	o := NewOrchestrator(staticFetcher(), newMemStore(nil, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := o.Mutate(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestRerunSurvivesCancelledCallerContext(t *testing.T) {
	store := newMemStore(nil, nil)

	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})

	fetcher := FetcherFunc(func(ctx context.Context) ([]models.Lead, error) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return []models.Lead{{ID: "1"}}, nil
	})

	o := NewOrchestrator(fetcher, store, WithClock(fixedClock()))

	type result struct {
		summary Summary
		err     error
	}
	requestCtx, cancel := context.WithCancel(context.Background())
	done := make(chan result, 1)
	go func() {
		s, err := o.Refresh(requestCtx, TriggerManual)
		done <- result{s, err}
	}()
	<-entered

	s, err := o.Refresh(context.Background(), TriggerTimer)
	require.NoError(t, err)
	require.True(t, s.Coalesced)

	cancel()
	close(release)
	res := <-done

	require.NoError(t, res.err, "the re-run owed to the timer must not inherit the cancelled request")
	assert.Equal(t, 1, res.summary.Reruns)
	assert.Len(t, store.snapshot().Active, 1)
}
