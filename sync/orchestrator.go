// ABOUTME: Drives reconciliation passes from navigation, timer and manual triggers
// ABOUTME: Serializes passes, coalesces overlapping refreshes and writes both namespaces together
package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/telemetry"
)

// MinSyncInterval is the shortest allowed background refresh interval.
const MinSyncInterval = time.Minute

// Trigger names what asked for a refresh.
type Trigger string

const (
	TriggerNavigation Trigger = "navigation"
	TriggerTimer      Trigger = "timer"
	TriggerManual     Trigger = "manual"
	// TriggerRerun marks the pass that replays coalesced refresh requests.
	TriggerRerun Trigger = "rerun"
)

// Clock supplies the current time.
type Clock func() time.Time

// Summary reports the outcome of a refresh.
type Summary struct {
	PassID      string        `json:"pass_id,omitempty"`
	Trigger     Trigger       `json:"trigger"`
	Coalesced   bool          `json:"coalesced"`
	Fetched     int           `json:"fetched"`
	Active      int           `json:"active"`
	Archived    int           `json:"archived"`
	ArchiveKeys int           `json:"archive_keys"`
	Reruns      int           `json:"reruns"`
	Rendered    bool          `json:"rendered"`
	Duration    time.Duration `json:"duration"`
}

type Orchestrator struct {
	fetcher    Fetcher
	store      LeadStore
	reconciler *Reconciler
	renderer   Renderer
	logger     *zap.Logger
	metrics    *telemetry.Metrics
	now        Clock

	mu      stdsync.Mutex
	running bool
	pending bool
	view    *ViewContext

	// writeMu is held by a pass from LoadPartition through ReplacePartition
	// and by every Mutate, so user writes never land inside a pass's snapshot.
	writeMu stdsync.Mutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithClock(c Clock) Option {
	return func(o *Orchestrator) { o.now = c }
}

func WithRenderer(r Renderer) Option {
	return func(o *Orchestrator) { o.renderer = r }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithProtectedSource overrides DefaultProtectedSource.
func WithProtectedSource(source string) Option {
	return func(o *Orchestrator) { o.reconciler = NewReconciler(source) }
}

// NewOrchestrator creates an orchestrator reconciling fetcher's leads into store.
func NewOrchestrator(fetcher Fetcher, store LeadStore, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fetcher:    fetcher,
		store:      store,
		reconciler: NewReconciler(DefaultProtectedSource),
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Mount makes view the current view. Passes that finish while a lead view is
// mounted push the new partition to the renderer.
func (o *Orchestrator) Mount(view ViewContext) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.view = &view
}

// Unmount clears the current view.
func (o *Orchestrator) Unmount() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.view = nil
}

// Now returns the current time from the orchestrator's clock.
func (o *Orchestrator) Now() time.Time {
	return o.now()
}

// CurrentView returns the mounted view, if any.
func (o *Orchestrator) CurrentView() (ViewContext, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.view == nil {
		return ViewContext{}, false
	}
	return *o.view, true
}

// Refresh runs a reconciliation pass. If a pass is already in flight the call
// returns immediately with Coalesced set, and a single re-run is scheduled
// after the in-flight pass no matter how many calls were folded into it.
// The returned summary and error describe the last pass executed.
func (o *Orchestrator) Refresh(ctx context.Context, trigger Trigger) (Summary, error) {
	o.mu.Lock()
	if o.running {
		o.pending = true
		o.mu.Unlock()
		o.metrics.RecordCoalesced(ctx)
		o.logger.Debug("refresh coalesced", zap.String("trigger", string(trigger)))
		return Summary{Trigger: trigger, Coalesced: true}, nil
	}
	o.running = true
	o.mu.Unlock()

	summary, err := o.pass(ctx, trigger)
	reruns := 0

	// Re-runs serve every coalesced caller, not just this one.
	rerunCtx := context.WithoutCancel(ctx)

	for {
		o.mu.Lock()
		if !o.pending {
			o.running = false
			o.mu.Unlock()
			break
		}
		o.pending = false
		o.mu.Unlock()

		reruns++
		summary, err = o.pass(rerunCtx, TriggerRerun)
	}

	summary.Reruns = reruns
	return summary, err
}

// Mutate runs fn with exclusive write access to the lead namespaces. User
// actions that change the cache go through Mutate so a pass in flight cannot
// overwrite them with its older snapshot.
func (o *Orchestrator) Mutate(ctx context.Context, fn func(ctx context.Context) error) error {
	o.writeMu.Lock()
	defer o.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

// Run refreshes once immediately and then every interval until ctx is done.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration) error {
	if interval < MinSyncInterval {
		return fmt.Errorf("sync interval %s is below the %s minimum", interval, MinSyncInterval)
	}

	if _, err := o.Refresh(ctx, TriggerNavigation); err != nil {
		o.logger.Warn("initial refresh failed", zap.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := o.Refresh(ctx, TriggerTimer); err != nil {
				o.logger.Warn("scheduled refresh failed", zap.Error(err))
			}
		}
	}
}

func (o *Orchestrator) pass(ctx context.Context, trigger Trigger) (Summary, error) {
	start := o.now()
	summary := Summary{PassID: ulid.Make().String(), Trigger: trigger}
	logger := o.logger.With(zap.String("pass_id", summary.PassID), zap.String("trigger", string(trigger)))

	o.recordState(ctx, logger, models.SyncState{
		LastPassID: summary.PassID,
		Status:     models.SyncStatusSyncing,
	})

	serverLeads, err := o.fetcher.FetchLeads(ctx)
	if err != nil {
		return o.fail(ctx, logger, summary, start, fmt.Errorf("failed to fetch leads: %w", err))
	}
	summary.Fetched = len(serverLeads)

	partition, merged, archiveKeys, err := o.reconcileAndPersist(ctx, serverLeads)
	summary.ArchiveKeys = archiveKeys
	if err != nil {
		return o.fail(ctx, logger, summary, start, err)
	}
	summary.Active = len(partition.Active)
	summary.Archived = len(partition.Archived)
	summary.Duration = o.now().Sub(start)

	synced := o.now()
	o.recordState(ctx, logger, models.SyncState{
		LastSyncTime: &synced,
		LastPassID:   summary.PassID,
		Status:       models.SyncStatusIdle,
		ActiveCount:  summary.Active,
		ArchiveCount: summary.Archived,
	})

	o.metrics.RecordPass(ctx, string(trigger), "ok", summary.Duration)
	o.metrics.RecordPartition(ctx, summary.Active, summary.Archived)

	summary.Rendered = o.notify(partition)

	logger.Info("reconciliation pass complete",
		zap.Int("fetched", summary.Fetched),
		zap.Int("merged", merged),
		zap.Int("archive_keys", summary.ArchiveKeys),
		zap.Int("active", summary.Active),
		zap.Int("archived", summary.Archived),
		zap.Duration("duration", summary.Duration),
	)

	return summary, nil
}

// reconcileAndPersist partitions serverLeads against the cache and replaces
// both namespaces, holding writeMu for the whole read-modify-write.
func (o *Orchestrator) reconcileAndPersist(ctx context.Context, serverLeads []models.Lead) (models.Partition, int, int, error) {
	o.writeMu.Lock()
	defer o.writeMu.Unlock()

	cached, err := o.store.LoadPartition(ctx)
	if err != nil {
		return models.Partition{}, 0, 0, fmt.Errorf("failed to load cached leads: %w", err)
	}

	permanentIDs, err := o.store.PermanentArchiveIDs(ctx)
	if err != nil {
		return models.Partition{}, 0, 0, fmt.Errorf("failed to load permanent archive ids: %w", err)
	}

	now := o.now()
	merged := MergeWithCache(serverLeads, cached.All(), now)

	pool := make([]models.Lead, 0, len(merged)+len(cached.Active))
	pool = append(pool, merged...)
	pool = append(pool, cached.Active...)

	set := BuildArchiveSet([][]models.Lead{cached.Archived}, permanentIDs, pool)
	partition := o.reconciler.Reconcile(merged, set, now)

	if err := o.store.ReplacePartition(ctx, partition); err != nil {
		return models.Partition{}, len(merged), set.Len(), fmt.Errorf("failed to persist partition: %w", err)
	}
	return partition, len(merged), set.Len(), nil
}

func (o *Orchestrator) fail(ctx context.Context, logger *zap.Logger, summary Summary, start time.Time, err error) (Summary, error) {
	summary.Duration = o.now().Sub(start)
	logger.Error("reconciliation pass failed", zap.Error(err))

	o.recordState(ctx, logger, models.SyncState{
		LastPassID:   summary.PassID,
		Status:       models.SyncStatusError,
		ErrorMessage: err.Error(),
	})
	o.metrics.RecordPass(ctx, string(summary.Trigger), "error", summary.Duration)

	return summary, err
}

// recordState keeps the previous sync time and counts unless state carries new ones.
func (o *Orchestrator) recordState(ctx context.Context, logger *zap.Logger, state models.SyncState) {
	state.Service = models.SyncServiceLeads

	if state.LastSyncTime == nil {
		if prev, err := o.store.GetSyncState(ctx); err == nil && prev != nil {
			state.LastSyncTime = prev.LastSyncTime
			state.ActiveCount = prev.ActiveCount
			state.ArchiveCount = prev.ArchiveCount
		}
	}

	if err := o.store.RecordSyncState(ctx, state); err != nil {
		logger.Warn("failed to record sync state", zap.Error(err))
	}
}

func (o *Orchestrator) notify(p models.Partition) bool {
	if o.renderer == nil {
		return false
	}

	view, ok := o.CurrentView()
	if !ok || !view.DependsOnLeads() {
		return false
	}

	o.renderer.Render(view, p)
	return true
}
