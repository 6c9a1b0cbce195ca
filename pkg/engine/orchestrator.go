package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kheopsian/Seederr/internal/logger"
)

// Cycle phases, in execution order.
const (
	PhaseFetch     = "FETCH"
	PhaseScore     = "SCORE"
	PhasePlan      = "PLAN"
	PhaseReconcile = "RECONCILE"
	PhaseExecute   = "EXECUTE"
	PhasePersist   = "PERSIST"
)

// Tunables are the runtime knobs of the engine. They are read once at the
// start of every cycle, so updates (config hot reload) take effect on the
// next cycle without restarting the process.
type Tunables struct {
	Weights           Weights
	TargetFillPercent int
	MaxMovesPerCycle  int
	DryRun            bool
	MetricGracePeriod time.Duration
}

// Orchestrator drives the rebalance cycle state machine
// FETCH -> SCORE -> PLAN -> RECONCILE -> EXECUTE -> PERSIST -> IDLE
// on a fixed interval. Cycles are strictly sequential: no cycle begins before
// the previous one is idle, so no engine state needs locking within a cycle.
type Orchestrator struct {
	source   TorrentSource
	store    MetricStore
	stat     StorageStat
	transfer FileTransfer
	paths    TierPaths

	reconciler *Reconciler
	executor   *Executor
	metrics    CycleMetrics

	mu       sync.Mutex
	tunables Tunables
}

// NewOrchestrator wires the engine together. metrics may be nil.
func NewOrchestrator(
	source TorrentSource,
	store MetricStore,
	stat StorageStat,
	transfer FileTransfer,
	paths TierPaths,
	tunables Tunables,
	metrics CycleMetrics,
) *Orchestrator {
	return &Orchestrator{
		source:     source,
		store:      store,
		stat:       stat,
		transfer:   transfer,
		paths:      paths,
		reconciler: NewReconciler(paths, transfer),
		executor:   NewExecutor(source, transfer, stat, paths),
		metrics:    metrics,
		tunables:   tunables,
	}
}

// UpdateTunables replaces the runtime knobs. Takes effect on the next cycle.
func (o *Orchestrator) UpdateTunables(t Tunables) {
	o.mu.Lock()
	o.tunables = t
	o.mu.Unlock()
	logger.Info("engine tunables updated",
		"dry_run", t.DryRun,
		"max_moves_per_cycle", t.MaxMovesPerCycle,
		"target_fill_percent", t.TargetFillPercent,
	)
}

func (o *Orchestrator) currentTunables() Tunables {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tunables
}

// Run executes cycles on the given interval until ctx is cancelled. The first
// cycle starts immediately. A failed cycle is logged and retried on the next
// tick; only ctx cancellation stops the loop.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := o.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("cycle failed", logger.KeyError, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunCycle executes exactly one cycle. A fetch failure aborts the whole cycle
// with no state mutation, so a fully-failed cycle is idempotent.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	tun := o.currentTunables()
	start := time.Now()

	lc := logger.NewLogContext(uuid.NewString()[:8], tun.DryRun)
	ctx = logger.WithContext(ctx, lc)

	logger.InfoCtx(ctx, "cycle starting")

	// FETCH
	payloads, err := o.fetch(ctx)
	if err != nil {
		o.observeCycle("fetch_failed", start)
		return err
	}
	if len(payloads) == 0 {
		logger.InfoCtx(ctx, "no payloads reported, cycle idle")
		o.observeCycle("empty", start)
		return nil
	}

	// SCORE
	ranked, records := o.score(ctx, payloads, tun.Weights)

	// PLAN
	capacity := o.cacheCapacity(ctx)
	target := Plan(ranked, capacity, tun.TargetFillPercent)

	// RECONCILE
	ops := o.reconcile(ctx, ranked, target, tun.MaxMovesPerCycle)

	// EXECUTE
	executed, failed := o.execute(ctx, ops, tun.DryRun)

	// PERSIST
	if err := o.persist(ctx, payloads, records, tun.Weights.EMAAlpha, tun.MetricGracePeriod); err != nil {
		// Metrics are secondary to placement correctness: the relocations
		// already executed stand, only the history update is lost.
		logger.ErrorCtx(ctx, "persist phase failed", logger.KeyError, err)
	}

	o.reportTierStats(ranked, capacity)

	logger.InfoCtx(ctx, "cycle complete",
		"payloads", len(payloads),
		"operations", len(ops),
		"executed", executed,
		"failed", failed,
		logger.KeyDurationMs, logger.Duration(start),
	)
	o.observeCycle("ok", start)
	return nil
}

func (o *Orchestrator) fetch(ctx context.Context) ([]Payload, error) {
	ctx = logger.WithContext(ctx, logger.FromContext(ctx).WithPhase(PhaseFetch))

	payloads, err := o.source.ListPayloads(ctx)
	if err != nil {
		logger.ErrorCtx(ctx, "torrent source unreachable", logger.KeyError, err)
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	logger.DebugCtx(ctx, "snapshot fetched", "payloads", len(payloads))
	return payloads, nil
}

// score computes this cycle's ranking. Metric store reads are best-effort: a
// missing or unreadable record falls back to the cold-start policy.
func (o *Orchestrator) score(ctx context.Context, payloads []Payload, w Weights) ([]ScoredPayload, map[string]*MetricRecord) {
	ctx = logger.WithContext(ctx, logger.FromContext(ctx).WithPhase(PhaseScore))

	ranked := make([]ScoredPayload, 0, len(payloads))
	records := make(map[string]*MetricRecord, len(payloads))

	for _, p := range payloads {
		rec, err := o.store.Get(ctx, p.Hash)
		if err != nil {
			logger.WarnCtx(ctx, "metric record unavailable, using cold-start policy",
				logger.KeyHash, p.Hash, logger.KeyError, err)
			rec = nil
		}
		records[p.Hash] = rec

		sp := ScoredPayload{Payload: p, Score: Score(p, rec, w)}
		ranked = append(ranked, sp)

		logger.DebugCtx(ctx, "scored",
			logger.KeyHash, p.Hash,
			logger.KeyName, p.Name,
			logger.KeyTier, string(p.Tier),
			logger.KeyScore, sp.Score,
			"leechers", p.Leechers,
			"seeders", p.Seeders,
		)
	}

	SortByScore(ranked)
	return ranked, records
}

// cacheCapacity reads the cache volume capacity fresh for this cycle.
// Unknown capacity is reported as zero, which plans everything to master.
func (o *Orchestrator) cacheCapacity(ctx context.Context) uint64 {
	ctx = logger.WithContext(ctx, logger.FromContext(ctx).WithPhase(PhasePlan))

	capacity, err := o.stat.CapacityBytes(o.paths.CacheRoot)
	if err != nil {
		logger.ErrorCtx(ctx, "cannot determine cache capacity, planning everything to master",
			logger.KeyError, err)
		return 0
	}
	return capacity
}

func (o *Orchestrator) reconcile(ctx context.Context, ranked []ScoredPayload, target map[string]Tier, budget int) []Operation {
	ctx = logger.WithContext(ctx, logger.FromContext(ctx).WithPhase(PhaseReconcile))

	ops := o.reconciler.Reconcile(ranked, target, budget)

	for _, p := range ranked {
		logger.DebugCtx(ctx, "placement decision",
			logger.KeyHash, p.Hash,
			logger.KeyTier, string(p.Tier),
			logger.KeyTargetTier, string(target[p.Hash]),
			logger.KeyScore, p.Score,
		)
	}
	logger.InfoCtx(ctx, "reconciliation complete",
		"operations", len(ops), "budget", budget)
	return ops
}

// execute runs the bounded operation list. Per-operation failures are
// isolated; cancellation stops before the next operation starts, never
// mid-protocol in a way that could lose a copy.
func (o *Orchestrator) execute(ctx context.Context, ops []Operation, dryRun bool) (executed, failed int) {
	ctx = logger.WithContext(ctx, logger.FromContext(ctx).WithPhase(PhaseExecute))

	for i := range ops {
		if ctx.Err() != nil {
			logger.WarnCtx(ctx, "cycle cancelled mid-execute",
				"remaining", len(ops)-i)
			return executed, failed
		}

		op := &ops[i]
		err := o.executor.Execute(ctx, op, dryRun)
		o.observeOperation(op)
		if err != nil {
			failed++
			logger.ErrorCtx(ctx, "operation failed",
				logger.KeyOp, string(op.Kind),
				logger.KeyHash, op.Hash,
				logger.KeyError, err,
			)
			continue
		}
		executed++
	}
	return executed, failed
}

// persist folds this cycle's observations into the metric store and prunes
// records for payloads that have not been seen within the grace period.
func (o *Orchestrator) persist(ctx context.Context, payloads []Payload, records map[string]*MetricRecord, alpha float64, grace time.Duration) error {
	ctx = logger.WithContext(ctx, logger.FromContext(ctx).WithPhase(PhasePersist))
	now := time.Now()

	for _, p := range payloads {
		prev := records[p.Hash]

		instant := instantRate(p, prev, now)
		smoothed := instant
		if prev != nil {
			smoothed = SmoothRate(prev.SmoothedRate, instant, alpha)
		} else {
			// First observation: start the EMA from zero like every other
			// cold record, so a brand-new payload has to earn its history.
			instant = 0
			smoothed = 0
		}

		rec := MetricRecord{
			Hash:         p.Hash,
			SmoothedRate: smoothed,
			InstantRate:  instant,
			LastUploaded: p.Uploaded,
			LastChecked:  now,
		}
		if err := o.store.Upsert(ctx, p, rec); err != nil {
			return fmt.Errorf("%w: upsert %s: %v", ErrStoreUnavailable, p.Hash, err)
		}
	}

	if grace > 0 {
		pruned, err := o.store.PruneStale(ctx, now.Add(-grace))
		if err != nil {
			return fmt.Errorf("%w: prune: %v", ErrStoreUnavailable, err)
		}
		if pruned > 0 {
			logger.InfoCtx(ctx, "pruned stale metric records", "count", pruned)
		}
	}

	return nil
}

func (o *Orchestrator) observeCycle(result string, start time.Time) {
	if o.metrics != nil {
		o.metrics.ObserveCycle(result, time.Since(start))
	}
}

func (o *Orchestrator) observeOperation(op *Operation) {
	if o.metrics != nil {
		o.metrics.ObserveOperation(string(op.Kind), string(op.Status), op.Size)
	}
}

func (o *Orchestrator) reportTierStats(ranked []ScoredPayload, capacity uint64) {
	if o.metrics == nil {
		return
	}

	counts := map[Tier]int{}
	sizes := map[Tier]uint64{}
	for _, p := range ranked {
		counts[p.Tier]++
		sizes[p.Tier] += uint64(p.Size)
	}
	o.metrics.SetTierStats(string(TierCache), counts[TierCache], sizes[TierCache])
	o.metrics.SetTierStats(string(TierMaster), counts[TierMaster], sizes[TierMaster])

	used, err := o.stat.UsedBytes(o.paths.CacheRoot)
	if err == nil {
		o.metrics.SetCacheUsage(capacity, used)
	}
}
