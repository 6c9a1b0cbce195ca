package engine

import (
	"sort"
)

// Reconciler diffs target placement against client-reported placement and
// derives the bounded, priority-ordered operation list for one cycle.
type Reconciler struct {
	paths    TierPaths
	transfer FileTransfer
}

// NewReconciler creates a reconciler. The transfer provider is only used to
// probe for orphaned cache copies; it may be nil, which disables the probe.
func NewReconciler(paths TierPaths, transfer FileTransfer) *Reconciler {
	return &Reconciler{paths: paths, transfer: transfer}
}

// Reconcile emits one operation per payload whose target tier differs from
// its current tier, plus cleanup operations for orphaned cache copies.
//
// Relegations come first, ordered by ascending score (worst candidates go
// first, and they free the space promotions need), then promotions by
// descending score (best candidates first). The merged list is truncated to
// opBudget entries; a budget of zero evaluates and logs but performs nothing.
// The bound caps I/O pressure on the master tier and limits the blast radius
// of any single cycle.
func (r *Reconciler) Reconcile(ranked []ScoredPayload, target map[string]Tier, opBudget int) []Operation {
	var promotions, relegations []Operation

	for _, p := range ranked {
		want, ok := target[p.Hash]
		if !ok {
			continue
		}

		switch {
		case want == TierCache && p.Tier == TierMaster:
			if op, ok := r.promotion(p); ok {
				promotions = append(promotions, op)
			}
		case want == TierMaster && p.Tier == TierCache:
			if op, ok := r.relegation(p); ok {
				relegations = append(relegations, op)
			}
		case want == TierMaster && p.Tier == TierMaster:
			// A promote may have copied the payload to cache without the
			// repoint ever being confirmed. The client's report stays
			// authoritative, so such a copy is an orphan to clean up.
			if op, ok := r.orphanCleanup(p); ok {
				relegations = append(relegations, op)
			}
		}
	}

	// Ascending score: the least valuable cached payloads leave first.
	sort.Slice(relegations, func(i, j int) bool {
		if relegations[i].Score != relegations[j].Score {
			return relegations[i].Score < relegations[j].Score
		}
		return relegations[i].Hash < relegations[j].Hash
	})
	// Promotions inherit the ranking order (descending score).

	ops := append(relegations, promotions...)
	if opBudget < 0 {
		opBudget = 0
	}
	if len(ops) > opBudget {
		ops = ops[:opBudget]
	}
	return ops
}

func (r *Reconciler) promotion(p ScoredPayload) (Operation, bool) {
	dst, ok := relocatedPath(p.ContentPath, r.paths.MasterRoot, r.paths.CacheRoot)
	if !ok {
		return Operation{}, false
	}
	return Operation{
		Kind:       OpPromote,
		Hash:       p.Hash,
		Name:       p.Name,
		Category:   p.Category,
		Size:       p.Size,
		Score:      p.Score,
		SourcePath: p.ContentPath,
		DestPath:   dst,
		TargetBase: r.paths.CacheRoot,
		Status:     StatusPending,
	}, true
}

func (r *Reconciler) relegation(p ScoredPayload) (Operation, bool) {
	dst, ok := relocatedPath(p.ContentPath, r.paths.CacheRoot, r.paths.MasterRoot)
	if !ok {
		return Operation{}, false
	}
	return Operation{
		Kind:       OpRelegate,
		Hash:       p.Hash,
		Name:       p.Name,
		Category:   p.Category,
		Size:       p.Size,
		Score:      p.Score,
		SourcePath: p.ContentPath,
		DestPath:   dst,
		TargetBase: r.paths.MasterRoot,
		Status:     StatusPending,
	}, true
}

// orphanCleanup emits a cleanup operation when a master-resident payload
// still has a leftover copy under the cache root.
func (r *Reconciler) orphanCleanup(p ScoredPayload) (Operation, bool) {
	if r.transfer == nil {
		return Operation{}, false
	}
	cachePath, ok := relocatedPath(p.ContentPath, r.paths.MasterRoot, r.paths.CacheRoot)
	if !ok {
		return Operation{}, false
	}
	exists, err := r.transfer.Exists(cachePath)
	if err != nil || !exists {
		return Operation{}, false
	}
	return Operation{
		Kind:       OpCleanup,
		Hash:       p.Hash,
		Name:       p.Name,
		Category:   p.Category,
		Size:       p.Size,
		Score:      p.Score,
		SourcePath: cachePath,
		Status:     StatusPending,
	}, true
}
