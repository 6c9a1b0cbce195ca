package engine

// Plan partitions scored payloads into target tiers. Payloads must already be
// sorted by SortByScore; the ranking is walked top-down and payloads are
// assigned to cache until the cumulative size would exceed the fill target.
//
// Truncation is strict-prefix: once a payload does not fit, every lower-ranked
// payload is assigned master as well, even if it individually would fit. This
// trades bin-packing optimality for determinism: the cache working set is
// always an exact prefix of the ranking, so two cycles with the same snapshot
// produce the same assignment.
//
// A zero or unknown capacity plans everything to master.
func Plan(ranked []ScoredPayload, capacityBytes uint64, targetFillPercent int) map[string]Tier {
	target := make(map[string]Tier, len(ranked))
	for _, p := range ranked {
		target[p.Hash] = TierMaster
	}
	if capacityBytes == 0 || targetFillPercent <= 0 {
		return target
	}

	budget := int64(float64(capacityBytes) * float64(targetFillPercent) / 100.0)

	var used int64
	for _, p := range ranked {
		if used+p.Size > budget {
			break
		}
		target[p.Hash] = TierCache
		used += p.Size
	}

	return target
}

// CacheSetSize returns the cumulative size of the payloads planned to cache.
func CacheSetSize(ranked []ScoredPayload, target map[string]Tier) int64 {
	var total int64
	for _, p := range ranked {
		if target[p.Hash] == TierCache {
			total += p.Size
		}
	}
	return total
}
