package engine

import (
	"testing"
)

func rankedSet(entries ...ScoredPayload) []ScoredPayload {
	SortByScore(entries)
	return entries
}

func TestPlanStrictPrefix(t *testing.T) {
	// 100 bytes capacity at 100% fill. The 60-byte payload ranks first, the
	// 50-byte second and the 10-byte third. The second does not fit, so the
	// third must go to master too even though 10 bytes would still fit.
	ranked := rankedSet(
		ScoredPayload{Payload: Payload{Hash: "first", Size: 60}, Score: 30},
		ScoredPayload{Payload: Payload{Hash: "second", Size: 50}, Score: 20},
		ScoredPayload{Payload: Payload{Hash: "third", Size: 10}, Score: 10},
	)

	target := Plan(ranked, 100, 100)

	if target["first"] != TierCache {
		t.Errorf("top-ranked payload should be cached")
	}
	if target["second"] != TierMaster {
		t.Errorf("payload that does not fit should go to master")
	}
	if target["third"] != TierMaster {
		t.Errorf("strict prefix violated: lower-ranked payload cached after a miss")
	}
}

func TestPlanRespectsFillTarget(t *testing.T) {
	ranked := rankedSet(
		ScoredPayload{Payload: Payload{Hash: "a", Size: 95}, Score: 10},
	)

	// 95 bytes exceeds the 90-byte budget at 90% of 100; at 100% it fits.
	if target := Plan(ranked, 100, 90); target["a"] != TierMaster {
		t.Errorf("payload above fill target should stay on master")
	}
	if target := Plan(ranked, 100, 100); target["a"] != TierCache {
		t.Errorf("payload within fill target should be cached")
	}

	// A payload exactly at the budget still fits.
	exact := rankedSet(
		ScoredPayload{Payload: Payload{Hash: "b", Size: 90}, Score: 10},
	)
	if target := Plan(exact, 100, 90); target["b"] != TierCache {
		t.Errorf("payload exactly at the fill target should be cached")
	}
}

func TestPlanZeroCapacity(t *testing.T) {
	ranked := rankedSet(
		ScoredPayload{Payload: Payload{Hash: "a", Size: 1}, Score: 100},
		ScoredPayload{Payload: Payload{Hash: "b", Size: 1}, Score: 50},
	)

	target := Plan(ranked, 0, 90)
	for hash, tier := range target {
		if tier != TierMaster {
			t.Errorf("unknown capacity must plan %q to master, got %v", hash, tier)
		}
	}
}

func TestPlanDeterministic(t *testing.T) {
	ranked := rankedSet(
		ScoredPayload{Payload: Payload{Hash: "a", Size: 30}, Score: 3},
		ScoredPayload{Payload: Payload{Hash: "b", Size: 30}, Score: 2},
		ScoredPayload{Payload: Payload{Hash: "c", Size: 30}, Score: 1},
	)

	first := Plan(ranked, 100, 90)
	for i := 0; i < 5; i++ {
		again := Plan(ranked, 100, 90)
		for hash, tier := range first {
			if again[hash] != tier {
				t.Fatalf("plan changed between identical inputs for %q", hash)
			}
		}
	}
}

func TestPlanScenario(t *testing.T) {
	// The demand-heavy payload fills the cache alone; the rest stay on master.
	ranked := rankedSet(
		ScoredPayload{Payload: Payload{Hash: "hot", Size: 700}, Score: 51000},
		ScoredPayload{Payload: Payload{Hash: "warm", Size: 400}, Score: 5400},
		ScoredPayload{Payload: Payload{Hash: "cold", Size: 100}, Score: 0},
	)

	target := Plan(ranked, 1000, 80)

	if target["hot"] != TierCache || target["warm"] != TierMaster || target["cold"] != TierMaster {
		t.Errorf("unexpected plan: %v", target)
	}
	if size := CacheSetSize(ranked, target); size != 700 {
		t.Errorf("expected cache set size 700, got %d", size)
	}
}
