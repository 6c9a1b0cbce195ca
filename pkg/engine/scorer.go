package engine

import (
	"sort"
	"time"
)

// Weights are the scoring weights. All values are non-negative; they come
// from configuration and may be updated between cycles.
type Weights struct {
	// Leechers weights raw demand (leecher count).
	Leechers float64

	// Ratio weights swarm scarcity (leechers per seeder).
	Ratio float64

	// LongTerm weights the EMA-smoothed historical upload rate.
	LongTerm float64

	// ShortTerm weights the most recent observed upload rate.
	ShortTerm float64

	// EMAAlpha is the smoothing factor for the historical rate,
	// 0 < alpha <= 1. Smaller values smooth harder.
	EMAAlpha float64
}

// Score computes the popularity score of a payload. Pure, deterministic and
// total: defined for every valid input, including zero seeders.
//
// score = Leechers*leechers + Ratio*scarcity + LongTerm*smoothed + ShortTerm*instant
//
// where scarcity = leechers / max(seeders, 1), instant is the client-reported
// upload rate and smoothed is the EMA carried in the metric record. When no
// record exists yet, the historical term equals the instantaneous one
// (cold-start policy), so a new payload is judged on what it shows right now.
func Score(p Payload, rec *MetricRecord, w Weights) float64 {
	leechers := float64(p.Leechers)

	seeders := p.Seeders
	if seeders < 1 {
		seeders = 1
	}
	scarcity := leechers / float64(seeders)

	instant := p.UploadRate
	smoothed := instant
	if rec != nil {
		smoothed = rec.SmoothedRate
	}

	return w.Leechers*leechers + w.Ratio*scarcity + w.LongTerm*smoothed + w.ShortTerm*instant
}

// instantRate derives the payload's current upload rate in bytes/sec. With a
// previous record the rate comes from the uploaded-counter delta, which is
// steadier than the client's momentary speed; without one the reported speed
// is all there is.
func instantRate(p Payload, rec *MetricRecord, now time.Time) float64 {
	if rec == nil || rec.LastChecked.IsZero() {
		return p.UploadRate
	}
	elapsed := now.Sub(rec.LastChecked).Seconds()
	if elapsed <= 0 {
		return rec.InstantRate
	}
	delta := p.Uploaded - rec.LastUploaded
	if delta < 0 {
		// Counter reset (torrent re-added or client restarted).
		return p.UploadRate
	}
	return float64(delta) / elapsed
}

// SmoothRate folds a new instantaneous rate into the EMA.
func SmoothRate(previous, instant, alpha float64) float64 {
	return instant*alpha + previous*(1-alpha)
}

// SortByScore orders payloads by descending score, breaking ties by payload
// hash ascending so the ranking is stable and testable.
func SortByScore(payloads []ScoredPayload) {
	sort.Slice(payloads, func(i, j int) bool {
		if payloads[i].Score != payloads[j].Score {
			return payloads[i].Score > payloads[j].Score
		}
		return payloads[i].Hash < payloads[j].Hash
	})
}
