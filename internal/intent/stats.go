package intent

import "fmt"

// Stats is a snapshot of classifier activity since the last Reset.
type Stats struct {
	// ClassificationsTotal counts every completed Classify call.
	ClassificationsTotal int64 `json:"classifications_total"`
	CacheHits            int64 `json:"cache_hits"`
	HeuristicHits        int64 `json:"heuristic_hits"`
	ModelCalls           int64 `json:"model_calls"`
	CachedQueries        int   `json:"cached_queries"`
	// HitRate is CacheHits as a percentage of CacheHits+ModelCalls.
	HitRate float64 `json:"hit_rate"`
}

func newStats(total, hits, heuristic, calls int64, cached int) Stats {
	s := Stats{
		ClassificationsTotal: total,
		CacheHits:            hits,
		HeuristicHits:        heuristic,
		ModelCalls:           calls,
		CachedQueries:        cached,
	}
	if denom := hits + calls; denom > 0 {
		s.HitRate = float64(hits) / float64(denom) * 100
	}
	return s
}

// HitRateString formats HitRate with one decimal, e.g. "66.7%".
func (s Stats) HitRateString() string {
	return fmt.Sprintf("%.1f%%", s.HitRate)
}
