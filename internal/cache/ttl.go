package cache

import "time"

// Base TTLs by result type. Exact matches survive routine edits far
// better than fuzzy guesses, so they earn a much longer lifetime.
const (
	ttlExact = 1800 * time.Second
	ttlFuzzy = 300 * time.Second
	ttlMixed = 600 * time.Second
	ttlEmpty = 60 * time.Second

	ttlMin = 30 * time.Second
	ttlMax = 3600 * time.Second
)

// ResultType selects the base TTL tier for a cached result set.
type ResultType string

const (
	ResultExact ResultType = "exact"
	ResultFuzzy ResultType = "fuzzy"
	ResultMixed ResultType = "mixed"
)

// ComputeTTL derives an adaptive cache lifetime from the quality of a
// result set, given the per-item confidences. An empty result set is
// always cached for exactly 60s. Otherwise the base TTL for the result
// type is scaled by mean confidence (x2.0 above 0.9, x0.5 below 0.3)
// and by evidence count (x1.5 at >=10 results, x0.7 at <=2), then
// clamped to [30s, 3600s].
func ComputeTTL(confidences []float64, resultType ResultType) time.Duration {
	if len(confidences) == 0 {
		return ttlEmpty
	}

	var base time.Duration
	switch resultType {
	case ResultExact:
		base = ttlExact
	case ResultFuzzy:
		base = ttlFuzzy
	default:
		base = ttlMixed
	}

	sum := 0.0
	for _, c := range confidences {
		sum += c
	}
	mean := sum / float64(len(confidences))

	factor := 1.0
	if mean > 0.9 {
		factor *= 2.0
	} else if mean < 0.3 {
		factor *= 0.5
	}
	if len(confidences) >= 10 {
		factor *= 1.5
	} else if len(confidences) <= 2 {
		factor *= 0.7
	}

	ttl := time.Duration(float64(base) * factor)
	if ttl < ttlMin {
		return ttlMin
	}
	if ttl > ttlMax {
		return ttlMax
	}
	return ttl
}
