package ranking

import (
	"errors"
	"math/rand/v2"
	"sort"
)

// ErrEmptyPool is returned when a draw is requested from no candidates.
var ErrEmptyPool = errors.New("no candidates to draw from")

// Candidate is the (id, score) pair the selection rules operate on.
type Candidate struct {
	ID    int64
	Score int
}

// Band identifies which half of the pool a weighted draw landed in.
type Band string

const (
	BandHigh Band = "high"
	BandLow  Band = "low"
)

// Source is the randomness a weighted draw consumes. *rand.Rand from
// math/rand/v2 satisfies it; tests pass fixed sequences.
type Source interface {
	Float64() float64
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }
func (globalSource) IntN(n int) int   { return rand.IntN(n) }

// GlobalSource returns a Source backed by the math/rand/v2 top-level
// functions, which are safe for concurrent use.
func GlobalSource() Source {
	return globalSource{}
}

// Top returns up to n candidates ordered by score descending, ties broken by
// id ascending. The input slice is not modified.
func Top(candidates []Candidate, n int) []Candidate {
	if n <= 0 || len(candidates) == 0 {
		return []Candidate{}
	}

	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	SortByScore(sorted)

	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// SortByScore sorts candidates in place by score descending, then id ascending.
func SortByScore(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].ID < candidates[j].ID
	})
}

// Partition splits candidates into the high band (score above the threshold)
// and the low band (everything else), preserving input order.
func Partition(candidates []Candidate, threshold int) (high, low []Candidate) {
	for _, c := range candidates {
		if c.Score > threshold {
			high = append(high, c)
		} else {
			low = append(low, c)
		}
	}
	return high, low
}

// WeightedDraw picks one candidate. The first value from src chooses the
// band: high when it is below cal.HighBandProbability, low otherwise. If the
// chosen band is empty the other band is used. The second value picks a
// member of the band uniformly. Every candidate therefore has a non-zero
// chance as long as the probability is strictly between 0 and 1.
func WeightedDraw(candidates []Candidate, cal Calibration, src Source) (Candidate, Band, error) {
	if len(candidates) == 0 {
		return Candidate{}, "", ErrEmptyPool
	}
	if src == nil {
		src = GlobalSource()
	}

	high, low := Partition(candidates, cal.HighScoreThreshold)

	band := BandLow
	if src.Float64() < cal.HighBandProbability {
		band = BandHigh
	}
	if band == BandHigh && len(high) == 0 {
		band = BandLow
	} else if band == BandLow && len(low) == 0 {
		band = BandHigh
	}

	pool := low
	if band == BandHigh {
		pool = high
	}
	return pool[src.IntN(len(pool))], band, nil
}
