package ranking

import (
	"errors"
	"math/rand/v2"
	"testing"
)

// fixedSource replays scripted values so draws are fully deterministic.
type fixedSource struct {
	floats []float64
	ints   []int
	fi, ii int
}

func (s *fixedSource) Float64() float64 {
	v := s.floats[s.fi%len(s.floats)]
	s.fi++
	return v
}

func (s *fixedSource) IntN(n int) int {
	v := s.ints[s.ii%len(s.ints)]
	s.ii++
	return v % n
}

func TestTop_OrdersByScoreThenID(t *testing.T) {
	cands := []Candidate{
		{ID: 1, Score: 10},
		{ID: 2, Score: 50},
		{ID: 3, Score: 30},
		{ID: 4, Score: 30},
		{ID: 5, Score: -2},
	}

	got := Top(cands, 4)
	want := []int64{2, 3, 4, 1}
	if len(got) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: expected id %d, got %d", i, id, got[i].ID)
		}
	}

	// Input must be left untouched.
	if cands[0].ID != 1 || cands[1].ID != 2 {
		t.Error("Top modified its input")
	}
}

func TestTop_NonIncreasing(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	cands := make([]Candidate, 200)
	for i := range cands {
		cands[i] = Candidate{ID: int64(i + 1), Score: r.IntN(40) - 5}
	}

	got := Top(cands, 50)
	if len(got) != 50 {
		t.Fatalf("expected 50 results, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Score < got[i].Score {
			t.Fatalf("not non-increasing at %d: %d < %d", i, got[i-1].Score, got[i].Score)
		}
	}
}

func TestTop_ShortPoolAndBadAmount(t *testing.T) {
	cands := []Candidate{{ID: 1, Score: 3}, {ID: 2, Score: 4}}

	if got := Top(cands, 10); len(got) != 2 {
		t.Errorf("expected short result of 2, got %d", len(got))
	}
	if got := Top(cands, 0); len(got) != 0 {
		t.Errorf("expected empty result for n=0, got %d", len(got))
	}
	if got := Top(nil, 3); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil result for empty pool, got %v", got)
	}
}

func TestTop_StableAcrossCalls(t *testing.T) {
	cands := []Candidate{{ID: 9, Score: 1}, {ID: 3, Score: 1}, {ID: 5, Score: 1}}
	first := Top(cands, 3)
	for i := 0; i < 10; i++ {
		again := Top(cands, 3)
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("call %d differs at %d: %v vs %v", i, j, first[j], again[j])
			}
		}
	}
	if first[0].ID != 3 || first[1].ID != 5 || first[2].ID != 9 {
		t.Errorf("expected ties broken by id ascending, got %v", first)
	}
}

func TestPartition(t *testing.T) {
	cands := []Candidate{{ID: 1, Score: 11}, {ID: 2, Score: 10}, {ID: 3, Score: -5}, {ID: 4, Score: 42}}
	high, low := Partition(cands, 10)

	if len(high) != 2 || high[0].ID != 1 || high[1].ID != 4 {
		t.Errorf("unexpected high band: %v", high)
	}
	if len(low) != 2 || low[0].ID != 2 || low[1].ID != 3 {
		t.Errorf("unexpected low band: %v", low)
	}
}

func TestWeightedDraw_Empty(t *testing.T) {
	_, _, err := WeightedDraw(nil, DefaultCalibration(), &fixedSource{floats: []float64{0}, ints: []int{0}})
	if !errors.Is(err, ErrEmptyPool) {
		t.Errorf("expected ErrEmptyPool, got %v", err)
	}
}

func TestWeightedDraw_BandChoice(t *testing.T) {
	cands := []Candidate{
		{ID: 1, Score: 0},
		{ID: 2, Score: 25},
		{ID: 3, Score: -3},
		{ID: 4, Score: 11},
	}
	cal := DefaultCalibration()

	tests := []struct {
		name     string
		roll     float64
		pick     int
		wantID   int64
		wantBand Band
	}{
		{name: "low roll picks high band first member", roll: 0.1, pick: 0, wantID: 2, wantBand: BandHigh},
		{name: "low roll picks high band second member", roll: 0.69, pick: 1, wantID: 4, wantBand: BandHigh},
		{name: "high roll picks low band first member", roll: 0.7, pick: 0, wantID: 1, wantBand: BandLow},
		{name: "high roll picks low band second member", roll: 0.99, pick: 1, wantID: 3, wantBand: BandLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fixedSource{floats: []float64{tt.roll}, ints: []int{tt.pick}}
			got, band, err := WeightedDraw(cands, cal, src)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.ID != tt.wantID {
				t.Errorf("expected id %d, got %d", tt.wantID, got.ID)
			}
			if band != tt.wantBand {
				t.Errorf("expected band %s, got %s", tt.wantBand, band)
			}
		})
	}
}

func TestWeightedDraw_FallsBackWhenBandEmpty(t *testing.T) {
	cal := DefaultCalibration()

	onlyLow := []Candidate{{ID: 1, Score: 3}, {ID: 2, Score: -1}}
	src := &fixedSource{floats: []float64{0.05}, ints: []int{1}}
	got, band, err := WeightedDraw(onlyLow, cal, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if band != BandLow || got.ID != 2 {
		t.Errorf("expected fallback to low band id 2, got %s id %d", band, got.ID)
	}

	onlyHigh := []Candidate{{ID: 7, Score: 30}, {ID: 8, Score: 12}}
	src = &fixedSource{floats: []float64{0.95}, ints: []int{0}}
	got, band, err = WeightedDraw(onlyHigh, cal, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if band != BandHigh || got.ID != 7 {
		t.Errorf("expected fallback to high band id 7, got %s id %d", band, got.ID)
	}
}

func TestWeightedDraw_ConsumesBoundedRandomness(t *testing.T) {
	src := &fixedSource{floats: []float64{0.9}, ints: []int{0}}
	if _, _, err := WeightedDraw([]Candidate{{ID: 1, Score: 50}}, DefaultCalibration(), src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.fi != 1 || src.ii != 1 {
		t.Errorf("expected exactly one band roll and one pick, got %d and %d", src.fi, src.ii)
	}
}

// TestWeightedDraw_Distribution checks that every member is reachable and
// that the high band is favoured beyond its share of the pool.
func TestWeightedDraw_Distribution(t *testing.T) {
	cands := []Candidate{
		{ID: 1, Score: 40},
		{ID: 2, Score: 0},
		{ID: 3, Score: -5},
		{ID: 4, Score: 2},
		{ID: 5, Score: 10},
		{ID: 6, Score: 7},
		{ID: 7, Score: -1},
		{ID: 8, Score: 3},
		{ID: 9, Score: 1},
		{ID: 10, Score: 4},
	}
	src := rand.New(rand.NewPCG(42, 7))

	const draws = 20000
	counts := make(map[int64]int)
	for i := 0; i < draws; i++ {
		got, _, err := WeightedDraw(cands, DefaultCalibration(), src)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		counts[got.ID]++
	}

	for _, c := range cands {
		if counts[c.ID] == 0 {
			t.Errorf("candidate %d was never drawn", c.ID)
		}
	}

	// One of ten candidates is in the high band: raw share 10%.
	highShare := float64(counts[1]) / draws
	if highShare <= 0.1 {
		t.Errorf("expected high band share above 10%%, got %.3f", highShare)
	}
	if highShare < 0.6 {
		t.Errorf("expected high band share near 70%%, got %.3f", highShare)
	}
}

func TestGlobalSource(t *testing.T) {
	src := GlobalSource()
	for i := 0; i < 100; i++ {
		if f := src.Float64(); f < 0 || f >= 1 {
			t.Fatalf("Float64 out of range: %v", f)
		}
		if n := src.IntN(3); n < 0 || n >= 3 {
			t.Fatalf("IntN out of range: %d", n)
		}
	}
}
