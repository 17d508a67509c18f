package qpstats

import (
	"math"
	"testing"

	"github.com/banshee-data/qp.report/internal/hevc"
)

func TestSummarizeBasics(t *testing.T) {
	counts := make([]int64, NumQP)
	counts[30] = 4

	s := Summarize(counts, 30, 30)

	if s.Num != 4 {
		t.Errorf("Num = %d, want 4", s.Num)
	}
	if s.Avg != 30.0 {
		t.Errorf("Avg = %f, want 30.0", s.Avg)
	}
	if s.Stddev != 0.0 {
		t.Errorf("Stddev = %f, want 0.0 for identical values", s.Stddev)
	}
}

func TestSummarizePopulationStddev(t *testing.T) {
	// Two values 28 and 32 with equal counts: mean 30, population
	// variance ((2^2)+(2^2))/2 = 4, stddev 2.
	counts := make([]int64, NumQP)
	counts[28] = 1
	counts[32] = 1

	s := Summarize(counts, 28, 32)

	if s.Avg != 30.0 {
		t.Errorf("Avg = %f, want 30.0", s.Avg)
	}
	if math.Abs(s.Stddev-2.0) > 1e-12 {
		t.Errorf("Stddev = %f, want 2.0 (population, not sample)", s.Stddev)
	}
	if s.Stddev < 0 {
		t.Errorf("Stddev must never be negative, got %f", s.Stddev)
	}
}

func TestSummarizeDegenerate(t *testing.T) {
	s := Summarize(make([]int64, NumQP), -1, -1)

	if s.Num != 0 {
		t.Errorf("Num = %d, want 0", s.Num)
	}
	if !math.IsNaN(s.Avg) || !math.IsNaN(s.Stddev) {
		t.Errorf("Avg/Stddev = %f/%f, want NaN sentinels", s.Avg, s.Stddev)
	}
	if s.Min != -1 || s.Max != -1 {
		t.Errorf("Min/Max = %d/%d, want -1/-1 passthrough", s.Min, s.Max)
	}
}

func TestSummarizeQPWeightedVsUnweighted(t *testing.T) {
	// One 32x32 CU at QP 28 and one 16x16 CU at QP 32:
	// unweighted avg = 30.0, weighted avg = (28*1024+32*256)/1280 = 28.8.
	f, err := hevc.NewFrame(0, 16, 16, 8)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	if err := f.SetCU(0, 0, 5, 28, 28, 28, hevc.PredInter); err != nil {
		t.Fatalf("SetCU: %v", err)
	}
	if err := f.SetCU(4, 0, 4, 32, 32, 32, hevc.PredInter); err != nil {
		t.Fatalf("SetCU: %v", err)
	}

	h := BuildQP(f, PlaneY)
	un, wt := SummarizeQP(h)

	if un.Avg != 30.0 {
		t.Errorf("unweighted Avg = %f, want 30.0", un.Avg)
	}
	if math.Abs(wt.Avg-28.8) > 1e-12 {
		t.Errorf("weighted Avg = %f, want 28.8", wt.Avg)
	}
	if un.Num != 2 {
		t.Errorf("unweighted Num = %d, want 2", un.Num)
	}
	if wt.Num != 1280 {
		t.Errorf("weighted Num = %d, want 1280", wt.Num)
	}
	// Both variants share the builder's min/max pair.
	if un.Min != wt.Min || un.Max != wt.Max {
		t.Errorf("min/max differ between variants: %d/%d vs %d/%d", un.Min, un.Max, wt.Min, wt.Max)
	}
}

func TestSummarizeQPSameSizeCUs(t *testing.T) {
	// When all contributing CUs share one size, weighting cannot move the
	// average.
	f, err := hevc.NewFrame(0, 16, 16, 8)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	for i, qp := range []int{26, 30, 34} {
		if err := f.SetCU(i*2, 0, 4, qp, qp, qp, hevc.PredInter); err != nil {
			t.Fatalf("SetCU: %v", err)
		}
	}

	un, wt := SummarizeQP(BuildQP(f, PlaneY))
	if math.Abs(un.Avg-wt.Avg) > 1e-12 {
		t.Errorf("avg diverged for uniform CU size: %f vs %f", un.Avg, wt.Avg)
	}
	if math.Abs(un.Stddev-wt.Stddev) > 1e-12 {
		t.Errorf("stddev diverged for uniform CU size: %f vs %f", un.Stddev, wt.Stddev)
	}
}

func TestRatio(t *testing.T) {
	if got := Ratio(1, 4); got != 0.25 {
		t.Errorf("Ratio(1,4) = %f, want 0.25", got)
	}
	if got := Ratio(0, 4); got != 0 {
		t.Errorf("Ratio(0,4) = %f, want 0", got)
	}
	if got := Ratio(0, 0); !math.IsNaN(got) {
		t.Errorf("Ratio(0,0) = %f, want NaN", got)
	}
}

func TestSummaryMatchesBucketSums(t *testing.T) {
	// Re-derive num from buckets and compare to the summary.
	counts := make([]int64, NumQP)
	counts[10] = 3
	counts[20] = 5
	counts[90] = 2

	s := Summarize(counts, 10, 90)
	if s.Num != Sum(counts) {
		t.Errorf("Num = %d, want bucket sum %d", s.Num, Sum(counts))
	}

	var weightedTotal float64
	for v, c := range counts {
		weightedTotal += float64(v) * float64(c)
	}
	want := weightedTotal / float64(s.Num)
	if math.Abs(s.Avg-want) > 1e-12 {
		t.Errorf("Avg = %f, want %f", s.Avg, want)
	}
}
