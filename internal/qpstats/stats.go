package qpstats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Summary reduces one histogram variant over its full value domain.
// Min and Max come from the builder's single grid pass; the unweighted and
// weighted variants of the same histogram share one pair.
type Summary struct {
	Num    int64
	Min    int
	Max    int
	Avg    float64
	Stddev float64
}

// Summarize reduces a bucket array into summary statistics. The bucket index
// is the metric value and the bucket content its count (or weighted sum).
// The average is the count-weighted mean over the full domain; the stddev is
// the population standard deviation. A zero-count histogram is a degenerate
// but non-fatal condition: Num is 0 and Avg/Stddev are NaN.
func Summarize(counts []int64, min, max int) Summary {
	var num int64
	x := make([]float64, len(counts))
	w := make([]float64, len(counts))
	for v, c := range counts {
		x[v] = float64(v)
		w[v] = float64(c)
		num += c
	}
	if num == 0 {
		return Summary{Num: 0, Min: min, Max: max, Avg: math.NaN(), Stddev: math.NaN()}
	}
	return Summary{
		Num:    num,
		Min:    min,
		Max:    max,
		Avg:    stat.Mean(x, w),
		Stddev: stat.PopStdDev(x, w),
	}
}

// SummarizeQP reduces both variants of a QP histogram, reusing the
// histogram's shared min/max pair for each.
func SummarizeQP(h *QPHistogram) (unweighted, weighted Summary) {
	return Summarize(h.Counts[:], h.Min, h.Max), Summarize(h.Weighted[:], h.Min, h.Max)
}

// Ratio returns part/total, or NaN when total is zero. Used for the
// prediction-mode and CTU share columns, where a frame with no valid CUs
// must still produce a row.
func Ratio(part, total int64) float64 {
	if total == 0 {
		return math.NaN()
	}
	return float64(part) / float64(total)
}

// Sum adds up a bucket array.
func Sum(counts []int64) int64 {
	var total int64
	for _, c := range counts {
		total += c
	}
	return total
}
