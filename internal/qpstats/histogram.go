// Package qpstats aggregates per-CU coding metadata into fixed-domain
// histograms and reduces them to summary statistics. All histograms are
// per-frame: build, reduce, discard. Each bucket carries both an unweighted
// occurrence count and a pixel-area weighted sum, so a 64x64 CU counts 4096
// times more than an 8x8 CU in the weighted view.
package qpstats

import (
	"log"

	"github.com/banshee-data/qp.report/internal/hevc"
)

// QP domain. Values outside [MinQP, NumQP) are decoder errors and are
// excluded from every bucket.
const (
	MinQP = 0
	NumQP = 100
)

// NumCTUClasses is the number of CTU size classes: 8, 16, 32, 64.
const NumCTUClasses = 4

// CTUClassSize returns the pixel size of a CTU size class.
func CTUClassSize(class int) int { return 8 << class }

// Plane selects which QP plane a QP histogram aggregates.
type Plane int

const (
	PlaneY Plane = iota
	PlaneCb
	PlaneCr
)

func (p Plane) String() string {
	switch p {
	case PlaneY:
		return "qpy"
	case PlaneCb:
		return "qpcb"
	case PlaneCr:
		return "qpcr"
	}
	return "qp?"
}

func (p Plane) valueOf(cu hevc.CU) int {
	switch p {
	case PlaneCb:
		return cu.QPCb
	case PlaneCr:
		return cu.QPCr
	default:
		return cu.QPY
	}
}

// QPHistogram is a fixed-domain QP distribution for one frame. Min and Max
// are the observed in-domain extremes, -1 when no valid CU contributed;
// the same pair applies to both the unweighted and weighted buckets.
type QPHistogram struct {
	Counts   [NumQP]int64
	Weighted [NumQP]int64
	Min      int
	Max      int
}

// BuildQP scans the frame grid once and accumulates the QP distribution for
// the given plane. Out-of-domain QP values are logged and skipped; the scan
// never aborts the frame.
func BuildQP(f *hevc.Frame, plane Plane) *QPHistogram {
	h := &QPHistogram{Min: -1, Max: -1}
	f.ForEachCU(func(cu hevc.CU) {
		qp := plane.valueOf(cu)
		if qp < MinQP || qp >= NumQP {
			log.Printf("error: frame %d: invalid %s %d at (%d,%d)", f.ID, plane, qp, cu.X, cu.Y)
			return
		}
		if h.Min == -1 || qp < h.Min {
			h.Min = qp
		}
		if h.Max == -1 || qp > h.Max {
			h.Max = qp
		}
		h.Counts[qp]++
		h.Weighted[qp] += int64(cu.Size) * int64(cu.Size)
	})
	return h
}

// PredHistogram is the per-frame prediction-mode distribution, indexed by
// hevc.PredMode (intra, inter, skip).
type PredHistogram struct {
	Counts   [hevc.NumPredModes]int64
	Weighted [hevc.NumPredModes]int64
}

// BuildPred scans the frame grid once and accumulates the prediction-mode
// distribution. Unknown mode codes are logged and skipped.
func BuildPred(f *hevc.Frame) *PredHistogram {
	h := &PredHistogram{}
	f.ForEachCU(func(cu hevc.CU) {
		if !cu.PredMode.Valid() {
			log.Printf("error: frame %d: invalid pred_mode %d at (%d,%d)", f.ID, int(cu.PredMode), cu.X, cu.Y)
			return
		}
		h.Counts[cu.PredMode]++
		h.Weighted[cu.PredMode] += int64(cu.Size) * int64(cu.Size)
	})
	return h
}

// CTUHistogram is the per-frame CU size-class distribution. Class index is
// log2(size)-3, covering sizes 8 through 64.
type CTUHistogram struct {
	Counts   [NumCTUClasses]int64
	Weighted [NumCTUClasses]int64
}

// BuildCTU scans the frame grid once and accumulates the size-class
// distribution. Sizes outside {8,16,32,64} are logged and skipped.
func BuildCTU(f *hevc.Frame) *CTUHistogram {
	h := &CTUHistogram{}
	f.ForEachCU(func(cu hevc.CU) {
		class := cu.Log2Size - 3
		if class < 0 || class >= NumCTUClasses {
			log.Printf("error: frame %d: invalid cb size %d at (%d,%d)", f.ID, cu.Size, cu.X, cu.Y)
			return
		}
		h.Counts[class]++
		h.Weighted[class] += int64(cu.Size) * int64(cu.Size)
	})
	return h
}
