// Package hevc models the per-frame coding metadata an HEVC decoder exposes
// for a reconstructed picture: a grid of minimum coding-block cells, each
// optionally anchoring a coding unit (CU) with its size, quantisation
// parameters and prediction mode. The package knows nothing about bitstream
// parsing; frames arrive fully populated from a decoder or a recorded dump.
package hevc

import "fmt"

// PredMode is the prediction mode assigned to a coding unit.
type PredMode int

const (
	PredIntra PredMode = 0
	PredInter PredMode = 1
	PredSkip  PredMode = 2
)

// NumPredModes is the number of valid prediction modes.
const NumPredModes = 3

func (m PredMode) String() string {
	switch m {
	case PredIntra:
		return "intra"
	case PredInter:
		return "inter"
	case PredSkip:
		return "skip"
	}
	return fmt.Sprintf("pred(%d)", int(m))
}

// Valid reports whether m is one of the three defined prediction modes.
// Decoder output is untrusted, so callers must check before bucketing.
func (m PredMode) Valid() bool {
	return m >= PredIntra && m <= PredSkip
}

// cell is one minimum coding-block grid entry. Only CU origin cells carry
// data; Log2CbSize == 0 marks a non-origin cell.
type cell struct {
	log2CbSize int
	qpY        int
	qpCb       int
	qpCr       int
	pred       PredMode
}

// Frame is the coding metadata of one reconstructed picture: an ID and a
// WidthInMinCbs x HeightInMinCbs grid of minimum coding-block cells at
// MinCbSize pixels each.
type Frame struct {
	ID             int
	WidthInMinCbs  int
	HeightInMinCbs int
	MinCbSize      int

	cells []cell
}

// NewFrame creates an empty frame grid. All cells start as non-origin cells.
func NewFrame(id, widthInMinCbs, heightInMinCbs, minCbSize int) (*Frame, error) {
	if widthInMinCbs <= 0 || heightInMinCbs <= 0 {
		return nil, fmt.Errorf("invalid grid dimensions %dx%d", widthInMinCbs, heightInMinCbs)
	}
	if minCbSize <= 0 || minCbSize&(minCbSize-1) != 0 {
		return nil, fmt.Errorf("min cb size must be a positive power of two, got %d", minCbSize)
	}
	return &Frame{
		ID:             id,
		WidthInMinCbs:  widthInMinCbs,
		HeightInMinCbs: heightInMinCbs,
		MinCbSize:      minCbSize,
		cells:          make([]cell, widthInMinCbs*heightInMinCbs),
	}, nil
}

// SetCU anchors a coding unit at grid cell (x0,y0), in min-cb units.
// log2CbSize is the CU's log2 pixel size and must be > 0. The QP and
// prediction-mode values are stored as supplied; domain validation happens
// at aggregation time so that a bad decoder value is a recoverable
// diagnostic rather than a rejected frame.
func (f *Frame) SetCU(x0, y0, log2CbSize, qpY, qpCb, qpCr int, pred PredMode) error {
	if x0 < 0 || x0 >= f.WidthInMinCbs || y0 < 0 || y0 >= f.HeightInMinCbs {
		return fmt.Errorf("cu origin (%d,%d) outside %dx%d grid", x0, y0, f.WidthInMinCbs, f.HeightInMinCbs)
	}
	if log2CbSize <= 0 {
		return fmt.Errorf("cu at (%d,%d) has non-positive log2 size %d", x0, y0, log2CbSize)
	}
	f.cells[y0*f.WidthInMinCbs+x0] = cell{
		log2CbSize: log2CbSize,
		qpY:        qpY,
		qpCb:       qpCb,
		qpCr:       qpCr,
		pred:       pred,
	}
	return nil
}

func (f *Frame) cellAtPixel(xb, yb int) *cell {
	x0 := xb / f.MinCbSize
	y0 := yb / f.MinCbSize
	if x0 < 0 || x0 >= f.WidthInMinCbs || y0 < 0 || y0 >= f.HeightInMinCbs {
		return nil
	}
	return &f.cells[y0*f.WidthInMinCbs+x0]
}

// Log2CbSizeAt returns the log2 CU size stored at pixel coordinate (xb,yb),
// or 0 when the covering cell is not a CU origin.
func (f *Frame) Log2CbSizeAt(xb, yb int) int {
	if c := f.cellAtPixel(xb, yb); c != nil {
		return c.log2CbSize
	}
	return 0
}

// QPYAt returns the luma QP stored at pixel coordinate (xb,yb).
func (f *Frame) QPYAt(xb, yb int) int {
	if c := f.cellAtPixel(xb, yb); c != nil {
		return c.qpY
	}
	return 0
}

// QPCbAt returns the chroma Cb QP stored at pixel coordinate (xb,yb).
func (f *Frame) QPCbAt(xb, yb int) int {
	if c := f.cellAtPixel(xb, yb); c != nil {
		return c.qpCb
	}
	return 0
}

// QPCrAt returns the chroma Cr QP stored at pixel coordinate (xb,yb).
func (f *Frame) QPCrAt(xb, yb int) int {
	if c := f.cellAtPixel(xb, yb); c != nil {
		return c.qpCr
	}
	return 0
}

// PredModeAt returns the prediction mode stored at pixel coordinate (xb,yb).
func (f *Frame) PredModeAt(xb, yb int) PredMode {
	if c := f.cellAtPixel(xb, yb); c != nil {
		return c.pred
	}
	return 0
}

// CU describes one coding unit during traversal.
type CU struct {
	// X and Y are the pixel coordinates of the CU's top-left corner.
	X, Y     int
	Log2Size int
	Size     int
	QPY      int
	QPCb     int
	QPCr     int
	PredMode PredMode
}

// ForEachCU visits every coding unit in the frame in row-major grid order
// (y outer, x inner). Cells with Log2CbSize == 0 are not CU origins and are
// skipped, so each CU is visited exactly once regardless of its footprint.
func (f *Frame) ForEachCU(visit func(CU)) {
	for y0 := 0; y0 < f.HeightInMinCbs; y0++ {
		for x0 := 0; x0 < f.WidthInMinCbs; x0++ {
			c := &f.cells[y0*f.WidthInMinCbs+x0]
			if c.log2CbSize == 0 {
				continue
			}
			visit(CU{
				X:        x0 * f.MinCbSize,
				Y:        y0 * f.MinCbSize,
				Log2Size: c.log2CbSize,
				Size:     1 << c.log2CbSize,
				QPY:      c.qpY,
				QPCb:     c.qpCb,
				QPCr:     c.qpCr,
				PredMode: c.pred,
			})
		}
	}
}

// CUCount returns the number of CU origin cells in the frame.
func (f *Frame) CUCount() int {
	n := 0
	for i := range f.cells {
		if f.cells[i].log2CbSize > 0 {
			n++
		}
	}
	return n
}
