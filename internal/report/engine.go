package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"

	"github.com/banshee-data/qp.report/internal/hevc"
	"github.com/banshee-data/qp.report/internal/qpstats"
)

// Recorder mirrors per-frame QP summaries to secondary storage as rows are
// written. The CSV sink remains the primary output; a recorder failure is
// treated like a sink failure.
type Recorder interface {
	RecordQPFrame(frameID int, unweighted, weighted qpstats.Summary) error
}

// Engine turns frames into report rows. It is single-writer and
// synchronous: ProcessFrame completes all aggregation and output for one
// frame before returning, and keeps no state across frames beyond the
// output stream position.
type Engine struct {
	cfg Config
	w   *csv.Writer

	// Recorder, when set before processing starts, receives the computed
	// summaries for QP-family modes.
	Recorder Recorder

	wroteHeader bool
}

// NewEngine creates an engine writing to sink. cfg must have passed
// Validate.
func NewEngine(cfg Config, sink io.Writer) *Engine {
	return &Engine{cfg: cfg, w: csv.NewWriter(sink)}
}

// Config returns the engine's run configuration.
func (e *Engine) Config() Config { return e.cfg }

// WriteHeader emits the one-time header row. It must be called before the
// first ProcessFrame and is a no-op on repeat calls.
func (e *Engine) WriteHeader() error {
	if e.wroteHeader {
		return nil
	}
	if err := e.w.Write(HeaderColumns(e.cfg)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	e.wroteHeader = true
	return e.flush()
}

// ProcessFrame aggregates one frame and writes its row(s). Invalid metric
// values inside the frame are diagnostics, not errors; only output I/O
// failure returns an error.
func (e *Engine) ProcessFrame(f *hevc.Frame) error {
	if !e.wroteHeader {
		if err := e.WriteHeader(); err != nil {
			return err
		}
	}
	switch e.cfg.Mode {
	case ModeQPY, ModeQPCb, ModeQPCr:
		return e.writeQPRow(f)
	case ModePred:
		return e.writePredRow(f)
	case ModeCTU:
		return e.writeCTURow(f)
	case ModeFull:
		return e.writeFullRows(f)
	}
	return fmt.Errorf("unsupported report mode %v", e.cfg.Mode)
}

func (e *Engine) writeQPRow(f *hevc.Frame) error {
	h := qpstats.BuildQP(f, e.cfg.Mode.Plane())
	un, wt := qpstats.SummarizeQP(h)

	// The printed per-QP columns are a slice of the domain; observed
	// values outside the slice still feed the summary columns above, so
	// only warn.
	if h.Max > e.cfg.MaxPrintedQP {
		log.Printf("warning: frame %d: QP columns stop at %d but values reach %d; consider --max-qp %d",
			f.ID, e.cfg.MaxPrintedQP, h.Max, h.Max)
	}
	if h.Min >= 0 && h.Min < e.cfg.MinPrintedQP {
		log.Printf("warning: frame %d: QP columns start at %d but values reach down to %d; consider --min-qp %d",
			f.ID, e.cfg.MinPrintedQP, h.Min, h.Min)
	}

	row := []string{
		strconv.Itoa(f.ID),
		formatInt(un.Num), strconv.Itoa(un.Min), strconv.Itoa(un.Max), formatFloat(un.Avg), formatFloat(un.Stddev),
		formatInt(wt.Num), strconv.Itoa(wt.Min), strconv.Itoa(wt.Max), formatFloat(wt.Avg), formatFloat(wt.Stddev),
	}
	for qp := e.cfg.MinPrintedQP; qp <= e.cfg.MaxPrintedQP; qp++ {
		row = append(row, formatInt(h.Counts[qp]))
	}
	for qp := e.cfg.MinPrintedQP; qp <= e.cfg.MaxPrintedQP; qp++ {
		row = append(row, formatInt(h.Weighted[qp]))
	}
	if err := e.writeRow(row); err != nil {
		return err
	}
	if e.Recorder != nil {
		if err := e.Recorder.RecordQPFrame(f.ID, un, wt); err != nil {
			return fmt.Errorf("recording frame %d: %w", f.ID, err)
		}
	}
	return nil
}

func (e *Engine) writePredRow(f *hevc.Frame) error {
	h := qpstats.BuildPred(f)
	sum := qpstats.Sum(h.Counts[:])
	sumw := qpstats.Sum(h.Weighted[:])

	row := []string{strconv.Itoa(f.ID)}
	for _, c := range h.Counts {
		row = append(row, formatInt(c))
	}
	for _, c := range h.Counts {
		row = append(row, formatFloat(qpstats.Ratio(c, sum)))
	}
	for _, c := range h.Weighted {
		row = append(row, formatInt(c))
	}
	for _, c := range h.Weighted {
		row = append(row, formatFloat(qpstats.Ratio(c, sumw)))
	}
	return e.writeRow(row)
}

func (e *Engine) writeCTURow(f *hevc.Frame) error {
	h := qpstats.BuildCTU(f)
	sum := qpstats.Sum(h.Counts[:])
	sumw := qpstats.Sum(h.Weighted[:])

	row := []string{strconv.Itoa(f.ID)}
	for _, c := range h.Counts {
		row = append(row, formatInt(c))
	}
	for _, c := range h.Counts {
		row = append(row, formatFloat(qpstats.Ratio(c, sum)))
	}
	for _, c := range h.Weighted {
		row = append(row, formatInt(c))
	}
	for _, c := range h.Weighted {
		row = append(row, formatFloat(qpstats.Ratio(c, sumw)))
	}
	return e.writeRow(row)
}

func (e *Engine) writeFullRows(f *hevc.Frame) error {
	var visitErr error
	f.ForEachCU(func(cu hevc.CU) {
		if visitErr != nil {
			return
		}
		row := []string{
			strconv.Itoa(f.ID),
			strconv.Itoa(cu.X),
			strconv.Itoa(cu.Y),
			strconv.Itoa(cu.Size),
			strconv.Itoa(cu.QPY),
			strconv.Itoa(cu.QPCb),
			strconv.Itoa(cu.QPCr),
			strconv.Itoa(int(cu.PredMode)),
			strconv.Itoa(cu.Size),
		}
		if err := e.w.Write(row); err != nil {
			visitErr = fmt.Errorf("writing frame %d: %w", f.ID, err)
		}
	})
	if visitErr != nil {
		return visitErr
	}
	return e.flush()
}

func (e *Engine) writeRow(row []string) error {
	if err := e.w.Write(row); err != nil {
		return fmt.Errorf("writing row: %w", err)
	}
	return e.flush()
}

// flush pushes buffered rows into the sink and surfaces any I/O error.
// Output failure is the one fatal error class: the caller must stop the run.
func (e *Engine) flush() error {
	e.w.Flush()
	if err := e.w.Error(); err != nil {
		return fmt.Errorf("flushing output: %w", err)
	}
	return nil
}
