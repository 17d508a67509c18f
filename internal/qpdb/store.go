// Package qpdb persists per-run, per-frame QP summary statistics in sqlite.
// Each extraction run gets a uuid; frame summaries reference it so several
// runs over the same clip (different modes or printed ranges) can live in
// one database file and be queried for later plotting.
package qpdb

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/qp.report/internal/qpstats"
)

// Store wraps the sqlite handle.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and brings its schema up to
// date.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	s := &Store{db: db}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Run identifies one extraction run.
type Run struct {
	ID           string
	Mode         string
	MinPrintedQP int
	MaxPrintedQP int
}

// BeginRun registers a new extraction run and returns its ID.
func (s *Store) BeginRun(mode string, minPrintedQP, maxPrintedQP int) (string, error) {
	id := uuid.New().String()
	_, err := s.db.Exec(
		"INSERT INTO runs (run_id, mode, min_printed_qp, max_printed_qp) VALUES (?, ?, ?, ?)",
		id, mode, minPrintedQP, maxPrintedQP,
	)
	if err != nil {
		return "", fmt.Errorf("registering run: %w", err)
	}
	return id, nil
}

// FrameSummary is one persisted per-frame QP summary row. Avg/Stddev are
// invalid (held NaN) for degenerate frames.
type FrameSummary struct {
	Frame     int
	Num       int64
	Min       int
	Max       int
	Avg       float64
	Stddev    float64
	WNum      int64
	WAvg      float64
	WStddev   float64
}

// nullFloat maps NaN to SQL NULL; sqlite rejects NaN reals.
func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// RecordFrameSummary stores the unweighted and weighted summaries of one
// frame under the given run.
func (s *Store) RecordFrameSummary(runID string, frameID int, un, wt qpstats.Summary) error {
	_, err := s.db.Exec(`
		INSERT INTO frame_stats
			(run_id, frame, qp_num, qp_min, qp_max, qp_avg, qp_stddev, qpw_num, qpw_avg, qpw_stddev)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, frameID,
		un.Num, un.Min, un.Max, nullFloat(un.Avg), nullFloat(un.Stddev),
		wt.Num, nullFloat(wt.Avg), nullFloat(wt.Stddev),
	)
	if err != nil {
		return fmt.Errorf("storing frame %d: %w", frameID, err)
	}
	return nil
}

// FrameSummaries returns the frame summaries of a run in frame order.
func (s *Store) FrameSummaries(runID string) ([]FrameSummary, error) {
	rows, err := s.db.Query(`
		SELECT frame, qp_num, qp_min, qp_max, qp_avg, qp_stddev, qpw_num, qpw_avg, qpw_stddev
		FROM frame_stats WHERE run_id = ? ORDER BY frame`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FrameSummary
	for rows.Next() {
		var fs FrameSummary
		var avg, stddev, wavg, wstddev sql.NullFloat64
		if err := rows.Scan(&fs.Frame, &fs.Num, &fs.Min, &fs.Max, &avg, &stddev, &fs.WNum, &wavg, &wstddev); err != nil {
			return nil, err
		}
		fs.Avg = floatOrNaN(avg)
		fs.Stddev = floatOrNaN(stddev)
		fs.WAvg = floatOrNaN(wavg)
		fs.WStddev = floatOrNaN(wstddev)
		out = append(out, fs)
	}
	return out, rows.Err()
}

// Runs lists all registered runs, newest first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query("SELECT run_id, mode, min_printed_qp, max_printed_qp FROM runs ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Mode, &r.MinPrintedQP, &r.MaxPrintedQP); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunRecorder adapts a run in the store to the report engine's Recorder.
type RunRecorder struct {
	store *Store
	runID string
}

// NewRunRecorder registers a run and returns a recorder feeding it.
func NewRunRecorder(s *Store, mode string, minPrintedQP, maxPrintedQP int) (*RunRecorder, error) {
	id, err := s.BeginRun(mode, minPrintedQP, maxPrintedQP)
	if err != nil {
		return nil, err
	}
	return &RunRecorder{store: s, runID: id}, nil
}

// RunID returns the uuid of the recorder's run.
func (r *RunRecorder) RunID() string { return r.runID }

// RecordQPFrame implements report.Recorder.
func (r *RunRecorder) RecordQPFrame(frameID int, un, wt qpstats.Summary) error {
	return r.store.RecordFrameSummary(r.runID, frameID, un, wt)
}
