// Package heatmap turns the per-frame QP distributions of a QP-mode report
// into a frame-by-QP intensity matrix and renders it as a PNG or HTML
// figure: frames on the X axis, QP values on the Y axis, darker cells where
// a QP value dominates a frame.
package heatmap

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// qpSummaryColumns is the number of leading summary columns in a QP-mode
// report row, before the per-QP count columns start.
const qpSummaryColumns = 11

// Matrix holds per-frame QP occurrence counts. Counts[i][q] is the count of
// QP value MinQP+q in frame Frames[i].
type Matrix struct {
	MinQP  int
	Frames []int
	Counts [][]int64
}

// QPSpan returns the number of QP rows in the matrix.
func (m *Matrix) QPSpan() int {
	if len(m.Counts) == 0 {
		return 0
	}
	return len(m.Counts[0])
}

// MaxCount returns the largest single cell count.
func (m *Matrix) MaxCount() int64 {
	var max int64
	for _, row := range m.Counts {
		for _, c := range row {
			if c > max {
				max = c
			}
		}
	}
	return max
}

// FromCSV parses a QP-mode report (header plus one row per frame) into a
// matrix. Only the unweighted per-QP columns are read; the weighted block
// (labels ending in "w") and the summary columns are skipped.
func FromCSV(r io.Reader) (*Matrix, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) <= qpSummaryColumns || header[0] != "frame" {
		return nil, fmt.Errorf("not a QP-mode report header (%d columns)", len(header))
	}

	minQP, err := strconv.Atoi(header[qpSummaryColumns])
	if err != nil {
		return nil, fmt.Errorf("first QP column label %q: %w", header[qpSummaryColumns], err)
	}
	span := 0
	for _, label := range header[qpSummaryColumns:] {
		if strings.HasSuffix(label, "w") {
			break
		}
		if _, err := strconv.Atoi(label); err != nil {
			return nil, fmt.Errorf("unexpected QP column label %q", label)
		}
		span++
	}

	m := &Matrix{MinQP: minQP}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		frame, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("frame column %q: %w", rec[0], err)
		}
		if len(rec) < qpSummaryColumns+span {
			return nil, fmt.Errorf("frame %d: row has %d columns, want at least %d", frame, len(rec), qpSummaryColumns+span)
		}
		counts := make([]int64, span)
		for i := 0; i < span; i++ {
			v, err := strconv.ParseInt(rec[qpSummaryColumns+i], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("frame %d: count column %d: %w", frame, i, err)
			}
			counts[i] = v
		}
		m.Frames = append(m.Frames, frame)
		m.Counts = append(m.Counts, counts)
	}
	return m, nil
}

// Trim drops QP rows that are zero across every frame, keeping at least
// three QP values so a flat clip still renders a readable band.
func (m *Matrix) Trim() {
	span := m.QPSpan()
	if span == 0 {
		return
	}
	lo, hi := -1, -1
	for q := 0; q < span; q++ {
		for _, row := range m.Counts {
			if row[q] != 0 {
				if lo == -1 {
					lo = q
				}
				hi = q
				break
			}
		}
	}
	if lo == -1 {
		return
	}
	for hi-lo < 2 {
		if lo > 0 {
			lo--
		}
		if hi < span-1 {
			hi++
		}
		if lo == 0 && hi == span-1 {
			break
		}
	}
	for i, row := range m.Counts {
		m.Counts[i] = row[lo : hi+1]
	}
	m.MinQP += lo
}
