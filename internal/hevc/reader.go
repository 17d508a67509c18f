package hevc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// frameRecord is the JSONL wire form of one frame's coding metadata, as
// dumped by the decoder side.
type frameRecord struct {
	Frame          int        `json:"frame"`
	WidthInMinCbs  int        `json:"width_min_cbs"`
	HeightInMinCbs int        `json:"height_min_cbs"`
	MinCbSize      int        `json:"min_cb_size"`
	CUs            []cuRecord `json:"cus"`
}

// cuRecord is one coding unit inside a frameRecord. Coordinates are in
// min-cb grid units.
type cuRecord struct {
	X0       int `json:"x0"`
	Y0       int `json:"y0"`
	Log2Size int `json:"log2_size"`
	QPY      int `json:"qpy"`
	QPCb     int `json:"qpcb"`
	QPCr     int `json:"qpcr"`
	PredMode int `json:"pred_mode"`
}

// maxRecordBytes bounds a single JSONL frame record. A 4K frame at 8px
// min-cb granularity is ~130k cells, far below this.
const maxRecordBytes = 16 * 1024 * 1024

// Reader decodes frame records from a JSONL stream, one frame per line, in
// decode order. It is the replay-side frame source: the engine pulls frames
// with Next until io.EOF.
type Reader struct {
	sc   *bufio.Scanner
	line int
}

// NewReader wraps r in a frame-record reader.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxRecordBytes)
	return &Reader{sc: sc}
}

// Next returns the next frame in the stream, or io.EOF when the stream is
// exhausted. Blank lines are skipped; a malformed record is an error (the
// dump is machine-written, so corruption means the replay is unusable).
func (r *Reader) Next() (*Frame, error) {
	for r.sc.Scan() {
		r.line++
		raw := r.sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec frameRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("line %d: malformed frame record: %w", r.line, err)
		}
		f, err := frameFromRecord(&rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.line, err)
		}
		return f, nil
	}
	if err := r.sc.Err(); err != nil {
		return nil, fmt.Errorf("reading frame records: %w", err)
	}
	return nil, io.EOF
}

func frameFromRecord(rec *frameRecord) (*Frame, error) {
	f, err := NewFrame(rec.Frame, rec.WidthInMinCbs, rec.HeightInMinCbs, rec.MinCbSize)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", rec.Frame, err)
	}
	for _, cu := range rec.CUs {
		if err := f.SetCU(cu.X0, cu.Y0, cu.Log2Size, cu.QPY, cu.QPCb, cu.QPCr, PredMode(cu.PredMode)); err != nil {
			return nil, fmt.Errorf("frame %d: %w", rec.Frame, err)
		}
	}
	return f, nil
}
