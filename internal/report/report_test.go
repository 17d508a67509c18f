package report

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/qp.report/internal/hevc"
)

func qpConfig(mode Mode, min, max int) Config {
	return Config{Mode: mode, MinPrintedQP: min, MaxPrintedQP: max}
}

func mustFrame(t *testing.T, id int) *hevc.Frame {
	t.Helper()
	f, err := hevc.NewFrame(id, 16, 16, 8)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	return f
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		name      string
		cfg       Config
		expectErr bool
	}{
		{"defaults", DefaultConfig(), false},
		{"narrow_range", qpConfig(ModeQPY, 30, 30), false},
		{"inverted_range", qpConfig(ModeQPY, 40, 30), true},
		{"min_below_domain", qpConfig(ModeQPY, -1, 63), true},
		{"max_above_domain", qpConfig(ModeQPY, 0, 100), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.expectErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tc.expectErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeQPY, ModeQPCb, ModeQPCr, ModePred, ModeCTU, ModeFull} {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseMode("bogus"); err == nil {
		t.Error("ParseMode(bogus) should fail")
	}
}

func TestHeaderColumns(t *testing.T) {
	t.Run("qp", func(t *testing.T) {
		got := HeaderColumns(qpConfig(ModeQPY, 28, 30))
		want := []string{
			"frame",
			"qp_num", "qp_min", "qp_max", "qp_avg", "qp_stddev",
			"qpw_num", "qpw_min", "qpw_max", "qpw_avg", "qpw_stddev",
			"28", "29", "30",
			"28w", "29w", "30w",
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("header mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("pred", func(t *testing.T) {
		got := HeaderColumns(Config{Mode: ModePred})
		want := []string{
			"frame",
			"intra", "inter", "skip",
			"intra_ratio", "inter_ratio", "skip_ratio",
			"intraw", "interw", "skipw",
			"intraw_ratio", "interw_ratio", "skipw_ratio",
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("header mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("ctu", func(t *testing.T) {
		got := HeaderColumns(Config{Mode: ModeCTU})
		if len(got) != 17 {
			t.Fatalf("ctu header has %d columns, want 17", len(got))
		}
		if got[1] != "ctu8" || got[16] != "ctu64w_ratio" {
			t.Errorf("ctu header bounds = %q..%q", got[1], got[16])
		}
	})

	t.Run("full", func(t *testing.T) {
		got := HeaderColumns(Config{Mode: ModeFull})
		want := []string{"frame", "xb", "yb", "size", "qpy", "qpcb", "qpcr", "pred_mode", "ctu_size"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("header mismatch (-want +got):\n%s", diff)
		}
	})
}

// lines splits engine output into CSV lines, dropping the trailing blank.
func lines(buf *bytes.Buffer) []string {
	out := strings.Split(buf.String(), "\n")
	if len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

func TestQPRowSingleCU(t *testing.T) {
	f := mustFrame(t, 0)
	if err := f.SetCU(0, 0, 6, 30, 30, 30, hevc.PredIntra); err != nil {
		t.Fatalf("SetCU: %v", err)
	}

	var buf bytes.Buffer
	e := NewEngine(qpConfig(ModeQPY, 28, 32), &buf)
	if err := e.ProcessFrame(f); err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}

	got := lines(&buf)
	if len(got) != 2 {
		t.Fatalf("got %d lines, want header + 1 row", len(got))
	}
	wantRow := "0," +
		"1,30,30,30.000000,0.000000," +
		"4096,30,30,30.000000,0.000000," +
		"0,0,1,0,0," +
		"0,0,4096,0,0"
	if got[1] != wantRow {
		t.Errorf("row = %q, want %q", got[1], wantRow)
	}
}

func TestQPRowSummaryOutsidePrintedRange(t *testing.T) {
	// QP 29 is below the printed range: absent from the per-QP columns
	// but still driving qp_min and the aggregate statistics.
	f := mustFrame(t, 3)
	if err := f.SetCU(0, 0, 5, 29, 29, 29, hevc.PredInter); err != nil {
		t.Fatalf("SetCU: %v", err)
	}
	if err := f.SetCU(4, 0, 5, 31, 31, 31, hevc.PredInter); err != nil {
		t.Fatalf("SetCU: %v", err)
	}

	var buf bytes.Buffer
	e := NewEngine(qpConfig(ModeQPY, 30, 34), &buf)
	if err := e.ProcessFrame(f); err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}

	row := strings.Split(lines(&buf)[1], ",")
	if row[2] != "29" {
		t.Errorf("qp_min column = %q, want 29 despite narrow printed range", row[2])
	}
	if row[1] != "2" {
		t.Errorf("qp_num column = %q, want 2", row[1])
	}
	// Printed slice covers 30..34: only QP 31 appears in it.
	printed := row[11 : 11+5]
	if diff := cmp.Diff([]string{"0", "1", "0", "0", "0"}, printed); diff != "" {
		t.Errorf("printed slice mismatch (-want +got):\n%s", diff)
	}
}

func TestQPRowDegenerateFrame(t *testing.T) {
	var buf bytes.Buffer
	e := NewEngine(qpConfig(ModeQPY, 30, 31), &buf)
	if err := e.ProcessFrame(mustFrame(t, 9)); err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}

	got := lines(&buf)
	wantRow := "9," +
		"0,-1,-1,NaN,NaN," +
		"0,-1,-1,NaN,NaN," +
		"0,0," +
		"0,0"
	if got[1] != wantRow {
		t.Errorf("row = %q, want %q", got[1], wantRow)
	}
}

func TestPredRow(t *testing.T) {
	f := mustFrame(t, 2)
	// 2 intra, 1 inter, 1 skip; all 16x16 so weighted ratios match.
	for i, pred := range []hevc.PredMode{hevc.PredIntra, hevc.PredIntra, hevc.PredInter, hevc.PredSkip} {
		if err := f.SetCU(i*2, 0, 4, 30, 30, 30, pred); err != nil {
			t.Fatalf("SetCU: %v", err)
		}
	}

	var buf bytes.Buffer
	e := NewEngine(Config{Mode: ModePred}, &buf)
	if err := e.ProcessFrame(f); err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}

	row := strings.Split(lines(&buf)[1], ",")
	if diff := cmp.Diff([]string{"2", "1", "1"}, row[1:4]); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
	if row[4] != "0.500000" || row[5] != "0.250000" || row[6] != "0.250000" {
		t.Errorf("ratios = %v, want 0.5/0.25/0.25", row[4:7])
	}

	// Ratio columns must sum to 1.
	var sum float64
	for _, col := range row[4:7] {
		v, err := strconv.ParseFloat(col, 64)
		if err != nil {
			t.Fatalf("parsing ratio %q: %v", col, err)
		}
		sum += v
	}
	if sum < 0.999999 || sum > 1.000001 {
		t.Errorf("ratio sum = %f, want 1.0", sum)
	}
}

func TestPredRowDegenerateFrame(t *testing.T) {
	var buf bytes.Buffer
	e := NewEngine(Config{Mode: ModePred}, &buf)
	if err := e.ProcessFrame(mustFrame(t, 5)); err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}

	got := lines(&buf)
	wantRow := "5,0,0,0,NaN,NaN,NaN,0,0,0,NaN,NaN,NaN"
	if got[1] != wantRow {
		t.Errorf("row = %q, want %q", got[1], wantRow)
	}
}

func TestCTURow(t *testing.T) {
	f := mustFrame(t, 1)
	if err := f.SetCU(0, 0, 6, 30, 30, 30, hevc.PredInter); err != nil { // 64
		t.Fatalf("SetCU: %v", err)
	}
	if err := f.SetCU(8, 0, 6, 30, 30, 30, hevc.PredInter); err != nil { // 64
		t.Fatalf("SetCU: %v", err)
	}
	if err := f.SetCU(0, 8, 5, 30, 30, 30, hevc.PredInter); err != nil { // 32
		t.Fatalf("SetCU: %v", err)
	}
	if err := f.SetCU(4, 8, 3, 30, 30, 30, hevc.PredInter); err != nil { // 8
		t.Fatalf("SetCU: %v", err)
	}

	var buf bytes.Buffer
	e := NewEngine(Config{Mode: ModeCTU}, &buf)
	if err := e.ProcessFrame(f); err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}

	row := strings.Split(lines(&buf)[1], ",")
	if diff := cmp.Diff([]string{"1", "0", "1", "2"}, row[1:5]); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
	if row[5] != "0.250000" || row[8] != "0.500000" {
		t.Errorf("ratios = %v", row[5:9])
	}
	// Weighted counts: 64, 0, 1024, 8192.
	if diff := cmp.Diff([]string{"64", "0", "1024", "8192"}, row[9:13]); diff != "" {
		t.Errorf("weighted counts mismatch (-want +got):\n%s", diff)
	}
}

func TestFullRows(t *testing.T) {
	f := mustFrame(t, 4)
	if err := f.SetCU(0, 0, 5, 28, 29, 30, hevc.PredIntra); err != nil {
		t.Fatalf("SetCU: %v", err)
	}
	if err := f.SetCU(4, 2, 4, 33, 34, 35, hevc.PredSkip); err != nil {
		t.Fatalf("SetCU: %v", err)
	}

	var buf bytes.Buffer
	e := NewEngine(Config{Mode: ModeFull}, &buf)
	if err := e.ProcessFrame(f); err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}

	got := lines(&buf)
	want := []string{
		"frame,xb,yb,size,qpy,qpcb,qpcr,pred_mode,ctu_size",
		"4,0,0,32,28,29,30,0,32",
		"4,32,16,16,33,34,35,2,16",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestHeaderWrittenOnce(t *testing.T) {
	var buf bytes.Buffer
	e := NewEngine(Config{Mode: ModePred}, &buf)
	if err := e.WriteHeader(); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	if err := e.WriteHeader(); err != nil {
		t.Fatalf("second WriteHeader: %v", err)
	}
	if err := e.ProcessFrame(mustFrame(t, 0)); err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}

	got := lines(&buf)
	if len(got) != 2 {
		t.Fatalf("got %d lines, want exactly one header and one row", len(got))
	}
	if !strings.HasPrefix(got[0], "frame,intra") {
		t.Errorf("first line = %q, want header", got[0])
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errSink
}

var errSink = &sinkError{}

type sinkError struct{}

func (*sinkError) Error() string { return "sink closed" }

func TestSinkFailurePropagates(t *testing.T) {
	e := NewEngine(Config{Mode: ModePred}, failingWriter{})
	if err := e.ProcessFrame(mustFrame(t, 0)); err == nil {
		t.Fatal("expected error from failing sink")
	}
}
