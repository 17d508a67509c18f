// qpextract reads per-frame HEVC coding metadata (JSONL frame records
// dumped by the decoder) and writes per-frame distribution reports as CSV.
//
// Six modes are available: qpymode/qpcbmode/qpcrmode (QP distribution per
// plane, with unweighted and pixel-area-weighted histograms and summary
// statistics), predmode (prediction-mode shares), ctumode (CU size-class
// shares) and fullmode (one row per CU). QP-family summaries can optionally
// be mirrored into a sqlite database for later querying.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/qp.report/internal/hevc"
	"github.com/banshee-data/qp.report/internal/qpdb"
	"github.com/banshee-data/qp.report/internal/report"
)

func main() {
	var (
		infile  = flag.String("i", "-", "input frame-record JSONL file (\"-\" for stdin)")
		outfile = flag.String("o", "-", "output CSV file (\"-\" for stdout)")

		qpyMode  = flag.Bool("qpymode", false, "report the distribution of luma QP values (default)")
		qpcbMode = flag.Bool("qpcbmode", false, "report the distribution of chroma Cb QP values")
		qpcrMode = flag.Bool("qpcrmode", false, "report the distribution of chroma Cr QP values")
		predMode = flag.Bool("predmode", false, "report the distribution of prediction modes")
		ctuMode  = flag.Bool("ctumode", false, "report the distribution of CU size classes")
		fullMode = flag.Bool("fullmode", false, "report every CU (one row per CU)")

		minQP     = flag.Int("min-qp", 0, "minimum QP rendered as an individual CSV column")
		maxQP     = flag.Int("max-qp", 63, "maximum QP rendered as an individual CSV column")
		verbosity = flag.Int("v", 0, "verbosity level")

		dbPath = flag.String("db", "", "sqlite database to mirror per-frame QP summaries into (QP modes only)")
	)
	flag.Parse()

	mode, err := selectMode(*qpyMode, *qpcbMode, *qpcrMode, *predMode, *ctuMode, *fullMode)
	if err != nil {
		log.Fatalf("qpextract: %v", err)
	}

	cfg := report.Config{
		Mode:         mode,
		MinPrintedQP: *minQP,
		MaxPrintedQP: *maxQP,
		Verbosity:    *verbosity,
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("qpextract: %v", err)
	}

	in := os.Stdin
	if *infile != "" && *infile != "-" {
		f, err := os.Open(*infile)
		if err != nil {
			log.Fatalf("qpextract: cannot open %s: %v", *infile, err)
		}
		defer f.Close()
		in = f
	}

	out := os.Stdout
	if *outfile != "" && *outfile != "-" {
		f, err := os.Create(*outfile)
		if err != nil {
			log.Fatalf("qpextract: cannot create %s: %v", *outfile, err)
		}
		defer f.Close()
		out = f
	}

	var rec report.Recorder
	if *dbPath != "" {
		if !cfg.Mode.IsQP() {
			log.Fatalf("qpextract: --db only applies to QP modes, not %v", cfg.Mode)
		}
		store, err := qpdb.Open(*dbPath)
		if err != nil {
			log.Fatalf("qpextract: %v", err)
		}
		defer store.Close()
		rr, err := qpdb.NewRunRecorder(store, cfg.Mode.String(), cfg.MinPrintedQP, cfg.MaxPrintedQP)
		if err != nil {
			log.Fatalf("qpextract: %v", err)
		}
		if cfg.Verbosity > 0 {
			log.Printf("recording run %s into %s", rr.RunID(), *dbPath)
		}
		rec = rr
	}

	if err := run(cfg, in, out, rec); err != nil {
		log.Fatalf("qpextract: %v", err)
	}
}

// selectMode resolves the mutually exclusive mode flags. No flag means QPY
// mode; more than one is an error.
func selectMode(qpy, qpcb, qpcr, pred, ctu, full bool) (report.Mode, error) {
	mode := report.ModeQPY
	n := 0
	for _, sel := range []struct {
		set  bool
		mode report.Mode
	}{
		{qpy, report.ModeQPY},
		{qpcb, report.ModeQPCb},
		{qpcr, report.ModeQPCr},
		{pred, report.ModePred},
		{ctu, report.ModeCTU},
		{full, report.ModeFull},
	} {
		if sel.set {
			mode = sel.mode
			n++
		}
	}
	if n > 1 {
		return 0, fmt.Errorf("more than one report mode selected")
	}
	return mode, nil
}

// run drives the engine: header first, then one synchronous ProcessFrame
// per delivered frame until the source is exhausted.
func run(cfg report.Config, in io.Reader, out io.Writer, rec report.Recorder) error {
	engine := report.NewEngine(cfg, out)
	engine.Recorder = rec

	if err := engine.WriteHeader(); err != nil {
		return err
	}

	frames := 0
	r := hevc.NewReader(in)
	for {
		frame, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if err := engine.ProcessFrame(frame); err != nil {
			return err
		}
		frames++
	}
	if cfg.Verbosity > 0 {
		log.Printf("processed %d frames", frames)
	}
	return nil
}
