// qpheatmap renders the per-frame QP distribution of a qpextract QP-mode
// report as a heatmap figure: frame numbers on the X axis, QP values on the
// Y axis, cell intensity following the per-frame bucket counts. Output is a
// PNG, or a self-contained HTML chart when the output path ends in .html.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/qp.report/internal/heatmap"
)

func main() {
	var (
		infile  = flag.String("i", "-", "input qpextract CSV report (\"-\" for stdin)")
		outfile = flag.String("o", "", "output figure (.png or .html)")
		noTrim  = flag.Bool("no-trim", false, "keep QP rows that are zero across all frames")
	)
	flag.Parse()

	if *outfile == "" {
		log.Fatalf("qpheatmap: -o is required")
	}

	in := os.Stdin
	if *infile != "" && *infile != "-" {
		f, err := os.Open(*infile)
		if err != nil {
			log.Fatalf("qpheatmap: cannot open %s: %v", *infile, err)
		}
		defer f.Close()
		in = f
	}

	m, err := heatmap.FromCSV(in)
	if err != nil {
		log.Fatalf("qpheatmap: %v", err)
	}
	if !*noTrim {
		m.Trim()
	}

	if strings.EqualFold(filepath.Ext(*outfile), ".html") {
		f, err := os.Create(*outfile)
		if err != nil {
			log.Fatalf("qpheatmap: cannot create %s: %v", *outfile, err)
		}
		defer f.Close()
		if err := heatmap.RenderHTML(m, f); err != nil {
			log.Fatalf("qpheatmap: %v", err)
		}
		return
	}

	if err := heatmap.RenderPNG(m, *outfile); err != nil {
		log.Fatalf("qpheatmap: %v", err)
	}
}
