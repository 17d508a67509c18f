package report

import (
	"fmt"
	"strconv"
)

// HeaderColumns returns the header row for the active mode. QP modes append
// one column per printed QP value, first unweighted (labelled "30") then
// weighted (labelled "30w").
func HeaderColumns(cfg Config) []string {
	switch cfg.Mode {
	case ModeQPY, ModeQPCb, ModeQPCr:
		header := []string{
			"frame",
			"qp_num", "qp_min", "qp_max", "qp_avg", "qp_stddev",
			"qpw_num", "qpw_min", "qpw_max", "qpw_avg", "qpw_stddev",
		}
		for qp := cfg.MinPrintedQP; qp <= cfg.MaxPrintedQP; qp++ {
			header = append(header, strconv.Itoa(qp))
		}
		for qp := cfg.MinPrintedQP; qp <= cfg.MaxPrintedQP; qp++ {
			header = append(header, strconv.Itoa(qp)+"w")
		}
		return header
	case ModePred:
		return []string{
			"frame",
			"intra", "inter", "skip",
			"intra_ratio", "inter_ratio", "skip_ratio",
			"intraw", "interw", "skipw",
			"intraw_ratio", "interw_ratio", "skipw_ratio",
		}
	case ModeCTU:
		return []string{
			"frame",
			"ctu8", "ctu16", "ctu32", "ctu64",
			"ctu8_ratio", "ctu16_ratio", "ctu32_ratio", "ctu64_ratio",
			"ctu8w", "ctu16w", "ctu32w", "ctu64w",
			"ctu8w_ratio", "ctu16w_ratio", "ctu32w_ratio", "ctu64w_ratio",
		}
	case ModeFull:
		return []string{"frame", "xb", "yb", "size", "qpy", "qpcb", "qpcr", "pred_mode", "ctu_size"}
	}
	return nil
}

// formatFloat renders a float column. NaN (degenerate frame) renders as the
// literal "NaN" so row cardinality is preserved.
func formatFloat(v float64) string {
	return fmt.Sprintf("%f", v)
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
