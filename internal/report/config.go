// Package report renders per-frame distribution reports as CSV. Each frame
// produces exactly one data row (full mode: one row per CU), preceded by a
// single header row that matches the active mode's schema. Diagnostics go
// to the standard logger, never to the data sink.
package report

import (
	"fmt"

	"github.com/banshee-data/qp.report/internal/qpstats"
)

// Mode selects the per-frame report schema.
type Mode int

const (
	ModeQPY Mode = iota
	ModeQPCb
	ModeQPCr
	ModePred
	ModeCTU
	ModeFull
)

func (m Mode) String() string {
	switch m {
	case ModeQPY:
		return "qpy"
	case ModeQPCb:
		return "qpcb"
	case ModeQPCr:
		return "qpcr"
	case ModePred:
		return "pred"
	case ModeCTU:
		return "ctu"
	case ModeFull:
		return "full"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode converts a mode name back into a Mode.
func ParseMode(s string) (Mode, error) {
	for _, m := range []Mode{ModeQPY, ModeQPCb, ModeQPCr, ModePred, ModeCTU, ModeFull} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown report mode %q", s)
}

// IsQP reports whether the mode is one of the three QP-plane modes.
func (m Mode) IsQP() bool {
	return m == ModeQPY || m == ModeQPCb || m == ModeQPCr
}

// Plane returns the QP plane a QP-family mode aggregates. Only meaningful
// when IsQP() is true.
func (m Mode) Plane() qpstats.Plane {
	switch m {
	case ModeQPCb:
		return qpstats.PlaneCb
	case ModeQPCr:
		return qpstats.PlaneCr
	default:
		return qpstats.PlaneY
	}
}

// Config is the immutable run configuration. It is constructed once at
// startup and passed by value; nothing mutates it after processing begins.
type Config struct {
	Mode Mode

	// MinPrintedQP and MaxPrintedQP bound which QP buckets appear as
	// individual CSV columns. Values outside the bound still feed the
	// aggregate statistics columns.
	MinPrintedQP int
	MaxPrintedQP int

	Verbosity int
}

// DefaultConfig returns the default run configuration: QPY mode, printed QP
// range 0..63.
func DefaultConfig() Config {
	return Config{Mode: ModeQPY, MinPrintedQP: 0, MaxPrintedQP: 63}
}

// Validate checks the configuration's internal consistency.
func (c Config) Validate() error {
	if c.MinPrintedQP < qpstats.MinQP || c.MinPrintedQP >= qpstats.NumQP {
		return fmt.Errorf("min printed qp %d outside [%d,%d)", c.MinPrintedQP, qpstats.MinQP, qpstats.NumQP)
	}
	if c.MaxPrintedQP < qpstats.MinQP || c.MaxPrintedQP >= qpstats.NumQP {
		return fmt.Errorf("max printed qp %d outside [%d,%d)", c.MaxPrintedQP, qpstats.MinQP, qpstats.NumQP)
	}
	if c.MinPrintedQP > c.MaxPrintedQP {
		return fmt.Errorf("min printed qp %d greater than max printed qp %d", c.MinPrintedQP, c.MaxPrintedQP)
	}
	return nil
}
