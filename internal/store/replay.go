package store

import (
	"fmt"

	"github.com/roach88/deltasim/internal/engine"
	"github.com/roach88/deltasim/internal/value"
)

// Divergence describes the first difference between two traces.
type Divergence struct {
	Ordinal  int                `json:"ordinal"`
	Want     *engine.Assignment `json:"-"`
	Got      *engine.Assignment `json:"-"`
	Describe string             `json:"describe"`
}

// CompareTraces compares two traces assignment by assignment on time,
// delta cycle, signal and value hash. Returns nil when they agree.
// Event sequence numbers are not compared.
func CompareTraces(want, got []engine.Assignment) *Divergence {
	n := min(len(want), len(got))
	for i := 0; i < n; i++ {
		w, g := want[i], got[i]
		if d := describeDifference(w, g); d != "" {
			return &Divergence{Ordinal: i, Want: &w, Got: &g, Describe: d}
		}
	}
	switch {
	case len(want) > n:
		w := want[n]
		return &Divergence{Ordinal: n, Want: &w, Describe: fmt.Sprintf("missing assignment %s", formatAssignment(w))}
	case len(got) > n:
		g := got[n]
		return &Divergence{Ordinal: n, Got: &g, Describe: fmt.Sprintf("extra assignment %s", formatAssignment(g))}
	}
	return nil
}

func describeDifference(w, g engine.Assignment) string {
	switch {
	case w.Time != g.Time || w.Delta != g.Delta:
		return fmt.Sprintf("time %s+%d, want %s+%d", g.Time, g.Delta, w.Time, w.Delta)
	case w.Signal != g.Signal:
		return fmt.Sprintf("signal %q, want %q", g.Signal, w.Signal)
	case valueHash(w.Value) != valueHash(g.Value):
		return fmt.Sprintf("%s = %s, want %s", g.Signal, value.OrUndefined(g.Value), value.OrUndefined(w.Value))
	}
	return ""
}

func valueHash(v value.Value) string {
	_, h, err := marshalValue(v)
	if err != nil {
		return "unencodable:" + v.String()
	}
	return h
}

func formatAssignment(a engine.Assignment) string {
	return fmt.Sprintf("%s = %s at %s+%d", a.Signal, value.OrUndefined(a.Value), a.Time, a.Delta)
}
