package kinds

import (
	"fmt"

	"golang.org/x/exp/constraints"

	scaffold "github.com/nemonical/freenet-scaffold"
)

// Tally is a per-source grow-only counter. Each source's contribution
// only rises, the summary is the contribution map itself (a version
// vector) and a delta carries the entries the peer is behind on. Merge
// takes the per-source max, so duplicated or reordered deltas cannot
// double-count.
type Tally struct {
	Totals map[string]uint64 `json:"totals"`
}

type TallyParams struct {
	// Sources allowlists contributors; empty admits any.
	Sources []string `json:"sources,omitempty"`
}

type TallySummary map[string]uint64

type TallyDelta struct {
	Totals map[string]uint64 `json:"totals"`
}

func (t *Tally) Verify(p *TallyParams) error {
	return checkSources(p.Sources, t.Totals)
}

func (t *Tally) Summarize(p *TallyParams) TallySummary {
	su := make(TallySummary, len(t.Totals))
	for src, n := range t.Totals {
		su[src] = n
	}
	return su
}

func (t *Tally) Delta(p *TallyParams, su *TallySummary) TallyDelta {
	d := TallyDelta{Totals: make(map[string]uint64)}
	for src, n := range t.Totals {
		if n > (*su)[src] {
			d.Totals[src] = n
		}
	}
	return d
}

func (t *Tally) Apply(p *TallyParams, d *TallyDelta) error {
	// reject before touching state so a failed apply changes nothing
	if err := checkSources(p.Sources, d.Totals); err != nil {
		return err
	}
	if t.Totals == nil {
		t.Totals = make(map[string]uint64, len(d.Totals))
	}
	mergeMax(t.Totals, d.Totals)
	return nil
}

// Total sums all contributions.
func (t *Tally) Total() (n uint64) {
	for _, v := range t.Totals {
		n += v
	}
	return
}

// Covers reports whether the tally subsumes everything the summary has
// seen.
func (t *Tally) Covers(su TallySummary) bool {
	for src, n := range su {
		if t.Totals[src] < n {
			return false
		}
	}
	return true
}

// Bump raises one source's contribution by n.
func (t *Tally) Bump(src string, n uint64) {
	if t.Totals == nil {
		t.Totals = make(map[string]uint64)
	}
	t.Totals[src] += n
}

func checkSources(allowed []string, totals map[string]uint64) error {
	if len(allowed) == 0 {
		return nil
	}
	ok := make(map[string]bool, len(allowed))
	for _, s := range allowed {
		ok[s] = true
	}
	for src := range totals {
		if !ok[src] {
			return fmt.Errorf("unknown source %q", src)
		}
	}
	return nil
}

func mergeMax[K comparable, V constraints.Ordered](dst, src map[K]V) {
	for k, v := range src {
		if v > dst[k] {
			dst[k] = v
		}
	}
}

func TallyOps(opts ...scaffold.Option) scaffold.Ops {
	return scaffold.New[Tally, TallyParams, TallySummary, TallyDelta](opts...)
}
