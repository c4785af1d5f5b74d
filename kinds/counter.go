package kinds

import (
	"fmt"
	"math"

	scaffold "github.com/nemonical/freenet-scaffold"
)

// Counter is a grow-only count. The summary is the count itself and a
// delta carries the increment a peer is behind by, so applying the
// delta derived from a peer's summary lands the peer exactly on the
// producer's count.
type Counter struct {
	Count int64 `json:"count"`
}

type CounterParams struct {
	// Max caps the count; zero means unbounded.
	Max int64 `json:"max,omitempty"`
}

type CounterSummary struct {
	Count int64 `json:"count"`
}

type CounterDelta struct {
	Add int64 `json:"add"`
}

func (c *Counter) Verify(p *CounterParams) error {
	if c.Count < 0 {
		return fmt.Errorf("negative count %d", c.Count)
	}
	if p.Max > 0 && c.Count > p.Max {
		return fmt.Errorf("count %d over cap %d", c.Count, p.Max)
	}
	return nil
}

func (c *Counter) Summarize(p *CounterParams) CounterSummary {
	return CounterSummary{Count: c.Count}
}

// what a peer at summary lacks; zero when the peer is current or ahead
func (c *Counter) Delta(p *CounterParams, su *CounterSummary) CounterDelta {
	if su.Count >= c.Count {
		return CounterDelta{}
	}
	return CounterDelta{Add: c.Count - su.Count}
}

func (c *Counter) Apply(p *CounterParams, d *CounterDelta) error {
	if d.Add < 0 {
		return fmt.Errorf("negative increment %d", d.Add)
	}
	if d.Add > math.MaxInt64-c.Count {
		return fmt.Errorf("increment %d overflows count %d", d.Add, c.Count)
	}
	next := c.Count + d.Add
	if p.Max > 0 && next > p.Max {
		return fmt.Errorf("count %d over cap %d", next, p.Max)
	}
	c.Count = next
	return nil
}

func CounterOps(opts ...scaffold.Option) scaffold.Ops {
	return scaffold.New[Counter, CounterParams, CounterSummary, CounterDelta](opts...)
}
