package kinds

import (
	"bytes"
	"encoding/json"
	"fmt"

	scaffold "github.com/nemonical/freenet-scaffold"
)

// Register is a last-write-wins cell. The record with the highest
// write time wins; ties break on writer id, then value bytes, so
// concurrent writes settle the same way on every replica. Write times
// start at 1; the zero record is the empty cell.
type Register struct {
	Value json.RawMessage `json:"value,omitempty"`
	At    uint64          `json:"at,omitempty"`
	By    string          `json:"by,omitempty"`
}

type RegisterParams struct {
	// Writers allowlists authors; empty admits any.
	Writers []string `json:"writers,omitempty"`
}

type RegisterSummary struct {
	At uint64 `json:"at,omitempty"`
	By string `json:"by,omitempty"`
}

// RegisterDelta is the full winning record, or empty when the peer is
// already current.
type RegisterDelta struct {
	Value json.RawMessage `json:"value,omitempty"`
	At    uint64          `json:"at,omitempty"`
	By    string          `json:"by,omitempty"`
}

func (r *Register) Verify(p *RegisterParams) error {
	if r.At == 0 {
		if r.By != "" || len(r.Value) > 0 {
			return fmt.Errorf("record without a write time")
		}
		return nil
	}
	if r.By == "" {
		return fmt.Errorf("record without a writer")
	}
	return checkWriter(p.Writers, r.By)
}

func (r *Register) Summarize(p *RegisterParams) RegisterSummary {
	return RegisterSummary{At: r.At, By: r.By}
}

func (r *Register) Delta(p *RegisterParams, su *RegisterSummary) RegisterDelta {
	if r.At > su.At || (r.At == su.At && r.By > su.By) {
		return RegisterDelta{Value: r.Value, At: r.At, By: r.By}
	}
	return RegisterDelta{}
}

func (r *Register) Apply(p *RegisterParams, d *RegisterDelta) error {
	if d.At == 0 {
		return nil
	}
	if d.By == "" {
		return fmt.Errorf("record without a writer")
	}
	if err := checkWriter(p.Writers, d.By); err != nil {
		return err
	}
	if !r.loses(d) {
		return nil
	}
	r.Value = d.Value
	r.At = d.At
	r.By = d.By
	return nil
}

// loses reports whether the incoming record beats the current one.
func (r *Register) loses(d *RegisterDelta) bool {
	if d.At != r.At {
		return d.At > r.At
	}
	if d.By != r.By {
		return d.By > r.By
	}
	return bytes.Compare(d.Value, r.Value) > 0
}

// Set records a new value by the given writer, one tick past the
// current record.
func (r *Register) Set(value json.RawMessage, by string) {
	r.Value = value
	r.At++
	r.By = by
}

func checkWriter(allowed []string, by string) error {
	if len(allowed) == 0 {
		return nil
	}
	for _, w := range allowed {
		if w == by {
			return nil
		}
	}
	return fmt.Errorf("writer %q not allowed", by)
}

func RegisterOps(opts ...scaffold.Option) scaffold.Ops {
	return scaffold.New[Register, RegisterParams, RegisterSummary, RegisterDelta](opts...)
}
