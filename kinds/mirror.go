package kinds

import (
	"fmt"

	scaffold "github.com/nemonical/freenet-scaffold"
)

// Mirror tracks the counter state of another contract: the state names
// the origin by id and claims a value the origin must back. Checking
// that claim needs the origin's state, which makes Mirror the kind
// whose validation requests related contracts.
type Mirror struct {
	Ref   string `json:"ref"`
	Value int64  `json:"value,omitempty"`
}

type MirrorParams struct{}

type MirrorSummary struct {
	Value int64 `json:"value"`
}

type MirrorDelta struct {
	Value int64 `json:"value"`
}

// Verify covers the dependency-free half: a parseable ref and a
// non-negative claim. Replacement states in update batches are held to
// exactly this.
func (m *Mirror) Verify(p *MirrorParams) error {
	if _, err := scaffold.ParseID(m.Ref); err != nil {
		return fmt.Errorf("ref %q: %w", m.Ref, err)
	}
	if m.Value < 0 {
		return fmt.Errorf("negative value %d", m.Value)
	}
	return nil
}

// VerifyRelated additionally checks the claim against the origin's
// count. An unresolved origin is registered by the lookup and reported
// by the host as a request for related state.
func (m *Mirror) VerifyRelated(related *scaffold.RelatedContracts, p *MirrorParams) error {
	if err := m.Verify(p); err != nil {
		return err
	}
	id, _ := scaffold.ParseID(m.Ref)
	origin, err := scaffold.DecodeRelated[Counter](related, id)
	if err != nil {
		return err
	}
	if origin == nil {
		return nil
	}
	if m.Value > origin.Count {
		return fmt.Errorf("claims %d, origin has %d", m.Value, origin.Count)
	}
	return nil
}

func (m *Mirror) Summarize(p *MirrorParams) MirrorSummary {
	return MirrorSummary{Value: m.Value}
}

func (m *Mirror) Delta(p *MirrorParams, su *MirrorSummary) MirrorDelta {
	if su.Value >= m.Value {
		return MirrorDelta{}
	}
	return MirrorDelta{Value: m.Value}
}

// Apply raises the claim to the delta's value; stale deltas are no-ops.
func (m *Mirror) Apply(p *MirrorParams, d *MirrorDelta) error {
	if d.Value < 0 {
		return fmt.Errorf("negative value %d", d.Value)
	}
	if d.Value > m.Value {
		m.Value = d.Value
	}
	return nil
}

func MirrorOps(opts ...scaffold.Option) scaffold.Ops {
	return scaffold.New[Mirror, MirrorParams, MirrorSummary, MirrorDelta](opts...)
}
