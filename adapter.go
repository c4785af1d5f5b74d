package scaffold

import (
	"github.com/nemonical/freenet-scaffold/codec"
	"github.com/nemonical/freenet-scaffold/utils"
)

// Validity classifies a ValidateState outcome.
type Validity int

const (
	// Valid: the state is internally consistent and every dependency
	// the kind asked about was available.
	Valid Validity = iota
	// Invalid: verification rejected the state. This is a verdict, not
	// an error; the operation itself succeeded.
	Invalid
	// RequestRelated: the verdict is still open because dependencies
	// are missing. The host should supply the listed contracts' states
	// and validate again.
	RequestRelated
)

func (v Validity) String() string {
	switch v {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	case RequestRelated:
		return "request-related"
	}
	return "unknown"
}

// ValidateResult is the outcome of ValidateState. Related is set for
// RequestRelated and lists the missing dependencies in the order the
// kind asked for them; Reason carries the verification verdict for
// Invalid.
type ValidateResult struct {
	Validity Validity
	Related  []ContractID
	Reason   error
}

// Ops is the untyped operation surface of a contract: every payload is
// raw bytes, every implementation decodes on the way in and re-encodes
// on the way out. Hosts hold contracts through this interface; the
// typed half lives in Composable.
type Ops interface {
	ValidateState(params, state []byte, related []RelatedEntry) (ValidateResult, error)
	SummarizeState(params, state []byte) ([]byte, error)
	GetStateDelta(params, state, summary []byte) ([]byte, error)
	UpdateState(params, state []byte, updates []UpdateData) (UpdateModification, error)
}

// Contract adapts a Composable kind to the byte-level Ops surface. S is
// the state type, Pm/Su/D its parameter, summary and delta types, PS
// the pointer type carrying the capability. Construct with New, which
// infers PS.
type Contract[S any, Pm, Su, D any, PS StatePtr[S, Pm, Su, D]] struct {
	codec         codec.Codec
	log           utils.Logger
	updateSummary bool
}

type options struct {
	codec         codec.Codec
	log           utils.Logger
	updateSummary bool
}

// Option configures a Contract.
type Option func(*options)

// WithCodec replaces the default JSON codec.
func WithCodec(c codec.Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithLogger attaches a logger; the default discards everything.
func WithLogger(l utils.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithoutUpdateSummary makes UpdateState skip computing the summary of
// the updated state, for hosts that do not propagate it.
func WithoutUpdateSummary() Option {
	return func(o *options) { o.updateSummary = false }
}

// New builds the adapter for a kind. The pointer parameter is inferred:
//
//	c := scaffold.New[Room, RoomParams, RoomSummary, RoomDelta]()
func New[S any, Pm, Su, D any, PS StatePtr[S, Pm, Su, D]](opts ...Option) *Contract[S, Pm, Su, D, PS] {
	o := options{codec: codec.JSON{}, log: utils.NopLogger{}, updateSummary: true}
	for _, fn := range opts {
		fn(&o)
	}
	return &Contract[S, Pm, Su, D, PS]{
		codec:         o.codec,
		log:           o.log,
		updateSummary: o.updateSummary,
	}
}

// Codec exposes the contract's codec. The registry handed to
// VerifyRelated carries the same codec, so kinds rarely need this.
func (c *Contract[S, Pm, Su, D, PS]) Codec() codec.Codec { return c.codec }

func (c *Contract[S, Pm, Su, D, PS]) decodeParams(raw []byte) (*Pm, error) {
	pm := new(Pm)
	if err := c.codec.Unmarshal(raw, pm); err != nil {
		return nil, decodeErr(FieldParameters, err)
	}
	return pm, nil
}

func (c *Contract[S, Pm, Su, D, PS]) decodeState(raw []byte) (PS, error) {
	s := new(S)
	if err := c.codec.Unmarshal(raw, s); err != nil {
		var zero PS
		return zero, decodeErr(FieldState, err)
	}
	return PS(s), nil
}

// ValidateState decodes the payloads and asks the kind for a verdict.
// Dependencies the kind queried and the host did not provide mask that
// verdict: the result is RequestRelated even if verification already
// failed, because a verdict reached without the full dependency set is
// not final. Unresolved entries the kind never queried do not block
// validity. Decode failures, including failures on provided related
// states, surface as errors and are never folded into Invalid.
func (c *Contract[S, Pm, Su, D, PS]) ValidateState(params, state []byte, related []RelatedEntry) (ValidateResult, error) {
	pm, err := c.decodeParams(params)
	if err != nil {
		return ValidateResult{}, err
	}
	ps, err := c.decodeState(state)
	if err != nil {
		return ValidateResult{}, err
	}

	reg := NewRelated()
	reg.codec = c.codec
	reg.Preload(related)

	var verdict error
	if rv, ok := any(ps).(RelatedVerifier[Pm]); ok {
		verdict = rv.VerifyRelated(reg, pm)
	} else {
		verdict = ps.Verify(pm)
	}
	if _, ok := AsDecode(verdict); ok {
		return ValidateResult{}, verdict
	}

	if missing := reg.Missing(); len(missing) > 0 {
		c.log.Debug("validate: dependencies missing", "count", len(missing))
		return ValidateResult{Validity: RequestRelated, Related: missing}, nil
	}
	if verdict != nil {
		c.log.Debug("validate: invalid", "reason", verdict)
		return ValidateResult{Validity: Invalid, Reason: verdict}, nil
	}
	return ValidateResult{Validity: Valid}, nil
}

// SummarizeState decodes the payloads and re-encodes the kind's
// summary.
func (c *Contract[S, Pm, Su, D, PS]) SummarizeState(params, state []byte) ([]byte, error) {
	pm, err := c.decodeParams(params)
	if err != nil {
		return nil, err
	}
	ps, err := c.decodeState(state)
	if err != nil {
		return nil, err
	}
	raw, err := c.codec.Marshal(ps.Summarize(pm))
	if err != nil {
		return nil, decodeErr(FieldSummary, err)
	}
	return raw, nil
}

// GetStateDelta decodes the peer's summary and re-encodes the delta
// that covers what the peer lacks.
func (c *Contract[S, Pm, Su, D, PS]) GetStateDelta(params, state, summary []byte) ([]byte, error) {
	pm, err := c.decodeParams(params)
	if err != nil {
		return nil, err
	}
	ps, err := c.decodeState(state)
	if err != nil {
		return nil, err
	}
	su := new(Su)
	if err := c.codec.Unmarshal(summary, su); err != nil {
		return nil, decodeErr(FieldSummary, err)
	}
	raw, err := c.codec.Marshal(ps.Delta(pm, su))
	if err != nil {
		return nil, decodeErr(FieldDelta, err)
	}
	return raw, nil
}
