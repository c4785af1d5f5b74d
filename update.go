package scaffold

// UpdateData is one entry of an update batch: a full-state replacement
// or a delta, as raw bytes. Exactly one of the two is set; a batch
// mixes both freely.
type UpdateData struct {
	State []byte
	Delta []byte
}

// StateUpdate wraps raw with replacement semantics.
func StateUpdate(raw []byte) UpdateData { return UpdateData{State: raw} }

// DeltaUpdate wraps raw with merge semantics.
func DeltaUpdate(raw []byte) UpdateData { return UpdateData{Delta: raw} }

// UpdateModification is the result of a successful UpdateState: the
// re-encoded final state and, unless suppressed via
// WithoutUpdateSummary, its freshly computed summary.
type UpdateModification struct {
	State   []byte
	Summary []byte
}

// UpdateState folds the batch into the current state left to right. A
// delta entry decodes and merges via Apply; a state entry decodes,
// passes dependency-free verification against the parameters, and then
// replaces the accumulated state wholesale, discarding whatever earlier
// entries built up.
//
// The fold is atomic: the first failing entry aborts the whole batch
// with its index attributed, and nothing partial is returned. Later
// entries are never touched after a failure.
func (c *Contract[S, Pm, Su, D, PS]) UpdateState(params, state []byte, updates []UpdateData) (UpdateModification, error) {
	pm, err := c.decodeParams(params)
	if err != nil {
		return UpdateModification{}, err
	}
	ps, err := c.decodeState(state)
	if err != nil {
		return UpdateModification{}, err
	}

	for k, u := range updates {
		switch {
		case len(u.Delta) > 0 && len(u.State) > 0:
			return UpdateModification{}, decodeErrAt(FieldUpdate, k, ErrAmbiguousUpdate)
		case len(u.Delta) == 0 && len(u.State) == 0:
			return UpdateModification{}, decodeErrAt(FieldUpdate, k, ErrEmptyUpdate)
		case len(u.Delta) > 0:
			d := new(D)
			if err := c.codec.Unmarshal(u.Delta, d); err != nil {
				return UpdateModification{}, decodeErrAt(FieldDelta, k, err)
			}
			if err := ps.Apply(pm, d); err != nil {
				return UpdateModification{}, &DomainError{Op: "apply", Index: k, Err: err}
			}
		default:
			next := new(S)
			if err := c.codec.Unmarshal(u.State, next); err != nil {
				return UpdateModification{}, decodeErrAt(FieldState, k, err)
			}
			if err := PS(next).Verify(pm); err != nil {
				return UpdateModification{}, &DomainError{Op: "verify", Index: k, Err: err}
			}
			ps = PS(next)
		}
	}

	raw, err := c.codec.Marshal(ps)
	if err != nil {
		return UpdateModification{}, decodeErr(FieldState, err)
	}
	mod := UpdateModification{State: raw}
	if c.updateSummary {
		su, err := c.codec.Marshal(ps.Summarize(pm))
		if err != nil {
			return UpdateModification{}, decodeErr(FieldSummary, err)
		}
		mod.Summary = su
	}
	c.log.Debug("update: folded", "entries", len(updates))
	return mod, nil
}
