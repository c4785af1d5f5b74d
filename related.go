package scaffold

import (
	"github.com/nemonical/freenet-scaffold/codec"
)

// RelatedContracts tracks the states of other contracts a verification
// may depend on. Each entry is either provided (the host supplied raw
// state bytes) or unresolved (the id is known but the state has not
// arrived). Iteration order is insertion order and stays stable for the
// lifetime of the registry.
//
// One instance lives per validation call and is mutated through an
// explicit pointer. The registry remembers which ids the kind queried
// during the call: only queried, unresolved ids count as missing, so a
// stale unresolved entry the kind no longer cares about cannot hold a
// verdict hostage. Looking up an unknown id registers it, which is how
// dependencies are discovered in the first place.
type RelatedContracts struct {
	codec   codec.Codec
	order   []ContractID
	entries map[ContractID]relatedState
	queried map[ContractID]bool
}

type relatedState struct {
	raw      []byte
	provided bool
}

// RelatedEntry is one registry slot as seen by hosts and iteration.
// State is only meaningful when Provided is true.
type RelatedEntry struct {
	ID       ContractID
	State    []byte
	Provided bool
}

// Provided builds an entry carrying raw state for id.
func Provided(id ContractID, raw []byte) RelatedEntry {
	return RelatedEntry{ID: id, State: raw, Provided: true}
}

// Needed builds an entry for an id whose state is not available yet.
func Needed(id ContractID) RelatedEntry {
	return RelatedEntry{ID: id}
}

func NewRelated() *RelatedContracts {
	return &RelatedContracts{
		codec:   codec.JSON{},
		entries: make(map[ContractID]relatedState),
		queried: make(map[ContractID]bool),
	}
}

// Codec is the codec dependency states decode through. During a
// validation call it is the contract's configured codec, so kinds never
// pick their own.
func (r *RelatedContracts) Codec() codec.Codec { return r.codec }

func (r *RelatedContracts) slot(id ContractID) {
	if _, ok := r.entries[id]; !ok {
		r.entries[id] = relatedState{}
		r.order = append(r.order, id)
	}
}

// Preload fills the registry from host-supplied entries without
// counting them as queried.
func (r *RelatedContracts) Preload(entries []RelatedEntry) {
	for _, e := range entries {
		if e.Provided {
			r.Put(e.ID, e.State)
		} else {
			r.slot(e.ID)
		}
	}
}

// MarkNeeded records that the kind requires id. The id gets a slot if
// it had none and counts as queried this call.
func (r *RelatedContracts) MarkNeeded(id ContractID) {
	r.slot(id)
	r.queried[id] = true
}

// Put records raw state bytes for id, inserting the id if it was never
// seen. Putting again overwrites. Hosts call this (or Preload) before
// verification runs.
func (r *RelatedContracts) Put(id ContractID, raw []byte) {
	r.slot(id)
	r.entries[id] = relatedState{raw: raw, provided: true}
}

// Get looks up the state provided for id and counts as a query. The
// bool is false when the id is unknown or unresolved; either way the
// id then holds a slot and, if still unresolved, will be reported by
// Missing.
func (r *RelatedContracts) Get(id ContractID) ([]byte, bool) {
	r.slot(id)
	r.queried[id] = true
	e := r.entries[id]
	if !e.provided {
		return nil, false
	}
	return e.raw, true
}

// Peek looks up without counting as a query.
func (r *RelatedContracts) Peek(id ContractID) ([]byte, bool) {
	if r == nil {
		return nil, false
	}
	e, ok := r.entries[id]
	if !ok || !e.provided {
		return nil, false
	}
	return e.raw, true
}

// Has reports whether id occupies a slot, provided or not. Not a query.
func (r *RelatedContracts) Has(id ContractID) bool {
	if r == nil {
		return false
	}
	_, ok := r.entries[id]
	return ok
}

// Missing lists the ids that were queried this call and have no state,
// in registry order. Unresolved entries the kind never asked about are
// not included.
func (r *RelatedContracts) Missing() []ContractID {
	if r == nil {
		return nil
	}
	var ids []ContractID
	for _, id := range r.order {
		if r.queried[id] && !r.entries[id].provided {
			ids = append(ids, id)
		}
	}
	return ids
}

// Entries snapshots the registry in insertion order.
func (r *RelatedContracts) Entries() []RelatedEntry {
	if r == nil {
		return nil
	}
	out := make([]RelatedEntry, 0, len(r.order))
	for _, id := range r.order {
		e := r.entries[id]
		out = append(out, RelatedEntry{ID: id, State: e.raw, Provided: e.provided})
	}
	return out
}

func (r *RelatedContracts) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// DecodeRelated queries the registry for id and decodes its state into
// T through the registry's codec. It returns (nil, nil) when the id is
// unresolved; the lookup alone ensures the id will be requested from
// the host. A decode failure is attributed to the related field.
func DecodeRelated[T any](r *RelatedContracts, id ContractID) (*T, error) {
	raw, ok := r.Get(id)
	if !ok {
		return nil, nil
	}
	v := new(T)
	if err := r.codec.Unmarshal(raw, v); err != nil {
		return nil, decodeErr(FieldRelated, err)
	}
	return v, nil
}
