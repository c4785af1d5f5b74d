package scaffold

// Composable is the capability a state kind implements, generic over
// its own parameter, summary and delta types. It is implemented on the
// pointer type (Apply mutates in place); the adapter holds the pointer
// through the StatePtr constraint.
//
// The contract between the four operations is convergence: Summarize
// compresses the state into a cheap description of what it already
// covers, Delta produces the part a peer holding that summary lacks,
// and Apply merges a delta in. Applying the delta derived from a
// peer's summary brings that peer up to date: re-summarizing yields no
// residual diff.
type Composable[Pm, Su, D any] interface {
	// Verify checks internal consistency against the parameters. A nil
	// return means the state is well formed; any error is a domain
	// verdict, not a transport failure.
	Verify(params *Pm) error

	// Summarize derives a compact description of the state's contents.
	// Pure: same state and parameters, same summary.
	Summarize(params *Pm) Su

	// Delta returns what a peer whose state matched summary is
	// missing. It must cover at least that gap; sending more than
	// needed is allowed, losing information is not. Applying the
	// result to such a peer brings it up to date.
	Delta(params *Pm, summary *Su) D

	// Apply merges a delta into the state in place. Either the whole
	// delta lands or none of it: on error the state must be unchanged.
	// Folding must be associative for deltas derived from the same
	// causal history: applying d1 then d2 equals applying their
	// one-step composition.
	Apply(params *Pm, delta *D) error
}

// RelatedVerifier is the optional dependency-aware side of
// verification. Kinds whose consistency depends on other contracts
// implement it in addition to Composable; the adapter prefers it over
// Verify when present.
//
// An implementation reads what it needs from the registry; looking up
// a dependency that is not there registers it as missing. It should
// query everything it depends on, not stop at the first gap, so the
// host can fetch the full set in one round.
type RelatedVerifier[Pm any] interface {
	VerifyRelated(related *RelatedContracts, params *Pm) error
}

// StatePtr constrains PS to the pointer type of S carrying the
// capability, which lets constructors infer PS from S.
type StatePtr[S any, Pm, Su, D any] interface {
	*S
	Composable[Pm, Su, D]
}
