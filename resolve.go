package scaffold

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nemonical/freenet-scaffold/utils"
)

// Fetcher supplies the raw state of a related contract. A fetcher
// returns an error when the state cannot be produced; the resolver
// aborts on it rather than spinning until the round cap.
type Fetcher interface {
	FetchRelated(ctx context.Context, id ContractID) ([]byte, error)
}

// FetcherFunc adapts a plain function to Fetcher.
type FetcherFunc func(ctx context.Context, id ContractID) ([]byte, error)

func (f FetcherFunc) FetchRelated(ctx context.Context, id ContractID) ([]byte, error) {
	return f(ctx, id)
}

// DefaultMaxRounds bounds how many fetch rounds a Resolve call may
// take before giving up with ErrResolveRounds.
const DefaultMaxRounds = 8

// Resolver drives ValidateState to a final verdict: every
// RequestRelated outcome turns into fetches through the Fetcher and a
// re-validation with the dependency set grown, until the verdict
// settles or the round cap trips. Dependencies of dependencies resolve
// the same way, one round deeper each.
type Resolver struct {
	fetch  Fetcher
	rounds int
	log    utils.Logger
	cache  *lru.Cache[ContractID, []byte]
	tracer trace.Tracer
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithMaxRounds replaces the default round cap. n < 1 keeps the
// default.
func WithMaxRounds(n int) ResolverOption {
	return func(r *Resolver) {
		if n >= 1 {
			r.rounds = n
		}
	}
}

// WithResolverLogger attaches a logger; the default discards
// everything.
func WithResolverLogger(l utils.Logger) ResolverOption {
	return func(r *Resolver) { r.log = l }
}

// WithFetchCache keeps up to size fetched states across Resolve calls,
// so repeated validations against a stable dependency graph hit the
// fetcher once per contract.
func WithFetchCache(size int) ResolverOption {
	return func(r *Resolver) {
		if c, err := lru.New[ContractID, []byte](size); err == nil {
			r.cache = c
		}
	}
}

func NewResolver(f Fetcher, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		fetch:  f,
		rounds: DefaultMaxRounds,
		log:    utils.NopLogger{},
		tracer: otel.Tracer("scaffold/resolve"),
	}
	for _, fn := range opts {
		fn(r)
	}
	return r
}

// Resolve validates state under ops, fetching related contracts until
// the verdict is Valid or Invalid. When the round cap trips, the last
// RequestRelated result is returned together with ErrResolveRounds so
// the caller can see what was still missing.
func (r *Resolver) Resolve(ctx context.Context, ops Ops, params, state []byte) (ValidateResult, error) {
	ctx = utils.WithDefaultArgs(ctx, "resolve", uuid.NewString())
	ctx, span := r.tracer.Start(ctx, "scaffold.Resolve")
	defer span.End()

	var related []RelatedEntry
	seen := make(map[ContractID]bool)
	for round := 0; ; round++ {
		res, err := ops.ValidateState(params, state, related)
		if err != nil {
			span.RecordError(err)
			return ValidateResult{}, err
		}
		if res.Validity != RequestRelated {
			span.SetAttributes(
				attribute.String("validity", res.Validity.String()),
				attribute.Int("rounds", round),
			)
			return res, nil
		}
		if round >= r.rounds {
			r.log.WarnCtx(ctx, "resolve: round cap exhausted",
				"rounds", round, "missing", len(res.Related))
			return res, fmt.Errorf("%w after %d rounds", ErrResolveRounds, round)
		}
		for _, id := range res.Related {
			if seen[id] {
				// the kind keeps asking for something already provided
				return res, fmt.Errorf("scaffold: related %s provided but still requested", id.Short())
			}
			raw, err := r.fetchOne(ctx, id)
			if err != nil {
				span.RecordError(err)
				return ValidateResult{}, fmt.Errorf("scaffold: fetch related %s: %w", id.Short(), err)
			}
			seen[id] = true
			related = append(related, Provided(id, raw))
		}
		r.log.DebugCtx(ctx, "resolve: fetched round", "round", round, "ids", len(res.Related))
	}
}

func (r *Resolver) fetchOne(ctx context.Context, id ContractID) ([]byte, error) {
	if r.cache != nil {
		if raw, ok := r.cache.Get(id); ok {
			return raw, nil
		}
	}
	raw, err := r.fetch.FetchRelated(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		r.cache.Add(id, raw)
	}
	return raw, nil
}
