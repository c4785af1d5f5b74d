// Package node hosts contracts on one machine: every contract is keyed
// by its content address, state persists through a store, and the four
// contract operations run with dependency resolution against the
// node's own shelf. Nothing here talks to a network; a node is the
// local half the convergence protocol assumes.
package node

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/puzpuzpuz/xsync/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	scaffold "github.com/nemonical/freenet-scaffold"
	"github.com/nemonical/freenet-scaffold/store"
	"github.com/nemonical/freenet-scaffold/utils"
)

var (
	ErrUnknownKind = errors.New("node: unknown kind")
	ErrExists      = errors.New("node: contract already exists")
	ErrInvalid     = errors.New("node: state rejected")
)

// Options configures a Node. Zero fields get defaults; Store is
// required.
type Options struct {
	Store  store.Store
	Kinds  map[string]scaffold.Ops
	Logger utils.Logger
	// Metrics receives operation counts; nil disables counting.
	Metrics *scaffold.OpMetrics
	// MaxRounds caps dependency resolution; zero keeps the default.
	MaxRounds int
	// SummaryCacheSize bounds the summary memo; zero keeps the
	// default.
	SummaryCacheSize int
}

func (o *Options) SetDefaults() {
	if o.Logger == nil {
		o.Logger = utils.NopLogger{}
	}
	if o.Kinds == nil {
		o.Kinds = map[string]scaffold.Ops{}
	}
	if o.SummaryCacheSize == 0 {
		o.SummaryCacheSize = 512
	}
}

// Handle is a node's cached binding for one contract. Kind and params
// never change for an id (the id is their hash), so a handle stays
// good for the contract's lifetime.
type Handle struct {
	ID     scaffold.ContractID
	Kind   string
	Params []byte

	ops scaffold.Ops
}

type sumKey struct {
	id scaffold.ContractID
	fp uint64
}

type Node struct {
	kinds    map[string]scaffold.Ops
	store    store.Store
	log      utils.Logger
	metrics  *scaffold.OpMetrics
	resolver *scaffold.Resolver
	handles  *xsync.MapOf[scaffold.ContractID, *Handle]
	summemo  *lru.Cache[sumKey, []byte]
	tracer   trace.Tracer
}

func New(opts Options) (*Node, error) {
	if opts.Store == nil {
		return nil, errors.New("node: store is required")
	}
	opts.SetDefaults()
	memo, err := lru.New[sumKey, []byte](opts.SummaryCacheSize)
	if err != nil {
		return nil, err
	}
	n := &Node{
		kinds:   opts.Kinds,
		store:   opts.Store,
		log:     opts.Logger,
		metrics: opts.Metrics,
		handles: xsync.NewMapOf[scaffold.ContractID, *Handle](),
		summemo: memo,
		tracer:  otel.Tracer("scaffold/node"),
	}
	n.resolver = scaffold.NewResolver(shelfFetcher{n},
		scaffold.WithMaxRounds(opts.MaxRounds),
		scaffold.WithResolverLogger(opts.Logger),
	)
	return n, nil
}

// shelfFetcher resolves related contracts from the node's own store.
type shelfFetcher struct {
	n *Node
}

func (f shelfFetcher) FetchRelated(ctx context.Context, id scaffold.ContractID) ([]byte, error) {
	rec, err := f.n.store.Get(id)
	if err != nil {
		return nil, err
	}
	f.n.metrics.ObserveFetch()
	return rec.State, nil
}

// Kinds lists the registered kind names, sorted.
func (n *Node) Kinds() []string {
	names := make([]string, 0, len(n.kinds))
	for name := range n.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List lists the contracts on the shelf.
func (n *Node) List() ([]scaffold.ContractID, error) {
	return n.store.List()
}

// Get reads a contract's record.
func (n *Node) Get(id scaffold.ContractID) (store.Record, error) {
	return n.store.Get(id)
}

func (n *Node) ops(kind string) (scaffold.Ops, error) {
	ops, ok := n.kinds[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return ops, nil
}

func (n *Node) handle(id scaffold.ContractID) (*Handle, error) {
	if h, ok := n.handles.Load(id); ok {
		return h, nil
	}
	rec, err := n.store.Get(id)
	if err != nil {
		return nil, err
	}
	ops, err := n.ops(rec.Kind)
	if err != nil {
		return nil, err
	}
	h := &Handle{ID: id, Kind: rec.Kind, Params: rec.Params, ops: ops}
	h, _ = n.handles.LoadOrStore(id, h)
	return h, nil
}

// Create validates state for a new contract and shelves it. The id is
// the content address of kind and params; dependencies resolve against
// contracts already on the shelf, so origins go in before their
// mirrors.
func (n *Node) Create(ctx context.Context, kind string, params, state []byte) (scaffold.ContractID, error) {
	ctx, span := n.tracer.Start(ctx, "node.Create")
	defer span.End()

	id := scaffold.ComputeID(kind, params)
	ctx = utils.WithDefaultArgs(ctx, "contract", id.Short())
	if _, err := n.store.Get(id); err == nil {
		return id, fmt.Errorf("%w: %s", ErrExists, id.Short())
	} else if !errors.Is(err, store.ErrNotFound) {
		return scaffold.ZeroID, err
	}

	ops, err := n.ops(kind)
	if err != nil {
		return scaffold.ZeroID, err
	}
	res, err := n.resolver.Resolve(ctx, ops, params, state)
	n.metrics.ObserveValidate(res, err)
	if err != nil {
		return scaffold.ZeroID, err
	}
	if res.Validity != scaffold.Valid {
		return scaffold.ZeroID, fmt.Errorf("%w: %v", ErrInvalid, res.Reason)
	}
	err = n.store.Put(id, store.Record{Kind: kind, Params: params, State: state})
	if err != nil {
		return scaffold.ZeroID, err
	}
	n.log.InfoCtx(ctx, "created", "kind", kind)
	return id, nil
}

// Validate re-validates a shelved contract, resolving dependencies
// from the shelf.
func (n *Node) Validate(ctx context.Context, id scaffold.ContractID) (scaffold.ValidateResult, error) {
	ctx, span := n.tracer.Start(ctx, "node.Validate")
	defer span.End()
	ctx = utils.WithDefaultArgs(ctx, "contract", id.Short())

	h, err := n.handle(id)
	if err != nil {
		return scaffold.ValidateResult{}, err
	}
	rec, err := n.store.Get(id)
	if err != nil {
		return scaffold.ValidateResult{}, err
	}
	res, err := n.resolver.Resolve(ctx, h.ops, h.Params, rec.State)
	n.metrics.ObserveValidate(res, err)
	return res, err
}

// ValidateState validates an unshelved payload under a registered
// kind, resolving dependencies from the shelf.
func (n *Node) ValidateState(ctx context.Context, kind string, params, state []byte) (scaffold.ValidateResult, error) {
	ctx, span := n.tracer.Start(ctx, "node.ValidateState")
	defer span.End()

	ops, err := n.ops(kind)
	if err != nil {
		return scaffold.ValidateResult{}, err
	}
	res, err := n.resolver.Resolve(ctx, ops, params, state)
	n.metrics.ObserveValidate(res, err)
	return res, err
}

// Summarize returns the contract's current summary, memoized per state
// fingerprint. Summaries are pure functions of state and params, so a
// hit is always sound.
func (n *Node) Summarize(ctx context.Context, id scaffold.ContractID) ([]byte, error) {
	_, span := n.tracer.Start(ctx, "node.Summarize")
	defer span.End()

	h, err := n.handle(id)
	if err != nil {
		return nil, err
	}
	rec, err := n.store.Get(id)
	if err != nil {
		return nil, err
	}
	key := sumKey{id: id, fp: rec.Fingerprint}
	if su, ok := n.summemo.Get(key); ok {
		return su, nil
	}
	su, err := h.ops.SummarizeState(h.Params, rec.State)
	n.metrics.ObserveSummarize(err)
	if err != nil {
		return nil, err
	}
	n.summemo.Add(key, su)
	return su, nil
}

// Delta returns what a peer holding summary lacks of the contract.
func (n *Node) Delta(ctx context.Context, id scaffold.ContractID, summary []byte) ([]byte, error) {
	_, span := n.tracer.Start(ctx, "node.Delta")
	defer span.End()

	h, err := n.handle(id)
	if err != nil {
		return nil, err
	}
	rec, err := n.store.Get(id)
	if err != nil {
		return nil, err
	}
	d, err := h.ops.GetStateDelta(h.Params, rec.State, summary)
	n.metrics.ObserveDelta(err)
	return d, err
}

// Update folds the batch into the contract and shelves the result. A
// failed fold shelves nothing.
func (n *Node) Update(ctx context.Context, id scaffold.ContractID, updates []scaffold.UpdateData) (scaffold.UpdateModification, error) {
	ctx, span := n.tracer.Start(ctx, "node.Update")
	defer span.End()
	ctx = utils.WithDefaultArgs(ctx, "contract", id.Short())

	h, err := n.handle(id)
	if err != nil {
		return scaffold.UpdateModification{}, err
	}
	rec, err := n.store.Get(id)
	if err != nil {
		return scaffold.UpdateModification{}, err
	}
	mod, err := h.ops.UpdateState(h.Params, rec.State, updates)
	n.metrics.ObserveUpdate(err)
	if err != nil {
		n.log.WarnCtx(ctx, "update rejected", "error", err)
		return scaffold.UpdateModification{}, err
	}
	rec.State = mod.State
	rec.UpdatedAt = time.Time{}
	if err := n.store.Put(id, rec); err != nil {
		return scaffold.UpdateModification{}, err
	}
	n.log.InfoCtx(ctx, "updated", "entries", len(updates))
	return mod, nil
}

// Drop removes a contract from the shelf.
func (n *Node) Drop(id scaffold.ContractID) error {
	if err := n.store.Delete(id); err != nil {
		return err
	}
	n.handles.Delete(id)
	return nil
}

func (n *Node) Close() error {
	return n.store.Close()
}
