package scaffold

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type mapFetcher struct {
	states map[ContractID][]byte
	calls  int
}

func (f *mapFetcher) FetchRelated(_ context.Context, id ContractID) ([]byte, error) {
	f.calls++
	raw, ok := f.states[id]
	if !ok {
		return nil, fmt.Errorf("no state for %s", id.Short())
	}
	return raw, nil
}

func TestResolveImmediateVerdict(t *testing.T) {
	f := &mapFetcher{}
	r := NewResolver(f)
	ctx := context.Background()

	res, err := r.Resolve(ctx, tickContract(), []byte(`{}`), []byte(`{"count":1}`))
	assert.NoError(t, err)
	assert.Equal(t, Valid, res.Validity)

	res, err = r.Resolve(ctx, tickContract(), []byte(`{}`), []byte(`{"count":-1}`))
	assert.NoError(t, err)
	assert.Equal(t, Invalid, res.Validity)

	// No dependencies were ever queried, so nothing was fetched.
	assert.Equal(t, 0, f.calls)
}

func TestResolveFetchesMissing(t *testing.T) {
	x := rid("x")
	f := &mapFetcher{states: map[ContractID][]byte{
		x: []byte(`{"value":5}`),
	}}
	r := NewResolver(f)

	state := []byte(fmt.Sprintf(`{"ref":%q,"value":3}`, x))
	res, err := r.Resolve(context.Background(), linkContract(), []byte(`{}`), state)
	assert.NoError(t, err)
	assert.Equal(t, Valid, res.Validity)
	assert.Equal(t, 1, f.calls)
}

func TestResolveChainedDependencies(t *testing.T) {
	x, y := rid("x"), rid("y")
	f := &mapFetcher{states: map[ContractID][]byte{
		x: []byte(fmt.Sprintf(`{"ref":%q,"value":5}`, y)),
		y: []byte(`{"value":9}`),
	}}
	r := NewResolver(f)

	// The second dependency only surfaces once the first is in hand.
	state := []byte(fmt.Sprintf(`{"ref":%q,"value":1}`, x))
	res, err := r.Resolve(context.Background(), linkContract(), []byte(`{}`), state)
	assert.NoError(t, err)
	assert.Equal(t, Valid, res.Validity)
	assert.Equal(t, 2, f.calls)
}

func TestResolveRoundCap(t *testing.T) {
	x, y := rid("x"), rid("y")
	f := &mapFetcher{states: map[ContractID][]byte{
		x: []byte(fmt.Sprintf(`{"ref":%q,"value":5}`, y)),
		y: []byte(`{"value":9}`),
	}}
	r := NewResolver(f, WithMaxRounds(1))

	state := []byte(fmt.Sprintf(`{"ref":%q,"value":1}`, x))
	res, err := r.Resolve(context.Background(), linkContract(), []byte(`{}`), state)
	assert.True(t, errors.Is(err, ErrResolveRounds))
	assert.Equal(t, RequestRelated, res.Validity)
	assert.Equal(t, []ContractID{y}, res.Related)
}

func TestResolveFetcherError(t *testing.T) {
	f := &mapFetcher{}
	r := NewResolver(f)

	state := []byte(fmt.Sprintf(`{"ref":%q,"value":1}`, rid("nowhere")))
	_, err := r.Resolve(context.Background(), linkContract(), []byte(`{}`), state)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "fetch related")
}

func TestResolveFetchCache(t *testing.T) {
	x := rid("x")
	f := &mapFetcher{states: map[ContractID][]byte{
		x: []byte(`{"value":5}`),
	}}
	r := NewResolver(f, WithFetchCache(16))
	state := []byte(fmt.Sprintf(`{"ref":%q,"value":3}`, x))

	for i := 0; i < 3; i++ {
		res, err := r.Resolve(context.Background(), linkContract(), []byte(`{}`), state)
		assert.NoError(t, err)
		assert.Equal(t, Valid, res.Validity)
	}
	assert.Equal(t, 1, f.calls)
}

// stuckOps keeps requesting the same dependency no matter what the
// host provides.
type stuckOps struct {
	id ContractID
}

func (o stuckOps) ValidateState(params, state []byte, related []RelatedEntry) (ValidateResult, error) {
	return ValidateResult{Validity: RequestRelated, Related: []ContractID{o.id}}, nil
}

func (o stuckOps) SummarizeState(params, state []byte) ([]byte, error) {
	return nil, nil
}

func (o stuckOps) GetStateDelta(params, state, summary []byte) ([]byte, error) {
	return nil, nil
}

func (o stuckOps) UpdateState(params, state []byte, updates []UpdateData) (UpdateModification, error) {
	return UpdateModification{}, nil
}

func TestResolveStuckRequester(t *testing.T) {
	x := rid("x")
	f := &mapFetcher{states: map[ContractID][]byte{
		x: []byte(`{}`),
	}}
	r := NewResolver(f)

	_, err := r.Resolve(context.Background(), stuckOps{id: x}, []byte(`{}`), []byte(`{}`))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "still requested")
	assert.Equal(t, 1, f.calls)
}
