package node

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	scaffold "github.com/nemonical/freenet-scaffold"
	"github.com/nemonical/freenet-scaffold/kinds"
	"github.com/nemonical/freenet-scaffold/store"
)

func testNode(t *testing.T) *Node {
	n, err := New(Options{
		Store:   store.NewMemory(),
		Kinds:   kinds.Builtin(),
		Metrics: scaffold.NewOpMetrics(),
	})
	assert.NoError(t, err)
	t.Cleanup(func() { _ = n.Close() })
	return n
}

func TestNodeRequiresStore(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestNodeKinds(t *testing.T) {
	n := testNode(t)
	assert.Equal(t, []string{"counter", "feed", "gate", "mirror", "register", "tally"}, n.Kinds())
}

func TestNodeCreate(t *testing.T) {
	n := testNode(t)
	ctx := context.Background()

	id, err := n.Create(ctx, "counter", []byte(`{"max":10}`), []byte(`{"count":3}`))
	assert.NoError(t, err)
	assert.Equal(t, scaffold.ComputeID("counter", []byte(`{"max":10}`)), id)

	rec, err := n.Get(id)
	assert.NoError(t, err)
	assert.Equal(t, "counter", rec.Kind)
	assert.Equal(t, `{"count":3}`, string(rec.State))

	// Same kind and params is the same contract.
	_, err = n.Create(ctx, "counter", []byte(`{"max":10}`), []byte(`{"count":0}`))
	assert.True(t, errors.Is(err, ErrExists))

	_, err = n.Create(ctx, "nonesuch", []byte(`{}`), []byte(`{}`))
	assert.True(t, errors.Is(err, ErrUnknownKind))

	_, err = n.Create(ctx, "counter", []byte(`{"max":2}`), []byte(`{"count":5}`))
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestNodeValidateShelved(t *testing.T) {
	n := testNode(t)
	ctx := context.Background()

	id, err := n.Create(ctx, "counter", []byte(`{}`), []byte(`{"count":1}`))
	assert.NoError(t, err)

	res, err := n.Validate(ctx, id)
	assert.NoError(t, err)
	assert.Equal(t, scaffold.Valid, res.Validity)
}

func TestNodeMirrorResolvesFromShelf(t *testing.T) {
	n := testNode(t)
	ctx := context.Background()

	origin, err := n.Create(ctx, "counter", []byte(`{}`), []byte(`{"count":5}`))
	assert.NoError(t, err)

	// The mirror's origin is on the shelf, so creation resolves it
	// without the caller providing anything.
	mid, err := n.Create(ctx, "mirror", []byte(`{}`),
		[]byte(fmt.Sprintf(`{"ref":%q,"value":3}`, origin)))
	assert.NoError(t, err)

	res, err := n.Validate(ctx, mid)
	assert.NoError(t, err)
	assert.Equal(t, scaffold.Valid, res.Validity)

	// A claim the origin cannot back is rejected outright.
	_, err = n.Create(ctx, "mirror", []byte(`{"_":1}`),
		[]byte(fmt.Sprintf(`{"ref":%q,"value":9}`, origin)))
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestNodeMirrorMissingOrigin(t *testing.T) {
	n := testNode(t)
	ctx := context.Background()

	ghost := scaffold.ComputeID("counter", []byte(`{"max":99}`))
	_, err := n.Create(ctx, "mirror", []byte(`{}`),
		[]byte(fmt.Sprintf(`{"ref":%q,"value":1}`, ghost)))
	assert.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestNodeSummarizeMemo(t *testing.T) {
	n := testNode(t)
	ctx := context.Background()

	id, err := n.Create(ctx, "counter", []byte(`{}`), []byte(`{"count":5}`))
	assert.NoError(t, err)

	su, err := n.Summarize(ctx, id)
	assert.NoError(t, err)
	assert.Equal(t, `{"count":5}`, string(su))

	again, err := n.Summarize(ctx, id)
	assert.NoError(t, err)
	assert.Equal(t, su, again)
	assert.Equal(t, 1, n.summemo.Len())

	// A state change invalidates by fingerprint, not by eviction.
	_, err = n.Update(ctx, id, []scaffold.UpdateData{
		scaffold.DeltaUpdate([]byte(`{"add":2}`)),
	})
	assert.NoError(t, err)
	su, err = n.Summarize(ctx, id)
	assert.NoError(t, err)
	assert.Equal(t, `{"count":7}`, string(su))
	assert.Equal(t, 2, n.summemo.Len())
}

func TestNodeDelta(t *testing.T) {
	n := testNode(t)
	ctx := context.Background()

	id, err := n.Create(ctx, "counter", []byte(`{}`), []byte(`{"count":5}`))
	assert.NoError(t, err)

	d, err := n.Delta(ctx, id, []byte(`{"count":3}`))
	assert.NoError(t, err)
	assert.Equal(t, `{"add":2}`, string(d))
}

func TestNodeUpdate(t *testing.T) {
	n := testNode(t)
	ctx := context.Background()

	id, err := n.Create(ctx, "counter", []byte(`{"max":10}`), []byte(`{"count":5}`))
	assert.NoError(t, err)

	mod, err := n.Update(ctx, id, []scaffold.UpdateData{
		scaffold.DeltaUpdate([]byte(`{"add":2}`)),
	})
	assert.NoError(t, err)
	assert.Equal(t, `{"count":7}`, string(mod.State))

	rec, err := n.Get(id)
	assert.NoError(t, err)
	assert.Equal(t, `{"count":7}`, string(rec.State))

	// A failed fold leaves the shelf untouched.
	_, err = n.Update(ctx, id, []scaffold.UpdateData{
		scaffold.DeltaUpdate([]byte(`{"add":2}`)),
		scaffold.DeltaUpdate([]byte(`{"add":99}`)),
	})
	assert.Error(t, err)
	rec, err = n.Get(id)
	assert.NoError(t, err)
	assert.Equal(t, `{"count":7}`, string(rec.State))
}

func TestNodeDrop(t *testing.T) {
	n := testNode(t)
	ctx := context.Background()

	id, err := n.Create(ctx, "counter", []byte(`{}`), []byte(`{"count":0}`))
	assert.NoError(t, err)
	assert.NoError(t, n.Drop(id))

	_, err = n.Get(id)
	assert.Equal(t, store.ErrNotFound, err)

	_, err = n.Validate(ctx, id)
	assert.Error(t, err)
}
