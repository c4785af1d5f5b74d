package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	scaffold "github.com/nemonical/freenet-scaffold"
	"github.com/nemonical/freenet-scaffold/utils"
)

func testRecord() Record {
	return Record{
		Kind:   "counter",
		Params: []byte(`{"max":10}`),
		State:  []byte(`{"count":3}`),
	}
}

func roundTrip(t *testing.T, s Store) {
	id := scaffold.ComputeID("counter", []byte(`{"max":10}`))

	_, err := s.Get(id)
	assert.Equal(t, ErrNotFound, err)

	assert.NoError(t, s.Put(id, testRecord()))
	rec, err := s.Get(id)
	assert.NoError(t, err)
	assert.Equal(t, "counter", rec.Kind)
	assert.Equal(t, `{"max":10}`, string(rec.Params))
	assert.Equal(t, `{"count":3}`, string(rec.State))
	assert.Equal(t, Fingerprint([]byte(`{"count":3}`)), rec.Fingerprint)
	assert.False(t, rec.UpdatedAt.IsZero())

	// Overwrite refreshes the fingerprint.
	rec.State = []byte(`{"count":4}`)
	rec.UpdatedAt = time.Time{}
	assert.NoError(t, s.Put(id, rec))
	rec, err = s.Get(id)
	assert.NoError(t, err)
	assert.Equal(t, Fingerprint([]byte(`{"count":4}`)), rec.Fingerprint)

	ids, err := s.List()
	assert.NoError(t, err)
	assert.Equal(t, []scaffold.ContractID{id}, ids)

	assert.NoError(t, s.Delete(id))
	_, err = s.Get(id)
	assert.Equal(t, ErrNotFound, err)
}

func TestMemoryRoundTrip(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	roundTrip(t, s)
}

func TestPebbleRoundTrip(t *testing.T) {
	s, err := OpenPebble(t.TempDir(), utils.NopLogger{})
	assert.NoError(t, err)
	defer s.Close()
	roundTrip(t, s)
}

func TestPebbleSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	log := utils.NopLogger{}
	id := scaffold.ComputeID("counter", []byte(`{}`))

	s, err := OpenPebble(dir, log)
	assert.NoError(t, err)
	assert.NoError(t, s.Put(id, testRecord()))
	assert.NoError(t, s.Close())

	s, err = OpenPebble(dir, log)
	assert.NoError(t, err)
	defer s.Close()
	rec, err := s.Get(id)
	assert.NoError(t, err)
	assert.Equal(t, `{"count":3}`, string(rec.State))
}

func TestMemoryIsolation(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	id := scaffold.ComputeID("counter", []byte(`{}`))

	rec := testRecord()
	assert.NoError(t, s.Put(id, rec))

	// Mutating the caller's slices must not reach the shelf.
	rec.State[0] = 'X'
	got, err := s.Get(id)
	assert.NoError(t, err)
	assert.Equal(t, `{"count":3}`, string(got.State))

	// Nor may mutating what Get handed out.
	got.State[0] = 'X'
	again, err := s.Get(id)
	assert.NoError(t, err)
	assert.Equal(t, `{"count":3}`, string(again.State))
}

func TestRecordFraming(t *testing.T) {
	rec := stamp(testRecord())
	raw := encodeRecord(rec)

	back, err := decodeRecord(raw)
	assert.NoError(t, err)
	assert.Equal(t, rec.Kind, back.Kind)
	assert.Equal(t, rec.Params, back.Params)
	assert.Equal(t, rec.State, back.State)
	assert.Equal(t, rec.Fingerprint, back.Fingerprint)
	assert.Equal(t, rec.UpdatedAt.UnixNano(), back.UpdatedAt.UnixNano())

	_, err = decodeRecord([]byte("junk"))
	assert.Error(t, err)

	_, err = decodeRecord(append(raw, 0))
	assert.Equal(t, ErrBadRecord, err)

	_, err = decodeRecord(raw[:len(raw)-2])
	assert.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, Fingerprint([]byte(`a`)), Fingerprint([]byte(`a`)))
	assert.NotEqual(t, Fingerprint([]byte(`a`)), Fingerprint([]byte(`b`)))
}
