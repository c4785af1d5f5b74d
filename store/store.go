// Package store shelves contract state at rest. A Store holds one
// Record per contract id and knows nothing about kinds or convergence;
// merging happens above it and whole records replace atomically.
package store

import (
	"errors"
	"time"

	"github.com/cespare/xxhash/v2"

	scaffold "github.com/nemonical/freenet-scaffold"
)

var (
	ErrNotFound  = errors.New("store: contract not found")
	ErrBadRecord = errors.New("store: bad record framing")
)

// Record is everything persisted for one contract.
type Record struct {
	Kind        string
	Params      []byte
	State       []byte
	Fingerprint uint64
	UpdatedAt   time.Time
}

// Store is the at-rest surface. Implementations are safe for
// concurrent use.
type Store interface {
	Get(id scaffold.ContractID) (Record, error)
	Put(id scaffold.ContractID, rec Record) error
	Delete(id scaffold.ContractID) error
	List() ([]scaffold.ContractID, error)
	Close() error
}

// Fingerprint digests state bytes for cheap change detection. Not an
// identity: ids are content addresses, fingerprints are lookup keys.
func Fingerprint(state []byte) uint64 {
	return xxhash.Sum64(state)
}

// stamp normalizes a record before it hits the shelf: the fingerprint
// always reflects the state bytes and the timestamp defaults to now.
func stamp(rec Record) Record {
	rec.Fingerprint = Fingerprint(rec.State)
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	return rec
}
