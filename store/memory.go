package store

import (
	"github.com/puzpuzpuz/xsync/v3"

	scaffold "github.com/nemonical/freenet-scaffold"
)

// Memory shelves records in process, for tests and the REPL. Slices
// are copied both ways so callers cannot alias the shelf.
type Memory struct {
	recs *xsync.MapOf[scaffold.ContractID, Record]
}

func NewMemory() *Memory {
	return &Memory{recs: xsync.NewMapOf[scaffold.ContractID, Record]()}
}

func (m *Memory) Get(id scaffold.ContractID) (Record, error) {
	rec, ok := m.recs.Load(id)
	if !ok {
		return Record{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (m *Memory) Put(id scaffold.ContractID, rec Record) error {
	m.recs.Store(id, cloneRecord(stamp(rec)))
	return nil
}

func (m *Memory) Delete(id scaffold.ContractID) error {
	m.recs.Delete(id)
	return nil
}

func (m *Memory) List() ([]scaffold.ContractID, error) {
	ids := make([]scaffold.ContractID, 0, m.recs.Size())
	m.recs.Range(func(id scaffold.ContractID, _ Record) bool {
		ids = append(ids, id)
		return true
	})
	return ids, nil
}

func (m *Memory) Close() error {
	return nil
}

func cloneRecord(rec Record) Record {
	rec.Params = append([]byte(nil), rec.Params...)
	rec.State = append([]byte(nil), rec.State...)
	return rec
}
