package store

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/learn-decentralized-systems/toytlv"

	scaffold "github.com/nemonical/freenet-scaffold"
	"github.com/nemonical/freenet-scaffold/utils"
)

// Pebble shelves records in a pebble database, one TLV-framed record
// per contract id.
type Pebble struct {
	db  *pebble.DB
	log utils.Logger
}

var writeOptions = pebble.WriteOptions{Sync: false}

func OpenPebble(path string, log utils.Logger) (*Pebble, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	log.Debug("store: pebble open", "path", path)
	return &Pebble{db: db, log: log}, nil
}

func (p *Pebble) Get(id scaffold.ContractID) (Record, error) {
	val, closer, err := p.db.Get(id.Bytes())
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	defer closer.Close()
	return decodeRecord(val)
}

func (p *Pebble) Put(id scaffold.ContractID, rec Record) error {
	rec = stamp(rec)
	return p.db.Set(id.Bytes(), encodeRecord(rec), &writeOptions)
}

func (p *Pebble) Delete(id scaffold.ContractID) error {
	return p.db.Delete(id.Bytes(), &writeOptions)
}

func (p *Pebble) List() ([]scaffold.ContractID, error) {
	it, err := p.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var ids []scaffold.ContractID
	for it.First(); it.Valid(); it.Next() {
		id, err := scaffold.IDFromBytes(it.Key())
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, it.Error()
}

func (p *Pebble) Close() error {
	return p.db.Close()
}

// record framing: C( K kind, P params, S state, F fingerprint, T nanos )

func encodeRecord(rec Record) []byte {
	var fp, ts [8]byte
	binary.BigEndian.PutUint64(fp[:], rec.Fingerprint)
	binary.BigEndian.PutUint64(ts[:], uint64(rec.UpdatedAt.UnixNano()))
	return toytlv.Record('C',
		toytlv.Record('K', []byte(rec.Kind)),
		toytlv.Record('P', rec.Params),
		toytlv.Record('S', rec.State),
		toytlv.Record('F', fp[:]),
		toytlv.Record('T', ts[:]),
	)
}

func decodeRecord(data []byte) (rec Record, err error) {
	body, rest, err := toytlv.TakeWary('C', data)
	if err != nil {
		return
	}
	if len(rest) != 0 {
		return rec, ErrBadRecord
	}
	kind, body, err := toytlv.TakeWary('K', body)
	if err != nil {
		return
	}
	params, body, err := toytlv.TakeWary('P', body)
	if err != nil {
		return
	}
	state, body, err := toytlv.TakeWary('S', body)
	if err != nil {
		return
	}
	fp, body, err := toytlv.TakeWary('F', body)
	if err != nil {
		return
	}
	ts, body, err := toytlv.TakeWary('T', body)
	if err != nil {
		return
	}
	if len(body) != 0 || len(fp) != 8 || len(ts) != 8 {
		return rec, ErrBadRecord
	}
	rec.Kind = string(kind)
	rec.Params = append([]byte(nil), params...)
	rec.State = append([]byte(nil), state...)
	rec.Fingerprint = binary.BigEndian.Uint64(fp)
	rec.UpdatedAt = time.Unix(0, int64(binary.BigEndian.Uint64(ts)))
	return rec, nil
}
