package scaffold

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ContractID names one contract instance: the content address of its
// immutable parameters plus the kind tag of its state type. IDs are
// opaque to the core; they only need to be stable, comparable and
// usable as map keys, which a 32-byte array gives us for free.
type ContractID [32]byte

var ZeroID = ContractID{}

var ErrBadID = errors.New("scaffold: not a contract id")

// ComputeID derives the instance id from the kind tag and the raw
// parameter bytes. Two instances with the same kind and parameters
// are the same contract, wherever they live.
func ComputeID(kind string, params []byte) ContractID {
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write(params)
	var id ContractID
	h.Sum(id[:0])
	return id
}

// IDFromBytes copies a raw 32-byte key. Anything else is ErrBadID.
func IDFromBytes(raw []byte) (ContractID, error) {
	var id ContractID
	if len(raw) != len(id) {
		return ZeroID, ErrBadID
	}
	copy(id[:], raw)
	return id, nil
}

func ParseID(s string) (ContractID, error) {
	var id ContractID
	if len(s) != hex.EncodedLen(len(id)) {
		return ZeroID, ErrBadID
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return ZeroID, ErrBadID
	}
	return id, nil
}

func (id ContractID) String() string {
	return hex.EncodeToString(id[:])
}

// Short is the log-friendly prefix, enough to tell instances apart by eye.
func (id ContractID) Short() string {
	return hex.EncodeToString(id[:4])
}

func (id ContractID) Bytes() []byte {
	return id[:]
}

func (id ContractID) IsZero() bool {
	return id == ZeroID
}

// Compare orders ids bytewise, the total order the protocol promises.
func (id ContractID) Compare(other ContractID) int {
	return bytes.Compare(id[:], other[:])
}
