package scaffold

import (
	"errors"
	"fmt"
)

// Field names the payload a codec failure belongs to, so the host can
// tell which of its inputs was malformed.
type Field string

const (
	FieldParameters Field = "parameters"
	FieldState      Field = "state"
	FieldSummary    Field = "summary"
	FieldDelta      Field = "delta"
	FieldUpdate     Field = "update"
	FieldRelated    Field = "related"
)

var (
	ErrEmptyUpdate     = errors.New("scaffold: update entry carries neither state nor delta")
	ErrAmbiguousUpdate = errors.New("scaffold: update entry carries both state and delta")
	ErrResolveRounds   = errors.New("scaffold: resolution round cap exhausted")
)

// DecodeError is the codec class of the taxonomy: some payload did not
// decode (or a result did not re-encode, which is a bug in the kind,
// not in the host's input). It always names the field; Index is the
// zero-based position inside an update batch or related list, -1
// elsewhere.
type DecodeError struct {
	Field Field
	Index int
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("scaffold: decode %s[%d]: %v", e.Field, e.Index, e.Err)
	}
	return fmt.Sprintf("scaffold: decode %s: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(field Field, err error) error {
	return &DecodeError{Field: field, Index: -1, Err: err}
}

func decodeErrAt(field Field, index int, err error) error {
	return &DecodeError{Field: field, Index: index, Err: err}
}

// DomainError is the capability class: verification or delta
// application failed inside update_state. During validate_state a
// verification failure is the Invalid outcome, never an error, so this
// type only ever points into an update batch.
type DomainError struct {
	Op    string // "apply" or "verify"
	Index int
	Err   error
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("scaffold: update[%d] %s: %v", e.Index, e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// AsDecode unpacks the decode class from an error chain.
func AsDecode(err error) (*DecodeError, bool) {
	var de *DecodeError
	ok := errors.As(err, &de)
	return de, ok
}

// AsDomain unpacks the domain class from an error chain.
func AsDomain(err error) (*DomainError, bool) {
	var de *DomainError
	ok := errors.As(err, &de)
	return de, ok
}
