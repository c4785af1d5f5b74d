package scaffold

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeErrorFormat(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")

	err := decodeErr(FieldState, cause)
	assert.Equal(t, "scaffold: decode state: unexpected end of JSON input", err.Error())

	err = decodeErrAt(FieldDelta, 2, cause)
	assert.Equal(t, "scaffold: decode delta[2]: unexpected end of JSON input", err.Error())
	assert.True(t, errors.Is(err, cause))
}

func TestDomainErrorFormat(t *testing.T) {
	cause := errors.New("negative increment")
	err := &DomainError{Op: "apply", Index: 3, Err: cause}
	assert.Equal(t, "scaffold: update[3] apply: negative increment", err.Error())
	assert.True(t, errors.Is(err, cause))
}

func TestErrorClassesSurviveWrapping(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", decodeErr(FieldSummary, errors.New("boom")))
	de, ok := AsDecode(wrapped)
	assert.True(t, ok)
	assert.Equal(t, FieldSummary, de.Field)
	assert.Equal(t, -1, de.Index)

	wrapped = fmt.Errorf("context: %w", &DomainError{Op: "verify", Index: 0, Err: errors.New("no")})
	dom, ok := AsDomain(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "verify", dom.Op)

	_, ok = AsDecode(errors.New("plain"))
	assert.False(t, ok)
	_, ok = AsDomain(nil)
	assert.False(t, ok)
}
