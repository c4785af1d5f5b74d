package kinds

import (
	"testing"

	"github.com/stretchr/testify/assert"

	scaffold "github.com/nemonical/freenet-scaffold"
)

func TestBuiltinRegistry(t *testing.T) {
	reg := Builtin()
	for _, name := range []string{
		KindCounter, KindTally, KindRegister, KindFeed, KindGate, KindMirror,
	} {
		assert.NotNil(t, reg[name], name)
	}
	assert.Len(t, reg, 6)
}

func TestBuiltinMinimalStates(t *testing.T) {
	reg := Builtin()
	minimal := map[string]string{
		KindCounter:  `{"count":0}`,
		KindTally:    `{"totals":{}}`,
		KindRegister: `{}`,
		KindFeed:     `{"entries":[]}`,
		KindGate:     `{"doc":{}}`,
	}
	for kind, state := range minimal {
		res, err := reg[kind].ValidateState([]byte(`{}`), []byte(state), nil)
		assert.NoError(t, err, kind)
		assert.Equal(t, scaffold.Valid, res.Validity, kind)
	}
}
