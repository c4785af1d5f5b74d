package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count,omitempty"`
}

func TestJSONRoundTrip(t *testing.T) {
	c := JSON{}
	raw, err := c.Marshal(payload{Name: "a", Count: 3})
	assert.NoError(t, err)
	assert.Equal(t, `{"name":"a","count":3}`, string(raw))

	var back payload
	assert.NoError(t, c.Unmarshal(raw, &back))
	assert.Equal(t, payload{Name: "a", Count: 3}, back)
	assert.Equal(t, "json", c.Name())
}

func TestJSONRejectsEmptyPayload(t *testing.T) {
	c := JSON{}
	var v payload
	assert.Error(t, c.Unmarshal(nil, &v))
	assert.Error(t, c.Unmarshal([]byte{}, &v))
}

func TestJSONRejectsTrailingData(t *testing.T) {
	c := JSON{}
	var v payload
	assert.Error(t, c.Unmarshal([]byte(`{"name":"a"}{"name":"b"}`), &v))
	assert.Error(t, c.Unmarshal([]byte(`{"name":"a"} 1`), &v))

	// Plain trailing whitespace is not data.
	assert.NoError(t, c.Unmarshal([]byte(`{"name":"a"}`+"\n"), &v))
	assert.Equal(t, "a", v.Name)
}
