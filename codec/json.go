package codec

import (
	"bytes"
	"encoding/json"
	"errors"
)

// JSON is the default wire form. Decoding rejects empty input and
// trailing garbage so a truncated or concatenated payload cannot pass
// for a value.
type JSON struct{}

var errEmpty = errors.New("empty payload")

func (JSON) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSON) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return errEmpty
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after payload")
	}
	return nil
}

func (JSON) Name() string { return "json" }
