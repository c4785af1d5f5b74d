// Package codec pins down how contract payloads cross the byte
// boundary. Every parameter, state, summary and delta a host hands in
// arrives as raw bytes; a Codec turns them into the kind's typed forms
// and back.
package codec

// Codec encodes and decodes one wire representation. Implementations
// must be safe for concurrent use.
type Codec interface {
	// Marshal encodes v into a fresh byte slice.
	Marshal(v any) ([]byte, error)
	// Unmarshal decodes data into the value pointed to by v.
	Unmarshal(data []byte, v any) error
	// Name identifies the representation, e.g. "json".
	Name() string
}
