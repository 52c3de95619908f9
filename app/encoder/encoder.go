package encoder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// alphabet indexed by the reduced code point. Position matters: the remote
// service decodes keys against this exact symbol table.
const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-_"

// Descriptor is the request payload that gets obfuscated into the page-info
// query key. Field order is part of the wire format: the serialization must
// be byte-identical across calls for the same input, and the service expects
// url/data/t/st in this order.
type Descriptor struct {
	URL  string         `json:"url"`
	Data map[string]any `json:"data"`
	T    int64          `json:"t"`
	St   int64          `json:"st"`
}

// NewDescriptor builds a descriptor for one product endpoint. The timestamps
// make the key a request nonce: two calls at different wall-clock moments
// produce different keys for the same endpoint, which is expected.
func NewDescriptor(endpoint string, now time.Time) *Descriptor {
	t := now.UnixMilli()
	return &Descriptor{
		URL:  endpoint,
		Data: map[string]any{},
		T:    t,
		St:   t - 5000,
	}
}

// Encode transforms a descriptor into the opaque ASCII key the page-info API
// expects. A nil descriptor encodes to the empty string. The transform is
// one-way by design; only determinism is guaranteed.
func Encode(d *Descriptor) (string, error) {
	if d == nil {
		return "", nil
	}

	raw, err := marshalCompact(d)
	if err != nil {
		return "", fmt.Errorf("failed to serialize descriptor: %w", err)
	}

	var b strings.Builder
	b.Grow(len(raw) + 1)
	b.WriteByte('1')

	for _, r := range string(raw) {
		if r > 127 {
			// Non-ASCII passes through untouched.
			b.WriteRune(r)
			continue
		}
		v := byte(r) % 95
		if v < 64 {
			b.WriteByte(alphabet[v])
		} else {
			// Values in [64,95) escape with a dot; the index is masked with
			// 63, not reduced modulo 64. Do not simplify the arithmetic, the
			// remote service matches keys byte-for-byte.
			b.WriteByte('.')
			b.WriteByte(alphabet[v&63])
		}
	}

	return b.String(), nil
}

// marshalCompact serializes without HTML escaping so that the JSON text
// matches the service's expectation character-for-character.
func marshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
