// Package interaction turns caller-supplied request/response payloads into
// validated interaction records ready for the persistence queue.
//
// The producer path is EnsureStructured -> Validate -> Builder.Build. None of
// these functions perform I/O other than writing diagnostics.
package interaction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tjfontaine/llm-interaction-logger/internal/domain"
)

// EnsureStructured coerces a payload to its canonical structured form.
// Maps are returned unchanged; string, []byte and json.RawMessage input is
// decoded as a single JSON object. Numbers decode as json.Number so integer
// values survive re-encoding exactly.
func EnsureStructured(data any) (map[string]any, error) {
	switch v := data.(type) {
	case map[string]any:
		if v == nil {
			return nil, &domain.TypeMismatchError{Type: "nil map"}
		}
		return v, nil
	case string:
		return decodeObject([]byte(v))
	case []byte:
		return decodeObject(v)
	case json.RawMessage:
		return decodeObject(v)
	default:
		return nil, &domain.TypeMismatchError{Type: fmt.Sprintf("%T", data)}
	}
}

func decodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &domain.MalformedInputError{Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &domain.MalformedInputError{Err: errors.New("unexpected data after top-level value")}
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &domain.MalformedInputError{Err: fmt.Errorf("top-level value is %s, not an object", jsonKind(v))}
	}
	return obj, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case []any:
		return "an array"
	case string:
		return "a string"
	case json.Number:
		return "a number"
	case bool:
		return "a boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
