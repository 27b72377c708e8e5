package interaction

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tjfontaine/llm-interaction-logger/internal/domain"
)

// PromptEstimator counts prompt tokens for a decoded "messages" array.
type PromptEstimator interface {
	CountMessages(model string, messages any) (int, error)
}

// Builder derives interaction records from validated payloads.
type Builder struct {
	// Now returns the record timestamp. Defaults to time.Now.
	Now func() time.Time

	// Estimator, when set, fills in prompt_tokens for responses whose usage
	// block omits it.
	Estimator PromptEstimator
}

// NewBuilder returns a Builder using the wall clock.
func NewBuilder(estimator PromptEstimator) *Builder {
	return &Builder{
		Now:       time.Now,
		Estimator: estimator,
	}
}

// Build creates the record for a request/response pair. It returns
// domain.ErrMissingModel or a *domain.SerializationError when the pair must be
// skipped.
func (b *Builder) Build(request, response map[string]any) (*domain.Interaction, error) {
	model, _ := response["model"].(string)
	if model == "" {
		return nil, domain.ErrMissingModel
	}

	now := time.Now
	if b.Now != nil {
		now = b.Now
	}

	requestJSON, err := encodeCanonical(request)
	if err != nil {
		return nil, &domain.SerializationError{Side: domain.SideRequest, Err: err}
	}
	responseJSON, err := encodeCanonical(response)
	if err != nil {
		return nil, &domain.SerializationError{Side: domain.SideResponse, Err: err}
	}

	return &domain.Interaction{
		ID:           interactionID(response["id"]),
		Timestamp:    now().UTC(),
		Model:        model,
		RequestData:  requestJSON,
		ResponseData: responseJSON,
		Usage:        b.usage(request, response, model),
	}, nil
}

// interactionID prefers the provider-assigned response id.
func interactionID(v any) string {
	switch id := v.(type) {
	case string:
		if id != "" {
			return id
		}
	case json.Number:
		// Zero is treated like a missing id, matching the float64 case.
		if f, err := id.Float64(); err == nil && f != 0 {
			return id.String()
		}
	case float64:
		if id != 0 {
			return strconv.FormatFloat(id, 'f', -1, 64)
		}
	}
	return "int_" + uuid.New().String()
}

// encodeCanonical renders v as compact JSON with sorted object keys and
// without HTML escaping.
func encodeCanonical(v map[string]any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

func (b *Builder) usage(request, response map[string]any, model string) domain.Usage {
	var u domain.Usage

	if raw, ok := response["usage"].(map[string]any); ok {
		u.PromptTokens = toInt(raw["prompt_tokens"])
		u.CompletionTokens = toInt(raw["completion_tokens"])
		u.TotalTokens = toInt(raw["total_tokens"])
	}

	if u.PromptTokens == nil && b.Estimator != nil {
		if reqModel, ok := request["model"].(string); ok && reqModel != "" {
			model = reqModel
		}
		if n, err := b.Estimator.CountMessages(model, request["messages"]); err == nil {
			u.PromptTokens = &n
			u.Estimated = true
		}
	}

	return u
}

func toInt(v any) *int {
	var n int
	switch x := v.(type) {
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return nil
		}
		n = int(i)
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return nil
		}
		n = int(x)
	case int:
		n = x
	case int64:
		n = int(x)
	case int32:
		n = int(x)
	default:
		return nil
	}
	return &n
}
