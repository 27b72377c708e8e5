package interaction

import (
	"errors"
	"log/slog"

	"github.com/tjfontaine/llm-interaction-logger/internal/domain"
)

// Required top-level keys. Presence only; values are not inspected.
var (
	RequiredRequestKeys  = []string{"model", "messages"}
	RequiredResponseKeys = []string{"id", "object", "created", "model", "choices", "usage"}
)

// CheckRequired returns a *domain.ValidationError for the first missing key,
// checking the request before the response.
func CheckRequired(request, response map[string]any) error {
	for _, key := range RequiredRequestKeys {
		if _, ok := request[key]; !ok {
			return &domain.ValidationError{Side: domain.SideRequest, Key: key}
		}
	}
	for _, key := range RequiredResponseKeys {
		if _, ok := response[key]; !ok {
			return &domain.ValidationError{Side: domain.SideResponse, Key: key}
		}
	}
	return nil
}

// Validate reports whether both payloads carry their required keys. On the
// first missing key it writes one diagnostic naming the key and returns false.
func Validate(request, response map[string]any, diag *slog.Logger) bool {
	err := CheckRequired(request, response)
	if err == nil {
		return true
	}

	var verr *domain.ValidationError
	if diag != nil && errors.As(err, &verr) {
		diag.Error("missing key in "+string(verr.Side),
			slog.String("key", verr.Key),
		)
	}
	return false
}
