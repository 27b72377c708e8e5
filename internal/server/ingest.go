package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tjfontaine/llm-interaction-logger/internal/domain"
	"github.com/tjfontaine/llm-interaction-logger/internal/interaction"
	"github.com/tjfontaine/llm-interaction-logger/internal/recorder"
)

// MaxBodyBytes caps the size of one ingest request.
const MaxBodyBytes = 10 << 20

// Recorder is the part of recorder.Logger the HTTP layer needs.
type Recorder interface {
	Log(request, response any)
	State() recorder.State
	Pending() int
}

// IngestHandler accepts interactions over HTTP and hands them to a Recorder.
type IngestHandler struct {
	recorder Recorder
}

func NewIngestHandler(rec Recorder) *IngestHandler {
	return &IngestHandler{recorder: rec}
}

// interactionEnvelope is the POST /v1/interactions body. Each side is either
// a JSON object or a string holding one.
type interactionEnvelope struct {
	Request  json.RawMessage `json:"request"`
	Response json.RawMessage `json:"response"`
}

type errorBody struct {
	Error string `json:"error"`
}

type healthBody struct {
	State   string `json:"state"`
	Pending int    `json:"pending"`
}

// HandleInteraction validates the pair synchronously so the client learns why
// a record would be skipped, then queues it. 202 means queued, not persisted.
func (h *IngestHandler) HandleInteraction(w http.ResponseWriter, r *http.Request) {
	if h.recorder.State() != recorder.StateRunning {
		AddError(r.Context(), domain.ErrLoggerClosed)
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: domain.ErrLoggerClosed.Error()})
		return
	}

	var env interactionEnvelope
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(&env); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "request body too large"})
			return
		}
		h.badRequest(w, r, fmt.Errorf("invalid request body: %w", err))
		return
	}

	req, err := structuredSide(env.Request, domain.SideRequest)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	resp, err := structuredSide(env.Response, domain.SideResponse)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := interaction.CheckRequired(req, resp); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if model, _ := resp["model"].(string); model == "" {
		h.badRequest(w, r, domain.ErrMissingModel)
		return
	}

	if id, ok := resp["id"].(string); ok {
		AddLogField(r.Context(), "interaction_id", id)
	}
	h.recorder.Log(req, resp)

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// HandleHealth reports the recorder lifecycle state and queue depth.
func (h *IngestHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	state := h.recorder.State()
	status := http.StatusOK
	if state != recorder.StateRunning {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthBody{State: state.String(), Pending: h.recorder.Pending()})
}

func (h *IngestHandler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	AddError(r.Context(), err)
	writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
}

func structuredSide(raw json.RawMessage, side domain.Side) (map[string]any, error) {
	var data any = raw
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, fmt.Errorf("%s: %w", side, err)
		}
		data = text
	} else if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		data = nil
	}

	m, err := interaction.EnsureStructured(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", side, err)
	}
	return m, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
