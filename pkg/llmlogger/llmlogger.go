// Package llmlogger provides the public API for embedding the interaction
// logger. This is the stable API for external consumers.
package llmlogger

import (
	"github.com/tjfontaine/llm-interaction-logger/internal/domain"
	"github.com/tjfontaine/llm-interaction-logger/internal/recorder"
)

// Logger records request/response interactions asynchronously.
// See internal/recorder.Logger for full documentation.
type Logger = recorder.Logger

// Option is a functional option for configuring a Logger.
type Option = recorder.Option

// Store is the storage collaborator used by WithStoreOpener.
type Store = recorder.Store

// State is the lifecycle position of a Logger.
type State = recorder.State

// Interaction is one persisted request/response record.
type Interaction = domain.Interaction

// Lifecycle states
const (
	StateCreated  = recorder.StateCreated
	StateRunning  = recorder.StateRunning
	StateDraining = recorder.StateDraining
	StateClosed   = recorder.StateClosed
)

// New starts a Logger. Callers must Close it to flush queued records.
// Example:
//
//	logger, err := llmlogger.New(
//	    llmlogger.WithDBPath("llm_logs.db"),
//	    llmlogger.WithDiagnostics(diagLogger),
//	)
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.Log(request, response)
var New = recorder.New

// With runs fn with a new Logger and closes it afterwards.
var With = recorder.With

// Configuration options
var (
	WithDBPath          = recorder.WithDBPath
	WithDiagnostics     = recorder.WithDiagnostics
	WithPollInterval    = recorder.WithPollInterval
	WithQueueHighWater  = recorder.WithQueueHighWater
	WithTokenEstimation = recorder.WithTokenEstimation
	WithEstimator       = recorder.WithEstimator
	WithTracer          = recorder.WithTracer
	WithClock           = recorder.WithClock
	WithStoreOpener     = recorder.WithStoreOpener
)

// Errors surfaced through the diagnostic sink and the HTTP ingest API.
var (
	ErrMissingModel         = domain.ErrMissingModel
	ErrDuplicateInteraction = domain.ErrDuplicateInteraction
	ErrLoggerClosed         = domain.ErrLoggerClosed
)
