package llmlogger_test

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/tjfontaine/llm-interaction-logger/pkg/llmlogger"
)

func TestWith_PersistsToSQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "llm_logs.db")
	var diag bytes.Buffer

	err := llmlogger.With(func(l *llmlogger.Logger) error {
		l.Log(
			`{"model":"gpt-x","messages":[{"role":"user","content":"hi"}]}`,
			map[string]any{
				"id":      "abc",
				"object":  "chat.completion",
				"created": 1,
				"model":   "gpt-x",
				"choices": []any{},
				"usage":   map[string]any{"prompt_tokens": 5},
			},
		)
		return nil
	},
		llmlogger.WithDBPath(dbPath),
		llmlogger.WithDiagnostics(slog.New(slog.NewTextHandler(&diag, nil))),
		llmlogger.WithPollInterval(10*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("With() error = %v", err)
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var model string
	if err := db.GetContext(context.Background(), &model,
		`SELECT model FROM interactions WHERE interaction_id = ?`, "abc"); err != nil {
		t.Fatalf("select: %v (diagnostics: %s)", err, diag.String())
	}
	if model != "gpt-x" {
		t.Errorf("model = %q, want gpt-x", model)
	}
}
