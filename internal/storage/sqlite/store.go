// Package sqlite is the storage collaborator for the persistence worker: a
// single SQLite database holding the interactions table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/tjfontaine/llm-interaction-logger/internal/domain"
)

// Store owns one connection to the interactions database. It is not meant to
// be shared: the persistence worker is its only user.
type Store struct {
	db *sqlx.DB
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
}

const createInteractionsTable = `CREATE TABLE IF NOT EXISTS interactions (
	interaction_id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	model TEXT NOT NULL,
	request_data TEXT NOT NULL,
	response_data TEXT NOT NULL,
	prompt_tokens INTEGER,
	completion_tokens INTEGER,
	total_tokens INTEGER
)`

// usageColumns were added after the first five-column schema; databases
// created before then are migrated in place.
var usageColumns = []string{"prompt_tokens", "completion_tokens", "total_tokens"}

const insertInteractionQuery = `INSERT INTO interactions (
	interaction_id, timestamp, model, request_data, response_data,
	prompt_tokens, completion_tokens, total_tokens
) VALUES (
	:interaction_id, :timestamp, :model, :request_data, :response_data,
	:prompt_tokens, :completion_tokens, :total_tokens
)`

// New opens the database at dbPath and makes sure the schema exists.
func New(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: the worker is the single writer, and ":memory:"
	// databases are per-connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	for _, stmt := range pragmas {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute pragma: %w", err)
		}
	}

	store := &Store{db: db}

	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createInteractionsTable); err != nil {
		return fmt.Errorf("failed to create interactions table: %w", err)
	}

	var existing []string
	if err := s.db.SelectContext(ctx, &existing, `SELECT name FROM pragma_table_info('interactions')`); err != nil {
		return fmt.Errorf("failed to inspect interactions table: %w", err)
	}

	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}

	for _, col := range usageColumns {
		if have[col] {
			continue
		}
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE interactions ADD COLUMN %s INTEGER", col)); err != nil {
			return fmt.Errorf("failed to add column %s: %w", col, err)
		}
	}

	return nil
}

type interactionRow struct {
	ID               string        `db:"interaction_id"`
	Timestamp        string        `db:"timestamp"`
	Model            string        `db:"model"`
	RequestData      string        `db:"request_data"`
	ResponseData     string        `db:"response_data"`
	PromptTokens     sql.NullInt64 `db:"prompt_tokens"`
	CompletionTokens sql.NullInt64 `db:"completion_tokens"`
	TotalTokens      sql.NullInt64 `db:"total_tokens"`
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

// InsertInteraction writes one record in its own transaction. A primary key
// collision is reported as domain.ErrDuplicateInteraction.
func (s *Store) InsertInteraction(ctx context.Context, interaction *domain.Interaction) error {
	row := interactionRow{
		ID:               interaction.ID,
		Timestamp:        interaction.TimestampString(),
		Model:            interaction.Model,
		RequestData:      interaction.RequestData,
		ResponseData:     interaction.ResponseData,
		PromptTokens:     nullInt(interaction.Usage.PromptTokens),
		CompletionTokens: nullInt(interaction.Usage.CompletionTokens),
		TotalTokens:      nullInt(interaction.Usage.TotalTokens),
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, insertInteractionQuery, row); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s: %v", domain.ErrDuplicateInteraction, interaction.ID, err)
		}
		return fmt.Errorf("failed to insert interaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit interaction: %w", err)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var serr *msqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(serr.Error(), "UNIQUE")
	}
	return false
}

// DB returns the underlying sqlx.DB.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
