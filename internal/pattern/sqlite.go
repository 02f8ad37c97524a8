package pattern

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/pilot/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// SQLitePersistence stores the pattern set in a SQLite database, one row per
// signature. It satisfies the same Persistence contract as the file backend:
// Load returns the full set, Save replaces it in one transaction.
type SQLitePersistence struct {
	db     *sql.DB
	dbPath string
}

// NewSQLitePersistence opens (or creates) the database at dbPath and
// initializes the schema. ":memory:" is supported for tests.
func NewSQLitePersistence(dbPath string) (*SQLitePersistence, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// busy_timeout must be set first so the remaining pragmas wait on locks
	// held by concurrently initializing processes.
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := execWithRetry(db, schemaSQL, 5, 10*time.Millisecond); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLitePersistence{db: db, dbPath: dbPath}, nil
}

// execWithRetry executes a statement with exponential backoff on
// "database is locked" errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection.
func (s *SQLitePersistence) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Load reads all patterns from the database.
func (s *SQLitePersistence) Load(ctx context.Context) ([]*Pattern, error) {
	query := `SELECT signature, id, description, action_type, approach, context,
		usage_count, success_rate, confidence, created_at_ms, last_used_ms, last_success_ms
		FROM patterns`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query patterns: %w", err)
	}
	defer rows.Close()

	var patterns []*Pattern
	for rows.Next() {
		var (
			p           Pattern
			actionType  string
			contextJSON string
			createdMs   int64
			usedMs      int64
			successMs   int64
		)
		err := rows.Scan(
			&p.Signature,
			&p.ID,
			&p.Description,
			&actionType,
			&p.Approach,
			&contextJSON,
			&p.UsageCount,
			&p.SuccessRate,
			&p.Confidence,
			&createdMs,
			&usedMs,
			&successMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan pattern row: %w", err)
		}

		p.ActionType = models.ActionType(actionType)
		if contextJSON != "" && contextJSON != "{}" {
			if err := json.Unmarshal([]byte(contextJSON), &p.Context); err != nil {
				return nil, fmt.Errorf("unmarshal pattern context: %w", err)
			}
		}
		p.CreatedAt = time.UnixMilli(createdMs)
		p.LastUsed = time.UnixMilli(usedMs)
		p.LastSuccess = time.UnixMilli(successMs)

		patterns = append(patterns, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pattern rows: %w", err)
	}
	return patterns, nil
}

// Save replaces the stored pattern set in a single transaction.
func (s *SQLitePersistence) Save(ctx context.Context, patterns []*Pattern) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM patterns`); err != nil {
		return fmt.Errorf("clear patterns: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO patterns
		(signature, id, description, action_type, approach, context,
		 usage_count, success_rate, confidence, created_at_ms, last_used_ms, last_success_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range patterns {
		contextJSON := "{}"
		if len(p.Context) > 0 {
			data, err := json.Marshal(p.Context)
			if err != nil {
				return fmt.Errorf("marshal pattern context: %w", err)
			}
			contextJSON = string(data)
		}

		_, err := stmt.ExecContext(ctx,
			p.Signature,
			p.ID,
			p.Description,
			string(p.ActionType),
			p.Approach,
			contextJSON,
			p.UsageCount,
			p.SuccessRate,
			p.Confidence,
			p.CreatedAt.UnixMilli(),
			p.LastUsed.UnixMilli(),
			p.LastSuccess.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("insert pattern %s: %w", p.Signature, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit patterns: %w", err)
	}
	return nil
}
