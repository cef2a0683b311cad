package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	_ "modernc.org/sqlite"

	ferrors "git.home.luguber.info/inful/ddd/internal/foundation/errors"
	"git.home.luguber.info/inful/ddd/internal/pipeline"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (creating if needed) the history database at dbPath.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryHistory, ErrOpenFailed.Message()).
			WithContext("path", dbPath).
			Build()
	}
	// One connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "initialize history schema").
			WithContext("path", dbPath).
			Build()
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	return migrateUp(s.db)
}

// Record saves res.
func (s *SQLiteStore) Record(ctx context.Context, res *pipeline.Result) error {
	if res == nil {
		return ferrors.ValidationError("result cannot be nil").Build()
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryHistory, "marshal run").Build()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs
		(run_id, target, success, exit_code, started_at, duration_seconds, raw_bytes, clean_bytes, reduction_pct, revision, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.Target, res.Success, res.ExitCode, res.StartedAt.UnixNano(), res.DurationSeconds,
		res.Metrics.RawBytes, res.Metrics.CleanBytes, res.Metrics.ReductionPct, res.Revision, payload,
	)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryHistory, ErrRecordFailed.Message()).
			WithContext("run_id", res.RunID).
			Build()
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]*pipeline.Result, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT payload FROM runs ORDER BY started_at DESC, seq DESC LIMIT ?", limit)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryHistory, ErrQueryFailed.Message()).Build()
	}
	defer rows.Close()

	var out []*pipeline.Result
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "scan run").Build()
		}
		var res pipeline.Result
		if err := json.Unmarshal(payload, &res); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "decode run").Build()
		}
		out = append(out, &res)
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryHistory, ErrQueryFailed.Message()).Build()
	}
	return out, nil
}

// Prune deletes everything but the newest keep runs.
func (s *SQLiteStore) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE seq NOT IN (
			SELECT seq FROM runs ORDER BY started_at DESC, seq DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, ferrors.WrapError(err, ferrors.CategoryHistory, "prune run history").Build()
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, ferrors.WrapError(err, ferrors.CategoryHistory, "prune run history").Build()
	}
	return n, nil
}

// Count returns the number of stored runs.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&n); err != nil {
		return 0, ferrors.WrapError(err, ferrors.CategoryHistory, ErrQueryFailed.Message()).Build()
	}
	return n, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
