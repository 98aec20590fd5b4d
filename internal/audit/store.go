package audit

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/prism/internal/ledger"
)

//go:embed schema.sql
var schemaSQL string

// NodeValue is one node's final value inside a recorded session.
type NodeValue struct {
	ID     uint32
	Name   string
	Scalar bool
	Data   []float64
}

// Session is a recorded solve: the value table and convergence trace.
type Session struct {
	ID        string // assigned by RecordSession when empty
	Label     string
	ModelLen  int
	Backend   string
	Converged bool
	Values    []NodeValue
	Trace     []ledger.SolverIteration
}

// Summary is the listing row for a stored session.
type Summary struct {
	ID         string
	Label      string
	CreatedAt  string
	Backend    string
	Converged  bool
	Iterations int
}

// Store is the SQLite-backed session log.
type Store struct {
	db *sql.DB
}

// Open creates or opens the audit database at path, applying pragmas
// and the schema. SQLite allows one writer, so the pool is pinned to a
// single connection. Idempotent.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect audit db: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply audit schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordSession writes a session atomically and returns its id. A
// fresh UUID is assigned when sess.ID is empty; re-recording the same
// id is an error.
func (s *Store) RecordSession(ctx context.Context, sess Session) (string, error) {
	id := sess.ID
	if id == "" {
		id = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("record session: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, label, model_len, backend, converged, iterations)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, sess.Label, sess.ModelLen, sess.Backend, sess.Converged, len(sess.Trace))
	if err != nil {
		return "", fmt.Errorf("record session: %w", err)
	}

	for _, v := range sess.Values {
		for step, x := range v.Data {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO session_values (session_id, node_id, name, is_scalar, step, value)
				VALUES (?, ?, ?, ?, ?, ?)
			`, id, v.ID, v.Name, v.Scalar, step, x)
			if err != nil {
				return "", fmt.Errorf("record session value %s: %w", v.Name, err)
			}
		}
	}

	for _, rec := range sess.Trace {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO session_iterations (session_id, iter, obj_val, inf_pr, inf_du)
			VALUES (?, ?, ?, ?, ?)
		`, id, rec.Iter, rec.ObjVal, rec.InfPr, rec.InfDu)
		if err != nil {
			return "", fmt.Errorf("record session iteration %d: %w", rec.Iter, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("record session: commit: %w", err)
	}
	return id, nil
}

// LoadSession reassembles a stored session by id.
func (s *Store) LoadSession(ctx context.Context, id string) (Session, error) {
	sess := Session{ID: id}

	var converged int
	err := s.db.QueryRowContext(ctx, `
		SELECT label, model_len, backend, converged FROM sessions WHERE id = ?
	`, id).Scan(&sess.Label, &sess.ModelLen, &sess.Backend, &converged)
	if err != nil {
		return Session{}, fmt.Errorf("load session %s: %w", id, err)
	}
	sess.Converged = converged != 0

	rows, err := s.db.QueryContext(ctx, `
		SELECT node_id, name, is_scalar, step, value
		FROM session_values WHERE session_id = ?
		ORDER BY node_id, step
	`, id)
	if err != nil {
		return Session{}, fmt.Errorf("load session values: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var nodeID uint32
		var name string
		var isScalar int
		var step int
		var value float64
		if err := rows.Scan(&nodeID, &name, &isScalar, &step, &value); err != nil {
			return Session{}, fmt.Errorf("scan session value: %w", err)
		}
		n := len(sess.Values)
		if n == 0 || sess.Values[n-1].ID != nodeID {
			sess.Values = append(sess.Values, NodeValue{
				ID:     nodeID,
				Name:   name,
				Scalar: isScalar != 0,
			})
			n++
		}
		sess.Values[n-1].Data = append(sess.Values[n-1].Data, value)
	}
	if err := rows.Err(); err != nil {
		return Session{}, fmt.Errorf("load session values: %w", err)
	}

	iters, err := s.db.QueryContext(ctx, `
		SELECT iter, obj_val, inf_pr, inf_du
		FROM session_iterations WHERE session_id = ?
		ORDER BY iter
	`, id)
	if err != nil {
		return Session{}, fmt.Errorf("load session iterations: %w", err)
	}
	defer iters.Close()

	for iters.Next() {
		var rec ledger.SolverIteration
		if err := iters.Scan(&rec.Iter, &rec.ObjVal, &rec.InfPr, &rec.InfDu); err != nil {
			return Session{}, fmt.Errorf("scan session iteration: %w", err)
		}
		sess.Trace = append(sess.Trace, rec)
	}
	if err := iters.Err(); err != nil {
		return Session{}, fmt.Errorf("load session iterations: %w", err)
	}
	return sess, nil
}

// ListSessions returns stored sessions, most recent first.
func (s *Store) ListSessions(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, created_at, backend, converged, iterations
		FROM sessions ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var converged int
		if err := rows.Scan(&sum.ID, &sum.Label, &sum.CreatedAt, &sum.Backend, &converged, &sum.Iterations); err != nil {
			return nil, fmt.Errorf("scan session summary: %w", err)
		}
		sum.Converged = converged != 0
		out = append(out, sum)
	}
	return out, rows.Err()
}
