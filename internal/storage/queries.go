package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zheng/cgraph/internal/graph"
)

const (
	scopeSep   = "::"
	// fixed width so created_at sorts as text
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Run describes one exported graph.
type Run struct {
	ID        string
	Root      string
	Identity  graph.IdentityMode
	CreatedAt time.Time
}

// Stats counts the rows of one run.
type Stats struct {
	Functions int64
	Calls     int64
}

// SaveGraph writes g as a new run and returns the run id. The run is written
// in one transaction, so a failed export leaves no partial run behind.
func (db *DB) SaveGraph(ctx context.Context, root string, g *graph.CallGraph) (string, error) {
	runID := uuid.NewString()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, root, identity, created_at) VALUES (?, ?, ?, ?)`,
		runID, root, string(g.Mode()), time.Now().UTC().Format(timeLayout),
	); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	insertFn, err := tx.PrepareContext(ctx,
		`INSERT INTO functions (run_id, seq, key, name, file, scope) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer insertFn.Close()

	insertCall, err := tx.PrepareContext(ctx,
		`INSERT INTO calls (run_id, caller, seq, callee, file, line, col) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer insertCall.Close()

	for i, e := range g.Entries() {
		if _, err := insertFn.ExecContext(ctx, runID, i, e.Key, e.Name(), e.ID.File, strings.Join(e.ID.Scope, scopeSep)); err != nil {
			return "", fmt.Errorf("insert function %s: %w", e.Key, err)
		}
		for seq, c := range e.Edges {
			if _, err := insertCall.ExecContext(ctx, runID, e.Key, seq, c.Callee, c.OriginFile, c.Line, c.Column); err != nil {
				return "", fmt.Errorf("insert call %s -> %s: %w", e.Key, c.Callee, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return runID, nil
}

// GetRun returns the run with the given id.
func (db *DB) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, root, identity, created_at FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, err
}

// LatestRun returns the most recently exported run.
func (db *DB) LatestRun(ctx context.Context) (*Run, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, root, identity, created_at FROM runs ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	return run, err
}

// ListRuns returns all runs, newest first.
func (db *DB) ListRuns(ctx context.Context) ([]*Run, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, root, identity, created_at FROM runs ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetStats counts the functions and calls stored for a run.
func (db *DB) GetStats(ctx context.Context, runID string) (Stats, error) {
	var s Stats
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM functions WHERE run_id = ?`, runID).Scan(&s.Functions); err != nil {
		return s, err
	}
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM calls WHERE run_id = ?`, runID).Scan(&s.Calls)
	return s, err
}

// GetCalls returns the calls made by caller, in source order.
func (db *DB) GetCalls(ctx context.Context, runID, caller string) ([]graph.CallEdge, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT callee, file, line, col FROM calls WHERE run_id = ? AND caller = ? ORDER BY seq`,
		runID, caller)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

// GetCallers returns the keys of the functions that call callee, in graph order.
func (db *DB) GetCallers(ctx context.Context, runID, callee string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT f.key FROM functions f
		 WHERE f.run_id = ? AND EXISTS (
			SELECT 1 FROM calls c WHERE c.run_id = f.run_id AND c.caller = f.key AND c.callee = ?
		 )
		 ORDER BY f.seq`,
		runID, callee)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrings(rows)
}

// GetDownstream returns every name reachable from key through recorded calls,
// sorted. Callee text is matched against caller keys, which only lines up in
// name identity mode. A maxDepth of 0 means no limit.
func (db *DB) GetDownstream(ctx context.Context, runID, key string, maxDepth int) ([]string, error) {
	var query string
	var args []any

	if maxDepth == 0 {
		query = `
		WITH RECURSIVE reach(name) AS (
			SELECT callee FROM calls WHERE run_id = ? AND caller = ?
			UNION
			SELECT c.callee FROM calls c JOIN reach r ON c.caller = r.name
			WHERE c.run_id = ?
		)
		SELECT name FROM reach ORDER BY name`
		args = []any{runID, key, runID}
	} else {
		query = `
		WITH RECURSIVE reach(name, depth) AS (
			SELECT callee, 1 FROM calls WHERE run_id = ? AND caller = ?
			UNION
			SELECT c.callee, r.depth + 1 FROM calls c JOIN reach r ON c.caller = r.name
			WHERE c.run_id = ? AND r.depth < ?
		)
		SELECT DISTINCT name FROM reach ORDER BY name`
		args = []any{runID, key, runID, maxDepth}
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrings(rows)
}

// LoadGraph rebuilds the call graph of a run.
func (db *DB) LoadGraph(ctx context.Context, runID string) (*graph.CallGraph, error) {
	run, err := db.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	g := graph.NewCallGraph(run.Identity)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT key, name, file, scope FROM functions WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	var ids []graph.FuncID
	for rows.Next() {
		var key, scope string
		var id graph.FuncID
		if err := rows.Scan(&key, &id.Name, &id.File, &scope); err != nil {
			rows.Close()
			return nil, err
		}
		if scope != "" {
			id.Scope = strings.Split(scope, scopeSep)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range ids {
		e := g.Ensure(id)
		edges, err := db.GetCalls(ctx, runID, e.Key)
		if err != nil {
			return nil, err
		}
		e.Edges = append(e.Edges, edges...)
	}
	return g, nil
}

// Helper functions

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var identity, created string
	if err := row.Scan(&r.ID, &r.Root, &identity, &created); err != nil {
		return nil, err
	}
	r.Identity = graph.IdentityMode(identity)
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("run %s: bad created_at %q: %w", r.ID, created, err)
	}
	r.CreatedAt = t
	return &r, nil
}

func scanEdges(rows *sql.Rows) ([]graph.CallEdge, error) {
	edges := []graph.CallEdge{}
	for rows.Next() {
		var e graph.CallEdge
		if err := rows.Scan(&e.Callee, &e.OriginFile, &e.Line, &e.Column); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
