package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lotas/tabgruppen/internal/organizer"
	"github.com/lotas/tabgruppen/internal/reconcile"
	"github.com/lotas/tabgruppen/internal/types"
)

// RunSummary is one row of organize_runs.
type RunSummary struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string // "ok" or "failed"
	Error      string
	Created    int
	Added      int
	Ungrouped  int
	Updated    int
	Skipped    int
}

// OpRecord is one row of organize_ops.
type OpRecord struct {
	Seq       int
	Kind      string
	GroupName string
	TabIDs    []types.TabID
	GroupID   types.GroupID
	Outcome   string
	Error     string
}

// Journal records organize runs in a SQLite database.
type Journal struct {
	db *sql.DB
}

// NewJournal returns a Journal backed by db.
func NewJournal(db *sql.DB) *Journal {
	return &Journal{db: db}
}

var _ organizer.Journal = (*Journal)(nil)

// RecordRun stores the run and its operations in one transaction.
func (j *Journal) RecordRun(ctx context.Context, run organizer.Run) (int64, error) {
	status, errText := "ok", ""
	if run.Err != nil {
		status, errText = "failed", run.Err.Error()
	}
	r := run.Report
	if r == nil {
		r = &reconcile.Report{}
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO organize_runs
		(started_at, finished_at, status, error, created, added, ungrouped, updated, skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.UTC(), run.FinishedAt.UTC(), status, errText,
		r.Created, r.Added, r.Ungrouped, r.Updated, r.Skipped)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	for i, op := range r.Ops {
		var opErr string
		if op.Err != nil {
			opErr = op.Err.Error()
		}
		var gid any
		if op.GroupID != types.NoGroup {
			gid = int(op.GroupID)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO organize_ops
			(run_id, seq, kind, group_name, tab_ids, group_id, outcome, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, string(op.Kind), op.Group, joinIDs(op.TabIDs), gid, string(op.Outcome), opErr); err != nil {
			return 0, fmt.Errorf("insert op %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// ListRuns returns the most recent runs, newest first.
func ListRuns(db *sql.DB, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`SELECT id, started_at, finished_at, status, error,
		created, added, ungrouped, updated, skipped
		FROM organize_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Status, &r.Error,
			&r.Created, &r.Added, &r.Ungrouped, &r.Updated, &r.Skipped); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRunOps returns the operations of a run in issue order.
func GetRunOps(db *sql.DB, runID int64) ([]OpRecord, error) {
	rows, err := db.Query(`SELECT seq, kind, group_name, tab_ids, group_id, outcome, error
		FROM organize_ops WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query ops: %w", err)
	}
	defer rows.Close()

	var ops []OpRecord
	for rows.Next() {
		var (
			op  OpRecord
			ids string
			gid sql.NullInt64
		)
		if err := rows.Scan(&op.Seq, &op.Kind, &op.GroupName, &ids, &gid, &op.Outcome, &op.Error); err != nil {
			return nil, fmt.Errorf("scan op: %w", err)
		}
		op.TabIDs = splitIDs(ids)
		op.GroupID = types.NoGroup
		if gid.Valid {
			op.GroupID = types.GroupID(gid.Int64)
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

func joinIDs(ids []types.TabID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(int(id))
	}
	return strings.Join(parts, ",")
}

func splitIDs(s string) []types.TabID {
	if s == "" {
		return nil
	}
	var ids []types.TabID
	for _, p := range strings.Split(s, ",") {
		if n, err := strconv.Atoi(p); err == nil {
			ids = append(ids, types.TabID(n))
		}
	}
	return ids
}
