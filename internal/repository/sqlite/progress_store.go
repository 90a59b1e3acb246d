package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/domain"
)

// ProgressStore implements [progress.Store] backed by SQLite.
type ProgressStore struct {
	DB *sql.DB
	// Now defaults to time.Now; it stamps run activity for expiry.
	Now func() time.Time
}

func (s *ProgressStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// touch creates the run row if needed and bumps its activity time
func (s *ProgressStore) touch(ctx context.Context, tx *sql.Tx, runID string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO deployment_runs (run_id, updated_at) VALUES (?, ?)
		 ON CONFLICT (run_id) DO UPDATE SET updated_at = excluded.updated_at`,
		runID, s.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("touch run %s: %w", runID, err)
	}
	return nil
}

func (s *ProgressStore) Append(ctx context.Context, event domain.DeploymentProgress) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := s.touch(ctx, tx, event.RunID); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO deployment_progress (run_id, seq, kind, operation, handle, product_id, message, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.RunID, event.Seq, string(event.Kind), string(event.Operation),
		event.Handle, event.ProductID, event.Message, event.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert progress %s/%d: %w", event.RunID, event.Seq, err)
	}
	return tx.Commit()
}

func (s *ProgressStore) List(ctx context.Context, runID string, afterSeq int) ([]domain.DeploymentProgress, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT run_id, seq, kind, operation, handle, product_id, message, at
		 FROM deployment_progress WHERE run_id = ? AND seq > ? ORDER BY seq`,
		runID, afterSeq,
	)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	events := []domain.DeploymentProgress{}
	for rows.Next() {
		var (
			e              domain.DeploymentProgress
			kind, op, atTS string
		)
		if err := rows.Scan(&e.RunID, &e.Seq, &kind, &op, &e.Handle, &e.ProductID, &e.Message, &atTS); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		e.Kind = domain.ProgressKind(kind)
		e.Operation = domain.Operation(op)
		if e.At, err = time.Parse(time.RFC3339Nano, atTS); err != nil {
			return nil, fmt.Errorf("parse progress time %q: %w", atTS, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *ProgressStore) SaveResult(ctx context.Context, result domain.DeploymentResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := s.touch(ctx, tx, result.RunID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE deployment_runs SET result = ? WHERE run_id = ?`,
		string(data), result.RunID,
	); err != nil {
		return fmt.Errorf("save result %s: %w", result.RunID, err)
	}
	return tx.Commit()
}

func (s *ProgressStore) Result(ctx context.Context, runID string) (domain.DeploymentResult, error) {
	var data sql.NullString
	err := s.DB.QueryRowContext(ctx,
		`SELECT result FROM deployment_runs WHERE run_id = ?`, runID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !data.Valid) {
		return domain.DeploymentResult{}, fmt.Errorf("result for run %s: %w", runID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.DeploymentResult{}, fmt.Errorf("get result: %w", err)
	}

	var result domain.DeploymentResult
	if err := json.Unmarshal([]byte(data.String), &result); err != nil {
		return domain.DeploymentResult{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return result, nil
}

func (s *ProgressStore) Expire(ctx context.Context, before time.Time) (int, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	cutoff := before.UnixNano()
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM deployment_progress
		 WHERE run_id IN (SELECT run_id FROM deployment_runs WHERE updated_at < ?)`, cutoff,
	); err != nil {
		return 0, fmt.Errorf("expire progress: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM deployment_runs WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire runs: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit expiry: %w", err)
	}
	return int(n), nil
}
