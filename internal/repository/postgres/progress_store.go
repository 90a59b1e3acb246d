package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/domain"
)

type progressStore struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewProgressStore creates a progress store shared by every server replica
func NewProgressStore(db *sql.DB, logger *zap.Logger) *progressStore {
	return &progressStore{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

func (r *progressStore) touch(ctx context.Context, tx *sql.Tx, runID string) error {
	query := `
		INSERT INTO deployment_runs (run_id, updated_at)
		VALUES ($1, $2)
		ON CONFLICT (run_id) DO UPDATE SET updated_at = EXCLUDED.updated_at
	`
	_, err := tx.ExecContext(ctx, query, runID, r.now())
	return err
}

func (r *progressStore) Append(ctx context.Context, event domain.DeploymentProgress) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := r.touch(ctx, tx, event.RunID); err != nil {
		r.logger.Error("Failed to touch deployment run", zap.String("run_id", event.RunID), zap.Error(err))
		return err
	}

	query := `
		INSERT INTO deployment_progress (run_id, seq, kind, operation, handle, product_id, message, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.ExecContext(ctx, query,
		event.RunID,
		event.Seq,
		string(event.Kind),
		string(event.Operation),
		event.Handle,
		event.ProductID,
		event.Message,
		event.At,
	)
	if err != nil {
		r.logger.Error("Failed to append deployment progress", zap.String("run_id", event.RunID), zap.Int("seq", event.Seq), zap.Error(err))
		return err
	}

	return tx.Commit()
}

func (r *progressStore) List(ctx context.Context, runID string, afterSeq int) ([]domain.DeploymentProgress, error) {
	query := `
		SELECT run_id, seq, kind, operation, handle, product_id, message, at
		FROM deployment_progress
		WHERE run_id = $1 AND seq > $2
		ORDER BY seq
	`

	rows, err := r.db.QueryContext(ctx, query, runID, afterSeq)
	if err != nil {
		r.logger.Error("Failed to list deployment progress", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	events := []domain.DeploymentProgress{}
	for rows.Next() {
		var e domain.DeploymentProgress
		var kind, op string
		if err := rows.Scan(&e.RunID, &e.Seq, &kind, &op, &e.Handle, &e.ProductID, &e.Message, &e.At); err != nil {
			return nil, err
		}
		e.Kind = domain.ProgressKind(kind)
		e.Operation = domain.Operation(op)
		events = append(events, e)
	}

	return events, rows.Err()
}

func (r *progressStore) SaveResult(ctx context.Context, result domain.DeploymentResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := r.touch(ctx, tx, result.RunID); err != nil {
		r.logger.Error("Failed to touch deployment run", zap.String("run_id", result.RunID), zap.Error(err))
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE deployment_runs SET result = $1 WHERE run_id = $2`, data, result.RunID); err != nil {
		r.logger.Error("Failed to save deployment result", zap.String("run_id", result.RunID), zap.Error(err))
		return err
	}

	return tx.Commit()
}

func (r *progressStore) Result(ctx context.Context, runID string) (domain.DeploymentResult, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT result FROM deployment_runs WHERE run_id = $1`, runID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && data == nil) {
		return domain.DeploymentResult{}, fmt.Errorf("result for run %s: %w", runID, domain.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get deployment result", zap.String("run_id", runID), zap.Error(err))
		return domain.DeploymentResult{}, err
	}

	var result domain.DeploymentResult
	if err := json.Unmarshal(data, &result); err != nil {
		return domain.DeploymentResult{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return result, nil
}

// Expire relies on ON DELETE CASCADE to drop the runs' events
func (r *progressStore) Expire(ctx context.Context, before time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM deployment_runs WHERE updated_at < $1`, before)
	if err != nil {
		r.logger.Error("Failed to expire deployment runs", zap.Error(err))
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
