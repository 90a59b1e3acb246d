// Package progress stores the per-run progress events and final results of
// deployment runs. The data is transient: runs are swept after a retention
// window.
package progress

import (
	"context"
	"time"

	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/domain"
)

// Store keeps progress events and results keyed by run id
type Store interface {
	// Append records one event for event.RunID
	Append(ctx context.Context, event domain.DeploymentProgress) error
	// List returns the run's events with Seq > afterSeq, ordered by Seq
	List(ctx context.Context, runID string, afterSeq int) ([]domain.DeploymentProgress, error)
	// SaveResult records the final result of a run
	SaveResult(ctx context.Context, result domain.DeploymentResult) error
	// Result returns the final result, or domain.ErrNotFound if the run has not finished
	Result(ctx context.Context, runID string) (domain.DeploymentResult, error)
	// Expire removes every run with no activity since before and returns how many were removed
	Expire(ctx context.Context, before time.Time) (int, error)
}
