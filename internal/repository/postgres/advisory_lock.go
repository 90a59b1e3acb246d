package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/domain"
)

// AdvisoryLocker holds a session-level advisory lock per catalog, so only one
// replica at a time can deploy to it. The lock lives on a dedicated
// connection and is dropped with it if the process dies.
type AdvisoryLocker struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAdvisoryLocker creates a Locker backed by pg_try_advisory_lock
func NewAdvisoryLocker(db *sql.DB, logger *zap.Logger) *AdvisoryLocker {
	return &AdvisoryLocker{db: db, logger: logger}
}

func (l *AdvisoryLocker) Acquire(ctx context.Context, catalogID string) (func(), error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("lock connection: %w", err)
	}

	var locked bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, catalogID).Scan(&locked); err != nil {
		conn.Close()
		return nil, fmt.Errorf("try advisory lock: %w", err)
	}
	if !locked {
		conn.Close()
		return nil, fmt.Errorf("catalog %s: %w", catalogID, domain.ErrDeploymentInProgress)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_unlock(hashtext($1))`, catalogID); err != nil {
				l.logger.Warn("Failed to release advisory lock", zap.String("catalog_id", catalogID), zap.Error(err))
			}
			conn.Close()
		})
	}, nil
}
