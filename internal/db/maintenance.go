package db

import (
	"context"
	"fmt"
	"time"
)

// ExpireJobs marks active jobs past their expiry as expired and returns
// how many changed.
func (db *DB) ExpireJobs(ctx context.Context, now time.Time) (int64, error) {
	tag, err := db.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, updated_at = NOW()
		 WHERE status = $2 AND expires_at IS NOT NULL AND expires_at < $3`,
		JobStatusExpired, JobStatusActive, now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteOrphanedJobs removes jobs that have no company.
func (db *DB) DeleteOrphanedJobs(ctx context.Context) (int64, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM jobs WHERE company_id IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphaned jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}
