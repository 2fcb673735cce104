package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"
)

const DefaultCleanupInterval = time.Hour

var mediaTables = []string{"generated_images", "generated_audio", "generated_videos"}

// StartRetentionCleaner periodically removes records older than retention along with their blobs.
func (s *Service) StartRetentionCleaner(ctx context.Context, retention, interval time.Duration) {
	if retention <= 0 {
		return
	}
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	go s.cleanupLoop(ctx, retention, interval)
}

func (s *Service) cleanupLoop(ctx context.Context, retention, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.cleanupExpired(ctx, s.now().Add(-retention))
			if err != nil {
				slog.ErrorContext(ctx, "history cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				slog.InfoContext(ctx, "history cleanup", "removed", removed)
			}
		}
	}
}

// cleanupExpired sweeps every table even when one fails; the failures are returned together.
func (s *Service) cleanupExpired(ctx context.Context, cutoff time.Time) (int, error) {
	var errs error
	removed := 0
	for _, table := range mediaTables {
		n, err := s.cleanupTable(ctx, table, cutoff)
		removed += n
		if err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE created_at <= ?`, cutoff)
	if err != nil {
		return removed, multierror.Append(errs, fmt.Errorf("cleanup conversations: %w", err))
	}
	n, _ := res.RowsAffected()
	return removed + int(n), errs
}

func (s *Service) cleanupTable(ctx context.Context, table string, cutoff time.Time) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, blob_key FROM `+table+` WHERE created_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("scan expired %s: %w", table, err)
	}
	type blobRow struct {
		id  int64
		key string
	}
	var expired []blobRow
	for rows.Next() {
		var br blobRow
		if err := rows.Scan(&br.id, &br.key); err != nil {
			rows.Close()
			return 0, err
		}
		expired = append(expired, br)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	removed := 0
	for _, r := range expired {
		if err := s.blobs.Delete(r.key); err != nil {
			slog.WarnContext(ctx, "remove expired blob failed", "table", table, "key", r.key, "error", err)
			continue
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, r.id); err != nil {
			slog.WarnContext(ctx, "delete expired record failed", "table", table, "id", r.id, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
