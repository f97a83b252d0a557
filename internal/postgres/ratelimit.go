package postgres

import (
	"context"
	"fmt"
	"time"
)

// incrementWindowSQL advances the client's fixed-window counter in one
// atomic statement: expired windows restart at 1, live windows increment.
// RETURNING exposes the post-increment count and the window start the
// caller computes Retry-After from.
const incrementWindowSQL = `INSERT INTO rate_limits (ip_address, request_count, window_start)
VALUES ($1, 1, now())
ON CONFLICT (ip_address) DO UPDATE
SET request_count = CASE
		WHEN rate_limits.window_start <= now() - $2::interval THEN 1
		ELSE rate_limits.request_count + 1
	END,
	window_start = CASE
		WHEN rate_limits.window_start <= now() - $2::interval THEN now()
		ELSE rate_limits.window_start
	END
RETURNING request_count, window_start`

// IncrementWindow implements ratelimit.WindowStore.
func (s *Store) IncrementWindow(ctx context.Context, clientIP string, window time.Duration) (int, time.Time, error) {
	var (
		count       int
		windowStart time.Time
	)
	err := s.pool.QueryRow(ctx, incrementWindowSQL, clientIP, window).Scan(&count, &windowStart)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("incrementing rate limit window: %w", err)
	}
	return count, windowStart, nil
}
