package connections

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Refresher re-fetches snapshots for recently seen users on a schedule, so
// the dashboard's connection status stays within one TTL of reality without
// every read paying a broker round trip.
type Refresher struct {
	cache    *Cache
	schedule string
	logger   *slog.Logger
	cron     *cron.Cron

	mu    sync.Mutex
	users map[string]struct{}
}

func NewRefresher(cache *Cache, schedule string, logger *slog.Logger) *Refresher {
	if schedule == "" {
		schedule = "@every 30m"
	}

	return &Refresher{
		cache:    cache,
		schedule: schedule,
		logger:   logger.With("module", "connections_refresher"),
		cron:     cron.New(),
		users:    make(map[string]struct{}),
	}
}

// Track registers a user for periodic refresh. Tracking is best-effort; an
// untracked user simply pays the fetch on their next cache miss.
func (r *Refresher) Track(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users[userID] = struct{}{}
}

func (r *Refresher) Start(ctx context.Context) error {
	_, err := r.cron.AddFunc(r.schedule, func() {
		r.refreshAll(ctx)
	})
	if err != nil {
		return err
	}

	r.cron.Start()
	r.logger.InfoContext(ctx, "Started connection refresher", "schedule", r.schedule)

	return nil
}

func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Refresher) refreshAll(ctx context.Context) {
	r.mu.Lock()
	users := make([]string, 0, len(r.users))

	for userID := range r.users {
		users = append(users, userID)
	}
	r.mu.Unlock()

	for _, userID := range users {
		if _, err := r.cache.Refresh(ctx, userID); err != nil {
			r.logger.WarnContext(ctx, "Periodic snapshot refresh failed", "user_id", userID, "error", err)
		}
	}
}
