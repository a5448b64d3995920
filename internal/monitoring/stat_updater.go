package monitoring

import (
	"context"
	"time"

	"github.com/isdelr/blog-api/internal/services"
	"github.com/rs/zerolog/log"
)

// UserCounter reports account totals.
type UserCounter interface {
	CountUsers(ctx context.Context) (services.UserCounts, error)
}

// UserGauge receives the totals.
type UserGauge interface {
	SetUserCounts(active, deleted int64)
}

// StatUpdater periodically refreshes the user count gauges.
type StatUpdater struct {
	counter UserCounter
	gauge   UserGauge
	timeout time.Duration
}

// NewStatUpdater creates a new StatUpdater. Each refresh is bounded by timeout.
func NewStatUpdater(counter UserCounter, gauge UserGauge, timeout time.Duration) *StatUpdater {
	return &StatUpdater{counter: counter, gauge: gauge, timeout: timeout}
}

// Update counts users once and publishes the result.
func (su *StatUpdater) Update(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, su.timeout)
	defer cancel()

	counts, err := su.counter.CountUsers(ctx)
	if err != nil {
		return err
	}
	su.gauge.SetUserCounts(counts.Active, counts.Deleted)
	return nil
}

// Run is the scheduler entry point. Failures are logged and the previous
// values are kept.
func (su *StatUpdater) Run() {
	if err := su.Update(context.Background()); err != nil {
		log.Error().Err(err).Msg("StatUpdater: Failed to count users")
	}
}
