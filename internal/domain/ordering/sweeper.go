package ordering

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nutritrack/dietary/internal/platform/events"
)

// Sweeper deletes orders past their expiry on a fixed interval.
type Sweeper struct {
	orders    Repository
	publisher events.Publisher
	interval  time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

func NewSweeper(orders Repository, publisher events.Publisher, interval time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		orders:    orders,
		publisher: events.OrNoop(publisher),
		interval:  interval,
		now:       time.Now,
		logger:    logger.With().Str("component", "order-sweeper").Logger(),
	}
}

// Sweep deletes every expired order once and returns how many were removed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	expired, err := s.orders.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("delete expired orders: %w", err)
	}
	for _, o := range expired {
		ev := events.New(events.OrderExpired, events.TopicOrders, o.ID.String(), o).ForPatient(o.PatientID.String())
		_ = s.publisher.Publish(ctx, ev)
	}
	if len(expired) > 0 {
		s.logger.Info().Int("count", len(expired)).Msg("expired orders removed")
	}
	return len(expired), nil
}

// Run sweeps immediately and then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("order sweeper started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("order sweep failed")
		}
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("order sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}
