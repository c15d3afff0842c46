// Package maintenance runs serve-mode housekeeping on a cron schedule.
//
// Its only job today is pruning debounce markers older than the largest
// window: such markers can never suppress anything again, they only grow
// the journal.
package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"hooknotify/internal/debounce"
	"hooknotify/pkg/logx"
)

const defaultPruneSchedule = "0 * * * *"

type Config struct {
	PruneSchedule string
}

type Service struct {
	cron    *cron.Cron
	markers debounce.MarkerStore
	log     logx.Logger
}

func New(cfg Config, markers debounce.MarkerStore, log logx.Logger) (*Service, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		cron:    cron.New(),
		markers: markers,
		log:     log.With(logx.String("comp", "maintenance")),
	}

	schedule := cfg.PruneSchedule
	if schedule == "" {
		schedule = defaultPruneSchedule
	}
	if _, err := s.cron.AddFunc(schedule, s.prune); err != nil {
		return nil, err
	}
	return s, nil
}

// Run starts the scheduler and blocks until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	stopCtx := s.cron.Stop()
	// Let an in-flight prune finish; it is bounded and cheap.
	<-stopCtx.Done()
	return ctx.Err()
}

func (s *Service) prune() {
	cutoff := time.Now().Add(-debounce.MaxWindow())
	n, err := s.markers.PruneBefore(cutoff)
	if err != nil {
		s.log.Warn("marker prune failed", logx.Err(err))
		return
	}
	if n > 0 {
		s.log.Info("pruned expired markers", logx.Int("count", n))
	}
}
