package watch

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/ofxhost/pkg/observability"
)

// Scheduler runs rescans on a cron schedule
type Scheduler struct {
	cron      *cron.Cron
	rescanner *Rescanner
	log       *logrus.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewScheduler parses schedule (standard five-field cron or a descriptor such
// as "@every 10m")
func NewScheduler(r *Rescanner, schedule string, log *logrus.Logger) (*Scheduler, error) {
	if log == nil {
		log = logrus.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:      cron.New(),
		rescanner: r,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid rescan schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) run() {
	defer observability.RecoverPanic(s.log, "scheduled rescan")
	s.log.Debug("Starting scheduled rescan")
	if err := s.rescanner.Rescan(s.ctx); err == nil {
		s.log.Info("Scheduled rescan completed")
	}
}

// Start begins running the schedule in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels a running rescan and waits for it to return
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
