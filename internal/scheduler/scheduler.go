package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pairdaily/pairing-service/internal/service/cycle"
)

// Scheduler fires the pairing cycle once a day at a fixed UTC hour.
// Only one loop runs at a time; Stop shuts it down.
type Scheduler struct {
	svc      *cycle.Service
	logger   *slog.Logger
	hourUTC  int
	stopChan chan struct{}
	running  bool
}

func New(svc *cycle.Service, logger *slog.Logger, hourUTC int) *Scheduler {
	return &Scheduler{
		svc:      svc,
		logger:   logger,
		hourUTC:  hourUTC,
		stopChan: make(chan struct{}),
	}
}

// Start launches the daily loop in a goroutine.
func (s *Scheduler) Start() {
	if s.running {
		s.logger.Warn("cycle scheduler already running")
		return
	}
	s.running = true
	s.logger.Info("starting cycle scheduler", "hour_utc", s.hourUTC)

	go func() {
		for {
			wait := s.untilNextRun(time.Now().UTC())
			select {
			case <-s.stopChan:
				s.logger.Info("cycle scheduler stopped")
				return
			case <-time.After(wait):
				s.runOnce()
			}
		}
	}()
}

// Stop signals the loop to exit after the current run, if any.
func (s *Scheduler) Stop() {
	if !s.running {
		return
	}
	s.running = false
	close(s.stopChan)
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result, err := s.svc.Run(ctx, time.Now())
	if err != nil {
		// Another trigger beat us to today's cycle; nothing to do.
		if errors.Is(err, cycle.ErrCycleAlreadyRunning) {
			s.logger.Info("cycle already handled elsewhere")
			return
		}
		s.logger.Error("scheduled cycle failed", "err", err)
		return
	}
	s.logger.Info("scheduled cycle finished",
		"date", result.Date,
		"new_pairings", result.NewPairings,
		"migrated", result.MigratedPairings,
		"waitlisted", result.Waitlisted,
	)
}

// untilNextRun computes the delay to the next firing time: today at
// hourUTC if still ahead, otherwise tomorrow.
func (s *Scheduler) untilNextRun(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hourUTC, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
