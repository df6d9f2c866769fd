package usecase

import (
	"context"
	"time"

	"PriceScanner/internal/ports"
)

// Scheduler wires the ticker driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	feeds    []Feed
	onRun    func(time.Time, []FeedReport, error)
}

// NewScheduler returns a helper to start/stop recurring analyses. onRun
// receives the outcome of every run and may be nil.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, feeds []Feed, onRun func(time.Time, []FeedReport, error)) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, feeds: feeds, onRun: onRun}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		reports, err := s.pipeline.ProcessAll(ctx, s.feeds)
		if s.onRun != nil {
			s.onRun(trigger, reports, err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
