package services

import (
	"context"
	"log"
	"sync"
	"time"

	"ofuq-backend/internal/models"
)

const insightPollInterval = 1 * time.Hour

// WeeklyGenerator is satisfied by the insights service.
type WeeklyGenerator interface {
	GenerateWeekly(ctx context.Context) models.GenerationResult
}

// InsightScheduler triggers weekly insight generation on startup and then on
// every tick. The daily lock turns all but the first run of a day into no-ops.
type InsightScheduler struct {
	generator WeeklyGenerator
	interval  time.Duration
	stopChan  chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
}

func NewInsightScheduler(generator WeeklyGenerator, interval time.Duration) *InsightScheduler {
	if interval <= 0 {
		interval = insightPollInterval
	}
	return &InsightScheduler{
		generator: generator,
		interval:  interval,
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (s *InsightScheduler) Start() {
	if s.generator == nil {
		close(s.done)
		return
	}

	go s.loop()
	log.Printf("Insight scheduler started (every %s)", s.interval)
}

// Stop ends the loop and waits for an in-flight run to finish.
func (s *InsightScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	<-s.done
}

func (s *InsightScheduler) loop() {
	defer close(s.done)

	// Run on startup as well as by interval.
	s.run()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.run()
		}
	}
}

func (s *InsightScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res := s.generator.GenerateWeekly(ctx)
	if res.Success {
		log.Printf("insight scheduler: generated %d insights", res.Count)
	}
}
