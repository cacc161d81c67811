package fetcher

import (
	"context"
	"sync"
	"time"

	"socialscope/pkg/logger"
	"socialscope/pkg/social"
)

// BatchJob is one profile to look up.
type BatchJob struct {
	Platform social.Platform
	Username string
}

// BatchResult pairs a job with its outcome. Either Record or Err is set.
type BatchResult struct {
	Job      BatchJob
	Record   social.UserRecord
	Err      error
	Duration time.Duration
}

// BatchRunner fans a list of lookups across a bounded worker pool so a
// long username list cannot stampede the upstream services.
type BatchRunner struct {
	orchestrator *Orchestrator
	numWorkers   int
	logger       logger.Logger
}

// NewBatchRunner creates a runner over orchestrator with numWorkers
// concurrent lookups.
func NewBatchRunner(orchestrator *Orchestrator, numWorkers int, log logger.Logger) *BatchRunner {
	if numWorkers <= 0 {
		numWorkers = 3
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &BatchRunner{
		orchestrator: orchestrator,
		numWorkers:   numWorkers,
		logger:       log,
	}
}

// Run executes every job and returns results in job order. Individual
// failures are carried in their BatchResult; only context cancellation
// stops the batch early.
func (r *BatchRunner) Run(ctx context.Context, jobs []BatchJob) []BatchResult {
	results := make([]BatchResult, len(jobs))
	jobQueue := make(chan int, len(jobs))

	r.logger.InfoWithFields("starting batch lookup", map[string]interface{}{
		"jobs":    len(jobs),
		"workers": r.numWorkers,
	})

	var wg sync.WaitGroup
	for w := 0; w < r.numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobQueue {
				job := jobs[idx]
				start := time.Now()

				// A cancelled context fails each remaining lookup fast,
				// so the queue always drains and every slot is filled.
				record, err := r.orchestrator.Lookup(ctx, job.Platform, job.Username)
				results[idx] = BatchResult{
					Job:      job,
					Record:   record,
					Err:      err,
					Duration: time.Since(start),
				}
			}
		}()
	}

	for idx := range jobs {
		jobQueue <- idx
	}
	close(jobQueue)
	wg.Wait()

	return results
}
