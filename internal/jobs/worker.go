package jobs

import (
	"context"
	"log"
	"time"
)

// Sweeper is one periodic maintenance pass.
type Sweeper interface {
	Sweep(ctx context.Context) error
}

// Worker runs a Sweeper on a fixed interval until stopped.
type Worker struct {
	name     string
	sweeper  Sweeper
	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewWorker creates a new Worker instance
func NewWorker(name string, sweeper Sweeper, interval time.Duration) *Worker {
	return &Worker{
		name:     name,
		sweeper:  sweeper,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins the worker's polling loop
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("worker_started: %s sweeping every %v", w.name, w.interval)

	for {
		select {
		case <-ctx.Done():
			log.Printf("worker_stopped: %s context cancelled", w.name)
			return
		case <-w.stopChan:
			log.Printf("worker_stopped: %s stop signal received", w.name)
			return
		case <-ticker.C:
			if err := w.sweeper.Sweep(ctx); err != nil {
				log.Printf("worker_sweep_failed: %s: %v", w.name, err)
			}
		}
	}
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Printf("worker_shutdown: %s complete", w.name)
}
