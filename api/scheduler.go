/*
scheduler.go - Automated materialization scheduler

PURPOSE:
  Periodically runs the materializer so that the rolling horizon of
  auto-generated bookings stays filled without manual triggers.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - At most one pass in flight at a time; a tick that arrives while a
    pass is running is dropped, not queued
  - Each pass is idempotent, so the exact cadence does not matter

CONFIGURATION:
  - CheckInterval: How often to run (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewMaterializationScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerMaterialization endpoint (manual pass)
  - booking/materializer.go: The pass itself
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"
)

// MaterializationScheduler runs materialization passes on a timer.
type MaterializationScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex

	// passMu guards the in-flight flag separately from the lifecycle
	// mutex so Stop can wait for the goroutine without deadlocking.
	passMu  sync.Mutex
	running bool
}

// NewMaterializationScheduler creates a new scheduler.
func NewMaterializationScheduler(handler *Handler) *MaterializationScheduler {
	return &MaterializationScheduler{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (ms *MaterializationScheduler) Start() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if !ms.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	ms.ticker = time.NewTicker(ms.CheckInterval)
	ms.wg.Add(1)

	go ms.run()

	log.Printf("[Scheduler] Started with check interval: %v", ms.CheckInterval)
}

// Stop stops the scheduler.
func (ms *MaterializationScheduler) Stop() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.ticker != nil {
		ms.ticker.Stop()
		close(ms.stop)
		ms.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (ms *MaterializationScheduler) run() {
	defer ms.wg.Done()

	// Run immediately on start
	ms.runPass()

	for {
		select {
		case <-ms.ticker.C:
			ms.runPass()
		case <-ms.stop:
			return
		}
	}
}

func (ms *MaterializationScheduler) runPass() {
	ms.passMu.Lock()
	if ms.running {
		ms.passMu.Unlock()
		log.Println("[Scheduler] Pass already in flight, skipping tick")
		return
	}
	ms.running = true
	ms.passMu.Unlock()

	defer func() {
		ms.passMu.Lock()
		ms.running = false
		ms.passMu.Unlock()
	}()

	ctx := context.Background()
	now := time.Now()

	summary, err := ms.Handler.Materializer.Run(ctx, now, ms.Handler.Horizon)
	ms.Handler.Metrics.RecordRun(summary.Created, summary.Removed, summary.Skipped, err != nil)
	if err != nil {
		log.Printf("[Scheduler] Materialization pass finished with errors: %v", err)
	}
	if summary.Created > 0 || summary.Removed > 0 || summary.Skipped > 0 {
		log.Printf("[Scheduler] Pass completed: %d created, %d removed, %d skipped",
			summary.Created, summary.Removed, summary.Skipped)
	}
}

// RunNow triggers an immediate pass (for testing/admin).
func (ms *MaterializationScheduler) RunNow() {
	ms.runPass()
}

// GetNextRunTime returns when the next scheduled pass will occur.
func (ms *MaterializationScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(ms.CheckInterval)
}
