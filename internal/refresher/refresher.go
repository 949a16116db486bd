// Package refresher runs the periodic re-reconcile policy. The engine
// itself has no timers; keeping the schedule here keeps the policy swappable
// without touching the core.
package refresher

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"github.com/peetj/btc-tracker/internal/engine"
)

// Refresher reconciles on a cron schedule. Overlapping ticks are skipped
// rather than run concurrently, and mu (shared with every other reconcile
// caller) serializes against the HTTP handlers.
type Refresher struct {
	cron     *cron.Cron
	engine   *engine.Engine
	ctx      context.Context
	mu       *sync.Mutex
	inFlight atomic.Bool
}

// New creates a Refresher driving eng. mu is the process-wide reconcile
// lock.
func New(ctx context.Context, eng *engine.Engine, mu *sync.Mutex) *Refresher {
	return &Refresher{
		cron:   cron.New(cron.WithSeconds()),
		engine: eng,
		ctx:    ctx,
		mu:     mu,
	}
}

// Register schedules the refresh job. spec uses the six-field cron format
// with seconds.
func (r *Refresher) Register(spec string) error {
	if _, err := r.cron.AddFunc(spec, r.tick); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (r *Refresher) Start() {
	r.cron.Start()
	log.Println("[INFO] refresher started")
}

// Stop stops the cron scheduler gracefully.
func (r *Refresher) Stop() {
	r.cron.Stop()
	log.Println("[INFO] refresher stopped")
}

// RunNow executes a refresh immediately (for RUN_ON_START).
func (r *Refresher) RunNow() {
	r.tick()
}

func (r *Refresher) tick() {
	if !r.inFlight.CompareAndSwap(false, true) {
		log.Println("[WARN] refresh still in flight, skipping tick")
		return
	}
	defer r.inFlight.Store(false)

	r.mu.Lock()
	series, status := r.engine.Reconcile(r.ctx, false)
	r.mu.Unlock()
	if status.Error != "" {
		log.Printf("[WARN] refresh: source=%s missing=%d error=%s",
			status.Source, status.MissingDays, status.Error)
		return
	}
	log.Printf("[INFO] refresh: source=%s missing=%d records=%d",
		status.Source, status.MissingDays, len(series))
}
