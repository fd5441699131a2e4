// internal/app/system/workers/controllersweep.go
package workers

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper drops idle state and reports how many entries went away.
type Sweeper interface {
	Sweep(ttl time.Duration) int
}

// ControllerSweep is a background worker that releases list controllers of
// sessions that stopped making requests.
type ControllerSweep struct {
	registry Sweeper
	log      *zap.Logger
	interval time.Duration
	idleTTL  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewControllerSweep creates a sweep worker.
//
// Parameters:
//   - registry: the controller registry
//   - logger: zap logger for logging
//   - interval: how often to sweep (e.g., 1 minute)
//   - idleTTL: how long a controller may go unused before it is dropped
func NewControllerSweep(registry Sweeper, logger *zap.Logger, interval, idleTTL time.Duration) *ControllerSweep {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ControllerSweep{
		registry: registry,
		log:      logger,
		interval: interval,
		idleTTL:  idleTTL,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *ControllerSweep) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("controller sweep worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("idle_ttl", w.idleTTL))
}

// Stop signals the worker to stop and waits for it to finish. Safe to call twice.
func (w *ControllerSweep) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("controller sweep worker stopped")
}

func (w *ControllerSweep) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *ControllerSweep) sweep() {
	if n := w.registry.Sweep(w.idleTTL); n > 0 {
		w.log.Info("released idle session state", zap.Int("count", n))
	}
}
