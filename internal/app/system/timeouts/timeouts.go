// Package timeouts holds the deadlines applied to backend calls made on
// behalf of a request.
//
//   - Ping: health checks against the backend and Mongo
//   - Short: single-record calls (delete, status, login)
//   - Medium: one list page, create/update/assign, bulk status
//   - Long: "all rows" fetches for export and print
//   - Batch: file imports
package timeouts

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Defaults used until Configure is called.
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 15 * time.Second
	DefaultLong   = 60 * time.Second
	DefaultBatch  = 2 * time.Minute
)

// Config holds timeout overrides. Zero fields keep the current value.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
	Batch  time.Duration
}

func defaults() Config {
	return Config{
		Ping:   DefaultPing,
		Short:  DefaultShort,
		Medium: DefaultMedium,
		Long:   DefaultLong,
		Batch:  DefaultBatch,
	}
}

var (
	mu      sync.RWMutex
	current = defaults()
)

// Ping is the health check deadline.
func Ping() time.Duration { return get().Ping }

// Short is the deadline for single-record calls.
func Short() time.Duration { return get().Short }

// Medium is the deadline for list pages and form submissions.
func Medium() time.Duration { return get().Medium }

// Long is the deadline for unpaginated fetches.
func Long() time.Duration { return get().Long }

// Batch is the deadline for imports.
func Batch() time.Duration { return get().Batch }

func get() Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Configure applies the non-zero fields of cfg. Call it during startup.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	merge(&current.Ping, cfg.Ping)
	merge(&current.Short, cfg.Short)
	merge(&current.Medium, cfg.Medium)
	merge(&current.Long, cfg.Long)
	merge(&current.Batch, cfg.Batch)
}

func merge(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}

// Reset restores the defaults. Used by tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	current = defaults()
}

// Current returns the active configuration, for startup logging.
func Current() Config { return get() }

// WithTimeout derives a context bounded by timeout. The returned cancel
// logs a warning naming operation when the deadline was what ended it.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "export all categories")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
