// Package printer runs the print flow: fetch every row, stage them on a
// print surface, wait until the surface reports the stage rendered, then
// print. Staged rows are released when the flow ends, whatever the outcome.
package printer

import (
	"context"
	"errors"
	"sync"

	"github.com/dalemusser/carehub/internal/domain/models"
	"github.com/google/uuid"
)

// State is the print flow state for one key.
type State string

const (
	Idle     State = "idle"
	Loading  State = "loading"
	Staged   State = "staged"
	Printing State = "printing"
)

var (
	ErrBusy            = errors.New("printer: a print is already in progress")
	ErrNothingToPrint  = errors.New("printer: nothing to print")
	ErrStageIncomplete = errors.New("printer: stage closed without rendering")
)

// Job is one staged print.
type Job struct {
	ID    string
	Title string
	Rows  []models.Record
}

// FetchFunc returns the full resultset.
type FetchFunc func(ctx context.Context) ([]models.Record, error)

// Surface renders staged jobs. Stage starts rendering and returns a channel
// that yields nil once the job is rendered, or the render error. Print is
// called only after a nil from Stage.
type Surface interface {
	Stage(job Job) <-chan error
	Print(ctx context.Context, job Job) error
}

type flow struct {
	state State
	job   *Job
}

// Engine tracks one print flow per key (session and resource).
type Engine struct {
	mu    sync.Mutex
	flows map[string]*flow
}

// NewEngine returns an idle engine.
func NewEngine() *Engine {
	return &Engine{flows: make(map[string]*flow)}
}

// State returns the flow state for key.
func (e *Engine) State(key string) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if f, ok := e.flows[key]; ok {
		return f.state
	}
	return Idle
}

// StagedRows returns how many rows are held for key.
func (e *Engine) StagedRows(key string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if f, ok := e.flows[key]; ok && f.job != nil {
		return len(f.job.Rows)
	}
	return 0
}

func (e *Engine) set(key string, s State, job *Job) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f := e.flows[key]
	f.state = s
	if job != nil {
		f.job = job
	}
}

// Run executes the flow for key:
//
//	idle -> loading -> staged -> printing -> idle
//	idle -> loading -> idle   (empty resultset or fetch error)
//
// The return to idle, and the release of staged rows, always happens.
func (e *Engine) Run(ctx context.Context, key, title string, fetch FetchFunc, surface Surface) (err error) {
	e.mu.Lock()
	if f, ok := e.flows[key]; ok && f.state != Idle {
		e.mu.Unlock()
		return ErrBusy
	}
	e.flows[key] = &flow{state: Loading}
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		delete(e.flows, key)
		e.mu.Unlock()
	}()

	rows, err := fetch(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNothingToPrint
	}

	job := &Job{ID: uuid.NewString(), Title: title, Rows: rows}
	e.set(key, Staged, job)

	select {
	case err, ok := <-surface.Stage(*job):
		if !ok {
			return ErrStageIncomplete
		}
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	e.set(key, Printing, nil)
	return surface.Print(ctx, *job)
}
