package printer

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/carehub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSurface struct {
	engine     *Engine
	key        string
	stageErr   error
	printErr   error
	neverReady bool
	stagedSeen int
	statePrint State
	printed    *Job
}

func (s *fakeSurface) Stage(job Job) <-chan error {
	s.stagedSeen = s.engine.StagedRows(s.key)
	ch := make(chan error, 1)
	if s.neverReady {
		return ch
	}
	ch <- s.stageErr
	return ch
}

func (s *fakeSurface) Print(_ context.Context, job Job) error {
	s.statePrint = s.engine.State(s.key)
	s.printed = &job
	return s.printErr
}

func rows(n int) []models.Record {
	out := make([]models.Record, n)
	for i := range out {
		out[i] = models.Record{"id": float64(i + 1)}
	}
	return out
}

func fetchN(n int) FetchFunc {
	return func(context.Context) ([]models.Record, error) { return rows(n), nil }
}

func TestRun_StagesThenPrints(t *testing.T) {
	e := NewEngine()
	s := &fakeSurface{engine: e, key: "k"}

	require.NoError(t, e.Run(context.Background(), "k", "Centers", fetchN(3), s))
	assert.Equal(t, 3, s.stagedSeen)
	assert.Equal(t, Printing, s.statePrint)
	require.NotNil(t, s.printed)
	assert.NotEmpty(t, s.printed.ID)
	assert.Equal(t, "Centers", s.printed.Title)

	assert.Equal(t, Idle, e.State("k"))
	assert.Zero(t, e.StagedRows("k"))
}

func TestRun_CleansUpOnEveryPath(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name    string
		fetch   FetchFunc
		surface *fakeSurface
		ctx     func() context.Context
		want    error
	}{
		{"empty", fetchN(0), &fakeSurface{}, context.Background, ErrNothingToPrint},
		{"fetch error", func(context.Context) ([]models.Record, error) { return nil, boom }, &fakeSurface{}, context.Background, boom},
		{"render error", fetchN(2), &fakeSurface{stageErr: boom}, context.Background, boom},
		{"print error", fetchN(2), &fakeSurface{printErr: boom}, context.Background, boom},
		{"cancelled while staged", fetchN(2), &fakeSurface{neverReady: true}, func() context.Context {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			return ctx
		}, context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine()
			tt.surface.engine, tt.surface.key = e, "k"
			err := e.Run(tt.ctx(), "k", "T", tt.fetch, tt.surface)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, Idle, e.State("k"))
			assert.Zero(t, e.StagedRows("k"))
		})
	}
}

func TestRun_Busy(t *testing.T) {
	e := NewEngine()
	var inner error
	fetch := func(ctx context.Context) ([]models.Record, error) {
		assert.Equal(t, Loading, e.State("k"))
		inner = e.Run(ctx, "k", "T", fetchN(1), &fakeSurface{engine: e, key: "k"})
		return rows(1), nil
	}
	require.NoError(t, e.Run(context.Background(), "k", "T", fetch, &fakeSurface{engine: e, key: "k"}))
	assert.ErrorIs(t, inner, ErrBusy)

	// Other keys are independent.
	require.NoError(t, e.Run(context.Background(), "other", "T", fetchN(1), &fakeSurface{engine: e, key: "other"}))
}
