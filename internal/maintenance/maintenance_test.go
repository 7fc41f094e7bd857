package maintenance

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart_RunsJobsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()

	var runs, failures atomic.Int32
	jobs := []Job{
		{Name: "sync", Schedule: "@every 1s", Run: func(context.Context) error {
			runs.Add(1)
			return nil
		}},
		{Name: "flaky", Schedule: "@every 1s", Run: func(context.Context) error {
			failures.Add(1)
			return errors.New("source down")
		}},
	}

	require.NoError(t, Start(ctx, jobs, slog.Default()))
	assert.GreaterOrEqual(t, runs.Load(), int32(1))
	assert.GreaterOrEqual(t, failures.Load(), int32(1), "a failing job keeps its schedule")
}

func TestStart_InvalidSchedule(t *testing.T) {
	err := Start(context.Background(), []Job{{Name: "bad", Schedule: "every tuesday", Run: func(context.Context) error { return nil }}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestStart_SkipsOverlappingRuns(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3500*time.Millisecond)
	defer cancel()

	var running, maxRunning atomic.Int32
	job := Job{Name: "slow", Schedule: "@every 1s", Run: func(ctx context.Context) error {
		n := running.Add(1)
		if n > maxRunning.Load() {
			maxRunning.Store(n)
		}
		defer running.Add(-1)
		select {
		case <-time.After(1500 * time.Millisecond):
		case <-ctx.Done():
		}
		return nil
	}}

	require.NoError(t, Start(ctx, []Job{job}, nil))
	assert.Equal(t, int32(1), maxRunning.Load())
}

type recordingExecer struct {
	statements []string
	failOn     string
}

func (r *recordingExecer) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	r.statements = append(r.statements, sql)
	if sql == r.failOn {
		return pgconn.CommandTag{}, errors.New("permission denied")
	}
	return pgconn.NewCommandTag("ANALYZE"), nil
}

func TestAnalyzeTables(t *testing.T) {
	db := &recordingExecer{}
	require.NoError(t, AnalyzeTables(context.Background(), db, slog.Default()))
	assert.Equal(t, []string{"ANALYZE teams", "ANALYZE players", "ANALYZE games", "ANALYZE player_stats"}, db.statements)

	db = &recordingExecer{failOn: "ANALYZE games"}
	err := AnalyzeTables(context.Background(), db, slog.Default())
	require.Error(t, err)
	assert.Len(t, db.statements, 3)
}
