package batch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sleepRecorder struct {
	calls []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return nil
}

func TestRun_FailureIsIsolated(t *testing.T) {
	rec := &sleepRecorder{}
	fn := func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, fmt.Errorf("boom on %d", n)
		}
		return n * 10, nil
	}

	results, err := Run(context.Background(), []int{1, 2, 3}, fn, Options{Name: "test", Sleep: rec.sleep})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, 10, results[0].Value)
	assert.True(t, results[0].OK())
	assert.False(t, results[1].OK())
	assert.EqualError(t, results[1].Err, "boom on 2")
	assert.Equal(t, 30, results[2].Value)

	assert.Equal(t, []int{10, 30}, Values(results))
	assert.Len(t, Failures(results), 1)
}

func TestRun_DelaysBetweenItems(t *testing.T) {
	rec := &sleepRecorder{}
	fn := func(_ context.Context, s string) (string, error) { return s, nil }

	_, err := Run(context.Background(), []string{"a", "b", "c", "d"}, fn, Options{Sleep: rec.sleep})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{DefaultDelay, DefaultDelay, DefaultDelay}, rec.calls)

	rec = &sleepRecorder{}
	_, err = Run(context.Background(), []string{"a", "b"}, fn, Options{Delay: time.Second, Sleep: rec.sleep})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second}, rec.calls)

	rec = &sleepRecorder{}
	_, err = Run(context.Background(), []string{"a", "b"}, fn, Options{Delay: -1, Sleep: rec.sleep})
	require.NoError(t, err)
	assert.Empty(t, rec.calls)
}

func TestRun_SequentialOrder(t *testing.T) {
	var seen []int
	fn := func(_ context.Context, n int) (int, error) {
		seen = append(seen, n)
		return n, nil
	}
	inputs := []int{5, 3, 9, 1}
	results, err := Run(context.Background(), inputs, fn, Options{Delay: -1})
	require.NoError(t, err)
	assert.Equal(t, inputs, seen)
	assert.Equal(t, inputs, Values(results))
}

func TestRun_FatalAborts(t *testing.T) {
	setupErr := errors.New("database unreachable")
	calls := 0
	fn := func(_ context.Context, n int) (int, error) {
		calls++
		if n == 2 {
			return 0, Fatal(setupErr)
		}
		return n, nil
	}

	results, err := Run(context.Background(), []int{1, 2, 3}, fn, Options{Delay: -1})
	require.ErrorIs(t, err, setupErr)
	assert.Equal(t, 2, calls)
	assert.Len(t, results, 1)
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fn := func(_ context.Context, n int) (int, error) {
		if n == 2 {
			cancel()
		}
		return n, nil
	}

	results, err := Run(ctx, []int{1, 2, 3}, fn, Options{Delay: -1})
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, results, 2)
}

func TestRun_Empty(t *testing.T) {
	fn := func(_ context.Context, n int) (int, error) { return n, nil }
	results, err := Run(context.Background(), nil, fn, Options{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestTimerSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, timerSleep(ctx, time.Hour), context.Canceled)
}
