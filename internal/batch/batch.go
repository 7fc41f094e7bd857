// Package batch applies a fallible transform to a list of inputs one at a
// time, pausing between items so remote sites are not hammered.
//
// One bad item never aborts the run: its failure is logged with the input
// and recorded in its result slot, and the remaining items continue.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultDelay is the pause between items when Options.Delay is zero.
const DefaultDelay = 500 * time.Millisecond

// Result is the outcome for the input at the same index.
type Result[Out any] struct {
	Value Out
	Err   error
}

// OK reports whether the item succeeded.
func (r Result[Out]) OK() bool { return r.Err == nil }

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options configures a run.
type Options struct {
	Name   string        // used in log lines, e.g. "players"
	Delay  time.Duration // pause after each item; DefaultDelay when zero, none when negative
	Sleep  SleepFunc     // injected for tests; real timer when nil
	Logger *slog.Logger
}

// FatalError aborts the whole batch when returned by a transform.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return "fatal: " + e.Err.Error() }

func (e *FatalError) Unwrap() error { return e.Err }

// Fatal wraps err so that Run stops at the current item.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// Run applies fn to each input strictly sequentially and returns one result
// per input, in input order. Run returns a non-nil error only when fn
// returned a Fatal error or ctx was cancelled; results for items that were
// never attempted are left out.
func Run[In, Out any](ctx context.Context, inputs []In, fn func(context.Context, In) (Out, error), opts Options) ([]Result[Out], error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	delay := opts.Delay
	if delay == 0 {
		delay = DefaultDelay
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = timerSleep
	}

	results := make([]Result[Out], 0, len(inputs))
	failed := 0
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		out, err := fn(ctx, in)
		if err != nil {
			var fatal *FatalError
			if errors.As(err, &fatal) {
				logger.Error("batch aborted", "batch", opts.Name, "index", i, "input", fmt.Sprint(in), "error", fatal.Err)
				return results, fatal.Err
			}
			failed++
			logger.Warn("batch item failed", "batch", opts.Name, "index", i, "input", fmt.Sprint(in), "error", err)
		}
		results = append(results, Result[Out]{Value: out, Err: err})

		if delay > 0 && i < len(inputs)-1 {
			if err := sleep(ctx, delay); err != nil {
				return results, err
			}
		}
	}

	logger.Info("batch complete", "batch", opts.Name, "items", len(inputs), "failed", failed)
	return results, nil
}

// Values returns the successful values in input order.
func Values[Out any](results []Result[Out]) []Out {
	out := make([]Out, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			out = append(out, r.Value)
		}
	}
	return out
}

// Failures returns the errors of failed items in input order.
func Failures[Out any](results []Result[Out]) []error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}

func timerSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
