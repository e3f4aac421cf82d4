package common

import (
	"context"
	"fmt"
)

// Warning that implements `error` but safe to ignore
type Warning struct {
	Message string
}

// Error the contract for error
func (w Warning) Error() string {
	return w.Message
}

// Warningf create a warning
func Warningf(format string, args ...interface{}) Warning {
	return Warning{
		Message: fmt.Sprintf(format, args...),
	}
}

// Executor define contract for the steps of a restore
type Executor func(ctx context.Context) error

// Conditional define contract for the conditional predicate
type Conditional func(ctx context.Context) bool

// NewPipelineExecutor creates a new executor from a series of other executors
func NewPipelineExecutor(executors ...Executor) Executor {
	var rtn Executor = func(_ context.Context) error {
		return nil
	}
	for _, executor := range executors {
		rtn = rtn.Then(executor)
	}
	return rtn
}

// NewParallelExecutor runs the executors with at most `parallel` of them in
// flight. All executors are waited for; the returned error is the one of the
// lowest-indexed executor that failed.
func NewParallelExecutor(parallel int, executors ...Executor) Executor {
	return func(ctx context.Context) error {
		type job struct {
			index    int
			executor Executor
		}
		work := make(chan job, len(executors))
		done := make(chan struct{}, len(executors))
		errs := make([]error, len(executors))

		if parallel < 1 {
			Logger(ctx).Debugf("Parallel tasks (%d) below minimum, setting to 1", parallel)
			parallel = 1
		}

		for i := 0; i < parallel; i++ {
			go func() {
				for j := range work {
					errs[j.index] = j.executor(ctx)
					done <- struct{}{}
				}
			}()
		}

		for i, executor := range executors {
			work <- job{index: i, executor: executor}
		}
		close(work)

		for range executors {
			<-done
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		for _, err := range errs {
			if err != nil {
				return err
			}
		}
		return nil
	}
}

// NewFieldExecutor runs exec with a logger carrying an extra field
func NewFieldExecutor(name string, value interface{}, exec Executor) Executor {
	return func(ctx context.Context) error {
		return exec(WithLogger(ctx, Logger(ctx).WithField(name, value)))
	}
}

// Then runs another executor if this executor succeeds
func (e Executor) Then(then Executor) Executor {
	return func(ctx context.Context) error {
		err := e(ctx)
		if err != nil {
			switch err.(type) {
			case Warning:
				Logger(ctx).Warning(err.Error())
			default:
				return err
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return then(ctx)
	}
}

// If only runs this executor if conditional is true
func (e Executor) If(conditional Conditional) Executor {
	return func(ctx context.Context) error {
		if conditional(ctx) {
			return e(ctx)
		}
		return nil
	}
}

// IfBool only runs this executor if conditional is true
func (e Executor) IfBool(conditional bool) Executor {
	return e.If(func(_ context.Context) bool {
		return conditional
	})
}
