package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen/quotesync/internal/platform/logging"
)

// ExecutionStep names one step of an Operation. Steps run in the order
// below and the first failure stops the run, so nothing is archived that
// was not verified first.
type ExecutionStep string

const (
	StepValidate ExecutionStep = "validate" // preconditions, nothing touched yet
	StepPerform  ExecutionStep = "perform"  // the remote or expensive work
	StepVerify   ExecutionStep = "verify"   // check what perform returned
	StepArchive  ExecutionStep = "archive"  // persist the verified value
	StepRespond  ExecutionStep = "respond"  // shape the caller's result
)

// ExecutionError wraps the failure of one step. Cause stays matchable.
type ExecutionError struct {
	Step  ExecutionStep
	Cause error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s step: %v", e.Step, e.Cause)
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

// GetExecutionStep reports which step err came from.
func GetExecutionStep(err error) (ExecutionStep, bool) {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Step, true
	}

	return "", false
}

// Executor runs operations with a shared fallback logger.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor falls back to slog.Default when logger is nil. A logger on
// the context of Execute takes precedence.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{logger: logger}
}

// Operation is a five-step unit of work. Nil steps are skipped; without a
// Verify the performed value is passed on when it is already a V.
type Operation[I, P, V, O any] struct {
	Name string

	Validate func(ctx context.Context, input I) error
	Perform  func(ctx context.Context, input I) (P, error)
	Verify   func(ctx context.Context, input I, performed P) (V, error)
	Archive  func(ctx context.Context, input I, verified V) error
	Respond  func(ctx context.Context, input I, verified V) (O, error)

	// OnStep is called as each present step starts.
	OnStep func(step ExecutionStep)
}

// Execute runs op on input.
func Execute[I, P, V, O any](ctx context.Context, exec *Executor, op Operation[I, P, V, O], input I) (O, error) {
	var zero O

	logger := exec.logger
	if l, ok := logging.Lookup(ctx); ok {
		logger = l
	}

	logger = logger.With(slog.String("operation", op.Name))
	start := time.Now()

	enter := func(step ExecutionStep) {
		if op.OnStep != nil {
			op.OnStep(step)
		}

		logger.Log(ctx, logging.LevelTrace, "entering step", slog.String("step", string(step)))
	}

	if op.Validate != nil {
		enter(StepValidate)

		if err := op.Validate(ctx, input); err != nil {
			return zero, failStep(ctx, logger, StepValidate, err)
		}
	}

	performed, err := stage(ctx, logger, enter, StepPerform, op.Perform != nil, func() (P, error) {
		return op.Perform(ctx, input)
	})
	if err != nil {
		return zero, err
	}

	verified, err := stage(ctx, logger, enter, StepVerify, op.Verify != nil, func() (V, error) {
		return op.Verify(ctx, input, performed)
	})
	if err != nil {
		return zero, err
	}

	if op.Verify == nil {
		verified, _ = any(performed).(V)
	}

	if op.Archive != nil {
		enter(StepArchive)

		if err := op.Archive(ctx, input, verified); err != nil {
			return zero, failStep(ctx, logger, StepArchive, err)
		}
	}

	result, err := stage(ctx, logger, enter, StepRespond, op.Respond != nil, func() (O, error) {
		return op.Respond(ctx, input, verified)
	})
	if err != nil {
		return zero, err
	}

	logger.DebugContext(ctx, "operation completed", slog.Duration("duration", time.Since(start)))

	return result, nil
}

// stage runs fn as step when present is true.
func stage[T any](
	ctx context.Context,
	logger *slog.Logger,
	enter func(ExecutionStep),
	step ExecutionStep,
	present bool,
	fn func() (T, error),
) (T, error) {
	var zero T

	if !present {
		return zero, nil
	}

	enter(step)

	v, err := fn()
	if err != nil {
		return zero, failStep(ctx, logger, step, err)
	}

	return v, nil
}

// failStep logs at warn for caller-side steps and error for the rest.
func failStep(ctx context.Context, logger *slog.Logger, step ExecutionStep, err error) error {
	level := slog.LevelError
	if step == StepValidate || step == StepRespond {
		level = slog.LevelWarn
	}

	logger.Log(ctx, level, "step failed", slog.String("step", string(step)), slog.Any("error", err))

	return &ExecutionError{Step: step, Cause: err}
}
