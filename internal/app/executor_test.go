package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
)

func TestExecute_RunsStepsInOrder(t *testing.T) {
	var steps []ExecutionStep

	op := Operation[int, int, int, string]{
		Name:     "double",
		OnStep:   func(s ExecutionStep) { steps = append(steps, s) },
		Validate: func(context.Context, int) error { return nil },
		Perform:  func(_ context.Context, in int) (int, error) { return in * 2, nil },
		Verify:   func(_ context.Context, _ int, p int) (int, error) { return p + 1, nil },
		Archive:  func(context.Context, int, int) error { return nil },
		Respond: func(_ context.Context, _ int, v int) (string, error) {
			return "ok", nil
		},
	}

	got, err := Execute(context.Background(), NewExecutor(discardLogger()), op, 4)

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, []ExecutionStep{StepValidate, StepPerform, StepVerify, StepArchive, StepRespond}, steps)
}

func TestExecute_StopsAtFailingStep(t *testing.T) {
	boom := domain.NewTransportError("remote", "fetch", errors.New("boom"))

	tests := []struct {
		name     string
		op       Operation[string, string, string, string]
		wantStep ExecutionStep
	}{
		{
			name: "validate",
			op: Operation[string, string, string, string]{
				Validate: func(context.Context, string) error { return boom },
				Perform: func(context.Context, string) (string, error) {
					t.Fatal("perform must not run")
					return "", nil
				},
			},
			wantStep: StepValidate,
		},
		{
			name: "perform",
			op: Operation[string, string, string, string]{
				Perform: func(context.Context, string) (string, error) { return "", boom },
				Archive: func(context.Context, string, string) error {
					t.Fatal("archive must not run")
					return nil
				},
			},
			wantStep: StepPerform,
		},
		{
			name: "verify",
			op: Operation[string, string, string, string]{
				Verify: func(context.Context, string, string) (string, error) { return "", boom },
				Archive: func(context.Context, string, string) error {
					t.Fatal("archive must not run")
					return nil
				},
			},
			wantStep: StepVerify,
		},
		{
			name: "archive",
			op: Operation[string, string, string, string]{
				Archive: func(context.Context, string, string) error { return boom },
			},
			wantStep: StepArchive,
		},
		{
			name: "respond",
			op: Operation[string, string, string, string]{
				Respond: func(context.Context, string, string) (string, error) { return "", boom },
			},
			wantStep: StepRespond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Execute(context.Background(), NewExecutor(nil), tt.op, "in")

			require.Error(t, err)

			step, ok := GetExecutionStep(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantStep, step)
			assert.True(t, domain.IsTransport(err), "cause must stay matchable")
		})
	}
}

func TestExecute_WithoutVerifyPassesPerformedThrough(t *testing.T) {
	var archived string

	op := Operation[string, string, string, string]{
		Perform: func(_ context.Context, in string) (string, error) { return in + "!", nil },
		Archive: func(_ context.Context, _ string, v string) error {
			archived = v
			return nil
		},
	}

	_, err := Execute(context.Background(), NewExecutor(nil), op, "hi")

	require.NoError(t, err)
	assert.Equal(t, "hi!", archived)
}

func TestExecutionError_Message(t *testing.T) {
	err := &ExecutionError{Step: StepArchive, Cause: errors.New("disk full")}

	assert.Equal(t, "archive step: disk full", err.Error())

	_, ok := GetExecutionStep(errors.New("plain"))
	assert.False(t, ok)
}

func TestExecute_LogsFailedStep(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	op := Operation[string, string, string, string]{
		Name:     "sync.cycle",
		Validate: func(context.Context, string) error { return errors.New("cancelled") },
	}

	_, err := Execute(logging.WithContext(context.Background(), logger), NewExecutor(nil), op, "manual")

	require.Error(t, err)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), `"operation":"sync.cycle"`)
	assert.Contains(t, buf.String(), `"step":"validate"`)
}
