package syncer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"palantir/internal/domain"
)

type mockTaskAPI struct {
	updateFunc     func(ctx context.Context, task domain.Task) error
	createFunc     func(ctx context.Context, task domain.Task) error
	deactivateFunc func(ctx context.Context, task domain.Task) error
}

func (m *mockTaskAPI) UpdateVariant(ctx context.Context, task domain.Task) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, task)
	}
	return nil
}

func (m *mockTaskAPI) CreateVariant(ctx context.Context, task domain.Task) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, task)
	}
	return nil
}

func (m *mockTaskAPI) DeactivateVariant(ctx context.Context, task domain.Task) error {
	if m.deactivateFunc != nil {
		return m.deactivateFunc(ctx, task)
	}
	return nil
}

func TestExecutorCapsConcurrency(t *testing.T) {
	var inFlight, peak, calls atomic.Int64
	api := &mockTaskAPI{
		updateFunc: func(context.Context, domain.Task) error {
			current := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				observed := peak.Load()
				if current <= observed || peak.CompareAndSwap(observed, current) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			calls.Add(1)
			return nil
		},
	}

	tasks := make([]domain.Task, 50)
	for i := range tasks {
		tasks[i] = domain.Task{Kind: domain.TaskUpdateVariant, ProductID: "p1"}
	}

	executor := NewExecutor(api, 10, zap.NewNop())
	results := executor.Run(context.Background(), tasks)

	assert.Len(t, results, 50)
	assert.EqualValues(t, 50, calls.Load())
	assert.LessOrEqual(t, peak.Load(), int64(10))
}

func TestExecutorIsolatesFailures(t *testing.T) {
	api := &mockTaskAPI{
		updateFunc: func(context.Context, domain.Task) error {
			return errors.New("update rejected")
		},
	}

	tasks := []domain.Task{
		{Kind: domain.TaskUpdateVariant, ProductID: "p-broken"},
		{Kind: domain.TaskCreateVariant, ProductID: "p-ok"},
		{Kind: domain.TaskDeactivateVariant, ProductID: "p-ok"},
	}

	executor := NewExecutor(api, 2, zap.NewNop())
	results := executor.Run(context.Background(), tasks)

	require.Len(t, results, 3)
	// Results keep task order regardless of completion order.
	assert.Equal(t, "p-broken", results[0].Task.ProductID)
	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.NoError(t, results[2].Err)
}

func TestExecutorDispatchesByKind(t *testing.T) {
	var updates, creates, deactivations atomic.Int64
	api := &mockTaskAPI{
		updateFunc: func(context.Context, domain.Task) error {
			updates.Add(1)
			return nil
		},
		createFunc: func(context.Context, domain.Task) error {
			creates.Add(1)
			return nil
		},
		deactivateFunc: func(context.Context, domain.Task) error {
			deactivations.Add(1)
			return nil
		},
	}

	executor := NewExecutor(api, 4, zap.NewNop())
	executor.Run(context.Background(), []domain.Task{
		{Kind: domain.TaskUpdateVariant},
		{Kind: domain.TaskCreateVariant},
		{Kind: domain.TaskCreateVariant},
		{Kind: domain.TaskDeactivateVariant},
	})

	assert.EqualValues(t, 1, updates.Load())
	assert.EqualValues(t, 2, creates.Load())
	assert.EqualValues(t, 1, deactivations.Load())
}

func TestExecutorUnknownKindFails(t *testing.T) {
	executor := NewExecutor(&mockTaskAPI{}, 1, zap.NewNop())

	results := executor.Run(context.Background(), []domain.Task{{Kind: domain.TaskKind(99)}})

	require.Len(t, results, 1)
	assert.ErrorContains(t, results[0].Err, "unsupported task kind")
}

func TestExecutorEmptyBatch(t *testing.T) {
	executor := NewExecutor(&mockTaskAPI{}, 1, zap.NewNop())

	assert.Nil(t, executor.Run(context.Background(), nil))
}

func TestExecutorDefaultsLimit(t *testing.T) {
	executor := NewExecutor(&mockTaskAPI{}, 0, zap.NewNop())

	assert.Equal(t, 10, executor.limit)
}
