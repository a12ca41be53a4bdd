package syncer

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"palantir/internal/domain"
)

// TaskAPI is the slice of the marketplace client the executor drives.
type TaskAPI interface {
	UpdateVariant(ctx context.Context, task domain.Task) error
	CreateVariant(ctx context.Context, task domain.Task) error
	DeactivateVariant(ctx context.Context, task domain.Task) error
}

// Result is the terminal outcome of one task.
type Result struct {
	Task domain.Task
	Err  error
}

// Executor applies planned tasks over the shared marketplace connection. A
// counting gate caps simultaneous in-flight requests; a failing task never
// blocks or cancels its siblings.
type Executor struct {
	api    TaskAPI
	limit  int
	logger *zap.Logger
}

func NewExecutor(api TaskAPI, limit int, logger *zap.Logger) *Executor {
	if limit <= 0 {
		limit = 10
	}
	return &Executor{api: api, limit: limit, logger: logger}
}

// Run applies the batch and returns once every task has reached a terminal
// outcome. Results keep the order of tasks.
func (e *Executor) Run(ctx context.Context, tasks []domain.Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	e.logger.Info("executing task batch",
		zap.Int("tasks", len(tasks)),
		zap.Int("concurrency", e.limit))

	results := make([]Result, len(tasks))
	gate := make(chan struct{}, e.limit)
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task domain.Task) {
			defer wg.Done()
			gate <- struct{}{}
			defer func() { <-gate }()

			err := e.apply(ctx, task)
			if err != nil {
				e.logger.Error("task failed",
					zap.Stringer("kind", task.Kind),
					zap.String("product_id", task.ProductID),
					zap.String("barcode", task.Barcode),
					zap.Error(err))
			}
			results[i] = Result{Task: task, Err: err}
		}(i, task)
	}

	wg.Wait()
	return results
}

func (e *Executor) apply(ctx context.Context, task domain.Task) error {
	switch task.Kind {
	case domain.TaskUpdateVariant:
		return e.api.UpdateVariant(ctx, task)
	case domain.TaskCreateVariant:
		return e.api.CreateVariant(ctx, task)
	case domain.TaskDeactivateVariant:
		return e.api.DeactivateVariant(ctx, task)
	default:
		return fmt.Errorf("unsupported task kind %q", task.Kind)
	}
}
