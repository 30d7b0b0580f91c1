package async

import (
	"context"
	"errors"
	"fmt"
)

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// Outcome is the result of one task. Err is nil on success.
type Outcome struct {
	Name string
	Err  error
}

// Batch describes one admission-control unit handed to a BatchObserver.
type Batch struct {
	Index int // zero-based
	Total int // number of batches
	Size  int // tasks in this batch
}

// BatchObserver is called once after each batch has fully completed.
type BatchObserver func(b Batch, outcomes []Outcome)

// RunParallel executes all tasks concurrently and waits for every one of them.
// A failing task never cancels its siblings. All failures are returned joined,
// each wrapped with its task name.
//
// Example:
//
//	tasks := []Task{
//	    {Name: "nancy", Func: deploySite("nancy")},
//	    {Name: "rennes", Func: deploySite("rennes")},
//	}
//	if err := RunParallel(ctx, tasks); err != nil {
//	    return err
//	}
func RunParallel(ctx context.Context, tasks []Task) error {
	var errs []error
	for _, o := range runAll(ctx, tasks) {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Name, o.Err))
		}
	}
	return errors.Join(errs...)
}

// RunBatches executes tasks in consecutive batches of at most size tasks.
// Tasks inside a batch run concurrently; batch N+1 is not started before
// every task of batch N has returned. Failures do not stop later batches.
//
// When ctx is done before a batch starts, that batch and all following ones
// are not dispatched and their outcomes carry ctx.Err().
//
// The returned outcomes are index-aligned with tasks.
func RunBatches(ctx context.Context, tasks []Task, size int, observe BatchObserver) []Outcome {
	if size <= 0 {
		size = len(tasks)
	}
	outcomes := make([]Outcome, len(tasks))
	if len(tasks) == 0 {
		return outcomes
	}

	total := (len(tasks) + size - 1) / size
	for i := 0; i < total; i++ {
		start := i * size
		end := min(start+size, len(tasks))

		if err := ctx.Err(); err != nil {
			for j := start; j < len(tasks); j++ {
				outcomes[j] = Outcome{Name: tasks[j].Name, Err: err}
			}
			return outcomes
		}

		batch := runAll(ctx, tasks[start:end])
		copy(outcomes[start:end], batch)

		if observe != nil {
			observe(Batch{Index: i, Total: total, Size: end - start}, batch)
		}
	}

	return outcomes
}

// runAll starts every task and blocks until all have returned.
func runAll(ctx context.Context, tasks []Task) []Outcome {
	outcomes := make([]Outcome, len(tasks))
	if len(tasks) == 0 {
		return outcomes
	}

	type result struct {
		index int
		err   error
	}
	resultChan := make(chan result, len(tasks))

	for i, task := range tasks {
		go func() {
			resultChan <- result{index: i, err: task.Func(ctx)}
		}()
	}

	for range len(tasks) {
		res := <-resultChan
		outcomes[res.index] = Outcome{Name: tasks[res.index].Name, Err: res.err}
	}

	return outcomes
}

// Failed returns the outcomes that carry an error.
func Failed(outcomes []Outcome) []Outcome {
	var failed []Outcome
	for _, o := range outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}
