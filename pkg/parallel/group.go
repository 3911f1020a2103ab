package parallel

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPoolClosed is returned when tasks are run on a closed pool
var ErrPoolClosed = errors.New("worker pool is closed")

// Run executes tasks on the pool and waits for all of them. The pool stays
// open, so independent batches can share it. Errors are joined in task
// order; a panicking task is reported as an error. Tasks not yet started
// when ctx is cancelled are skipped with ctx.Err().
func (wp *WorkerPool) Run(ctx context.Context, tasks ...func() error) error {
	errs := make([]error, len(tasks))

	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		ok := wp.Submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("task %d panicked: %v", i, r)
				}
			}()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			errs[i] = task()
		})
		if !ok {
			wg.Done()
			errs[i] = ErrPoolClosed
		}
	}
	wg.Wait()

	return errors.Join(errs...)
}
