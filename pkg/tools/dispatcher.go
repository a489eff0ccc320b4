package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// ToolFunc defines a function executed asynchronously.
type ToolFunc func(ctx context.Context) error

// Dispatcher runs background tasks fire-and-forget. Errors and panics are
// logged under the task name; Wait blocks until all started tasks returned.
type Dispatcher struct {
	log zerolog.Logger
	wg  sync.WaitGroup
}

func NewDispatcher(logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{log: logger}
}

// Dispatch runs fn in a separate goroutine.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, fn ToolFunc) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := run(ctx, fn); err != nil {
			d.log.Error().Err(err).Str("task", name).Msg("background task failed")
		}
	}()
}

// Wait blocks until every dispatched task has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func run(ctx context.Context, fn ToolFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
