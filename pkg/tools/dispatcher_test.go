package tools_test

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/fhir-builder/fhir-builder/pkg/tools"
)

func TestDispatch_RunsAndWaits(t *testing.T) {
	d := tools.NewDispatcher(zerolog.Nop())
	var n atomic.Int32
	for i := 0; i < 5; i++ {
		d.Dispatch(context.Background(), "count", func(ctx context.Context) error {
			n.Add(1)
			return nil
		})
	}
	d.Wait()
	assert.Equal(t, int32(5), n.Load())
}

func TestDispatch_LogsErrorsAndPanics(t *testing.T) {
	var buf bytes.Buffer
	d := tools.NewDispatcher(zerolog.New(&buf))

	d.Dispatch(context.Background(), "failing", func(ctx context.Context) error {
		return errors.New("boom")
	})
	d.Dispatch(context.Background(), "panicking", func(ctx context.Context) error {
		panic("kapot")
	})
	d.Wait()

	out := buf.String()
	assert.Contains(t, out, `"task":"failing"`)
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, `"task":"panicking"`)
	assert.Contains(t, out, "panic: kapot")
}
