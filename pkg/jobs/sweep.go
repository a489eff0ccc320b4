package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/fhir-builder/fhir-builder/pkg/builder_client/models"
	"github.com/fhir-builder/fhir-builder/pkg/tools"
)

// Sweeper is the part of the builder service the sweep job needs.
type Sweeper interface {
	SweepExpired(ctx context.Context) (models.SweepReport, error)
}

// ScheduleSweep sets up a cron job that removes expired build artifacts on
// schedule (cron expression or descriptor such as "@hourly"). The scheduler stops
// when ctx is done.
func ScheduleSweep(ctx context.Context, svc Sweeper, schedule string, d *tools.Dispatcher) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		d.Dispatch(ctx, "sweep_expired", func(ctx context.Context) error {
			_, err := svc.SweepExpired(ctx)
			return err
		})
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	c.Start()

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return c, nil
}
