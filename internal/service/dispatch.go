package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/umuve/dispatch-engine/internal/events"
	"github.com/umuve/dispatch-engine/internal/matching"
	"github.com/umuve/dispatch-engine/internal/model"
	"github.com/umuve/dispatch-engine/internal/notify"
)

// Dispatcher runs driver assignment. Booking confirmation, driver declines,
// operator delegation, and the admin re-dispatch endpoint all funnel
// through AutoAssign.
type Dispatcher struct {
	jobs        JobStore
	contractors ContractorStore
	selector    DriverSelector
	notifier    *notify.Notifier
	bus         *events.Bus
	log         zerolog.Logger
}

func NewDispatcher(
	jobs JobStore,
	contractors ContractorStore,
	selector DriverSelector,
	notifier *notify.Notifier,
	bus *events.Bus,
	log zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{
		jobs:        jobs,
		contractors: contractors,
		selector:    selector,
		notifier:    notifier,
		bus:         bus,
		log:         log,
	}
}

// AutoAssign finds a driver for the job and moves it to assigned. Returns
// false with no error when no eligible driver exists; the job then stays in
// its current status until a driver comes online or an admin intervenes.
// The caller persists the job before calling and holds the job lock.
func (d *Dispatcher) AutoAssign(ctx context.Context, job *model.Job) (bool, error) {
	driver, err := d.selector.Select(ctx, job)
	if err != nil {
		if errors.Is(err, matching.ErrNoCandidates) {
			d.log.Info().
				Str("job_id", job.ID.String()).
				Str("status", string(job.Status)).
				Msg("no eligible drivers, job left unassigned")
			return false, nil
		}
		return false, err
	}

	job.DriverID = &driver.ID
	job.Status = model.JobStatusAssigned
	if err := d.jobs.Update(ctx, job); err != nil {
		return false, err
	}

	d.notifier.Notify(ctx, driver.UserID, model.NotificationKindNewJob,
		"New job assigned",
		"You have a new pickup at "+job.Address,
		map[string]any{"job_id": job.ID.String()},
	)
	d.notifier.Notify(ctx, job.CustomerID, model.NotificationKindJobAssigned,
		"Driver assigned",
		"A driver has been assigned to your pickup.",
		map[string]any{"job_id": job.ID.String(), "driver_id": driver.ID.String()},
	)
	d.bus.PublishDriverEvent(ctx, "job_assigned", driver.ID, job.ID, map[string]any{
		"address": job.Address,
	})
	d.bus.PublishJobEvent(ctx, "driver_assigned", job.ID, map[string]any{
		"driver_id": driver.ID.String(),
	})

	d.log.Info().
		Str("job_id", job.ID.String()).
		Str("driver_id", driver.ID.String()).
		Msg("job auto-assigned")
	return true, nil
}
