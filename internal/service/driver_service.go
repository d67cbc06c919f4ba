package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/umuve/dispatch-engine/internal/events"
	"github.com/umuve/dispatch-engine/internal/model"
)

type DriverService struct {
	jobs        JobStore
	contractors ContractorStore
	bus         *events.Bus
	log         zerolog.Logger
}

func NewDriverService(
	jobs JobStore,
	contractors ContractorStore,
	bus *events.Bus,
	log zerolog.Logger,
) *DriverService {
	return &DriverService{
		jobs:        jobs,
		contractors: contractors,
		bus:         bus,
		log:         log,
	}
}

// UpdateLocation records the driver's position and streams it to the
// tracking views of any job they're actively working.
func (s *DriverService) UpdateLocation(ctx context.Context, principal model.Principal, lat, lng float64) error {
	if !principal.IsDriver() && !principal.IsOperator() {
		return ErrPermissionDenied
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return fmt.Errorf("%w: coordinates out of range", ErrInvalidInput)
	}

	if err := s.contractors.UpdateLocation(ctx, principal.ContractorID, lat, lng); err != nil {
		return err
	}

	active, err := s.jobs.ListByDriver(ctx, principal.ContractorID, model.ActiveDriverStatuses)
	if err != nil {
		s.log.Warn().Err(err).Msg("active job lookup for location fanout failed")
		return nil
	}
	for _, job := range active {
		s.bus.PublishJobEvent(ctx, "driver_location", job.ID, map[string]any{
			"lat": lat,
			"lng": lng,
		})
	}
	return nil
}

func (s *DriverService) UpdateAvailability(ctx context.Context, principal model.Principal, online bool) error {
	if !principal.IsDriver() && !principal.IsOperator() {
		return ErrPermissionDenied
	}
	return s.contractors.UpdateAvailability(ctx, principal.ContractorID, online)
}

// ListJobs returns the driver's jobs, restricted to active ones when
// activeOnly is set.
func (s *DriverService) ListJobs(ctx context.Context, principal model.Principal, activeOnly bool) ([]model.Job, error) {
	if !principal.IsDriver() && !principal.IsOperator() {
		return nil, ErrPermissionDenied
	}
	var statuses []model.JobStatus
	if activeOnly {
		statuses = append([]model.JobStatus{model.JobStatusAssigned}, model.ActiveDriverStatuses...)
	}
	return s.jobs.ListByDriver(ctx, principal.ContractorID, statuses)
}
