package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/umuve/dispatch-engine/internal/config"
	"github.com/umuve/dispatch-engine/internal/events"
	"github.com/umuve/dispatch-engine/internal/model"
	"github.com/umuve/dispatch-engine/internal/notify"
	"github.com/umuve/dispatch-engine/internal/paygate"
)

// validStatusTransitions is the allow-list of the job lifecycle. Cancellation
// is reachable from every non-terminal state except started: once hauling
// begins the job can only run to completion.
var validStatusTransitions = map[model.JobStatus][]model.JobStatus{
	model.JobStatusPending:    {model.JobStatusConfirmed, model.JobStatusCancelled},
	model.JobStatusConfirmed:  {model.JobStatusAssigned, model.JobStatusDelegating, model.JobStatusCancelled},
	model.JobStatusAssigned:   {model.JobStatusAccepted, model.JobStatusConfirmed, model.JobStatusCancelled},
	model.JobStatusDelegating: {model.JobStatusAssigned, model.JobStatusCancelled},
	model.JobStatusAccepted:   {model.JobStatusEnRoute, model.JobStatusCancelled},
	model.JobStatusEnRoute:    {model.JobStatusArrived, model.JobStatusCancelled},
	model.JobStatusArrived:    {model.JobStatusStarted, model.JobStatusCancelled},
	model.JobStatusStarted:    {model.JobStatusCompleted},
}

func canTransition(from, to model.JobStatus) bool {
	for _, allowed := range validStatusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func allowedNext(from model.JobStatus) string {
	next := validStatusTransitions[from]
	if len(next) == 0 {
		return "none"
	}
	parts := make([]string, len(next))
	for i, s := range next {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

type JobService struct {
	jobs        JobStore
	contractors ContractorStore
	payments    PaymentStore
	users       UserStore
	dispatcher  *Dispatcher
	gateway     paygate.Gateway
	notifier    *notify.Notifier
	bus         *events.Bus
	locks       *JobLocks
	cfg         *config.Config
	log         zerolog.Logger
	now         func() time.Time
}

func NewJobService(
	jobs JobStore,
	contractors ContractorStore,
	payments PaymentStore,
	users UserStore,
	dispatcher *Dispatcher,
	gateway paygate.Gateway,
	notifier *notify.Notifier,
	bus *events.Bus,
	locks *JobLocks,
	cfg *config.Config,
	log zerolog.Logger,
) *JobService {
	return &JobService{
		jobs:        jobs,
		contractors: contractors,
		payments:    payments,
		users:       users,
		dispatcher:  dispatcher,
		gateway:     gateway,
		notifier:    notifier,
		bus:         bus,
		locks:       locks,
		cfg:         cfg,
		log:         log,
		now:         time.Now,
	}
}

func (s *JobService) GetJob(ctx context.Context, principal model.Principal, jobID uuid.UUID) (*model.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !canViewJob(principal, job) {
		return nil, ErrPermissionDenied
	}
	return job, nil
}

func canViewJob(p model.Principal, job *model.Job) bool {
	switch {
	case p.IsAdmin():
		return true
	case job.CustomerID == p.UserID:
		return true
	case job.DriverID != nil && *job.DriverID == p.ContractorID:
		return true
	case job.OperatorID != nil && *job.OperatorID == p.ContractorID:
		return true
	}
	return false
}

func (s *JobService) ListCustomerJobs(
	ctx context.Context,
	principal model.Principal,
	status *model.JobStatus,
) ([]model.Job, error) {
	return s.jobs.ListByCustomer(ctx, principal.UserID, status)
}

// LookupResult is the public tracking view behind a confirmation code.
type LookupResult struct {
	Job    *model.Job               `json:"job"`
	Driver *model.ContractorSummary `json:"driver,omitempty"`
}

// Lookup resolves a confirmation code without authentication. The code is
// the only credential, so the response carries the driver's public card and
// nothing about the customer account.
func (s *JobService) Lookup(ctx context.Context, code string) (*LookupResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, fmt.Errorf("%w: confirmation code is required", ErrInvalidInput)
	}

	job, err := s.jobs.GetByConfirmationCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	result := &LookupResult{Job: job}
	if job.DriverID != nil {
		summary, err := s.contractors.GetSummary(ctx, *job.DriverID)
		if err != nil {
			s.log.Warn().Err(err).Str("job_id", job.ID.String()).Msg("driver summary lookup failed")
		} else {
			result.Driver = summary
		}
	}
	return result, nil
}

type UpdateStatusInput struct {
	Principal    model.Principal
	JobID        uuid.UUID
	NewStatus    model.JobStatus
	BeforePhotos []string
	AfterPhotos  []string
}

// driverStatuses are the targets a driver may move a job to.
var driverStatuses = map[model.JobStatus]bool{
	model.JobStatusAccepted:  true,
	model.JobStatusEnRoute:   true,
	model.JobStatusArrived:   true,
	model.JobStatusStarted:   true,
	model.JobStatusCompleted: true,
}

// UpdateStatus advances a job along the driver's leg of the lifecycle.
func (s *JobService) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*model.Job, error) {
	if !driverStatuses[input.NewStatus] {
		return nil, fmt.Errorf("%w: status %q is not a driver transition", ErrInvalidInput, input.NewStatus)
	}
	if !s.locks.acquire(input.JobID) {
		return nil, ErrConflict
	}
	defer s.locks.release(input.JobID)

	job, err := s.jobs.GetByID(ctx, input.JobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if job.DriverID == nil || *job.DriverID != input.Principal.ContractorID {
		return nil, ErrPermissionDenied
	}
	if !canTransition(job.Status, input.NewStatus) {
		return nil, fmt.Errorf("%w: cannot move %s to %s (allowed: %s)",
			ErrConflict, job.Status, input.NewStatus, allowedNext(job.Status))
	}

	now := s.now().UTC()
	job.Status = input.NewStatus
	if len(input.BeforePhotos) > 0 {
		job.BeforePhotos = append(job.BeforePhotos, input.BeforePhotos...)
	}
	if len(input.AfterPhotos) > 0 {
		job.AfterPhotos = append(job.AfterPhotos, input.AfterPhotos...)
	}

	switch input.NewStatus {
	case model.JobStatusStarted:
		job.StartedAt = &now
	case model.JobStatusCompleted:
		job.CompletedAt = &now
		return s.completeJob(ctx, job)
	}

	if err := s.jobs.Update(ctx, job); err != nil {
		return nil, err
	}
	s.announceStatus(ctx, job)
	return job, nil
}

// completeJob runs the completion side effects: payment split, payout
// release, driver stats, and referral settlement.
func (s *JobService) completeJob(ctx context.Context, job *model.Job) (*model.Job, error) {
	if len(job.AfterPhotos) == 0 {
		// Completion without proof photos is allowed but flagged for review.
		s.log.Warn().Str("job_id", job.ID.String()).Msg("job completed without after photos")
	}

	driver, err := s.contractors.GetByID(ctx, *job.DriverID)
	if err != nil {
		return nil, err
	}

	payment, err := s.payments.GetByJobID(ctx, job.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		payment = nil
	}
	if payment != nil {
		hasOperator := job.OperatorID != nil
		payment.Commission, payment.DriverPayout, payment.OperatorPayout = applySplit(
			payment.Amount, payment.ServiceFee, driver.OperatorCommissionRate, hasOperator,
		)
		payment.PayoutStatus = model.PayoutStatusPaid
	}

	if err := s.jobs.UpdateWithPayment(ctx, job, payment); err != nil {
		return nil, err
	}

	if payment != nil {
		if err := s.gateway.ReleasePayout(ctx, job.ID, payment.DriverPayout, payment.OperatorPayout); err != nil {
			s.log.Error().Err(err).Str("job_id", job.ID.String()).Msg("payout release failed")
		}
	}
	if err := s.contractors.IncrementTotalJobs(ctx, driver.ID); err != nil {
		s.log.Error().Err(err).Str("contractor_id", driver.ID.String()).Msg("total_jobs increment failed")
	}
	s.settleReferral(ctx, job)
	s.announceStatus(ctx, job)
	return job, nil
}

// settleReferral completes the customer's pending referral on their first
// finished job. Best-effort.
func (s *JobService) settleReferral(ctx context.Context, job *model.Job) {
	referral, err := s.users.GetSignedUpReferral(ctx, job.CustomerID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Error().Err(err).Str("job_id", job.ID.String()).Msg("referral lookup failed")
		}
		return
	}
	if err := s.users.CompleteReferral(ctx, referral.ID, s.now().UTC()); err != nil {
		s.log.Error().Err(err).Str("referral_id", referral.ID.String()).Msg("referral completion failed")
		return
	}
	s.notifier.Notify(ctx, referral.ReferrerID, model.NotificationKindPayment,
		"Referral reward earned",
		"A friend you referred completed their first pickup.",
		map[string]any{"referral_id": referral.ID.String()},
	)
}

var statusNotifications = map[model.JobStatus]struct {
	title string
	body  string
}{
	model.JobStatusAccepted:  {"Driver confirmed", "Your driver accepted the job."},
	model.JobStatusEnRoute:   {"Driver on the way", "Your driver is en route to the pickup address."},
	model.JobStatusArrived:   {"Driver arrived", "Your driver has arrived."},
	model.JobStatusStarted:   {"Pickup started", "Your driver started loading."},
	model.JobStatusCompleted: {"Pickup complete", "Your junk is gone. Thanks for using Umuve!"},
}

func (s *JobService) announceStatus(ctx context.Context, job *model.Job) {
	if msg, ok := statusNotifications[job.Status]; ok {
		s.notifier.Notify(ctx, job.CustomerID, model.NotificationKindJobUpdate,
			msg.title, msg.body,
			map[string]any{"job_id": job.ID.String(), "status": string(job.Status)},
		)
	}
	s.bus.PublishJobEvent(ctx, "status_changed", job.ID, map[string]any{
		"status": string(job.Status),
	})
}

type CancelInput struct {
	Principal model.Principal
	JobID     uuid.UUID
	Reason    string
}

// Cancel cancels a job on the customer's behalf. The fee depends on how
// close to the scheduled window the cancellation lands: free beyond 24
// hours, a late fee between 2 and 24 hours, and the last-minute fee under 2
// hours.
func (s *JobService) Cancel(ctx context.Context, input CancelInput) (*model.Job, error) {
	if !s.locks.acquire(input.JobID) {
		return nil, ErrConflict
	}
	defer s.locks.release(input.JobID)

	job, err := s.jobs.GetByID(ctx, input.JobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if job.CustomerID != input.Principal.UserID && !input.Principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	if !canTransition(job.Status, model.JobStatusCancelled) {
		return nil, fmt.Errorf("%w: cannot cancel a %s job", ErrConflict, job.Status)
	}

	now := s.now().UTC()
	fee := s.cancellationFee(job, now)

	driverID := job.DriverID
	job.Status = model.JobStatusCancelled
	job.CancelledAt = &now
	job.CancellationFee = fee

	payment, err := s.payments.GetByJobID(ctx, job.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err != nil {
		payment = nil
	}
	if payment != nil && payment.PaymentStatus == model.PaymentStatusSucceeded {
		refund := payment.Amount - fee
		if refund > 0 && payment.GatewayRef != nil {
			if err := s.gateway.Refund(ctx, *payment.GatewayRef, refund); err != nil {
				return nil, fmt.Errorf("refund: %w", err)
			}
		}
		payment.Amount = fee
		payment.ServiceFee = 0
		payment.PaymentStatus = model.PaymentStatusRefunded
		payment.Commission, payment.DriverPayout, payment.OperatorPayout = 0, 0, 0
		if fee > 0 && driverID != nil {
			if driver, derr := s.contractors.GetByID(ctx, *driverID); derr == nil {
				payment.Commission, payment.DriverPayout, payment.OperatorPayout = applySplit(
					fee, 0, driver.OperatorCommissionRate, job.OperatorID != nil,
				)
			}
		}
	}

	if err := s.jobs.UpdateWithPayment(ctx, job, payment); err != nil {
		return nil, err
	}

	if driverID != nil {
		if driver, derr := s.contractors.GetByID(ctx, *driverID); derr == nil {
			s.notifier.Notify(ctx, driver.UserID, model.NotificationKindJobCancelled,
				"Job cancelled",
				"The pickup at "+job.Address+" was cancelled by the customer.",
				map[string]any{"job_id": job.ID.String()},
			)
			s.bus.PublishDriverEvent(ctx, "job_cancelled", driver.ID, job.ID, nil)
		}
	}
	s.bus.PublishJobEvent(ctx, "cancelled", job.ID, map[string]any{
		"cancellation_fee": fee,
	})

	s.log.Info().
		Str("job_id", job.ID.String()).
		Float64("fee", fee).
		Str("reason", input.Reason).
		Msg("job cancelled")
	return job, nil
}

func (s *JobService) cancellationFee(job *model.Job, now time.Time) float64 {
	if job.ScheduledAt == nil {
		return 0
	}
	until := job.ScheduledAt.Sub(now)
	switch {
	case until >= 24*time.Hour:
		return 0
	case until >= 2*time.Hour:
		return s.cfg.Dispatch.LateCancelFee
	default:
		return s.cfg.Dispatch.LastMinuteFee
	}
}

type RescheduleInput struct {
	Principal   model.Principal
	JobID       uuid.UUID
	ScheduledAt time.Time
}

// Reschedule moves the pickup window. Only allowed before the driver is on
// the road, and capped to avoid endless churn.
func (s *JobService) Reschedule(ctx context.Context, input RescheduleInput) (*model.Job, error) {
	if input.ScheduledAt.IsZero() {
		return nil, fmt.Errorf("%w: scheduled_at is required", ErrInvalidInput)
	}
	if input.ScheduledAt.Before(s.now()) {
		return nil, fmt.Errorf("%w: scheduled_at is in the past", ErrInvalidInput)
	}
	if !s.locks.acquire(input.JobID) {
		return nil, ErrConflict
	}
	defer s.locks.release(input.JobID)

	job, err := s.jobs.GetByID(ctx, input.JobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if job.CustomerID != input.Principal.UserID && !input.Principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	switch job.Status {
	case model.JobStatusPending, model.JobStatusConfirmed, model.JobStatusAssigned, model.JobStatusAccepted:
	default:
		return nil, fmt.Errorf("%w: cannot reschedule a %s job", ErrConflict, job.Status)
	}
	if job.RescheduledCount >= s.cfg.Dispatch.MaxReschedules {
		return nil, fmt.Errorf("%w: reschedule limit reached", ErrConflict)
	}

	scheduled := input.ScheduledAt.UTC()
	job.ScheduledAt = &scheduled
	job.RescheduledCount++
	if err := s.jobs.Update(ctx, job); err != nil {
		return nil, err
	}

	if job.DriverID != nil {
		if driver, derr := s.contractors.GetByID(ctx, *job.DriverID); derr == nil {
			s.notifier.Notify(ctx, driver.UserID, model.NotificationKindJobReschedule,
				"Job rescheduled",
				"The pickup at "+job.Address+" was moved to a new time.",
				map[string]any{"job_id": job.ID.String(), "scheduled_at": scheduled},
			)
		}
	}
	s.bus.PublishJobEvent(ctx, "rescheduled", job.ID, map[string]any{
		"scheduled_at": scheduled,
	})
	return job, nil
}

type DeclineInput struct {
	Principal model.Principal
	JobID     uuid.UUID
}

// Decline lets an assigned driver bounce a job back to the pool. The job
// returns to confirmed (or delegating for fleet jobs) and rematches
// immediately.
func (s *JobService) Decline(ctx context.Context, input DeclineInput) (*model.Job, error) {
	if !s.locks.acquire(input.JobID) {
		return nil, ErrConflict
	}
	defer s.locks.release(input.JobID)

	job, err := s.jobs.GetByID(ctx, input.JobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if job.DriverID == nil || *job.DriverID != input.Principal.ContractorID {
		return nil, ErrPermissionDenied
	}
	if job.Status != model.JobStatusAssigned {
		return nil, fmt.Errorf("%w: only assigned jobs can be declined", ErrConflict)
	}

	job.DriverID = nil
	if job.OperatorID != nil {
		job.Status = model.JobStatusDelegating
	} else {
		job.Status = model.JobStatusConfirmed
	}
	if err := s.jobs.Update(ctx, job); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("job_id", job.ID.String()).
		Str("contractor_id", input.Principal.ContractorID.String()).
		Msg("driver declined job")

	if _, err := s.dispatcher.AutoAssign(ctx, job); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID.String()).Msg("rematch after decline failed")
	}
	return job, nil
}

type DelegateInput struct {
	Principal model.Principal
	JobID     uuid.UUID
}

// Delegate pulls a confirmed, unassigned job into the operator's fleet and
// dispatches it to one of the fleet's drivers.
func (s *JobService) Delegate(ctx context.Context, input DelegateInput) (*model.Job, error) {
	if !input.Principal.IsOperator() {
		return nil, ErrPermissionDenied
	}
	if !s.locks.acquire(input.JobID) {
		return nil, ErrConflict
	}
	defer s.locks.release(input.JobID)

	job, err := s.jobs.GetByID(ctx, input.JobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if job.Status != model.JobStatusConfirmed || job.DriverID != nil {
		return nil, fmt.Errorf("%w: job is not available for delegation", ErrConflict)
	}

	now := s.now().UTC()
	operatorID := input.Principal.ContractorID
	job.OperatorID = &operatorID
	job.DelegatedAt = &now
	job.Status = model.JobStatusDelegating
	if err := s.jobs.Update(ctx, job); err != nil {
		return nil, err
	}

	if _, err := s.dispatcher.AutoAssign(ctx, job); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID.String()).Msg("fleet dispatch failed")
	}
	return job, nil
}

type AdminAssignInput struct {
	Principal model.Principal
	JobID     uuid.UUID
	DriverID  *uuid.UUID
}

// AdminAssign force-assigns a driver, or re-runs matching when no driver is
// given. The escape hatch for jobs stuck unassigned.
func (s *JobService) AdminAssign(ctx context.Context, input AdminAssignInput) (*model.Job, error) {
	if !input.Principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	if !s.locks.acquire(input.JobID) {
		return nil, ErrConflict
	}
	defer s.locks.release(input.JobID)

	job, err := s.jobs.GetByID(ctx, input.JobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	switch job.Status {
	case model.JobStatusConfirmed, model.JobStatusDelegating:
	default:
		return nil, fmt.Errorf("%w: job is %s, expected confirmed or delegating", ErrConflict, job.Status)
	}

	if input.DriverID == nil {
		if _, err := s.dispatcher.AutoAssign(ctx, job); err != nil {
			return nil, err
		}
		return job, nil
	}

	driver, err := s.contractors.GetByID(ctx, *input.DriverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: driver", ErrNotFound)
		}
		return nil, err
	}
	if driver.ApprovalStatus != model.ApprovalStatusApproved {
		return nil, fmt.Errorf("%w: driver is not approved", ErrInvalidInput)
	}

	job.DriverID = &driver.ID
	job.Status = model.JobStatusAssigned
	if err := s.jobs.Update(ctx, job); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, driver.UserID, model.NotificationKindNewJob,
		"New job assigned",
		"You have a new pickup at "+job.Address,
		map[string]any{"job_id": job.ID.String()},
	)
	s.notifier.Notify(ctx, job.CustomerID, model.NotificationKindJobAssigned,
		"Driver assigned",
		"A driver has been assigned to your pickup.",
		map[string]any{"job_id": job.ID.String(), "driver_id": driver.ID.String()},
	)
	s.bus.PublishDriverEvent(ctx, "job_assigned", driver.ID, job.ID, nil)
	s.bus.PublishJobEvent(ctx, "driver_assigned", job.ID, map[string]any{
		"driver_id": driver.ID.String(),
	})
	return job, nil
}
