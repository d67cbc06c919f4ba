package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/umuve/dispatch-engine/internal/config"
	"github.com/umuve/dispatch-engine/internal/events"
	"github.com/umuve/dispatch-engine/internal/model"
	"github.com/umuve/dispatch-engine/internal/notify"
	"github.com/umuve/dispatch-engine/internal/paygate"
	"github.com/umuve/dispatch-engine/internal/pricing"
)

// VolumeService handles on-site volume renegotiation. When the driver
// arrives and the pile doesn't match the booking, they submit the measured
// volume: a lower re-price applies silently, a higher one needs the
// customer's sign-off before work starts.
type VolumeService struct {
	pricer      *pricing.Calculator
	jobs        JobStore
	payments    PaymentStore
	contractors ContractorStore
	gateway     paygate.Gateway
	notifier    *notify.Notifier
	bus         *events.Bus
	locks       *JobLocks
	cfg         *config.Config
	log         zerolog.Logger
}

func NewVolumeService(
	pricer *pricing.Calculator,
	jobs JobStore,
	payments PaymentStore,
	contractors ContractorStore,
	gateway paygate.Gateway,
	notifier *notify.Notifier,
	bus *events.Bus,
	locks *JobLocks,
	cfg *config.Config,
	log zerolog.Logger,
) *VolumeService {
	return &VolumeService{
		pricer:      pricer,
		jobs:        jobs,
		payments:    payments,
		contractors: contractors,
		gateway:     gateway,
		notifier:    notifier,
		bus:         bus,
		locks:       locks,
		cfg:         cfg,
		log:         log,
	}
}

type ProposeInput struct {
	Principal      model.Principal
	JobID          uuid.UUID
	MeasuredVolume float64
}

type ProposeResult struct {
	Job              *model.Job `json:"job"`
	NewPrice         float64    `json:"new_price"`
	Applied          bool       `json:"applied"`
	RequiresApproval bool       `json:"requires_approval"`
}

// Propose re-prices the job from the driver's on-site measurement. Only the
// assigned driver may propose, only after arriving, and only once at a time.
func (s *VolumeService) Propose(ctx context.Context, input ProposeInput) (*ProposeResult, error) {
	if input.MeasuredVolume <= 0 {
		return nil, fmt.Errorf("%w: measured volume must be positive", ErrInvalidInput)
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
	if job.Status != model.JobStatusArrived {
		return nil, fmt.Errorf("%w: volume can only be adjusted after arrival", ErrConflict)
	}
	if job.VolumeAdjustmentProposed {
		return nil, fmt.Errorf("%w: an adjustment is already awaiting the customer", ErrConflict)
	}

	quantity := pricing.VolumeToQuantity(input.MeasuredVolume)
	price := s.pricer.CalculateEstimate(ctx, pricing.Input{
		Items:       []pricing.ItemInput{{Category: "general", Quantity: quantity}},
		ScheduledAt: job.ScheduledAt,
		Lat:         job.Lat,
		Lng:         job.Lng,
	})

	measured := input.MeasuredVolume
	if price.Total <= job.TotalPrice {
		// Price drops apply without asking.
		job.VolumeEstimate = &measured
		if err := s.applyPrice(ctx, job, price); err != nil {
			return nil, err
		}
		s.notifier.Notify(ctx, job.CustomerID, model.NotificationKindVolumeChange,
			"Price adjusted down",
			fmt.Sprintf("Your final price dropped to $%.2f based on the measured volume.", price.Total),
			map[string]any{"job_id": job.ID.String(), "new_price": price.Total},
		)
		s.bus.PublishJobEvent(ctx, "volume_adjusted", job.ID, map[string]any{
			"new_price": price.Total,
		})
		return &ProposeResult{Job: job, NewPrice: price.Total, Applied: true}, nil
	}

	job.VolumeAdjustmentProposed = true
	job.AdjustedVolume = &measured
	adjusted := price.Total
	job.AdjustedPrice = &adjusted
	if err := s.jobs.Update(ctx, job); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, job.CustomerID, model.NotificationKindVolumeChange,
		"Price change needs your approval",
		fmt.Sprintf("The measured volume raises your price to $%.2f. Approve to continue.", adjusted),
		map[string]any{"job_id": job.ID.String(), "new_price": adjusted},
	)
	s.bus.PublishJobEvent(ctx, "volume_adjustment_proposed", job.ID, map[string]any{
		"new_price": adjusted,
	})
	return &ProposeResult{Job: job, NewPrice: adjusted, RequiresApproval: true}, nil
}

type VolumeDecisionInput struct {
	Principal model.Principal
	JobID     uuid.UUID
}

// Approve accepts the proposed price increase and updates the charge.
func (s *VolumeService) Approve(ctx context.Context, input VolumeDecisionInput) (*model.Job, error) {
	if !s.locks.acquire(input.JobID) {
		return nil, ErrConflict
	}
	defer s.locks.release(input.JobID)

	job, err := s.pendingProposal(ctx, input)
	if err != nil {
		return nil, err
	}

	quantity := pricing.VolumeToQuantity(*job.AdjustedVolume)
	price := s.pricer.CalculateEstimate(ctx, pricing.Input{
		Items:       []pricing.ItemInput{{Category: "general", Quantity: quantity}},
		ScheduledAt: job.ScheduledAt,
		Lat:         job.Lat,
		Lng:         job.Lng,
	})

	job.VolumeEstimate = job.AdjustedVolume
	job.VolumeAdjustmentProposed = false
	job.AdjustedVolume = nil
	job.AdjustedPrice = nil
	if err := s.applyPrice(ctx, job, price); err != nil {
		return nil, err
	}

	s.notifyDriver(ctx, job, model.NotificationKindVolumeChange,
		"Adjustment approved",
		"The customer approved the new price. You can start the job.",
	)
	s.bus.PublishJobEvent(ctx, "volume_adjustment_approved", job.ID, map[string]any{
		"new_price": job.TotalPrice,
	})
	return job, nil
}

// Decline rejects the price increase and cancels the job. The customer owes
// the trip fee since the driver already drove out.
func (s *VolumeService) Decline(ctx context.Context, input VolumeDecisionInput) (*model.Job, error) {
	if !s.locks.acquire(input.JobID) {
		return nil, ErrConflict
	}
	defer s.locks.release(input.JobID)

	job, err := s.pendingProposal(ctx, input)
	if err != nil {
		return nil, err
	}

	now := nowUTC()
	tripFee := s.cfg.Dispatch.TripFee
	driverID := job.DriverID

	job.Status = model.JobStatusCancelled
	job.CancelledAt = &now
	job.CancellationFee = tripFee
	job.VolumeAdjustmentProposed = false
	job.AdjustedVolume = nil
	job.AdjustedPrice = nil

	payment, err := s.payments.GetByJobID(ctx, job.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err != nil {
		payment = nil
	}
	if payment != nil {
		if payment.PaymentStatus == model.PaymentStatusSucceeded && payment.GatewayRef != nil {
			if refund := payment.Amount - tripFee; refund > 0 {
				if err := s.gateway.Refund(ctx, *payment.GatewayRef, refund); err != nil {
					return nil, fmt.Errorf("refund: %w", err)
				}
			}
			payment.PaymentStatus = model.PaymentStatusRefunded
		}
		payment.Amount = tripFee
		payment.ServiceFee = 0
		payment.Commission, payment.DriverPayout, payment.OperatorPayout = 0, 0, 0
		if driverID != nil {
			if driver, derr := s.contractors.GetByID(ctx, *driverID); derr == nil {
				payment.Commission, payment.DriverPayout, payment.OperatorPayout = applySplit(
					tripFee, 0, driver.OperatorCommissionRate, job.OperatorID != nil,
				)
			}
		}
	}

	if err := s.jobs.UpdateWithPayment(ctx, job, payment); err != nil {
		return nil, err
	}

	s.notifyDriver(ctx, job, model.NotificationKindJobCancelled,
		"Adjustment declined",
		"The customer declined the new price. The job is cancelled; the trip fee is yours.",
	)
	s.bus.PublishJobEvent(ctx, "cancelled", job.ID, map[string]any{
		"cancellation_fee": tripFee,
	})
	return job, nil
}

// pendingProposal loads the job and checks the caller owns it and a
// proposal is actually outstanding.
func (s *VolumeService) pendingProposal(ctx context.Context, input VolumeDecisionInput) (*model.Job, error) {
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
	if !job.VolumeAdjustmentProposed || job.AdjustedVolume == nil {
		return nil, fmt.Errorf("%w: no volume adjustment is pending", ErrConflict)
	}
	return job, nil
}

// applyPrice copies the re-priced breakdown onto the job and syncs the
// payment, its split, and the open charge.
func (s *VolumeService) applyPrice(ctx context.Context, job *model.Job, price pricing.Result) error {
	job.ItemTotal = price.ItemsSubtotal
	job.BasePrice = price.BasePrice
	job.ServiceFee = price.ServiceFee
	job.SurgeMultiplier = price.SurgeMultiplier
	job.DiscountAmount = price.VolumeDiscount
	job.TotalPrice = price.Total

	payment, err := s.payments.GetByJobID(ctx, job.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if err != nil {
		payment = nil
	}
	if payment != nil {
		payment.Amount = price.Total
		payment.ServiceFee = price.ServiceFee
		payment.Commission, payment.DriverPayout, payment.OperatorPayout = applySplit(
			price.Total, price.ServiceFee, 0, false,
		)
		if job.DriverID != nil {
			if driver, derr := s.contractors.GetByID(ctx, *job.DriverID); derr == nil {
				payment.Commission, payment.DriverPayout, payment.OperatorPayout = applySplit(
					price.Total, price.ServiceFee, driver.OperatorCommissionRate, job.OperatorID != nil,
				)
			}
		}
		if payment.GatewayRef != nil {
			if err := s.gateway.UpdateCharge(ctx, *payment.GatewayRef, price.Total); err != nil {
				return fmt.Errorf("update charge: %w", err)
			}
		}
	}
	return s.jobs.UpdateWithPayment(ctx, job, payment)
}

func (s *VolumeService) notifyDriver(ctx context.Context, job *model.Job, kind model.NotificationKind, title, body string) {
	if job.DriverID == nil {
		return
	}
	driver, err := s.contractors.GetByID(ctx, *job.DriverID)
	if err != nil {
		return
	}
	s.notifier.Notify(ctx, driver.UserID, kind, title, body,
		map[string]any{"job_id": job.ID.String()},
	)
	s.bus.PublishDriverEvent(ctx, string(kind), driver.ID, job.ID, nil)
}
