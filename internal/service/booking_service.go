package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/umuve/dispatch-engine/internal/config"
	"github.com/umuve/dispatch-engine/internal/events"
	"github.com/umuve/dispatch-engine/internal/geofence"
	"github.com/umuve/dispatch-engine/internal/model"
	"github.com/umuve/dispatch-engine/internal/notify"
	"github.com/umuve/dispatch-engine/internal/paygate"
	"github.com/umuve/dispatch-engine/internal/pricing"
)

type BookingService struct {
	checker    *geofence.Checker
	pricer     *pricing.Calculator
	jobs       JobStore
	payments   PaymentStore
	dispatcher *Dispatcher
	gateway    paygate.Gateway
	notifier   *notify.Notifier
	bus        *events.Bus
	locks      *JobLocks
	cfg        *config.Config
	log        zerolog.Logger
}

func NewBookingService(
	checker *geofence.Checker,
	pricer *pricing.Calculator,
	jobs JobStore,
	payments PaymentStore,
	dispatcher *Dispatcher,
	gateway paygate.Gateway,
	notifier *notify.Notifier,
	bus *events.Bus,
	locks *JobLocks,
	cfg *config.Config,
	log zerolog.Logger,
) *BookingService {
	return &BookingService{
		checker:    checker,
		pricer:     pricer,
		jobs:       jobs,
		payments:   payments,
		dispatcher: dispatcher,
		gateway:    gateway,
		notifier:   notifier,
		bus:        bus,
		locks:      locks,
		cfg:        cfg,
		log:        log,
	}
}

type EstimateInput struct {
	Items       []pricing.ItemInput
	ScheduledAt *time.Time
	Lat         *float64
	Lng         *float64
}

// Estimate prices a prospective booking. No record is written; the quote is
// recomputed at booking time.
func (s *BookingService) Estimate(ctx context.Context, input EstimateInput) (*pricing.Result, error) {
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("%w: items are required", ErrInvalidInput)
	}
	if input.Lat != nil && input.Lng != nil && !s.checker.InServiceArea(*input.Lat, *input.Lng) {
		return nil, ErrOutOfServiceArea
	}

	result := s.pricer.CalculateEstimate(ctx, pricing.Input{
		Items:       input.Items,
		ScheduledAt: input.ScheduledAt,
		Lat:         input.Lat,
		Lng:         input.Lng,
	})
	return &result, nil
}

type CreateBookingInput struct {
	Principal      model.Principal
	Address        string
	Lat            *float64
	Lng            *float64
	Items          []pricing.ItemInput
	ScheduledAt    *time.Time
	Notes          string
	VolumeEstimate *float64
	Photos         []string
}

// CreateBooking writes the job in pending status and opens the charge. The
// job enters dispatch only after ConfirmPayment.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*model.Job, error) {
	if !input.Principal.IsCustomer() && !input.Principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	if input.Address == "" {
		return nil, fmt.Errorf("%w: address is required", ErrInvalidInput)
	}
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("%w: items are required", ErrInvalidInput)
	}
	if input.Lat == nil || input.Lng == nil {
		return nil, fmt.Errorf("%w: pickup coordinates are required", ErrInvalidInput)
	}
	if !s.checker.InServiceArea(*input.Lat, *input.Lng) {
		return nil, ErrOutOfServiceArea
	}
	if input.ScheduledAt != nil && input.ScheduledAt.Before(time.Now()) {
		return nil, fmt.Errorf("%w: scheduled_at is in the past", ErrInvalidInput)
	}

	price := s.pricer.CalculateEstimate(ctx, pricing.Input{
		Items:       input.Items,
		ScheduledAt: input.ScheduledAt,
		Lat:         input.Lat,
		Lng:         input.Lng,
	})

	items := make([]model.LineItem, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, model.LineItem{
			Category: item.Category,
			Quantity: item.Quantity,
			Size:     item.Size,
		})
	}

	job := &model.Job{
		ID:               uuid.New(),
		CustomerID:       input.Principal.UserID,
		Status:           model.JobStatusPending,
		Address:          input.Address,
		Lat:              input.Lat,
		Lng:              input.Lng,
		Items:            items,
		VolumeEstimate:   input.VolumeEstimate,
		Photos:           input.Photos,
		ScheduledAt:      input.ScheduledAt,
		Notes:            input.Notes,
		ConfirmationCode: newConfirmationCode(),
		ItemTotal:        price.ItemsSubtotal,
		BasePrice:        price.BasePrice,
		ServiceFee:       price.ServiceFee,
		SurgeMultiplier:  price.SurgeMultiplier,
		DiscountAmount:   price.VolumeDiscount,
		TotalPrice:       price.Total,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}

	ref, err := s.gateway.CreateCharge(ctx, job.ID, job.TotalPrice)
	if err != nil {
		return nil, fmt.Errorf("create charge: %w", err)
	}
	payment := &model.Payment{
		JobID:         job.ID,
		GatewayRef:    &ref,
		Amount:        job.TotalPrice,
		ServiceFee:    job.ServiceFee,
		PaymentStatus: model.PaymentStatusPending,
		PayoutStatus:  model.PayoutStatusPending,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("job_id", job.ID.String()).
		Str("code", job.ConfirmationCode).
		Float64("total", job.TotalPrice).
		Msg("booking created")
	return job, nil
}

type ConfirmPaymentInput struct {
	Principal model.Principal
	JobID     uuid.UUID
}

// ConfirmPayment marks the charge as captured, confirms the job, and runs
// auto-assignment. A job with no available driver stays confirmed.
func (s *BookingService) ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) (*model.Job, error) {
	if input.JobID == uuid.Nil {
		return nil, fmt.Errorf("%w: job_id is required", ErrInvalidInput)
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
	if job.Status != model.JobStatusPending {
		return nil, fmt.Errorf("%w: job is %s, expected pending", ErrConflict, job.Status)
	}

	payment, err := s.payments.GetByJobID(ctx, job.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	payment.PaymentStatus = model.PaymentStatusSucceeded
	// The split is settled now so the captured amount is fully accounted for
	// from the moment it succeeds. No driver is attached to a pending job, so
	// the whole gross sits on the driver side; completion recomputes with the
	// assigned driver's operator rate.
	payment.Commission, payment.DriverPayout, payment.OperatorPayout = applySplit(
		payment.Amount, payment.ServiceFee, 0, false,
	)

	job.Status = model.JobStatusConfirmed
	if err := s.jobs.UpdateWithPayment(ctx, job, payment); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, job.CustomerID, model.NotificationKindPayment,
		"Payment confirmed",
		fmt.Sprintf("Your pickup is booked. Confirmation code %s.", job.ConfirmationCode),
		map[string]any{"job_id": job.ID.String()},
	)
	s.bus.PublishJobEvent(ctx, "payment_confirmed", job.ID, nil)

	if _, err := s.dispatcher.AutoAssign(ctx, job); err != nil {
		// Assignment failure is recoverable; the booking itself stands.
		s.log.Error().Err(err).Str("job_id", job.ID.String()).Msg("auto-assign failed")
	}
	return job, nil
}

// codeAlphabet omits 0/O/1/I to keep codes readable over the phone.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newConfirmationCode() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}
