package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umuve/dispatch-engine/internal/geofence"
	"github.com/umuve/dispatch-engine/internal/matching"
	"github.com/umuve/dispatch-engine/internal/model"
	"github.com/umuve/dispatch-engine/internal/pricing"
)

type bookingEnv struct {
	svc         *BookingService
	jobs        *fakeJobStore
	payments    *fakePaymentStore
	contractors *fakeContractorStore
	gateway     *fakeGateway
	selector    *fakeSelector
}

func newBookingEnv(t *testing.T) *bookingEnv {
	t.Helper()

	jobs := newFakeJobStore()
	payments := newFakePaymentStore()
	jobs.payments = payments
	contractors := newFakeContractorStore()
	gateway := newFakeGateway()
	selector := &fakeSelector{selectErr: matching.ErrNoCandidates}

	dispatcher := NewDispatcher(jobs, contractors, selector, nil, nil, zerolog.Nop())
	svc := NewBookingService(
		geofence.New(),
		pricing.NewCalculator(nil),
		jobs, payments, dispatcher, gateway, nil, nil,
		NewJobLocks(), testConfig(), zerolog.Nop(),
	)

	return &bookingEnv{
		svc:         svc,
		jobs:        jobs,
		payments:    payments,
		contractors: contractors,
		gateway:     gateway,
		selector:    selector,
	}
}

func miamiCoords() (*float64, *float64) {
	lat, lng := 25.7617, -80.1918
	return &lat, &lng
}

func customer() model.Principal {
	return model.Principal{UserID: uuid.New(), Role: "customer"}
}

func TestEstimateRejectsOutOfArea(t *testing.T) {
	env := newBookingEnv(t)
	lat, lng := 28.5383, -81.3792 // Orlando

	_, err := env.svc.Estimate(context.Background(), EstimateInput{
		Items: []pricing.ItemInput{{Category: "general", Quantity: 1}},
		Lat:   &lat,
		Lng:   &lng,
	})
	assert.ErrorIs(t, err, ErrOutOfServiceArea)
}

func TestEstimateRequiresItems(t *testing.T) {
	env := newBookingEnv(t)

	_, err := env.svc.Estimate(context.Background(), EstimateInput{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEstimateWithoutLocation(t *testing.T) {
	env := newBookingEnv(t)

	result, err := env.svc.Estimate(context.Background(), EstimateInput{
		Items: []pricing.ItemInput{{Category: "mattress", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Greater(t, result.Total, 0.0)
}

func TestCreateBookingWritesJobAndCharge(t *testing.T) {
	env := newBookingEnv(t)
	lat, lng := miamiCoords()
	scheduled := time.Now().Add(96 * time.Hour)

	job, err := env.svc.CreateBooking(context.Background(), CreateBookingInput{
		Principal:   customer(),
		Address:     "123 Ocean Dr, Miami",
		Lat:         lat,
		Lng:         lng,
		Items:       []pricing.ItemInput{{Category: "furniture", Quantity: 2, Size: "medium"}},
		ScheduledAt: &scheduled,
	})
	require.NoError(t, err)

	assert.Equal(t, model.JobStatusPending, job.Status)
	assert.Len(t, job.ConfirmationCode, 8)
	assert.Greater(t, job.TotalPrice, 0.0)
	assert.Len(t, job.Items, 1)

	payment, err := env.payments.GetByJobID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPending, payment.PaymentStatus)
	assert.Equal(t, job.TotalPrice, payment.Amount)
	require.NotNil(t, payment.GatewayRef)
	assert.Equal(t, job.TotalPrice, env.gateway.charges[*payment.GatewayRef])
}

func TestCreateBookingValidation(t *testing.T) {
	env := newBookingEnv(t)
	lat, lng := miamiCoords()
	items := []pricing.ItemInput{{Category: "general", Quantity: 1}}

	_, err := env.svc.CreateBooking(context.Background(), CreateBookingInput{
		Principal: model.Principal{Role: "driver"},
		Address:   "x", Lat: lat, Lng: lng, Items: items,
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = env.svc.CreateBooking(context.Background(), CreateBookingInput{
		Principal: customer(), Lat: lat, Lng: lng, Items: items,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.svc.CreateBooking(context.Background(), CreateBookingInput{
		Principal: customer(), Address: "x", Items: items,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	outLat, outLng := 28.5383, -81.3792
	_, err = env.svc.CreateBooking(context.Background(), CreateBookingInput{
		Principal: customer(), Address: "x", Lat: &outLat, Lng: &outLng, Items: items,
	})
	assert.ErrorIs(t, err, ErrOutOfServiceArea)

	past := time.Now().Add(-time.Hour)
	_, err = env.svc.CreateBooking(context.Background(), CreateBookingInput{
		Principal: customer(), Address: "x", Lat: lat, Lng: lng, Items: items,
		ScheduledAt: &past,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestConfirmPaymentAssignsDriver(t *testing.T) {
	env := newBookingEnv(t)
	lat, lng := miamiCoords()
	principal := customer()

	job, err := env.svc.CreateBooking(context.Background(), CreateBookingInput{
		Principal: principal,
		Address:   "123 Ocean Dr, Miami",
		Lat:       lat, Lng: lng,
		Items: []pricing.ItemInput{{Category: "general", Quantity: 1}},
	})
	require.NoError(t, err)

	driver := model.Contractor{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		ApprovalStatus: model.ApprovalStatusApproved,
		IsOnline:       true,
	}
	env.contractors.contractors[driver.ID] = driver
	env.selector.selectErr = nil
	env.selector.contractor = &driver

	got, err := env.svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{
		Principal: principal,
		JobID:     job.ID,
	})
	require.NoError(t, err)

	stored, _ := env.jobs.GetByID(context.Background(), got.ID)
	assert.Equal(t, model.JobStatusAssigned, stored.Status)
	require.NotNil(t, stored.DriverID)
	assert.Equal(t, driver.ID, *stored.DriverID)

	payment, _ := env.payments.GetByJobID(context.Background(), job.ID)
	assert.Equal(t, model.PaymentStatusSucceeded, payment.PaymentStatus)
}

func TestConfirmPaymentNoDriverStaysConfirmed(t *testing.T) {
	env := newBookingEnv(t)
	lat, lng := miamiCoords()
	principal := customer()

	job, err := env.svc.CreateBooking(context.Background(), CreateBookingInput{
		Principal: principal,
		Address:   "123 Ocean Dr, Miami",
		Lat:       lat, Lng: lng,
		Items: []pricing.ItemInput{{Category: "general", Quantity: 1}},
	})
	require.NoError(t, err)

	got, err := env.svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{
		Principal: principal,
		JobID:     job.ID,
	})
	require.NoError(t, err)

	stored, _ := env.jobs.GetByID(context.Background(), got.ID)
	assert.Equal(t, model.JobStatusConfirmed, stored.Status)
	assert.Nil(t, stored.DriverID)
}

func TestConfirmPaymentSettlesSplit(t *testing.T) {
	env := newBookingEnv(t)
	lat, lng := miamiCoords()
	principal := customer()

	job, err := env.svc.CreateBooking(context.Background(), CreateBookingInput{
		Principal: principal,
		Address:   "123 Ocean Dr, Miami",
		Lat:       lat, Lng: lng,
		Items: []pricing.ItemInput{{Category: "furniture", Quantity: 2, Size: "medium"}},
	})
	require.NoError(t, err)

	_, err = env.svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{
		Principal: principal,
		JobID:     job.ID,
	})
	require.NoError(t, err)

	// The captured amount is fully split the moment the charge succeeds,
	// not deferred to completion.
	payment, _ := env.payments.GetByJobID(context.Background(), job.ID)
	assert.Equal(t, model.PaymentStatusSucceeded, payment.PaymentStatus)
	assert.Greater(t, payment.Commission, 0.0)
	assert.InDelta(t, payment.Amount*0.20, payment.Commission, 0.005)
	assert.Zero(t, payment.OperatorPayout)
	assert.InDelta(t, payment.Amount,
		payment.Commission+payment.DriverPayout+payment.OperatorPayout+payment.ServiceFee, 0.001)
}

func TestConfirmPaymentTwiceConflicts(t *testing.T) {
	env := newBookingEnv(t)
	lat, lng := miamiCoords()
	principal := customer()

	job, err := env.svc.CreateBooking(context.Background(), CreateBookingInput{
		Principal: principal,
		Address:   "123 Ocean Dr, Miami",
		Lat:       lat, Lng: lng,
		Items: []pricing.ItemInput{{Category: "general", Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = env.svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{
		Principal: principal, JobID: job.ID,
	})
	require.NoError(t, err)

	_, err = env.svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{
		Principal: principal, JobID: job.ID,
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestConfirmPaymentForeignCustomer(t *testing.T) {
	env := newBookingEnv(t)
	lat, lng := miamiCoords()

	job, err := env.svc.CreateBooking(context.Background(), CreateBookingInput{
		Principal: customer(),
		Address:   "123 Ocean Dr, Miami",
		Lat:       lat, Lng: lng,
		Items: []pricing.ItemInput{{Category: "general", Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = env.svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{
		Principal: customer(), // different user
		JobID:     job.ID,
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestConfirmationCodesUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code := newConfirmationCode()
		assert.Len(t, code, 8)
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}
