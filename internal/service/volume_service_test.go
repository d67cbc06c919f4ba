package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umuve/dispatch-engine/internal/model"
	"github.com/umuve/dispatch-engine/internal/pricing"
)

type volumeEnv struct {
	svc         *VolumeService
	jobs        *fakeJobStore
	payments    *fakePaymentStore
	contractors *fakeContractorStore
	gateway     *fakeGateway
}

func newVolumeEnv(t *testing.T) *volumeEnv {
	t.Helper()

	jobs := newFakeJobStore()
	payments := newFakePaymentStore()
	jobs.payments = payments
	contractors := newFakeContractorStore()
	gateway := newFakeGateway()

	svc := NewVolumeService(
		pricing.NewCalculator(nil),
		jobs, payments, contractors, gateway, nil, nil,
		NewJobLocks(), testConfig(), zerolog.Nop(),
	)
	return &volumeEnv{
		svc:         svc,
		jobs:        jobs,
		payments:    payments,
		contractors: contractors,
		gateway:     gateway,
	}
}

// arrivedJob seeds a job in arrived status with a succeeded payment.
func (e *volumeEnv) arrivedJob(total float64) (model.Job, model.Contractor) {
	driver := model.Contractor{
		ID:                     uuid.New(),
		UserID:                 uuid.New(),
		ApprovalStatus:         model.ApprovalStatusApproved,
		OperatorCommissionRate: 0.15,
	}
	e.contractors.contractors[driver.ID] = driver

	job := model.Job{
		ID:         uuid.New(),
		CustomerID: uuid.New(),
		DriverID:   &driver.ID,
		Status:     model.JobStatusArrived,
		Address:    "123 Ocean Dr, Miami",
		TotalPrice: total,
	}
	e.jobs.jobs[job.ID] = job

	ref := "ch_" + job.ID.String()
	e.payments.payments[job.ID] = model.Payment{
		ID:            uuid.New(),
		JobID:         job.ID,
		GatewayRef:    &ref,
		Amount:        total,
		PaymentStatus: model.PaymentStatusSucceeded,
	}
	e.gateway.charges[ref] = total
	return job, driver
}

func driverFor(job model.Job, driver model.Contractor) model.Principal {
	return model.Principal{UserID: driver.UserID, Role: "driver", ContractorID: driver.ID}
}

func customerFor(job model.Job) model.Principal {
	return model.Principal{UserID: job.CustomerID, Role: "customer"}
}

func TestProposeLowerPriceAutoApplies(t *testing.T) {
	env := newVolumeEnv(t)
	job, driver := env.arrivedJob(500.00)

	// 3 cubic yards maps to 2 general items: well under the booked $500.
	result, err := env.svc.Propose(context.Background(), ProposeInput{
		Principal:      driverFor(job, driver),
		JobID:          job.ID,
		MeasuredVolume: 3,
	})
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.False(t, result.RequiresApproval)
	assert.Less(t, result.NewPrice, 500.00)

	stored, _ := env.jobs.GetByID(context.Background(), job.ID)
	assert.Equal(t, result.NewPrice, stored.TotalPrice)
	assert.False(t, stored.VolumeAdjustmentProposed)
	require.NotNil(t, stored.VolumeEstimate)
	assert.Equal(t, 3.0, *stored.VolumeEstimate)

	payment, _ := env.payments.GetByJobID(context.Background(), job.ID)
	assert.Equal(t, result.NewPrice, payment.Amount)
	require.Len(t, env.gateway.chargeUpdates, 1)
	assert.Equal(t, result.NewPrice, env.gateway.chargeUpdates[0])
}

func TestProposeLowerPriceRecomputesSplit(t *testing.T) {
	env := newVolumeEnv(t)
	job, driver := env.arrivedJob(500.00)

	// Split as it stood when the $500 charge was captured.
	payment := env.payments.payments[job.ID]
	payment.Commission = 100.00
	payment.DriverPayout = 400.00
	env.payments.payments[job.ID] = payment

	_, err := env.svc.Propose(context.Background(), ProposeInput{
		Principal:      driverFor(job, driver),
		JobID:          job.ID,
		MeasuredVolume: 3,
	})
	require.NoError(t, err)

	// 2 general items re-price to the $89 floor with a $4.80 fee; the old
	// $500 split must not survive the adjustment.
	got, _ := env.payments.GetByJobID(context.Background(), job.ID)
	assert.InDelta(t, 89.00, got.Amount, 0.001)
	assert.InDelta(t, 4.80, got.ServiceFee, 0.001)
	assert.InDelta(t, 17.80, got.Commission, 0.001)
	assert.InDelta(t, 66.40, got.DriverPayout, 0.001)
	assert.Zero(t, got.OperatorPayout)
	assert.InDelta(t, got.Amount,
		got.Commission+got.DriverPayout+got.OperatorPayout+got.ServiceFee, 0.001)
}

func TestProposeHigherPriceNeedsApproval(t *testing.T) {
	env := newVolumeEnv(t)
	job, driver := env.arrivedJob(89.00)

	// 20 cubic yards maps to 16 general items: far above the booked $89.
	result, err := env.svc.Propose(context.Background(), ProposeInput{
		Principal:      driverFor(job, driver),
		JobID:          job.ID,
		MeasuredVolume: 20,
	})
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.True(t, result.RequiresApproval)
	assert.Greater(t, result.NewPrice, 89.00)

	stored, _ := env.jobs.GetByID(context.Background(), job.ID)
	assert.True(t, stored.VolumeAdjustmentProposed)
	require.NotNil(t, stored.AdjustedPrice)
	assert.Equal(t, result.NewPrice, *stored.AdjustedPrice)
	// Price stands until the customer decides.
	assert.Equal(t, 89.00, stored.TotalPrice)
	assert.Empty(t, env.gateway.chargeUpdates)
}

func TestProposeGuards(t *testing.T) {
	env := newVolumeEnv(t)
	job, driver := env.arrivedJob(100.00)

	// Wrong driver.
	_, err := env.svc.Propose(context.Background(), ProposeInput{
		Principal:      model.Principal{Role: "driver", ContractorID: uuid.New()},
		JobID:          job.ID,
		MeasuredVolume: 5,
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// Wrong status.
	enRoute := env.jobs.jobs[job.ID]
	enRoute.Status = model.JobStatusEnRoute
	env.jobs.jobs[job.ID] = enRoute
	_, err = env.svc.Propose(context.Background(), ProposeInput{
		Principal:      driverFor(job, driver),
		JobID:          job.ID,
		MeasuredVolume: 5,
	})
	assert.ErrorIs(t, err, ErrConflict)

	// Non-positive volume.
	_, err = env.svc.Propose(context.Background(), ProposeInput{
		Principal:      driverFor(job, driver),
		JobID:          job.ID,
		MeasuredVolume: 0,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestProposeOnlyOnePending(t *testing.T) {
	env := newVolumeEnv(t)
	job, driver := env.arrivedJob(89.00)

	_, err := env.svc.Propose(context.Background(), ProposeInput{
		Principal:      driverFor(job, driver),
		JobID:          job.ID,
		MeasuredVolume: 20,
	})
	require.NoError(t, err)

	_, err = env.svc.Propose(context.Background(), ProposeInput{
		Principal:      driverFor(job, driver),
		JobID:          job.ID,
		MeasuredVolume: 25,
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestApproveAppliesProposal(t *testing.T) {
	env := newVolumeEnv(t)
	job, driver := env.arrivedJob(89.00)

	proposed, err := env.svc.Propose(context.Background(), ProposeInput{
		Principal:      driverFor(job, driver),
		JobID:          job.ID,
		MeasuredVolume: 20,
	})
	require.NoError(t, err)

	got, err := env.svc.Approve(context.Background(), VolumeDecisionInput{
		Principal: customerFor(job),
		JobID:     job.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, proposed.NewPrice, got.TotalPrice)
	assert.False(t, got.VolumeAdjustmentProposed)
	assert.Nil(t, got.AdjustedPrice)
	assert.Nil(t, got.AdjustedVolume)
	require.NotNil(t, got.VolumeEstimate)
	assert.Equal(t, 20.0, *got.VolumeEstimate)

	payment, _ := env.payments.GetByJobID(context.Background(), job.ID)
	assert.Equal(t, proposed.NewPrice, payment.Amount)
	require.Len(t, env.gateway.chargeUpdates, 1)

	// 16 general items: $414.72 gross, $30.72 fee, 20% commission.
	assert.InDelta(t, 82.94, payment.Commission, 0.001)
	assert.InDelta(t, 301.06, payment.DriverPayout, 0.001)
	assert.Zero(t, payment.OperatorPayout)
	assert.InDelta(t, payment.Amount,
		payment.Commission+payment.DriverPayout+payment.OperatorPayout+payment.ServiceFee, 0.001)
}

func TestApproveWithoutProposalConflicts(t *testing.T) {
	env := newVolumeEnv(t)
	job, _ := env.arrivedJob(89.00)

	_, err := env.svc.Approve(context.Background(), VolumeDecisionInput{
		Principal: customerFor(job),
		JobID:     job.ID,
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestApproveRejectsForeignCustomer(t *testing.T) {
	env := newVolumeEnv(t)
	job, driver := env.arrivedJob(89.00)

	_, err := env.svc.Propose(context.Background(), ProposeInput{
		Principal:      driverFor(job, driver),
		JobID:          job.ID,
		MeasuredVolume: 20,
	})
	require.NoError(t, err)

	_, err = env.svc.Approve(context.Background(), VolumeDecisionInput{
		Principal: model.Principal{UserID: uuid.New(), Role: "customer"},
		JobID:     job.ID,
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestDeclineCancelsWithTripFee(t *testing.T) {
	env := newVolumeEnv(t)
	job, driver := env.arrivedJob(89.00)

	_, err := env.svc.Propose(context.Background(), ProposeInput{
		Principal:      driverFor(job, driver),
		JobID:          job.ID,
		MeasuredVolume: 20,
	})
	require.NoError(t, err)

	got, err := env.svc.Decline(context.Background(), VolumeDecisionInput{
		Principal: customerFor(job),
		JobID:     job.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, model.JobStatusCancelled, got.Status)
	assert.Equal(t, 50.0, got.CancellationFee)
	require.NotNil(t, got.CancelledAt)
	assert.False(t, got.VolumeAdjustmentProposed)

	payment, _ := env.payments.GetByJobID(context.Background(), job.ID)
	assert.Equal(t, 50.0, payment.Amount)
	assert.Equal(t, model.PaymentStatusRefunded, payment.PaymentStatus)
	// $89 captured, $50 trip fee kept, $39 back to the customer.
	require.Len(t, env.gateway.refunds, 1)
	assert.InDelta(t, 39.0, env.gateway.refunds[0], 0.001)
	// Trip fee splits between platform and driver.
	assert.InDelta(t, 10.0, payment.Commission, 0.001)
	assert.InDelta(t, 40.0, payment.DriverPayout, 0.001)
}
