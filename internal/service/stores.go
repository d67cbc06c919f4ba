package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/umuve/dispatch-engine/internal/model"
)

// Store interfaces mirror the repository layer. Services depend on these so
// tests can run against in-memory fakes.

type JobStore interface {
	Create(ctx context.Context, job *model.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Job, error)
	GetByConfirmationCode(ctx context.Context, code string) (*model.Job, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, status *model.JobStatus) ([]model.Job, error)
	ListByDriver(ctx context.Context, driverID uuid.UUID, statuses []model.JobStatus) ([]model.Job, error)
	ListFleetJobs(ctx context.Context, operatorID uuid.UUID, from, to time.Time) ([]model.FleetJobRow, error)
	Update(ctx context.Context, job *model.Job) error
	UpdateWithPayment(ctx context.Context, job *model.Job, payment *model.Payment) error
}

type ContractorStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Contractor, error)
	GetSummary(ctx context.Context, id uuid.UUID) (*model.ContractorSummary, error)
	UpdateLocation(ctx context.Context, id uuid.UUID, lat, lng float64) error
	UpdateAvailability(ctx context.Context, id uuid.UUID, online bool) error
	IncrementTotalJobs(ctx context.Context, id uuid.UUID) error
}

type PaymentStore interface {
	Create(ctx context.Context, payment *model.Payment) error
	GetByJobID(ctx context.Context, jobID uuid.UUID) (*model.Payment, error)
	Update(ctx context.Context, payment *model.Payment) error
}

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetSignedUpReferral(ctx context.Context, refereeID uuid.UUID) (*model.Referral, error)
	CompleteReferral(ctx context.Context, referralID uuid.UUID, at time.Time) error
}

// DriverSelector picks a contractor for a job. matching.Selector is the
// production implementation.
type DriverSelector interface {
	Select(ctx context.Context, job *model.Job) (*model.Contractor, error)
}
