package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/umuve/dispatch-engine/internal/model"
)

// In-memory fakes for the store interfaces. Methods copy on read/write so
// tests can't accidentally share state through pointers.

type fakeJobStore struct {
	jobs     map[uuid.UUID]model.Job
	payments *fakePaymentStore // mirrors the transactional write when set
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[uuid.UUID]model.Job)}
}

func (f *fakeJobStore) Create(_ context.Context, job *model.Job) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	f.jobs[job.ID] = *job
	return nil
}

func (f *fakeJobStore) GetByID(_ context.Context, id uuid.UUID) (*model.Job, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := job
	return &copied, nil
}

func (f *fakeJobStore) GetByConfirmationCode(_ context.Context, code string) (*model.Job, error) {
	for _, job := range f.jobs {
		if job.ConfirmationCode == code {
			copied := job
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeJobStore) ListByCustomer(_ context.Context, customerID uuid.UUID, status *model.JobStatus) ([]model.Job, error) {
	var out []model.Job
	for _, job := range f.jobs {
		if job.CustomerID != customerID {
			continue
		}
		if status != nil && job.Status != *status {
			continue
		}
		out = append(out, job)
	}
	return out, nil
}

func (f *fakeJobStore) ListByDriver(_ context.Context, driverID uuid.UUID, statuses []model.JobStatus) ([]model.Job, error) {
	var out []model.Job
	for _, job := range f.jobs {
		if job.DriverID == nil || *job.DriverID != driverID {
			continue
		}
		if len(statuses) > 0 {
			matched := false
			for _, s := range statuses {
				if job.Status == s {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		out = append(out, job)
	}
	return out, nil
}

func (f *fakeJobStore) ListFleetJobs(_ context.Context, _ uuid.UUID, _, _ time.Time) ([]model.FleetJobRow, error) {
	return nil, nil
}

func (f *fakeJobStore) Update(_ context.Context, job *model.Job) error {
	f.jobs[job.ID] = *job
	return nil
}

func (f *fakeJobStore) UpdateWithPayment(ctx context.Context, job *model.Job, payment *model.Payment) error {
	f.jobs[job.ID] = *job
	if payment != nil && f.payments != nil {
		return f.payments.Update(ctx, payment)
	}
	return nil
}

type fakeContractorStore struct {
	contractors map[uuid.UUID]model.Contractor
	totalJobs   map[uuid.UUID]int
}

func newFakeContractorStore() *fakeContractorStore {
	return &fakeContractorStore{
		contractors: make(map[uuid.UUID]model.Contractor),
		totalJobs:   make(map[uuid.UUID]int),
	}
}

func (f *fakeContractorStore) GetByID(_ context.Context, id uuid.UUID) (*model.Contractor, error) {
	c, ok := f.contractors[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := c
	return &copied, nil
}

func (f *fakeContractorStore) GetSummary(_ context.Context, id uuid.UUID) (*model.ContractorSummary, error) {
	c, ok := f.contractors[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &model.ContractorSummary{
		TruckType: c.TruckType,
		AvgRating: c.AvgRating,
		TotalJobs: c.TotalJobs,
	}, nil
}

func (f *fakeContractorStore) UpdateLocation(_ context.Context, id uuid.UUID, lat, lng float64) error {
	c := f.contractors[id]
	c.CurrentLat, c.CurrentLng = &lat, &lng
	f.contractors[id] = c
	return nil
}

func (f *fakeContractorStore) UpdateAvailability(_ context.Context, id uuid.UUID, online bool) error {
	c := f.contractors[id]
	c.IsOnline = online
	f.contractors[id] = c
	return nil
}

func (f *fakeContractorStore) IncrementTotalJobs(_ context.Context, id uuid.UUID) error {
	f.totalJobs[id]++
	return nil
}

type fakePaymentStore struct {
	payments map[uuid.UUID]model.Payment // keyed by job ID
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{payments: make(map[uuid.UUID]model.Payment)}
}

func (f *fakePaymentStore) Create(_ context.Context, payment *model.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	f.payments[payment.JobID] = *payment
	return nil
}

func (f *fakePaymentStore) GetByJobID(_ context.Context, jobID uuid.UUID) (*model.Payment, error) {
	p, ok := f.payments[jobID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := p
	return &copied, nil
}

func (f *fakePaymentStore) Update(_ context.Context, payment *model.Payment) error {
	f.payments[payment.JobID] = *payment
	return nil
}

type fakeUserStore struct {
	users     map[uuid.UUID]model.User
	referrals map[uuid.UUID]model.Referral // keyed by referee
	completed []uuid.UUID
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:     make(map[uuid.UUID]model.User),
		referrals: make(map[uuid.UUID]model.Referral),
	}
}

func (f *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := u
	return &copied, nil
}

func (f *fakeUserStore) GetSignedUpReferral(_ context.Context, refereeID uuid.UUID) (*model.Referral, error) {
	r, ok := f.referrals[refereeID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := r
	return &copied, nil
}

func (f *fakeUserStore) CompleteReferral(_ context.Context, referralID uuid.UUID, _ time.Time) error {
	f.completed = append(f.completed, referralID)
	return nil
}

// fakeNotificationStore records persisted notification rows.
type fakeNotificationStore struct {
	rows []model.Notification
}

func (f *fakeNotificationStore) Create(_ context.Context, n *model.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	f.rows = append(f.rows, *n)
	return nil
}

func (f *fakeNotificationStore) byUser(userID uuid.UUID) []model.Notification {
	var out []model.Notification
	for _, n := range f.rows {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// fakeSelector returns a fixed contractor, or selectErr when set.
type fakeSelector struct {
	contractor *model.Contractor
	selectErr  error
	calls      int
}

func (f *fakeSelector) Select(_ context.Context, _ *model.Job) (*model.Contractor, error) {
	f.calls++
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	return f.contractor, nil
}

// fakeGateway records calls and never fails.
type fakeGateway struct {
	charges       map[string]float64
	refunds       []float64
	payouts       []float64
	chargeUpdates []float64
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{charges: make(map[string]float64)}
}

func (f *fakeGateway) CreateCharge(_ context.Context, jobID uuid.UUID, amount float64) (string, error) {
	ref := "ch_" + jobID.String()
	f.charges[ref] = amount
	return ref, nil
}

func (f *fakeGateway) UpdateCharge(_ context.Context, ref string, amount float64) error {
	f.charges[ref] = amount
	f.chargeUpdates = append(f.chargeUpdates, amount)
	return nil
}

func (f *fakeGateway) Refund(_ context.Context, _ string, amount float64) error {
	f.refunds = append(f.refunds, amount)
	return nil
}

func (f *fakeGateway) ReleasePayout(_ context.Context, _ uuid.UUID, driverAmount, operatorAmount float64) error {
	f.payouts = append(f.payouts, driverAmount, operatorAmount)
	return nil
}
