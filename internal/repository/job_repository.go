package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/umuve/dispatch-engine/internal/model"
)

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, job *model.Job) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	var job model.Job
	err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) GetByConfirmationCode(ctx context.Context, code string) (*model.Job, error) {
	var job model.Job
	err := r.db.WithContext(ctx).First(&job, "confirmation_code = ?", code).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) ListByCustomer(
	ctx context.Context,
	customerID uuid.UUID,
	status *model.JobStatus,
) ([]model.Job, error) {
	query := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var jobs []model.Job
	if err := query.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *JobRepository) ListByDriver(
	ctx context.Context,
	driverID uuid.UUID,
	statuses []model.JobStatus,
) ([]model.Job, error) {
	query := r.db.WithContext(ctx).
		Where("driver_id = ?", driverID).
		Order("scheduled_at ASC")
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var jobs []model.Job
	if err := query.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// CountActiveByDriver counts jobs the contractor is currently working on.
// Matching treats any non-zero count as busy.
func (r *JobRepository) CountActiveByDriver(ctx context.Context, driverID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM jobs
		WHERE driver_id = ?
			AND status IN ('accepted', 'en_route', 'arrived', 'started')
	`, driverID).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *JobRepository) Update(ctx context.Context, job *model.Job) error {
	return r.db.WithContext(ctx).Save(job).Error
}

// UpdateWithPayment writes the job and its payment atomically. Price changes
// and their payment splits must never be visible half-applied.
func (r *JobRepository) UpdateWithPayment(ctx context.Context, job *model.Job, payment *model.Payment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(job).Error; err != nil {
			return err
		}
		if payment != nil {
			return tx.Save(payment).Error
		}
		return nil
	})
}

// ListFleetJobs returns jobs delegated to the operator's fleet, joined with
// driver names and payout amounts for the spreadsheet export.
func (r *JobRepository) ListFleetJobs(
	ctx context.Context,
	operatorID uuid.UUID,
	from, to time.Time,
) ([]model.FleetJobRow, error) {
	var rows []model.FleetJobRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			j.confirmation_code,
			j.status,
			j.address,
			u.name AS driver_name,
			j.scheduled_at,
			j.completed_at,
			j.total_price,
			COALESCE(p.driver_payout, 0) AS driver_payout
		FROM jobs j
		LEFT JOIN contractors c ON c.id = j.driver_id
		LEFT JOIN users u ON u.id = c.user_id
		LEFT JOIN payments p ON p.job_id = j.id
		WHERE j.operator_id = ?
			AND j.created_at >= ?
			AND j.created_at < ?
		ORDER BY j.created_at ASC
	`, operatorID, from, to).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
