package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/umuve/dispatch-engine/internal/model"
)

type ContractorRepository struct {
	db *gorm.DB
}

func NewContractorRepository(db *gorm.DB) *ContractorRepository {
	return &ContractorRepository{db: db}
}

func (r *ContractorRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Contractor, error) {
	var contractor model.Contractor
	err := r.db.WithContext(ctx).First(&contractor, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &contractor, nil
}

func (r *ContractorRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Contractor, error) {
	var contractor model.Contractor
	err := r.db.WithContext(ctx).First(&contractor, "user_id = ?", userID).Error
	if err != nil {
		return nil, err
	}
	return &contractor, nil
}

// ListCandidates returns contractors eligible for auto-assignment: online,
// approved, non-operator, fleet-matched, and idle. A nil operatorID limits
// the pool to independent drivers; a set operatorID limits it to that fleet.
// Rows come back oldest-updated first so drivers idle longest are tried
// before recently active ones.
func (r *ContractorRepository) ListCandidates(
	ctx context.Context,
	operatorID *uuid.UUID,
) ([]model.Contractor, error) {
	query := `
		SELECT c.*
		FROM contractors c
		WHERE c.is_online = TRUE
			AND c.approval_status = 'approved'
			AND c.is_operator = FALSE
			AND NOT EXISTS (
				SELECT 1 FROM jobs j
				WHERE j.driver_id = c.id
					AND j.status IN ('accepted', 'en_route', 'arrived', 'started')
			)
	`
	args := []interface{}{}
	if operatorID != nil {
		query += " AND c.operator_id = ?"
		args = append(args, *operatorID)
	} else {
		query += " AND c.operator_id IS NULL"
	}
	query += " ORDER BY c.updated_at ASC"

	var contractors []model.Contractor
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&contractors).Error; err != nil {
		return nil, err
	}
	return contractors, nil
}

func (r *ContractorRepository) UpdateLocation(ctx context.Context, id uuid.UUID, lat, lng float64) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE contractors
		SET current_lat = ?, current_lng = ?, updated_at = NOW()
		WHERE id = ?
	`, lat, lng, id).Error
}

func (r *ContractorRepository) UpdateAvailability(ctx context.Context, id uuid.UUID, online bool) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE contractors
		SET is_online = ?, updated_at = NOW()
		WHERE id = ?
	`, online, id).Error
}

func (r *ContractorRepository) IncrementTotalJobs(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE contractors
		SET total_jobs = total_jobs + 1, updated_at = NOW()
		WHERE id = ?
	`, id).Error
}

// GetSummary returns the public-safe driver card shown on the customer's
// tracking view.
func (r *ContractorRepository) GetSummary(ctx context.Context, id uuid.UUID) (*model.ContractorSummary, error) {
	var summary model.ContractorSummary
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			u.name,
			c.truck_type,
			c.avg_rating,
			c.total_jobs
		FROM contractors c
		JOIN users u ON u.id = c.user_id
		WHERE c.id = ?
	`, id).Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
