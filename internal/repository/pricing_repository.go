package repository

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/umuve/dispatch-engine/internal/model"
	"github.com/umuve/dispatch-engine/internal/pricing"
)

// PricingRepository backs the price calculator with database overrides. It
// satisfies pricing.Overrides, whose methods carry no error returns: a
// failed read falls back to defaults and is logged, so a flaky pricing table
// degrades quotes rather than failing bookings.
type PricingRepository struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewPricingRepository(db *gorm.DB, log zerolog.Logger) *PricingRepository {
	return &PricingRepository{db: db, log: log}
}

func (r *PricingRepository) UnitPrice(ctx context.Context, itemType string) (float64, bool) {
	var rows []float64
	err := r.db.WithContext(ctx).Raw(`
		SELECT base_price FROM pricing_rules
		WHERE item_type = ? AND is_active = TRUE
		LIMIT 1
	`, itemType).Scan(&rows).Error
	if err != nil {
		r.log.Error().Err(err).Str("item_type", itemType).Msg("pricing rule lookup failed")
		return 0, false
	}
	if len(rows) == 0 {
		return 0, false
	}
	return rows[0], true
}

func (r *PricingRepository) Settings(ctx context.Context) pricing.Settings {
	settings := pricing.DefaultSettings()

	var configs []model.PricingConfig
	if err := r.db.WithContext(ctx).Find(&configs).Error; err != nil {
		r.log.Error().Err(err).Msg("pricing config lookup failed")
		return settings
	}

	for _, cfg := range configs {
		switch cfg.Key {
		case "minimum_job_price":
			decodeInto(r.log, cfg, &settings.MinimumJobPrice)
		case "service_fee_rate":
			decodeInto(r.log, cfg, &settings.ServiceFeeRate)
		case "same_day_surge":
			decodeInto(r.log, cfg, &settings.SameDaySurge)
		case "next_day_surge":
			decodeInto(r.log, cfg, &settings.NextDaySurge)
		case "weekend_surge":
			decodeInto(r.log, cfg, &settings.WeekendSurge)
		case "volume_tiers":
			var tiers []pricing.Tier
			if decodeInto(r.log, cfg, &tiers) && len(tiers) > 0 {
				settings.Tiers = tiers
			}
		}
	}
	return settings
}

func (r *PricingRepository) ActiveZones(ctx context.Context) []model.SurgeZone {
	var zones []model.SurgeZone
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Find(&zones).Error
	if err != nil {
		r.log.Error().Err(err).Msg("surge zone lookup failed")
		return nil
	}
	return zones
}

func decodeInto(log zerolog.Logger, cfg model.PricingConfig, dst any) bool {
	if err := json.Unmarshal(cfg.Value, dst); err != nil {
		log.Warn().Err(err).Str("key", cfg.Key).Msg("bad pricing config value")
		return false
	}
	return true
}
