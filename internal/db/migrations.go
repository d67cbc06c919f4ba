package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		email VARCHAR(255) UNIQUE,
		phone VARCHAR(32),
		name VARCHAR(255),
		role VARCHAR(32) NOT NULL DEFAULT 'customer',
		referral_code VARCHAR(16) UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS contractors (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID NOT NULL REFERENCES users(id),
		truck_type VARCHAR(64),
		truck_capacity NUMERIC(8,2),
		is_online BOOLEAN NOT NULL DEFAULT FALSE,
		current_lat DOUBLE PRECISION,
		current_lng DOUBLE PRECISION,
		avg_rating NUMERIC(3,2) NOT NULL DEFAULT 0,
		total_jobs INTEGER NOT NULL DEFAULT 0,
		approval_status VARCHAR(16) NOT NULL DEFAULT 'pending',
		is_operator BOOLEAN NOT NULL DEFAULT FALSE,
		operator_id UUID REFERENCES contractors(id),
		operator_commission_rate NUMERIC(5,4) NOT NULL DEFAULT 0.15,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS jobs (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		customer_id UUID NOT NULL REFERENCES users(id),
		driver_id UUID REFERENCES contractors(id),
		operator_id UUID REFERENCES contractors(id),
		status VARCHAR(16) NOT NULL DEFAULT 'pending',
		delegated_at TIMESTAMPTZ,
		address TEXT NOT NULL,
		lat DOUBLE PRECISION,
		lng DOUBLE PRECISION,
		items JSONB NOT NULL DEFAULT '[]',
		volume_estimate NUMERIC(8,2),
		photos JSONB NOT NULL DEFAULT '[]',
		before_photos JSONB NOT NULL DEFAULT '[]',
		after_photos JSONB NOT NULL DEFAULT '[]',
		scheduled_at TIMESTAMPTZ,
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		cancelled_at TIMESTAMPTZ,
		item_total NUMERIC(10,2) NOT NULL DEFAULT 0,
		base_price NUMERIC(10,2) NOT NULL DEFAULT 0,
		service_fee NUMERIC(10,2) NOT NULL DEFAULT 0,
		surge_multiplier NUMERIC(6,4) NOT NULL DEFAULT 1,
		discount_amount NUMERIC(10,2) NOT NULL DEFAULT 0,
		total_price NUMERIC(10,2) NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		confirmation_code VARCHAR(12) NOT NULL,
		cancellation_fee NUMERIC(10,2) NOT NULL DEFAULT 0,
		rescheduled_count INTEGER NOT NULL DEFAULT 0,
		volume_adjustment_proposed BOOLEAN NOT NULL DEFAULT FALSE,
		adjusted_volume NUMERIC(8,2),
		adjusted_price NUMERIC(10,2),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_jobs_confirmation_code ON jobs (confirmation_code);`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_customer_id ON jobs (customer_id);`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_driver_status ON jobs (driver_id, status) WHERE driver_id IS NOT NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_operator_id ON jobs (operator_id) WHERE operator_id IS NOT NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs (status);`,
	`CREATE TABLE IF NOT EXISTS payments (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		job_id UUID NOT NULL REFERENCES jobs(id),
		gateway_ref VARCHAR(128),
		amount NUMERIC(10,2) NOT NULL DEFAULT 0,
		service_fee NUMERIC(10,2) NOT NULL DEFAULT 0,
		commission NUMERIC(10,2) NOT NULL DEFAULT 0,
		driver_payout NUMERIC(10,2) NOT NULL DEFAULT 0,
		operator_payout NUMERIC(10,2) NOT NULL DEFAULT 0,
		tip_amount NUMERIC(10,2) NOT NULL DEFAULT 0,
		payment_status VARCHAR(16) NOT NULL DEFAULT 'pending',
		payout_status VARCHAR(16) NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_payments_job_id ON payments (job_id);`,
	`CREATE TABLE IF NOT EXISTS referrals (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		referrer_id UUID NOT NULL REFERENCES users(id),
		referee_id UUID REFERENCES users(id),
		referral_code VARCHAR(16) NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'pending',
		reward_amount NUMERIC(10,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMPTZ
	);`,
	`CREATE INDEX IF NOT EXISTS idx_referrals_referee_id ON referrals (referee_id) WHERE referee_id IS NOT NULL;`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID NOT NULL REFERENCES users(id),
		kind VARCHAR(32) NOT NULL,
		title VARCHAR(255) NOT NULL,
		body TEXT NOT NULL DEFAULT '',
		data JSONB NOT NULL DEFAULT '{}',
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications (user_id, created_at DESC);`,
	`CREATE TABLE IF NOT EXISTS pricing_rules (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		item_type VARCHAR(64) NOT NULL,
		base_price NUMERIC(10,2) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_pricing_rules_item_type ON pricing_rules (item_type) WHERE is_active;`,
	`CREATE TABLE IF NOT EXISTS surge_zones (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(128) NOT NULL,
		boundary JSONB NOT NULL DEFAULT '[]',
		surge_multiplier NUMERIC(5,2) NOT NULL DEFAULT 1,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		start_time VARCHAR(5),
		end_time VARCHAR(5),
		days_of_week JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS pricing_configs (
		key VARCHAR(64) PRIMARY KEY,
		value JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
