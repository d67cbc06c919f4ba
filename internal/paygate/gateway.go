// Package paygate abstracts the card processor. The engine only needs three
// operations: open a charge for a booking, adjust its amount after a volume
// renegotiation, and release payouts on completion.
package paygate

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Gateway interface {
	// CreateCharge opens a pending charge and returns the gateway reference.
	CreateCharge(ctx context.Context, jobID uuid.UUID, amount float64) (string, error)
	// UpdateCharge changes the amount of an open charge.
	UpdateCharge(ctx context.Context, gatewayRef string, amount float64) error
	// Refund returns funds on a captured charge.
	Refund(ctx context.Context, gatewayRef string, amount float64) error
	// ReleasePayout queues the driver and operator payouts for a completed job.
	ReleasePayout(ctx context.Context, jobID uuid.UUID, driverAmount, operatorAmount float64) error
}

// LogGateway is the development gateway: operations always succeed and are
// only logged. Charge refs are synthesized from the job ID.
type LogGateway struct {
	Log zerolog.Logger
}

func (g LogGateway) CreateCharge(_ context.Context, jobID uuid.UUID, amount float64) (string, error) {
	ref := fmt.Sprintf("dev_%s", jobID)
	g.Log.Info().Str("ref", ref).Float64("amount", amount).Msg("charge created")
	return ref, nil
}

func (g LogGateway) UpdateCharge(_ context.Context, gatewayRef string, amount float64) error {
	g.Log.Info().Str("ref", gatewayRef).Float64("amount", amount).Msg("charge updated")
	return nil
}

func (g LogGateway) Refund(_ context.Context, gatewayRef string, amount float64) error {
	g.Log.Info().Str("ref", gatewayRef).Float64("amount", amount).Msg("charge refunded")
	return nil
}

func (g LogGateway) ReleasePayout(_ context.Context, jobID uuid.UUID, driverAmount, operatorAmount float64) error {
	g.Log.Info().
		Str("job_id", jobID.String()).
		Float64("driver_amount", driverAmount).
		Float64("operator_amount", operatorAmount).
		Msg("payout released")
	return nil
}
