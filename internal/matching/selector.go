// Package matching picks a contractor for a confirmed job.
package matching

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/umuve/dispatch-engine/internal/geo"
	"github.com/umuve/dispatch-engine/internal/model"
)

// ErrNoCandidates means no eligible contractor exists right now. Callers
// leave the job unassigned rather than failing the booking.
var ErrNoCandidates = errors.New("no eligible contractors")

// CandidateSource lists contractors eligible for assignment: online,
// approved, idle, and matching the fleet restriction. Rows are ordered
// oldest-updated first.
type CandidateSource interface {
	ListCandidates(ctx context.Context, operatorID *uuid.UUID) ([]model.Contractor, error)
}

type Selector struct {
	source   CandidateSource
	radiusKM float64
	log      zerolog.Logger
}

func NewSelector(source CandidateSource, radiusKM float64, log zerolog.Logger) *Selector {
	return &Selector{source: source, radiusKM: radiusKM, log: log}
}

// Select returns the contractor to assign. Jobs delegated to an operator
// (OperatorID set) draw from that fleet only; otherwise the pool is
// independent drivers.
//
// With pickup coordinates known, the nearest located candidate within the
// radius wins. Without coordinates on either side, the candidate idle
// longest wins.
func (s *Selector) Select(ctx context.Context, job *model.Job) (*model.Contractor, error) {
	candidates, err := s.source.ListCandidates(ctx, job.OperatorID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	if job.Lat == nil || job.Lng == nil {
		return &candidates[0], nil
	}

	var best *model.Contractor
	bestDist := s.radiusKM
	anyLocated := false
	for i := range candidates {
		c := &candidates[i]
		if c.CurrentLat == nil || c.CurrentLng == nil {
			continue
		}
		anyLocated = true

		dist := geo.Haversine(*job.Lat, *job.Lng, *c.CurrentLat, *c.CurrentLng)
		if dist <= bestDist {
			best = c
			bestDist = dist
		}
	}

	if best != nil {
		s.log.Debug().
			Str("job_id", job.ID.String()).
			Str("contractor_id", best.ID.String()).
			Float64("distance_km", bestDist).
			Msg("matched nearest contractor")
		return best, nil
	}

	// No candidate reports a position: fall back to the longest-idle one.
	// If positions are known but all are out of range, leave unassigned.
	if !anyLocated {
		return &candidates[0], nil
	}
	return nil, ErrNoCandidates
}
