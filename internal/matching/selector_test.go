package matching

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umuve/dispatch-engine/internal/model"
)

type fakeSource struct {
	candidates []model.Contractor
	gotFleet   *uuid.UUID
}

func (f *fakeSource) ListCandidates(_ context.Context, operatorID *uuid.UUID) ([]model.Contractor, error) {
	f.gotFleet = operatorID
	return f.candidates, nil
}

func located(lat, lng float64) model.Contractor {
	return model.Contractor{
		ID:         uuid.New(),
		CurrentLat: &lat,
		CurrentLng: &lng,
	}
}

func jobAt(lat, lng float64) *model.Job {
	return &model.Job{ID: uuid.New(), Lat: &lat, Lng: &lng}
}

func TestSelectNearest(t *testing.T) {
	near := located(25.77, -80.20)   // ~1 km from pickup
	far := located(26.70, -80.05)    // ~100 km away
	medium := located(25.90, -80.15) // ~15 km

	src := &fakeSource{candidates: []model.Contractor{far, medium, near}}
	sel := NewSelector(src, 50, zerolog.Nop())

	got, err := sel.Select(context.Background(), jobAt(25.7617, -80.1918))
	require.NoError(t, err)
	assert.Equal(t, near.ID, got.ID)
}

func TestSelectRespectsRadius(t *testing.T) {
	far := located(28.54, -81.38) // Orlando, ~320 km
	src := &fakeSource{candidates: []model.Contractor{far}}
	sel := NewSelector(src, 50, zerolog.Nop())

	_, err := sel.Select(context.Background(), jobAt(25.7617, -80.1918))
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestSelectNoCandidates(t *testing.T) {
	sel := NewSelector(&fakeSource{}, 50, zerolog.Nop())

	_, err := sel.Select(context.Background(), jobAt(25.7617, -80.1918))
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestSelectFallbackWithoutJobLocation(t *testing.T) {
	first := model.Contractor{ID: uuid.New()}
	second := located(25.77, -80.20)
	src := &fakeSource{candidates: []model.Contractor{first, second}}
	sel := NewSelector(src, 50, zerolog.Nop())

	got, err := sel.Select(context.Background(), &model.Job{ID: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestSelectFallbackWhenNoCandidateLocated(t *testing.T) {
	first := model.Contractor{ID: uuid.New()}
	second := model.Contractor{ID: uuid.New()}
	src := &fakeSource{candidates: []model.Contractor{first, second}}
	sel := NewSelector(src, 50, zerolog.Nop())

	got, err := sel.Select(context.Background(), jobAt(25.7617, -80.1918))
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestSelectPassesFleetRestriction(t *testing.T) {
	operatorID := uuid.New()
	src := &fakeSource{candidates: []model.Contractor{located(25.77, -80.20)}}
	sel := NewSelector(src, 50, zerolog.Nop())

	job := jobAt(25.7617, -80.1918)
	job.OperatorID = &operatorID

	_, err := sel.Select(context.Background(), job)
	require.NoError(t, err)
	require.NotNil(t, src.gotFleet)
	assert.Equal(t, operatorID, *src.gotFleet)
}
