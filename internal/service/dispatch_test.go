package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umuve/dispatch-engine/internal/matching"
	"github.com/umuve/dispatch-engine/internal/model"
	"github.com/umuve/dispatch-engine/internal/notify"
)

func TestAutoAssignNotifiesBothParties(t *testing.T) {
	jobs := newFakeJobStore()
	contractors := newFakeContractorStore()
	driver := model.Contractor{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		ApprovalStatus: model.ApprovalStatusApproved,
		IsOnline:       true,
	}
	contractors.contractors[driver.ID] = driver

	notifications := &fakeNotificationStore{}
	notifier := notify.New(notifications, nil, zerolog.Nop())
	dispatcher := NewDispatcher(jobs, contractors, &fakeSelector{contractor: &driver}, notifier, nil, zerolog.Nop())

	job := model.Job{
		ID:         uuid.New(),
		CustomerID: uuid.New(),
		Status:     model.JobStatusConfirmed,
		Address:    "123 Ocean Dr, Miami",
	}
	jobs.jobs[job.ID] = job

	assigned, err := dispatcher.AutoAssign(context.Background(), &job)
	require.NoError(t, err)
	assert.True(t, assigned)

	driverRows := notifications.byUser(driver.UserID)
	require.Len(t, driverRows, 1)
	assert.Equal(t, model.NotificationKindNewJob, driverRows[0].Kind)

	customerRows := notifications.byUser(job.CustomerID)
	require.Len(t, customerRows, 1)
	assert.Equal(t, model.NotificationKindJobAssigned, customerRows[0].Kind)
	assert.Equal(t, job.ID.String(), customerRows[0].Data["job_id"])
}

func TestAutoAssignNoCandidatesNotifiesNobody(t *testing.T) {
	jobs := newFakeJobStore()
	contractors := newFakeContractorStore()
	notifications := &fakeNotificationStore{}
	notifier := notify.New(notifications, nil, zerolog.Nop())
	dispatcher := NewDispatcher(jobs, contractors,
		&fakeSelector{selectErr: matching.ErrNoCandidates}, notifier, nil, zerolog.Nop())

	job := model.Job{ID: uuid.New(), CustomerID: uuid.New(), Status: model.JobStatusConfirmed}
	jobs.jobs[job.ID] = job

	assigned, err := dispatcher.AutoAssign(context.Background(), &job)
	require.NoError(t, err)
	assert.False(t, assigned)
	assert.Empty(t, notifications.rows)
}
