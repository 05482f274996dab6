package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/garden-ledger/internal/jobs"
)

func TestStore_ListJobs(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	for i, j := range []jobs.MessageJob{
		{JobID: "a", UserID: "U1", Status: jobs.JobStatusCompleted},
		{JobID: "b", UserID: "U2", Status: jobs.JobStatusFailed},
		{JobID: "c", UserID: "U1", Status: jobs.JobStatusPending},
	} {
		j.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.SaveJob(ctx, &j))
	}

	all, err := s.ListJobs(ctx, jobs.JobFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].JobID)

	mine, err := s.ListJobs(ctx, jobs.JobFilter{UserID: "U1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "c", mine[0].JobID)

	failed, err := s.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "b", failed[0].JobID)

	none, err := s.ListJobs(ctx, jobs.JobFilter{Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_GetAndUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
	assert.ErrorIs(t, s.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, ""), jobs.ErrJobNotFound)
	assert.Error(t, s.SaveJob(ctx, &jobs.MessageJob{}))

	job := &jobs.MessageJob{JobID: "a", Status: jobs.JobStatusRunning}
	require.NoError(t, s.SaveJob(ctx, job))
	job.Status = jobs.JobStatusFailed // mutation after save must not leak

	got, err := s.GetJob(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusRunning, got.Status)

	require.NoError(t, s.UpdateJobStatus(ctx, "a", jobs.JobStatusFailed, "boom"))
	got, err = s.GetJob(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)
}
