package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BillLee1st/FundDance/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "funddance.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newRun(started time.Time) *models.Run {
	return &models.Run{
		StartedAt: started,
		Command:   "python3",
		Args:      []string{"bk/bk_vis/bk_fetch_data.py", "--full"},
		LogPath:   "/data/logs/fetch_data.log",
		Status:    models.RunStatusRunning,
	}
}

func TestCreateAndGetRun(t *testing.T) {
	s := newTestStorage(t)

	run := newRun(time.Now())
	id, err := s.CreateRun(run)
	require.NoError(t, err)
	require.NotZero(t, id)

	got, err := s.GetRun(id)
	require.NoError(t, err)

	assert.Equal(t, id, got.ID)
	assert.Equal(t, "python3", got.Command)
	assert.Equal(t, []string{"bk/bk_vis/bk_fetch_data.py", "--full"}, got.Args)
	assert.Equal(t, "/data/logs/fetch_data.log", got.LogPath)
	assert.Equal(t, models.RunStatusRunning, got.Status)
	assert.Nil(t, got.ExitCode)
	assert.Nil(t, got.CompletedAt)
}

func TestGetRunMissing(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.GetRun(42)
	assert.Error(t, err)
}

func TestUpdateRun(t *testing.T) {
	s := newTestStorage(t)

	run := newRun(time.Now())
	id, err := s.CreateRun(run)
	require.NoError(t, err)
	run.ID = id

	now := time.Now()
	code := 1
	run.CompletedAt = &now
	run.ExitCode = &code
	run.Status = models.RunStatusFailed
	require.NoError(t, s.UpdateRun(run))

	got, err := s.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, got.Status)
	require.NotNil(t, got.ExitCode)
	assert.Equal(t, 1, *got.ExitCode)
	require.NotNil(t, got.CompletedAt)
}

func TestListRunsNewestFirst(t *testing.T) {
	s := newTestStorage(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		_, err := s.CreateRun(newRun(base.Add(time.Duration(i) * time.Minute)))
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt))
	assert.True(t, runs[1].StartedAt.After(runs[2].StartedAt))

	runs, err = s.ListRuns(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestDeleteRun(t *testing.T) {
	s := newTestStorage(t)

	id, err := s.CreateRun(newRun(time.Now()))
	require.NoError(t, err)

	require.NoError(t, s.DeleteRun(id))

	_, err = s.GetRun(id)
	assert.Error(t, err)
}
