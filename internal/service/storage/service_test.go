package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return svc
}

func TestSessionLifecycle(t *testing.T) {
	svc := testService(t)

	started := time.Now().Add(-90 * time.Second)
	id, err := svc.CreateSession("focus", 70, started)
	require.NoError(t, err)
	require.NotZero(t, id)

	s, err := svc.GetSession(id)
	require.NoError(t, err)
	assert.Equal(t, "focus", s.Mode)
	assert.Equal(t, 70, s.Intensity)
	assert.EqualValues(t, 0, s.Duration)
	assert.Nil(t, s.EndedAt)

	require.NoError(t, svc.EndSession(id, time.Now()))

	s, err = svc.GetSession(id)
	require.NoError(t, err)
	require.NotNil(t, s.EndedAt)
	assert.InDelta(t, 90, s.Duration, 2)
}

func TestEndUnknownSession(t *testing.T) {
	svc := testService(t)
	assert.Error(t, svc.EndSession(999, time.Now()))
}

func TestRecentSessionsOrdering(t *testing.T) {
	svc := testService(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		_, err := svc.CreateSession("relax", 40, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}

	list, err := svc.GetRecentSessions(3)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.True(t, list[0].StartedAt.After(list[1].StartedAt))
	assert.True(t, list[1].StartedAt.After(list[2].StartedAt))

	all, err := svc.GetRecentSessions(0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestTotalDuration(t *testing.T) {
	svc := testService(t)
	assert.EqualValues(t, 0, svc.GetTotalDuration(), "empty table sums to zero")

	start := time.Now().Add(-120 * time.Second)
	id1, err := svc.CreateSession("sleep", 30, start)
	require.NoError(t, err)
	require.NoError(t, svc.EndSession(id1, start.Add(60*time.Second)))

	id2, err := svc.CreateSession("hype", 90, start)
	require.NoError(t, err)
	require.NoError(t, svc.EndSession(id2, start.Add(45*time.Second)))

	assert.EqualValues(t, 105, svc.GetTotalDuration())
}
