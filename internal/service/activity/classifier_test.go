package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umutcvc/MySomatra-sub000/internal/domain"
	"github.com/umutcvc/MySomatra-sub000/internal/service/telemetry"
)

func trainedClassifier(t *testing.T) (*Classifier, *telemetry.Store) {
	t.Helper()
	store := telemetry.NewStore()
	store.SetConnected(true)

	c := NewCollector(store, nil, CollectorConfig{WindowSize: 8, Overlap: 0.5})
	c.samples = []domain.ActivitySample{
		sineSample(domain.ActivityStill, 32, 0.3, 0.05),
		sineSample(domain.ActivityRunning, 32, 18, 1.5),
	}
	tr := NewTrainer(c, nil, 42)
	require.NoError(t, tr.Train(nil))

	return NewClassifier(store, tr, nil, 10*time.Millisecond), store
}

func TestClassifierRequiresModel(t *testing.T) {
	store := telemetry.NewStore()
	c := NewCollector(store, nil, CollectorConfig{})
	tr := NewTrainer(c, nil, 1)

	cl := NewClassifier(store, tr, nil, 0)
	assert.ErrorIs(t, cl.Start(nil), domain.ErrNoModel)
	assert.False(t, cl.IsRunning())
}

func TestClassifierEmitsResults(t *testing.T) {
	cl, store := trainedClassifier(t)

	results := make(chan domain.ClassificationResult, 16)
	require.NoError(t, cl.Start(func(r domain.ClassificationResult) {
		select {
		case results <- r:
		default:
		}
	}))
	defer cl.Stop()
	assert.True(t, cl.IsRunning())

	// Fill the rolling buffer past one window.
	go feed(store, 20, 2*time.Millisecond)

	var r domain.ClassificationResult
	select {
	case r = <-results:
	case <-time.After(3 * time.Second):
		t.Fatal("no classification produced")
	}

	require.Len(t, r.Percentages, len(domain.Activities))
	sum := 0.0
	maxPct := 0.0
	for _, pct := range r.Percentages {
		assert.GreaterOrEqual(t, pct, 0.0)
		sum += pct
		if pct > maxPct {
			maxPct = pct
		}
	}
	assert.InDelta(t, 100.0, sum, 1e-6, "smoothed percentages sum to 100")
	assert.Equal(t, maxPct, r.Percentages[r.CurrentActivity], "current activity is the argmax")
	assert.InDelta(t, maxPct, r.Confidence, 1e-9)
}

func TestClassifierStartIsIdempotent(t *testing.T) {
	cl, _ := trainedClassifier(t)

	require.NoError(t, cl.Start(nil))
	defer cl.Stop()

	// A second start never spawns a second loop.
	require.NoError(t, cl.Start(nil))
	assert.True(t, cl.IsRunning())
}

func TestClassifierStopsOnDisconnect(t *testing.T) {
	cl, store := trainedClassifier(t)
	require.NoError(t, cl.Start(nil))

	store.SetConnected(false)

	assert.Eventually(t, func() bool { return !cl.IsRunning() },
		time.Second, 5*time.Millisecond)

	// Stop after auto-stop is a safe no-op.
	cl.Stop()
}
