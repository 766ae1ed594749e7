package activity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umutcvc/MySomatra-sub000/internal/domain"
	"github.com/umutcvc/MySomatra-sub000/internal/service/telemetry"
)

func sineSample(activity domain.ActivityType, n int, amplitude, freq float64) domain.ActivitySample {
	pitches := make([]float64, n)
	for i := range pitches {
		pitches[i] = amplitude * math.Sin(freq*float64(i))
	}
	return domain.ActivitySample{Activity: activity, Pitches: pitches}
}

func testTrainer(t *testing.T) (*Trainer, *Collector) {
	t.Helper()
	store := telemetry.NewStore()
	c := NewCollector(store, nil, CollectorConfig{
		WindowSize: 8,
		Overlap:    0.5,
	})
	return NewTrainer(c, nil, 42), c
}

func TestCanTrain(t *testing.T) {
	tr, c := testTrainer(t)
	assert.False(t, tr.CanTrain(), "empty corpus")

	c.samples = []domain.ActivitySample{
		sineSample(domain.ActivityStill, 40, 0.5, 0.1),
	}
	assert.False(t, tr.CanTrain(), "one sample")

	c.samples = append(c.samples, sineSample(domain.ActivityStill, 40, 0.4, 0.1))
	assert.False(t, tr.CanTrain(), "two samples, one label")

	c.samples = append(c.samples, sineSample(domain.ActivityRunning, 40, 15, 1.2))
	assert.True(t, tr.CanTrain())
}

func TestTrainReportsEveryEpoch(t *testing.T) {
	tr, c := testTrainer(t)
	c.samples = []domain.ActivitySample{
		sineSample(domain.ActivityStill, 48, 0.5, 0.1),
		sineSample(domain.ActivityWalking, 48, 8, 0.8),
		sineSample(domain.ActivityRunning, 48, 18, 1.5),
	}

	var epochs []int
	err := tr.Train(func(p TrainProgress) {
		epochs = append(epochs, p.Epoch)
		assert.Equal(t, totalEpochs, p.TotalEpochs)
		assert.False(t, math.IsNaN(p.Loss))
		assert.GreaterOrEqual(t, p.Accuracy, 0.0)
		assert.LessOrEqual(t, p.Accuracy, 1.0)
	})
	require.NoError(t, err)

	// Exactly one report per epoch, in order, 1 through 30.
	require.Len(t, epochs, totalEpochs)
	for i, e := range epochs {
		assert.Equal(t, i+1, e)
	}

	assert.True(t, tr.HasModel())
	assert.NotNil(t, tr.Model())
}

func TestTrainInsufficientData(t *testing.T) {
	tr, c := testTrainer(t)
	assert.ErrorIs(t, tr.Train(nil), domain.ErrInsufficientData)

	// Two labels but every recording shorter than one window.
	c.samples = []domain.ActivitySample{
		sineSample(domain.ActivityStill, 4, 0.5, 0.1),
		sineSample(domain.ActivityWalking, 4, 8, 0.8),
	}
	assert.ErrorIs(t, tr.Train(nil), domain.ErrInsufficientData)
	assert.False(t, tr.HasModel())
}

func TestTrainReplacesModel(t *testing.T) {
	tr, c := testTrainer(t)
	c.samples = []domain.ActivitySample{
		sineSample(domain.ActivityStill, 32, 0.5, 0.1),
		sineSample(domain.ActivityWalking, 32, 8, 0.8),
	}

	require.NoError(t, tr.Train(nil))
	first := tr.Model()
	require.NotNil(t, first)

	require.NoError(t, tr.Train(nil))
	second := tr.Model()
	require.NotNil(t, second)
	assert.NotSame(t, first, second, "retraining swaps the model wholesale")

	tr.ClearModel()
	assert.False(t, tr.HasModel())
}

func TestModelPredictDistribution(t *testing.T) {
	tr, c := testTrainer(t)
	c.samples = []domain.ActivitySample{
		sineSample(domain.ActivityStill, 48, 0.3, 0.05),
		sineSample(domain.ActivityRunning, 48, 18, 1.5),
	}
	require.NoError(t, tr.Train(nil))

	window := Normalize(sineSample(domain.ActivityRunning, 8, 18, 1.5).Pitches)
	probs := tr.Model().Predict(window)
	require.Len(t, probs, len(domain.Activities))

	sum := 0.0
	for _, p := range probs {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9, "softmax output sums to one")
}
