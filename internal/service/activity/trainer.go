package activity

import (
	"math/rand"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/umutcvc/MySomatra-sub000/internal/domain"
)

// Training schedule fixed by the classifier design.
const (
	totalEpochs   = 30
	batchSize     = 32
	validationCut = 0.2
)

// TrainProgress is reported after every epoch.
type TrainProgress struct {
	Epoch       int
	TotalEpochs int
	Loss        float64
	Accuracy    float64
}

// Trainer converts the collected corpus into a fitted model. Not
// reentrant: one training run at a time. The fitted model replaces any
// prior model wholesale.
type Trainer struct {
	collector *Collector
	log       *logrus.Logger
	seed      int64

	mu       sync.Mutex
	training bool
	model    *Model
}

// NewTrainer wires a trainer to the collector's corpus.
func NewTrainer(collector *Collector, log *logrus.Logger, seed int64) *Trainer {
	if log == nil {
		log = logrus.New()
	}
	return &Trainer{collector: collector, log: log, seed: seed}
}

// CanTrain reports whether the corpus spans at least two distinct labels
// and two samples.
func (t *Trainer) CanTrain() bool {
	samples := t.collector.Samples()
	if len(samples) < 2 {
		return false
	}
	labels := map[domain.ActivityType]struct{}{}
	for _, s := range samples {
		labels[s.Activity] = struct{}{}
	}
	return len(labels) >= 2
}

// Model returns the live model, or nil before the first successful train.
func (t *Trainer) Model() *Model {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.model
}

// HasModel reports whether a trained model is loaded.
func (t *Trainer) HasModel() bool {
	return t.Model() != nil
}

// ClearModel discards the live model, if any.
func (t *Trainer) ClearModel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.model = nil
}

// Train fits a fresh model on the corpus, reporting progress after every
// epoch. All numeric intermediates are local to this call and released on
// every exit path.
func (t *Trainer) Train(onProgress func(TrainProgress)) error {
	t.mu.Lock()
	if t.training {
		t.mu.Unlock()
		return domain.ErrAlreadyTraining
	}
	t.training = true
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.training = false
		t.mu.Unlock()
	}()

	if !t.CanTrain() {
		return domain.ErrInsufficientData
	}

	windowSize := t.collector.cfg.WindowSize
	overlap := t.collector.cfg.Overlap

	// Samples shorter than one window contribute nothing.
	usable := 0
	var examples []TrainExample
	for _, sample := range t.collector.Samples() {
		if len(sample.Pitches) < windowSize {
			continue
		}
		label := labelIndex(sample.Activity)
		if label < 0 {
			continue
		}
		usable++
		for _, w := range MakeWindows(sample.Pitches, windowSize, overlap) {
			examples = append(examples, TrainExample{Window: Normalize(w), Label: label})
		}
	}

	if usable < 2 {
		return domain.ErrInsufficientData
	}
	if len(examples) == 0 {
		return domain.ErrEmptyDataset
	}

	rng := rand.New(rand.NewSource(t.seed))
	rng.Shuffle(len(examples), func(i, j int) {
		examples[i], examples[j] = examples[j], examples[i]
	})

	cut := int(float64(len(examples)) * (1 - validationCut))
	if cut < 1 {
		cut = 1
	}
	train := examples[:cut]
	val := examples[cut:]

	t.log.WithFields(logrus.Fields{
		"windows":    len(examples),
		"train":      len(train),
		"validation": len(val),
		"classes":    len(domain.Activities),
	}).Info("Training started")

	model := NewModel(windowSize, len(domain.Activities), t.seed)

	for epoch := 1; epoch <= totalEpochs; epoch++ {
		rng.Shuffle(len(train), func(i, j int) {
			train[i], train[j] = train[j], train[i]
		})

		epochLoss := 0.0
		for start := 0; start < len(train); start += batchSize {
			end := start + batchSize
			if end > len(train) {
				end = len(train)
			}
			batchLoss, _ := model.TrainBatch(train[start:end])
			epochLoss += batchLoss * float64(end-start)
		}
		epochLoss /= float64(len(train))

		accuracy := 0.0
		if len(val) > 0 {
			_, accuracy = model.Evaluate(val)
		} else {
			_, accuracy = model.Evaluate(train)
		}

		if onProgress != nil {
			onProgress(TrainProgress{
				Epoch:       epoch,
				TotalEpochs: totalEpochs,
				Loss:        epochLoss,
				Accuracy:    accuracy,
			})
		}
	}

	// The fitted model becomes the one and only live model.
	t.mu.Lock()
	t.model = model
	t.mu.Unlock()

	t.log.Info("Training finished; model replaced")
	return nil
}

func labelIndex(a domain.ActivityType) int {
	for i, known := range domain.Activities {
		if known == a {
			return i
		}
	}
	return -1
}
