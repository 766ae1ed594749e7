package activity

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/umutcvc/MySomatra-sub000/internal/domain"
	"github.com/umutcvc/MySomatra-sub000/internal/service/telemetry"
)

// Inference pacing and smoothing. New probabilities are blended 0.3 against
// 0.7 of the prior smoothed estimate.
const (
	DefaultInferenceInterval = 200 * time.Millisecond
	smoothingFactor          = 0.3
)

// Classifier runs a rolling-buffer inference loop over the live telemetry
// stream. State machine: Stopped -> Running -> Stopped.
type Classifier struct {
	store    *telemetry.Store
	trainer  *Trainer
	log      *logrus.Logger
	interval time.Duration

	mu          sync.Mutex
	running     bool
	inFlight    bool
	buf         []float64
	lastReading *domain.OrientationReading
	smoothed    []float64
	unsub       func()
	stop        chan struct{}
	onResult    func(domain.ClassificationResult)
}

// NewClassifier wires the inference loop to the store and the trainer's
// live model. A zero interval takes the default 200 ms.
func NewClassifier(store *telemetry.Store, trainer *Trainer, log *logrus.Logger, interval time.Duration) *Classifier {
	if log == nil {
		log = logrus.New()
	}
	if interval == 0 {
		interval = DefaultInferenceInterval
	}
	return &Classifier{
		store:    store,
		trainer:  trainer,
		log:      log,
		interval: interval,
	}
}

// IsRunning reports whether the inference loop is active.
func (c *Classifier) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Start begins the inference loop. Starting while already running is a
// silent no-op: a second loop is never created.
func (c *Classifier) Start(onResult func(domain.ClassificationResult)) error {
	model := c.trainer.Model()
	if model == nil {
		return domain.ErrNoModel
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.inFlight = false
	c.buf = nil
	c.lastReading = nil
	c.onResult = onResult
	c.stop = make(chan struct{})
	stop := c.stop

	// Smoothed probabilities start uniform.
	classes := model.Classes()
	c.smoothed = make([]float64, classes)
	for i := range c.smoothed {
		c.smoothed[i] = 1 / float64(classes)
	}

	c.unsub = c.store.Subscribe(c.onSnapshot)
	c.mu.Unlock()

	c.log.Info("Live classification started")
	go c.loop(stop, model)
	return nil
}

// onSnapshot feeds the rolling buffer and stops the loop when the device
// disconnects.
func (c *Classifier) onSnapshot(snap telemetry.Snapshot) {
	if !snap.Connected {
		c.Stop()
		return
	}
	if snap.Orientation == nil {
		return
	}

	model := c.trainer.Model()
	if model == nil {
		return
	}
	w := model.WindowSize()

	c.mu.Lock()
	if !c.running || snap.Orientation == c.lastReading {
		c.mu.Unlock()
		return
	}
	c.lastReading = snap.Orientation
	c.buf = append(c.buf, snap.Orientation.Pitch)
	// Cap at 3 windows, trim back to the most recent 2.
	if len(c.buf) > 3*w {
		trimmed := make([]float64, 2*w)
		copy(trimmed, c.buf[len(c.buf)-2*w:])
		c.buf = trimmed
	}
	c.mu.Unlock()
}

func (c *Classifier) loop(stop chan struct{}, model *Model) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			c.tick(model, now)
		}
	}
}

// tick runs at most one inference. Skipped when the buffer is short or a
// previous inference is still in flight.
func (c *Classifier) tick(model *Model, now time.Time) {
	w := model.WindowSize()

	c.mu.Lock()
	if !c.running || c.inFlight || len(c.buf) < w {
		c.mu.Unlock()
		return
	}
	c.inFlight = true
	window := make([]float64, w)
	copy(window, c.buf[len(c.buf)-w:])
	c.mu.Unlock()

	probs := model.Predict(Normalize(window))

	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	for i := range c.smoothed {
		c.smoothed[i] = smoothingFactor*probs[i] + (1-smoothingFactor)*c.smoothed[i]
	}

	percentages := make(map[domain.ActivityType]float64, len(c.smoothed))
	best := 0
	for i, p := range c.smoothed {
		percentages[domain.Activities[i]] = p * 100
		if p > c.smoothed[best] {
			best = i
		}
	}
	result := domain.ClassificationResult{
		Percentages:     percentages,
		CurrentActivity: domain.Activities[best],
		Confidence:      c.smoothed[best] * 100,
		Timestamp:       now,
	}
	onResult := c.onResult
	c.inFlight = false
	c.mu.Unlock()

	if onResult != nil {
		onResult(result)
	}
}

// Stop halts the loop, releases the telemetry subscription and clears the
// rolling buffer. Idempotent.
func (c *Classifier) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.unsub()
	c.unsub = nil
	close(c.stop)
	c.buf = nil
	c.lastReading = nil
	c.inFlight = false
	c.onResult = nil
	c.mu.Unlock()

	c.log.Info("Live classification stopped")
}
