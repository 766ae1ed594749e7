package activity

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/umutcvc/MySomatra-sub000/internal/domain"
	"github.com/umutcvc/MySomatra-sub000/internal/service/telemetry"
)

// CollectionStatus tells the caller how a capture ended. A disconnect abort
// is distinct from an ordinary cancel so the UI can explain why.
type CollectionStatus string

const (
	CollectionCompleted     CollectionStatus = "completed"
	CollectionTooFewSamples CollectionStatus = "too_few_samples"
	CollectionCancelled     CollectionStatus = "cancelled"
	CollectionDisconnected  CollectionStatus = "cancelled_disconnect"
)

// CollectionResult reports the outcome of one capture attempt. SampleCount
// is included on failure for diagnostics.
type CollectionResult struct {
	Status      CollectionStatus
	Activity    domain.ActivityType
	SampleCount int
}

// ProgressFunc receives (elapsedFraction, remainingSeconds) on every
// progress tick.
type ProgressFunc func(elapsed float64, remaining float64)

// CollectorConfig tunes the capture window. Zero values take defaults; the
// short durations are what tests use.
type CollectorConfig struct {
	Duration         time.Duration
	ProgressInterval time.Duration
	WindowSize       int
	Overlap          float64
}

func (c CollectorConfig) withDefaults() CollectorConfig {
	if c.Duration == 0 {
		c.Duration = 10 * time.Second
	}
	if c.ProgressInterval == 0 {
		c.ProgressInterval = 250 * time.Millisecond
	}
	if c.WindowSize == 0 {
		c.WindowSize = DefaultWindowSize
	}
	if c.Overlap == 0 {
		c.Overlap = DefaultOverlapFraction
	}
	return c
}

// Collector captures one labeled pitch sequence at a time from the live
// telemetry stream and owns the in-memory sample corpus.
// State machine: Idle -> Collecting -> Idle.
type Collector struct {
	store *telemetry.Store
	log   *logrus.Logger
	cfg   CollectorConfig

	mu          sync.Mutex
	collecting  bool
	activity    domain.ActivityType
	buf         []float64
	lastReading *domain.OrientationReading
	unsub       func()
	stop        chan struct{}
	onComplete  func(CollectionResult)

	samples []domain.ActivitySample
}

// NewCollector wires a collector to the telemetry store.
func NewCollector(store *telemetry.Store, log *logrus.Logger, cfg CollectorConfig) *Collector {
	if log == nil {
		log = logrus.New()
	}
	return &Collector{
		store: store,
		log:   log,
		cfg:   cfg.withDefaults(),
	}
}

// IsCollecting reports whether a capture is running.
func (c *Collector) IsCollecting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.collecting
}

// StartCollection begins a fixed-duration capture for one activity label.
// onProgress fires on every tick, onComplete exactly once at the end.
func (c *Collector) StartCollection(activity domain.ActivityType, onProgress ProgressFunc, onComplete func(CollectionResult)) error {
	c.mu.Lock()
	if c.collecting {
		c.mu.Unlock()
		return domain.ErrAlreadyCollecting
	}
	if !c.store.Current().Connected {
		c.mu.Unlock()
		return domain.ErrNotStreaming
	}

	c.collecting = true
	c.activity = activity
	c.buf = nil
	c.lastReading = nil
	c.onComplete = onComplete
	c.stop = make(chan struct{})
	stop := c.stop

	c.unsub = c.store.Subscribe(c.onSnapshot)
	c.mu.Unlock()

	c.log.WithField("activity", activity).Info("Collection started")

	go c.run(stop, onProgress)
	return nil
}

// onSnapshot buffers every new orientation reading in arrival order and
// aborts the capture when the device drops.
func (c *Collector) onSnapshot(snap telemetry.Snapshot) {
	if !snap.Connected {
		c.finish(CollectionDisconnected)
		return
	}
	if snap.Orientation == nil {
		return
	}

	c.mu.Lock()
	if !c.collecting || snap.Orientation == c.lastReading {
		c.mu.Unlock()
		return
	}
	c.lastReading = snap.Orientation
	c.buf = append(c.buf, snap.Orientation.Pitch)
	c.mu.Unlock()
}

func (c *Collector) run(stop chan struct{}, onProgress ProgressFunc) {
	start := time.Now()
	ticker := time.NewTicker(c.cfg.ProgressInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(c.cfg.Duration)
	defer deadline.Stop()

	for {
		select {
		case <-stop:
			return
		case <-deadline.C:
			c.finish(CollectionCompleted)
			return
		case <-ticker.C:
			if onProgress == nil {
				continue
			}
			elapsed := time.Since(start)
			frac := float64(elapsed) / float64(c.cfg.Duration)
			if frac > 1 {
				frac = 1
			}
			remaining := (c.cfg.Duration - elapsed).Seconds()
			if remaining < 0 {
				remaining = 0
			}
			onProgress(frac, remaining)
		}
	}
}

// CancelCollection aborts a running capture. The telemetry subscription is
// released before this call returns; no sample is created.
func (c *Collector) CancelCollection() {
	c.finish(CollectionCancelled)
}

// finish is the single terminal path for every outcome. It is a no-op
// unless a capture is running.
func (c *Collector) finish(status CollectionStatus) {
	c.mu.Lock()
	if !c.collecting {
		c.mu.Unlock()
		return
	}
	c.collecting = false
	c.unsub()
	c.unsub = nil
	close(c.stop)

	buf := c.buf
	c.buf = nil
	activity := c.activity
	onComplete := c.onComplete
	c.onComplete = nil

	result := CollectionResult{Status: status, Activity: activity, SampleCount: len(buf)}

	if status == CollectionCompleted {
		if len(buf) >= c.minSamples() {
			c.samples = append(c.samples, domain.ActivitySample{
				Activity:    activity,
				Pitches:     buf,
				CollectedAt: time.Now(),
			})
		} else {
			result.Status = CollectionTooFewSamples
		}
	}
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"activity": activity,
		"samples":  len(buf),
		"status":   result.Status,
	}).Info("Collection finished")

	if onComplete != nil {
		onComplete(result)
	}
}

func (c *Collector) minSamples() int {
	return 2 * c.cfg.WindowSize
}

// DeleteSample removes one recording by position. Out-of-range indexes are
// ignored.
func (c *Collector) DeleteSample(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.samples) {
		return
	}
	c.samples = append(c.samples[:index], c.samples[index+1:]...)
}

// ClearSamples drops the whole corpus.
func (c *Collector) ClearSamples() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = nil
}

// Samples returns a copy of the corpus for training.
func (c *Collector) Samples() []domain.ActivitySample {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ActivitySample, len(c.samples))
	copy(out, c.samples)
	return out
}

// ListSamples annotates each recording with its derived window count and a
// quality tag monotonic in sample count.
func (c *Collector) ListSamples() []domain.SampleSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.SampleSummary, len(c.samples))
	for i, s := range c.samples {
		out[i] = domain.SampleSummary{
			Index:       i,
			Activity:    s.Activity,
			SampleCount: len(s.Pitches),
			WindowCount: WindowCount(len(s.Pitches), c.cfg.WindowSize, c.cfg.Overlap),
			Quality:     c.quality(len(s.Pitches)),
		}
	}
	return out
}

// quality grades a recording by sample density: three window-lengths of
// data is good, the bare commit threshold is fair.
func (c *Collector) quality(count int) domain.SampleQuality {
	switch {
	case count >= 3*c.cfg.WindowSize:
		return domain.QualityGood
	case count >= 2*c.cfg.WindowSize:
		return domain.QualityFair
	default:
		return domain.QualityPoor
	}
}
