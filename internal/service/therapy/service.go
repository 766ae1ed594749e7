package therapy

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/umutcvc/MySomatra-sub000/internal/domain"
)

// Status is a snapshot of the running therapy session, if any.
type Status struct {
	Active    bool
	Mode      domain.TherapyMode
	Intensity int
	StartedAt time.Time
	Elapsed   time.Duration
	SessionID uint
}

// Service drives a therapy program on the device and records the session
// through a SessionSink. The sink is best effort: a failed record never
// blocks the therapy itself.
type Service struct {
	device domain.DeviceService
	sink   domain.SessionSink
	log    *logrus.Logger

	mu        sync.Mutex
	active    bool
	mode      domain.TherapyMode
	intensity int
	startedAt time.Time
	sessionID uint
}

// NewService wires the runner to the device. sink may be nil, in which
// case sessions run unrecorded.
func NewService(device domain.DeviceService, sink domain.SessionSink, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{device: device, sink: sink, log: log}
}

// Status returns the current session state.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Active:    s.active,
		Mode:      s.mode,
		Intensity: s.intensity,
		StartedAt: s.startedAt,
		SessionID: s.sessionID,
	}
	if s.active {
		st.Elapsed = time.Since(s.startedAt)
	}
	return st
}

// Start programs the device with the mode and intensity and begins a new
// session. Starting while a session runs reprograms the device in place;
// the original session keeps running.
func (s *Service) Start(mode domain.TherapyMode, intensity int) error {
	if err := s.device.StartTherapy(mode, intensity); err != nil {
		return err
	}

	s.mu.Lock()
	alreadyActive := s.active
	s.active = true
	s.mode = mode
	s.intensity = intensity
	if !alreadyActive {
		s.startedAt = time.Now()
	}
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"mode":      mode,
		"intensity": intensity,
	}).Info("Therapy started")

	if !alreadyActive && s.sink != nil {
		// Record in the background so a slow backend cannot stall the
		// device path.
		go func() {
			id, err := s.sink.Begin(mode, intensity)
			if err != nil {
				s.log.WithError(err).Warn("Failed to record session start")
				return
			}
			s.mu.Lock()
			s.sessionID = id
			s.mu.Unlock()
		}()
	}
	return nil
}

// Stop halts the device program and closes out the session record.
// Stopping with no session running still sends the stop frame.
func (s *Service) Stop() error {
	if err := s.device.StopTherapy(); err != nil {
		return err
	}

	s.mu.Lock()
	wasActive := s.active
	sessionID := s.sessionID
	elapsed := time.Since(s.startedAt)
	s.active = false
	s.sessionID = 0
	s.mu.Unlock()

	if !wasActive {
		return nil
	}

	s.log.WithField("elapsed", elapsed.Round(time.Second)).Info("Therapy stopped")

	if s.sink != nil && sessionID != 0 {
		go func() {
			if err := s.sink.End(sessionID); err != nil {
				s.log.WithError(err).Warn("Failed to record session end")
			}
		}()
	}
	return nil
}
