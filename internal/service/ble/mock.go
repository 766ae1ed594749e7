package ble

import (
	"context"
	"sync"
	"time"

	"github.com/umutcvc/MySomatra-sub000/internal/domain"
	"github.com/umutcvc/MySomatra-sub000/internal/event"
	"github.com/umutcvc/MySomatra-sub000/internal/service/ble/nus"
	"github.com/umutcvc/MySomatra-sub000/internal/service/sim"
)

// MockService simulates a Somatra wearable. Frames travel through the real
// wire codec so the decode path is exercised end to end.
type MockService struct {
	mu        sync.Mutex
	connected bool
	stopChan  chan struct{}

	// hasCommandChannel mirrors a device that resolved (or lacks) the
	// command service. Commands sent without it are silently dropped.
	hasCommandChannel bool
	sentCommands      [][]byte

	engine     *sim.Engine
	sampleRate time.Duration

	orientation *event.Emitter[domain.OrientationReading]
	gps         *event.Emitter[domain.GPSReading]
	battery     *event.Emitter[domain.BatteryReading]
	connection  *event.Emitter[bool]
}

// NewMockService builds a simulated wearable streaming at ~50 Hz.
func NewMockService() *MockService {
	return &MockService{
		hasCommandChannel: true,
		engine:            sim.NewEngine(sim.ProfileFor(domain.ActivityStill), 1),
		sampleRate:        20 * time.Millisecond,
		orientation:       event.NewEmitter[domain.OrientationReading](),
		gps:               event.NewEmitter[domain.GPSReading](),
		battery:           event.NewEmitter[domain.BatteryReading](),
		connection:        event.NewEmitter[bool](),
	}
}

// SetActivity switches the simulated motion waveform.
func (m *MockService) SetActivity(activity domain.ActivityType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engine.SetProfile(sim.ProfileFor(activity))
}

// SetCommandChannel toggles whether the simulated device resolved its
// command service.
func (m *MockService) SetCommandChannel(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hasCommandChannel = available
}

// SentCommands returns every frame the device accepted, in order.
func (m *MockService) SentCommands() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.sentCommands))
	copy(out, m.sentCommands)
	return out
}

func (m *MockService) IsSupported() bool { return true }

func (m *MockService) RequestPairing(ctx context.Context) (*domain.DeviceInfo, error) {
	select {
	case <-ctx.Done():
		return nil, nil
	default:
	}
	return &domain.DeviceInfo{ID: "sim-0", Name: "Somatra Sim"}, nil
}

func (m *MockService) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.connected {
		m.mu.Unlock()
		return nil
	}
	m.connected = true
	m.stopChan = make(chan struct{})
	stop := m.stopChan
	m.mu.Unlock()

	go m.stream(stop)
	m.connection.Emit(true)
	return nil
}

// stream pushes motion frames at the sample rate, plus battery and GPS
// reports every few seconds.
func (m *MockService) stream(stop chan struct{}) {
	ticker := time.NewTicker(m.sampleRate)
	defer ticker.Stop()

	start := time.Now()
	tickCount := 0

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			t := now.Sub(start).Seconds()

			m.mu.Lock()
			frame := nus.EncodeMotion(m.engine.Reading(t), false)
			m.mu.Unlock()

			reading, err := nus.DecodeMotion(frame, now)
			if err == nil {
				m.orientation.Emit(reading)
			}

			tickCount++
			if tickCount%100 == 0 { // every ~2s
				m.battery.Emit(domain.BatteryReading{Percentage: 87, Timestamp: now})
				m.gps.Emit(domain.GPSReading{
					Fix: true, Latitude: 41.015, Longitude: 28.979,
					Altitude: 40, Speed: 0.5, Satellites: 7, Timestamp: now,
				})
			}
		}
	}
}

func (m *MockService) Disconnect() {
	m.mu.Lock()
	if m.connected {
		m.connected = false
		close(m.stopChan)
	}
	m.sentCommands = nil
	m.mu.Unlock()

	// An explicit call always signals disconnected, even when the device
	// was already down.
	m.connection.Emit(false)
}

func (m *MockService) SendCommand(payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasCommandChannel {
		return nil // dropped, not queued, not retried
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	m.sentCommands = append(m.sentCommands, buf)
	return nil
}

func (m *MockService) StartTherapy(mode domain.TherapyMode, intensity int) error {
	if err := m.SendCommand(nus.EncodeSetParams(mode, intensity)); err != nil {
		return err
	}
	return m.SendCommand(nus.EncodeRunFlag(true))
}

func (m *MockService) StopTherapy() error {
	return m.SendCommand(nus.EncodeRunFlag(false))
}

func (m *MockService) CalibrateIMU(duration time.Duration) error {
	return m.SendCommand(nus.EncodeCalibrate(duration))
}

func (m *MockService) OnOrientation(fn func(domain.OrientationReading)) func() {
	return m.orientation.Subscribe(fn)
}

func (m *MockService) OnGPS(fn func(domain.GPSReading)) func() {
	return m.gps.Subscribe(fn)
}

func (m *MockService) OnBattery(fn func(domain.BatteryReading)) func() {
	return m.battery.Subscribe(fn)
}

func (m *MockService) OnConnectionChange(fn func(bool)) func() {
	return m.connection.Subscribe(fn)
}
