package ble

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"

	"github.com/umutcvc/MySomatra-sub000/internal/domain"
	"github.com/umutcvc/MySomatra-sub000/internal/event"
	"github.com/umutcvc/MySomatra-sub000/internal/service/ble/nus"
)

// DefaultNamePrefixes are the advertised names recognized as Somatra
// wearables during pairing.
var DefaultNamePrefixes = []string{"Somatra", "SOMA-"}

// UUIDs
var (
	serviceNUS    = mustUUID(nus.ServiceUUID)
	charWrite     = mustUUID(nus.CharWriteUUID)
	charNotify    = mustUUID(nus.CharNotifyUUID)
	serviceMotion = mustUUID(nus.MotionService)
	charMotion    = mustUUID(nus.MotionCharUUID)

	serviceBattery = bluetooth.New16BitUUID(0x180F)
	charBattery    = bluetooth.New16BitUUID(0x2A19) // Battery Level
)

func mustUUID(s string) bluetooth.UUID {
	u, err := bluetooth.ParseUUID(s)
	if err != nil {
		panic("ble: bad uuid constant: " + s)
	}
	return u
}

// RealService owns the single BLE connection to a paired wearable and
// presents a typed, multi-subscriber view of its data/command surface.
type RealService struct {
	adapter  *bluetooth.Adapter
	log      *logrus.Logger
	prefixes []string

	mu        sync.Mutex
	addr      *bluetooth.Address
	info      *domain.DeviceInfo
	device    *bluetooth.Device
	connected bool

	cmdChar     *bluetooth.DeviceCharacteristic
	motionChar  *bluetooth.DeviceCharacteristic
	batteryChar *bluetooth.DeviceCharacteristic

	lineBuf string

	supportChecked bool
	supportOK      bool

	orientation *event.Emitter[domain.OrientationReading]
	gps         *event.Emitter[domain.GPSReading]
	battery     *event.Emitter[domain.BatteryReading]
	connection  *event.Emitter[bool]
}

// NewRealService wires the default adapter. Link-loss events route through
// the same disconnect path as an explicit Disconnect call.
func NewRealService(log *logrus.Logger, prefixes []string) *RealService {
	if log == nil {
		log = logrus.New()
	}
	if len(prefixes) == 0 {
		prefixes = DefaultNamePrefixes
	}

	s := &RealService{
		adapter:     bluetooth.DefaultAdapter,
		log:         log,
		prefixes:    prefixes,
		orientation: event.NewEmitter[domain.OrientationReading](),
		gps:         event.NewEmitter[domain.GPSReading](),
		battery:     event.NewEmitter[domain.BatteryReading](),
		connection:  event.NewEmitter[bool](),
	}

	s.adapter.SetConnectHandler(func(_ bluetooth.Device, connected bool) {
		if !connected {
			s.log.Info("[BLE] Link lost")
			s.handleDisconnect()
		}
	})

	return s
}

// IsSupported probes the adapter once and caches the answer.
func (s *RealService) IsSupported() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.supportChecked {
		s.supportOK = s.adapter.Enable() == nil
		s.supportChecked = true
	}
	return s.supportOK
}

// RequestPairing scans until a device with a recognized name prefix shows
// up. Cancelling ctx is the user backing out of the chooser: it yields
// (nil, nil), not an error.
func (s *RealService) RequestPairing(ctx context.Context) (*domain.DeviceInfo, error) {
	if err := s.adapter.Enable(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedPlatform, err)
	}

	s.log.WithField("prefixes", s.prefixes).Info("[BLE] Scanning for wearable...")

	ch := make(chan bluetooth.ScanResult, 1)
	go func() {
		err := s.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			name := result.LocalName()
			if name == "" || !s.nameRecognized(name) {
				return
			}
			s.log.WithField("name", name).Info("[BLE] Wearable found")
			adapter.StopScan()
			select {
			case ch <- result:
			default:
			}
		})
		if err != nil {
			s.log.WithError(err).Error("[BLE] Scan error")
		}
	}()

	select {
	case result := <-ch:
		s.mu.Lock()
		addr := result.Address
		s.addr = &addr
		s.info = &domain.DeviceInfo{
			ID:   result.Address.String(),
			Name: result.LocalName(),
		}
		info := *s.info
		s.mu.Unlock()
		return &info, nil

	case <-ctx.Done():
		s.adapter.StopScan()
		return nil, nil
	}
}

func (s *RealService) nameRecognized(name string) bool {
	for _, p := range s.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Connect opens the transport and resolves the three logical services
// best-effort. Only a base transport failure is fatal; a missing service is
// logged and its feature degrades to a no-op.
func (s *RealService) Connect(ctx context.Context) error {
	s.mu.Lock()
	addr := s.addr
	s.mu.Unlock()

	if addr == nil {
		return fmt.Errorf("%w: no device paired", domain.ErrConnectionFailed)
	}

	dev, err := s.adapter.Connect(*addr, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConnectionFailed, err)
	}

	s.mu.Lock()
	ptr := new(bluetooth.Device)
	*ptr = dev
	s.device = ptr
	s.connected = true
	if s.info != nil {
		s.info.Connected = true
	}
	s.mu.Unlock()

	s.resolveServices(ptr)

	s.log.Info("[BLE] Wearable connected")
	s.connection.Emit(true)
	return nil
}

// resolveServices subscribes to every channel it can find. Absence of any
// one service is not fatal.
func (s *RealService) resolveServices(dev *bluetooth.Device) {
	services, err := dev.DiscoverServices(nil)
	if err != nil {
		s.log.WithError(err).Warn("[BLE] Service discovery failed; streaming unavailable")
		return
	}

	for _, service := range services {
		switch service.UUID() {
		case serviceNUS:
			s.resolveNUS(service)
		case serviceMotion:
			s.resolveMotion(service)
		case serviceBattery:
			s.resolveBattery(service)
		}
	}

	s.mu.Lock()
	missing := []string{}
	if s.cmdChar == nil {
		missing = append(missing, "command")
	}
	if s.motionChar == nil {
		missing = append(missing, "motion")
	}
	if s.batteryChar == nil {
		missing = append(missing, "battery")
	}
	s.mu.Unlock()

	if len(missing) > 0 {
		s.log.WithField("services", strings.Join(missing, ",")).
			Warn("[BLE] Optional services unavailable; features degrade to no-ops")
	}
}

func (s *RealService) resolveNUS(service bluetooth.DeviceService) {
	chars, err := service.DiscoverCharacteristics(nil)
	if err != nil {
		s.log.WithError(err).Warn("[BLE] NUS characteristic discovery failed")
		return
	}
	for _, char := range chars {
		c := char
		switch char.UUID() {
		case charWrite:
			s.mu.Lock()
			s.cmdChar = &c
			s.mu.Unlock()
		case charNotify:
			c.EnableNotifications(func(buf []byte) {
				s.handleText(string(buf))
			})
		}
	}
}

func (s *RealService) resolveMotion(service bluetooth.DeviceService) {
	chars, err := service.DiscoverCharacteristics(nil)
	if err != nil {
		s.log.WithError(err).Warn("[BLE] Motion characteristic discovery failed")
		return
	}
	for _, char := range chars {
		if char.UUID() != charMotion {
			continue
		}
		c := char
		s.mu.Lock()
		s.motionChar = &c
		s.mu.Unlock()
		c.EnableNotifications(func(buf []byte) {
			reading, err := nus.DecodeMotion(buf, time.Now())
			if err != nil {
				// A single corrupt frame must not kill the stream.
				s.log.WithError(err).Debug("[BLE] Dropped malformed motion frame")
				return
			}
			s.orientation.Emit(reading)
		})
	}
}

func (s *RealService) resolveBattery(service bluetooth.DeviceService) {
	chars, err := service.DiscoverCharacteristics(nil)
	if err != nil {
		s.log.WithError(err).Warn("[BLE] Battery characteristic discovery failed")
		return
	}
	for _, char := range chars {
		if char.UUID() != charBattery {
			continue
		}
		c := char
		s.mu.Lock()
		s.batteryChar = &c
		s.mu.Unlock()
		c.EnableNotifications(func(buf []byte) {
			reading, err := nus.DecodeBattery(buf, time.Now())
			if err != nil {
				s.log.WithError(err).Debug("[BLE] Dropped malformed battery frame")
				return
			}
			s.battery.Emit(reading)
		})
	}
}

// handleText re-assembles newline-delimited lines from notify chunks and
// dispatches complete ones.
func (s *RealService) handleText(chunk string) {
	s.mu.Lock()
	s.lineBuf += chunk
	lines := strings.Split(s.lineBuf, "\n")
	s.lineBuf = lines[len(lines)-1]
	complete := lines[:len(lines)-1]
	s.mu.Unlock()

	for _, line := range complete {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s.handleLine(line)
	}
}

func (s *RealService) handleLine(line string) {
	switch {
	case strings.HasPrefix(line, nus.GPSLinePrefix):
		reading, err := nus.DecodeGPSLine(line, time.Now())
		if err != nil {
			s.log.WithError(err).Debug("[BLE] Dropped malformed GPS line")
			return
		}
		s.gps.Emit(reading)
	case strings.HasPrefix(line, "ACK") || strings.HasPrefix(line, "ERR"):
		s.log.WithField("line", line).Debug("[BLE] Device response")
	default:
		s.log.WithField("line", line).Debug("[BLE] Unrecognized line")
	}
}

// Disconnect tears the transport down. Idempotent; subscribers always get a
// connected=false signal.
func (s *RealService) Disconnect() {
	s.mu.Lock()
	dev := s.device
	s.mu.Unlock()

	if dev != nil {
		dev.Disconnect()
	}

	if !s.handleDisconnect() {
		// Already disconnected; still signal per the idempotency contract.
		s.connection.Emit(false)
	}
}

// handleDisconnect is the single cleanup path for both explicit disconnects
// and link loss. Returns true when it performed the connected->disconnected
// transition.
func (s *RealService) handleDisconnect() bool {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return false
	}
	s.connected = false
	s.device = nil
	s.cmdChar = nil
	s.motionChar = nil
	s.batteryChar = nil
	s.lineBuf = ""
	if s.info != nil {
		s.info.Connected = false
	}
	s.mu.Unlock()

	s.log.Info("[BLE] Wearable disconnected")
	s.connection.Emit(false)
	return true
}

// SendCommand writes to the command channel if it resolved; otherwise the
// command is dropped. Best-effort: the device may legitimately lack the
// command service.
func (s *RealService) SendCommand(payload []byte) error {
	s.mu.Lock()
	char := s.cmdChar
	s.mu.Unlock()

	if char == nil {
		s.log.Debug("[BLE] Command channel unresolved; command dropped")
		return nil
	}

	if _, err := char.WriteWithoutResponse(payload); err != nil {
		return fmt.Errorf("command write failed: %w", err)
	}
	return nil
}

// StartTherapy writes the set-parameters frame, then the start flag frame.
// The two writes are not transactional.
func (s *RealService) StartTherapy(mode domain.TherapyMode, intensity int) error {
	if err := s.SendCommand(nus.EncodeSetParams(mode, intensity)); err != nil {
		return err
	}
	return s.SendCommand(nus.EncodeRunFlag(true))
}

// StopTherapy writes the stop flag frame.
func (s *RealService) StopTherapy() error {
	return s.SendCommand(nus.EncodeRunFlag(false))
}

// CalibrateIMU triggers a device-side zero-reference capture.
func (s *RealService) CalibrateIMU(duration time.Duration) error {
	return s.SendCommand(nus.EncodeCalibrate(duration))
}

func (s *RealService) OnOrientation(fn func(domain.OrientationReading)) func() {
	return s.orientation.Subscribe(fn)
}

func (s *RealService) OnGPS(fn func(domain.GPSReading)) func() {
	return s.gps.Subscribe(fn)
}

func (s *RealService) OnBattery(fn func(domain.BatteryReading)) func() {
	return s.battery.Subscribe(fn)
}

func (s *RealService) OnConnectionChange(fn func(bool)) func() {
	return s.connection.Subscribe(fn)
}
