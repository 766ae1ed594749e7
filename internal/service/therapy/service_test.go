package therapy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umutcvc/MySomatra-sub000/internal/domain"
	"github.com/umutcvc/MySomatra-sub000/internal/service/ble"
	"github.com/umutcvc/MySomatra-sub000/internal/service/ble/nus"
)

type recordingSink struct {
	began chan domain.TherapyMode
	ended chan uint
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		began: make(chan domain.TherapyMode, 1),
		ended: make(chan uint, 1),
	}
}

func (s *recordingSink) Begin(mode domain.TherapyMode, intensity int) (uint, error) {
	s.began <- mode
	return 7, nil
}

func (s *recordingSink) End(id uint) error {
	s.ended <- id
	return nil
}

func TestStartSendsFramesAndRecords(t *testing.T) {
	dev := ble.NewMockService()
	sink := newRecordingSink()
	svc := NewService(dev, sink, nil)

	require.NoError(t, svc.Start(domain.ModeMeditate, 60))

	sent := dev.SentCommands()
	require.Len(t, sent, 2)
	assert.Equal(t, []byte{nus.OpSetParams, 5, 60}, sent[0])
	assert.Equal(t, []byte{nus.OpRunFlag, 0x01}, sent[1])

	select {
	case mode := <-sink.began:
		assert.Equal(t, domain.ModeMeditate, mode)
	case <-time.After(time.Second):
		t.Fatal("session start was never recorded")
	}

	st := svc.Status()
	assert.True(t, st.Active)
	assert.Equal(t, domain.ModeMeditate, st.Mode)
	assert.Equal(t, 60, st.Intensity)
}

func TestStopClosesSession(t *testing.T) {
	dev := ble.NewMockService()
	sink := newRecordingSink()
	svc := NewService(dev, sink, nil)

	require.NoError(t, svc.Start(domain.ModeRelax, 40))
	<-sink.began

	// Give the background Begin a moment to store the id.
	assert.Eventually(t, func() bool { return svc.Status().SessionID == 7 },
		time.Second, 5*time.Millisecond)

	require.NoError(t, svc.Stop())

	select {
	case id := <-sink.ended:
		assert.EqualValues(t, 7, id)
	case <-time.After(time.Second):
		t.Fatal("session end was never recorded")
	}

	assert.False(t, svc.Status().Active)
	sent := dev.SentCommands()
	assert.Equal(t, []byte{nus.OpRunFlag, 0x00}, sent[len(sent)-1])
}

func TestRestartKeepsSession(t *testing.T) {
	dev := ble.NewMockService()
	sink := newRecordingSink()
	svc := NewService(dev, sink, nil)

	require.NoError(t, svc.Start(domain.ModeFocus, 50))
	<-sink.began

	// Reprogramming mid-session switches mode without opening a second
	// session record.
	require.NoError(t, svc.Start(domain.ModeHype, 80))
	assert.Empty(t, sink.began)

	st := svc.Status()
	assert.Equal(t, domain.ModeHype, st.Mode)
	assert.Equal(t, 80, st.Intensity)
}

func TestStopWithoutSession(t *testing.T) {
	dev := ble.NewMockService()
	svc := NewService(dev, nil, nil)

	// The stop frame still goes out.
	require.NoError(t, svc.Stop())
	sent := dev.SentCommands()
	require.Len(t, sent, 1)
	assert.Equal(t, []byte{nus.OpRunFlag, 0x00}, sent[0])
}

func TestNilSink(t *testing.T) {
	dev := ble.NewMockService()
	svc := NewService(dev, nil, nil)

	require.NoError(t, svc.Start(domain.ModeSleep, 20))
	require.NoError(t, svc.Stop())
}
