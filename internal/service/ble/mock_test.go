package ble

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umutcvc/MySomatra-sub000/internal/domain"
	"github.com/umutcvc/MySomatra-sub000/internal/service/ble/nus"
)

func TestMockPairingAndStreaming(t *testing.T) {
	m := NewMockService()
	assert.True(t, m.IsSupported())

	info, err := m.RequestPairing(context.Background())
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "Somatra Sim", info.Name)

	readings := make(chan domain.OrientationReading, 64)
	unsub := m.OnOrientation(func(r domain.OrientationReading) {
		select {
		case readings <- r:
		default:
		}
	})
	defer unsub()

	require.NoError(t, m.Connect(context.Background()))
	defer m.Disconnect()

	select {
	case r := <-readings:
		// The frame went through the real codec: pitch must be derivable.
		assert.NotZero(t, r.Timestamp)
		assert.Equal(t, domain.ActivityUnknown, r.ActivityHint)
	case <-time.After(2 * time.Second):
		t.Fatal("no motion reading emitted")
	}
}

func TestMockPairingCancelled(t *testing.T) {
	m := NewMockService()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	info, err := m.RequestPairing(ctx)
	assert.NoError(t, err, "user cancel is not an error")
	assert.Nil(t, info)
}

func TestMockSingleDisconnectTransition(t *testing.T) {
	m := NewMockService()

	var transitions []bool
	unsub := m.OnConnectionChange(func(connected bool) {
		transitions = append(transitions, connected)
	})
	defer unsub()

	require.NoError(t, m.Connect(context.Background()))
	m.Disconnect()

	require.Len(t, transitions, 2)
	assert.True(t, transitions[0])
	assert.False(t, transitions[1])
}

func TestMockCommandsCaptured(t *testing.T) {
	m := NewMockService()
	require.NoError(t, m.Connect(context.Background()))
	defer m.Disconnect()

	require.NoError(t, m.StartTherapy(domain.ModeFocus, 70))
	require.NoError(t, m.StopTherapy())
	require.NoError(t, m.CalibrateIMU(2*time.Second))

	sent := m.SentCommands()
	require.Len(t, sent, 4)
	assert.Equal(t, []byte{nus.OpSetParams, 3, 70}, sent[0])
	assert.Equal(t, []byte{nus.OpRunFlag, 0x01}, sent[1])
	assert.Equal(t, []byte{nus.OpRunFlag, 0x00}, sent[2])
	assert.Equal(t, byte(nus.OpCalibrate), sent[3][0])
}

func TestMockCommandWithoutChannel(t *testing.T) {
	m := NewMockService()
	m.SetCommandChannel(false)
	require.NoError(t, m.Connect(context.Background()))
	defer m.Disconnect()

	// No command channel: writes are silently dropped, never queued.
	assert.NoError(t, m.SendCommand([]byte{0x01, 0x02, 0x03}))
	assert.NoError(t, m.StartTherapy(domain.ModeRelax, 50))
	assert.Empty(t, m.SentCommands())
}
