package nus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umutcvc/MySomatra-sub000/internal/domain"
)

func TestMotionRoundTrip(t *testing.T) {
	now := time.Now()
	in := domain.OrientationReading{
		AccelX: -0.5, AccelY: 0.25, AccelZ: 0.8125,
		GyroX: 1.5, GyroY: -3.75, GyroZ: 0.125,
		ActivityHint: domain.ActivityWalking,
	}

	frame := EncodeMotion(in, true)
	require.Len(t, frame, MotionFrameSize+1)

	out, err := DecodeMotion(frame, now)
	require.NoError(t, err)

	// Exactly representable float32 values survive the round trip bit for
	// bit.
	assert.Equal(t, in.AccelX, out.AccelX)
	assert.Equal(t, in.AccelY, out.AccelY)
	assert.Equal(t, in.AccelZ, out.AccelZ)
	assert.Equal(t, in.GyroX, out.GyroX)
	assert.Equal(t, in.GyroY, out.GyroY)
	assert.Equal(t, in.GyroZ, out.GyroZ)
	assert.Equal(t, domain.ActivityWalking, out.ActivityHint)
	assert.Equal(t, now, out.Timestamp)
}

func TestMotionWithoutHint(t *testing.T) {
	frame := EncodeMotion(domain.OrientationReading{AccelZ: 1}, false)
	require.Len(t, frame, MotionFrameSize)

	out, err := DecodeMotion(frame, time.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.ActivityUnknown, out.ActivityHint)
	assert.InDelta(t, 0.0, out.Pitch, 1e-9)
}

func TestMotionTooShort(t *testing.T) {
	_, err := DecodeMotion(make([]byte, MotionFrameSize-1), time.Now())
	assert.Error(t, err)
}

func TestPitchDerivation(t *testing.T) {
	// Gravity along -X means the device points straight up: +90 degrees.
	frame := EncodeMotion(domain.OrientationReading{AccelX: -1}, false)
	out, err := DecodeMotion(frame, time.Now())
	require.NoError(t, err)
	assert.InDelta(t, 90.0, out.Pitch, 1e-4)

	frame = EncodeMotion(domain.OrientationReading{AccelX: 1}, false)
	out, err = DecodeMotion(frame, time.Now())
	require.NoError(t, err)
	assert.InDelta(t, -90.0, out.Pitch, 1e-4)
}

func TestActivityCodes(t *testing.T) {
	// Every code in the firmware table round-trips.
	for code := byte(0); code <= 8; code++ {
		act := ActivityFromCode(code)
		assert.NotEqual(t, domain.ActivityUnknown, act, "code %d", code)

		back, ok := ActivityCode(act)
		require.True(t, ok)
		assert.Equal(t, code, back)
	}

	assert.Equal(t, domain.ActivityUnknown, ActivityFromCode(9))
	assert.Equal(t, domain.ActivityUnknown, ActivityFromCode(0xFF))

	_, ok := ActivityCode(domain.ActivityUnknown)
	assert.False(t, ok)
}

func TestModeCodes(t *testing.T) {
	assert.Equal(t, byte(1), ModeCode(domain.ModeRelax))
	assert.Equal(t, byte(2), ModeCode(domain.ModeSleep))
	assert.Equal(t, byte(3), ModeCode(domain.ModeFocus))
	assert.Equal(t, byte(4), ModeCode(domain.ModeHype))
	assert.Equal(t, byte(5), ModeCode(domain.ModeMeditate))
	assert.Equal(t, byte(6), ModeCode(domain.ModeRecovery))

	// Unknown modes fall back to relax rather than failing.
	assert.Equal(t, byte(1), ModeCode(domain.TherapyMode("zen")))
}

func TestCommandFrames(t *testing.T) {
	assert.Equal(t, []byte{0x01, 3, 70}, EncodeSetParams(domain.ModeFocus, 70))
	assert.Equal(t, []byte{0x01, 1, 100}, EncodeSetParams(domain.ModeRelax, 250))
	assert.Equal(t, []byte{0x01, 1, 0}, EncodeSetParams(domain.ModeRelax, -5))

	assert.Equal(t, []byte{0x02, 0x01}, EncodeRunFlag(true))
	assert.Equal(t, []byte{0x02, 0x00}, EncodeRunFlag(false))

	// 2000 ms little-endian.
	assert.Equal(t, []byte{0x03, 0xD0, 0x07, 0x00}, EncodeCalibrate(2*time.Second))
}

func TestDecodeBattery(t *testing.T) {
	now := time.Now()

	r, err := DecodeBattery([]byte{87}, now)
	require.NoError(t, err)
	assert.Equal(t, 87, r.Percentage)

	_, err = DecodeBattery([]byte{101}, now)
	assert.Error(t, err)

	_, err = DecodeBattery(nil, now)
	assert.Error(t, err)
}

func TestDecodeGPSLine(t *testing.T) {
	now := time.Now()

	r, err := DecodeGPSLine("GPS,1,41.0151,28.9795,42.5,3.2,184.0,9", now)
	require.NoError(t, err)
	assert.True(t, r.Fix)
	assert.InDelta(t, 41.0151, r.Latitude, 1e-9)
	assert.InDelta(t, 28.9795, r.Longitude, 1e-9)
	assert.InDelta(t, 42.5, r.Altitude, 1e-9)
	assert.InDelta(t, 3.2, r.Speed, 1e-9)
	assert.InDelta(t, 184.0, r.Course, 1e-9)
	assert.Equal(t, 9, r.Satellites)

	// No fix: coordinates present but not meaningful.
	r, err = DecodeGPSLine("GPS,0,0,0,0,0", now)
	require.NoError(t, err)
	assert.False(t, r.Fix)

	_, err = DecodeGPSLine("BAT,87", now)
	assert.Error(t, err)

	_, err = DecodeGPSLine("GPS,1,41.0", now)
	assert.Error(t, err)
}
