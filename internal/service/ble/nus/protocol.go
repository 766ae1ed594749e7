// Somatra - companion core for the Somatra neural-therapy wearable.
// Copyright (C) 2026  Somatra Labs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package nus implements the Somatra wire protocol: the binary motion and
// battery notification payloads, the newline-delimited text lines carried
// on the NUS notify channel, and the command frames written to the device.
package nus

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/umutcvc/MySomatra-sub000/internal/domain"
)

// UUIDs - Nordic UART Service plus the Somatra motion service.
const (
	ServiceUUID     = "6e400001-b5a3-f393-e0a9-e50e24dcca9e"
	CharWriteUUID   = "6e400002-b5a3-f393-e0a9-e50e24dcca9e" // RX (host -> device)
	CharNotifyUUID  = "6e400003-b5a3-f393-e0a9-e50e24dcca9e" // TX (device -> host)
	MotionService   = "6e410001-b5a3-f393-e0a9-e50e24dcca9e"
	MotionCharUUID  = "6e410002-b5a3-f393-e0a9-e50e24dcca9e" // Notify, binary frames
)

// Command opcodes (first byte of every host -> device frame).
const (
	OpSetParams = 0x01
	OpRunFlag   = 0x02
	OpCalibrate = 0x03
)

// MotionFrameSize is the fixed part of a motion notification: six
// little-endian float32 values (accel xyz, gyro xyz). A trailing activity
// hint byte is optional.
const MotionFrameSize = 24

// modeCodes maps therapy modes to their single-byte wire code. Unknown
// modes fall back to relax.
var modeCodes = map[domain.TherapyMode]byte{
	domain.ModeRelax:    1,
	domain.ModeSleep:    2,
	domain.ModeFocus:    3,
	domain.ModeHype:     4,
	domain.ModeMeditate: 5,
	domain.ModeRecovery: 6,
}

// activityCodes is the firmware hint table. Codes outside 0-8 decode to
// ActivityUnknown.
var activityCodes = [...]domain.ActivityType{
	"idle",
	domain.ActivityStill,
	domain.ActivityWalking,
	domain.ActivityRunning,
	"stairs_up",
	"stairs_down",
	"cycling",
	"driving",
	"swimming",
}

// ModeCode returns the wire code for a therapy mode, defaulting to relax.
func ModeCode(mode domain.TherapyMode) byte {
	if c, ok := modeCodes[mode]; ok {
		return c
	}
	return modeCodes[domain.ModeRelax]
}

// ActivityFromCode maps a firmware hint byte through the fixed code table.
func ActivityFromCode(code byte) domain.ActivityType {
	if int(code) < len(activityCodes) {
		return activityCodes[code]
	}
	return domain.ActivityUnknown
}

// ActivityCode returns the wire code for an activity hint, false if the
// activity has no code.
func ActivityCode(a domain.ActivityType) (byte, bool) {
	for i, known := range activityCodes {
		if known == a {
			return byte(i), true
		}
	}
	return 0, false
}

// EncodeSetParams builds the set-parameters frame: opcode, mode code,
// intensity clamped to 0-100.
func EncodeSetParams(mode domain.TherapyMode, intensity int) []byte {
	if intensity < 0 {
		intensity = 0
	}
	if intensity > 100 {
		intensity = 100
	}
	return []byte{OpSetParams, ModeCode(mode), byte(intensity)}
}

// EncodeRunFlag builds the start/stop flag frame.
func EncodeRunFlag(on bool) []byte {
	if on {
		return []byte{OpRunFlag, 0x01}
	}
	return []byte{OpRunFlag, 0x00}
}

// EncodeCalibrate builds the calibration frame: opcode plus the capture
// duration in milliseconds, little-endian uint16.
func EncodeCalibrate(duration time.Duration) []byte {
	ms := duration.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	if ms > math.MaxUint16 {
		ms = math.MaxUint16
	}
	frame := make([]byte, 4)
	frame[0] = OpCalibrate
	binary.LittleEndian.PutUint16(frame[1:3], uint16(ms))
	frame[3] = 0x00 // reserved
	return frame
}

// DecodeMotion interprets a motion notification. Pitch is derived from the
// accelerometer vector; the device establishes the zero-reference during
// calibration, so no host-side offset is applied.
func DecodeMotion(buf []byte, at time.Time) (domain.OrientationReading, error) {
	if len(buf) < MotionFrameSize {
		return domain.OrientationReading{}, fmt.Errorf("motion frame too short: %d bytes", len(buf))
	}

	f := func(off int) float64 {
		bits := binary.LittleEndian.Uint32(buf[off : off+4])
		return float64(math.Float32frombits(bits))
	}

	r := domain.OrientationReading{
		AccelX:       f(0),
		AccelY:       f(4),
		AccelZ:       f(8),
		GyroX:        f(12),
		GyroY:        f(16),
		GyroZ:        f(20),
		ActivityHint: domain.ActivityUnknown,
		Timestamp:    at,
	}

	if len(buf) > MotionFrameSize {
		r.ActivityHint = ActivityFromCode(buf[MotionFrameSize])
	}

	r.Pitch = pitchFromAccel(r.AccelX, r.AccelY, r.AccelZ)
	return r, nil
}

// EncodeMotion builds a motion notification payload from a reading. Used by
// the simulated device and tests; the float fields must round-trip exactly
// through float32.
func EncodeMotion(r domain.OrientationReading, withHint bool) []byte {
	size := MotionFrameSize
	if withHint {
		size++
	}
	buf := make([]byte, size)

	put := func(off int, v float64) {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(float32(v)))
	}
	put(0, r.AccelX)
	put(4, r.AccelY)
	put(8, r.AccelZ)
	put(12, r.GyroX)
	put(16, r.GyroY)
	put(20, r.GyroZ)

	if withHint {
		code, ok := ActivityCode(r.ActivityHint)
		if !ok {
			code = 0xFF
		}
		buf[MotionFrameSize] = code
	}
	return buf
}

// DecodeBattery interprets a battery notification: one unsigned byte, 0-100.
func DecodeBattery(buf []byte, at time.Time) (domain.BatteryReading, error) {
	if len(buf) < 1 {
		return domain.BatteryReading{}, fmt.Errorf("empty battery frame")
	}
	pct := int(buf[0])
	if pct > 100 {
		return domain.BatteryReading{}, fmt.Errorf("battery percentage out of range: %d", pct)
	}
	return domain.BatteryReading{Percentage: pct, Timestamp: at}, nil
}

// GPSLinePrefix marks GPS fix reports on the NUS notify channel.
const GPSLinePrefix = "GPS,"

// DecodeGPSLine parses a "GPS,fix,lat,lon,alt,speed,course,sats" text line.
func DecodeGPSLine(line string, at time.Time) (domain.GPSReading, error) {
	if !strings.HasPrefix(line, GPSLinePrefix) {
		return domain.GPSReading{}, fmt.Errorf("not a GPS line: %q", line)
	}

	parts := strings.Split(line[len(GPSLinePrefix):], ",")
	if len(parts) < 5 {
		return domain.GPSReading{}, fmt.Errorf("short GPS line: %q", line)
	}

	num := func(i int) float64 {
		v, err := strconv.ParseFloat(parts[i], 64)
		if err != nil {
			return 0
		}
		return v
	}

	r := domain.GPSReading{
		Fix:       parts[0] == "1",
		Latitude:  num(1),
		Longitude: num(2),
		Altitude:  num(3),
		Speed:     num(4),
		Timestamp: at,
	}
	if len(parts) > 5 {
		r.Course = num(5)
	}
	if len(parts) > 6 {
		sats, err := strconv.Atoi(parts[6])
		if err == nil {
			r.Satellites = sats
		}
	}
	return r, nil
}

// pitchFromAccel derives the tilt angle (degrees) from a gravity-dominated
// acceleration vector.
func pitchFromAccel(ax, ay, az float64) float64 {
	return math.Atan2(-ax, math.Hypot(ay, az)) * 180.0 / math.Pi
}
