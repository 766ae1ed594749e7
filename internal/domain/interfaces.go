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

package domain

import (
	"context"
	"time"
)

// DeviceService defines how the core talks to one paired wearable.
// Decoupled: it doesn't matter whether it's real BLE or a simulation.
type DeviceService interface {
	// IsSupported reports whether the platform has a usable BLE adapter.
	// Pure capability check, no side effects beyond probing the adapter.
	IsSupported() bool

	// RequestPairing scans for a device whose name carries a recognized
	// prefix. Returns (nil, nil) when the caller cancels via ctx.
	RequestPairing(ctx context.Context) (*DeviceInfo, error)

	// Connect opens the transport to the previously paired device and
	// resolves the command, motion and battery channels best-effort.
	Connect(ctx context.Context) error

	// Disconnect tears everything down. Idempotent; listeners observe
	// exactly one connected=false transition per disconnect.
	Disconnect()

	// SendCommand writes raw bytes to the command channel. Silent no-op
	// if the channel never resolved.
	SendCommand(payload []byte) error

	// StartTherapy writes the set-parameters frame followed by the start
	// flag frame. The two writes are not transactional.
	StartTherapy(mode TherapyMode, intensity int) error

	// StopTherapy writes the stop flag frame.
	StopTherapy() error

	// CalibrateIMU asks the device to capture a zero-reference for pitch
	// over the given duration.
	CalibrateIMU(duration time.Duration) error

	// OnOrientation/OnGPS/OnBattery/OnConnectionChange register listeners
	// for decoded readings. The returned function unsubscribes.
	OnOrientation(fn func(OrientationReading)) func()
	OnGPS(fn func(GPSReading)) func()
	OnBattery(fn func(BatteryReading)) func()
	OnConnectionChange(fn func(bool)) func()
}

// SessionSink is the external collaborator that persists therapy session
// records. Both calls are fire-and-forget from the core's point of view.
type SessionSink interface {
	// Begin records a session start (duration 0) and returns its id.
	Begin(mode TherapyMode, intensity int) (uint, error)

	// End marks the session with the given id as ended.
	End(id uint) error
}
