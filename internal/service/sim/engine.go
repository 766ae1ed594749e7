package sim

import (
	"math"
	"math/rand"

	"github.com/umutcvc/MySomatra-sub000/internal/domain"
)

// Profile shapes the synthetic pitch waveform for one activity.
type Profile struct {
	Base      float64 // resting tilt, degrees
	Amplitude float64 // swing amplitude, degrees
	Frequency float64 // Hz
	Noise     float64 // uniform jitter amplitude, degrees
}

// ProfileFor returns the waveform parameters used to fake each activity.
// Rough magnitudes: walking swings the torso a little, running a lot,
// stairs slower but deeper.
func ProfileFor(activity domain.ActivityType) Profile {
	switch activity {
	case domain.ActivityWalking:
		return Profile{Base: 2, Amplitude: 8, Frequency: 2.0, Noise: 0.8}
	case domain.ActivityRunning:
		return Profile{Base: 5, Amplitude: 18, Frequency: 3.0, Noise: 1.5}
	case domain.ActivityStairs:
		return Profile{Base: 8, Amplitude: 12, Frequency: 1.4, Noise: 1.0}
	default: // still
		return Profile{Base: 0, Amplitude: 0.3, Frequency: 0.2, Noise: 0.2}
	}
}

// Engine generates synthetic IMU readings for a chosen activity. Used by
// the mock device service and by tests.
type Engine struct {
	profile Profile
	rng     *rand.Rand
}

// NewEngine seeds a generator for the given profile. A fixed seed keeps
// test runs reproducible.
func NewEngine(profile Profile, seed int64) *Engine {
	return &Engine{
		profile: profile,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// SetProfile switches the waveform mid-stream.
func (e *Engine) SetProfile(p Profile) {
	e.profile = p
}

// Pitch returns the tilt angle at time t (seconds since stream start).
func (e *Engine) Pitch(t float64) float64 {
	p := e.profile
	jitter := (e.rng.Float64()*2 - 1) * p.Noise
	return p.Base + p.Amplitude*math.Sin(2*math.Pi*p.Frequency*t) + jitter
}

// Reading builds a full orientation sample whose accelerometer vector
// decodes back to the generated pitch.
func (e *Engine) Reading(t float64) domain.OrientationReading {
	pitch := e.Pitch(t)
	rad := pitch * math.Pi / 180.0

	// Unit gravity vector tilted by pitch around the Y axis.
	r := domain.OrientationReading{
		AccelX:       -math.Sin(rad),
		AccelY:       0,
		AccelZ:       math.Cos(rad),
		ActivityHint: domain.ActivityUnknown,
	}

	// Angular rate is the analytic derivative of the carrier wave.
	p := e.profile
	r.GyroY = p.Amplitude * 2 * math.Pi * p.Frequency * math.Cos(2*math.Pi*p.Frequency*t)
	r.Pitch = pitch
	return r
}
