package domain

import "time"

// ActivityType is one of the motion classes the classifier can be trained on.
type ActivityType string

const (
	ActivityStill   ActivityType = "still"
	ActivityWalking ActivityType = "walking"
	ActivityRunning ActivityType = "running"
	ActivityStairs  ActivityType = "stairs"

	// ActivityUnknown is the sentinel for firmware hint bytes outside the
	// known code table.
	ActivityUnknown ActivityType = "unknown"
)

// Activities is the canonical label set, in class-index order. The position
// of a label in this slice is the class index used by the classifier.
var Activities = []ActivityType{ActivityStill, ActivityWalking, ActivityRunning, ActivityStairs}

// OrientationReading is a single decoded motion sample from the wearable.
// Pitch is derived from the calibrated accelerometer vector at decode time.
// Immutable once created, ordered by arrival.
type OrientationReading struct {
	Pitch        float64      `json:"pitch"`   // Tilt angle in degrees
	AccelX       float64      `json:"accel_x"` // Acceleration (g)
	AccelY       float64      `json:"accel_y"`
	AccelZ       float64      `json:"accel_z"`
	GyroX        float64      `json:"gyro_x"` // Angular rate (deg/s)
	GyroY        float64      `json:"gyro_y"`
	GyroZ        float64      `json:"gyro_z"`
	ActivityHint ActivityType `json:"activity_hint"` // Coarse firmware guess, may be Unknown
	Timestamp    time.Time    `json:"timestamp"`
}

// GPSReading is a decoded GPS fix report. Latitude/Longitude are meaningless
// unless Fix is true.
type GPSReading struct {
	Fix        bool      `json:"fix"`
	Latitude   float64   `json:"lat"`
	Longitude  float64   `json:"lon"`
	Altitude   float64   `json:"alt"`        // meters
	Speed      float64   `json:"speed"`      // knots
	Course     float64   `json:"course"`     // degrees
	Satellites int       `json:"satellites"`
	Timestamp  time.Time `json:"timestamp"`
}

// BatteryReading is the wearable's battery state.
type BatteryReading struct {
	Percentage int       `json:"percentage"` // 0-100
	Voltage    float64   `json:"voltage"`    // optional, 0 if not reported
	Timestamp  time.Time `json:"timestamp"`
}

// DeviceInfo describes one paired wearable.
type DeviceInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

// SampleQuality is a coarse tag on a captured recording, monotonic in
// sample count.
type SampleQuality string

const (
	QualityGood SampleQuality = "good"
	QualityFair SampleQuality = "fair"
	QualityPoor SampleQuality = "poor"
)

// ActivitySample is one labeled training recording: the raw pitch sequence
// captured over a fixed real-time window. Held in memory only, never
// persisted across restarts.
type ActivitySample struct {
	Activity    ActivityType `json:"activity"`
	Pitches     []float64    `json:"pitches"`
	CollectedAt time.Time    `json:"collected_at"`
}

// SampleSummary annotates a stored sample with derived training metadata.
type SampleSummary struct {
	Index       int           `json:"index"`
	Activity    ActivityType  `json:"activity"`
	SampleCount int           `json:"sample_count"`
	WindowCount int           `json:"window_count"`
	Quality     SampleQuality `json:"quality"`
}

// ClassificationResult is the transient output of one inference tick.
// Percentages are exponentially smoothed and sum to ~100.
type ClassificationResult struct {
	Percentages     map[ActivityType]float64 `json:"percentages"`
	CurrentActivity ActivityType             `json:"current_activity"`
	Confidence      float64                  `json:"confidence"`
	Timestamp       time.Time                `json:"timestamp"`
}

// TherapyMode is one of the six fixed stimulation programs.
type TherapyMode string

const (
	ModeRelax    TherapyMode = "relax"
	ModeSleep    TherapyMode = "sleep"
	ModeFocus    TherapyMode = "focus"
	ModeHype     TherapyMode = "hype"
	ModeMeditate TherapyMode = "meditate"
	ModeRecovery TherapyMode = "recovery"
)

// ===============
// DATABASE MODELS
// ===============

// Session represents a therapy session record. Duration stays 0 until the
// session is marked ended.
type Session struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	Mode      string     `json:"mode"`
	Intensity int        `json:"intensity"` // 0-100
	Duration  int64      `json:"duration"`  // seconds
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
	CreatedAt time.Time  `json:"created_at"`
}
