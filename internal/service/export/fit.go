package export

import (
	"os"
	"time"

	"github.com/muktihari/fit/encoder"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"
	"github.com/muktihari/fit/proto"

	"github.com/umutcvc/MySomatra-sub000/internal/domain"
)

// FIT standard scaling factors.
const (
	degreesToSemicircles = 2147483648.0 / 180.0
	knotsToMps           = 0.514444
)

// FITRecorder accumulates GPS fixes during an outdoor session and writes
// them out as a FIT activity file.
type FITRecorder struct {
	records   []*mesgdef.Record
	startTime time.Time
}

func NewFITRecorder() *FITRecorder {
	return &FITRecorder{records: []*mesgdef.Record{}}
}

// StartSession marks the beginning of the recording and clears any
// previous records.
func (f *FITRecorder) StartSession(startTime time.Time) {
	f.startTime = startTime
	f.records = []*mesgdef.Record{}
}

// AddReading converts one GPS fix to the FIT record encoding. Readings
// without a fix are ignored.
func (f *FITRecorder) AddReading(r domain.GPSReading) {
	if !r.Fix {
		return
	}

	lat := int32(r.Latitude * degreesToSemicircles)
	lon := int32(r.Longitude * degreesToSemicircles)

	// Speed: knots -> mm/s
	scaledSpeed := uint32(r.Speed * knotsToMps * 1000)

	// Altitude: (meters + 500) * 5, offset keeps depressions positive
	scaledAlt := uint32((r.Altitude + 500.0) * 5.0)

	f.records = append(f.records, &mesgdef.Record{
		Timestamp:        r.Timestamp,
		PositionLat:      lat,
		PositionLong:     lon,
		EnhancedSpeed:    scaledSpeed,
		EnhancedAltitude: scaledAlt,
	})
}

// Save finalizes the activity with event, lap and session summaries and
// writes the FIT file to disk.
func (f *FITRecorder) Save(filepath string) error {
	out, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer out.Close()

	enc := encoder.New(out)
	fit := proto.FIT{}

	fileIdMesg := mesgdef.FileId{
		Type:         typedef.FileActivity,
		Manufacturer: typedef.ManufacturerDevelopment,
		Product:      0,
		SerialNumber: 12345,
		TimeCreated:  f.startTime,
	}
	fit.Messages = append(fit.Messages, fileIdMesg.ToMesg(nil))

	for _, rec := range f.records {
		fit.Messages = append(fit.Messages, rec.ToMesg(nil))
	}

	totalTime := time.Since(f.startTime).Seconds()

	eventMesg := mesgdef.Event{
		Timestamp: time.Now(),
		Event:     typedef.EventTimer,
		EventType: typedef.EventTypeStopAll,
	}
	fit.Messages = append(fit.Messages, eventMesg.ToMesg(nil))

	lapMesg := mesgdef.Lap{
		Timestamp:        time.Now(),
		StartTime:        f.startTime,
		TotalElapsedTime: uint32(totalTime * 1000),
		TotalTimerTime:   uint32(totalTime * 1000),
		Event:            typedef.EventLap,
		EventType:        typedef.EventTypeStop,
	}
	fit.Messages = append(fit.Messages, lapMesg.ToMesg(nil))

	sessionMesg := mesgdef.Session{
		Timestamp:        time.Now(),
		StartTime:        f.startTime,
		TotalElapsedTime: uint32(totalTime * 1000),
		TotalTimerTime:   uint32(totalTime * 1000),
		Sport:            typedef.SportGeneric,
		SubSport:         typedef.SubSportGeneric,
		Event:            typedef.EventSession,
		EventType:        typedef.EventTypeStop,
		Trigger:          typedef.SessionTriggerActivityEnd,
	}
	fit.Messages = append(fit.Messages, sessionMesg.ToMesg(nil))

	return enc.Encode(&fit)
}
