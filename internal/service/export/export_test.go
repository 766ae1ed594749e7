package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkrajina/gpxgo/gpx"

	"github.com/umutcvc/MySomatra-sub000/internal/domain"
)

func fixes(n int) []domain.GPSReading {
	base := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	out := make([]domain.GPSReading, n)
	for i := range out {
		out[i] = domain.GPSReading{
			Fix:       true,
			Latitude:  41.015 + float64(i)*0.0001,
			Longitude: 28.979 + float64(i)*0.0001,
			Altitude:  40 + float64(i),
			Speed:     2.5,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
	}
	return out
}

func TestWriteGPX(t *testing.T) {
	readings := fixes(5)
	// A no-fix reading must be dropped, not exported at 0,0.
	readings = append(readings, domain.GPSReading{Fix: false})

	path := filepath.Join(t.TempDir(), "out.gpx")
	require.NoError(t, WriteGPX(readings, path))

	doc, err := gpx.ParseFile(path)
	require.NoError(t, err)
	require.Len(t, doc.Tracks, 1)
	require.Len(t, doc.Tracks[0].Segments, 1)

	points := doc.Tracks[0].Segments[0].Points
	require.Len(t, points, 5)
	assert.InDelta(t, 41.015, points[0].Latitude, 1e-9)
	assert.InDelta(t, 44.0, points[4].Elevation.Value(), 1e-9)
}

func TestWriteGPXNoFixes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.gpx")
	err := WriteGPX([]domain.GPSReading{{Fix: false}}, path)
	assert.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no file on failure")
}

func TestFITRecorder(t *testing.T) {
	rec := NewFITRecorder()
	readings := fixes(10)
	rec.StartSession(readings[0].Timestamp)
	for _, r := range readings {
		rec.AddReading(r)
	}
	rec.AddReading(domain.GPSReading{Fix: false}) // ignored

	assert.Len(t, rec.records, 10)

	path := filepath.Join(t.TempDir(), "out.fit")
	require.NoError(t, rec.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestFITStartSessionResets(t *testing.T) {
	rec := NewFITRecorder()
	for _, r := range fixes(3) {
		rec.AddReading(r)
	}
	rec.StartSession(time.Now())
	assert.Empty(t, rec.records)
}
