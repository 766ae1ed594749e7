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

package export

import (
	"fmt"
	"os"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/umutcvc/MySomatra-sub000/internal/domain"
)

// WriteGPX serializes the GPS history as a single-segment GPX track.
// Readings without a fix are skipped.
func WriteGPX(readings []domain.GPSReading, filepath string) error {
	segment := gpx.GPXTrackSegment{}
	for _, r := range readings {
		if !r.Fix {
			continue
		}
		point := gpx.GPXPoint{
			Point: gpx.Point{
				Latitude:  r.Latitude,
				Longitude: r.Longitude,
				Elevation: *gpx.NewNullableFloat64(r.Altitude),
			},
			Timestamp: r.Timestamp,
		}
		segment.Points = append(segment.Points, point)
	}

	if len(segment.Points) == 0 {
		return fmt.Errorf("no GPS points with a fix to export")
	}

	doc := gpx.GPX{
		Creator: "Somatra",
		Tracks: []gpx.GPXTrack{
			{
				Name:     "Somatra outdoor session",
				Segments: []gpx.GPXTrackSegment{segment},
			},
		},
	}

	xml, err := gpx.ToXml(&doc, gpx.ToXmlParams{Indent: true})
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, xml, 0o644)
}
