package export

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/openarmap/capture/internal/capture"
)

// TrackLength returns the geodesic length in meters of the GPS track
// formed by the frames' location fixes, skipping frames with no fix.
// Fewer than two fixes yield zero.
func TrackLength(frames []*capture.CapturedFrame) float64 {
	track := make(orb.LineString, 0, len(frames))
	for _, f := range frames {
		if f.GPS.IsZero() {
			continue
		}
		track = append(track, f.GPS.Point)
	}
	if len(track) < 2 {
		return 0
	}
	return geo.Length(track)
}
