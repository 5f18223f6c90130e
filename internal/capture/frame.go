// Package capture implements the per-frame quality gate and the sequential
// capture loop that decides, for every AR frame, whether to keep it as part
// of the scan dataset.
package capture

import (
	"image"
	"time"

	"github.com/paulmach/orb"

	"github.com/openarmap/capture/internal/pose"
	"github.com/openarmap/capture/internal/quality"
)

// TrackingState is the AR subsystem's confidence classification for the
// current pose.
type TrackingState string

const (
	// TrackingGood indicates the pose is reliable and capture may proceed.
	TrackingGood TrackingState = "good"
	// TrackingPaused indicates tracking is temporarily degraded.
	TrackingPaused TrackingState = "paused"
	// TrackingLost indicates tracking has failed.
	TrackingLost TrackingState = "lost"
)

// IsValid reports whether s is a recognised tracking state.
func (s TrackingState) IsValid() bool {
	return s == TrackingGood || s == TrackingPaused || s == TrackingLost
}

// Confidence maps the tracking state to a numeric pose confidence stored
// with each accepted frame.
func (s TrackingState) Confidence() float64 {
	switch s {
	case TrackingGood:
		return 1.0
	case TrackingPaused:
		return 0.5
	default:
		return 0
	}
}

// ExposureInfo carries the camera exposure metadata reported with a frame.
type ExposureInfo struct {
	ExposureMillis float64 `json:"exposure_ms"`
	ISO            int     `json:"iso"`
}

// IMUSample holds accelerometer and gyroscope readings. The AR client
// variants persist placeholder values here; the type exists so the export
// format is stable once real IMU plumbing lands.
type IMUSample struct {
	Accel [3]float64 `json:"accel"`
	Gyro  [3]float64 `json:"gyro"`
}

// GPSLocation is the best-effort last-known device location. The zero
// value means no fix was ever received (permission denied or indoors).
type GPSLocation struct {
	Point    orb.Point `json:"-"` // lon, lat
	Altitude float64   `json:"alt"`
	Accuracy float64   `json:"accuracy"`
}

// NewGPSLocation builds a location from latitude/longitude degrees, meters
// of altitude, and the reported horizontal accuracy in meters.
func NewGPSLocation(lat, lon, alt, accuracy float64) GPSLocation {
	return GPSLocation{
		Point:    orb.Point{lon, lat},
		Altitude: alt,
		Accuracy: accuracy,
	}
}

// Lat returns the latitude in degrees.
func (g GPSLocation) Lat() float64 { return g.Point.Lat() }

// Lon returns the longitude in degrees.
func (g GPSLocation) Lon() float64 { return g.Point.Lon() }

// IsZero reports whether the location has never been set.
func (g GPSLocation) IsZero() bool {
	return g.Point == orb.Point{} && g.Altitude == 0 && g.Accuracy == 0
}

// SensorFrame is one poll result from the AR/camera subsystem: tracking
// confidence, 6-DoF pose, the raw decoded image, and exposure metadata.
type SensorFrame struct {
	Timestamp time.Time
	Tracking  TrackingState
	Pose      pose.Pose
	Image     image.Image
	Exposure  ExposureInfo

	// RotationDeg is the clockwise rotation needed to bring the image to
	// portrait orientation (0, 90, 180, or 270). Phone sensors commonly
	// deliver landscape buffers.
	RotationDeg int

	// GPS is the location fix reported with this frame, nil when the
	// device had none. Fixes feed the loop's last-known location, so a
	// frame without one still captures with the previous fix.
	GPS *GPSLocation
}

// CapturedFrame is a frame the gate accepted, as persisted to storage and
// later exported. It is created on acceptance and never mutated; it is
// deleted only with its parent session.
type CapturedFrame struct {
	FrameID        string
	SessionID      string
	TimestampMs    int64
	Pose           pose.Pose
	GPS            GPSLocation
	IMU            IMUSample
	PoseConfidence float64
	Quality        quality.ImageQuality
	Exposure       ExposureInfo

	// ImagePath is the stored image file, relative to the session media dir.
	ImagePath string
}
