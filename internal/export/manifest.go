// Package export writes a finished scan session out as a reconstruction
// dataset: numbered frame images plus a transforms manifest and a session
// summary, in the layout photogrammetry tools ingest.
package export

import (
	"fmt"

	"github.com/openarmap/capture/internal/capture"
	"github.com/openarmap/capture/internal/db"
	"github.com/openarmap/capture/internal/pose"
)

// GPSRecord is the per-frame location block of the manifest.
type GPSRecord struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Alt      float64 `json:"alt"`
	Accuracy float64 `json:"accuracy"`
}

// QualityRecord is the per-frame quality block of the manifest.
type QualityRecord struct {
	PoseConfidence float64 `json:"pose_confidence"`
	FrameQuality   float64 `json:"frame_quality"`
}

// ManifestFrame is one per-frame record in transforms.json. The transform
// matrix is row-major with the Y and Z axes already flipped from the AR
// convention to the reconstruction convention.
type ManifestFrame struct {
	FilePath        string            `json:"file_path"`
	TransformMatrix [16]float64       `json:"transform_matrix"`
	TimestampMs     int64             `json:"timestamp"`
	GPS             GPSRecord         `json:"gps"`
	IMU             capture.IMUSample `json:"imu"`
	Quality         QualityRecord     `json:"quality"`
}

// Manifest is the transforms.json document.
type Manifest struct {
	Frames []ManifestFrame `json:"frames"`
}

// SessionSummary is the session.json document.
type SessionSummary struct {
	SessionID    string  `json:"session_id"`
	DeviceID     string  `json:"device_id,omitempty"`
	DeviceModel  string  `json:"device_model,omitempty"`
	AppVersion   string  `json:"app_version,omitempty"`
	ScanType     string  `json:"scan_type"`
	StartTimeMs  int64   `json:"start_time"`
	EndTimeMs    *int64  `json:"end_time,omitempty"`
	FrameCount   int     `json:"frame_count"`
	Name         string  `json:"name,omitempty"`
	TrackLengthM float64 `json:"gps_track_length_m"`
}

// frameImageName returns the numbered dataset filename for frame index i
// (zero-based).
func frameImageName(i int) string {
	return fmt.Sprintf("frame_%06d.jpg", i+1)
}

// buildManifest converts stored frames, already in timestamp order, into
// manifest records.
func buildManifest(frames []*capture.CapturedFrame) Manifest {
	m := Manifest{Frames: make([]ManifestFrame, 0, len(frames))}
	for i, f := range frames {
		m.Frames = append(m.Frames, ManifestFrame{
			FilePath:        "images/" + frameImageName(i),
			TransformMatrix: pose.FlipYZ(f.Pose.TransformMatrix()),
			TimestampMs:     f.TimestampMs,
			GPS: GPSRecord{
				Lat:      f.GPS.Lat(),
				Lon:      f.GPS.Lon(),
				Alt:      f.GPS.Altitude,
				Accuracy: f.GPS.Accuracy,
			},
			IMU: f.IMU,
			Quality: QualityRecord{
				PoseConfidence: f.PoseConfidence,
				FrameQuality:   f.Quality.OverallScore,
			},
		})
	}
	return m
}

// buildSummary assembles the session.json document.
func buildSummary(session *db.ScanSession, frames []*capture.CapturedFrame) SessionSummary {
	return SessionSummary{
		SessionID:    session.SessionID,
		DeviceID:     session.DeviceID,
		DeviceModel:  session.DeviceModel,
		AppVersion:   session.AppVersion,
		ScanType:     session.ScanType,
		StartTimeMs:  session.StartedAtMs,
		EndTimeMs:    session.EndedAtMs,
		FrameCount:   len(frames),
		Name:         session.Name,
		TrackLengthM: TrackLength(frames),
	}
}
