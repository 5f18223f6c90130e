package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/num/quat"

	"github.com/openarmap/capture/internal/capture"
	"github.com/openarmap/capture/internal/pose"
)

// FrameStore manages persistence for captured frames. It satisfies the
// capture loop's FrameStore interface.
type FrameStore struct {
	db *DB
}

// NewFrameStore creates a FrameStore backed by the given database.
func NewFrameStore(db *DB) *FrameStore {
	return &FrameStore{db: db}
}

// InsertFrame persists one accepted frame.
func (s *FrameStore) InsertFrame(ctx context.Context, f *capture.CapturedFrame) error {
	imuJSON, err := json.Marshal(f.IMU)
	if err != nil {
		return fmt.Errorf("marshal imu: %w", err)
	}

	err = retryOnBusy(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO captured_frames (
				frame_id, session_id, timestamp_ms,
				tx, ty, tz, qw, qx, qy, qz,
				gps_lat, gps_lon, gps_alt, gps_accuracy, imu_json,
				pose_confidence, blur_score, lighting_score, focus_score, overall_score,
				exposure_ms, iso, image_path
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			f.FrameID, f.SessionID, f.TimestampMs,
			f.Pose.Translation[0], f.Pose.Translation[1], f.Pose.Translation[2],
			f.Pose.Rotation.Real, f.Pose.Rotation.Imag, f.Pose.Rotation.Jmag, f.Pose.Rotation.Kmag,
			f.GPS.Lat(), f.GPS.Lon(), f.GPS.Altitude, f.GPS.Accuracy, string(imuJSON),
			f.PoseConfidence, f.Quality.BlurScore, f.Quality.LightingScore,
			f.Quality.FocusScore, f.Quality.OverallScore,
			f.Exposure.ExposureMillis, f.Exposure.ISO, f.ImagePath,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("inserting frame %s: %w", f.FrameID, err)
	}
	return nil
}

// GetFrame returns one frame by ID.
func (s *FrameStore) GetFrame(ctx context.Context, frameID string) (*capture.CapturedFrame, error) {
	rows, err := s.db.QueryContext(ctx, frameSelect+` WHERE frame_id = ?`, frameID)
	if err != nil {
		return nil, fmt.Errorf("get frame: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("frame %s not found", frameID)
	}
	return scanFrame(rows)
}

// ListBySession returns all frames of a session in capture order.
func (s *FrameStore) ListBySession(ctx context.Context, sessionID string) ([]*capture.CapturedFrame, error) {
	rows, err := s.db.QueryContext(ctx,
		frameSelect+` WHERE session_id = ? ORDER BY timestamp_ms ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	defer rows.Close()

	var frames []*capture.CapturedFrame
	for rows.Next() {
		f, err := scanFrame(rows)
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return frames, rows.Err()
}

// CountBySession returns the number of frames stored for a session.
func (s *FrameStore) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM captured_frames WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count frames: %w", err)
	}
	return n, nil
}

const frameSelect = `
	SELECT frame_id, session_id, timestamp_ms,
	       tx, ty, tz, qw, qx, qy, qz,
	       gps_lat, gps_lon, gps_alt, gps_accuracy, imu_json,
	       pose_confidence, blur_score, lighting_score, focus_score, overall_score,
	       exposure_ms, iso, image_path
	FROM captured_frames`

// scanFrame scans a frame row from a sql.Rows cursor.
func scanFrame(rows *sql.Rows) (*capture.CapturedFrame, error) {
	var f capture.CapturedFrame
	var lat, lon float64
	var imuJSON sql.NullString
	err := rows.Scan(
		&f.FrameID, &f.SessionID, &f.TimestampMs,
		&f.Pose.Translation[0], &f.Pose.Translation[1], &f.Pose.Translation[2],
		&f.Pose.Rotation.Real, &f.Pose.Rotation.Imag, &f.Pose.Rotation.Jmag, &f.Pose.Rotation.Kmag,
		&lat, &lon, &f.GPS.Altitude, &f.GPS.Accuracy, &imuJSON,
		&f.PoseConfidence, &f.Quality.BlurScore, &f.Quality.LightingScore,
		&f.Quality.FocusScore, &f.Quality.OverallScore,
		&f.Exposure.ExposureMillis, &f.Exposure.ISO, &f.ImagePath,
	)
	if err != nil {
		return nil, fmt.Errorf("scan frame row: %w", err)
	}

	f.Pose = normalizedPose(f.Pose)
	f.GPS = capture.NewGPSLocation(lat, lon, f.GPS.Altitude, f.GPS.Accuracy)
	if imuJSON.Valid && imuJSON.String != "" {
		if err := json.Unmarshal([]byte(imuJSON.String), &f.IMU); err != nil {
			return nil, fmt.Errorf("parse imu for frame %s: %w", f.FrameID, err)
		}
	}
	return &f, nil
}

// normalizedPose is a scan helper guard: stored rotations were normalized
// on capture, but a zero row would otherwise propagate NaNs downstream.
func normalizedPose(p pose.Pose) pose.Pose {
	if (p.Rotation == quat.Number{}) {
		return pose.Pose{Translation: p.Translation, Rotation: quat.Number{Real: 1}}
	}
	return p
}
