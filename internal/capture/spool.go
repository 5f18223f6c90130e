package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"gonum.org/v1/gonum/num/quat"

	"github.com/openarmap/capture/internal/monitoring"
	"github.com/openarmap/capture/internal/pose"
	"github.com/openarmap/capture/internal/security"
)

// frameSidecar is the JSON metadata file a device drops next to each image
// in the spool directory.
type frameSidecar struct {
	TimestampMs int64         `json:"timestamp_ms"`
	Tracking    TrackingState `json:"tracking"`
	Translation [3]float64    `json:"translation"`
	Rotation    [4]float64    `json:"rotation"` // w, x, y, z
	ExposureMs  float64       `json:"exposure_ms"`
	ISO         int           `json:"iso"`
	RotationDeg int           `json:"rotation_deg"`
	Image       string        `json:"image,omitempty"`
	GPS         *sidecarGPS   `json:"gps,omitempty"`
}

// sidecarGPS is the optional location fix block of a sidecar. Devices omit
// it when location permission is denied or no fix is available.
type sidecarGPS struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Alt      float64 `json:"alt"`
	Accuracy float64 `json:"accuracy"`
}

// SpoolSource reads sensor frames from a spool directory: the device drops
// an image file plus a ".json" sidecar per frame, and the source watches
// for new sidecars with fsnotify. Files already present at start are
// served first, in name order.
type SpoolSource struct {
	dir     string
	watcher *fsnotify.Watcher
	pending chan string
}

// NewSpoolSource opens a watch on dir. The directory must exist.
func NewSpoolSource(dir string) (*SpoolSource, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	s := &SpoolSource{
		dir:     dir,
		watcher: watcher,
		pending: make(chan string, 256),
	}

	// Frames dropped before the watch started are served first.
	entries, err := os.ReadDir(dir)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(names)
	for _, n := range names {
		select {
		case s.pending <- n:
		default:
			monitoring.Logf("spool: backlog full, dropping %s", n)
		}
	}

	go s.watch()
	return s, nil
}

// watch forwards sidecar create events into the pending queue.
func (s *SpoolSource) watch() {
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if !strings.HasSuffix(ev.Name, ".json") {
				continue
			}
			select {
			case s.pending <- ev.Name:
			default:
				monitoring.Logf("spool: backlog full, dropping %s", ev.Name)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			monitoring.Logf("spool: watcher error: %v", err)
		}
	}
}

// Next blocks until a sidecar is available and loads the frame it
// describes.
func (s *SpoolSource) Next(ctx context.Context) (*SensorFrame, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case sidecarPath, ok := <-s.pending:
		if !ok {
			return nil, ErrSourceExhausted
		}
		return s.loadFrame(sidecarPath)
	}
}

// loadFrame reads a sidecar plus its image file into a SensorFrame.
func (s *SpoolSource) loadFrame(sidecarPath string) (*SensorFrame, error) {
	data, err := os.ReadFile(sidecarPath)
	if err != nil {
		return nil, fmt.Errorf("read sidecar: %w", err)
	}
	var sc frameSidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse sidecar %s: %w", sidecarPath, err)
	}
	if !sc.Tracking.IsValid() {
		return nil, fmt.Errorf("sidecar %s: unknown tracking state %q", sidecarPath, sc.Tracking)
	}

	imgName := sc.Image
	if imgName == "" {
		imgName = strings.TrimSuffix(filepath.Base(sidecarPath), ".json") + ".jpg"
	}
	imgPath := filepath.Join(s.dir, imgName)
	// Sidecar contents are device-written and untrusted.
	if err := security.ValidatePathWithinDirectory(imgPath, s.dir); err != nil {
		return nil, fmt.Errorf("sidecar %s: %w", sidecarPath, err)
	}
	f, err := os.Open(imgPath)
	if err != nil {
		return nil, fmt.Errorf("open frame image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode frame image %s: %w", imgName, err)
	}

	var fix *GPSLocation
	if sc.GPS != nil {
		loc := NewGPSLocation(sc.GPS.Lat, sc.GPS.Lon, sc.GPS.Alt, sc.GPS.Accuracy)
		fix = &loc
	}

	return &SensorFrame{
		Timestamp: time.UnixMilli(sc.TimestampMs),
		Tracking:  sc.Tracking,
		Pose: pose.Pose{
			Translation: sc.Translation,
			Rotation: quat.Number{
				Real: sc.Rotation[0],
				Imag: sc.Rotation[1],
				Jmag: sc.Rotation[2],
				Kmag: sc.Rotation[3],
			},
		}.Normalized(),
		Image: img,
		Exposure: ExposureInfo{
			ExposureMillis: sc.ExposureMs,
			ISO:            sc.ISO,
		},
		RotationDeg: sc.RotationDeg,
		GPS:         fix,
	}, nil
}

// Close stops the directory watch.
func (s *SpoolSource) Close() error {
	return s.watcher.Close()
}
