// Command arscan runs one walkthrough scan session: it polls frames from a
// source, gates them on motion and image quality, and persists accepted
// frames for later export.
package main

import (
	"context"
	"flag"
	"image"
	"log"
	"math/rand"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"gonum.org/v1/gonum/num/quat"

	"github.com/openarmap/capture/internal/capture"
	"github.com/openarmap/capture/internal/config"
	"github.com/openarmap/capture/internal/db"
	"github.com/openarmap/capture/internal/fsutil"
	"github.com/openarmap/capture/internal/pose"
	"github.com/openarmap/capture/internal/quality"
	"github.com/openarmap/capture/internal/timeutil"
	"github.com/openarmap/capture/internal/version"
)

var (
	devMode     = flag.Bool("dev", false, "run against generated fixture frames instead of a device spool")
	devFrames   = flag.Int("dev-frames", 120, "number of fixture frames in dev mode")
	spoolDir    = flag.String("spool", "", "device spool directory to watch for frames (ignored in dev mode)")
	dbPath      = flag.String("db", "arscan.db", "SQLite database path")
	configPath  = flag.String("config", "", "tuning config JSON (defaults apply when empty)")
	mediaDir    = flag.String("media", "media", "base directory for stored frame images")
	sessionName = flag.String("name", "", "session name")
	deviceID    = flag.String("device-id", "", "device identifier recorded with the session")
	deviceModel = flag.String("device-model", "", "device model recorded with the session")
	appVersion  = flag.String("app-version", "", "app version recorded with the session")
	scanType    = flag.String("scan-type", "walkthrough", "scan type recorded with the session")
)

func main() {
	flag.Parse()

	var cfg *config.TuningConfig
	if *configPath != "" {
		var err error
		cfg, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	} else {
		cfg = config.EmptyTuningConfig()
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid tuning config: %v", err)
	}

	var source capture.FrameSource
	if *devMode {
		source = capture.NewReplaySource(fixtureFrames(*devFrames, cfg.GetCaptureInterval()))
	} else {
		if *spoolDir == "" {
			log.Fatal("either -dev or -spool is required")
		}
		var err error
		source, err = capture.NewSpoolSource(*spoolDir)
		if err != nil {
			log.Fatalf("failed to open spool: %v", err)
		}
	}
	defer source.Close()

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()
	if err := database.MigrateUp(); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	sessions := db.NewSessionStore(database)
	frames := db.NewFrameStore(database)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appVer := *appVersion
	if appVer == "" {
		appVer = version.Version
	}
	session, err := sessions.CreateSession(ctx, db.SessionMeta{
		Name:        *sessionName,
		DeviceID:    *deviceID,
		DeviceModel: *deviceModel,
		AppVersion:  appVer,
		ScanType:    *scanType,
	})
	if err != nil {
		log.Fatalf("failed to create session: %v", err)
	}
	log.Printf("session %s started", session.SessionID)

	sink, err := capture.NewMediaDir(fsutil.OSFileSystem{},
		filepath.Join(*mediaDir, session.SessionID), 0)
	if err != nil {
		log.Fatalf("failed to create media dir: %v", err)
	}

	loop := capture.NewLoop(capture.LoopConfig{
		SessionID: session.SessionID,
		PollDelay: cfg.GetPollDelay(),
		Gate:      capture.GateConfigFromTuning(cfg),
		Motion:    quality.MotionConfigFromTuning(cfg),
		Image:     quality.ImageConfigFromTuning(cfg),
		RefPolicy: pose.ReferencePolicy(cfg.GetMotionReference()),
	}, source, sink, frames, nil, nil, timeutil.RealClock{})

	var wg sync.WaitGroup
	var stats capture.Stats
	wg.Add(1)
	go func() {
		defer wg.Done()
		var runErr error
		stats, runErr = loop.Run(ctx)
		if runErr != nil {
			log.Printf("capture loop: %v", runErr)
		}
		stop()
	}()
	wg.Wait()

	// The signal context is done; use a fresh one to finalize the session.
	endCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sessions.EndSession(endCtx, session.SessionID, time.Now()); err != nil {
		log.Printf("failed to finalize session: %v", err)
	}

	log.Printf("session %s finished: %d seen, %d gated, %d accepted, %d rejected, %d errors",
		session.SessionID, stats.FramesSeen, stats.FramesGated,
		stats.FramesAccepted, stats.FramesRejected, stats.FrameErrors)
}

// fixtureFrames generates a synthetic steady walk for dev mode: good
// tracking, forward translation within the ideal range, noisy images that
// score well, and a slowly drifting GPS fix so exports carry a track.
func fixtureFrames(n int, interval time.Duration) []*capture.SensorFrame {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	frames := make([]*capture.SensorFrame, n)
	start := time.Now()
	for i := range frames {
		img := image.NewGray(image.Rect(0, 0, 320, 240))
		for p := range img.Pix {
			img.Pix[p] = uint8(rng.Intn(256))
		}
		fix := capture.NewGPSLocation(52.52+1e-7*float64(i), 13.405, 34, 4)
		frames[i] = &capture.SensorFrame{
			Timestamp: start.Add(time.Duration(i) * interval),
			Tracking:  capture.TrackingGood,
			Pose: pose.Pose{
				Translation: [3]float64{0, 0, 0.01 * float64(i)},
				Rotation:    quat.Number{Real: 1},
			},
			Image:    img,
			Exposure: capture.ExposureInfo{ExposureMillis: 8.3, ISO: 100},
			GPS:      &fix,
		}
	}
	return frames
}
