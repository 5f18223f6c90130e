// Command arscan-export writes a recorded scan session out as a
// reconstruction dataset directory.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/openarmap/capture/internal/config"
	"github.com/openarmap/capture/internal/db"
	"github.com/openarmap/capture/internal/export"
	"github.com/openarmap/capture/internal/fsutil"
	"github.com/openarmap/capture/internal/timeutil"
)

var (
	dbPath     = flag.String("db", "arscan.db", "SQLite database path")
	sessionID  = flag.String("session", "", "session to export (latest session when empty)")
	outDir     = flag.String("out", "", "output dataset directory (must not exist)")
	mediaDir   = flag.String("media", "media", "base directory holding stored frame images")
	configPath = flag.String("config", "", "tuning config JSON (defaults apply when empty)")
	noThumbs   = flag.Bool("no-thumbs", false, "skip thumbnail generation")
	noPlot     = flag.Bool("no-plot", false, "skip quality.png")
	noReport   = flag.Bool("no-report", false, "skip report.html")
)

func main() {
	flag.Parse()

	if *outDir == "" {
		log.Fatal("output directory is required (-out)")
	}

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

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()
	if err := database.MigrateUp(); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessions := db.NewSessionStore(database)
	id := *sessionID
	if id == "" {
		latest, err := sessions.LatestSession(ctx)
		if err != nil {
			log.Fatalf("failed to pick session: %v", err)
		}
		id = latest.SessionID
		log.Printf("exporting latest session %s", id)
	}

	opts := export.OptionsFromTuning(cfg)
	opts.Thumbnails = opts.Thumbnails && !*noThumbs
	opts.Plot = opts.Plot && !*noPlot
	opts.Report = opts.Report && !*noReport

	// Frame image paths are stored relative to the per-session media dir.
	exporter := export.NewExporter(fsutil.OSFileSystem{}, sessions,
		db.NewFrameStore(database), filepath.Join(*mediaDir, id),
		cfg.GetExportRetries(), cfg.GetExportRetryDelay(), timeutil.RealClock{})

	if err := exporter.Export(ctx, id, *outDir, opts); err != nil {
		log.Fatalf("export failed: %v", err)
	}
	log.Printf("exported session %s to %s", id, *outDir)
}
