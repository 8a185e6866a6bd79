// Package main provides the entry point for the grid decoder daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"grid-decoder/internal/calibrate"
	"grid-decoder/internal/capture"
	"grid-decoder/internal/capture/webcam"
	"grid-decoder/internal/config"
	"grid-decoder/internal/keystone"
	"grid-decoder/internal/render"
	"grid-decoder/internal/scanner"
	"grid-decoder/internal/store"
	"grid-decoder/internal/version"
)

const appTitle = "grid-decoder"

func main() {
	configPath := flag.String("config", "", "Path to JSON config (defaults built in)")
	imagePath := flag.String("image", "", "Decode a still image instead of the configured source")
	device := flag.String("device", "", "Camera device, overrides the config")
	printMatrix := flag.Bool("print", false, "Print the id matrix after every cycle")
	debugPNG := flag.String("debug-png", "", "Write a top-down debug render to this PNG")
	debugEvery := flag.Int("debug-every", 10, "Cycles between debug renders")
	calibrating := flag.Bool("calibrate", false, "Start in colour calibration mode")
	saveOnExit := flag.Bool("save-on-exit", false, "Save corners and sample positions on exit")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", appTitle, version.String())
		return
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting %s v%s", appTitle, version.String())

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("Failed to load config %s: %v", *configPath, err)
		}
	}
	if *imagePath != "" {
		cfg.Capture = config.CaptureConfig{Source: "image", Path: *imagePath}
	}
	if *device != "" {
		cfg.Capture.Source = "webcam"
		cfg.Capture.Device = *device
	}

	st, history, err := openStore(cfg.Store)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	src, err := openSource(cfg.Capture)
	if err != nil {
		log.Fatalf("Failed to open capture source: %v", err)
	}
	defer src.Close()

	engine, err := scanner.New(cfg, src, st)
	if err != nil {
		log.Fatalf("Failed to create scanner: %v", err)
	}
	if err := engine.Reload(); err != nil {
		log.Printf("Failed to load saved settings: %v", err)
	}
	engine.SetCalibrating(*calibrating)

	if history != nil {
		engine.OnPublish(scanner.RecordHistory(history))
	}
	if *printMatrix {
		engine.OnPublish(func(r *scanner.Result) {
			fmt.Printf("cycle %d (%d/%d known)\n%s", r.Cycle, r.Matrix.Known(), len(r.Matrix.IDs), r.Matrix)
		})
	}
	engine.On(scanner.EventCalibrated, func(data interface{}) {
		log.Printf("Calibrated palette: %v", data)
	})
	if *debugPNG != "" {
		setupDebugRender(engine, *debugPNG, *debugEvery)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if fs, ok := st.(*store.FileStore); ok {
		setupSettingsWatch(ctx, engine, fs)
	}

	log.Printf("Scanning %dx%d probes every %s", cfg.Grid.NumX, cfg.Grid.NumY, cfg.GetRefreshInterval())
	if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Scanner stopped: %v", err)
	}

	if *saveOnExit {
		if err := engine.Save(); err != nil {
			log.Printf("Failed to save settings: %v", err)
		}
	}
	log.Printf("Stopped after %d cycles", engine.Cycles())
}

// openStore returns the settings store and, for SQLite, the decode
// history sink.
func openStore(cfg config.StoreConfig) (store.Store, scanner.HistoryAppender, error) {
	switch cfg.Driver {
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = filepath.Join(store.DefaultDir(), "grid-decoder.db")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, err
		}
		db, err := store.OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	default:
		dir := cfg.Path
		if dir == "" {
			dir = store.DefaultDir()
		}
		return store.NewFileStore(dir), nil, nil
	}
}

func openSource(cfg config.CaptureConfig) (capture.Source, error) {
	if cfg.Source == "image" {
		return capture.OpenImageFile(cfg.Path)
	}
	return webcam.Open(cfg.Device, cfg.Width, cfg.Height)
}

// setupSettingsWatch reloads corners and sample positions when their
// files are rewritten by another tool.
func setupSettingsWatch(ctx context.Context, engine *scanner.Engine, fs *store.FileStore) {
	w := scanner.NewWatcher(2*time.Second, fs.Path(keystone.SettingsKey), fs.Path(calibrate.SettingsKey))
	w.OnChange(func() {
		log.Println("Settings changed on disk, reloading")
		if err := engine.Reload(); err != nil {
			log.Printf("Reload failed: %v", err)
		}
	})
	go w.Run(ctx)
}

// setupDebugRender writes a top-down view of the surface with the probe
// and corner markers every n published cycles.
func setupDebugRender(engine *scanner.Engine, path string, n int) {
	if n <= 0 {
		n = 1
	}
	engine.OnPublish(func(r *scanner.Result) {
		if r.Cycle%int64(n) != 0 {
			return
		}
		snap, ok := engine.LastSnapshot()
		if !ok {
			return
		}
		ctl := engine.Controller()
		view, err := render.Surface(snap, ctl.Mapping(), 20)
		if err != nil {
			log.Printf("Debug render: %v", err)
			return
		}
		view.DrawProbes(engine.Probes(), engine.Palette(), 5)
		view.DrawCorners(ctl.Corners(), ctl.Selected(), 7)
		if err := render.WritePNG(path, view.Image); err != nil {
			log.Printf("Debug render: %v", err)
		}
	})
}
