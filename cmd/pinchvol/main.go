package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/ayusman/pinchvol/internal/app"
	"github.com/ayusman/pinchvol/internal/capture"
	"github.com/ayusman/pinchvol/internal/config"
	"github.com/ayusman/pinchvol/internal/detector"
	"github.com/ayusman/pinchvol/internal/display"
	"github.com/ayusman/pinchvol/internal/hand"
	"github.com/ayusman/pinchvol/internal/logger"
	"github.com/ayusman/pinchvol/internal/metrics"
	"github.com/ayusman/pinchvol/internal/plugin"
	"github.com/ayusman/pinchvol/internal/server"
	"github.com/ayusman/pinchvol/internal/store"
	"github.com/ayusman/pinchvol/internal/tray"
	"github.com/ayusman/pinchvol/internal/volume"
)

var Version = "dev"

// HighGUI windows and the tray both have to live on the main thread.
func init() { runtime.LockOSThread() }

func main() {
	conf, err := config.Parse(os.Args[0], os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := newLogger(conf.Log)
	log.Info().Str("version", Version).Msg("pinchvol starting")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cancel, conf, log)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("pinchvol failed")
	}
	log.Info().Msg("bye")
}

func newLogger(c config.Log) *logger.Logger {
	if c.JSON {
		return logger.New(c.Debug)
	}
	return logger.NewConsole(c.Debug, "pinchvol", c.NoColor)
}

func run(ctx context.Context, cancel context.CancelFunc, conf config.Config, log *logger.Logger) error {
	// Resources opened before the controller takes ownership of them.
	var cleanup []func() error
	fail := func(err error) error {
		for i := len(cleanup) - 1; i >= 0; i-- {
			_ = cleanup[i]()
		}
		return err
	}

	setter, err := newSetter(conf.Volume, log)
	if err != nil {
		return fmt.Errorf("volume backend %s: %w", conf.Volume.Backend, err)
	}

	det, err := detector.NewMediaPipeDetector(detector.Config{
		StaticImageMode: conf.Detector.StaticImageMode,
		MaxHands:        conf.Detector.MaxHands,
		MinConfidence:   conf.Detector.MinConfidence,
		MinTrackingConf: conf.Detector.MinTrackingConf,
		Python:          conf.Detector.Python,
		Script:          conf.Detector.Script,
	}, log)
	if err != nil {
		return fmt.Errorf("hand detector: %w", err)
	}
	ext := hand.NewExtractor(det)
	cleanup = append(cleanup, ext.Close)

	cam := capture.NewCamera(capture.Config{
		Device: conf.Camera.Device,
		Width:  conf.Camera.Width,
		Height: conf.Camera.Height,
	})
	if err := cam.Open(); err != nil {
		return fail(err)
	}
	cleanup = append(cleanup, cam.Close)
	width, height := cam.Size()

	m := metrics.New()
	ctrlConf := app.Config{
		Camera:    cam,
		Extractor: ext,
		Volume:    setter,
		Metrics:   m,
		Skeleton:  !conf.Display.HideSkeleton,
		Log:       log,
		Policy: volume.Policy{
			MinDistance: conf.Mapping.MinDistance,
			MaxDistance: conf.Mapping.MaxDistance,
			MinVolume:   conf.Mapping.MinVolume,
			MaxVolume:   conf.Mapping.MaxVolume,
			MuteBelow:   conf.Mapping.MuteBelow,
			MaxAbove:    conf.Mapping.MaxAbove,
		},
	}

	if !conf.Display.Headless && !conf.Tray.Enabled {
		win := display.NewWindow(conf.Display.Window)
		cleanup = append(cleanup, win.Close)
		ctrlConf.Display = win
	}

	if conf.Record.Path != "" {
		rec, err := display.NewRecorder(conf.Record.Path, conf.Record.Codec, conf.Record.FPS, width, height)
		if err != nil {
			return fail(err)
		}
		cleanup = append(cleanup, rec.Close)
		ctrlConf.Recorder = rec
		log.Info().Str("path", rec.Path()).Msg("recording")
	}

	if conf.Detector.MotionThreshold > 0 {
		gate := capture.NewMotionGate(conf.Detector.MotionThreshold)
		cleanup = append(cleanup, gate.Close)
		ctrlConf.Motion = gate
	}

	var history server.HistorySource
	if conf.Journal.Path != "" {
		st, err := store.New(conf.Journal.Path)
		if err != nil {
			return fail(fmt.Errorf("journal: %w", err))
		}
		defer st.Close()

		j, err := st.Begin(conf.Camera.Device, conf.Volume.Backend)
		if err != nil {
			return fail(fmt.Errorf("journal: %w", err))
		}
		cleanup = append(cleanup, j.Close)
		ctrlConf.Journal = j
		history = st.Events()
		log.Info().Str("path", st.Path()).Str("session", j.Session().ID).Msg("journal open")
	}

	if conf.Monitor.Addr != "" {
		hub := server.NewHub()
		ctrlConf.Hub = hub
		srv := server.New(server.Config{Hub: hub, History: history, Metrics: m.Handler(), Log: log})
		go func() {
			if err := srv.Serve(ctx, conf.Monitor.Addr); err != nil {
				log.Error().Err(err).Msg("monitor stopped")
			}
		}()
	}

	var t *tray.Tray
	if conf.Tray.Enabled {
		t = tray.New()
		ctrlConf.OnLevel = t.SetVolume
	}

	ctrl, err := app.New(ctrlConf)
	if err != nil {
		return fail(err)
	}

	if t == nil {
		return ctrl.Run(ctx)
	}

	t.OnToggle(func(enabled bool) {
		ctrl.SetEnabled(enabled)
		log.Info().Bool("enabled", enabled).Msg("volume control toggled")
	})
	t.OnQuit(cancel)

	done := make(chan error, 1)
	go func() {
		done <- ctrl.Run(ctx)
		t.Quit()
	}()
	t.Run()
	cancel()
	return <-done
}

func newSetter(conf config.Volume, log *logger.Logger) (volume.Setter, error) {
	switch conf.Backend {
	case config.BackendNone:
		return volume.Nop{}, nil
	case config.BackendPlugin:
		s, err := plugin.NewVolumeSetter(
			plugin.NewManager(conf.PluginDir, log),
			plugin.NewExecutor(time.Duration(conf.TimeoutMs)*time.Millisecond),
		)
		if err != nil {
			return nil, err
		}
		log.Info().Str("plugin", s.Plugin().Manifest.Name).Msg("volume via plugin")
		return s, nil
	default:
		s, err := volume.NewCommandSetter()
		if err != nil {
			return nil, err
		}
		log.Info().Str("tool", s.Name()).Msg("volume via system command")
		return s, nil
	}
}
