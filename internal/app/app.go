// Package app runs the gesture-to-volume control loop: capture a frame, find the
// hand, turn the thumb-index distance into a volume level, apply it and show the
// annotated frame.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/pinchvol/internal/capture"
	"github.com/ayusman/pinchvol/internal/detector"
	"github.com/ayusman/pinchvol/internal/display"
	"github.com/ayusman/pinchvol/internal/hand"
	"github.com/ayusman/pinchvol/internal/logger"
	"github.com/ayusman/pinchvol/internal/metrics"
	"github.com/ayusman/pinchvol/internal/server"
	"github.com/ayusman/pinchvol/internal/volume"
)

// ErrMissingCollaborator is returned by New when a required collaborator is nil.
var ErrMissingCollaborator = errors.New("missing collaborator")

// Recorder receives every annotated frame.
type Recorder interface {
	Write(frame *gocv.Mat) error
	Close() error
}

// Journal persists applied volume levels.
type Journal interface {
	Record(level, distance int) error
	Close() error
}

// Publisher receives the annotated frame and status after every cycle.
type Publisher interface {
	Publish(frame *gocv.Mat, st server.Status)
}

// Config wires the controller. Camera, Extractor and Volume are required.
type Config struct {
	Camera    capture.Camera
	Extractor *hand.Extractor
	Volume    volume.Setter
	// Display defaults to display.Headless.
	Display  display.Sink
	Recorder Recorder
	Journal  Journal
	Hub      Publisher
	Metrics  *metrics.Metrics
	Motion   *capture.MotionGate
	// Policy defaults to volume.DefaultPolicy.
	Policy   volume.Policy
	Skeleton bool
	// KeyDelay is the WaitKey timeout in ms, 1 when zero.
	KeyDelay int
	// OnLevel is called after a level was applied successfully.
	OnLevel func(level int)
	Log     *logger.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Controller owns the loop's frame buffer and collaborators.
type Controller struct {
	config  Config
	log     *logger.Logger
	sampled *logger.Logger

	frame    gocv.Mat
	hasFrame bool
	fps      fpsTracker

	enabled   atomic.Bool
	level     atomic.Int64
	closeOnce sync.Once
	closeErr  error
}

// New validates config and fills in defaults.
func New(config Config) (*Controller, error) {
	switch {
	case config.Camera == nil:
		return nil, fmt.Errorf("%w: camera", ErrMissingCollaborator)
	case config.Extractor == nil:
		return nil, fmt.Errorf("%w: hand extractor", ErrMissingCollaborator)
	case config.Volume == nil:
		return nil, fmt.Errorf("%w: volume setter", ErrMissingCollaborator)
	}
	if config.Display == nil {
		config.Display = display.Headless{}
	}
	if config.Policy == (volume.Policy{}) {
		config.Policy = volume.DefaultPolicy()
	}
	if config.KeyDelay <= 0 {
		config.KeyDelay = 1
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if config.Log == nil {
		config.Log = logger.Nop()
	}

	log := config.Log.Component("loop")
	c := &Controller{
		config:  config,
		log:     log,
		sampled: log.Every(time.Second),
		frame:   gocv.NewMat(),
	}
	c.enabled.Store(true)
	c.level.Store(-1)
	return c, nil
}

// SetEnabled pauses or resumes volume changes. Capture and display keep running.
func (c *Controller) SetEnabled(enabled bool) {
	c.enabled.Store(enabled)
}

// Enabled reports whether volume changes are applied.
func (c *Controller) Enabled() bool {
	return c.enabled.Load()
}

// Level returns the last applied level, or -1 before the first one.
func (c *Controller) Level() int {
	return int(c.level.Load())
}

// Run opens the camera and repeats Step until the exit key or ctx cancellation.
// Every collaborator is released before it returns.
func (c *Controller) Run(ctx context.Context) (err error) {
	defer func() {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}()

	if !c.config.Camera.IsOpen() {
		if err := c.config.Camera.Open(); err != nil {
			return fmt.Errorf("open camera: %w", err)
		}
	}
	w, h := c.config.Camera.Size()
	c.log.Info().Int("width", w).Int("height", h).Msg("loop started")

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("loop cancelled")
			return nil
		default:
		}
		if c.Step(ctx) {
			c.log.Info().Msg("exit key pressed")
			return nil
		}
	}
}

// Step runs one capture-detect-apply-show cycle and reports whether the exit
// key was pressed.
func (c *Controller) Step(ctx context.Context) (stop bool) {
	st := server.Status{Enabled: c.Enabled(), Level: c.Level()}

	if err := c.config.Camera.ReadFrame(&c.frame); err != nil {
		c.sampled.Debug().Err(err).Msg("frame read failed")
		if m := c.config.Metrics; m != nil {
			m.FrameFailures.Inc()
		}
	} else {
		c.hasFrame = true
		if m := c.config.Metrics; m != nil {
			m.Frames.Inc()
		}
		c.process(ctx, &st)
	}

	st.FPS = c.fps.tick(c.config.Clock())
	if m := c.config.Metrics; m != nil {
		m.FPS.Set(float64(st.FPS))
	}

	// Drawing on a buffer that never held a frame is undefined.
	if c.hasFrame {
		drawFPS(&c.frame, st.FPS)
		if r := c.config.Recorder; r != nil {
			if err := r.Write(&c.frame); err != nil {
				c.sampled.Warn().Err(err).Msg("recording failed")
			}
		}
		c.config.Display.Show(&c.frame)
		if hub := c.config.Hub; hub != nil {
			hub.Publish(&c.frame, st)
		}
	}

	return c.config.Display.WaitKey(c.config.KeyDelay) == display.KeyEsc
}

// process runs detection and the volume update on a freshly read frame.
func (c *Controller) process(ctx context.Context, st *server.Status) {
	m := c.config.Metrics

	if g := c.config.Motion; g != nil && !g.Allow(&c.frame) {
		if m != nil {
			m.MotionSkipped.Inc()
		}
		return
	}

	start := time.Now()
	res, err := c.config.Extractor.DetectHands(&c.frame, c.config.Skeleton)
	if m != nil {
		m.ObserveDetect(start)
	}
	if err != nil {
		c.sampled.Warn().Err(err).Msg("hand detection failed")
		if m != nil {
			m.DetectErrors.Inc()
		}
		return
	}

	st.Hands = res.Len()
	lms := c.config.Extractor.ExtractLandmarks(res, &c.frame, 0, false)
	if len(lms) == 0 {
		return
	}
	if m != nil {
		m.HandsDetected.Inc()
	}

	thumb, index := lms[detector.ThumbTip], lms[detector.IndexTip]
	distance := volume.Distance(thumb.X, thumb.Y, index.X, index.Y)
	level := c.config.Policy.Level(distance)

	st.Landmarks = lms
	st.Distance = distance
	st.Level = level

	if st.Enabled {
		c.apply(ctx, level, distance)
	}

	drawPinch(&c.frame, thumb, index, distance)
	drawMeter(&c.frame, level)
}

// apply sends level to the volume backend. Failures are logged and counted only.
func (c *Controller) apply(ctx context.Context, level, distance int) {
	m := c.config.Metrics

	if err := c.config.Volume.SetVolume(ctx, level); err != nil {
		c.sampled.Warn().Err(err).Int("level", level).Msg("set volume failed")
		if m != nil {
			m.VolumeErrors.Inc()
		}
		return
	}

	if m != nil {
		m.VolumeLevel.Set(float64(level))
	}
	if prev := c.level.Swap(int64(level)); prev != int64(level) {
		c.log.Debug().Int("level", level).Int("distance", distance).Msg("volume changed")
	}
	if j := c.config.Journal; j != nil {
		if err := j.Record(level, distance); err != nil {
			c.sampled.Warn().Err(err).Msg("journal write failed")
		}
	}
	if c.config.OnLevel != nil {
		c.config.OnLevel(level)
	}
}

// Close releases the camera, recorder, display, detector, journal session and
// frame buffer. It is safe to call more than once.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		var errs []error
		add := func(what string, err error) {
			if err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", what, err))
			}
		}

		add("camera", c.config.Camera.Close())
		if c.config.Recorder != nil {
			add("recorder", c.config.Recorder.Close())
		}
		add("display", c.config.Display.Close())
		add("extractor", c.config.Extractor.Close())
		if c.config.Journal != nil {
			add("journal", c.config.Journal.Close())
		}
		if c.config.Motion != nil {
			add("motion gate", c.config.Motion.Close())
		}
		add("frame", c.frame.Close())

		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}
