// Package config holds the pinchvol configuration and its file, env and flag loaders.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/pflag"
)

// Volume backends.
const (
	BackendSystem = "system"
	BackendPlugin = "plugin"
	BackendNone   = "none"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

type Camera struct {
	Device int `default:"0"`
	Width  int `default:"640"`
	Height int `default:"480"`
}

type Detector struct {
	StaticImageMode bool
	MaxHands        int     `default:"2"`
	MinConfidence   float64 `default:"0.8"`
	MinTrackingConf float64 `default:"0.5"`
	// MotionThreshold gates inference on the percentage of changed pixels. 0 disables the gate.
	MotionThreshold float64
	Python          string
	Script          string
}

// Mapping is the pinch distance to volume policy. Zero is a meaningful value
// for every field, so the defaults come from Default and not from tags.
type Mapping struct {
	MinDistance float64
	MaxDistance float64
	MinVolume   float64
	MaxVolume   float64
	MuteBelow   int
	MaxAbove    int
}

// Display options are phrased as opt-outs: fig treats false as unset and
// would put a true default back.
type Display struct {
	Headless     bool
	Window       string `default:"Image"`
	HideSkeleton bool
}

type Record struct {
	Path  string
	Codec string  `default:"mp4v"`
	FPS   float64 `default:"20"`
}

type Volume struct {
	Backend   string `default:"system"`
	PluginDir string `default:"plugins"`
	TimeoutMs int    `default:"2000"`
}

type Journal struct {
	Path string
}

type Monitor struct {
	Addr string
}

type Tray struct {
	Enabled bool
}

type Log struct {
	Debug   bool
	JSON    bool
	NoColor bool
}

// Config is the whole application configuration.
type Config struct {
	Camera   Camera
	Detector Detector
	Mapping  Mapping
	Display  Display
	Record   Record
	Volume   Volume
	Journal  Journal
	Monitor  Monitor
	Tray     Tray
	Log      Log
}

// Default returns the configuration with every default applied. Load starts
// from it, and fig fills in the remaining struct tags.
func Default() Config {
	return Config{
		Camera:   Camera{Device: 0, Width: 640, Height: 480},
		Detector: Detector{MaxHands: 2, MinConfidence: 0.8, MinTrackingConf: 0.5},
		Mapping:  Mapping{MinDistance: 10, MaxDistance: 150, MinVolume: 0, MaxVolume: 100, MuteBelow: 10, MaxAbove: 90},
		Display:  Display{Window: "Image"},
		Record:   Record{Codec: "mp4v", FPS: 20},
		Volume:   Volume{Backend: BackendSystem, PluginDir: "plugins", TimeoutMs: 2000},
	}
}

// WithFlags binds every option to fs, using the current values as defaults,
// so flags override whatever the file and environment set.
func (c *Config) WithFlags(fs *pflag.FlagSet) *Config {
	fs.IntVar(&c.Camera.Device, "camera.device", c.Camera.Device, "Video capture device id")
	fs.IntVar(&c.Camera.Width, "camera.width", c.Camera.Width, "Requested frame width")
	fs.IntVar(&c.Camera.Height, "camera.height", c.Camera.Height, "Requested frame height")

	fs.BoolVar(&c.Detector.StaticImageMode, "detector.static", c.Detector.StaticImageMode, "Treat every frame as an unrelated image")
	fs.IntVar(&c.Detector.MaxHands, "detector.maxhands", c.Detector.MaxHands, "Maximum number of hands to detect")
	fs.Float64Var(&c.Detector.MinConfidence, "detector.confidence", c.Detector.MinConfidence, "Minimum detection confidence [0,1]")
	fs.Float64Var(&c.Detector.MinTrackingConf, "detector.tracking", c.Detector.MinTrackingConf, "Minimum tracking confidence [0,1]")
	fs.Float64Var(&c.Detector.MotionThreshold, "detector.motion", c.Detector.MotionThreshold, "Skip inference below this changed-pixel percentage (0 = off)")
	fs.StringVar(&c.Detector.Python, "detector.python", c.Detector.Python, "Python interpreter for the landmark service")
	fs.StringVar(&c.Detector.Script, "detector.script", c.Detector.Script, "Path to mediapipe_service.py")

	fs.Float64Var(&c.Mapping.MinDistance, "mapping.mindistance", c.Mapping.MinDistance, "Pinch distance mapped to the minimum volume")
	fs.Float64Var(&c.Mapping.MaxDistance, "mapping.maxdistance", c.Mapping.MaxDistance, "Pinch distance mapped to the maximum volume")
	fs.IntVar(&c.Mapping.MuteBelow, "mapping.mutebelow", c.Mapping.MuteBelow, "Volumes below this snap to 0")
	fs.IntVar(&c.Mapping.MaxAbove, "mapping.maxabove", c.Mapping.MaxAbove, "Volumes above this snap to 100")

	fs.BoolVar(&c.Display.Headless, "headless", c.Display.Headless, "Do not open a preview window")
	fs.BoolVar(&c.Display.HideSkeleton, "display.noskeleton", c.Display.HideSkeleton, "Do not draw the hand skeleton")

	fs.StringVar(&c.Record.Path, "record", c.Record.Path, "Record annotated frames to this video file")

	fs.StringVar(&c.Volume.Backend, "volume.backend", c.Volume.Backend, "Volume backend: system, plugin or none")
	fs.StringVar(&c.Volume.PluginDir, "volume.plugins", c.Volume.PluginDir, "Plugin directory for the plugin backend")

	fs.StringVar(&c.Journal.Path, "journal", c.Journal.Path, "SQLite file for the volume journal (empty = off)")
	fs.StringVar(&c.Monitor.Addr, "monitor", c.Monitor.Addr, "Monitor server address, e.g. :8080 (empty = off)")
	fs.BoolVar(&c.Tray.Enabled, "tray", c.Tray.Enabled, "Run from the menu bar without a window")

	fs.BoolVarP(&c.Log.Debug, "debug", "d", c.Log.Debug, "Debug logging")
	fs.BoolVar(&c.Log.JSON, "log.json", c.Log.JSON, "JSON logs on stderr instead of console output")
	fs.BoolVar(&c.Log.NoColor, "log.nocolor", c.Log.NoColor, "Disable colored console logs")
	return c
}

// Validate checks the ranges the rest of the program relies on.
func (c *Config) Validate() error {
	switch {
	case c.Camera.Width <= 0 || c.Camera.Height <= 0:
		return fmt.Errorf("%w: camera size %dx%d", ErrInvalid, c.Camera.Width, c.Camera.Height)
	case c.Detector.MaxHands < 1:
		return fmt.Errorf("%w: detector.maxhands %d", ErrInvalid, c.Detector.MaxHands)
	case c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1:
		return fmt.Errorf("%w: detector.confidence %v outside [0,1]", ErrInvalid, c.Detector.MinConfidence)
	case c.Detector.MinTrackingConf < 0 || c.Detector.MinTrackingConf > 1:
		return fmt.Errorf("%w: detector.tracking %v outside [0,1]", ErrInvalid, c.Detector.MinTrackingConf)
	case c.Detector.MotionThreshold < 0:
		return fmt.Errorf("%w: detector.motion %v", ErrInvalid, c.Detector.MotionThreshold)
	case c.Mapping.MaxDistance <= c.Mapping.MinDistance:
		return fmt.Errorf("%w: mapping distance range [%v,%v]", ErrInvalid, c.Mapping.MinDistance, c.Mapping.MaxDistance)
	case c.Record.Path != "" && c.Record.FPS <= 0:
		return fmt.Errorf("%w: record fps %v", ErrInvalid, c.Record.FPS)
	}

	switch c.Volume.Backend {
	case BackendSystem, BackendPlugin, BackendNone:
	default:
		return fmt.Errorf("%w: volume.backend %q", ErrInvalid, c.Volume.Backend)
	}
	return nil
}
