// Package capture reads BGR frames from a video device using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Default capture size.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when reading from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrFrameEmpty is returned when the device delivers no frame.
	ErrFrameEmpty = errors.New("captured frame is empty")
)

// Camera is a source of BGR frames.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame decodes the next frame into dst, which the caller owns and reuses.
	// dst is left untouched on error.
	ReadFrame(dst *gocv.Mat) error
	IsOpen() bool
	// Size is the frame size the camera delivers, valid once open.
	Size() (width, height int)
}

// Config selects the device and requested resolution.
type Config struct {
	Device int
	Width  int
	Height int
}

type cameraImpl struct {
	config  Config
	capture *gocv.VideoCapture
	width   int
	height  int
	mu      sync.Mutex
}

// NewCamera creates a Camera for the given device. Zero sizes fall back to 640x480.
func NewCamera(config Config) Camera {
	if config.Width <= 0 {
		config.Width = DefaultWidth
	}
	if config.Height <= 0 {
		config.Height = DefaultHeight
	}
	return &cameraImpl{config: config}
}

// Open opens the device and requests the configured resolution.
// The driver may pick a different size; Size reports what it chose.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.config.Device)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.config.Device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("open camera %d: %w", c.config.Device, ErrCameraNotOpen)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.config.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.config.Height))

	c.width = int(capture.Get(gocv.VideoCaptureFrameWidth))
	c.height = int(capture.Get(gocv.VideoCaptureFrameHeight))
	if c.width <= 0 || c.height <= 0 {
		c.width, c.height = c.config.Width, c.config.Height
	}
	c.capture = capture

	return nil
}

// Close releases the device. Closing a closed camera is a no-op.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}

	err := c.capture.Close()
	c.capture = nil

	return err
}

func (c *cameraImpl) ReadFrame(dst *gocv.Mat) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return ErrCameraNotOpen
	}

	frame := gocv.NewMat()
	defer frame.Close()

	if ok := c.capture.Read(&frame); !ok || frame.Empty() {
		return ErrFrameEmpty
	}
	frame.CopyTo(dst)

	return nil
}

func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.capture != nil
}

func (c *cameraImpl) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.width == 0 {
		return c.config.Width, c.config.Height
	}
	return c.width, c.height
}
