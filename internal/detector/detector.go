package detector

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// ErrInvalidConfig is returned when a Config cannot be used to build a detector.
var ErrInvalidConfig = errors.New("invalid detector config")

// Detector defines the interface for hand landmark models.
type Detector interface {
	// Detect runs the model on an RGB frame and returns the detected hands
	// with coordinates normalized to [0,1] of the frame size.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds the tunable parameters of the hand landmark model.
type Config struct {
	// StaticImageMode treats every frame independently instead of tracking
	// hands across a video stream.
	StaticImageMode bool

	// MaxHands is the maximum number of hands to report (default: 2).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// Python is the interpreter used for the MediaPipe service. Empty means
	// a virtualenv next to the binary or python3 on PATH.
	Python string

	// Script is the path to mediapipe_service.py. Empty means search the usual locations.
	Script string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}

// Validate reports whether the thresholds and hand count are usable.
func (c Config) Validate() error {
	if c.MaxHands < 1 {
		return fmt.Errorf("%w: max hands %d", ErrInvalidConfig, c.MaxHands)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("%w: detection confidence %v outside [0,1]", ErrInvalidConfig, c.MinConfidence)
	}
	if c.MinTrackingConf < 0 || c.MinTrackingConf > 1 {
		return fmt.Errorf("%w: tracking confidence %v outside [0,1]", ErrInvalidConfig, c.MinTrackingConf)
	}
	return nil
}
