package display

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// ErrRecorderClosed is returned by Write after Close.
var ErrRecorderClosed = errors.New("recorder closed")

// Recorder appends frames to a video file.
type Recorder struct {
	writer *gocv.VideoWriter
	path   string
	frames int
	mu     sync.Mutex
}

// NewRecorder creates path encoded with the four-character codec at fps.
// Frames written later must be width x height.
func NewRecorder(path, codec string, fps float64, width, height int) (*Recorder, error) {
	w, err := gocv.VideoWriterFile(path, codec, fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("open recording %s: %w", path, err)
	}
	if !w.IsOpened() {
		w.Close()
		return nil, fmt.Errorf("open recording %s: codec %q unavailable", path, codec)
	}
	return &Recorder{writer: w, path: path}, nil
}

// Write appends one frame. Empty frames are skipped.
func (r *Recorder) Write(frame *gocv.Mat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.writer == nil {
		return ErrRecorderClosed
	}
	if frame == nil || frame.Empty() {
		return nil
	}
	if err := r.writer.Write(*frame); err != nil {
		return fmt.Errorf("write frame to %s: %w", r.path, err)
	}
	r.frames++
	return nil
}

// Frames returns the number of frames written.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Path returns the output file.
func (r *Recorder) Path() string { return r.path }

// Close finalizes the file. Closing twice is a no-op.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.writer == nil {
		return nil
	}
	err := r.writer.Close()
	r.writer = nil
	return err
}
