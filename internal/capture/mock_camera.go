package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera plays back caller-owned frames. Reads listed with FailReads return
// ErrFrameEmpty without advancing playback.
type MockCamera struct {
	frames  []*gocv.Mat
	loop    bool
	index   int
	reads   int
	fail    map[int]bool
	openErr error
	running bool
	mu      sync.Mutex
}

func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{frames: frames, loop: loop, fail: make(map[int]bool)}
}

// FailReads makes the given zero-based read attempts fail.
func (c *MockCamera) FailReads(reads ...int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range reads {
		c.fail[r] = true
	}
}

// SetOpenError makes Open fail with err.
func (c *MockCamera) SetOpenError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openErr = err
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openErr != nil {
		return c.openErr
	}
	c.running = true
	c.index = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

func (c *MockCamera) ReadFrame(dst *gocv.Mat) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return ErrCameraNotOpen
	}

	n := c.reads
	c.reads++
	if c.fail[n] {
		return ErrFrameEmpty
	}

	if c.index >= len(c.frames) {
		if !c.loop || len(c.frames) == 0 {
			return ErrFrameEmpty
		}
		c.index = 0
	}

	c.frames[c.index].CopyTo(dst)
	c.index++

	return nil
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Size reports the size of the first frame, or the defaults when there is none.
func (c *MockCamera) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		return DefaultWidth, DefaultHeight
	}
	return c.frames[0].Cols(), c.frames[0].Rows()
}

// Reads returns the number of ReadFrame calls made while open.
func (c *MockCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}
