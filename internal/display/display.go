// Package display shows annotated frames and records them to video.
package display

import (
	"sync"

	"gocv.io/x/gocv"
)

// KeyEsc is the key code that ends the loop.
const KeyEsc = 27

// NoKey is returned by WaitKey when nothing was pressed.
const NoKey = -1

// Sink receives every annotated frame.
type Sink interface {
	Show(frame *gocv.Mat)
	// WaitKey polls the keyboard for up to delay ms and returns the key code or NoKey.
	WaitKey(delay int) int
	Close() error
}

// Window shows frames in an OpenCV HighGUI window. It must be used from the
// thread that created it.
type Window struct {
	window *gocv.Window
}

// NewWindow opens a window titled name.
func NewWindow(name string) *Window {
	return &Window{window: gocv.NewWindow(name)}
}

func (w *Window) Show(frame *gocv.Mat) {
	if frame == nil || frame.Empty() {
		return
	}
	w.window.IMShow(*frame)
}

func (w *Window) WaitKey(delay int) int {
	return w.window.WaitKey(delay)
}

func (w *Window) Close() error {
	return w.window.Close()
}

// Headless discards frames and never reports a key.
type Headless struct{}

func (Headless) Show(*gocv.Mat)  {}
func (Headless) WaitKey(int) int { return NoKey }
func (Headless) Close() error    { return nil }

// MockSink counts shown frames and replays scripted keys, one per WaitKey.
type MockSink struct {
	mu     sync.Mutex
	shown  int
	keys   []int
	closed bool
	last   gocv.Mat
}

func NewMockSink(keys ...int) *MockSink {
	return &MockSink{keys: keys, last: gocv.NewMat()}
}

// Show keeps a copy of the frame for inspection.
func (m *MockSink) Show(frame *gocv.Mat) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shown++
	if frame != nil {
		frame.CopyTo(&m.last)
	}
}

func (m *MockSink) WaitKey(int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.keys) == 0 {
		return NoKey
	}
	k := m.keys[0]
	m.keys = m.keys[1:]
	return k
}

func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.last.Close()
}

// Shown returns how many frames were shown.
func (m *MockSink) Shown() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shown
}

// Closed reports whether Close was called.
func (m *MockSink) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Last returns a copy of the last shown frame. The caller closes it.
func (m *MockSink) Last() gocv.Mat {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last.Clone()
}
