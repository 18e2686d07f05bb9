package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

const (
	// blurSize is the Gaussian kernel applied before differencing.
	blurSize = 21
	// diffThreshold is the per-pixel intensity change counted as motion.
	diffThreshold = 25
)

// MotionGate decides whether a frame changed enough since the previous one to
// be worth running hand detection on. A gate with threshold <= 0 lets every frame through.
type MotionGate struct {
	threshold float64
	prev      gocv.Mat
	primed    bool
	last      float64
	mu        sync.Mutex
}

// NewMotionGate creates a gate that opens when more than threshold percent
// of the pixels changed.
func NewMotionGate(threshold float64) *MotionGate {
	return &MotionGate{threshold: threshold, prev: gocv.NewMat()}
}

// Enabled reports whether the gate filters anything.
func (g *MotionGate) Enabled() bool { return g.threshold > 0 }

// Allow compares a BGR frame with the previous one and reports whether it moved.
// The first frame after creation or Reset always passes.
func (g *MotionGate) Allow(frame *gocv.Mat) bool {
	if !g.Enabled() {
		return true
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}
	gocv.GaussianBlur(gray, &gray, image.Pt(blurSize, blurSize), 0, 0, gocv.BorderDefault)

	if !g.primed || g.prev.Rows() != gray.Rows() || g.prev.Cols() != gray.Cols() {
		gray.CopyTo(&g.prev)
		g.primed = true
		g.last = 100
		return true
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(gray, g.prev, &diff)
	gocv.Threshold(diff, &diff, diffThreshold, 255, gocv.ThresholdBinary)

	g.last = float64(gocv.CountNonZero(diff)) / float64(diff.Rows()*diff.Cols()) * 100
	gray.CopyTo(&g.prev)

	return g.last > g.threshold
}

// Changed returns the changed-pixel percentage computed by the last Allow.
func (g *MotionGate) Changed() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// Reset forgets the previous frame.
func (g *MotionGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.primed = false
	g.last = 0
}

// Close releases the stored frame.
func (g *MotionGate) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.primed = false
	return g.prev.Close()
}
