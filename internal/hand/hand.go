// Package hand turns detector output into pixel landmarks and draws hand overlays.
package hand

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/pinchvol/internal/detector"
)

// ErrEmptyFrame is returned when DetectHands gets no image.
var ErrEmptyFrame = errors.New("empty frame")

// Overlay colors. gocv takes RGB colors and writes them into BGR frames.
var (
	Magenta = color.RGBA{R: 255, B: 255}
	Red     = color.RGBA{R: 255}
	White   = color.RGBA{R: 255, G: 255, B: 255}
	Green   = color.RGBA{G: 255}
	Blue    = color.RGBA{B: 255}
)

// Landmark is one hand keypoint in pixel coordinates of the frame it came from.
type Landmark struct {
	ID int `json:"id"`
	X  int `json:"x"`
	Y  int `json:"y"`
}

// Point returns the landmark position.
func (l Landmark) Point() image.Point { return image.Pt(l.X, l.Y) }

// Result is the detector output for one frame.
type Result struct {
	Hands []detector.HandLandmarks
}

// Len returns the number of detected hands.
func (r Result) Len() int { return len(r.Hands) }

// Extractor runs a detector on BGR frames.
type Extractor struct {
	det detector.Detector
	rgb gocv.Mat
	mu  sync.Mutex
}

// NewExtractor wraps det. The extractor owns det and closes it.
func NewExtractor(det detector.Detector) *Extractor {
	return &Extractor{det: det, rgb: gocv.NewMat()}
}

// DetectHands converts frame to RGB, runs the detector and, when draw is set,
// overlays the hand skeleton of every detected hand onto frame.
func (e *Extractor) DetectHands(frame *gocv.Mat, draw bool) (Result, error) {
	if frame == nil || frame.Empty() {
		return Result{}, ErrEmptyFrame
	}

	e.mu.Lock()
	gocv.CvtColor(*frame, &e.rgb, gocv.ColorBGRToRGB)
	hands, err := e.det.Detect(&e.rgb)
	e.mu.Unlock()
	if err != nil {
		return Result{}, fmt.Errorf("detect hands: %w", err)
	}

	res := Result{Hands: hands}
	if draw {
		for _, h := range res.Hands {
			DrawSkeleton(frame, ToPixels(h, frame.Cols(), frame.Rows()))
		}
	}
	return res, nil
}

// ExtractLandmarks returns the pixel landmarks of hand handIndex, scaled to the
// current frame size. It returns an empty slice when that hand does not exist.
// With draw set, every landmark gets a filled magenta marker.
func (e *Extractor) ExtractLandmarks(res Result, frame *gocv.Mat, handIndex int, draw bool) []Landmark {
	if handIndex < 0 || handIndex >= res.Len() || frame == nil {
		return []Landmark{}
	}

	lms := ToPixels(res.Hands[handIndex], frame.Cols(), frame.Rows())
	if draw && !frame.Empty() {
		for _, lm := range lms {
			gocv.Circle(frame, lm.Point(), 15, Magenta, -1)
		}
	}
	return lms
}

// Close releases the conversion buffer and the detector.
func (e *Extractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.det.Close()
	if cerr := e.rgb.Close(); err == nil {
		err = cerr
	}
	return err
}

// ToPixels scales normalized landmarks to a width x height frame, truncating.
func ToPixels(h detector.HandLandmarks, width, height int) []Landmark {
	lms := make([]Landmark, 0, detector.NumLandmarks)
	for id, p := range h.Points {
		lms = append(lms, Landmark{
			ID: id,
			X:  int(p.X * float64(width)),
			Y:  int(p.Y * float64(height)),
		})
	}
	return lms
}

// DrawSkeleton draws the hand connections in white and the landmarks as red dots.
func DrawSkeleton(frame *gocv.Mat, lms []Landmark) {
	if len(lms) < detector.NumLandmarks {
		return
	}
	for _, c := range detector.Connections {
		gocv.Line(frame, lms[c[0]].Point(), lms[c[1]].Point(), White, 2)
	}
	for _, lm := range lms {
		gocv.Circle(frame, lm.Point(), 2, Red, -1)
	}
}
