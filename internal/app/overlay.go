package app

import (
	"image"
	"strconv"

	"gocv.io/x/gocv"

	"github.com/ayusman/pinchvol/internal/hand"
	"github.com/ayusman/pinchvol/internal/volume"
)

// Meter geometry in frame pixels.
const (
	meterLeft   = 50
	meterRight  = 85
	meterTop    = 150
	meterBottom = 400

	// pinchClose is the distance below which the midpoint marker turns white.
	pinchClose = 50
)

var (
	labelOrigin = image.Pt(20, 450)
	fpsOrigin   = image.Pt(20, 50)
)

// drawPinch marks the thumb and index tips, their midpoint and the line between them.
func drawPinch(frame *gocv.Mat, thumb, index hand.Landmark, distance int) {
	mid := midpoint(thumb, index)

	gocv.Circle(frame, thumb.Point(), 15, hand.Magenta, -1)
	gocv.Circle(frame, index.Point(), 15, hand.Magenta, -1)
	gocv.Circle(frame, mid, 10, hand.Magenta, -1)
	gocv.Line(frame, thumb.Point(), index.Point(), hand.Magenta, 3)

	if distance < pinchClose {
		gocv.Circle(frame, mid, 10, hand.White, -1)
	}
}

// drawMeter draws the vertical volume bar and the percentage label.
func drawMeter(frame *gocv.Mat, level int) {
	gocv.Rectangle(frame, image.Rect(meterLeft, meterTop, meterRight, meterBottom), hand.Green, 3)
	top := volume.MeterY(level, meterTop, meterBottom)
	gocv.Rectangle(frame, image.Rect(meterLeft, top, meterRight, meterBottom), hand.Green, -1)
	gocv.PutText(frame, strconv.Itoa(level)+"%", labelOrigin, gocv.FontHersheyPlain, 1, hand.Green, 1)
}

func drawFPS(frame *gocv.Mat, fps int) {
	gocv.PutText(frame, "FPS: "+strconv.Itoa(fps), fpsOrigin, gocv.FontHersheyPlain, 1, hand.Blue, 1)
}

// midpoint halves with floor division, so landmarks left of or above the
// frame round toward negative infinity.
func midpoint(a, b hand.Landmark) image.Point {
	return image.Pt(floorHalf(a.X+b.X), floorHalf(a.Y+b.Y))
}

func floorHalf(v int) int {
	return v >> 1
}
