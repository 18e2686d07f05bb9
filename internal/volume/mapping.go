// Package volume maps pinch distances to output volume levels and applies them.
package volume

import "math"

// Interp is one-dimensional linear interpolation of x from [x0,x1] onto
// [y0,y1], clamped to the end values outside the input range.
func Interp(x, x0, x1, y0, y1 float64) float64 {
	if x1 == x0 {
		return y0
	}
	if x0 > x1 {
		x0, x1, y0, y1 = x1, x0, y1, y0
	}
	switch {
	case x <= x0:
		return y0
	case x >= x1:
		return y1
	}
	return y0 + (x-x0)*(y1-y0)/(x1-x0)
}

// Distance is the Euclidean distance between two pixel points, truncated.
func Distance(x1, y1, x2, y2 int) int {
	return int(math.Hypot(float64(x2-x1), float64(y2-y1)))
}

// Policy turns a pinch distance into a volume level in two stages: a clamped
// interpolation, then a dead zone that snaps near-silent and near-full
// levels to the ends.
type Policy struct {
	MinDistance float64
	MaxDistance float64
	MinVolume   float64
	MaxVolume   float64
	// Levels below MuteBelow become 0.
	MuteBelow int
	// Levels above MaxAbove become 100.
	MaxAbove int
}

// DefaultPolicy maps [10,150] px onto [0,100] % with snaps below 10 and above 90.
func DefaultPolicy() Policy {
	return Policy{
		MinDistance: 10,
		MaxDistance: 150,
		MinVolume:   0,
		MaxVolume:   100,
		MuteBelow:   10,
		MaxAbove:    90,
	}
}

// Raw is the interpolation stage alone, truncated toward zero.
func (p Policy) Raw(distance int) int {
	return int(Interp(float64(distance), p.MinDistance, p.MaxDistance, p.MinVolume, p.MaxVolume))
}

// Snap is the dead-zone stage alone.
func (p Policy) Snap(level int) int {
	if level < p.MuteBelow {
		level = 0
	}
	if level > p.MaxAbove {
		level = 100
	}
	return level
}

// Level runs both stages.
func (p Policy) Level(distance int) int {
	return p.Snap(p.Raw(distance))
}

// MeterY maps a level onto the meter's vertical span, where the top is 100%.
func MeterY(level, top, bottom int) int {
	return int(Interp(float64(level), 0, 100, float64(bottom), float64(top)))
}
