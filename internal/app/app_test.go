package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"gocv.io/x/gocv"

	"github.com/ayusman/pinchvol/internal/capture"
	"github.com/ayusman/pinchvol/internal/detector"
	"github.com/ayusman/pinchvol/internal/display"
	"github.com/ayusman/pinchvol/internal/hand"
	"github.com/ayusman/pinchvol/internal/metrics"
	"github.com/ayusman/pinchvol/internal/server"
	"github.com/ayusman/pinchvol/internal/volume"
)

type fakeJournal struct {
	mu      sync.Mutex
	levels  []int
	closed  bool
	failing bool
}

func (j *fakeJournal) Record(level, distance int) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.failing {
		return errors.New("disk full")
	}
	j.levels = append(j.levels, level)
	return nil
}

func (j *fakeJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.closed = true
	return nil
}

// rig bundles a controller with the mocks behind it.
type rig struct {
	ctrl    *Controller
	camera  *capture.MockCamera
	det     *detector.MockDetector
	setter  *volume.MockSetter
	sink    *display.MockSink
	journal *fakeJournal
	metrics *metrics.Metrics
	hub     *server.Hub
	frame   gocv.Mat
}

func newRig(t *testing.T, keys ...int) *rig {
	t.Helper()

	r := &rig{
		frame:   gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3),
		det:     detector.NewMockDetector(),
		setter:  volume.NewMockSetter(),
		sink:    display.NewMockSink(keys...),
		journal: &fakeJournal{},
		metrics: metrics.New(),
		hub:     server.NewHub(),
	}
	r.frame.SetTo(gocv.NewScalar(0, 0, 0, 0))
	r.camera = capture.NewMockCamera([]*gocv.Mat{&r.frame}, true)

	ctrl, err := New(Config{
		Camera:    r.camera,
		Extractor: hand.NewExtractor(r.det),
		Volume:    r.setter,
		Display:   r.sink,
		Journal:   r.journal,
		Metrics:   r.metrics,
		Hub:       r.hub,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	r.ctrl = ctrl

	t.Cleanup(func() {
		ctrl.Close()
		r.frame.Close()
	})
	return r
}

func (r *rig) open(t *testing.T) {
	t.Helper()
	if err := r.camera.Open(); err != nil {
		t.Fatal(err)
	}
}

// pinch returns a hand whose tips land on the given pixels of a 640x480 frame.
// The coordinates are chosen so the normalized values are exact in binary.
func pinch(tx, ty, ix, iy int) []detector.HandLandmarks {
	return []detector.HandLandmarks{detector.PinchLandmarks(
		detector.Point3D{X: float64(tx) / 640, Y: float64(ty) / 480},
		detector.Point3D{X: float64(ix) / 640, Y: float64(iy) / 480},
	)}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	ext := hand.NewExtractor(detector.NewMockDetector())
	defer ext.Close()
	cam := capture.NewMockCamera(nil, false)

	tests := []struct {
		name   string
		config Config
	}{
		{name: "no camera", config: Config{Extractor: ext, Volume: volume.Nop{}}},
		{name: "no extractor", config: Config{Camera: cam, Volume: volume.Nop{}}},
		{name: "no volume", config: Config{Camera: cam, Extractor: ext}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.config); !errors.Is(err, ErrMissingCollaborator) {
				t.Errorf("New() error = %v, want ErrMissingCollaborator", err)
			}
		})
	}
}

func TestStep_NoHand(t *testing.T) {
	r := newRig(t)
	r.open(t)

	for i := 0; i < 3; i++ {
		if r.ctrl.Step(context.Background()) {
			t.Fatal("Step() reported stop without Esc")
		}
	}

	if got := r.setter.Levels(); len(got) != 0 {
		t.Errorf("setter called without a hand: %v", got)
	}
	if r.sink.Shown() != 3 {
		t.Errorf("Shown() = %d, want 3", r.sink.Shown())
	}
	if r.det.Calls() != 3 {
		t.Errorf("detector calls = %d, want 3", r.det.Calls())
	}
	if r.ctrl.Level() != -1 {
		t.Errorf("Level() = %d, want -1", r.ctrl.Level())
	}
}

func TestStep_PinchScenarios(t *testing.T) {
	tests := []struct {
		name         string
		hands        []detector.HandLandmarks
		wantDistance int
		wantLevel    int
	}{
		{name: "distance 30", hands: pinch(100, 120, 100, 150), wantDistance: 30, wantLevel: 14},
		{name: "coincident tips", hands: pinch(320, 240, 320, 240), wantDistance: 0, wantLevel: 0},
		{name: "distance 200", hands: pinch(160, 120, 360, 120), wantDistance: 200, wantLevel: 100},
		{name: "dead zone low", hands: pinch(100, 120, 120, 120), wantDistance: 20, wantLevel: 0},
		{name: "dead zone high", hands: pinch(100, 120, 240, 120), wantDistance: 140, wantLevel: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t)
			r.open(t)
			statuses, cancel := r.hub.Subscribe()
			defer cancel()

			r.det.SetHands(tt.hands)
			r.ctrl.Step(context.Background())

			levels := r.setter.Levels()
			if len(levels) != 1 || levels[0] != tt.wantLevel {
				t.Fatalf("setter levels = %v, want [%d]", levels, tt.wantLevel)
			}
			if r.ctrl.Level() != tt.wantLevel {
				t.Errorf("Level() = %d", r.ctrl.Level())
			}
			if len(r.journal.levels) != 1 || r.journal.levels[0] != tt.wantLevel {
				t.Errorf("journal = %v", r.journal.levels)
			}

			st := <-statuses
			if st.Distance != tt.wantDistance || st.Level != tt.wantLevel || st.Hands != 1 {
				t.Errorf("status = %+v", st)
			}
			if len(st.Landmarks) != detector.NumLandmarks {
				t.Errorf("status carries %d landmarks", len(st.Landmarks))
			}
			if got := testutil.ToFloat64(r.metrics.VolumeLevel); got != float64(tt.wantLevel) {
				t.Errorf("volume gauge = %v", got)
			}
		})
	}
}

func TestStep_Disabled(t *testing.T) {
	r := newRig(t)
	r.open(t)
	r.ctrl.SetEnabled(false)
	if r.ctrl.Enabled() {
		t.Fatal("Enabled() = true after SetEnabled(false)")
	}

	r.det.SetHands(pinch(100, 120, 100, 150))
	r.ctrl.Step(context.Background())

	if got := r.setter.Levels(); len(got) != 0 {
		t.Errorf("disabled controller changed volume: %v", got)
	}
	if st := r.hub.Status(); st.Level != 14 || st.Enabled {
		t.Errorf("status = %+v, want level 14 shown while disabled", st)
	}
}

func TestStep_VolumeErrorIsNotFatal(t *testing.T) {
	r := newRig(t)
	r.open(t)
	r.setter.SetError(errors.New("no mixer"))
	r.det.SetHands(pinch(100, 120, 100, 150))

	for i := 0; i < 2; i++ {
		if r.ctrl.Step(context.Background()) {
			t.Fatal("volume error stopped the loop")
		}
	}

	if got := testutil.ToFloat64(r.metrics.VolumeErrors); got != 2 {
		t.Errorf("volume errors = %v, want 2", got)
	}
	if len(r.journal.levels) != 0 {
		t.Errorf("failed levels were journaled: %v", r.journal.levels)
	}
	if r.ctrl.Level() != -1 {
		t.Errorf("Level() = %d after failures", r.ctrl.Level())
	}
	if r.sink.Shown() != 2 {
		t.Errorf("Shown() = %d, want 2", r.sink.Shown())
	}
}

func TestStep_DetectorErrorIsNotFatal(t *testing.T) {
	r := newRig(t)
	r.open(t)
	r.det.SetError(errors.New("helper exited"))

	if r.ctrl.Step(context.Background()) {
		t.Fatal("detector error stopped the loop")
	}
	if got := testutil.ToFloat64(r.metrics.DetectErrors); got != 1 {
		t.Errorf("detect errors = %v", got)
	}
	if r.sink.Shown() != 1 {
		t.Error("frame not shown after detector error")
	}
}

func TestStep_FrameFailure(t *testing.T) {
	r := newRig(t)
	r.open(t)
	// Reads 0 and 2 fail: before any frame, then after a good one.
	r.camera.FailReads(0, 2)
	r.det.SetHands(pinch(100, 120, 100, 150))

	r.ctrl.Step(context.Background())
	if r.sink.Shown() != 0 {
		t.Error("empty buffer was shown")
	}
	if r.det.Calls() != 0 {
		t.Error("detector ran without a frame")
	}

	r.ctrl.Step(context.Background())
	if r.sink.Shown() != 1 || r.det.Calls() != 1 {
		t.Fatalf("good frame: shown=%d calls=%d", r.sink.Shown(), r.det.Calls())
	}

	r.ctrl.Step(context.Background())
	if r.sink.Shown() != 2 {
		t.Error("previous frame not shown after a failed read")
	}
	if r.det.Calls() != 1 {
		t.Error("detector ran on a failed read")
	}
	if got := len(r.setter.Levels()); got != 1 {
		t.Errorf("setter calls = %d, want 1", got)
	}
	if got := testutil.ToFloat64(r.metrics.FrameFailures); got != 2 {
		t.Errorf("frame failures = %v, want 2", got)
	}
}

func TestStep_Overlay(t *testing.T) {
	r := newRig(t)
	r.open(t)
	r.det.SetHands(pinch(320, 240, 320, 240))

	r.ctrl.Step(context.Background())

	last := r.sink.Last()
	defer last.Close()

	// Coincident tips: the midpoint marker is white.
	if px := last.GetVecbAt(240, 320); px[0] != 255 || px[1] != 255 || px[2] != 255 {
		t.Errorf("midpoint pixel = %v, want white", px)
	}
	// The meter outline is green (BGR).
	if px := last.GetVecbAt(250, 50); px[0] != 0 || px[1] != 255 || px[2] != 0 {
		t.Errorf("meter pixel = %v, want green", px)
	}
	// Level 0 leaves the meter interior empty.
	if px := last.GetVecbAt(250, 67); px[1] != 0 {
		t.Errorf("meter interior = %v, want empty at level 0", px)
	}
}

func TestStep_EscStops(t *testing.T) {
	r := newRig(t, display.NoKey, 'q', display.KeyEsc)
	r.open(t)

	for i, want := range []bool{false, false, true} {
		if got := r.ctrl.Step(context.Background()); got != want {
			t.Errorf("step %d: stop = %v, want %v", i, got, want)
		}
	}
}

func TestStep_OnLevel(t *testing.T) {
	r := newRig(t)
	r.open(t)

	var got []int
	r.ctrl.config.OnLevel = func(level int) { got = append(got, level) }
	r.det.SetSequence(pinch(100, 120, 100, 150), nil, pinch(160, 120, 360, 120))

	for i := 0; i < 3; i++ {
		r.ctrl.Step(context.Background())
	}
	if len(got) != 2 || got[0] != 14 || got[1] != 100 {
		t.Errorf("OnLevel calls = %v, want [14 100]", got)
	}
}

func TestStep_MotionGate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV image processing")
	}

	r := newRig(t)
	r.open(t)
	r.ctrl.config.Motion = capture.NewMotionGate(1.0)

	for i := 0; i < 3; i++ {
		r.ctrl.Step(context.Background())
	}
	// The camera repeats one still frame: only the first reaches the detector.
	if r.det.Calls() != 1 {
		t.Errorf("detector calls = %d, want 1", r.det.Calls())
	}
	if got := testutil.ToFloat64(r.metrics.MotionSkipped); got != 2 {
		t.Errorf("motion skipped = %v, want 2", got)
	}
	if r.sink.Shown() != 3 {
		t.Errorf("skipped frames must still be shown, got %d", r.sink.Shown())
	}
}

func TestRun_EscReleasesEverything(t *testing.T) {
	r := newRig(t, display.NoKey, display.NoKey, display.KeyEsc)

	if err := r.ctrl.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if r.camera.Reads() != 3 {
		t.Errorf("reads = %d, want 3", r.camera.Reads())
	}
	if r.camera.IsOpen() {
		t.Error("camera left open")
	}
	if !r.sink.Closed() {
		t.Error("display left open")
	}
	if !r.det.Closed() {
		t.Error("detector left open")
	}
	if !r.journal.closed {
		t.Error("journal session left open")
	}
}

func TestRun_ContextCancel(t *testing.T) {
	r := newRig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- r.ctrl.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
	if r.camera.IsOpen() {
		t.Error("camera left open")
	}
	if r.camera.Reads() == 0 {
		t.Error("loop never ran")
	}
}

func TestRun_CameraOpenFailure(t *testing.T) {
	r := newRig(t)
	boom := errors.New("no device")
	r.camera.SetOpenError(boom)

	if err := r.ctrl.Run(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want %v", err, boom)
	}
	if !r.det.Closed() {
		t.Error("detector not released after open failure")
	}
}

func TestMidpoint(t *testing.T) {
	tests := []struct {
		name         string
		a, b         hand.Landmark
		wantX, wantY int
	}{
		{name: "even", a: hand.Landmark{X: 100, Y: 120}, b: hand.Landmark{X: 200, Y: 160}, wantX: 150, wantY: 140},
		{name: "odd", a: hand.Landmark{X: 100, Y: 120}, b: hand.Landmark{X: 101, Y: 123}, wantX: 100, wantY: 121},
		{name: "negative odd", a: hand.Landmark{X: -3, Y: -1}, b: hand.Landmark{X: 0, Y: 0}, wantX: -2, wantY: -1},
		{name: "negative even", a: hand.Landmark{X: -4, Y: 2}, b: hand.Landmark{X: 0, Y: -6}, wantX: -2, wantY: -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := midpoint(tt.a, tt.b)
			if got.X != tt.wantX || got.Y != tt.wantY {
				t.Errorf("midpoint() = %v, want (%d,%d)", got, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestFPSTracker(t *testing.T) {
	var f fpsTracker
	base := time.Unix(1000, 0)

	steps := []struct {
		at   time.Duration
		want int
	}{
		{0, 0},
		{40 * time.Millisecond, 25},
		{40 * time.Millisecond, 0},
		{140 * time.Millisecond, 10},
		{1140 * time.Millisecond, 1},
		{3140 * time.Millisecond, 0},
	}
	for i, s := range steps {
		if got := f.tick(base.Add(s.at)); got != s.want {
			t.Errorf("tick %d at %v = %d, want %d", i, s.at, got, s.want)
		}
	}
}
