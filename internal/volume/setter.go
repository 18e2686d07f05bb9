package volume

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
)

// ErrUnsupported is returned when no volume command exists for the platform.
var ErrUnsupported = errors.New("system volume control not supported on this platform")

// Setter sets the system output volume to a level in [0,100].
type Setter interface {
	SetVolume(ctx context.Context, level int) error
}

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// CommandSetter sets the volume by running a platform tool.
type CommandSetter struct {
	name string
	args func(level int) []string
	run  Runner
}

// NewCommandSetter returns the setter for the current platform:
// osascript on macOS, pactl or amixer on Linux, nircmd on Windows.
func NewCommandSetter() (*CommandSetter, error) {
	return commandSetterFor(runtime.GOOS, exec.LookPath)
}

func commandSetterFor(goos string, lookPath func(string) (string, error)) (*CommandSetter, error) {
	has := func(name string) bool {
		_, err := lookPath(name)
		return err == nil
	}

	switch {
	case goos == "darwin":
		return &CommandSetter{name: "osascript", args: osascriptArgs, run: execRunner}, nil
	case goos == "linux" && has("pactl"):
		return &CommandSetter{name: "pactl", args: pactlArgs, run: execRunner}, nil
	case goos == "linux" && has("amixer"):
		return &CommandSetter{name: "amixer", args: amixerArgs, run: execRunner}, nil
	case goos == "windows" && has("nircmd"):
		return &CommandSetter{name: "nircmd", args: nircmdArgs, run: execRunner}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, goos)
}

func osascriptArgs(level int) []string {
	return []string{"-e", fmt.Sprintf("set volume output volume %d", level)}
}

func pactlArgs(level int) []string {
	return []string{"set-sink-volume", "@DEFAULT_SINK@", strconv.Itoa(level) + "%"}
}

func amixerArgs(level int) []string {
	return []string{"-q", "sset", "Master", strconv.Itoa(level) + "%"}
}

// nircmd takes the master volume as 0-65535.
func nircmdArgs(level int) []string {
	return []string{"setsysvolume", strconv.Itoa(level * 65535 / 100)}
}

// WithRunner replaces the command runner. Used by tests.
func (s *CommandSetter) WithRunner(run Runner) *CommandSetter {
	s.run = run
	return s
}

// Name is the tool the setter runs.
func (s *CommandSetter) Name() string { return s.name }

// SetVolume runs the platform tool with level clamped to [0,100].
func (s *CommandSetter) SetVolume(ctx context.Context, level int) error {
	level = Clamp(level)
	out, err := s.run(ctx, s.name, s.args(level)...)
	if err != nil {
		return fmt.Errorf("%s: %w: %s", s.name, err, out)
	}
	return nil
}

// Clamp bounds a level to [0,100].
func Clamp(level int) int {
	return min(max(level, 0), 100)
}

// Nop discards every level.
type Nop struct{}

func (Nop) SetVolume(context.Context, int) error { return nil }

// MockSetter records the levels it is asked to apply.
type MockSetter struct {
	mu     sync.Mutex
	levels []int
	err    error
}

// NewMockSetter creates an empty MockSetter.
func NewMockSetter() *MockSetter {
	return &MockSetter{}
}

// SetError makes SetVolume record the level and then fail with err.
func (m *MockSetter) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockSetter) SetVolume(_ context.Context, level int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels = append(m.levels, level)
	return m.err
}

// Levels returns a copy of every level applied so far.
func (m *MockSetter) Levels() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.levels...)
}
