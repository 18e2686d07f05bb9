// Package main provides an audio control plugin.
// It sets the output volume via AppleScript on macOS and pactl elsewhere.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action string          `json:"action"`
	Params json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type volumeParams struct {
	Level *int `json:"level"`
}

// actionHandler handles one action given its raw params.
type actionHandler func(params json.RawMessage) error

var actionHandlers = map[string]actionHandler{
	"volume-set":  volumeSet,
	"volume-up":   func(json.RawMessage) error { return volumeStep(10) },
	"volume-down": func(json.RawMessage) error { return volumeStep(-10) },
	"volume-mute": func(json.RawMessage) error { return volumeMute() },
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	handler, ok := actionHandlers[req.Action]
	if !ok {
		writeResponse(Response{Error: fmt.Sprintf("unknown action: %s", req.Action)})
		return
	}

	if err := handler(req.Params); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("action %s failed: %v", req.Action, err)})
		return
	}

	writeResponse(Response{Success: true})
}

func writeResponse(resp Response) {
	_ = json.NewEncoder(os.Stdout).Encode(resp)
}

func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

func runAppleScript(script string) error {
	return run("osascript", "-e", script)
}

// volumeSet sets the output volume to params.level, clamped to [0,100].
func volumeSet(raw json.RawMessage) error {
	var p volumeParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("bad params: %w", err)
		}
	}
	if p.Level == nil {
		return fmt.Errorf("missing level")
	}
	level := min(max(*p.Level, 0), 100)

	if runtime.GOOS == "darwin" {
		return runAppleScript(fmt.Sprintf("set volume output volume %d", level))
	}
	return run("pactl", "set-sink-volume", "@DEFAULT_SINK@", strconv.Itoa(level)+"%")
}

func volumeStep(delta int) error {
	if runtime.GOOS == "darwin" {
		return runAppleScript(fmt.Sprintf(
			"set volume output volume ((output volume of (get volume settings)) + %d)", delta))
	}
	return run("pactl", "set-sink-volume", "@DEFAULT_SINK@", fmt.Sprintf("%+d%%", delta))
}

func volumeMute() error {
	if runtime.GOOS == "darwin" {
		return runAppleScript(`set volume output muted (not (output muted of (get volume settings)))`)
	}
	return run("pactl", "set-sink-mute", "@DEFAULT_SINK@", "toggle")
}
