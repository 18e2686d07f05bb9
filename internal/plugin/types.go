// Package plugin runs external action executables that speak JSON over stdin/stdout.
// pinchvol uses it as a volume backend: a plugin that lists the "volume-set"
// action receives the level in its params.
package plugin

import "encoding/json"

// ActionVolumeSet is the action a plugin must offer to act as a volume backend.
const ActionVolumeSet = "volume-set"

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Actions     []string `json:"actions"`
}

// Supports reports whether the manifest lists action.
func (m Manifest) Supports(action string) bool {
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Request is written to the plugin's stdin.
type Request struct {
	Action string          `json:"action"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// VolumeParams are the params of a volume-set request.
type VolumeParams struct {
	Level int `json:"level"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
