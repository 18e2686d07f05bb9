package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// VolumeSetter applies volume levels through a plugin offering volume-set.
// It satisfies volume.Setter.
type VolumeSetter struct {
	plugin   *Plugin
	executor *Executor
}

// NewVolumeSetter discovers the plugins managed by m and picks the first one
// that supports volume-set.
func NewVolumeSetter(m *Manager, executor *Executor) (*VolumeSetter, error) {
	if err := m.Discover(); err != nil {
		return nil, fmt.Errorf("discover plugins in %s: %w", m.PluginDir(), err)
	}
	p, err := m.FindAction(ActionVolumeSet)
	if err != nil {
		return nil, fmt.Errorf("no %s plugin in %s: %w", ActionVolumeSet, m.PluginDir(), err)
	}
	return &VolumeSetter{plugin: p, executor: executor}, nil
}

// Plugin returns the plugin the setter runs.
func (s *VolumeSetter) Plugin() *Plugin { return s.plugin }

// SetVolume sends {"action":"volume-set","params":{"level":N}} to the plugin.
func (s *VolumeSetter) SetVolume(ctx context.Context, level int) error {
	params, err := json.Marshal(VolumeParams{Level: level})
	if err != nil {
		return err
	}

	resp, err := s.executor.Execute(ctx, s.plugin, &Request{Action: ActionVolumeSet, Params: params})
	if err != nil {
		return err
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "unknown error"
		}
		return fmt.Errorf("%s: %w", s.plugin.Manifest.Name, errors.New(msg))
	}
	return nil
}
