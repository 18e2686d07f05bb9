package plugin

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_Discover(t *testing.T) {
	dir := t.TempDir()
	writePlugin(t, dir, "system-control", []string{"volume-up", ActionVolumeSet}, "true\n")
	writePlugin(t, dir, "notifier", []string{"notify"}, "true\n")

	// Directories without a manifest and stray files are ignored.
	if err := os.MkdirAll(filepath.Join(dir, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(dir, nil)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	list := m.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(list))
	}
	if list[0].Manifest.Name != "notifier" || list[1].Manifest.Name != "system-control" {
		t.Errorf("List() not sorted by name: %s, %s", list[0].Manifest.Name, list[1].Manifest.Name)
	}

	p, err := m.Get("system-control")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.Executable != filepath.Join(dir, "system-control", "run.sh") {
		t.Errorf("Executable = %q", p.Executable)
	}
	if _, err := m.Get("missing"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}
}

func TestManager_Discover_SkipsInvalidManifests(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"garbage":  "{not json",
		"nameless": `{"executable":"run.sh"}`,
		"noexec":   `{"name":"noexec"}`,
	} {
		if err := os.MkdirAll(filepath.Join(dir, name), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, name, "plugin.json"), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	m := NewManager(dir, nil)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if n := len(m.List()); n != 0 {
		t.Errorf("expected no plugins, got %d", n)
	}
}

func TestManager_Discover_MissingDir(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "nope"), nil)
	if err := m.Discover(); err != nil {
		t.Errorf("missing plugin dir should not fail: %v", err)
	}
	if m.PluginDir() == "" {
		t.Error("PluginDir() is empty")
	}
}

func TestManager_FindAction(t *testing.T) {
	dir := t.TempDir()
	writePlugin(t, dir, "b-audio", []string{ActionVolumeSet}, "true\n")
	writePlugin(t, dir, "a-audio", []string{ActionVolumeSet}, "true\n")
	writePlugin(t, dir, "keys", []string{"press"}, "true\n")

	m := NewManager(dir, nil)
	if err := m.Discover(); err != nil {
		t.Fatal(err)
	}

	p, err := m.FindAction(ActionVolumeSet)
	if err != nil {
		t.Fatalf("FindAction() error = %v", err)
	}
	if p.Manifest.Name != "a-audio" {
		t.Errorf("FindAction() = %s, want first by name", p.Manifest.Name)
	}
	if _, err := m.FindAction("teleport"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}
}
