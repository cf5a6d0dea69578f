package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/msto63/englishquery/internal/speech"
)

func TestSelectInputDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listener.json")
	custom := speech.DefaultSettings()
	custom.EnergyThreshold = 300
	if err := speech.SaveSettings(path, custom); err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}

	if err := selectInputDevice(path, 2); err != nil {
		t.Fatalf("selectInputDevice() error = %v", err)
	}
	got, err := speech.LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if got.DeviceIndex != 2 || got.EnergyThreshold != 300 {
		t.Errorf("settings = %+v, want device 2 with threshold kept", got)
	}
}

func TestSelectInputDevice_MalformedFileIsKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listener.json")
	broken := []byte(`{"energy_threshold": 300, "pause_threshold": `)
	if err := os.WriteFile(path, broken, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := selectInputDevice(path, 1); err == nil {
		t.Fatal("selectInputDevice() error = nil for malformed settings")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != string(broken) {
		t.Errorf("settings file rewritten to %q", data)
	}
}
