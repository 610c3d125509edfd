package main

import (
	"os"
	"path/filepath"
	"testing"

	"subtitle-burner/internal/config"
)

// fakePrompter answers prompts from a scripted list.
type fakePrompter struct {
	inputs   []string
	next     int
	confirms []bool
	nextC    int
}

func (p *fakePrompter) Input(message string, defaultValue string) (string, error) {
	if p.next >= len(p.inputs) {
		return defaultValue, nil
	}
	answer := p.inputs[p.next]
	p.next++
	if answer == "" {
		return defaultValue, nil
	}
	return answer, nil
}

func (p *fakePrompter) Confirm(message string, defaultValue bool) (bool, error) {
	if p.nextC >= len(p.confirms) {
		return defaultValue, nil
	}
	answer := p.confirms[p.nextC]
	p.nextC++
	return answer, nil
}

// TestRunSetupWritesSettings checks the interactive flow end to end.
func TestRunSetupWritesSettings(t *testing.T) {
	settingsFile := filepath.Join(t.TempDir(), "cfg", "settings.toml")
	prompter := &fakePrompter{inputs: []string{
		"http://10.0.0.5:4000/",
		"/out",
		"",
		"jobs",
		"",
		"/tmp/work",
	}}

	if err := RunSetupWithPrompter(prompter, settingsFile); err != nil {
		t.Fatalf("setup: %v", err)
	}

	settings, err := config.NewTOMLStore(settingsFile).Load()
	if err != nil {
		t.Fatalf("load written settings: %v", err)
	}
	if settings.Endpoint != "http://10.0.0.5:4000/" {
		t.Fatalf("endpoint = %q", settings.Endpoint)
	}
	if settings.OutputDir != "/out" {
		t.Fatalf("output dir = %q", settings.OutputDir)
	}
	if settings.SampleRate != "16000" {
		t.Fatalf("sample rate = %q, want default 16000", settings.SampleRate)
	}
	if settings.RemoteFolder != "jobs" {
		t.Fatalf("remote folder = %q", settings.RemoteFolder)
	}
}

// TestRunSetupDeclinedOverwriteKeepsFile checks the overwrite guard.
func TestRunSetupDeclinedOverwriteKeepsFile(t *testing.T) {
	settingsFile := filepath.Join(t.TempDir(), "settings.toml")
	original := []byte("endpoint = 'http://127.0.0.1:4000/'\n")
	if err := os.WriteFile(settingsFile, original, 0o644); err != nil {
		t.Fatalf("seed settings: %v", err)
	}

	prompter := &fakePrompter{confirms: []bool{false}}
	if err := RunSetupWithPrompter(prompter, settingsFile); err != nil {
		t.Fatalf("setup: %v", err)
	}

	data, err := os.ReadFile(settingsFile)
	if err != nil {
		t.Fatalf("read settings: %v", err)
	}
	if string(data) != string(original) {
		t.Fatal("settings file was overwritten after declining")
	}
}
