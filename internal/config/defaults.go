package config

import (
	"os"
	"path/filepath"
	"strings"

	"subtitle-burner/internal/domain"
)

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return domain.Settings{
		Endpoint:     "http://127.0.0.1:4000/",
		OutputDir:    filepath.Join(homeDir, "Videos", "Subtitled"),
		SampleRate:   "16000",
		RemoteFolder: "transcriptions",
		WorkDir:      filepath.Join(homeDir, ".subtitle-burner", "work"),
	}
}

// Normalize trims whitespace and fills blank fields from the defaults.
// FFmpegPath stays empty when unset so binary discovery runs.
func Normalize(cfg domain.Settings) domain.Settings {
	defaults := DefaultSettings()

	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.OutputDir = strings.TrimSpace(cfg.OutputDir)
	cfg.SampleRate = strings.TrimSpace(cfg.SampleRate)
	cfg.RemoteFolder = strings.TrimSpace(cfg.RemoteFolder)
	cfg.FFmpegPath = strings.TrimSpace(cfg.FFmpegPath)
	cfg.WorkDir = strings.TrimSpace(cfg.WorkDir)

	if cfg.Endpoint == "" {
		cfg.Endpoint = defaults.Endpoint
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = defaults.OutputDir
	}
	if cfg.SampleRate == "" {
		cfg.SampleRate = defaults.SampleRate
	}
	if cfg.RemoteFolder == "" {
		cfg.RemoteFolder = defaults.RemoteFolder
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = defaults.WorkDir
	}

	return cfg
}
