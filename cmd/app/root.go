package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"subtitle-burner/internal/config"
	"subtitle-burner/internal/domain"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "subtitle-burner",
	Short: "Burn remote transcriptions into video files",
	Long: `subtitle-burner sends a video's audio track to a transcription
service and burns the returned subtitles into the picture:

  - Extract mono 16 kHz audio with ffmpeg
  - Send it to the configured transcription endpoint
  - Burn the returned SRT into the video and export it

Example:
  subtitle-burner run talk.mp4`,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "settings file (default is ~/.subtitle-burner/settings.toml)")
}

// settingsPath resolves the settings file honoring the --config flag.
func settingsPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}
	return filepath.Join(homeDir, ".subtitle-burner", "settings.toml"), nil
}

// loadSettings opens the store and returns normalized settings.
func loadSettings() (config.Store, domain.Settings, error) {
	path, err := settingsPath()
	if err != nil {
		return nil, domain.Settings{}, err
	}

	store := config.NewTOMLStore(path)
	settings, err := store.Load()
	if err != nil {
		return nil, domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return store, settings, nil
}
