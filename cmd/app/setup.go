package main

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"subtitle-burner/internal/config"
	"subtitle-burner/internal/domain"
)

// Prompter interface for interactive prompts (allows mocking in tests)
type Prompter interface {
	Input(message string, defaultValue string) (string, error)
	Confirm(message string, defaultValue bool) (bool, error)
}

// SurveyPrompter implements Prompter using the survey library
type SurveyPrompter struct{}

func (p *SurveyPrompter) Input(message string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

func (p *SurveyPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return false, err
	}
	return result, nil
}

// DefaultPrompter is the prompter used in production
var DefaultPrompter Prompter = &SurveyPrompter{}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the settings file interactively",
	Long: `Prompts for configuration values and writes the settings file.

This command walks through the transcription endpoint, the output
directory for subtitled videos, and the ffmpeg binary location.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	path, err := settingsPath()
	if err != nil {
		return err
	}
	return RunSetupWithPrompter(DefaultPrompter, path)
}

// RunSetupWithPrompter runs the setup with a given prompter (for testing)
func RunSetupWithPrompter(prompter Prompter, settingsFile string) error {
	if _, err := os.Stat(settingsFile); err == nil {
		overwrite, err := prompter.Confirm("Settings file already exists. Overwrite?", false)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if !overwrite {
			fmt.Println("Setup cancelled.")
			return nil
		}
	}

	defaults := config.DefaultSettings()
	settings := domain.Settings{}
	var err error

	settings.Endpoint, err = prompter.Input("Transcription service URL:", defaults.Endpoint)
	if err != nil {
		return err
	}
	settings.OutputDir, err = prompter.Input("Output directory for subtitled videos:", defaults.OutputDir)
	if err != nil {
		return err
	}
	settings.SampleRate, err = prompter.Input("Audio sample rate hint:", defaults.SampleRate)
	if err != nil {
		return err
	}
	settings.RemoteFolder, err = prompter.Input("Remote output folder hint:", defaults.RemoteFolder)
	if err != nil {
		return err
	}
	settings.FFmpegPath, err = prompter.Input("ffmpeg binary (leave empty to search PATH):", "")
	if err != nil {
		return err
	}
	settings.WorkDir, err = prompter.Input("Work directory for temporary files:", defaults.WorkDir)
	if err != nil {
		return err
	}

	store := config.NewTOMLStore(settingsFile)
	if err := store.Save(settings); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	fmt.Printf("Settings written to %s\n", settingsFile)
	return nil
}
