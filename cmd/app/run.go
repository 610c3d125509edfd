package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"subtitle-burner/internal/engine"
	"subtitle-burner/internal/pipeline"
	"subtitle-burner/internal/publish"
	"subtitle-burner/internal/subtitle"
	"subtitle-burner/internal/transcription"
)

var runVerbose bool

var runCmd = &cobra.Command{
	Use:   "run <video>",
	Short: "Subtitle one video and export the result",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "print ffmpeg command output")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	_, settings, err := loadSettings()
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if runVerbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	eng := engine.New(settings.FFmpegPath, settings.WorkDir, nil, logger)
	client := transcription.NewClient(settings.Endpoint, transcription.WithLogger(logger))
	pipe := pipeline.New(eng, client, logger)
	publisher := publish.New(logger)

	out := cmd.OutOrStdout()
	result, err := pipe.Run(context.Background(), pipeline.Request{
		InputPath:        args[0],
		SampleRateHint:   settings.SampleRate,
		OutputFolderHint: settings.RemoteFolder,
		OnStage: func(stage pipeline.Stage) {
			fmt.Fprintf(out, "==> %s\n", strings.ReplaceAll(string(stage), "_", " "))
		},
		OnLog: func(log engine.CommandLog) {
			if !runVerbose {
				return
			}
			fmt.Fprintf(out, "    %s %s (exit %d)\n", log.Command, strings.Join(log.Args, " "), log.ExitCode)
			if strings.TrimSpace(log.Stderr) != "" {
				fmt.Fprintln(out, log.Stderr)
			}
		},
	})
	if err != nil {
		return err
	}

	ref, err := publisher.Publish(result.Asset, settings.OutputDir)
	if err != nil {
		return err
	}

	rows := [][]string{
		{"Output", ref.Path},
		{"Reference", ref.ID},
		{"Size", fmt.Sprintf("%d bytes", ref.Size)},
		{"Subtitle cues", fmt.Sprintf("%d", subtitle.CountCues(result.SubtitleText))},
	}
	if first, last, ok := subtitle.Bounds(result.SubtitleText); ok {
		rows = append(rows, []string{"Covers", fmt.Sprintf("%.1fs to %.1fs", first, last)})
	}

	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignLeft}))
	return nil
}
