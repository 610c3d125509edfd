// Package pipeline sequences the subtitling stages: audio extraction through
// the transcoding engine, the remote transcription round-trip, and subtitle
// burn-in. Each stage is a distinct failure boundary so callers always learn
// which stage a job died in.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"subtitle-burner/internal/codec"
	"subtitle-burner/internal/domain"
	"subtitle-burner/internal/engine"
	"subtitle-burner/internal/subtitle"
	"subtitle-burner/internal/transcription"
)

// Stage names the failure boundary a job error belongs to.
type Stage string

const (
	StageExtractingAudio       Stage = "extracting_audio"
	StageAwaitingTranscription Stage = "awaiting_transcription"
	StageMuxingSubtitles       Stage = "muxing_subtitles"
)

// StageError is a stage-aware error with optional command context.
type StageError struct {
	Stage      Stage             `json:"stage"`
	Message    string            `json:"message"`
	CommandLog engine.CommandLog `json:"commandLog"`
	Err        error             `json:"-"`
}

// Error formats pipeline failures for logs and UI.
func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	if e.CommandLog.Command == "" {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}

	return fmt.Sprintf(
		"%s: %s (cmd=%s exit=%d)",
		e.Stage,
		e.Message,
		e.CommandLog.Command,
		e.CommandLog.ExitCode,
	)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Request contains the input video and execution callbacks for one run.
type Request struct {
	InputPath        string
	SampleRateHint   string
	OutputFolderHint string
	OnStage          func(stage Stage)
	OnLog            func(log engine.CommandLog)
}

// Result contains the final artifact, the decoded subtitle text, and the
// engine command logs gathered along the way.
type Result struct {
	Asset        domain.MediaAsset
	SubtitleText string
	Logs         []engine.CommandLog
}

// transcodingEngine isolates the engine behind an interface for testability.
type transcodingEngine interface {
	EnsureLoaded(ctx context.Context) error
	ExtractAudio(ctx context.Context, video domain.MediaAsset) (domain.MediaAsset, engine.CommandLog, error)
	MuxSubtitles(ctx context.Context, video domain.MediaAsset, subtitleText string) (domain.MediaAsset, engine.CommandLog, error)
}

// transcriptionClient isolates the remote round-trip.
type transcriptionClient interface {
	Transcribe(ctx context.Context, payload domain.EncodedPayload, opts transcription.Options) (transcription.Result, error)
}

// Pipeline orchestrates the engine and the remote transcription client.
type Pipeline struct {
	engine   transcodingEngine
	client   transcriptionClient
	readFile func(string) ([]byte, error)
	logger   *slog.Logger
}

// New constructs the production pipeline around an engine session and a
// transcription client. Both are injected; the pipeline owns neither.
func New(eng transcodingEngine, client transcriptionClient, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		engine:   eng,
		client:   client,
		readFile: os.ReadFile,
		logger:   logger,
	}
}

// Run executes extraction, transcription, and burn-in strictly in order.
// No stage begins before its predecessor settles, nothing is retried, and
// every failure is tagged with the stage it occurred in.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.InputPath) == "" {
		return Result{}, &StageError{
			Stage:   StageExtractingAudio,
			Message: "input video path is required",
		}
	}

	data, err := p.readFile(req.InputPath)
	if err != nil {
		return Result{}, &StageError{
			Stage:   StageExtractingAudio,
			Message: fmt.Sprintf("cannot read input video: %s", req.InputPath),
			Err:     err,
		}
	}
	video := domain.MediaAsset{
		Name:     filepath.Base(req.InputPath),
		MIMEType: videoMIMEType(req.InputPath),
		Bytes:    data,
	}

	emitStage(req.OnStage, StageExtractingAudio)
	if err := p.engine.EnsureLoaded(ctx); err != nil {
		return Result{}, &StageError{
			Stage:   StageExtractingAudio,
			Message: "transcoding engine failed to load",
			Err:     err,
		}
	}

	audio, extractLog, err := p.engine.ExtractAudio(ctx, video)
	emitLog(req.OnLog, extractLog)
	logs := appendLog(nil, extractLog)
	if err != nil {
		return Result{}, &StageError{
			Stage:      StageExtractingAudio,
			Message:    "audio extraction failed",
			CommandLog: extractLog,
			Err:        err,
		}
	}

	payload := codec.Encode(audio.Bytes)

	emitStage(req.OnStage, StageAwaitingTranscription)
	transcribed, err := p.client.Transcribe(ctx, payload, transcription.Options{
		SampleRateHint:   req.SampleRateHint,
		OutputFolderHint: req.OutputFolderHint,
	})
	if err != nil {
		return Result{}, &StageError{
			Stage:   StageAwaitingTranscription,
			Message: "transcription round-trip failed",
			Err:     err,
		}
	}

	emitStage(req.OnStage, StageMuxingSubtitles)
	subtitleBytes, err := codec.Decode(transcribed.SubtitlePayload)
	if err != nil {
		return Result{}, &StageError{
			Stage:   StageMuxingSubtitles,
			Message: "subtitle payload failed transport decoding",
			Err:     err,
		}
	}

	subtitleText := string(subtitleBytes)
	if issues := subtitle.Validate(subtitleText); len(issues) > 0 {
		return Result{}, &StageError{
			Stage:   StageMuxingSubtitles,
			Message: fmt.Sprintf("subtitle text is unusable: %s", strings.Join(issues, ", ")),
		}
	}

	final, muxLog, err := p.engine.MuxSubtitles(ctx, video, subtitleText)
	emitLog(req.OnLog, muxLog)
	logs = appendLog(logs, muxLog)
	if err != nil {
		return Result{}, &StageError{
			Stage:      StageMuxingSubtitles,
			Message:    "subtitle burn-in failed",
			CommandLog: muxLog,
			Err:        err,
		}
	}

	if p.logger != nil {
		p.logger.Info("pipeline completed",
			slog.String("input", video.Name),
			slog.String("output", final.Name),
			slog.Int("output_bytes", len(final.Bytes)),
		)
	}

	return Result{
		Asset:        final,
		SubtitleText: subtitleText,
		Logs:         logs,
	}, nil
}

// emitStage forwards stage updates when the callback is configured.
func emitStage(cb func(Stage), stage Stage) {
	if cb != nil {
		cb(stage)
	}
}

// emitLog forwards command logs when the callback is configured.
func emitLog(cb func(engine.CommandLog), log engine.CommandLog) {
	if cb != nil && log.Command != "" {
		cb(log)
	}
}

// appendLog collects non-empty command logs.
func appendLog(logs []engine.CommandLog, log engine.CommandLog) []engine.CommandLog {
	if log.Command == "" {
		return logs
	}
	return append(logs, log)
}

// videoMIMEType maps common container extensions to MIME types.
func videoMIMEType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".mkv":
		return "video/x-matroska"
	case ".avi":
		return "video/x-msvideo"
	case ".webm":
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}

// NewForTests constructs a pipeline with an injectable file reader.
func NewForTests(eng transcodingEngine, client transcriptionClient, readFile func(string) ([]byte, error)) *Pipeline {
	return &Pipeline{
		engine:   eng,
		client:   client,
		readFile: readFile,
	}
}
