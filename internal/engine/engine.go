// Package engine wraps the external ffmpeg transcoding engine: one-time
// binary resolution, per-job staging directories, and the two transcoding
// invocations the subtitling pipeline needs.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"

	"github.com/google/uuid"

	"subtitle-burner/internal/domain"
)

const (
	extractedAudioFile = "audio-16k-mono.wav"
	subtitleTrackFile  = "subtitles.srt"
)

// Engine owns the ffmpeg session: binary resolution happens exactly once and
// every job stages its files in a private uuid-named directory under the base
// workspace, so interleaved jobs can never clobber each other's inputs.
type Engine struct {
	ffmpegPath   string
	fallbackDirs []string
	workDir      string
	runner       commandRunner
	logger       *slog.Logger

	lookPath  func(string) (string, error)
	stat      func(string) (os.FileInfo, error)
	mkdirAll  func(string, os.FileMode) error
	removeAll func(string) error
	readFile  func(string) ([]byte, error)
	writeFile func(string, []byte, os.FileMode) error
	newID     func() string

	loadOnce sync.Once
	loadErr  error
	resolved string
}

// New constructs the production engine. ffmpegPath may be empty to resolve
// from PATH; fallbackDirs are searched last (provisioned static builds).
func New(ffmpegPath, workDir string, fallbackDirs []string, logger *slog.Logger) *Engine {
	return &Engine{
		ffmpegPath:   strings.TrimSpace(ffmpegPath),
		fallbackDirs: fallbackDirs,
		workDir:      workDir,
		runner:       &execRunner{},
		logger:       logger,
		lookPath:     exec.LookPath,
		stat:         os.Stat,
		mkdirAll:     os.MkdirAll,
		removeAll:    os.RemoveAll,
		readFile:     os.ReadFile,
		writeFile:    os.WriteFile,
		newID:        uuid.NewString,
	}
}

// EnsureLoaded resolves and verifies the ffmpeg binary and prepares the base
// workspace. Idempotent: concurrent callers share exactly one initialization,
// and the outcome (including failure) is sticky for the session.
func (e *Engine) EnsureLoaded(ctx context.Context) error {
	e.loadOnce.Do(func() {
		e.loadErr = e.load(ctx)
	})
	return e.loadErr
}

func (e *Engine) load(ctx context.Context) error {
	path, err := e.resolveBinary()
	if err != nil {
		return &LoadError{Message: err.Error(), Err: err}
	}

	if _, err := e.runner.Run(ctx, path, "-version"); err != nil {
		return &LoadError{
			Message: fmt.Sprintf("ffmpeg at %s is not runnable", path),
			Err:     err,
		}
	}

	if err := e.mkdirAll(e.workDir, 0o755); err != nil {
		return &LoadError{
			Message: fmt.Sprintf("cannot create engine workspace: %s", e.workDir),
			Err:     err,
		}
	}

	e.resolved = path
	if e.logger != nil {
		e.logger.Info("engine loaded", slog.String("ffmpeg", path), slog.String("workspace", e.workDir))
	}
	return nil
}

func (e *Engine) resolveBinary() (string, error) {
	if e.ffmpegPath != "" {
		if filepath.Base(e.ffmpegPath) == e.ffmpegPath {
			path, err := e.lookPath(e.ffmpegPath)
			if err != nil {
				return "", fmt.Errorf("configured ffmpeg %q not found on PATH", e.ffmpegPath)
			}
			return path, nil
		}
		if _, err := e.stat(e.ffmpegPath); err != nil {
			return "", fmt.Errorf("configured ffmpeg path does not exist: %s", e.ffmpegPath)
		}
		return e.ffmpegPath, nil
	}

	if path, err := e.lookPath("ffmpeg"); err == nil {
		return path, nil
	}

	for _, dir := range e.fallbackDirs {
		candidate := filepath.Join(dir, ffmpegBinaryName())
		if _, err := e.stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("ffmpeg not found on PATH or in provisioned directories")
}

// ExtractAudio demuxes and re-encodes the audio-only stream of the given
// video (mono, 16 kHz PCM) and returns it as a new in-memory asset.
func (e *Engine) ExtractAudio(ctx context.Context, video domain.MediaAsset) (domain.MediaAsset, CommandLog, error) {
	if err := e.EnsureLoaded(ctx); err != nil {
		return domain.MediaAsset{}, CommandLog{}, err
	}
	if video.Empty() {
		return domain.MediaAsset{}, CommandLog{}, &MuxError{Op: "extract", Message: "input video is empty"}
	}

	workspace, err := e.newWorkspace()
	if err != nil {
		return domain.MediaAsset{}, CommandLog{}, &MuxError{Op: "extract", Message: "cannot create job workspace", Err: err}
	}
	defer e.discardWorkspace(workspace)

	inputPath := filepath.Join(workspace, "input"+assetExt(video))
	if err := e.writeFile(inputPath, video.Bytes, 0o644); err != nil {
		return domain.MediaAsset{}, CommandLog{}, &MuxError{Op: "extract", Message: "cannot stage input video", Err: err}
	}

	outputPath := filepath.Join(workspace, extractedAudioFile)
	args := buildExtractArgs(inputPath, outputPath)
	log, runErr := e.run(ctx, args)
	if runErr != nil {
		return domain.MediaAsset{}, log, &MuxError{Op: "extract", Message: "ffmpeg audio extraction failed", CommandLog: log, Err: runErr}
	}

	data, err := e.readOutput(outputPath)
	if err != nil {
		return domain.MediaAsset{}, log, &MuxError{Op: "extract", Message: err.Error(), CommandLog: log, Err: err}
	}

	return domain.MediaAsset{
		Name:     replaceExt(video.Name, ".wav"),
		MIMEType: "audio/wav",
		Bytes:    data,
	}, log, nil
}

// MuxSubtitles burns the subtitle text into the video frames, re-encoding
// video and passing the audio stream through untouched.
func (e *Engine) MuxSubtitles(ctx context.Context, video domain.MediaAsset, subtitleText string) (domain.MediaAsset, CommandLog, error) {
	if err := e.EnsureLoaded(ctx); err != nil {
		return domain.MediaAsset{}, CommandLog{}, err
	}
	if video.Empty() {
		return domain.MediaAsset{}, CommandLog{}, &MuxError{Op: "mux", Message: "input video is empty"}
	}
	if strings.TrimSpace(subtitleText) == "" {
		return domain.MediaAsset{}, CommandLog{}, &MuxError{Op: "mux", Message: "subtitle text is empty"}
	}

	workspace, err := e.newWorkspace()
	if err != nil {
		return domain.MediaAsset{}, CommandLog{}, &MuxError{Op: "mux", Message: "cannot create job workspace", Err: err}
	}
	defer e.discardWorkspace(workspace)

	ext := assetExt(video)
	inputPath := filepath.Join(workspace, "input"+ext)
	if err := e.writeFile(inputPath, video.Bytes, 0o644); err != nil {
		return domain.MediaAsset{}, CommandLog{}, &MuxError{Op: "mux", Message: "cannot stage input video", Err: err}
	}

	subtitlePath := filepath.Join(workspace, subtitleTrackFile)
	if err := e.writeFile(subtitlePath, []byte(subtitleText), 0o644); err != nil {
		return domain.MediaAsset{}, CommandLog{}, &MuxError{Op: "mux", Message: "cannot stage subtitle file", Err: err}
	}

	outputPath := filepath.Join(workspace, "output"+ext)
	args := buildBurnInArgs(inputPath, subtitlePath, outputPath)
	log, runErr := e.run(ctx, args)
	if runErr != nil {
		return domain.MediaAsset{}, log, &MuxError{Op: "mux", Message: "ffmpeg subtitle burn-in failed", CommandLog: log, Err: runErr}
	}

	data, err := e.readOutput(outputPath)
	if err != nil {
		return domain.MediaAsset{}, log, &MuxError{Op: "mux", Message: err.Error(), CommandLog: log, Err: err}
	}

	return domain.MediaAsset{
		Name:     subtitledName(video.Name),
		MIMEType: video.MIMEType,
		Bytes:    data,
	}, log, nil
}

// run executes one ffmpeg invocation and converts it into a CommandLog.
func (e *Engine) run(ctx context.Context, args []string) (CommandLog, error) {
	result, err := e.runner.Run(ctx, e.resolved, args...)
	log := CommandLog{
		Command:  e.resolved,
		Args:     args,
		ExitCode: result.ExitCode,
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
	}
	if e.logger != nil {
		e.logger.Debug("ffmpeg invocation",
			slog.String("args", strings.Join(args, " ")),
			slog.Int("exit_code", result.ExitCode),
		)
	}
	return log, err
}

// readOutput reads a produced file and rejects missing or empty output.
func (e *Engine) readOutput(path string) ([]byte, error) {
	if _, err := e.stat(path); err != nil {
		return nil, fmt.Errorf("ffmpeg completed but output file is missing")
	}
	data, err := e.readFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read ffmpeg output: %v", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("ffmpeg produced an empty output file")
	}
	return data, nil
}

// newWorkspace creates a private uuid-named staging directory for one job.
func (e *Engine) newWorkspace() (string, error) {
	dir := filepath.Join(e.workDir, "job-"+e.newID())
	if err := e.mkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func (e *Engine) discardWorkspace(dir string) {
	if err := e.removeAll(dir); err != nil && e.logger != nil {
		e.logger.Warn("discard job workspace", slog.String("dir", dir), slog.String("error", err.Error()))
	}
}

// buildExtractArgs builds CLI args for mono 16k PCM WAV audio extraction.
func buildExtractArgs(inputPath, outputPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outputPath,
	}
}

// buildBurnInArgs builds CLI args for subtitle burn-in with audio passthrough.
func buildBurnInArgs(inputPath, subtitlePath, outputPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vf", subtitlesFilterArg(subtitlePath),
		"-c:a", "copy",
		outputPath,
	}
}

// subtitlesFilterArg escapes the subtitle path for the ffmpeg filter graph
// parser, which treats backslashes, colons, quotes, and brackets specially.
func subtitlesFilterArg(path string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`:`, `\:`,
		`'`, `\'`,
		`[`, `\[`,
		`]`, `\]`,
		`,`, `\,`,
		`;`, `\;`,
	)
	return "subtitles=" + replacer.Replace(path)
}

// assetExt returns the container extension of an asset, defaulting to .mp4.
func assetExt(asset domain.MediaAsset) string {
	ext := strings.ToLower(filepath.Ext(asset.Name))
	if ext == "" {
		return ".mp4"
	}
	return ext
}

// replaceExt swaps the extension of a file name.
func replaceExt(name, ext string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if strings.TrimSpace(base) == "" {
		base = "media"
	}
	return base + ext
}

// subtitledName builds the output video name from the input name.
func subtitledName(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(filepath.Base(name), ext)
	if strings.TrimSpace(base) == "" {
		base = "video"
	}
	if ext == "" {
		ext = ".mp4"
	}
	return base + ".subtitled" + ext
}

// ffmpegBinaryName returns the platform binary file name.
func ffmpegBinaryName() string {
	if goruntime.GOOS == "windows" {
		return "ffmpeg.exe"
	}
	return "ffmpeg"
}

// NewForTests constructs an engine with injectable dependencies.
func NewForTests(
	ffmpegPath string,
	workDir string,
	runner commandRunner,
	lookPath func(string) (string, error),
	newID func() string,
) *Engine {
	return &Engine{
		ffmpegPath: strings.TrimSpace(ffmpegPath),
		workDir:    workDir,
		runner:     runner,
		lookPath:   lookPath,
		stat:       os.Stat,
		mkdirAll:   os.MkdirAll,
		removeAll:  os.RemoveAll,
		readFile:   os.ReadFile,
		writeFile:  os.WriteFile,
		newID:      newID,
	}
}
