package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"subtitle-burner/internal/config"
	"subtitle-burner/internal/diagnostics"
	"subtitle-burner/internal/domain"
	"subtitle-burner/internal/engine"
	"subtitle-burner/internal/jobs"
	"subtitle-burner/internal/pipeline"
	"subtitle-burner/internal/publish"
	"subtitle-burner/internal/transcription"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

var videoDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Video files",
		Pattern:     "*.mp4;*.mov;*.mkv;*.avi;*.webm",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// App wires configuration, jobs, pipeline, publishing, and UI runtime
// callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Jobs        *jobs.Manager
	Pipeline    pipelineRunner
	Diagnostics domain.DiagnosticReport

	assets    fs.FS
	checker   *diagnostics.Checker
	publisher *publish.Publisher
	logger    *slog.Logger
	lock      *flock.Flock

	buildPipeline func(domain.Settings) pipelineRunner

	mu         sync.Mutex
	events     *jobs.EventBus
	runtimeCtx context.Context
}

// pipelineRunner isolates the subtitle pipeline behind an interface.
type pipelineRunner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// New builds the application with persisted settings and startup diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded
// frontend assets. Only one instance may run at a time; the second one
// fails here instead of fighting over the work directory.
func NewWithAssets(assets fs.FS) (*App, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user home: %w", err)
	}
	if err := ensureLocalBinOnPATH(homeDir); err != nil {
		return nil, fmt.Errorf("prepare local tool path: %w", err)
	}

	appDir := filepath.Join(homeDir, ".subtitle-burner")
	if err := os.MkdirAll(appDir, 0o755); err != nil {
		return nil, fmt.Errorf("create app directory: %w", err)
	}

	lock := flock.New(filepath.Join(appDir, "app.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another instance is already running")
	}

	store := config.NewTOMLStore(filepath.Join(appDir, "settings.toml"))
	settings, err := store.Load()
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("load settings: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	checker := diagnostics.NewChecker()

	app := &App{
		Settings:    settings,
		Store:       store,
		Jobs:        jobs.NewManager(),
		Diagnostics: checker.Run(settings),
		assets:      assets,
		checker:     checker,
		publisher:   publish.New(logger),
		logger:      logger,
		lock:        lock,
		events:      jobs.NewEventBus(1000),
	}
	app.buildPipeline = func(cfg domain.Settings) pipelineRunner {
		eng := engine.New(cfg.FFmpegPath, cfg.WorkDir, []string{localBinDir(homeDir)}, logger)
		client := transcription.NewClient(cfg.Endpoint, transcription.WithLogger(logger))
		return pipeline.New(eng, client, logger)
	}
	app.Pipeline = app.buildPipeline(settings)

	return app, nil
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Subtitle Burner",
		Width:       1180,
		Height:      780,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.mu.Lock()
			a.runtimeCtx = nil
			a.mu.Unlock()
			if a.lock != nil {
				_ = a.lock.Unlock()
			}
		},
		Bind: []interface{}{a},
	})
}

// Startup stores Wails runtime context for push events.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Diagnostics
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, rebuilds the pipeline
// around the new endpoint and binary path, then refreshes diagnostics.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := config.Normalize(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = normalized
	if a.buildPipeline != nil {
		a.Pipeline = a.buildPipeline(normalized)
	}
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(normalized)
	}
	a.mu.Unlock()

	return normalized, nil
}

// PickInputFile opens a native file dialog for video selection.
func (a *App) PickInputFile() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select video file",
		Filters: videoDialogFilter,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// PickOutputDirectory opens a native directory picker for subtitled exports.
func (a *App) PickOutputDirectory() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: "Select output directory",
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// OpenOutputFolder opens the given path (or configured output dir) in the
// file manager.
func (a *App) OpenOutputFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		a.mu.Lock()
		target = a.Settings.OutputDir
		a.mu.Unlock()
	}
	if target == "" {
		return fmt.Errorf("output path is empty")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	openPath := target
	if !info.IsDir() {
		openPath = filepath.Dir(target)
	}

	return openInFileManager(openPath)
}

// RefreshDiagnostics reloads settings and reruns dependency checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.Diagnostics = a.checker.Run(settings)
	report := a.Diagnostics
	a.mu.Unlock()

	return report, nil
}

// SubmitVideo creates a job for the chosen video and runs it
// asynchronously. A second submission while a job is in flight is
// rejected; there is no cancellation, the job runs to a terminal state.
func (a *App) SubmitVideo(inputPath string) (domain.Job, error) {
	inputPath = strings.TrimSpace(inputPath)
	if inputPath == "" {
		return domain.Job{}, fmt.Errorf("no video selected")
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.Job{}, fmt.Errorf("load settings: %w", err)
	}

	jobID := "job-" + uuid.NewString()
	if err := a.Jobs.Start(jobID, inputPath); err != nil {
		return domain.Job{}, err
	}

	a.mu.Lock()
	a.Settings = settings
	runner := a.Pipeline
	a.mu.Unlock()

	a.publishStatus(jobID, domain.JobStatusExtractingAudio, "Job started")
	go a.runJob(context.Background(), runner, jobID, inputPath, settings)

	return a.Jobs.Current(), nil
}

// CurrentJob returns current job metadata and status.
func (a *App) CurrentJob() domain.Job {
	return a.Jobs.Current()
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// ListResults returns all published results still available for download.
func (a *App) ListResults() []publish.Ref {
	return a.publisher.List()
}

// ResolveResult returns the published file behind a result reference.
func (a *App) ResolveResult(refID string) (publish.Ref, error) {
	return a.publisher.Resolve(refID)
}

// RevokeResult invalidates a result reference and removes its file.
func (a *App) RevokeResult(refID string) error {
	return a.publisher.Revoke(refID)
}

// runJob executes the pipeline and maps outcomes to job state and events.
// The runner is the pipeline snapshot taken at submit time, so settings
// saved mid-job never swap collaborators under a running job.
func (a *App) runJob(ctx context.Context, runner pipelineRunner, jobID, inputPath string, settings domain.Settings) {
	req := pipeline.Request{
		InputPath:        inputPath,
		SampleRateHint:   settings.SampleRate,
		OutputFolderHint: settings.RemoteFolder,
		OnStage: func(stage pipeline.Stage) {
			status, ok := mapStageToStatus(stage)
			if !ok {
				return
			}
			if err := a.Jobs.Transition(status); err == nil {
				a.publishEvent(jobs.Event{
					JobID:   jobID,
					Type:    jobs.EventTypeStatus,
					Status:  status,
					Stage:   string(stage),
					Message: "Entered " + string(stage) + " stage",
				})
			}
		},
		OnLog: func(log engine.CommandLog) {
			a.publishEvent(jobs.Event{
				JobID:    jobID,
				Type:     jobs.EventTypeLog,
				Message:  "Command completed",
				Command:  log.Command,
				Args:     log.Args,
				ExitCode: log.ExitCode,
				Stdout:   log.Stdout,
				Stderr:   log.Stderr,
			})
		},
	}

	result, err := runner.Run(ctx, req)
	if err != nil {
		a.failJob(jobID, err)
		return
	}

	ref, err := a.publisher.Publish(result.Asset, settings.OutputDir)
	if err != nil {
		a.failJob(jobID, &pipeline.StageError{
			Stage:   pipeline.StageMuxingSubtitles,
			Message: "publish subtitled video",
			Err:     err,
		})
		return
	}

	if err := a.Jobs.Complete(ref.ID, ref.Path); err != nil {
		a.logger.Error("complete job", "job", jobID, "error", err)
		return
	}

	a.publishStatus(jobID, domain.JobStatusReady, "Subtitled video ready")
	a.publishEvent(jobs.Event{
		JobID:      jobID,
		Type:       jobs.EventTypeResult,
		Status:     domain.JobStatusReady,
		Message:    "Subtitled video exported",
		ResultRef:  ref.ID,
		ResultPath: ref.Path,
	})
}

// failJob records the terminal failed state tagged with the stage that
// broke and pushes the failure detail to subscribers.
func (a *App) failJob(jobID string, err error) {
	stage := pipeline.StageExtractingAudio
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		stage = stageErr.Stage
	}

	_ = a.Jobs.Fail(string(stage), err)
	a.publishEvent(jobs.Event{
		JobID:   jobID,
		Type:    jobs.EventTypeError,
		Status:  domain.JobStatusFailed,
		Stage:   string(stage),
		Message: err.Error(),
	})

	if stageErr != nil && stageErr.CommandLog.Command != "" {
		a.publishEvent(jobs.Event{
			JobID:    jobID,
			Type:     jobs.EventTypeLog,
			Message:  "Failed command",
			Command:  stageErr.CommandLog.Command,
			Args:     stageErr.CommandLog.Args,
			ExitCode: stageErr.CommandLog.ExitCode,
			Stdout:   stageErr.CommandLog.Stdout,
			Stderr:   stageErr.CommandLog.Stderr,
		})
	}
}

// publishStatus sends a normalized status event.
func (a *App) publishStatus(jobID string, status domain.JobStatus, message string) {
	a.publishEvent(jobs.Event{
		JobID:   jobID,
		Type:    jobs.EventTypeStatus,
		Status:  status,
		Message: message,
	})
}

// publishEvent stores event history and emits runtime push notifications.
func (a *App) publishEvent(event jobs.Event) {
	published := a.events.Publish(event)

	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "job:event", published)
	}
}

// mapStageToStatus maps pipeline stages to job statuses.
func mapStageToStatus(stage pipeline.Stage) (domain.JobStatus, bool) {
	switch stage {
	case pipeline.StageExtractingAudio:
		return domain.JobStatusExtractingAudio, true
	case pipeline.StageAwaitingTranscription:
		return domain.JobStatusAwaitingTranscription, true
	case pipeline.StageMuxingSubtitles:
		return domain.JobStatusMuxingSubtitles, true
	default:
		return "", false
	}
}

// runtimeContext returns current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// openInFileManager launches the platform file explorer for the provided path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}

// NewForTests creates an app with injected collaborators and no instance
// lock or filesystem setup.
func NewForTests(store config.Store, runner pipelineRunner, checker *diagnostics.Checker, publisher *publish.Publisher) (*App, error) {
	settings, err := store.Load()
	if err != nil {
		return nil, err
	}
	if publisher == nil {
		publisher = publish.New(nil)
	}

	app := &App{
		Settings:  settings,
		Store:     store,
		Jobs:      jobs.NewManager(),
		Pipeline:  runner,
		checker:   checker,
		publisher: publisher,
		logger:    slog.New(slog.NewTextHandler(os.Stderr, nil)),
		events:    jobs.NewEventBus(100),
	}
	if checker != nil {
		app.Diagnostics = checker.Run(settings)
	}
	return app, nil
}
