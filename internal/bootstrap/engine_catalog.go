package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"

	"subtitle-burner/internal/config"
	"subtitle-burner/internal/domain"
)

// engineBuildCatalog pins known-good static ffmpeg builds. Linux has no
// entries; static Linux archives ship as tar.xz, so Linux installs go
// through the package-manager path instead.
var engineBuildCatalog = []domain.EngineBuildOption{
	{
		ID:          "win64-gpl-7.1",
		Name:        "FFmpeg 7.1 (Windows x64)",
		OS:          "windows",
		FileName:    "ffmpeg-n7.1-latest-win64-gpl-7.1.zip",
		URL:         "https://github.com/BtbN/FFmpeg-Builds/releases/download/latest/ffmpeg-n7.1-latest-win64-gpl-7.1.zip",
		SizeLabel:   "~170 MB",
		Description: "Static GPL build with ffmpeg and ffprobe.",
	},
	{
		ID:          "win64-gpl-6.1",
		Name:        "FFmpeg 6.1 (Windows x64)",
		OS:          "windows",
		FileName:    "ffmpeg-n6.1-latest-win64-gpl-6.1.zip",
		URL:         "https://github.com/BtbN/FFmpeg-Builds/releases/download/latest/ffmpeg-n6.1-latest-win64-gpl-6.1.zip",
		SizeLabel:   "~160 MB",
		Description: "Previous stable line for older systems.",
	},
	{
		ID:          "macos-7.1",
		Name:        "FFmpeg 7.1 (macOS)",
		OS:          "darwin",
		FileName:    "ffmpeg-7.1.zip",
		URL:         "https://evermeet.cx/ffmpeg/ffmpeg-7.1.zip",
		SizeLabel:   "~28 MB",
		Description: "Static ffmpeg binary; install ffprobe separately with brew when needed.",
	},
}

// GetEngineBuilds returns pinned ffmpeg build presets for the current OS,
// marking the ones already installed into the local bin directory.
func (a *App) GetEngineBuilds() []domain.EngineBuildOption {
	builds := make([]domain.EngineBuildOption, 0, len(engineBuildCatalog))
	for _, build := range engineBuildCatalog {
		if build.OS == goruntime.GOOS {
			builds = append(builds, build)
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return builds
	}
	markInstalledBuilds(builds, localToolsDir(homeDir), localBinDir(homeDir))
	return builds
}

// DownloadEngineBuild fetches the selected build, installs its binaries
// into the local bin directory, and points settings.FFmpegPath at it.
func (a *App) DownloadEngineBuild(buildID string) (domain.Settings, error) {
	id := strings.TrimSpace(buildID)
	if id == "" {
		return domain.Settings{}, fmt.Errorf("engine build id is required")
	}

	build, found := getEngineBuildByID(id)
	if !found {
		return domain.Settings{}, fmt.Errorf("unknown engine build id: %s", id)
	}
	if build.OS != goruntime.GOOS {
		return domain.Settings{}, fmt.Errorf("engine build %s targets %s, not %s", build.ID, build.OS, goruntime.GOOS)
	}

	if a.Store == nil {
		return domain.Settings{}, fmt.Errorf("settings store is not configured")
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	settings = config.Normalize(settings)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("resolve user home: %w", err)
	}

	installDir := filepath.Join(localToolsDir(homeDir), "ffmpeg", build.ID)
	if err := os.MkdirAll(installDir, 0o755); err != nil {
		return domain.Settings{}, fmt.Errorf("create install directory: %w", err)
	}

	zipPath := filepath.Join(installDir, build.FileName)
	if err := downloadURLToFile(zipPath, build.URL, downloadToolTimeout); err != nil {
		return domain.Settings{}, fmt.Errorf("download engine build %s: %w", build.Name, err)
	}

	binaries, err := extractEngineArchive(zipPath, installDir)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("extract engine build %s: %w", build.Name, err)
	}

	if err := ensureLocalBinOnPATH(homeDir); err != nil {
		return domain.Settings{}, err
	}
	binDir := localBinDir(homeDir)
	ffmpegPath := ""
	for name, sourcePath := range binaries {
		installed := filepath.Join(binDir, name)
		if err := copyExecutable(sourcePath, installed); err != nil {
			return domain.Settings{}, fmt.Errorf("install %s into local bin: %w", name, err)
		}
		if name == "ffmpeg" || name == "ffmpeg.exe" {
			ffmpegPath = installed
		}
	}
	if ffmpegPath == "" {
		return domain.Settings{}, fmt.Errorf("engine build %s did not contain an ffmpeg binary", build.Name)
	}

	settings.FFmpegPath = ffmpegPath
	if err := a.Store.Save(settings); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.refreshDiagnosticsFromSettings(settings)
	return settings, nil
}

func getEngineBuildByID(id string) (domain.EngineBuildOption, bool) {
	for _, build := range engineBuildCatalog {
		if build.ID == id {
			return build, true
		}
	}
	return domain.EngineBuildOption{}, false
}

// markInstalledBuilds flags builds whose extraction directory exists and
// whose ffmpeg binary has been copied into the local bin directory.
func markInstalledBuilds(builds []domain.EngineBuildOption, toolsDir, binDir string) {
	binaryName := "ffmpeg"
	if goruntime.GOOS == "windows" {
		binaryName = "ffmpeg.exe"
	}

	installedBinary := filepath.Join(binDir, binaryName)
	binaryInfo, binaryErr := os.Stat(installedBinary)
	binaryPresent := binaryErr == nil && !binaryInfo.IsDir()

	for i := range builds {
		installDir := filepath.Join(toolsDir, "ffmpeg", builds[i].ID)
		info, err := os.Stat(installDir)
		if err != nil || !info.IsDir() {
			continue
		}
		if !binaryPresent {
			continue
		}
		builds[i].Downloaded = true
		builds[i].LocalPath = installedBinary
	}
}
