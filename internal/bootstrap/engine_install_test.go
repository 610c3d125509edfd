package bootstrap

import (
	"archive/zip"
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"subtitle-burner/internal/domain"
)

// TestEnsureDirSettingCreatesDirectory ensures the fix creates missing
// directories without rewriting an explicitly configured path.
func TestEnsureDirSettingCreatesDirectory(t *testing.T) {
	root := t.TempDir()
	outputDir := filepath.Join(root, "nested", "subtitled")

	settings := domain.Settings{OutputDir: outputDir}
	fixed, changed, err := ensureDirSetting(settings, "output")
	if err != nil {
		t.Fatalf("fix output dir: %v", err)
	}
	if changed {
		t.Fatal("expected settings to remain unchanged")
	}
	if fixed.OutputDir != outputDir {
		t.Fatalf("OutputDir = %s, want %s", fixed.OutputDir, outputDir)
	}
	if _, err := os.Stat(outputDir); err != nil {
		t.Fatalf("stat output dir: %v", err)
	}
}

// TestEnsureDirSettingDefaultsBlankPath ensures a blank path picks the default.
func TestEnsureDirSettingDefaultsBlankPath(t *testing.T) {
	fixed, changed, err := ensureDirSetting(domain.Settings{}, "output")
	if err != nil {
		t.Fatalf("fix output dir: %v", err)
	}
	if !changed {
		t.Fatal("expected settings change for blank path")
	}
	if fixed.OutputDir == "" {
		t.Fatal("output dir not defaulted")
	}
}

// TestResetEndpointRestoresDefault checks the endpoint remediation.
func TestResetEndpointRestoresDefault(t *testing.T) {
	fixed, changed := resetEndpoint(domain.Settings{Endpoint: "not a url"})
	if !changed {
		t.Fatal("expected settings change")
	}
	if fixed.Endpoint != "http://127.0.0.1:4000/" {
		t.Fatalf("endpoint = %q", fixed.Endpoint)
	}

	if _, changed := resetEndpoint(fixed); changed {
		t.Fatal("expected no change for default endpoint")
	}
}

// TestSelectFFmpegWindowsAssetPrefersStaticGPLBuild validates asset matching.
func TestSelectFFmpegWindowsAssetPrefersStaticGPLBuild(t *testing.T) {
	release := githubRelease{
		TagName: "latest",
		Assets: []struct {
			Name string `json:"name"`
			URL  string `json:"browser_download_url"`
		}{
			{Name: "ffmpeg-master-latest-linux64-gpl.tar.xz", URL: "https://example.com/linux.tar.xz"},
			{Name: "ffmpeg-master-latest-win64-gpl-shared.zip", URL: "https://example.com/shared.zip"},
			{Name: "ffmpeg-master-latest-win64-gpl.zip", URL: "https://example.com/win64.zip"},
		},
	}

	url, name, err := selectFFmpegWindowsAsset(release)
	if err != nil {
		t.Fatalf("select asset: %v", err)
	}
	if url != "https://example.com/win64.zip" {
		t.Fatalf("url = %s, want static win64 asset", url)
	}
	if name != "ffmpeg-master-latest-win64-gpl.zip" {
		t.Fatalf("name = %s", name)
	}
}

// TestSelectFFmpegWindowsAssetRejectsReleaseWithoutMatch validates error path.
func TestSelectFFmpegWindowsAssetRejectsReleaseWithoutMatch(t *testing.T) {
	release := githubRelease{
		TagName: "latest",
		Assets: []struct {
			Name string `json:"name"`
			URL  string `json:"browser_download_url"`
		}{
			{Name: "ffmpeg-master-latest-linux64-gpl.tar.xz", URL: "https://example.com/linux.tar.xz"},
		},
	}

	if _, _, err := selectFFmpegWindowsAsset(release); err == nil {
		t.Fatal("expected error for release without windows zip")
	}
}

// TestIsWithinBaseDirRejectsTraversal validates archive path traversal guard.
func TestIsWithinBaseDirRejectsTraversal(t *testing.T) {
	base := filepath.Join("C:\\", "tmp", "root")
	target := filepath.Join(base, "..", "escape.txt")
	if isWithinBaseDir(base, target) {
		t.Fatal("expected traversal target to be rejected")
	}
}

// TestDownloadURLToFileReplacesAtomically checks the temp-rename download.
func TestDownloadURLToFileReplacesAtomically(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("payload"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "tools", "build.zip")
	if err := downloadURLToFile(dest, server.URL, 5*time.Second); err != nil {
		t.Fatalf("download: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("content = %q", data)
	}
	if _, err := os.Stat(dest + ".download"); !os.IsNotExist(err) {
		t.Fatal("temp download file left behind")
	}
}

// TestDownloadURLToFileRejectsNon200 checks HTTP failure handling.
func TestDownloadURLToFileRejectsNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "build.zip")
	if err := downloadURLToFile(dest, server.URL, 5*time.Second); err == nil {
		t.Fatal("expected error for 404 response")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatal("destination file created on failed download")
	}
}

// TestExtractEngineArchiveFindsBinaries checks binary discovery inside zips.
func TestExtractEngineArchiveFindsBinaries(t *testing.T) {
	root := t.TempDir()
	zipPath := filepath.Join(root, "ffmpeg.zip")
	writeTestZip(t, zipPath, map[string]string{
		"ffmpeg-build/bin/ffmpeg.exe":  "ffmpeg-binary",
		"ffmpeg-build/bin/ffprobe.exe": "ffprobe-binary",
		"ffmpeg-build/LICENSE.txt":     "license",
	})

	extractDir := filepath.Join(root, "extracted")
	binaries, err := extractEngineArchive(zipPath, extractDir)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(binaries) != 2 {
		t.Fatalf("binaries = %v, want ffmpeg.exe and ffprobe.exe", binaries)
	}
	for _, path := range binaries {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("extracted binary missing: %v", err)
		}
	}
}

// TestExtractEngineArchiveRejectsEmptyArchive checks the no-binary error.
func TestExtractEngineArchiveRejectsEmptyArchive(t *testing.T) {
	root := t.TempDir()
	zipPath := filepath.Join(root, "empty.zip")
	writeTestZip(t, zipPath, map[string]string{"README.md": "nothing here"})

	if _, err := extractEngineArchive(zipPath, filepath.Join(root, "out")); err == nil {
		t.Fatal("expected error for archive without ffmpeg binaries")
	}
}

// writeTestZip creates a zip archive with the given file contents.
func writeTestZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for name, content := range files {
		entry, err := writer.Create(name)
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		if _, err := entry.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write zip file: %v", err)
	}
}
