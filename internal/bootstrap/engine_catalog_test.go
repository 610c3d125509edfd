package bootstrap

import (
	goruntime "runtime"
	"testing"
)

// TestGetEngineBuildByID verifies known build lookup.
func TestGetEngineBuildByID(t *testing.T) {
	build, found := getEngineBuildByID("win64-gpl-7.1")
	if !found {
		t.Fatal("expected win64-gpl-7.1 build to exist")
	}
	if build.OS != "windows" {
		t.Fatalf("os = %s, want windows", build.OS)
	}
	if build.FileName == "" || build.URL == "" {
		t.Fatalf("incomplete build entry: %+v", build)
	}

	if _, found := getEngineBuildByID("nope"); found {
		t.Fatal("expected unknown id to miss")
	}
}

// TestEngineBuildCatalogEntriesAreComplete guards the pinned preset list.
func TestEngineBuildCatalogEntriesAreComplete(t *testing.T) {
	seen := map[string]bool{}
	for _, build := range engineBuildCatalog {
		if build.ID == "" || build.Name == "" || build.OS == "" || build.FileName == "" || build.URL == "" {
			t.Fatalf("incomplete catalog entry: %+v", build)
		}
		if seen[build.ID] {
			t.Fatalf("duplicate build id: %s", build.ID)
		}
		seen[build.ID] = true
		if build.OS == "linux" {
			t.Fatalf("linux entry %s in catalog; linux installs use package managers", build.ID)
		}
	}
}

// TestGetEngineBuildsFiltersByCurrentOS checks OS filtering.
func TestGetEngineBuildsFiltersByCurrentOS(t *testing.T) {
	for _, build := range (&App{}).GetEngineBuilds() {
		if build.OS != goruntime.GOOS {
			t.Fatalf("build %s targets %s on %s", build.ID, build.OS, goruntime.GOOS)
		}
	}
}

// TestDownloadEngineBuildRejectsUnknownID checks input validation.
func TestDownloadEngineBuildRejectsUnknownID(t *testing.T) {
	app := &App{}
	if _, err := app.DownloadEngineBuild(""); err == nil {
		t.Fatal("expected error for empty build id")
	}
	if _, err := app.DownloadEngineBuild("nope"); err == nil {
		t.Fatal("expected error for unknown build id")
	}
}
