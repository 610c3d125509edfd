// Package publish hands finished media to the user as revocable
// references backed by files in the configured output directory.
package publish

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"subtitle-burner/internal/domain"
)

// Ref describes one published result.
type Ref struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MIMEType  string    `json:"mimeType"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// ErrRefNotFound is returned when a reference was never issued or has
// already been revoked.
var ErrRefNotFound = fmt.Errorf("publish: reference not found")

// Publisher owns the mapping from opaque reference IDs to files on
// disk. References stay valid until revoked or until the process
// exits; nothing is persisted across restarts.
type Publisher struct {
	mu     sync.Mutex
	refs   map[string]Ref
	logger *slog.Logger

	newID     func() string
	mkdirAll  func(string, os.FileMode) error
	writeFile func(string, []byte, os.FileMode) error
	remove    func(string) error
	stat      func(string) (os.FileInfo, error)
	now       func() time.Time
}

// New builds a Publisher writing into real filesystem state.
func New(logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		refs:      make(map[string]Ref),
		logger:    logger,
		newID:     uuid.NewString,
		mkdirAll:  os.MkdirAll,
		writeFile: os.WriteFile,
		remove:    os.Remove,
		stat:      os.Stat,
		now:       time.Now,
	}
}

// NewForTests builds a Publisher with injected filesystem behavior.
func NewForTests(newID func() string, mkdirAll func(string, os.FileMode) error, writeFile func(string, []byte, os.FileMode) error, remove func(string) error, stat func(string) (os.FileInfo, error)) *Publisher {
	p := New(nil)
	if newID != nil {
		p.newID = newID
	}
	if mkdirAll != nil {
		p.mkdirAll = mkdirAll
	}
	if writeFile != nil {
		p.writeFile = writeFile
	}
	if remove != nil {
		p.remove = remove
	}
	if stat != nil {
		p.stat = stat
	}
	return p
}

// Publish writes the asset into outputDir and returns a reference for
// it. Existing files are never overwritten; a numeric suffix is added
// until a free name is found.
func (p *Publisher) Publish(asset domain.MediaAsset, outputDir string) (Ref, error) {
	if asset.Empty() {
		return Ref{}, fmt.Errorf("publish: nothing to publish")
	}
	if strings.TrimSpace(outputDir) == "" {
		return Ref{}, fmt.Errorf("publish: output directory is not configured")
	}
	if err := p.mkdirAll(outputDir, 0o755); err != nil {
		return Ref{}, fmt.Errorf("publish: create output directory: %w", err)
	}

	path, err := p.availablePath(outputDir, asset.Name)
	if err != nil {
		return Ref{}, fmt.Errorf("publish: resolve output name: %w", err)
	}
	if err := p.writeFile(path, asset.Bytes, 0o644); err != nil {
		return Ref{}, fmt.Errorf("publish: write %s: %w", filepath.Base(path), err)
	}

	ref := Ref{
		ID:        p.newID(),
		Name:      filepath.Base(path),
		MIMEType:  asset.MIMEType,
		Path:      path,
		Size:      int64(len(asset.Bytes)),
		CreatedAt: p.now(),
	}

	p.mu.Lock()
	p.refs[ref.ID] = ref
	p.mu.Unlock()

	p.logger.Info("result published", "ref", ref.ID, "path", ref.Path, "size", ref.Size)
	return ref, nil
}

// Resolve returns the reference for id if it is still live.
func (p *Publisher) Resolve(id string) (Ref, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ref, ok := p.refs[id]
	if !ok {
		return Ref{}, ErrRefNotFound
	}
	return ref, nil
}

// Revoke forgets the reference and removes its backing file. Revoking
// an unknown or already revoked id is an error; a missing backing file
// is not.
func (p *Publisher) Revoke(id string) error {
	p.mu.Lock()
	ref, ok := p.refs[id]
	if ok {
		delete(p.refs, id)
	}
	p.mu.Unlock()

	if !ok {
		return ErrRefNotFound
	}
	if err := p.remove(ref.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("publish: remove %s: %w", ref.Name, err)
	}
	p.logger.Info("result revoked", "ref", id, "path", ref.Path)
	return nil
}

// List returns all live references, newest first.
func (p *Publisher) List() []Ref {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Ref, 0, len(p.refs))
	for _, ref := range p.refs {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// availablePath finds a path in dir that no existing file occupies. Stat
// failures other than "does not exist" abort the search instead of cycling
// through candidates forever.
func (p *Publisher) availablePath(dir, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		name = "output.mp4"
	}
	candidate := filepath.Join(dir, name)
	free, err := p.pathFree(candidate)
	if err != nil {
		return "", err
	}
	if free {
		return candidate, nil
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 2; ; i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", base, i, ext))
		free, err := p.pathFree(candidate)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
	}
}

// pathFree reports whether no file occupies path.
func (p *Publisher) pathFree(path string) (bool, error) {
	_, err := p.stat(path)
	if err == nil {
		return false, nil
	}
	if os.IsNotExist(err) {
		return true, nil
	}
	return false, err
}
