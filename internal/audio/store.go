package audio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gita-knowledge-api/internal/models"
)

// DiskStore serves precomputed tracks laid out as <root>/<lang>/verse_<n>.mp3
type DiskStore struct {
	root string
}

// NewDiskStore creates a store rooted at dir
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{root: filepath.Clean(dir)}
}

// Root returns the store directory
func (s *DiskStore) Root() string {
	return s.root
}

// Path returns the file path for a verse track
func (s *DiskStore) Path(verse int, lang Language) string {
	return filepath.Join(s.root, string(lang), models.DocumentID(verse)+".mp3")
}

// Exists reports whether a track is present
func (s *DiskStore) Exists(verse int, lang Language) bool {
	info, err := os.Stat(s.Path(verse, lang))
	return err == nil && !info.IsDir()
}

// Resolve reads a track. A missing file yields models.ErrAudioNotFound; nothing is synthesized here.
func (s *DiskStore) Resolve(ctx context.Context, verse int, lang Language) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(verse, lang))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("verse %d (%s): %w", verse, lang, models.ErrAudioNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	return data, nil
}

// Save writes a track atomically
func (s *DiskStore) Save(ctx context.Context, verse int, lang Language, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Join(s.root, string(lang))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create audio dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".verse-*.mp3.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write audio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close audio: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path(verse, lang)); err != nil {
		return fmt.Errorf("rename audio: %w", err)
	}
	return nil
}
