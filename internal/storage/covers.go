// Package storage persists uploaded cover images on the local filesystem.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gamedb-api/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CoversDir is the sub-directory of the upload root holding covers
const CoversDir = "covers"

// LocalCoverStore writes covers under <root>/covers
type LocalCoverStore struct {
	root string
	log  zerolog.Logger
}

// NewLocalCoverStore creates a store rooted at dir
func NewLocalCoverStore(dir string, log zerolog.Logger) *LocalCoverStore {
	return &LocalCoverStore{
		root: dir,
		log:  log.With().Str("component", "covers").Logger(),
	}
}

// Root returns the upload root directory
func (s *LocalCoverStore) Root() string {
	return s.root
}

// Save writes the upload and returns its path relative to the root
func (s *LocalCoverStore) Save(ctx context.Context, upload *models.CoverUpload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Join(s.root, CoversDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cover directory: %w", err)
	}

	name := uuid.New().String() + coverExt(upload.Filename)
	if err := os.WriteFile(filepath.Join(dir, name), upload.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write cover: %w", err)
	}

	rel := CoversDir + "/" + name
	s.log.Debug().Str("cover", rel).Int64("size_bytes", upload.Size).Msg("Cover stored")
	return rel, nil
}

// Remove deletes a stored cover. Missing files are ignored.
func (s *LocalCoverStore) Remove(ctx context.Context, rel string) error {
	if rel == "" {
		return nil
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return fmt.Errorf("cover path %q escapes upload root", rel)
	}

	err := os.Remove(filepath.Join(s.root, clean))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove cover: %w", err)
	}
	return nil
}

func coverExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp":
		return ext
	default:
		return ".img"
	}
}
