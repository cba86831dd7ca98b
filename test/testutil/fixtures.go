package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"
)

// Track builds an unsaved audio media with album metadata applied.
func Track(path, entryPoint, album, albumArtist string, disc, track int) *domain.Media {
	m := domain.NewMedia(path, entryPoint, 100)
	m.ApplyMetadata(&domain.Metadata{
		Title:       domain.FileTitle(path),
		Album:       album,
		AlbumArtist: albumArtist,
		Artist:      albumArtist,
		Genre:       "Rock",
		Disc:        disc,
		Track:       track,
		Duration:    1000,
	}, domain.MediaTypeAudio)
	return m
}

// WriteFile creates path under root with content and the given mtime.
func WriteFile(t *testing.T, root, rel, content string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create folder: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("Failed to set mtime: %v", err)
	}
	return path
}
