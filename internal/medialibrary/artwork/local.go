package artwork

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"
	"github.com/narwhalmedia/medialibrary/pkg/interfaces"
)

// LocalStore keeps artwork as files in a directory.
type LocalStore struct {
	basePath string
	logger   interfaces.Logger
}

// NewLocalStore creates the directory if needed.
func NewLocalStore(basePath string, logger interfaces.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artwork directory: %w", err)
	}
	return &LocalStore{basePath: basePath, logger: logger}, nil
}

func (s *LocalStore) Save(ctx context.Context, key string, art *domain.Artwork) error {
	if !ValidKey(key) {
		return fmt.Errorf("invalid artwork key %q", key)
	}
	path := filepath.Join(s.basePath, key)

	// write then rename so readers never see a partial file
	tmp, err := os.CreateTemp(s.basePath, ".artwork-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(tmp, bytes.NewReader(art.Data)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to store artwork: %w", err)
	}

	s.logger.Debug("Artwork stored", interfaces.String("key", key))
	return nil
}

func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if !ValidKey(key) {
		return nil, ErrNotFound
	}
	file, err := os.Open(filepath.Join(s.basePath, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.basePath, key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
