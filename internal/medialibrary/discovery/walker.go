package discovery

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"
	"github.com/narwhalmedia/medialibrary/pkg/interfaces"
)

// Candidate is a file found by the walker.
type Candidate struct {
	Path         string
	LastModified int64
}

// WalkResult is what one traversal found.
type WalkResult struct {
	Candidates []Candidate
	// Unreadable lists the directories that could not be listed. Media
	// below them must not be treated as missing.
	Unreadable []string
}

// Walker enumerates media candidates below a folder.
type Walker struct {
	recursiveBans bool
	skipHidden    bool
	logger        interfaces.Logger
}

// NewWalker creates a walker. With recursiveBans a banned folder excludes its
// whole subtree, otherwise only the files directly inside it.
func NewWalker(recursiveBans, skipHidden bool, logger interfaces.Logger) *Walker {
	return &Walker{
		recursiveBans: recursiveBans,
		skipHidden:    skipHidden,
		logger:        logger,
	}
}

// Walk traverses root depth first in lexical order. onFolder is called for
// every folder entered. A missing root yields domain.ErrEntryPointMissing.
func (w *Walker) Walk(ctx context.Context, root string, bans []string, onFolder func(folder string)) (*WalkResult, error) {
	if err := CheckRoot(root); err != nil {
		return nil, err
	}

	result := &WalkResult{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			w.logger.Warn("Skipping unreadable path",
				interfaces.String("path", path),
				interfaces.Error(err))
			if d == nil || d.IsDir() {
				result.Unreadable = append(result.Unreadable, path)
				return filepath.SkipDir
			}
			return nil
		}

		if path != root && w.skipHidden && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if w.recursiveBans && isBanned(path, bans, true) {
				w.logger.Debug("Skipping banned folder", interfaces.String("path", path))
				return filepath.SkipDir
			}
			onFolder(path)
			return nil
		}

		if !d.Type().IsRegular() || !domain.IsCandidate(path) {
			return nil
		}
		if !w.recursiveBans && isBanned(filepath.Dir(path), bans, false) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			w.logger.Warn("Skipping unreadable file",
				interfaces.String("path", path),
				interfaces.Error(err))
			return nil
		}
		result.Candidates = append(result.Candidates, Candidate{
			Path:         path,
			LastModified: fi.ModTime().Unix(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CheckRoot reports domain.ErrEntryPointMissing unless root is a directory.
func CheckRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ErrEntryPointMissing
		}
		return err
	}
	if !info.IsDir() {
		return domain.ErrEntryPointMissing
	}
	return nil
}

func isBanned(folder string, bans []string, recursive bool) bool {
	for _, ban := range bans {
		if recursive && domain.IsUnder(folder, ban) {
			return true
		}
		if !recursive && folder == ban {
			return true
		}
	}
	return false
}
