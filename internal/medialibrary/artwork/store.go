package artwork

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"
)

// URLPrefix is the HTTP path artwork is served under.
const URLPrefix = "/api/artwork/"

// ErrNotFound is returned when no artwork is stored under a key.
var ErrNotFound = errors.New("artwork not found")

// Store persists embedded cover art. Save is idempotent per key.
type Store interface {
	Save(ctx context.Context, key string, art *domain.Artwork) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Key names the artwork of an album by hashing its artist and title, so
// every track of the album shares one file. Media without album tags fall
// back to their own path.
func Key(artist, album, fallback string, art *domain.Artwork) string {
	seed := artist + album
	if strings.TrimSpace(seed) == "" {
		seed = fallback
	}
	ext := strings.TrimPrefix(strings.ToLower(art.Ext), ".")
	if ext == "" {
		ext = extFromMIME(art.MIMEType)
	}
	return fmt.Sprintf("%x.%s", md5.Sum([]byte(seed)), ext)
}

// URL is the artwork reference stored on media and albums.
func URL(key string) string {
	return URLPrefix + key
}

// Put stores art unless the key already exists and returns its URL.
func Put(ctx context.Context, store Store, key string, art *domain.Artwork) (string, error) {
	exists, err := store.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !exists {
		if err := store.Save(ctx, key, art); err != nil {
			return "", err
		}
	}
	return URL(key), nil
}

// ValidKey rejects keys that could escape the store.
func ValidKey(key string) bool {
	return key != "" && !strings.ContainsAny(key, `/\`) && !strings.Contains(key, "..")
}

func extFromMIME(mime string) string {
	switch strings.ToLower(mime) {
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "jpg"
	}
}

// ContentType guesses the MIME type of a stored key.
func ContentType(key string) string {
	switch {
	case strings.HasSuffix(key, ".png"):
		return "image/png"
	case strings.HasSuffix(key, ".gif"):
		return "image/gif"
	case strings.HasSuffix(key, ".webp"):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
