package domain

import (
	"context"
	"strings"
)

// TrackKind is the kind of an elementary stream found by the extractor.
type TrackKind int

const (
	TrackKindAudio TrackKind = iota
	TrackKindVideo
	TrackKindSubtitle
)

// ContainerKind describes what the extractor found at a path.
type ContainerKind int

const (
	ContainerFile ContainerKind = iota
	ContainerDirectory
	ContainerPlaylist
)

// Artwork is cover art embedded in a file.
type Artwork struct {
	Data     []byte
	MIMEType string
	Ext      string
}

// Metadata is what the extractor parsed out of a file.
type Metadata struct {
	Title       string
	Artist      string
	Album       string
	AlbumArtist string
	Genre       string
	Year        int
	Track       int
	Disc        int
	Duration    int64 // milliseconds
	Width       int
	Height      int
	Tracks      []TrackKind
	Container   ContainerKind
	Artwork     *Artwork
}

// Normalize trims every string field.
func (md *Metadata) Normalize() {
	md.Title = strings.TrimSpace(md.Title)
	md.Artist = strings.TrimSpace(md.Artist)
	md.Album = strings.TrimSpace(md.Album)
	md.AlbumArtist = strings.TrimSpace(md.AlbumArtist)
	md.Genre = strings.TrimSpace(md.Genre)
}

// HasTrack reports whether the extractor found a stream of the given kind.
func (md *Metadata) HasTrack(kind TrackKind) bool {
	for _, k := range md.Tracks {
		if k == kind {
			return true
		}
	}
	return false
}

// MetadataExtractor parses a file. It returns an error when the file is
// unreadable or unsupported.
type MetadataExtractor interface {
	Extract(ctx context.Context, path string) (*Metadata, error)
}
