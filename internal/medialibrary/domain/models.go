package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// MediaType is the kind of a media item.
type MediaType int

const (
	MediaTypeUnknown  MediaType = -1 // never persisted
	MediaTypeVideo    MediaType = 0
	MediaTypeAudio    MediaType = 1
	MediaTypeGroup    MediaType = 2
	MediaTypeDir      MediaType = 3
	MediaTypeSubtitle MediaType = 4
	MediaTypePlaylist MediaType = 5
)

func (t MediaType) String() string {
	switch t {
	case MediaTypeVideo:
		return "video"
	case MediaTypeAudio:
		return "audio"
	case MediaTypeGroup:
		return "group"
	case MediaTypeDir:
		return "directory"
	case MediaTypeSubtitle:
		return "subtitle"
	case MediaTypePlaylist:
		return "playlist"
	default:
		return "unknown"
	}
}

// ParseMediaType is the inverse of MediaType.String.
func ParseMediaType(s string) MediaType {
	for t := MediaTypeVideo; t <= MediaTypePlaylist; t++ {
		if t.String() == s {
			return t
		}
	}
	return MediaTypeUnknown
}

// User flags stored on a media.
const (
	FlagVideo      = 0x1
	FlagNoHWAccel  = 0x2
	FlagPaused     = 0x4
	FlagForceAudio = 0x8
)

// TrackUnset marks an audio or subtitle track selection that was never made.
const TrackUnset = -2

// MediaKind is a bitmask selecting which media an added/updated observer receives.
type MediaKind int

const (
	KindAudio MediaKind = 1 << iota
	KindVideo

	KindAll = KindAudio | KindVideo
)

// Media represents a media item.
type Media struct {
	ID         int64 // 0 until persisted
	URI        string
	Path       string
	Folder     string
	EntryPoint string
	Type       MediaType

	Title        string
	DisplayTitle string // transient override, never persisted
	Duration     int64  // milliseconds
	Time         int64  // last playback position, milliseconds
	Track        int
	Disc         int
	Width        int
	Height       int
	Year         int
	LastModified int64 // unix seconds
	ArtworkURL   string

	Flags        int
	PlayCount    int
	LastPlayedAt *time.Time
	AudioTrack   int
	SpuTrack     int

	Artist      string
	AlbumArtist string
	AlbumTitle  string
	AlbumID     int64
	ArtistID    int64 // reference artist
	Genres      []string

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// NewMedia returns an unpersisted media for the file at path.
func NewMedia(path, entryPoint string, lastModified int64) *Media {
	return &Media{
		URI:          FileURI(path),
		Path:         path,
		Folder:       filepath.Dir(path),
		EntryPoint:   entryPoint,
		Type:         MediaTypeUnknown,
		LastModified: lastModified,
		AudioTrack:   TrackUnset,
		SpuTrack:     TrackUnset,
	}
}

// GetTitle resolves the title shown to users: display override, then the parsed
// title, then the file name without its extension.
func (m *Media) GetTitle() string {
	if m.DisplayTitle != "" {
		return m.DisplayTitle
	}
	if m.Title != "" {
		return m.Title
	}
	return FileTitle(m.Path)
}

// ReferenceArtist is the album artist when present, the track artist otherwise.
func (m *Media) ReferenceArtist() string {
	if m.AlbumArtist != "" {
		return m.AlbumArtist
	}
	return m.Artist
}

// Description is "album - artist" for audio.
func (m *Media) Description() string {
	artist := m.ReferenceArtist()
	switch {
	case m.AlbumTitle != "" && artist != "":
		return m.AlbumTitle + " - " + artist
	case m.AlbumTitle != "":
		return m.AlbumTitle
	default:
		return artist
	}
}

func (m *Media) AddFlags(flags int)    { m.Flags |= flags }
func (m *Media) RemoveFlags(flags int) { m.Flags &^= flags }
func (m *Media) HasFlag(flag int) bool { return m.Flags&flag != 0 }

// Kind maps the media type onto the observer bitmask.
func (m *Media) Kind() MediaKind {
	switch m.Type {
	case MediaTypeAudio:
		return KindAudio
	case MediaTypeVideo:
		return KindVideo
	default:
		return 0
	}
}

// IsDeleted reports whether the media was soft-deleted.
func (m *Media) IsDeleted() bool {
	return m.DeletedAt != nil
}

// ApplyMetadata copies extracted tags onto the media. Playback state is untouched.
func (m *Media) ApplyMetadata(md *Metadata, mediaType MediaType) {
	m.Type = mediaType
	m.Title = md.Title
	m.Artist = md.Artist
	m.AlbumArtist = md.AlbumArtist
	m.AlbumTitle = md.Album
	m.Duration = md.Duration
	m.Track = md.Track
	m.Disc = md.Disc
	m.Width = md.Width
	m.Height = md.Height
	m.Year = md.Year
	m.Genres = nil
	if md.Genre != "" {
		m.Genres = []string{NormalizeGenre(md.Genre)}
	}
}

// Album represents an album.
type Album struct {
	ID         int64
	Title      string
	Year       int
	ArtworkURL string
	ArtistID   int64 // 0 when the album has no reference artist
	ArtistName string
	NbTracks   int
	Duration   int64
	Tracks     []*Media // ordered by disc, then track
}

// Artist represents an artist.
type Artist struct {
	ID         int64
	Name       string
	ArtworkURL string
	NbAlbums   int
	NbTracks   int
}

// Genre represents a genre.
type Genre struct {
	ID       int64
	Name     string
	NbTracks int
}

// EntryPoint represents a discovery root.
type EntryPoint struct {
	ID               int64
	Path             string
	CreatedAt        time.Time
	LastDiscoveredAt *time.Time
}

// BannedFolder represents a folder excluded from discovery.
type BannedFolder struct {
	ID        int64
	Path      string
	CreatedAt time.Time
}

// FileTitle returns the file name of path without its extension.
func FileTitle(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// NormalizeGenre upper-cases the first character and lower-cases the rest.
// Names of a single character are left alone.
func NormalizeGenre(name string) string {
	name = strings.TrimSpace(name)
	runes := []rune(name)
	if len(runes) <= 1 {
		return name
	}
	return strings.ToUpper(string(runes[0])) + strings.ToLower(string(runes[1:]))
}

// NormalizeName is the deduplication key for artists and albums.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
