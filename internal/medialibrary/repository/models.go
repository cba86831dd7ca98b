package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"
)

// Media represents a media file in the database.
type Media struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	URI          string `gorm:"uniqueIndex;not null"`
	Path         string `gorm:"not null;index"`
	Folder       string `gorm:"not null;index"`
	EntryPoint   string `gorm:"not null;index"`
	Type         int    `gorm:"not null;index"`
	Title        string
	Duration     int64
	Progress     int64 // last playback position, milliseconds
	Track        int
	Disc         int
	Width        int
	Height       int
	Year         int
	LastModified int64
	ArtworkURL   string

	// Playback bookkeeping
	Flags        int
	PlayCount    int
	LastPlayedAt *time.Time `gorm:"index"`
	AudioTrack   int
	SpuTrack     int

	// Tags as parsed, kept for soft-deleted rows
	TrackArtist string
	AlbumArtist string
	AlbumTitle  string

	AlbumID  *int64 `gorm:"index"`
	ArtistID *int64 `gorm:"index"` // reference artist

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	// Relationships
	Album  *Album  `gorm:"foreignKey:AlbumID"`
	Artist *Artist `gorm:"foreignKey:ArtistID"`
	Genres []Genre `gorm:"many2many:media_genres;"`
}

func (Media) TableName() string { return "media" }

// Album is deduplicated by normalized title within its reference artist.
type Album struct {
	ID              int64  `gorm:"primaryKey;autoIncrement"`
	Title           string `gorm:"not null"`
	NormalizedTitle string `gorm:"not null;index"`
	ArtistID        *int64 `gorm:"index"`
	Year            int
	ArtworkURL      string
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Artist *Artist `gorm:"foreignKey:ArtistID"`
}

func (Album) TableName() string { return "albums" }

// Artist is deduplicated by normalized name.
type Artist struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	Name           string `gorm:"not null"`
	NormalizedName string `gorm:"uniqueIndex;not null"`
	ArtworkURL     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Artist) TableName() string { return "artists" }

// Genre names are stored normalized.
type Genre struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
}

func (Genre) TableName() string { return "genres" }

// EntryPoint is a registered discovery root.
type EntryPoint struct {
	ID               int64  `gorm:"primaryKey;autoIncrement"`
	Path             string `gorm:"uniqueIndex;not null"`
	LastDiscoveredAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (EntryPoint) TableName() string { return "entry_points" }

// BannedFolder is excluded from discovery.
type BannedFolder struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Path      string `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
}

func (BannedFolder) TableName() string { return "banned_folders" }

// AllModels lists every table owned by the repository, in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&Artist{},
		&Album{},
		&Genre{},
		&Media{},
		&EntryPoint{},
		&BannedFolder{},
	}
}

func toDomainMedia(row *Media) *domain.Media {
	m := &domain.Media{
		ID:           row.ID,
		URI:          row.URI,
		Path:         row.Path,
		Folder:       row.Folder,
		EntryPoint:   row.EntryPoint,
		Type:         domain.MediaType(row.Type),
		Title:        row.Title,
		Duration:     row.Duration,
		Time:         row.Progress,
		Track:        row.Track,
		Disc:         row.Disc,
		Width:        row.Width,
		Height:       row.Height,
		Year:         row.Year,
		LastModified: row.LastModified,
		ArtworkURL:   row.ArtworkURL,
		Flags:        row.Flags,
		PlayCount:    row.PlayCount,
		LastPlayedAt: row.LastPlayedAt,
		AudioTrack:   row.AudioTrack,
		SpuTrack:     row.SpuTrack,
		Artist:       row.TrackArtist,
		AlbumArtist:  row.AlbumArtist,
		AlbumTitle:   row.AlbumTitle,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.AlbumID != nil {
		m.AlbumID = *row.AlbumID
	}
	if row.ArtistID != nil {
		m.ArtistID = *row.ArtistID
	}
	if row.DeletedAt.Valid {
		deletedAt := row.DeletedAt.Time
		m.DeletedAt = &deletedAt
	}
	for _, g := range row.Genres {
		m.Genres = append(m.Genres, g.Name)
	}
	return m
}

func toModelMedia(m *domain.Media) *Media {
	return &Media{
		ID:           m.ID,
		URI:          m.URI,
		Path:         m.Path,
		Folder:       m.Folder,
		EntryPoint:   m.EntryPoint,
		Type:         int(m.Type),
		Title:        m.Title,
		Duration:     m.Duration,
		Progress:     m.Time,
		Track:        m.Track,
		Disc:         m.Disc,
		Width:        m.Width,
		Height:       m.Height,
		Year:         m.Year,
		LastModified: m.LastModified,
		ArtworkURL:   m.ArtworkURL,
		Flags:        m.Flags,
		PlayCount:    m.PlayCount,
		LastPlayedAt: m.LastPlayedAt,
		AudioTrack:   m.AudioTrack,
		SpuTrack:     m.SpuTrack,
		TrackArtist:  m.Artist,
		AlbumArtist:  m.AlbumArtist,
		AlbumTitle:   m.AlbumTitle,
		CreatedAt:    m.CreatedAt,
	}
}

func toDomainMediaList(rows []*Media) []*domain.Media {
	out := make([]*domain.Media, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainMedia(row))
	}
	return out
}

func toDomainAlbum(row *Album) *domain.Album {
	a := &domain.Album{
		ID:         row.ID,
		Title:      row.Title,
		Year:       row.Year,
		ArtworkURL: row.ArtworkURL,
	}
	if row.ArtistID != nil {
		a.ArtistID = *row.ArtistID
	}
	if row.Artist != nil {
		a.ArtistName = row.Artist.Name
	}
	return a
}

func toDomainEntryPoint(row *EntryPoint) *domain.EntryPoint {
	return &domain.EntryPoint{
		ID:               row.ID,
		Path:             row.Path,
		CreatedAt:        row.CreatedAt,
		LastDiscoveredAt: row.LastDiscoveredAt,
	}
}

func toDomainBannedFolder(row *BannedFolder) *domain.BannedFolder {
	return &domain.BannedFolder{
		ID:        row.ID,
		Path:      row.Path,
		CreatedAt: row.CreatedAt,
	}
}
