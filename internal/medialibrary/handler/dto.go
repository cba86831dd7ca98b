package handler

import (
	"time"

	"github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"
)

type mediaResponse struct {
	ID           int64      `json:"id"`
	URI          string     `json:"uri"`
	Type         string     `json:"type"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Artist       string     `json:"artist,omitempty"`
	AlbumArtist  string     `json:"album_artist,omitempty"`
	Album        string     `json:"album,omitempty"`
	AlbumID      int64      `json:"album_id,omitempty"`
	Genres       []string   `json:"genres,omitempty"`
	Track        int        `json:"track,omitempty"`
	Disc         int        `json:"disc,omitempty"`
	Year         int        `json:"year,omitempty"`
	Duration     int64      `json:"duration_ms"`
	Width        int        `json:"width,omitempty"`
	Height       int        `json:"height,omitempty"`
	ArtworkURL   string     `json:"artwork_url,omitempty"`
	PlayCount    int        `json:"play_count"`
	Progress     int64      `json:"progress_ms"`
	LastPlayedAt *time.Time `json:"last_played_at,omitempty"`
	Flags        int        `json:"flags"`
}

type albumResponse struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist,omitempty"`
	ArtistID   int64  `json:"artist_id,omitempty"`
	Year       int    `json:"year,omitempty"`
	ArtworkURL string `json:"artwork_url,omitempty"`
	NbTracks   int    `json:"nb_tracks"`
	Duration   int64  `json:"duration_ms"`
}

type artistResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	NbAlbums int    `json:"nb_albums"`
	NbTracks int    `json:"nb_tracks"`
}

type genreResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	NbTracks int    `json:"nb_tracks"`
}

type entryPointResponse struct {
	Path             string     `json:"path"`
	LastDiscoveredAt *time.Time `json:"last_discovered_at,omitempty"`
}

type statusResponse struct {
	State   string `json:"state"`
	Working bool   `json:"working"`
}

type countsResponse struct {
	Audio int64 `json:"audio"`
	Video int64 `json:"video"`
}

type pathRequest struct {
	Path string `json:"path"`
}

type progressRequest struct {
	Position int64 `json:"position_ms"`
}

type flagsRequest struct {
	Flags int `json:"flags"`
}

func toMediaResponse(m *domain.Media) mediaResponse {
	return mediaResponse{
		ID:           m.ID,
		URI:          m.URI,
		Type:         m.Type.String(),
		Title:        m.GetTitle(),
		Description:  m.Description(),
		Artist:       m.Artist,
		AlbumArtist:  m.AlbumArtist,
		Album:        m.AlbumTitle,
		AlbumID:      m.AlbumID,
		Genres:       m.Genres,
		Track:        m.Track,
		Disc:         m.Disc,
		Year:         m.Year,
		Duration:     m.Duration,
		Width:        m.Width,
		Height:       m.Height,
		ArtworkURL:   m.ArtworkURL,
		PlayCount:    m.PlayCount,
		Progress:     m.Time,
		LastPlayedAt: m.LastPlayedAt,
		Flags:        m.Flags,
	}
}

func toMediaList(media []*domain.Media) []mediaResponse {
	out := make([]mediaResponse, 0, len(media))
	for _, m := range media {
		out = append(out, toMediaResponse(m))
	}
	return out
}

func toAlbumList(albums []*domain.Album) []albumResponse {
	out := make([]albumResponse, 0, len(albums))
	for _, a := range albums {
		out = append(out, albumResponse{
			ID:         a.ID,
			Title:      a.Title,
			Artist:     a.ArtistName,
			ArtistID:   a.ArtistID,
			Year:       a.Year,
			ArtworkURL: a.ArtworkURL,
			NbTracks:   a.NbTracks,
			Duration:   a.Duration,
		})
	}
	return out
}

func toArtistList(artists []*domain.Artist) []artistResponse {
	out := make([]artistResponse, 0, len(artists))
	for _, a := range artists {
		out = append(out, artistResponse{ID: a.ID, Name: a.Name, NbAlbums: a.NbAlbums, NbTracks: a.NbTracks})
	}
	return out
}

func toGenreList(genres []*domain.Genre) []genreResponse {
	out := make([]genreResponse, 0, len(genres))
	for _, g := range genres {
		out = append(out, genreResponse{ID: g.ID, Name: g.Name, NbTracks: g.NbTracks})
	}
	return out
}

func toEntryPointList(eps []*domain.EntryPoint) []entryPointResponse {
	out := make([]entryPointResponse, 0, len(eps))
	for _, ep := range eps {
		out = append(out, entryPointResponse{Path: ep.Path, LastDiscoveredAt: ep.LastDiscoveredAt})
	}
	return out
}
