package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/narwhalmedia/medialibrary/internal/medialibrary/artwork"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/service"
	"github.com/narwhalmedia/medialibrary/internal/metrics"
	"github.com/narwhalmedia/medialibrary/pkg/errors"
	"github.com/narwhalmedia/medialibrary/pkg/interfaces"
	"github.com/narwhalmedia/medialibrary/pkg/logger"
)

// Handler serves the media library over HTTP.
type Handler struct {
	library service.Library
	logger  interfaces.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(library service.Library, logger interfaces.Logger) *Handler {
	return &Handler{
		library: library,
		logger:  logger,
	}
}

// Router builds the routes. An empty metricsPath disables /metrics.
func (h *Handler) Router(metricsPath string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.HTTPMiddleware(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if metricsPath != "" {
		r.Handle(metricsPath, promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.status)
		r.Post("/pause", h.pause)
		r.Post("/resume", h.resume)
		r.Post("/reload", h.reload)

		r.Route("/media", func(r chi.Router) {
			r.Get("/audio", h.listAudio)
			r.Get("/video", h.listVideo)
			r.Get("/counts", h.counts)
			r.Get("/last-played", h.lastPlayed)
			r.Get("/search", h.search)
			r.Get("/{id}", h.getMedia)
			r.Delete("/{id}", h.removeMedia)
			r.Post("/{id}/play", h.play)
			r.Put("/{id}/progress", h.progress)
			r.Put("/{id}/flags", h.flags)
		})

		r.Get("/albums", h.listAlbums)
		r.Get("/albums/{id}/tracks", h.albumTracks)
		r.Get("/artists", h.listArtists)
		r.Get("/artists/{id}/media", h.artistMedia)
		r.Get("/genres", h.listGenres)
		r.Get("/genres/{id}/media", h.genreMedia)

		r.Route("/entry-points", func(r chi.Router) {
			r.Get("/", h.listEntryPoints)
			r.Post("/", h.addEntryPoint)
			r.Delete("/", h.removeEntryPoint)
			r.Post("/reload", h.reloadEntryPoint)
		})
		r.Route("/banned-folders", func(r chi.Router) {
			r.Get("/", h.listBannedFolders)
			r.Post("/", h.banFolder)
			r.Delete("/", h.unbanFolder)
		})

		r.Get("/artwork/{key}", h.artwork)
	})

	return r
}

func (h *Handler) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		State:   h.library.State().String(),
		Working: h.library.IsWorking(),
	})
}

func (h *Handler) pause(w http.ResponseWriter, _ *http.Request) {
	h.library.PauseBackgroundOperations()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) resume(w http.ResponseWriter, _ *http.Request) {
	h.library.ResumeBackgroundOperations()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reload(w http.ResponseWriter, r *http.Request) {
	if err := h.library.Reload(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) listAudio(w http.ResponseWriter, r *http.Request) {
	media, err := h.library.GetAudio(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMediaList(media))
}

func (h *Handler) listVideo(w http.ResponseWriter, r *http.Request) {
	media, err := h.library.GetVideos(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMediaList(media))
}

func (h *Handler) counts(w http.ResponseWriter, r *http.Request) {
	audio, err := h.library.GetAudioCount(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	video, err := h.library.GetVideoCount(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countsResponse{Audio: audio, Video: video})
}

func (h *Handler) lastPlayed(w http.ResponseWriter, r *http.Request) {
	media, err := h.library.LastMediaPlayed(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMediaList(media))
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, r, errors.BadRequest("invalid limit"))
			return
		}
		limit = n
	}

	media, err := h.library.SearchMedia(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMediaList(media))
}

func (h *Handler) getMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	media, err := h.library.GetMedia(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMediaResponse(media))
}

func (h *Handler) removeMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	media, err := h.library.GetMedia(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !h.library.Remove(r.Context(), media) {
		h.writeError(w, r, errors.NotFound("media not found"))
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) play(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if !h.library.IncreasePlayCount(r.Context(), id) {
		h.writeError(w, r, errors.NotFound("media not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) progress(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var req progressRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !h.library.UpdateProgress(r.Context(), id, req.Position) {
		h.writeError(w, r, errors.NotFound("media not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) flags(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var req flagsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !h.library.SetMediaFlags(r.Context(), id, req.Flags) {
		h.writeError(w, r, errors.NotFound("media not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listAlbums(w http.ResponseWriter, r *http.Request) {
	albums, err := h.library.GetAlbums(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAlbumList(albums))
}

func (h *Handler) albumTracks(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	tracks, err := h.library.GetAlbumTracks(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMediaList(tracks))
}

func (h *Handler) listArtists(w http.ResponseWriter, r *http.Request) {
	artists, err := h.library.GetArtists(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toArtistList(artists))
}

func (h *Handler) artistMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	media, err := h.library.GetArtistMedia(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMediaList(media))
}

func (h *Handler) listGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.library.GetGenres(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGenreList(genres))
}

func (h *Handler) genreMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	media, err := h.library.GetGenreMedia(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMediaList(media))
}

func (h *Handler) listEntryPoints(w http.ResponseWriter, r *http.Request) {
	eps, err := h.library.EntryPoints(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryPointList(eps))
}

func (h *Handler) addEntryPoint(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if !h.decodePath(w, r, &req) {
		return
	}
	if err := h.library.DiscoverEntryPoint(r.Context(), req.Path); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) removeEntryPoint(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		h.writeError(w, r, errors.BadRequest("path is required"))
		return
	}
	if err := h.library.RemoveEntryPoint(r.Context(), path); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reloadEntryPoint(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if !h.decodePath(w, r, &req) {
		return
	}
	if err := h.library.ReloadEntryPoint(r.Context(), req.Path); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) listBannedFolders(w http.ResponseWriter, r *http.Request) {
	banned, err := h.library.BannedFolders(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	paths := make([]string, 0, len(banned))
	for _, b := range banned {
		paths = append(paths, b.Path)
	}
	writeJSON(w, http.StatusOK, paths)
}

func (h *Handler) banFolder(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if !h.decodePath(w, r, &req) {
		return
	}
	if err := h.library.BanFolder(r.Context(), req.Path); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) unbanFolder(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		h.writeError(w, r, errors.BadRequest("path is required"))
		return
	}
	if err := h.library.UnbanFolder(r.Context(), path); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) artwork(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	rc, err := h.library.OpenArtwork(r.Context(), key)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", artwork.ContentType(key))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("Failed to stream artwork", interfaces.String("key", key), interfaces.Error(err))
	}
}

func (h *Handler) idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, r, errors.BadRequest("invalid id"))
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, r, errors.Wrap(errors.ErrorTypeBadRequest, "invalid request body", err))
		return false
	}
	return true
}

func (h *Handler) decodePath(w http.ResponseWriter, r *http.Request, req *pathRequest) bool {
	if !h.decode(w, r, req) {
		return false
	}
	if req.Path == "" {
		h.writeError(w, r, errors.BadRequest("path is required"))
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("Request failed", interfaces.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch errors.TypeOf(err) {
	case errors.ErrorTypeNotFound:
		return http.StatusNotFound
	case errors.ErrorTypeBadRequest:
		return http.StatusBadRequest
	case errors.ErrorTypeConflict:
		return http.StatusConflict
	case errors.ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
