package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"

	"github.com/himanishpuri/KaraokeScore/pkg/karaoke"
	"github.com/himanishpuri/KaraokeScore/pkg/karaoke/errs"
	"github.com/himanishpuri/KaraokeScore/pkg/logger"
	"github.com/himanishpuri/KaraokeScore/pkg/models"
)

// SongStore is the catalog management surface the server exposes.
// *storage.DBClient satisfies it.
type SongStore interface {
	RegisterSong(in models.SongInput) (string, error)
	GetSongByID(songID string) (*models.ReferenceSong, error)
	ListSongs() ([]models.ReferenceSong, error)
	DeleteSongByID(songID string) error
}

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service karaoke.Service
	songs   SongStore
	config  *ServerConfig
	log     karaoke.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port                string
	DBPath              string
	ChunkSeconds        int
	MinRecordingSeconds float64
	AllowedOrigins      []string
	MaxUploadBytes      int64 // 0 means MaxRecordingBytes
}

// NewServer creates a new server instance
func NewServer(service karaoke.Service, songs SongStore, config *ServerConfig) *Server {
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = MaxRecordingBytes
	}
	return &Server{
		service: service,
		songs:   songs,
		config:  config,
		log:     logger.GetLogger(),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "KaraokeScore API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":     "GET /health",
			"metrics":    "GET /api/health/metrics",
			"songs":      "GET /api/songs",
			"addSong":    "POST /api/songs",
			"getSong":    "GET /api/songs/{id}",
			"deleteSong": "DELETE /api/songs/{id}",
			"score":      "POST /api/songs/{id}/score",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	songs, err := s.songs.ListSongs()
	if err != nil {
		s.log.Errorf("Failed to get song count: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:              "healthy",
		DatabasePath:        s.config.DBPath,
		SongCount:           len(songs),
		ChunkSeconds:        s.config.ChunkSeconds,
		MinRecordingSeconds: s.config.MinRecordingSeconds,
	})
}

// handleListSongs handles GET /api/songs
func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	songs, err := s.songs.ListSongs()
	if err != nil {
		s.log.Errorf("Failed to list songs: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve songs")
		return
	}

	songDTOs := make([]SongDTO, len(songs))
	for i := range songs {
		songDTOs[i] = songDTO(&songs[i], false)
	}

	s.respondJSON(w, http.StatusOK, ListSongsResponse{
		Songs: songDTOs,
		Count: len(songDTOs),
	})
}

// handleAddSong handles POST /api/songs
func (s *Server) handleAddSong(w http.ResponseWriter, r *http.Request) {
	var req AddSongRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Errorf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	songID, err := s.songs.RegisterSong(req.toInput())
	if err != nil {
		s.log.Errorf("Failed to add song: %v", err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to add song: %v", err))
		return
	}

	s.log.Infof("Registered song: %s by %s (ID: %s)", req.Title, req.Artist, songID)
	s.respondJSON(w, http.StatusCreated, AddSongResponse{
		Message: "Song added successfully",
		ID:      songID,
		Title:   req.Title,
		Artist:  req.Artist,
	})
}

// handleGetSong handles GET /api/songs/{id}
func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request) {
	songID := mux.Vars(r)["id"]

	song, err := s.songs.GetSongByID(songID)
	if err != nil {
		s.songLookupError(w, songID, err)
		return
	}

	s.respondJSON(w, http.StatusOK, songDTO(song, true))
}

// handleDeleteSong handles DELETE /api/songs/{id}
func (s *Server) handleDeleteSong(w http.ResponseWriter, r *http.Request) {
	songID := mux.Vars(r)["id"]

	if err := s.songs.DeleteSongByID(songID); err != nil {
		s.songLookupError(w, songID, err)
		return
	}

	s.log.Infof("Deleted song %s", songID)
	s.respondJSON(w, http.StatusOK, DeleteSongResponse{
		Message: "Song deleted successfully",
		ID:      songID,
	})
}

func (s *Server) songLookupError(w http.ResponseWriter, songID string, err error) {
	if errors.Is(err, errs.ErrNotFound) {
		s.log.Warnf("Song not found: %s", songID)
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Song with ID %s not found", songID))
		return
	}
	s.log.Errorf("Catalog error for song %s: %v", songID, err)
	s.respondError(w, http.StatusInternalServerError, "Failed to access song catalog")
}

// handleScore handles POST /api/songs/{id}/score (multipart "file" upload).
// ?detailed=true returns the full breakdown instead of the bare score.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	songID := mux.Vars(r)["id"]

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.log.Warnf("Rejected upload for song %s over %s", songID, humanize.IBytes(uint64(tooLarge.Limit)))
			s.respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Recording exceeds %s", humanize.IBytes(uint64(tooLarge.Limit))))
			return
		}
		s.log.Errorf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	recording, err := io.ReadAll(file)
	if err != nil {
		s.log.Errorf("Failed to read upload: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to read uploaded file")
		return
	}
	if len(recording) == 0 {
		s.respondError(w, http.StatusBadRequest, "file is empty")
		return
	}

	s.log.Infof("Scoring upload %s (%s) for song %s", header.Filename, humanize.Bytes(uint64(len(recording))), songID)

	if r.URL.Query().Get("detailed") == "true" {
		breakdown, err := s.service.ScoreDetailed(r.Context(), recording, header.Filename, songID)
		if err != nil {
			s.scoreError(w, songID, err)
			return
		}
		s.respondJSON(w, http.StatusOK, breakdown)
		return
	}

	score, err := s.service.CalculateScore(r.Context(), recording, header.Filename, songID)
	if err != nil {
		s.scoreError(w, songID, err)
		return
	}

	s.respondJSON(w, http.StatusOK, ScoreResponse{SongID: songID, Score: score})
}

// scoreError maps a pipeline failure onto a status code.
func (s *Server) scoreError(w http.ResponseWriter, songID string, err error) {
	switch {
	case errors.Is(err, errs.ErrRecordingTooShort):
		s.log.Warnf("Rejected recording for song %s: %v", songID, err)
		s.respondJSON(w, http.StatusUnprocessableEntity, ScoreResponse{
			SongID:  songID,
			Score:   TooShortScore,
			Message: err.Error(),
		})
	case errors.Is(err, errs.ErrNotFound):
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Song with ID %s not found", songID))
	case errors.Is(err, errs.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		s.log.Errorf("Scoring song %s timed out: %v", songID, err)
		s.respondError(w, http.StatusGatewayTimeout, "Analysis service timed out")
	case errors.Is(err, errs.ErrFetch), errors.Is(err, errs.ErrAnalysisCall):
		s.log.Errorf("Scoring song %s failed upstream: %v", songID, err)
		s.respondError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, errs.ErrProbe), errors.Is(err, errs.ErrSegment):
		s.log.Warnf("Recording for song %s could not be processed: %v", songID, err)
		s.respondError(w, http.StatusBadRequest, "Recording could not be processed")
	default:
		s.log.Errorf("Scoring song %s failed: %v", songID, err)
		s.respondError(w, http.StatusInternalServerError, "Failed to score recording")
	}
}
