package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/himanishpuri/KaraokeScore/pkg/models"
)

// MaxRecordingBytes is the default cap on the score endpoint's request body.
// Larger uploads are cut off while reading and answered with 413.
const MaxRecordingBytes = 100 << 20

// multipartMemory is how much of an upload ParseMultipartForm keeps in memory before spilling to disk.
const multipartMemory = 32 << 20

// TooShortScore is what the app expects back for a recording below the minimum duration.
const TooShortScore = -1

// AddSongRequest is the request body for POST /api/songs
type AddSongRequest struct {
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	AudioURL    string  `json:"audio_url"`
	Lyrics      string  `json:"lyrics"`
	DurationSec float64 `json:"duration_sec,omitempty"`
}

// Validate checks if the request is valid
func (r *AddSongRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" || strings.TrimSpace(r.Artist) == "" {
		return fmt.Errorf("title and artist are required")
	}
	if strings.TrimSpace(r.AudioURL) == "" {
		return fmt.Errorf("audio_url is required")
	}
	if r.DurationSec < 0 {
		return fmt.Errorf("duration_sec cannot be negative")
	}
	return nil
}

func (r *AddSongRequest) toInput() models.SongInput {
	return models.SongInput{
		Title:       r.Title,
		Artist:      r.Artist,
		AudioURL:    r.AudioURL,
		Lyrics:      r.Lyrics,
		DurationSec: r.DurationSec,
	}
}

// AddSongResponse is the response for successful song registration
type AddSongResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
	Title   string `json:"title"`
	Artist  string `json:"artist"`
}

// SongDTO represents a song in API responses
type SongDTO struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	AudioURL    string    `json:"audio_url"`
	Lyrics      string    `json:"lyrics,omitempty"`
	DurationSec float64   `json:"duration_sec"`
	CreatedAt   time.Time `json:"created_at"`
}

func songDTO(song *models.ReferenceSong, withLyrics bool) SongDTO {
	dto := SongDTO{
		ID:          song.ID,
		Title:       song.Title,
		Artist:      song.Artist,
		AudioURL:    song.AudioURL,
		DurationSec: song.DurationSec,
		CreatedAt:   song.CreatedAt,
	}
	if withLyrics {
		dto.Lyrics = song.Lyrics
	}
	return dto
}

// ListSongsResponse is the response for GET /api/songs
type ListSongsResponse struct {
	Songs []SongDTO `json:"songs"`
	Count int       `json:"count"`
}

// DeleteSongResponse is the response for DELETE /api/songs/{id}
type DeleteSongResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// ScoreResponse is the response for POST /api/songs/{id}/score
type ScoreResponse struct {
	SongID  string  `json:"song_id"`
	Score   float64 `json:"score"`
	Message string  `json:"message,omitempty"`
}

// MetricsResponse provides server health and catalog metrics
type MetricsResponse struct {
	Status              string  `json:"status"`
	DatabasePath        string  `json:"database_path"`
	SongCount           int     `json:"song_count"`
	ChunkSeconds        int     `json:"chunk_seconds"`
	MinRecordingSeconds float64 `json:"min_recording_seconds"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
