package models

import "time"

// ReferenceSong is the canonical track a user karaokes to.
type ReferenceSong struct {
	ID          string    // Database ID (UUID)
	Title       string    // Song title
	Artist      string    // Artist name
	AudioURL    string    // Where the reference audio is fetched from
	Lyrics      string    // Lyrics, normalized at registration time
	DurationSec float64   // Duration in seconds
	CreatedAt   time.Time // Registration time
}

// SongInput is the data needed to register a reference song.
type SongInput struct {
	Title       string  `json:"title" yaml:"title"`
	Artist      string  `json:"artist" yaml:"artist"`
	AudioURL    string  `json:"audio_url" yaml:"audio_url"`
	Lyrics      string  `json:"lyrics" yaml:"lyrics"`
	DurationSec float64 `json:"duration_sec" yaml:"duration_sec"`
}

// ScoreBreakdown is the full result of one scoring attempt.
// Final is the number returned to callers of CalculateScore.
type ScoreBreakdown struct {
	SongID      string    `json:"song_id"`
	PitchScore  float64   `json:"pitch_score"`  // max chunk score, [0,1]
	LyricsScore float64   `json:"lyrics_score"` // [0,1]
	ChunkScores []float64 `json:"chunk_scores"`
	Transcript  string    `json:"transcript"`
	Final       float64   `json:"score"` // [0,100]
}
