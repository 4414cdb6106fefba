package karaoke

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/himanishpuri/KaraokeScore/pkg/karaoke/audio"
	"github.com/himanishpuri/KaraokeScore/pkg/karaoke/clients"
	"github.com/himanishpuri/KaraokeScore/pkg/karaoke/compare"
	"github.com/himanishpuri/KaraokeScore/pkg/karaoke/errs"
	"github.com/himanishpuri/KaraokeScore/pkg/karaoke/pacing"
	"github.com/himanishpuri/KaraokeScore/pkg/karaoke/storage"
	"github.com/himanishpuri/KaraokeScore/pkg/logger"
	"github.com/himanishpuri/KaraokeScore/pkg/models"
)

// scoringService is the default implementation of the Service interface.
// It holds no per-call state; concurrent calls run independent pipelines.
type scoringService struct {
	catalog     Catalog
	fetcher     clients.AudioFetcher
	transcriber clients.Transcriber
	pitch       clients.PitchExtractor
	prober      audio.Prober
	segmenter   audio.Segmenter
	pacer       pacing.Factory
	log         Logger
	config      *Config

	// closer is set when the service opened the catalog itself.
	closer func() error
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	h := clients.NewHTTP(cfg.RequestTimeout)

	if cfg.Transcriber == nil {
		if cfg.TranscriptionURL == "" {
			return nil, errors.New("transcription service URL is required")
		}
		cfg.Transcriber = clients.NewTranscriptionClient(h, cfg.TranscriptionURL)
	}
	if cfg.PitchExtractor == nil {
		if cfg.PitchURL == "" {
			return nil, errors.New("pitch service URL is required")
		}
		cfg.PitchExtractor = clients.NewPitchClient(h, cfg.PitchURL)
	}
	if cfg.Fetcher == nil {
		cfg.Fetcher = clients.NewFetcher(h)
	}
	if cfg.Prober == nil {
		cfg.Prober = audio.NewFFProbe(audio.WithProbeTempDir(cfg.TempDir))
	}
	if cfg.Segmenter == nil {
		cfg.Segmenter = audio.NewFFmpegSegmenter(audio.WithSegmentTempDir(cfg.TempDir))
	}
	if cfg.Pacer == nil {
		cfg.Pacer = pacing.IntervalFactory(cfg.PacingDelay)
	}

	svc := &scoringService{
		fetcher:     cfg.Fetcher,
		transcriber: cfg.Transcriber,
		pitch:       cfg.PitchExtractor,
		prober:      cfg.Prober,
		segmenter:   cfg.Segmenter,
		pacer:       cfg.Pacer,
		log:         cfg.Logger,
		config:      cfg,
	}

	if cfg.Catalog != nil {
		svc.catalog = cfg.Catalog
	} else {
		db, err := storage.NewDBClientWithPath(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open catalog: %w", err)
		}
		svc.catalog = db
		svc.closer = db.Close
	}

	return svc, nil
}

// CalculateScore runs the scoring pipeline and returns the final score.
func (s *scoringService) CalculateScore(ctx context.Context, recording []byte, fileName, songID string) (float64, error) {
	b, err := s.ScoreDetailed(ctx, recording, fileName, songID)
	if err != nil {
		return 0, err
	}
	return b.Final, nil
}

// ScoreDetailed is the scoring pipeline. Any failure aborts the whole attempt.
func (s *scoringService) ScoreDetailed(ctx context.Context, recording []byte, fileName, songID string) (*models.ScoreBreakdown, error) {
	s.log.Infof("Scoring %s (%s) against song %s", fileName, humanize.Bytes(uint64(len(recording))), songID)

	// 1. Resolve the reference song
	song, err := s.catalog.GetSong(ctx, songID)
	if err != nil {
		return nil, fmt.Errorf("reference lookup: %w", err)
	}

	// 2. Reject recordings below the minimum length before any download or analysis call
	if minSec := s.config.MinRecordingSeconds; minSec > 0 {
		dur, err := s.prober.Duration(ctx, recording)
		if err != nil {
			return nil, fmt.Errorf("probing recording: %w", err)
		}
		if dur < minSec {
			return nil, fmt.Errorf("%w: %.1fs, need at least %.0fs", errs.ErrRecordingTooShort, dur, minSec)
		}
		s.log.Debugf("Recording is %.1fs long", dur)
	}

	// 3. Fetch reference audio
	refAudio, err := s.fetcher.FetchAudio(ctx, song.AudioURL)
	if err != nil {
		return nil, fmt.Errorf("reference audio: %w", err)
	}
	s.log.Debugf("Fetched %s of reference audio for %q", humanize.Bytes(uint64(len(refAudio))), song.Title)

	// 4. Lyrics were normalized when the song was registered
	refLyrics := song.Lyrics

	// 5. Reference pitch contour, extracted once
	refPitch, err := s.pitch.ExtractPitch(ctx, refAudio, referenceFileName(song.AudioURL))
	if err != nil {
		return nil, fmt.Errorf("reference pitch: %w", err)
	}
	s.log.Debugf("Reference has %d pitch observations", len(refPitch))

	// 6. Split the recording
	chunks, err := s.segmenter.Segment(ctx, recording, fileName, s.config.ChunkSeconds)
	if err != nil {
		return nil, fmt.Errorf("segmenting recording: %w", err)
	}
	s.log.Infof("Recording split into %d chunks", len(chunks))

	// 7. Analyze chunks one at a time, paced
	pacer := s.pacer()
	transcript := make([]string, 0, len(chunks))
	chunkScores := make([]float64, 0, len(chunks))
	for _, chunk := range chunks {
		if err := pacer.Acquire(ctx); err != nil {
			return nil, fmt.Errorf("waiting to analyze chunk %d: %w", chunk.Index, err)
		}

		name := chunkFileName(fileName, chunk.Index)

		text, err := s.transcriber.Transcribe(ctx, chunk.Data, name)
		if err != nil {
			return nil, fmt.Errorf("transcribing chunk %d: %w", chunk.Index, err)
		}
		if text = strings.TrimSpace(text); text != "" {
			transcript = append(transcript, text)
		}

		chunkPitch, err := s.pitch.ExtractPitch(ctx, chunk.Data, name)
		if err != nil {
			return nil, fmt.Errorf("pitch of chunk %d: %w", chunk.Index, err)
		}

		score := compare.ComparePitch(refPitch, chunkPitch)
		chunkScores = append(chunkScores, score)
		s.log.Debugf("Chunk %d: %d observations, pitch score %.4f", chunk.Index, len(chunkPitch), score)

		// the next chunk's delay counts from here
		pacer.Release()
	}

	result := &models.ScoreBreakdown{
		SongID:      songID,
		ChunkScores: chunkScores,
		Transcript:  strings.Join(transcript, " "),
	}

	// 8. Nothing analyzed, nothing to score
	if len(chunkScores) == 0 {
		s.log.Warnf("No chunks analyzed for song %s, scoring 0", songID)
		return result, nil
	}

	// 9. Best chunk, lyrics over the whole transcript, averaged
	result.PitchScore = slices.Max(chunkScores)
	result.LyricsScore = compare.CompareLyrics(refLyrics, result.Transcript)
	result.Final = ((result.PitchScore + result.LyricsScore) / 2) * 100

	s.log.Infof("Song %s scored %.2f (pitch %.4f, lyrics %.4f)", songID, result.Final, result.PitchScore, result.LyricsScore)
	return result, nil
}

// Close releases the catalog if the service opened it.
func (s *scoringService) Close() error {
	if s.closer != nil {
		return s.closer()
	}
	return nil
}

func chunkFileName(fileName string, index int) string {
	ext := filepath.Ext(fileName)
	if ext == "" {
		ext = ".wav"
	}
	return fmt.Sprintf("chunk_%03d%s", index, ext)
}

func referenceFileName(audioURL string) string {
	p := audioURL
	if u, err := url.Parse(audioURL); err == nil && u.Path != "" {
		p = u.Path
	}
	if base := path.Base(p); base != "." && base != "/" && path.Ext(base) != "" {
		return base
	}
	return "reference.mp3"
}
