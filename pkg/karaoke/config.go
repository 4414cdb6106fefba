package karaoke

import (
	"time"

	"github.com/himanishpuri/KaraokeScore/pkg/karaoke/audio"
	"github.com/himanishpuri/KaraokeScore/pkg/karaoke/clients"
	"github.com/himanishpuri/KaraokeScore/pkg/karaoke/pacing"
)

type Config struct {
	TranscriptionURL    string
	PitchURL            string
	ChunkSeconds        int
	PacingDelay         time.Duration
	RequestTimeout      time.Duration
	MinRecordingSeconds float64
	DBPath              string
	TempDir             string

	Logger         Logger
	Catalog        Catalog
	Fetcher        clients.AudioFetcher
	Transcriber    clients.Transcriber
	PitchExtractor clients.PitchExtractor
	Prober         audio.Prober
	Segmenter      audio.Segmenter
	Pacer          pacing.Factory
}

type Option func(*Config)

func WithTranscriptionURL(url string) Option {
	return func(c *Config) {
		c.TranscriptionURL = url
	}
}

func WithPitchURL(url string) Option {
	return func(c *Config) {
		c.PitchURL = url
	}
}

func WithChunkSeconds(n int) Option {
	return func(c *Config) {
		c.ChunkSeconds = n
	}
}

// WithPacingDelay sets the gap enforced before each chunk's analysis calls. 0 disables it.
func WithPacingDelay(d time.Duration) Option {
	return func(c *Config) {
		c.PacingDelay = d
	}
}

func WithRequestTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.RequestTimeout = d
	}
}

// WithMinRecordingSeconds sets the shortest accepted recording. 0 disables the check.
func WithMinRecordingSeconds(s float64) Option {
	return func(c *Config) {
		c.MinRecordingSeconds = s
	}
}

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithCatalog(cat Catalog) Option {
	return func(c *Config) {
		c.Catalog = cat
	}
}

func WithFetcher(f clients.AudioFetcher) Option {
	return func(c *Config) {
		c.Fetcher = f
	}
}

func WithTranscriber(t clients.Transcriber) Option {
	return func(c *Config) {
		c.Transcriber = t
	}
}

func WithPitchExtractor(p clients.PitchExtractor) Option {
	return func(c *Config) {
		c.PitchExtractor = p
	}
}

func WithProber(p audio.Prober) Option {
	return func(c *Config) {
		c.Prober = p
	}
}

func WithSegmenter(s audio.Segmenter) Option {
	return func(c *Config) {
		c.Segmenter = s
	}
}

func WithPacer(f pacing.Factory) Option {
	return func(c *Config) {
		c.Pacer = f
	}
}

func defaultConfig() *Config {
	return &Config{
		ChunkSeconds:        audio.DefaultChunkSeconds,
		PacingDelay:         3 * time.Second,
		RequestTimeout:      clients.DefaultTimeout,
		MinRecordingSeconds: 30,
		DBPath:              "karaoke.sqlite3",
	}
}
