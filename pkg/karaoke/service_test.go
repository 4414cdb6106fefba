package karaoke

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/KaraokeScore/pkg/karaoke/audio"
	"github.com/himanishpuri/KaraokeScore/pkg/karaoke/errs"
	"github.com/himanishpuri/KaraokeScore/pkg/karaoke/pacing"
	"github.com/himanishpuri/KaraokeScore/pkg/logger"
	"github.com/himanishpuri/KaraokeScore/pkg/models"
)

const testSongID = "song-1"

var refAudio = []byte("reference-audio")

// pipelineFakes stands in for every collaborator and records the order of calls.
type pipelineFakes struct {
	events []string

	song        *models.ReferenceSong
	fetchErr    error
	duration    float64
	chunks      []models.AudioChunk
	texts       map[int]string
	refPitch    []models.PitchObservation
	chunkPitch  map[int][]models.PitchObservation
	failOnChunk int // transcription fails on this chunk index; -1 never
	probed      bool

	transcribeDelay time.Duration
	transcribeStart []time.Time
	pitchDone       []time.Time
}

func newFakes() *pipelineFakes {
	return &pipelineFakes{
		song: &models.ReferenceSong{
			ID:       testSongID,
			Title:    "Test",
			AudioURL: "https://cdn.example.com/ref.mp3",
			Lyrics:   "test song",
		},
		duration:    45,
		texts:       map[int]string{},
		chunkPitch:  map[int][]models.PitchObservation{},
		failOnChunk: -1,
	}
}

func (f *pipelineFakes) withChunks(n int) *pipelineFakes {
	f.chunks = nil
	for i := 0; i < n; i++ {
		f.chunks = append(f.chunks, models.AudioChunk{Index: i, Data: []byte(fmt.Sprintf("chunk-%d", i))})
	}
	return f
}

func (f *pipelineFakes) GetSong(_ context.Context, id string) (*models.ReferenceSong, error) {
	f.events = append(f.events, "lookup")
	if f.song == nil || id != f.song.ID {
		return nil, fmt.Errorf("%w: %s", errs.ErrNotFound, id)
	}
	return f.song, nil
}

func (f *pipelineFakes) FetchAudio(_ context.Context, url string) ([]byte, error) {
	f.events = append(f.events, "fetch")
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return refAudio, nil
}

func (f *pipelineFakes) Duration(context.Context, []byte) (float64, error) {
	f.events = append(f.events, "probe")
	f.probed = true
	return f.duration, nil
}

func (f *pipelineFakes) Segment(_ context.Context, _ []byte, _ string, chunkSeconds int) ([]models.AudioChunk, error) {
	f.events = append(f.events, fmt.Sprintf("segment:%d", chunkSeconds))
	return f.chunks, nil
}

func (f *pipelineFakes) chunkIndex(data []byte) int {
	for _, c := range f.chunks {
		if string(c.Data) == string(data) {
			return c.Index
		}
	}
	return -1
}

func (f *pipelineFakes) Transcribe(_ context.Context, data []byte, fileName string) (string, error) {
	i := f.chunkIndex(data)
	f.events = append(f.events, fmt.Sprintf("transcribe:%d", i))
	f.transcribeStart = append(f.transcribeStart, time.Now())
	time.Sleep(f.transcribeDelay)
	if i == f.failOnChunk {
		return "", fmt.Errorf("%w: transcription 503 Service Unavailable", errs.ErrAnalysisCall)
	}
	return f.texts[i], nil
}

func (f *pipelineFakes) ExtractPitch(_ context.Context, data []byte, fileName string) ([]models.PitchObservation, error) {
	if string(data) == string(refAudio) {
		f.events = append(f.events, "pitch:ref")
		return f.refPitch, nil
	}
	i := f.chunkIndex(data)
	f.events = append(f.events, fmt.Sprintf("pitch:%d", i))
	f.pitchDone = append(f.pitchDone, time.Now())
	return f.chunkPitch[i], nil
}

type recordingPacer struct{ f *pipelineFakes }

func (p recordingPacer) Acquire(ctx context.Context) error {
	p.f.events = append(p.f.events, "pace")
	return ctx.Err()
}

func (p recordingPacer) Release() {
	p.f.events = append(p.f.events, "release")
}

func (f *pipelineFakes) service(t *testing.T, opts ...Option) Service {
	t.Helper()
	base := []Option{
		WithLogger(logger.Discard()),
		WithCatalog(f),
		WithFetcher(f),
		WithTranscriber(f),
		WithPitchExtractor(f),
		WithProber(f),
		WithSegmenter(f),
		WithPacer(func() pacing.Limiter { return recordingPacer{f: f} }),
	}
	svc, err := NewService(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func note(start, pitch, conf float64) models.PitchObservation {
	return models.PitchObservation{WindowStart: start, WindowEnd: start + 1, AveragePitch: pitch, AverageConfidence: conf}
}

func TestCalculateScorePerfectMatch(t *testing.T) {
	f := newFakes().withChunks(1)
	f.refPitch = []models.PitchObservation{note(0, 5, 0.9)}
	f.chunkPitch[0] = []models.PitchObservation{note(0, 5, 0.9)}
	f.texts[0] = "test song"

	score, err := f.service(t).CalculateScore(context.Background(), []byte("recording"), "take.wav", testSongID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, score)
}

func TestCalculateScoreSilentCandidate(t *testing.T) {
	f := newFakes().withChunks(1)
	f.refPitch = []models.PitchObservation{note(0, 5, 0.9), note(1, 7, 0.9)}
	f.chunkPitch[0] = []models.PitchObservation{note(0, 0, 0.9), note(1, 0, 0.9)}
	f.texts[0] = "test other"

	b, err := f.service(t).ScoreDetailed(context.Background(), []byte("recording"), "take.wav", testSongID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, b.PitchScore)
	assert.Equal(t, 0.5, b.LyricsScore)
	assert.Equal(t, b.LyricsScore*50, b.Final)
}

func TestCalculateScoreCallOrder(t *testing.T) {
	f := newFakes().withChunks(2)

	_, err := f.service(t).CalculateScore(context.Background(), []byte("recording"), "take.wav", testSongID)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"lookup", "probe", "fetch", "pitch:ref", "segment:30",
		"pace", "transcribe:0", "pitch:0", "release",
		"pace", "transcribe:1", "pitch:1", "release",
	}, f.events)
}

func TestCalculateScoreChunkSecondsOption(t *testing.T) {
	f := newFakes().withChunks(1)
	_, err := f.service(t, WithChunkSeconds(15)).CalculateScore(context.Background(), []byte("r"), "take.wav", testSongID)
	require.NoError(t, err)
	assert.Contains(t, f.events, "segment:15")
}

func TestScoreDetailedTranscriptInChunkOrder(t *testing.T) {
	f := newFakes().withChunks(3)
	f.song.Lyrics = "one two three four"
	f.texts = map[int]string{0: "one", 1: "  ", 2: "two five"}

	b, err := f.service(t).ScoreDetailed(context.Background(), []byte("recording"), "take.mp3", testSongID)
	require.NoError(t, err)
	assert.Equal(t, "one two five", b.Transcript)
	assert.Equal(t, 0.6667, b.LyricsScore)
	assert.Len(t, b.ChunkScores, 3)
}

func TestScoreDetailedTakesBestChunk(t *testing.T) {
	f := newFakes().withChunks(3)
	f.refPitch = []models.PitchObservation{note(0, 5, 0.9)}
	f.chunkPitch[0] = []models.PitchObservation{note(0, 9, 0.9)}
	f.chunkPitch[1] = []models.PitchObservation{note(0, 5, 0.9)}
	f.chunkPitch[2] = []models.PitchObservation{note(0, 0, 0.9)}
	f.texts[0] = "test song"

	b, err := f.service(t).ScoreDetailed(context.Background(), []byte("recording"), "take.wav", testSongID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, b.PitchScore)
	assert.Equal(t, 0.0, b.ChunkScores[2])
	assert.Equal(t, 100.0, b.Final)
}

func TestCalculateScoreNoChunks(t *testing.T) {
	f := newFakes().withChunks(0)

	score, err := f.service(t).CalculateScore(context.Background(), []byte("recording"), "take.wav", testSongID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestCalculateScoreNotFound(t *testing.T) {
	f := newFakes()

	_, err := f.service(t).CalculateScore(context.Background(), []byte("recording"), "take.wav", "missing")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
	assert.Equal(t, []string{"lookup"}, f.events)
}

func TestCalculateScoreFetchFailure(t *testing.T) {
	f := newFakes().withChunks(1)
	f.fetchErr = fmt.Errorf("%w: 404 Not Found", errs.ErrFetch)

	_, err := f.service(t).CalculateScore(context.Background(), []byte("recording"), "take.wav", testSongID)
	assert.True(t, errors.Is(err, errs.ErrFetch))
	assert.NotContains(t, f.events, "pitch:ref")
}

func TestCalculateScoreTooShort(t *testing.T) {
	f := newFakes().withChunks(1)
	f.duration = 12.5

	_, err := f.service(t).CalculateScore(context.Background(), []byte("recording"), "take.wav", testSongID)
	assert.True(t, errors.Is(err, errs.ErrRecordingTooShort))
	assert.Equal(t, []string{"lookup", "probe"}, f.events)
}

func TestCalculateScoreMinDurationDisabled(t *testing.T) {
	f := newFakes().withChunks(1)
	f.duration = 1

	_, err := f.service(t, WithMinRecordingSeconds(0)).CalculateScore(context.Background(), []byte("r"), "take.wav", testSongID)
	require.NoError(t, err)
	assert.False(t, f.probed)
}

func TestCalculateScoreAbortsOnAnalysisFailure(t *testing.T) {
	f := newFakes().withChunks(3)
	f.failOnChunk = 1

	score, err := f.service(t).CalculateScore(context.Background(), []byte("recording"), "take.wav", testSongID)
	assert.True(t, errors.Is(err, errs.ErrAnalysisCall))
	assert.Equal(t, 0.0, score)
	assert.NotContains(t, f.events, "pitch:1")
	assert.NotContains(t, f.events, "transcribe:2")
}

func TestCalculateScoreCancelledWhilePacing(t *testing.T) {
	f := newFakes().withChunks(2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service(t).CalculateScore(ctx, []byte("recording"), "take.wav", testSongID)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.NotContains(t, f.events, "transcribe:0")
}

func TestNewServiceRequiresEndpoints(t *testing.T) {
	f := newFakes()

	_, err := NewService(WithLogger(logger.Discard()), WithCatalog(f), WithPitchExtractor(f))
	assert.Error(t, err)

	_, err = NewService(WithLogger(logger.Discard()), WithCatalog(f), WithTranscriber(f))
	assert.Error(t, err)
}

func TestNewServiceOpensOwnCatalog(t *testing.T) {
	svc, err := NewService(
		WithLogger(logger.Discard()),
		WithTranscriptionURL("http://localhost:1/transcribe"),
		WithPitchURL("http://localhost:1/pitch"),
		WithDBPath(filepath.Join(t.TempDir(), "catalog.sqlite3")),
	)
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.CalculateScore(context.Background(), []byte("r"), "take.wav", "unknown")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestReferenceFileName(t *testing.T) {
	assert.Equal(t, "ref.mp3", referenceFileName("https://cdn.example.com/a/ref.mp3?sig=1"))
	assert.Equal(t, "reference.mp3", referenceFileName("https://cdn.example.com/stream"))
	assert.Equal(t, "song.wav", referenceFileName("/var/songs/song.wav"))
}

func TestChunkFileName(t *testing.T) {
	assert.Equal(t, "chunk_002.m4a", chunkFileName("take.m4a", 2))
	assert.Equal(t, "chunk_000.wav", chunkFileName("take", 0))
}

func TestPacingGapFollowsSlowChunk(t *testing.T) {
	const gap = 60 * time.Millisecond
	f := newFakes().withChunks(3)
	f.transcribeDelay = gap + 40*time.Millisecond

	svc := f.service(t, WithPacer(pacing.IntervalFactory(gap)))
	_, err := svc.CalculateScore(context.Background(), []byte("recording"), "take.wav", testSongID)
	require.NoError(t, err)

	require.Len(t, f.transcribeStart, 3)
	require.Len(t, f.pitchDone, 3)
	for i := 1; i < 3; i++ {
		waited := f.transcribeStart[i].Sub(f.pitchDone[i-1])
		assert.GreaterOrEqual(t, waited, gap-10*time.Millisecond, "chunk %d started %s after chunk %d finished", i, waited, i-1)
	}
}

// fakeTools answers ffprobe with a fixed duration and makes ffmpeg write
// ceil(duration/segment_time) chunk files into the requested pattern.
type fakeTools struct{ duration float64 }

func (ft fakeTools) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	switch name {
	case "ffprobe":
		return []byte(fmt.Sprintf(`{"format":{"duration":"%f"}}`, ft.duration)), nil
	case "ffmpeg":
		seg := 0
		for i, a := range args {
			if a == "-segment_time" {
				seg, _ = strconv.Atoi(args[i+1])
			}
		}
		if seg <= 0 {
			return nil, fmt.Errorf("missing -segment_time in %v", args)
		}
		pattern := args[len(args)-1]
		n := int(math.Ceil(ft.duration / float64(seg)))
		for i := 0; i < n; i++ {
			if err := os.WriteFile(fmt.Sprintf(pattern, i), []byte(fmt.Sprintf("chunk-%d", i)), 0o600); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}
	return nil, fmt.Errorf("unexpected tool %s", name)
}

func TestScoreEndToEndWithFakeTools(t *testing.T) {
	asr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"transcription":"test song"}`)
	}))
	defer asr.Close()
	pitch := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"pitch_data":[{"window_start":0,"window_end":1,"average_pitch":5,"average_confidence":0.9}]}`)
	}))
	defer pitch.Close()
	ref := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("reference-audio"))
	}))
	defer ref.Close()

	for _, dur := range []float64{30, 35, 65, 90.5} {
		t.Run(strconv.FormatFloat(dur, 'f', -1, 64), func(t *testing.T) {
			base := t.TempDir()
			tools := fakeTools{duration: dur}
			f := newFakes()
			f.song.AudioURL = ref.URL + "/songs/ref.mp3"

			svc, err := NewService(
				WithLogger(logger.Discard()),
				WithCatalog(f),
				WithTranscriptionURL(asr.URL),
				WithPitchURL(pitch.URL),
				WithPacingDelay(0),
				WithProber(audio.NewFFProbe(audio.WithProbeTempDir(base), audio.WithProbeRunner(tools))),
				WithSegmenter(audio.NewFFmpegSegmenter(audio.WithSegmentTempDir(base), audio.WithSegmentRunner(tools))),
			)
			require.NoError(t, err)
			defer svc.Close()

			b, err := svc.ScoreDetailed(context.Background(), []byte("recording"), "take.wav", testSongID)
			require.NoError(t, err)
			assert.Len(t, b.ChunkScores, int(math.Ceil(dur/30)))
			assert.Equal(t, 100.0, b.Final)

			entries, err := os.ReadDir(base)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestScoreTooShortWithFakeTools(t *testing.T) {
	f := newFakes().withChunks(1)
	svc := f.service(t, WithProber(audio.NewFFProbe(audio.WithProbeTempDir(t.TempDir()), audio.WithProbeRunner(fakeTools{duration: 29.9}))))

	_, err := svc.CalculateScore(context.Background(), []byte("recording"), "take.wav", testSongID)
	assert.True(t, errors.Is(err, errs.ErrRecordingTooShort))
	assert.NotContains(t, f.events, "fetch")
}
