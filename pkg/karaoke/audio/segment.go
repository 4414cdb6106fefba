package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/himanishpuri/KaraokeScore/pkg/karaoke/errs"
	"github.com/himanishpuri/KaraokeScore/pkg/models"
)

// DefaultChunkSeconds is the segment length used when none is given.
const DefaultChunkSeconds = 30

// Segmenter splits an audio buffer into fixed-duration chunks, oldest first.
type Segmenter interface {
	Segment(ctx context.Context, data []byte, fileName string, chunkSeconds int) ([]models.AudioChunk, error)
}

var _ Segmenter = (*FFmpegSegmenter)(nil)

// FFmpegSegmenter cuts audio with ffmpeg's segment muxer in stream-copy mode.
// Every temp file it creates is gone by the time Segment returns.
type FFmpegSegmenter struct {
	binary  string
	tempDir string
	runner  CommandRunner
}

// SegmentOption configures an FFmpegSegmenter.
type SegmentOption func(*FFmpegSegmenter)

// WithSegmentBinary overrides the ffmpeg executable.
func WithSegmentBinary(path string) SegmentOption {
	return func(s *FFmpegSegmenter) {
		s.binary = path
	}
}

// WithSegmentTempDir sets the base directory for per-call scopes.
func WithSegmentTempDir(dir string) SegmentOption {
	return func(s *FFmpegSegmenter) {
		s.tempDir = dir
	}
}

// WithSegmentRunner replaces command execution.
func WithSegmentRunner(r CommandRunner) SegmentOption {
	return func(s *FFmpegSegmenter) {
		s.runner = r
	}
}

func NewFFmpegSegmenter(opts ...SegmentOption) *FFmpegSegmenter {
	s := &FFmpegSegmenter{
		binary: "ffmpeg",
		runner: DefaultRunner(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const chunkPrefix = "chunk_"

// Segment splits data into chunkSeconds-long chunks. chunkSeconds <= 0 means DefaultChunkSeconds.
func (s *FFmpegSegmenter) Segment(ctx context.Context, data []byte, fileName string, chunkSeconds int) ([]models.AudioChunk, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", errs.ErrSegment)
	}
	if chunkSeconds <= 0 {
		chunkSeconds = DefaultChunkSeconds
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		ext = ".wav"
	}

	var chunks []models.AudioChunk
	err := WithTempScope(s.tempDir, "karaoke-segment-*", func(scope *TempScope) error {
		in, err := scope.WriteFile("input"+ext, data)
		if err != nil {
			return err
		}

		pattern := filepath.Join(scope.Dir(), chunkPrefix+"%03d"+ext)
		if _, err := s.runner.Output(ctx, s.binary,
			"-y",
			"-v", "error",
			"-i", in,
			"-f", "segment",
			"-segment_time", strconv.Itoa(chunkSeconds),
			"-c", "copy",
			"-reset_timestamps", "1",
			pattern,
		); err != nil {
			return err
		}
		if err := scope.Remove(in); err != nil {
			return err
		}

		chunks, err = readChunks(scope, ext)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrSegment, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks produced", errs.ErrSegment)
	}
	return chunks, nil
}

type chunkFile struct {
	index int
	path  string
}

// readChunks loads chunk files in index order, deleting each one right after it is read.
func readChunks(scope *TempScope, ext string) ([]models.AudioChunk, error) {
	entries, err := os.ReadDir(scope.Dir())
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}

	var files []chunkFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, chunkPrefix) || filepath.Ext(name) != ext {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, chunkPrefix), ext))
		if err != nil {
			continue
		}
		files = append(files, chunkFile{index: idx, path: filepath.Join(scope.Dir(), name)})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].index < files[j].index })

	chunks := make([]models.AudioChunk, 0, len(files))
	for i, f := range files {
		b, err := os.ReadFile(f.path)
		if err != nil {
			return nil, fmt.Errorf("reading chunk %d: %w", f.index, err)
		}
		if err := scope.Remove(f.path); err != nil {
			return nil, fmt.Errorf("removing chunk %d: %w", f.index, err)
		}
		chunks = append(chunks, models.AudioChunk{Index: i, Data: b})
	}
	return chunks, nil
}
