package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/KaraokeScore/pkg/karaoke"
	"github.com/himanishpuri/KaraokeScore/pkg/karaoke/audio"
	"github.com/himanishpuri/KaraokeScore/pkg/karaoke/errs"
	"github.com/himanishpuri/KaraokeScore/pkg/models"
)

func newScoreCmd(a *app) *cobra.Command {
	var (
		songID           string
		transcriptionURL string
		pitchURL         string
		chunkSeconds     int
		minSeconds       float64
		asJSON           bool
	)

	cmd := &cobra.Command{
		Use:   "score <recording>",
		Short: "Score a recording against a reference song",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			flags := cmd.Flags()
			if flags.Changed("transcription-url") {
				cfg.TranscriptionURL = transcriptionURL
			}
			if flags.Changed("pitch-url") {
				cfg.PitchURL = pitchURL
			}
			if flags.Changed("chunk-seconds") {
				cfg.ChunkSeconds = chunkSeconds
			}
			if flags.Changed("min-seconds") {
				cfg.MinRecordingSeconds = minSeconds
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			recording, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read recording: %w", err)
			}

			db, err := a.openCatalog()
			if err != nil {
				return err
			}
			defer db.Close()

			svc, err := karaoke.NewService(append(cfg.ServiceOptions(),
				karaoke.WithCatalog(db),
				karaoke.WithLogger(a.log),
			)...)
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "🎤 Scoring %s (%s)...\n", filepath.Base(args[0]), humanize.Bytes(uint64(len(recording))))

			b, err := svc.ScoreDetailed(ctx, recording, filepath.Base(args[0]), songID)
			if errors.Is(err, errs.ErrRecordingTooShort) {
				fmt.Fprintln(out, "Score: -1 (recording too short)")
				return err
			}
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(b)
			}
			printBreakdown(out, b)
			return nil
		},
	}

	cmd.Flags().StringVarP(&songID, "song", "s", "", "Reference song ID (required)")
	cmd.Flags().StringVar(&transcriptionURL, "transcription-url", "", "Transcription service endpoint")
	cmd.Flags().StringVar(&pitchURL, "pitch-url", "", "Pitch extraction service endpoint")
	cmd.Flags().IntVar(&chunkSeconds, "chunk-seconds", audio.DefaultChunkSeconds, "Chunk length in seconds")
	cmd.Flags().Float64Var(&minSeconds, "min-seconds", 30, "Shortest accepted recording, 0 to disable")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the breakdown as JSON")
	cmd.MarkFlagRequired("song")
	return cmd
}

func printBreakdown(out io.Writer, b *models.ScoreBreakdown) {
	fmt.Fprintf(out, "\n✅ Score: %.2f\n", b.Final)
	fmt.Fprintf(out, "   Pitch:  %.4f (best of %d chunks)\n", b.PitchScore, len(b.ChunkScores))
	fmt.Fprintf(out, "   Lyrics: %.4f\n", b.LyricsScore)
	for i, s := range b.ChunkScores {
		fmt.Fprintf(out, "   chunk %03d  %.4f\n", i, s)
	}
	if b.Transcript != "" {
		fmt.Fprintf(out, "   Heard: %q\n", b.Transcript)
	}
}

func newProbeCmd(a *app) *cobra.Command {
	var wavOnly, details bool

	cmd := &cobra.Command{
		Use:   "probe <file>",
		Short: "Print the duration of an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			ffprobe := audio.NewFFProbe(audio.WithProbeTempDir(a.cfg.TempDir))
			if details && !wavOnly {
				meta, err := ffprobe.Metadata(cmd.Context(), data)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "File:        %s (%s)\n", filepath.Base(args[0]), humanize.Bytes(uint64(len(data))))
				fmt.Fprintf(out, "Duration:    %.2fs\n", meta.DurationSec)
				fmt.Fprintf(out, "Format:      %s / %s\n", meta.Format, meta.Codec)
				fmt.Fprintf(out, "Sample rate: %d Hz, %d channels\n", meta.SampleRate, meta.Channels)
				if meta.Title != "" || meta.Artist != "" {
					fmt.Fprintf(out, "Tags:        %s - %s\n", meta.Artist, meta.Title)
				}
				return nil
			}

			var prober audio.Prober = ffprobe
			if wavOnly {
				prober = audio.WAVProber{}
			}

			dur, err := prober.Duration(cmd.Context(), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %.2fs (%s)\n", filepath.Base(args[0]), dur, humanize.Bytes(uint64(len(data))))
			return nil
		},
	}
	cmd.Flags().BoolVar(&wavOnly, "wav", false, "Read the WAV header instead of running ffprobe")
	cmd.Flags().BoolVar(&details, "details", false, "Show codec, sample rate and tags")
	return cmd
}

func newSegmentCmd(a *app) *cobra.Command {
	var (
		seconds int
		outDir  string
	)

	cmd := &cobra.Command{
		Use:   "segment <file>",
		Short: "Split an audio file into fixed-length chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("seconds") {
				seconds = a.cfg.ChunkSeconds
			}

			seg := audio.NewFFmpegSegmenter(audio.WithSegmentTempDir(a.cfg.TempDir))
			chunks, err := seg.Segment(cmd.Context(), data, filepath.Base(args[0]), seconds)
			if err != nil {
				return err
			}

			return writeChunks(cmd.Context(), cmd.OutOrStdout(), outDir, filepath.Ext(args[0]), chunks)
		},
	}
	cmd.Flags().IntVar(&seconds, "seconds", audio.DefaultChunkSeconds, "Chunk length in seconds")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory to write chunks into")
	return cmd
}

func writeChunks(ctx context.Context, out io.Writer, dir, ext string, chunks []models.AudioChunk) error {
	if ext == "" {
		ext = ".wav"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(dir, fmt.Sprintf("chunk_%03d%s", c.Index, ext))
		if err := os.WriteFile(path, c.Data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s  %s\n", path, humanize.Bytes(uint64(len(c.Data))))
	}
	fmt.Fprintf(out, "Wrote %d chunks\n", len(chunks))
	return nil
}
