package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/himanishpuri/KaraokeScore/pkg/models"
)

// songsFile is the layout read by "songs import".
type songsFile struct {
	Songs []models.SongInput `yaml:"songs"`
}

func newSongsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "songs",
		Short: "Manage the reference song catalog",
	}
	cmd.AddCommand(
		newSongsAddCmd(a),
		newSongsListCmd(a),
		newSongsGetCmd(a),
		newSongsDeleteCmd(a),
		newSongsImportCmd(a),
	)
	return cmd
}

func newSongsAddCmd(a *app) *cobra.Command {
	var in models.SongInput
	var lyricsFile string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a reference song",
		Example: `  karaoke songs add --title "Hello" --artist "Adele" \
    --audio-url https://cdn.example.com/hello.mp3 --lyrics-file hello.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if lyricsFile != "" {
				b, err := os.ReadFile(lyricsFile)
				if err != nil {
					return fmt.Errorf("failed to read lyrics: %w", err)
				}
				in.Lyrics = string(b)
			}

			db, err := a.openCatalog()
			if err != nil {
				return err
			}
			defer db.Close()

			id, err := db.RegisterSong(in)
			if err != nil {
				return err
			}
			a.log.Infof("Registered %s by %s", in.Title, in.Artist)
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Song registered: %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Title, "title", "", "Song title (required)")
	cmd.Flags().StringVar(&in.Artist, "artist", "", "Artist name (required)")
	cmd.Flags().StringVar(&in.AudioURL, "audio-url", "", "Reference audio URL or local path (required)")
	cmd.Flags().StringVar(&in.Lyrics, "lyrics", "", "Lyrics text")
	cmd.Flags().StringVar(&lyricsFile, "lyrics-file", "", "Read lyrics from a file")
	cmd.Flags().Float64Var(&in.DurationSec, "duration", 0, "Duration in seconds")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("artist")
	cmd.MarkFlagRequired("audio-url")
	return cmd
}

func newSongsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered songs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openCatalog()
			if err != nil {
				return err
			}
			defer db.Close()

			songs, err := db.ListSongs()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(songs) == 0 {
				fmt.Fprintln(out, "No songs in catalog")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tARTIST\tDURATION\tADDED")
			for _, s := range songs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.0fs\t%s\n", s.ID, s.Title, s.Artist, s.DurationSec, humanize.Time(s.CreatedAt))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nTotal: %d songs\n", len(songs))
			return nil
		},
	}
}

func newSongsGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one song",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openCatalog()
			if err != nil {
				return err
			}
			defer db.Close()

			s, err := db.GetSongByID(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:       %s\n", s.ID)
			fmt.Fprintf(out, "Title:    %s\n", s.Title)
			fmt.Fprintf(out, "Artist:   %s\n", s.Artist)
			fmt.Fprintf(out, "Audio:    %s\n", s.AudioURL)
			fmt.Fprintf(out, "Duration: %.0fs\n", s.DurationSec)
			fmt.Fprintf(out, "Lyrics:   %s\n", s.Lyrics)
			return nil
		},
	}
}

func newSongsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a song from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openCatalog()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.DeleteSongByID(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🗑  Deleted song %s\n", args[0])
			return nil
		},
	}
}

func newSongsImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Register every song listed in a YAML file",
		Long: `Register every song listed in a YAML file of the form:

  songs:
    - title: Hello
      artist: Adele
      audio_url: https://cdn.example.com/hello.mp3
      lyrics: |
        Hello, it's me
      duration_sec: 295`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			var doc songsFile
			if err := yaml.NewDecoder(f).Decode(&doc); err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[0], err)
			}
			if len(doc.Songs) == 0 {
				return errors.New("no songs found in file")
			}

			db, err := a.openCatalog()
			if err != nil {
				return err
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			var failed []string
			for _, in := range doc.Songs {
				id, err := db.RegisterSong(in)
				if err != nil {
					a.log.Warnf("Skipping %q: %v", in.Title, err)
					failed = append(failed, in.Title)
					continue
				}
				fmt.Fprintf(out, "  %s  %s - %s\n", id, in.Artist, in.Title)
			}

			fmt.Fprintf(out, "Imported %d of %d songs\n", len(doc.Songs)-len(failed), len(doc.Songs))
			if len(failed) > 0 {
				return fmt.Errorf("failed to import: %s", strings.Join(failed, ", "))
			}
			return nil
		},
	}
}
