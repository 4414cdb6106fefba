package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/himanishpuri/KaraokeScore/pkg/karaoke/errs"
	"github.com/himanishpuri/KaraokeScore/pkg/models"
)

// setupTestDB creates a client on a temporary database file.
func setupTestDB(t *testing.T) (*DBClient, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test_karaoke.sqlite3")
	t.Setenv("KARAOKE_DB_PATH", dbPath)

	client, err := NewDBClient()
	if err != nil {
		t.Fatalf("Failed to create test DB client: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	return client, dbPath
}

func testSong() models.SongInput {
	return models.SongInput{
		Title:       "Test Song",
		Artist:      "Test Artist",
		AudioURL:    "https://cdn.example.com/test.mp3",
		Lyrics:      "Hélló, World! \"Sing\"   along.",
		DurationSec: 182.5,
	}
}

func TestNewDBClient(t *testing.T) {
	client, dbPath := setupTestDB(t)

	if client.DB == nil {
		t.Fatal("Expected non-nil GORM DB handle")
	}
	if client.db == nil {
		t.Fatal("Expected non-nil sql.DB handle")
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("Database file was not created at %s", dbPath)
	}
}

func TestNewDBClientWithCustomPath(t *testing.T) {
	customPath := filepath.Join(t.TempDir(), "subdir", "custom.db")

	client, err := NewDBClientWithPath(customPath)
	if err != nil {
		t.Fatalf("Failed to create DB with custom path: %v", err)
	}
	defer client.Close()

	if _, err := os.Stat(customPath); os.IsNotExist(err) {
		t.Errorf("Database file was not created at custom path %s", customPath)
	}
}

func TestRegisterSong(t *testing.T) {
	client, _ := setupTestDB(t)

	songID, err := client.RegisterSong(testSong())
	if err != nil {
		t.Fatalf("Failed to register song: %v", err)
	}
	if songID == "" {
		t.Fatal("Expected non-empty song ID")
	}

	song, err := client.GetSongByID(songID)
	if err != nil {
		t.Fatalf("Failed to retrieve registered song: %v", err)
	}
	if song.Title != "Test Song" || song.Artist != "Test Artist" {
		t.Errorf("Unexpected title/artist: %q / %q", song.Title, song.Artist)
	}
	if song.AudioURL != "https://cdn.example.com/test.mp3" {
		t.Errorf("Unexpected audio URL %q", song.AudioURL)
	}
	if song.DurationSec != 182.5 {
		t.Errorf("Expected duration 182.5, got %v", song.DurationSec)
	}
}

func TestRegisterSongNormalizesLyrics(t *testing.T) {
	client, _ := setupTestDB(t)

	songID, err := client.RegisterSong(testSong())
	if err != nil {
		t.Fatalf("Failed to register song: %v", err)
	}

	song, err := client.GetSong(context.Background(), songID)
	if err != nil {
		t.Fatalf("GetSong failed: %v", err)
	}
	if song.Lyrics != "hello world sing along" {
		t.Errorf("Expected normalized lyrics, got %q", song.Lyrics)
	}
}

func TestRegisterSongIdempotent(t *testing.T) {
	client, _ := setupTestDB(t)

	id1, err := client.RegisterSong(testSong())
	if err != nil {
		t.Fatalf("Failed to register song first time: %v", err)
	}
	id2, err := client.RegisterSong(testSong())
	if err != nil {
		t.Fatalf("Failed to register song second time: %v", err)
	}
	if id1 != id2 {
		t.Errorf("Expected same song ID for duplicate registration, got %s and %s", id1, id2)
	}

	var count int64
	client.DB.Model(&Song{}).Count(&count)
	if count != 1 {
		t.Errorf("Expected 1 song in database, found %d", count)
	}
}

func TestRegisterSongValidation(t *testing.T) {
	client, _ := setupTestDB(t)

	in := testSong()
	in.Title = ""
	if _, err := client.RegisterSong(in); err == nil {
		t.Error("Expected error for missing title")
	}

	in = testSong()
	in.AudioURL = " "
	if _, err := client.RegisterSong(in); err == nil {
		t.Error("Expected error for missing audio URL")
	}
}

func TestGetSongNotFound(t *testing.T) {
	client, _ := setupTestDB(t)

	_, err := client.GetSong(context.Background(), "00000000-0000-0000-0000-000000000000")
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListSongs(t *testing.T) {
	client, _ := setupTestDB(t)

	for _, title := range []string{"One", "Two", "Three"} {
		in := testSong()
		in.Title = title
		if _, err := client.RegisterSong(in); err != nil {
			t.Fatalf("Failed to register %s: %v", title, err)
		}
	}

	songs, err := client.ListSongs()
	if err != nil {
		t.Fatalf("ListSongs failed: %v", err)
	}
	if len(songs) != 3 {
		t.Errorf("Expected 3 songs, got %d", len(songs))
	}
}

func TestDeleteSongByID(t *testing.T) {
	client, _ := setupTestDB(t)

	songID, err := client.RegisterSong(testSong())
	if err != nil {
		t.Fatalf("Failed to register song: %v", err)
	}
	if err := client.DeleteSongByID(songID); err != nil {
		t.Fatalf("Failed to delete song: %v", err)
	}
	if _, err := client.GetSongByID(songID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Expected song to be gone, got %v", err)
	}
	if err := client.DeleteSongByID(songID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestNilClient(t *testing.T) {
	var client *DBClient
	if err := client.Close(); err != nil {
		t.Errorf("Close on nil client should be a no-op, got %v", err)
	}
	if _, err := client.RegisterSong(testSong()); err == nil {
		t.Error("Expected error from nil client")
	}
}
