package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/himanishpuri/KaraokeScore/pkg/karaoke/compare"
	"github.com/himanishpuri/KaraokeScore/pkg/karaoke/errs"
	"github.com/himanishpuri/KaraokeScore/pkg/models"
)

const DefaultDBFile = "karaoke.sqlite3"
const errDBClientNil = "db client is nil"

// DBClient is the reference-song catalog. The scoring engine only reads from it.
type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

type Song struct {
	ID          string  `gorm:"primaryKey;type:varchar(36)"`
	Title       string  `gorm:"uniqueIndex:idx_song_unique,priority:1" json:"title"`
	Artist      string  `gorm:"uniqueIndex:idx_song_unique,priority:2" json:"artist"`
	AudioURL    string  `json:"audio_url"`
	Lyrics      string  `json:"lyrics"`
	DurationSec float64 `json:"duration_sec"`
	CreatedAt   time.Time
}

func (s Song) toModel() *models.ReferenceSong {
	return &models.ReferenceSong{
		ID:          s.ID,
		Title:       s.Title,
		Artist:      s.Artist,
		AudioURL:    s.AudioURL,
		Lyrics:      s.Lyrics,
		DurationSec: s.DurationSec,
		CreatedAt:   s.CreatedAt,
	}
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("KARAOKE_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Song{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// RegisterSong stores a reference song and returns its id. Lyrics are normalized here,
// once, so scoring never re-normalizes the reference side. Registering the same
// title and artist again returns the existing id.
func (c *DBClient) RegisterSong(in models.SongInput) (string, error) {
	if c == nil || c.DB == nil {
		return "", errors.New(errDBClientNil)
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Artist) == "" {
		return "", errors.New("title and artist are required")
	}
	if strings.TrimSpace(in.AudioURL) == "" {
		return "", errors.New("audio_url is required")
	}

	var song Song
	err := c.DB.Where("title = ? AND artist = ?", in.Title, in.Artist).First(&song).Error
	if err == nil {
		return song.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("querying existing song: %w", err)
	}

	song = Song{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Artist:      in.Artist,
		AudioURL:    in.AudioURL,
		Lyrics:      compare.NormalizeLyrics(in.Lyrics),
		DurationSec: in.DurationSec,
	}
	if err := c.DB.Create(&song).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
			if fetchErr := c.DB.Where("title = ? AND artist = ?", in.Title, in.Artist).First(&song).Error; fetchErr != nil {
				return "", fmt.Errorf("fetching song after constraint violation: %w", fetchErr)
			}
			return song.ID, nil
		}
		return "", fmt.Errorf("creating song: %w", err)
	}

	return song.ID, nil
}

// GetSong implements the engine's catalog lookup.
func (c *DBClient) GetSong(ctx context.Context, songID string) (*models.ReferenceSong, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var song Song
	err := c.DB.WithContext(ctx).Where("id = ?", songID).First(&song).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", errs.ErrNotFound, songID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying song: %w", err)
	}
	return song.toModel(), nil
}

func (c *DBClient) GetSongByID(songID string) (*models.ReferenceSong, error) {
	return c.GetSong(context.Background(), songID)
}

func (c *DBClient) ListSongs() ([]models.ReferenceSong, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var rows []Song
	if err := c.DB.Order("created_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing songs: %w", err)
	}
	out := make([]models.ReferenceSong, len(rows))
	for i, r := range rows {
		out[i] = *r.toModel()
	}
	return out, nil
}

func (c *DBClient) DeleteSongByID(songID string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	res := c.DB.Where("id = ?", songID).Delete(&Song{})
	if res.Error != nil {
		return fmt.Errorf("deleting song: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", errs.ErrNotFound, songID)
	}
	return nil
}
