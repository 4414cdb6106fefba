package karaoke

import (
	"context"

	"github.com/himanishpuri/KaraokeScore/pkg/models"
)

// Service scores karaoke performances against reference songs.
type Service interface {
	// CalculateScore returns a score in [0,100] for one recording of songID.
	CalculateScore(ctx context.Context, recording []byte, fileName, songID string) (float64, error)
	// ScoreDetailed runs the same pipeline and also returns the intermediate scores.
	ScoreDetailed(ctx context.Context, recording []byte, fileName, songID string) (*models.ScoreBreakdown, error)
	Close() error
}

// Catalog resolves reference songs. Unknown ids return an error matching errs.ErrNotFound.
type Catalog interface {
	GetSong(ctx context.Context, songID string) (*models.ReferenceSong, error)
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
