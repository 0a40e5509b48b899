// Package store manages the on-disk directory of issued profile files.
// The directory is the only persisted state the bot has.
package store

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	apperrors "vpn-tool-bot/internal/common/errors"
	"vpn-tool-bot/internal/features/profile/models"
)

type Store struct {
	dir        string
	staleAfter time.Duration
}

func New(dir string, staleAfter time.Duration) *Store {
	return &Store{dir: dir, staleAfter: staleAfter}
}

// Dir returns the artifact directory.
func (s *Store) Dir() string {
	return s.dir
}

// Bootstrap creates the artifact directory when missing.
func (s *Store) Bootstrap() error {
	return os.MkdirAll(s.dir, 0o755)
}

// List enumerates issued profiles in lexicographic name order. Index-based
// operations are only valid against the snapshot they were derived from.
// An empty directory is a valid, non-error result.
func (s *Store) List() ([]models.Profile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "read profile directory").
			WithContext("dir", s.dir)
	}

	profiles := make([]models.Profile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), models.Extension) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		profiles = append(profiles, models.Profile{
			Name:      entry.Name(),
			Path:      filepath.Join(s.dir, entry.Name()),
			CreatedAt: info.ModTime(),
		})
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })
	return profiles, nil
}

// FindByOwner returns the profile whose name carries the owner id as its
// prefix token, or nil when none exists. Multiple stale matches resolve to
// the lexicographically first.
func (s *Store) FindByOwner(ownerID int64) (*models.Profile, error) {
	profiles, err := s.List()
	if err != nil {
		return nil, err
	}
	prefix := models.OwnerPrefix(ownerID)
	for _, p := range profiles {
		if strings.HasPrefix(p.Name, prefix) {
			return &p, nil
		}
	}
	return nil, nil
}

// ByIndex resolves a position in the current listing to a profile. The
// index space is only stable against the immediately preceding List call.
func (s *Store) ByIndex(index int) (models.Profile, error) {
	profiles, err := s.List()
	if err != nil {
		return models.Profile{}, err
	}
	if index < 0 || index >= len(profiles) {
		return models.Profile{}, apperrors.NewNotFoundError("profile index", index)
	}
	return profiles[index], nil
}

// IsStale reports whether the profile is too old to reuse and must be
// regenerated.
func (s *Store) IsStale(p models.Profile, now time.Time) bool {
	return now.Sub(p.CreatedAt) >= s.staleAfter
}
