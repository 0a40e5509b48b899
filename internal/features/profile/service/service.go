// Package service implements the issuance workflow: decide between reuse,
// regenerate and create, and drive the external install script.
package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	apperrors "vpn-tool-bot/internal/common/errors"
	"vpn-tool-bot/internal/common/logger"
	"vpn-tool-bot/internal/features/profile/models"
	"vpn-tool-bot/internal/features/profile/store"
	"vpn-tool-bot/internal/utils/sanitize"
)

// ScriptRunner is the external issuance script boundary.
type ScriptRunner interface {
	Create(ctx context.Context, client string) error
	Revoke(ctx context.Context, client string) error
	AutoInstall(ctx context.Context) error
}

type Service struct {
	store  *store.Store
	runner ScriptRunner

	// now is swapped in tests.
	now func() time.Time

	// Issuance for the same owner must never run concurrently: two script
	// invocations could leave two artifacts or corrupt the certificate
	// index. Per-owner locks; contention is expected to be negligible.
	mu     sync.Mutex
	owners map[int64]*sync.Mutex
}

func New(st *store.Store, runner ScriptRunner) *Service {
	return &Service{
		store:  st,
		runner: runner,
		now:    time.Now,
		owners: make(map[int64]*sync.Mutex),
	}
}

func (s *Service) ownerLock(ownerID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.owners[ownerID]
	if !ok {
		lock = &sync.Mutex{}
		s.owners[ownerID] = lock
	}
	return lock
}

// EnsureProfile returns the caller's profile, reusing a fresh one, replacing
// a stale one (revoke first, then create) or creating from scratch.
func (s *Service) EnsureProfile(ctx context.Context, caller models.Caller) (models.Profile, error) {
	lock := s.ownerLock(caller.ID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.store.FindByOwner(caller.ID)
	if err != nil {
		return models.Profile{}, err
	}

	now := s.now()
	if existing != nil {
		if !s.store.IsStale(*existing, now) {
			logger.Debug().
				Int64("owner_id", caller.ID).
				Str("profile", existing.Name).
				Msg("Reusing existing profile")
			return *existing, nil
		}
		// Revoke before creating so two credentials for the same owner
		// are never active at once. The script clears the old file.
		if err := s.runner.Revoke(ctx, existing.Identifier()); err != nil {
			return models.Profile{}, err
		}
		logger.Info().
			Int64("owner_id", caller.ID).
			Str("profile", existing.Name).
			Msg("Stale profile revoked")
	}

	identifier := newIdentifier(caller, now)
	if err := s.runner.Create(ctx, identifier); err != nil {
		return models.Profile{}, err
	}

	path := filepath.Join(s.store.Dir(), identifier+models.Extension)
	info, err := os.Stat(path)
	if err != nil {
		return models.Profile{}, apperrors.NewIssuanceError("create", fmt.Errorf("script succeeded but %s is missing", path)).
			WithUserID(caller.ID)
	}

	logger.Info().
		Int64("owner_id", caller.ID).
		Str("profile", identifier+models.Extension).
		Msg("Profile issued")
	return models.Profile{
		Name:      identifier + models.Extension,
		Path:      path,
		CreatedAt: info.ModTime(),
	}, nil
}

// List enumerates issued profiles.
func (s *Service) List(ctx context.Context) ([]models.Profile, error) {
	return s.store.List()
}

// RevokeByIndex revokes the profile at the given position of the current
// listing and returns its name. The index is only meaningful against the
// listing the admin just saw; the directory may have changed in between.
func (s *Service) RevokeByIndex(ctx context.Context, index int) (string, error) {
	p, err := s.store.ByIndex(index)
	if err != nil {
		return "", err
	}
	// The script owns the certificate index; once it succeeds the
	// artifact is gone regardless of what the filesystem mirror shows.
	if err := s.runner.Revoke(ctx, p.Identifier()); err != nil {
		return "", err
	}
	logger.Info().Str("profile", p.Name).Int("index", index).Msg("Profile revoked")
	return p.Name, nil
}

// BulkInstall runs the unattended server installation.
func (s *Service) BulkInstall(ctx context.Context) error {
	return s.runner.AutoInstall(ctx)
}

// newIdentifier builds the client identifier for a fresh profile. The
// sanitizer is load-bearing here: the result reaches the filesystem and the
// install script environment.
func newIdentifier(caller models.Caller, now time.Time) string {
	return sanitize.Clean(fmt.Sprintf("id%d_%s_%s_%s_%d",
		caller.ID, caller.Username, caller.FirstName, caller.LastName, now.UnixMilli()))
}
