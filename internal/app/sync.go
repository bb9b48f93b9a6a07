package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"jacow_reports/internal/adapters/observability"
	"jacow_reports/internal/domain"
)

const SyncSetting = "sync_enabled"

// SyncReport summarises one profile sync run.
type SyncReport struct {
	RunID     string
	Disabled  bool
	Refreshed int
	Failed    int
	Linked    int
	Skipped   int
}

type ProfileSyncService struct {
	repo     domain.SyncRepository
	dir      domain.ProfileDirectory
	provider string
	workers  int64
}

func NewProfileSyncService(r domain.SyncRepository, d domain.ProfileDirectory, provider string, workers int) *ProfileSyncService {
	if workers <= 0 {
		workers = 1
	}
	return &ProfileSyncService{repo: r, dir: d, provider: provider, workers: int64(workers)}
}

// Run refreshes users linked to the sync provider, then links unlinked users
// whose email matches exactly one directory profile.
func (s *ProfileSyncService) Run(ctx context.Context) (SyncReport, error) {
	rep := SyncReport{RunID: uuid.NewString()}
	logger := log.With().Str("run", rep.RunID).Logger()

	enabled, err := s.repo.SettingEnabled(ctx, SyncSetting)
	if err != nil {
		return rep, fmt.Errorf("read %s: %w", SyncSetting, err)
	}
	if !enabled {
		logger.Info().Msg("Profile sync is disabled")
		rep.Disabled = true
		return rep, nil
	}

	logger.Info().Str("provider", s.provider).Msg("Synchronizing profiles with central database")
	if err := s.refresh(ctx, &rep); err != nil {
		return rep, err
	}
	if err := s.link(ctx, &rep); err != nil {
		return rep, err
	}
	logger.Info().
		Int("refreshed", rep.Refreshed).
		Int("failed", rep.Failed).
		Int("linked", rep.Linked).
		Int("skipped", rep.Skipped).
		Msg("Sync finished")
	return rep, nil
}

// refresh updates every linked user from the directory with bounded concurrency.
func (s *ProfileSyncService) refresh(ctx context.Context, rep *SyncReport) error {
	users, err := s.repo.ListIdentityUsers(ctx, s.provider)
	if err != nil {
		return fmt.Errorf("list synced users: %w", err)
	}

	sem := semaphore.NewWeighted(s.workers)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, ui := range users {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(ui domain.UserIdentity) {
			defer wg.Done()
			defer sem.Release(1)

			outcome := s.refreshOne(ctx, ui)
			observability.ObserveSync("refresh", outcome)
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case "ok":
				rep.Refreshed++
			case "failed":
				rep.Failed++
			default:
				rep.Skipped++
			}
		}(ui)
	}
	wg.Wait()
	return ctx.Err()
}

func (s *ProfileSyncService) refreshOne(ctx context.Context, ui domain.UserIdentity) string {
	l := log.With().Int64("user", ui.User.ID).Str("identifier", ui.Identity.Identifier).Logger()

	raw, err := s.dir.GetProfile(ctx, ui.Identity.Identifier)
	if errors.Is(err, domain.ErrNotFound) {
		l.Debug().Msg("profile not in directory")
		return "missing"
	}
	if err != nil {
		l.Warn().Err(err).Msg("profile fetch failed")
		return "failed"
	}
	p, ok := mapProfile(raw)
	if !ok {
		l.Warn().Msg("profile without identifier")
		return "failed"
	}
	if err := s.repo.UpdateProfile(ctx, ui.User.ID, p); err != nil {
		l.Warn().Err(err).Msg("profile update failed")
		return "failed"
	}
	return "ok"
}

// link adds an identity to users found by exact email; zero or several
// directory hits leave the user untouched.
func (s *ProfileSyncService) link(ctx context.Context, rep *SyncReport) error {
	users, err := s.repo.ListUsersWithoutIdentity(ctx, s.provider)
	if err != nil {
		return fmt.Errorf("list unlinked users: %w", err)
	}
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		if u.Email == "" {
			rep.Skipped++
			continue
		}
		hits, err := s.dir.SearchByEmail(ctx, u.Email)
		if err != nil {
			log.Warn().Err(err).Int64("user", u.ID).Msg("directory search failed")
			rep.Failed++
			observability.ObserveSync("link", "failed")
			continue
		}
		if len(hits) != 1 {
			rep.Skipped++
			observability.ObserveSync("link", "skipped")
			continue
		}
		p, ok := mapProfile(hits[0])
		if !ok {
			rep.Skipped++
			observability.ObserveSync("link", "skipped")
			continue
		}
		id := domain.Identity{UserID: u.ID, Provider: s.provider, Identifier: p.Identifier, Data: p.RawJSON}
		if err := s.repo.AddIdentity(ctx, id); err != nil {
			log.Warn().Err(err).Int64("user", u.ID).Msg("adding identity failed")
			rep.Failed++
			observability.ObserveSync("link", "failed")
			continue
		}
		log.Info().Int64("user", u.ID).Str("identifier", p.Identifier).Msg("Adding identity")
		rep.Linked++
		observability.ObserveSync("link", "ok")
	}
	return nil
}
