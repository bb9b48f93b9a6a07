package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"jacow_reports/internal/domain"
	"jacow_reports/internal/reporting"
)

type StatisticsService struct {
	events   domain.EventRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewStatisticsService(r domain.EventRepository, c domain.Cache, ttl time.Duration) *StatisticsService {
	return &StatisticsService{events: r, cache: c, cacheTTL: ttl}
}

func abstractStatsKey(eventID int64) string { return fmt.Sprintf("abstract-stats:%d", eventID) }
func reviewerStatsKey(eventID int64) string { return fmt.Sprintf("reviewer-stats:%d", eventID) }

// AbstractStats returns per-track abstract counts, cached for cacheTTL.
func (s *StatisticsService) AbstractStats(ctx context.Context, eventID int64) (reporting.AbstractStatistics, error) {
	key := abstractStatsKey(eventID)
	var out reporting.AbstractStatistics
	if s.cached(ctx, key, &out) {
		return out, nil
	}
	ev, abstracts, err := s.load(ctx, eventID)
	if err != nil {
		return reporting.AbstractStatistics{}, err
	}
	out = reporting.AbstractStats(ev, abstracts)
	s.store(ctx, key, out)
	return out, nil
}

// ReviewerStats returns per-track reviewer activity, cached for cacheTTL.
func (s *StatisticsService) ReviewerStats(ctx context.Context, eventID int64) ([]reporting.ReviewerStatsRow, error) {
	key := reviewerStatsKey(eventID)
	var out []reporting.ReviewerStatsRow
	if s.cached(ctx, key, &out) {
		return out, nil
	}
	ev, abstracts, err := s.load(ctx, eventID)
	if err != nil {
		return nil, err
	}
	out = reporting.ReviewerStats(ev, abstracts)
	s.store(ctx, key, out)
	return out, nil
}

func (s *StatisticsService) load(ctx context.Context, eventID int64) (domain.Event, []domain.Abstract, error) {
	var (
		ev        domain.Event
		abstracts []domain.Abstract
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ev, err = s.events.GetEvent(gctx, eventID)
		return err
	})
	g.Go(func() (err error) {
		abstracts, err = s.events.ListAbstracts(gctx, eventID, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Event{}, nil, err
	}
	return ev, abstracts, nil
}

func (s *StatisticsService) cached(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	ok, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache get failed")
		return false
	}
	return ok
}

func (s *StatisticsService) store(ctx context.Context, key string, v any) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	if err := s.cache.Set(ctx, key, v, int(s.cacheTTL.Seconds())); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

// ExportService builds the custom abstract spreadsheets.
type ExportService struct {
	events  domain.EventRepository
	baseURL string
}

func NewExportService(r domain.EventRepository, baseURL string) *ExportService {
	return &ExportService{events: r, baseURL: strings.TrimRight(baseURL, "/")}
}

// BuildSheet assembles the export for the given abstracts (all of the event
// when ids is empty): base columns, then person, review statistics and URL columns.
func (s *ExportService) BuildSheet(ctx context.Context, eventID int64, ids []int64, cfg reporting.ExportConfig) (reporting.Sheet, error) {
	var (
		ev        domain.Event
		questions []domain.Question
		fields    []domain.ContributionField
		abstracts []domain.Abstract
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ev, err = s.events.GetEvent(gctx, eventID)
		return err
	})
	g.Go(func() (err error) {
		questions, err = s.events.ListQuestions(gctx, eventID)
		return err
	})
	g.Go(func() (err error) {
		fields, err = s.events.ListContributionFields(gctx, eventID)
		return err
	})
	g.Go(func() (err error) {
		abstracts, err = s.events.ListAbstracts(gctx, eventID, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return reporting.Sheet{}, err
	}

	base := reporting.BaseSheet(ev, questions, fields, abstracts, cfg)
	return reporting.ExtendSheet(base, abstracts, questions, s.AbstractURL), nil
}

// AbstractURL is the absolute display URL of an abstract.
func (s *ExportService) AbstractURL(a domain.Abstract) string {
	return fmt.Sprintf("%s/event/%d/abstracts/%d/", s.baseURL, a.EventID, a.ID)
}
