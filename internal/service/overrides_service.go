package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kotyarick/ttgt-schedule-api/internal/models"
	appErrors "github.com/kotyarick/ttgt-schedule-api/pkg/errors"
)

// Clock supplies the current time; injected so the publish-cutoff logic is
// testable.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return realClock{} }

type bulletinFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
	Remove(url string) error
}

type bulletinParser interface {
	ParseBulletin(path string) (map[string]models.BulletinDay, error)
}

// OverridesService owns the bulletin freshness cache and both read views
// over it: per-group and per-teacher. The cached map is replaced wholesale
// on every refresh; readers run concurrently against the last published
// map.
type OverridesService struct {
	fetcher    bulletinFetcher
	parser     bulletinParser
	clock      Clock
	metrics    *MetricsService
	logger     *zap.Logger
	url        string
	cutoffHour int

	mu        sync.RWMutex
	lastFetch time.Time
	data      map[string]models.BulletinDay
}

// NewOverridesService constructs the bulletin cache. cutoffHour is the
// local hour after which a republished bulletin for today is expected.
func NewOverridesService(
	fetcher bulletinFetcher,
	parser bulletinParser,
	clock Clock,
	metrics *MetricsService,
	logger *zap.Logger,
	url string,
	cutoffHour int,
) *OverridesService {
	if clock == nil {
		clock = realClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cutoffHour <= 0 {
		cutoffHour = 15
	}
	return &OverridesService{
		fetcher:    fetcher,
		parser:     parser,
		clock:      clock,
		metrics:    metrics,
		logger:     logger,
		url:        url,
		cutoffHour: cutoffHour,
	}
}

// GroupOverrides returns the overrides published today for one group. A
// group missing from the bulletin gets an empty override list carrying the
// bulletin-wide date metadata.
func (s *OverridesService) GroupOverrides(ctx context.Context, group string) (models.BulletinDay, error) {
	if err := s.ensureFresh(ctx); err != nil {
		return models.BulletinDay{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if day, ok := s.data[group]; ok {
		s.metrics.ObserveBulletinLookup(true)
		return day, nil
	}
	s.metrics.ObserveBulletinLookup(false)

	// The date and week metadata is bulletin-wide, so any present entry
	// supplies it. An entirely empty bulletin yields an empty day.
	day := models.BulletinDay{Overrides: []models.Override{}}
	for _, other := range s.data {
		day.WeekNum = other.WeekNum
		day.WeekDay = other.WeekDay
		day.Day = other.Day
		day.Month = other.Month
		day.Year = other.Year
		break
	}
	return day, nil
}

// TeacherOverrides aggregates today's overrides for one teacher across all
// groups, deduplicating lesson entries that were reconstructed from two
// different rows of the same source table.
func (s *OverridesService) TeacherOverrides(ctx context.Context, teacher string) (models.TeacherBulletinDay, error) {
	if err := s.ensureFresh(ctx); err != nil {
		return models.TeacherBulletinDay{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := models.TeacherBulletinDay{Overrides: []models.TeacherOverride{}}

	groups := make([]string, 0, len(s.data))
	for group := range s.data {
		groups = append(groups, group)
	}
	sort.Strings(groups)

	// Single pass: first occurrence of an index keeps its position, later
	// occurrences merge into it (first non-nil side wins).
	positionByIndex := make(map[int]int)

	for _, group := range groups {
		day := s.data[group]
		out.WeekNum = day.WeekNum
		out.WeekDay = day.WeekDay
		out.Day = day.Day
		out.Month = day.Month
		out.Year = day.Year

		for _, override := range day.Overrides {
			shouldBe := lessonForTeacher(override.ShouldBe, teacher, group)
			willBe := lessonForTeacher(override.WillBe, teacher, group)
			if shouldBe == nil && willBe == nil {
				continue
			}

			entry := models.TeacherOverride{Index: override.Index, ShouldBe: shouldBe, WillBe: willBe}
			if pos, ok := positionByIndex[override.Index]; ok {
				out.Overrides[pos] = mergeTeacherOverrides(out.Overrides[pos], entry)
				continue
			}
			positionByIndex[override.Index] = len(out.Overrides)
			out.Overrides = append(out.Overrides, entry)
		}
	}

	return out, nil
}

// lessonForTeacher projects a lesson onto one teacher. A subgroup-split
// lesson matching by one of its subgroups is re-wrapped as a common lesson
// carrying that subgroup's room.
func lessonForTeacher(lesson *models.Lesson, teacher, group string) *models.TeacherLesson {
	if lesson == nil {
		return nil
	}
	if lesson.Common != nil && lesson.Common.Teacher == teacher {
		common := *lesson.Common
		return &models.TeacherLesson{Common: &common, Group: group}
	}
	if lesson.Subgrouped != nil {
		for _, sub := range lesson.Subgrouped.Subgroups {
			if sub.Teacher == teacher {
				return &models.TeacherLesson{
					Common: &models.CommonLesson{
						Name:    lesson.Subgrouped.Name,
						Teacher: teacher,
						Room:    sub.Room,
					},
					Group: group,
				}
			}
		}
	}
	return nil
}

// mergeTeacherOverrides combines two entries sharing a lesson index. The
// earlier entry's side wins when both are non-nil.
func mergeTeacherOverrides(first, second models.TeacherOverride) models.TeacherOverride {
	merged := first
	if merged.ShouldBe == nil {
		merged.ShouldBe = second.ShouldBe
	}
	if merged.WillBe == nil {
		merged.WillBe = second.WillBe
	}
	return merged
}

// ensureFresh re-fetches and re-parses the bulletin when the freshness
// policy demands it. A failed refresh keeps serving the stale map (and is
// retried on the next call); with nothing cached at all it surfaces as
// BULLETIN_UNAVAILABLE.
func (s *OverridesService) ensureFresh(ctx context.Context) error {
	now := s.clock.Now()

	s.mu.RLock()
	stale := s.needsRefresh(now)
	hasData := s.data != nil
	s.mu.RUnlock()
	if !stale {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-check: another request may have refreshed while we waited.
	if !s.needsRefresh(now) {
		return nil
	}

	fresh, err := s.refresh(ctx)
	if err != nil {
		if hasData {
			s.logger.Warn("bulletin refresh failed, serving stale data", zap.Error(err))
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrBulletinUnavailable.Code,
			appErrors.ErrBulletinUnavailable.Status, appErrors.ErrBulletinUnavailable.Message)
	}

	s.data = fresh
	s.lastFetch = now
	s.metrics.ObserveBulletinRefresh()
	s.logger.Info("bulletin refreshed", zap.Int("groups", len(fresh)))
	return nil
}

// needsRefresh implements the publish-cycle policy: never fetched, day
// rollover, or today's post-cutoff republish not yet observed.
func (s *OverridesService) needsRefresh(now time.Time) bool {
	if s.lastFetch.IsZero() {
		return true
	}
	ly, lm, ld := s.lastFetch.Date()
	ny, nm, nd := now.Date()
	if ly != ny || lm != nm || ld != nd {
		return true
	}
	return now.Hour() >= s.cutoffHour && s.lastFetch.Hour() < s.cutoffHour
}

func (s *OverridesService) refresh(ctx context.Context) (map[string]models.BulletinDay, error) {
	path, err := s.fetcher.Fetch(ctx, s.url)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := s.fetcher.Remove(s.url); err != nil {
			s.logger.Warn("bulletin temp file not removed", zap.Error(err))
		}
	}()

	return s.parser.ParseBulletin(path)
}
