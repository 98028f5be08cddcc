package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kotyarick/ttgt-schedule-api/internal/fetch"
	"github.com/kotyarick/ttgt-schedule-api/internal/models"
	"github.com/kotyarick/ttgt-schedule-api/internal/parser"
	appErrors "github.com/kotyarick/ttgt-schedule-api/pkg/errors"
	"github.com/kotyarick/ttgt-schedule-api/pkg/jobs"
	"github.com/kotyarick/ttgt-schedule-api/pkg/store"
)

// Logical names of the persisted parse artifacts.
const (
	keyCatalog    = "schedule:catalog"
	keyTimetables = "schedule:timetables"
	keyPages      = "schedule:pages"
)

// JobTypeArchiveRefresh identifies queued archive rebuilds.
const JobTypeArchiveRefresh = "archive_refresh"

type archiveParser interface {
	ParseArchive(path string) (*parser.Snapshot, error)
}

// TimetableService owns the archive-derived snapshot: the entity catalog,
// every entity's base timetable, and the raw source pages. The snapshot is
// immutable once published; a rebuild assembles a new one off to the side
// and swaps the reference, so reads never block.
type TimetableService struct {
	source  fetch.ArchiveSource
	parser  archiveParser
	storage store.Store
	queue   *jobs.Queue
	logger  *zap.Logger

	snap atomic.Pointer[parser.Snapshot]
}

// NewTimetableService constructs the service with an empty snapshot.
func NewTimetableService(source fetch.ArchiveSource, archParser archiveParser, storage store.Store, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &TimetableService{
		source:  source,
		parser:  archParser,
		storage: storage,
		logger:  logger,
	}
	s.snap.Store(emptySnapshot())
	return s
}

// AttachQueue wires the background queue used for forced refreshes. The
// queue's handler must call Refresh.
func (s *TimetableService) AttachQueue(queue *jobs.Queue) {
	s.queue = queue
}

// Load restores the persisted parse artifacts, falling back to a full
// archive parse when they are absent. Starting with no archive at all is
// not fatal: the service serves NOT_FOUND until a refresh succeeds.
func (s *TimetableService) Load(ctx context.Context) {
	snap := &parser.Snapshot{}
	if err := s.loadArtifacts(ctx, snap); err == nil {
		s.snap.Store(snap)
		s.logger.Info("timetables restored from store",
			zap.Int("groups", len(snap.Catalog.Groups)),
			zap.Int("teachers", len(snap.Catalog.Teachers)),
		)
		return
	} else if !appErrors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("persisted timetables unreadable", zap.Error(err))
	}

	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("initial archive parse skipped", zap.Error(err))
	}
}

// Refresh retrieves the current export, re-parses it, persists the three
// artifacts and publishes the new snapshot.
func (s *TimetableService) Refresh(ctx context.Context) error {
	path, err := s.source.Retrieve(ctx)
	if err != nil {
		return err
	}

	snap, err := s.parser.ParseArchive(path)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "parse archive")
	}

	s.persist(ctx, snap)
	s.snap.Store(snap)
	return nil
}

// EnqueueRefresh schedules an archive rebuild off the request path and
// returns the job ID.
func (s *TimetableService) EnqueueRefresh() (string, error) {
	if s.queue == nil {
		return "", appErrors.Wrap(nil, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "refresh queue not attached")
	}
	job := jobs.Job{
		ID:       uuid.NewString(),
		Type:     JobTypeArchiveRefresh,
		Enqueued: time.Now().UTC(),
	}
	if err := s.queue.Enqueue(job); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "enqueue archive refresh")
	}
	return job.ID, nil
}

// Catalog lists the known groups and teachers.
func (s *TimetableService) Catalog() models.Catalog {
	catalog := s.snap.Load().Catalog
	if catalog.Groups == nil {
		catalog.Groups = []string{}
	}
	if catalog.Teachers == nil {
		catalog.Teachers = []string{}
	}
	return catalog
}

// Timetable returns the base timetable of one entity.
func (s *TimetableService) Timetable(name string) (models.Timetable, error) {
	timetable, ok := s.snap.Load().Timetables[name]
	if !ok {
		return models.Timetable{}, appErrors.ErrNotFound
	}
	return timetable, nil
}

// RawPage returns the untouched source markup of one entity's export page.
func (s *TimetableService) RawPage(name string) (string, error) {
	page, ok := s.snap.Load().Pages[name]
	if !ok {
		return "", appErrors.ErrNotFound
	}
	return page, nil
}

// HasEntity reports whether the name is present in the catalog.
func (s *TimetableService) HasEntity(name string) bool {
	_, ok := s.snap.Load().Timetables[name]
	return ok
}

func (s *TimetableService) loadArtifacts(ctx context.Context, snap *parser.Snapshot) error {
	if s.storage == nil {
		return appErrors.ErrCacheMiss
	}
	if err := s.storage.Get(ctx, keyCatalog, &snap.Catalog); err != nil {
		return err
	}
	if err := s.storage.Get(ctx, keyTimetables, &snap.Timetables); err != nil {
		return err
	}
	return s.storage.Get(ctx, keyPages, &snap.Pages)
}

func (s *TimetableService) persist(ctx context.Context, snap *parser.Snapshot) {
	if s.storage == nil {
		return
	}
	for key, value := range map[string]interface{}{
		keyCatalog:    snap.Catalog,
		keyTimetables: snap.Timetables,
		keyPages:      snap.Pages,
	} {
		if err := s.storage.Set(ctx, key, value); err != nil {
			// Persistence is an optimization for the next process start;
			// the in-memory snapshot is still published.
			s.logger.Warn("parse artifact not persisted", zap.String("key", key), zap.Error(err))
		}
	}
}

func emptySnapshot() *parser.Snapshot {
	return &parser.Snapshot{
		Timetables: map[string]models.Timetable{},
		Pages:      map[string]string{},
	}
}
