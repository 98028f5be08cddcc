package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotyarick/ttgt-schedule-api/internal/models"
	"github.com/kotyarick/ttgt-schedule-api/internal/parser"
	appErrors "github.com/kotyarick/ttgt-schedule-api/pkg/errors"
	"github.com/kotyarick/ttgt-schedule-api/pkg/jobs"
)

type archiveSourceMock struct {
	path  string
	err   error
	calls int
}

func (m *archiveSourceMock) Retrieve(ctx context.Context) (string, error) {
	m.calls++
	return m.path, m.err
}

type archiveParserMock struct {
	snap  *parser.Snapshot
	err   error
	calls int
}

func (m *archiveParserMock) ParseArchive(path string) (*parser.Snapshot, error) {
	m.calls++
	return m.snap, m.err
}

type memStore struct {
	values map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{values: map[string][]byte{}}
}

func (m *memStore) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memStore) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	return nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	delete(m.values, key)
	return nil
}

func sampleSnapshot() *parser.Snapshot {
	return &parser.Snapshot{
		Catalog: models.Catalog{
			Groups:   []string{"ТО-21-1"},
			Teachers: []string{"Иванов А.А."},
		},
		Timetables: map[string]models.Timetable{
			"ТО-21-1":     {Weeks: []models.Week{{Days: []models.Day{{}}}}},
			"Иванов А.А.": {},
		},
		Pages: map[string]string{
			"ТО-21-1":     "<html>расписание</html>",
			"Иванов А.А.": "<html>страница</html>",
		},
	}
}

func TestTimetableServiceRefreshPublishesAndPersists(t *testing.T) {
	store := newMemStore()
	source := &archiveSourceMock{path: "/tmp/schedule.zip"}
	archParser := &archiveParserMock{snap: sampleSnapshot()}
	svc := NewTimetableService(source, archParser, store, nil)

	require.NoError(t, svc.Refresh(context.Background()))

	catalog := svc.Catalog()
	assert.Equal(t, []string{"ТО-21-1"}, catalog.Groups)
	assert.Equal(t, []string{"Иванов А.А."}, catalog.Teachers)

	tt, err := svc.Timetable("ТО-21-1")
	require.NoError(t, err)
	assert.Len(t, tt.Weeks, 1)

	page, err := svc.RawPage("ТО-21-1")
	require.NoError(t, err)
	assert.Contains(t, page, "html")

	assert.True(t, svc.HasEntity("Иванов А.А."))
	assert.False(t, svc.HasEntity("СТ-22-2"))

	assert.Len(t, store.values, 3)
}

func TestTimetableServiceUnknownEntity(t *testing.T) {
	svc := NewTimetableService(&archiveSourceMock{}, &archiveParserMock{}, nil, nil)

	_, err := svc.Timetable("СТ-22-2")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, err = svc.RawPage("СТ-22-2")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestTimetableServiceLoadRestoresFromStore(t *testing.T) {
	store := newMemStore()
	first := NewTimetableService(&archiveSourceMock{path: "/tmp/schedule.zip"}, &archiveParserMock{snap: sampleSnapshot()}, store, nil)
	require.NoError(t, first.Refresh(context.Background()))

	source := &archiveSourceMock{err: errors.New("unreachable")}
	second := NewTimetableService(source, &archiveParserMock{}, store, nil)
	second.Load(context.Background())

	assert.Equal(t, 0, source.calls)
	assert.True(t, second.HasEntity("ТО-21-1"))
}

func TestTimetableServiceLoadFallsBackToRefresh(t *testing.T) {
	store := newMemStore()
	source := &archiveSourceMock{path: "/tmp/schedule.zip"}
	archParser := &archiveParserMock{snap: sampleSnapshot()}
	svc := NewTimetableService(source, archParser, store, nil)

	svc.Load(context.Background())

	assert.Equal(t, 1, source.calls)
	assert.True(t, svc.HasEntity("ТО-21-1"))
}

func TestTimetableServiceLoadSurvivesMissingArchive(t *testing.T) {
	source := &archiveSourceMock{err: errors.New("no export yet")}
	svc := NewTimetableService(source, &archiveParserMock{}, newMemStore(), nil)

	svc.Load(context.Background())

	catalog := svc.Catalog()
	assert.Empty(t, catalog.Groups)
	assert.NotNil(t, catalog.Groups)
	assert.NotNil(t, catalog.Teachers)
}

func TestTimetableServiceRefreshKeepsSnapshotOnFailure(t *testing.T) {
	store := newMemStore()
	archParser := &archiveParserMock{snap: sampleSnapshot()}
	source := &archiveSourceMock{path: "/tmp/schedule.zip"}
	svc := NewTimetableService(source, archParser, store, nil)
	require.NoError(t, svc.Refresh(context.Background()))

	archParser.err = errors.New("corrupt archive")
	require.Error(t, svc.Refresh(context.Background()))
	assert.True(t, svc.HasEntity("ТО-21-1"))
}

func TestTimetableServiceEnqueueRefresh(t *testing.T) {
	svc := NewTimetableService(&archiveSourceMock{path: "/tmp/schedule.zip"}, &archiveParserMock{snap: sampleSnapshot()}, nil, nil)

	_, err := svc.EnqueueRefresh()
	require.Error(t, err)

	done := make(chan struct{}, 1)
	queue := jobs.NewQueue("archive-refresh", func(ctx context.Context, job jobs.Job) error {
		err := svc.Refresh(ctx)
		done <- struct{}{}
		return err
	}, jobs.QueueConfig{Workers: 1})
	svc.AttachQueue(queue)
	queue.Start(context.Background())
	defer queue.Stop()

	jobID, err := svc.EnqueueRefresh()
	require.NoError(t, err)
	assert.NotEmpty(t, jobID)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh job did not run")
	}
	assert.True(t, svc.HasEntity("ТО-21-1"))
}
