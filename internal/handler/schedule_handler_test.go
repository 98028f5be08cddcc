package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotyarick/ttgt-schedule-api/internal/models"
	appErrors "github.com/kotyarick/ttgt-schedule-api/pkg/errors"
)

type timetableServiceMock struct {
	catalog       models.Catalog
	timetable     models.Timetable
	timetableErr  error
	page          string
	pageErr       error
	hasEntity     bool
	refreshErr    error
	jobID         string
	enqueueErr    error
	refreshCalled bool
	enqueueCalled bool
}

func (m *timetableServiceMock) Catalog() models.Catalog { return m.catalog }

func (m *timetableServiceMock) Timetable(name string) (models.Timetable, error) {
	return m.timetable, m.timetableErr
}

func (m *timetableServiceMock) RawPage(name string) (string, error) {
	return m.page, m.pageErr
}

func (m *timetableServiceMock) HasEntity(name string) bool { return m.hasEntity }

func (m *timetableServiceMock) Refresh(ctx context.Context) error {
	m.refreshCalled = true
	return m.refreshErr
}

func (m *timetableServiceMock) EnqueueRefresh() (string, error) {
	m.enqueueCalled = true
	return m.jobID, m.enqueueErr
}

type overridesServiceMock struct {
	groupResp     models.BulletinDay
	groupErr      error
	teacherResp   models.TeacherBulletinDay
	teacherErr    error
	groupCalled   string
	teacherCalled string
}

func (m *overridesServiceMock) GroupOverrides(ctx context.Context, group string) (models.BulletinDay, error) {
	m.groupCalled = group
	return m.groupResp, m.groupErr
}

func (m *overridesServiceMock) TeacherOverrides(ctx context.Context, teacher string) (models.TeacherBulletinDay, error) {
	m.teacherCalled = teacher
	return m.teacherResp, m.teacherErr
}

func newScheduleRouter(timetables timetableService, overrides overridesService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewScheduleHandler(timetables, overrides, nil).Register(r.Group("/api/v1"))
	return r
}

func TestScheduleHandlerItems(t *testing.T) {
	mockTT := &timetableServiceMock{catalog: models.Catalog{
		Groups:   []string{"ТО-21-1"},
		Teachers: []string{"Иванов А.А."},
	}}
	r := newScheduleRouter(mockTT, &overridesServiceMock{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/schedule/items", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data models.Catalog `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"ТО-21-1"}, body.Data.Groups)
	assert.Equal(t, []string{"Иванов А.А."}, body.Data.Teachers)
}

func TestScheduleHandlerTimetableNotFound(t *testing.T) {
	mockTT := &timetableServiceMock{timetableErr: appErrors.ErrNotFound}
	r := newScheduleRouter(mockTT, &overridesServiceMock{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/schedule/СТ-99-9/schedule", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	var body struct {
		Error *appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, appErrors.ErrNotFound.Code, body.Error.Code)
}

func TestScheduleHandlerRawPage(t *testing.T) {
	mockTT := &timetableServiceMock{page: "<html>Расписание</html>"}
	r := newScheduleRouter(mockTT, &overridesServiceMock{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/schedule/ТО-21-1/page", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Расписание")
}

func TestScheduleHandlerOverridesDispatchGroup(t *testing.T) {
	mockOV := &overridesServiceMock{groupResp: models.BulletinDay{
		Overrides: []models.Override{},
		WeekNum:   4,
	}}
	r := newScheduleRouter(&timetableServiceMock{hasEntity: true}, mockOV)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/schedule/ТО-21-1/overrides", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ТО-21-1", mockOV.groupCalled)
	assert.Empty(t, mockOV.teacherCalled)
}

func TestScheduleHandlerOverridesDispatchTeacher(t *testing.T) {
	mockOV := &overridesServiceMock{teacherResp: models.TeacherBulletinDay{
		Overrides: []models.TeacherOverride{},
	}}
	r := newScheduleRouter(&timetableServiceMock{hasEntity: true}, mockOV)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/schedule/Иванов А.А./overrides", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Иванов А.А.", mockOV.teacherCalled)
	assert.Empty(t, mockOV.groupCalled)
}

func TestScheduleHandlerOverridesUnknownEntity(t *testing.T) {
	mockOV := &overridesServiceMock{}
	r := newScheduleRouter(&timetableServiceMock{hasEntity: false}, mockOV)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/schedule/НЕТ-00-0/overrides", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, mockOV.groupCalled)
	assert.Empty(t, mockOV.teacherCalled)
}

func TestScheduleHandlerOverridesBulletinUnavailable(t *testing.T) {
	mockOV := &overridesServiceMock{groupErr: appErrors.ErrBulletinUnavailable}
	r := newScheduleRouter(&timetableServiceMock{hasEntity: true}, mockOV)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/schedule/ТО-21-1/overrides", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestScheduleHandlerRefreshQueued(t *testing.T) {
	mockTT := &timetableServiceMock{jobID: "job-1"}
	r := newScheduleRouter(mockTT, &overridesServiceMock{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/schedule/refresh", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.True(t, mockTT.enqueueCalled)
	assert.False(t, mockTT.refreshCalled)
	assert.Contains(t, w.Body.String(), "job-1")
}

func TestScheduleHandlerRefreshSync(t *testing.T) {
	mockTT := &timetableServiceMock{}
	r := newScheduleRouter(mockTT, &overridesServiceMock{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/schedule/refresh", bytes.NewBufferString(`{"sync":true}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockTT.refreshCalled)
	assert.False(t, mockTT.enqueueCalled)
}

func TestScheduleHandlerRefreshInvalidBody(t *testing.T) {
	mockTT := &timetableServiceMock{}
	r := newScheduleRouter(mockTT, &overridesServiceMock{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/schedule/refresh", bytes.NewBufferString(`{"sync":`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockTT.refreshCalled)
	assert.False(t, mockTT.enqueueCalled)
}
