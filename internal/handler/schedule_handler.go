package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/kotyarick/ttgt-schedule-api/internal/models"
	appErrors "github.com/kotyarick/ttgt-schedule-api/pkg/errors"
	"github.com/kotyarick/ttgt-schedule-api/pkg/response"
)

type timetableService interface {
	Catalog() models.Catalog
	Timetable(name string) (models.Timetable, error)
	RawPage(name string) (string, error)
	HasEntity(name string) bool
	Refresh(ctx context.Context) error
	EnqueueRefresh() (string, error)
}

type overridesService interface {
	GroupOverrides(ctx context.Context, group string) (models.BulletinDay, error)
	TeacherOverrides(ctx context.Context, teacher string) (models.TeacherBulletinDay, error)
}

// RefreshScheduleRequest controls a forced archive rebuild.
type RefreshScheduleRequest struct {
	// Sync runs the rebuild inline instead of queueing it.
	Sync bool `json:"sync"`
}

// ScheduleHandler exposes the parsed schedule model over HTTP.
type ScheduleHandler struct {
	timetables timetableService
	overrides  overridesService
	validator  *validator.Validate
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(timetables timetableService, overrides overridesService, validate *validator.Validate) *ScheduleHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &ScheduleHandler{timetables: timetables, overrides: overrides, validator: validate}
}

// Register mounts the schedule routes on the given group.
func (h *ScheduleHandler) Register(rg *gin.RouterGroup) {
	schedule := rg.Group("/schedule")
	schedule.GET("/items", h.Items)
	schedule.GET("/:item/schedule", h.Timetable)
	schedule.GET("/:item/page", h.RawPage)
	schedule.GET("/:item/overrides", h.Overrides)
	schedule.POST("/refresh", h.Refresh)
}

// Items godoc
// @Summary List groups and teachers
// @Tags Schedule
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedule/items [get]
func (h *ScheduleHandler) Items(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.timetables.Catalog())
}

// Timetable godoc
// @Summary Get the base timetable of a group or teacher
// @Tags Schedule
// @Produce json
// @Param item path string true "Group or teacher name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedule/{item}/schedule [get]
func (h *ScheduleHandler) Timetable(c *gin.Context) {
	item, err := h.itemParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	timetable, err := h.timetables.Timetable(item)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetable)
}

// RawPage godoc
// @Summary Get the raw export page of a group or teacher
// @Tags Schedule
// @Produce html
// @Param item path string true "Group or teacher name"
// @Success 200 {string} string
// @Failure 404 {object} response.Envelope
// @Router /schedule/{item}/page [get]
func (h *ScheduleHandler) RawPage(c *gin.Context) {
	item, err := h.itemParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, err := h.timetables.RawPage(item)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

// Overrides godoc
// @Summary Get today's substitutions for a group or teacher
// @Description A name containing a hyphen is treated as a group, anything else as a teacher.
// @Tags Schedule
// @Produce json
// @Param item path string true "Group or teacher name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /schedule/{item}/overrides [get]
func (h *ScheduleHandler) Overrides(c *gin.Context) {
	item, err := h.itemParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	// "Unknown entity" must stay distinct from "no overrides today".
	if !h.timetables.HasEntity(item) {
		response.Error(c, appErrors.ErrNotFound)
		return
	}

	if strings.Contains(item, "-") {
		day, err := h.overrides.GroupOverrides(c.Request.Context(), item)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, day)
		return
	}

	day, err := h.overrides.TeacherOverrides(c.Request.Context(), item)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, day)
}

// Refresh godoc
// @Summary Force a rebuild of the timetable archive
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body RefreshScheduleRequest false "Refresh options"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /schedule/refresh [post]
func (h *ScheduleHandler) Refresh(c *gin.Context) {
	var req RefreshScheduleRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid refresh payload"))
			return
		}
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid refresh payload"))
		return
	}

	if req.Sync {
		if err := h.timetables.Refresh(c.Request.Context()); err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, gin.H{"status": "refreshed"})
		return
	}

	jobID, err := h.timetables.EnqueueRefresh()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, gin.H{"job_id": jobID})
}

func (h *ScheduleHandler) itemParam(c *gin.Context) (string, error) {
	item := c.Param("item")
	if err := h.validator.Var(item, "required,max=64"); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid entity name")
	}
	return item, nil
}
