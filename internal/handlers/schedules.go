package handlers

import (
	"net/http"
	"strconv"

	"multizone_thermostat/internal/models"

	"github.com/gin-gonic/gin"
)

// EnableSchedulesRequest is the payload of POST /api/v1/schedules/enable.
type EnableSchedulesRequest struct {
	Enabled *bool `json:"enabled" binding:"required" example:"true"`
}

func scheduleID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule id"})
		return 0, false
	}
	return id, true
}

// @Summary      List schedules
// @Tags         schedules
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, schedules"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/schedules [get]
// @Security     BearerAuth
func (h *Handler) listSchedules(c *gin.Context) {
	list, err := h.services.ListSchedules(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "failed to load schedules", "schedules_list_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(list), "schedules": list})
}

// @Summary      Create schedule
// @Description  days_of_week accepts "Mon,Tue" or digits with 0 = Monday.
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        body  body      models.Schedule  true  "Schedule"
// @Success      201   {object}  models.Schedule
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/schedules [post]
// @Security     BearerAuth
func (h *Handler) createSchedule(c *gin.Context) {
	var s models.Schedule
	if !h.bindJSONOrBadRequest(c, &s) {
		return
	}
	created, err := h.services.CreateSchedule(c.Request.Context(), s)
	if err != nil {
		h.respondError(c, err, "failed to create schedule", "schedule_create_failed", "name", s.Name)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// @Summary      Update schedule
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        id    path      int              true  "Schedule id"
// @Param        body  body      models.Schedule  true  "Schedule"
// @Success      200   {object}  models.Schedule
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/schedules/{id} [put]
// @Security     BearerAuth
func (h *Handler) updateSchedule(c *gin.Context) {
	id, ok := scheduleID(c)
	if !ok {
		return
	}
	var s models.Schedule
	if !h.bindJSONOrBadRequest(c, &s) {
		return
	}
	s.ID = id
	updated, err := h.services.UpdateSchedule(c.Request.Context(), s)
	if err != nil {
		h.respondError(c, err, "failed to update schedule", "schedule_update_failed", "id", id)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// @Summary      Delete schedule
// @Tags         schedules
// @Param        id   path  int  true  "Schedule id"
// @Success      204
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/schedules/{id} [delete]
// @Security     BearerAuth
func (h *Handler) deleteSchedule(c *gin.Context) {
	id, ok := scheduleID(c)
	if !ok {
		return
	}
	if err := h.services.DeleteSchedule(c.Request.Context(), id); err != nil {
		h.respondError(c, err, "failed to delete schedule", "schedule_delete_failed", "id", id)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary      Resume schedules
// @Description  Ends a manual hold. No effect while schedules are disabled.
// @Tags         schedules
// @Produce      json
// @Success      200  {object}  service.Ack
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/schedules/resume [post]
// @Security     BearerAuth
func (h *Handler) resumeSchedules(c *gin.Context) {
	ack, err := h.services.ResumeSchedules(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "failed to resume schedules", "schedules_resume_failed")
		return
	}
	c.JSON(http.StatusOK, ack)
}

// @Summary      Enable or disable schedules
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        body  body      EnableSchedulesRequest  true  "Enable payload"
// @Success      200   {object}  service.Ack
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/schedules/enable [post]
// @Security     BearerAuth
func (h *Handler) enableSchedules(c *gin.Context) {
	var req EnableSchedulesRequest
	if !h.bindJSONOrBadRequest(c, &req) {
		return
	}
	ack, err := h.services.EnableSchedules(c.Request.Context(), *req.Enabled)
	if err != nil {
		h.respondError(c, err, "failed to change schedules", "schedules_enable_failed", "enabled", *req.Enabled)
		return
	}
	c.JSON(http.StatusOK, ack)
}
