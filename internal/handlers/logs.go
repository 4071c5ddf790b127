package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"multizone_thermostat/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid   = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"
	errRange       = "'from' must be <= 'to'"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

// queryRange reads the optional from/to query parameters. A date-only 'to' is
// the end of that day. On failure it writes a 400 and returns false.
func queryRange(c *gin.Context) (from, to time.Time, ok bool) {
	var err error
	if qs := c.Query("from"); qs != "" {
		if from, err = parseQueryTime(qs); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errFromInvalid})
			return from, to, false
		}
	}
	if qs := c.Query("to"); qs != "" {
		if to, err = parseQueryTime(qs); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errToInvalid})
			return from, to, false
		}
		if isDateOnly(qs) {
			to = to.Add(24*time.Hour - time.Nanosecond).UTC()
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": errRange})
		return from, to, false
	}
	return from, to, true
}

// @Summary      List audit events
// @Description  Filter events by date (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). If 'to' is date-only, it is treated as end-of-day inclusive.
// @Tags         logs
// @Produce      json
// @Param        from  query   string  false  "Start of range"  example(2025-08-01)
// @Param        to    query   string  false  "End of range. Date-only treated as end of day."  example(2025-08-31)
// @Param        type  query   string  false  "Event type"  Enums(STARTUP,SHUTDOWN,SETTING_CHANGE,SCHEDULE_APPLIED,HOLD_CHANGE,STAGE_CHANGE,SENSOR_COMPROMISED,SENSOR_CLEARED,SENSOR_FAULT,INTERLOCK_VIOLATION,ERROR)
// @Success      200   {object}  map[string]interface{}  "count, events"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/logs [get]
// @Security     BearerAuth
func (h *Handler) getLogs(c *gin.Context) {
	from, to, ok := queryRange(c)
	if !ok {
		return
	}
	eventType := strings.ToUpper(strings.TrimSpace(c.Query("type")))
	events, err := h.services.EventLog.List(c.Request.Context(), service.LogFilter{
		From: from,
		To:   to,
		Type: eventType,
	})
	if err != nil {
		h.respondError(c, err, "failed to load logs", "logs_list_failed", "from", from, "to", to, "type", eventType)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(events),
		"events": events,
	})
}

// @Summary      Sensor history
// @Tags         history
// @Produce      json
// @Param        id    path    string  true   "Sensor id"
// @Param        from  query   string  false  "Start of range"
// @Param        to    query   string  false  "End of range"
// @Success      200   {object}  map[string]interface{}  "count, records"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/history/sensors/{id} [get]
// @Security     BearerAuth
func (h *Handler) sensorHistory(c *gin.Context) {
	from, to, ok := queryRange(c)
	if !ok {
		return
	}
	id := c.Param("id")
	recs, err := h.services.SensorHistory(c.Request.Context(), id, service.HistoryFilter{From: from, To: to})
	if err != nil {
		h.respondError(c, err, "failed to load history", "sensor_history_failed", "sensor_id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(recs), "records": recs})
}

// @Summary      HVAC history
// @Tags         history
// @Produce      json
// @Param        from  query   string  false  "Start of range"
// @Param        to    query   string  false  "End of range"
// @Success      200   {object}  map[string]interface{}  "count, records"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/history/hvac [get]
// @Security     BearerAuth
func (h *Handler) hvacHistory(c *gin.Context) {
	from, to, ok := queryRange(c)
	if !ok {
		return
	}
	recs, err := h.services.HVACHistory(c.Request.Context(), service.HistoryFilter{From: from, To: to})
	if err != nil {
		h.respondError(c, err, "failed to load history", "hvac_history_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(recs), "records": recs})
}

// @Summary      Setting history
// @Tags         history
// @Produce      json
// @Param        from  query   string  false  "Start of range"
// @Param        to    query   string  false  "End of range"
// @Success      200   {object}  map[string]interface{}  "count, records"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/history/settings [get]
// @Security     BearerAuth
func (h *Handler) settingHistory(c *gin.Context) {
	from, to, ok := queryRange(c)
	if !ok {
		return
	}
	recs, err := h.services.SettingHistory(c.Request.Context(), service.HistoryFilter{From: from, To: to})
	if err != nil {
		h.respondError(c, err, "failed to load history", "setting_history_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(recs), "records": recs})
}

func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf(
		"invalid time format %q, expected one of: "+
			"RFC3339 (e.g. 2025-08-27T15:04:05Z), "+
			"'YYYY-MM-DD HH:MM:SS', "+
			"'YYYY-MM-DD'",
		s,
	)
}
