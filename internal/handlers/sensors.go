package handlers

import (
	"net/http"

	"multizone_thermostat/internal/models"

	"github.com/gin-gonic/gin"
)

// UpdateSensorRequest is the payload of PUT /api/v1/sensors/{id}.
type UpdateSensorRequest struct {
	Name    string `json:"name" example:"Living room"`
	Enabled *bool  `json:"enabled" binding:"required" example:"true"`
}

// @Summary      List sensors
// @Tags         sensors
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, sensors"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/sensors [get]
// @Security     BearerAuth
func (h *Handler) listSensors(c *gin.Context) {
	list, err := h.services.ListSensors(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "failed to load sensors", "sensors_list_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(list), "sensors": list})
}

// @Summary      Update sensor
// @Description  Rename or enable/disable a registered sensor. Disabled sensors are excluded from the system temperature.
// @Tags         sensors
// @Accept       json
// @Produce      json
// @Param        id    path      string               true  "Sensor id"
// @Param        body  body      UpdateSensorRequest  true  "Sensor payload"
// @Success      200   {object}  models.SensorConfig
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/sensors/{id} [put]
// @Security     BearerAuth
func (h *Handler) updateSensor(c *gin.Context) {
	var req UpdateSensorRequest
	if !h.bindJSONOrBadRequest(c, &req) {
		return
	}
	sc := models.SensorConfig{SensorID: c.Param("id"), Name: req.Name, Enabled: *req.Enabled}
	if err := h.services.UpdateSensor(c.Request.Context(), sc); err != nil {
		h.respondError(c, err, "failed to update sensor", "sensor_update_failed", "sensor_id", sc.SensorID)
		return
	}
	c.JSON(http.StatusOK, sc)
}
