package handlers

import (
	"net/http"

	"multizone_thermostat/internal/models"

	"github.com/gin-gonic/gin"
)

const statusOK = "ok"

// SetTemperatureRequest is the payload of POST /api/v1/thermostat/temperature.
type SetTemperatureRequest struct {
	// Which setpoint to change. Allowed: heat, cool
	Kind string `json:"kind" binding:"required" example:"heat"`
	// New setpoint value
	Value *float64 `json:"value" binding:"required" example:"70"`
	// Units of value (F, C or K). Defaults to F.
	Units string `json:"units,omitempty" example:"F"`
}

// SetModeRequest is the payload of POST /api/v1/thermostat/mode.
type SetModeRequest struct {
	// Allowed: heat, cool, auto, off
	Mode string `json:"mode" binding:"required" example:"heat"`
}

// SetFanRequest is the payload of POST /api/v1/thermostat/fan.
type SetFanRequest struct {
	On *bool `json:"on" binding:"required" example:"true"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Current status
// @Description  Aggregated temperature, per-sensor readings, active stages, setpoints and hold state.
// @Tags         thermostat
// @Produce      json
// @Param        units  query  string  false  "Render temperatures in F, C or K"  Enums(F,C,K)
// @Success      200  {object}  models.StatusSnapshot
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/status [get]
// @Security     BearerAuth
func (h *Handler) getStatus(c *gin.Context) {
	st, err := h.services.Status(c.Query("units"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Set temperature
// @Description  Manual setpoint change. Starts a schedule hold while schedules are enabled.
// @Tags         thermostat
// @Accept       json
// @Produce      json
// @Param        body  body      SetTemperatureRequest  true  "Setpoint payload"
// @Success      200   {object}  service.Ack
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/thermostat/temperature [post]
// @Security     BearerAuth
func (h *Handler) setTemperature(c *gin.Context) {
	var req SetTemperatureRequest
	if !h.bindJSONOrBadRequest(c, &req) {
		return
	}
	value := *req.Value
	if req.Units != "" {
		v, err := models.ConvertTemperature(value, req.Units, models.UnitF)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		value = v
	}
	ack, err := h.services.SetTemperature(c.Request.Context(), models.StageKind(req.Kind), value)
	if err != nil {
		h.respondError(c, err, "failed to set temperature", "set_temperature_failed", "kind", req.Kind, "value", value)
		return
	}
	c.JSON(http.StatusOK, ack)
}

// @Summary      Set mode
// @Tags         thermostat
// @Accept       json
// @Produce      json
// @Param        body  body      SetModeRequest  true  "Mode payload"
// @Success      200   {object}  service.Ack
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/thermostat/mode [post]
// @Security     BearerAuth
func (h *Handler) setMode(c *gin.Context) {
	var req SetModeRequest
	if !h.bindJSONOrBadRequest(c, &req) {
		return
	}
	ack, err := h.services.SetMode(c.Request.Context(), req.Mode)
	if err != nil {
		h.respondError(c, err, "failed to set mode", "set_mode_failed", "mode", req.Mode)
		return
	}
	c.JSON(http.StatusOK, ack)
}

// @Summary      Set fan
// @Description  on forces the fan relay; off returns it to auto.
// @Tags         thermostat
// @Accept       json
// @Produce      json
// @Param        body  body      SetFanRequest  true  "Fan payload"
// @Success      200   {object}  service.Ack
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/thermostat/fan [post]
// @Security     BearerAuth
func (h *Handler) setFan(c *gin.Context) {
	var req SetFanRequest
	if !h.bindJSONOrBadRequest(c, &req) {
		return
	}
	ack, err := h.services.SetFan(c.Request.Context(), *req.On)
	if err != nil {
		h.respondError(c, err, "failed to set fan", "set_fan_failed", "on", *req.On)
		return
	}
	c.JSON(http.StatusOK, ack)
}
