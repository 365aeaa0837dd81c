package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"ptzcam/internal/models"
	"ptzcam/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK      = "ok"
	statusError   = "error"
	statusWarning = "warning"

	errInvalidPresetIndex = "invalid preset index"
	errGetStatus          = "failed to load status"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"status": statusError, "message": userMsg})
}

// ptzStatusCode maps a move failure to an HTTP status.
func ptzStatusCode(err error) int {
	var pe *models.PTZError
	if errors.As(err, &pe) && pe.Kind == models.PTZKindRejected {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	st, err := h.services.Monitoring.GetStatus(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetStatus, "health_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": st.Status})
}

// @Summary      Move camera to preset
// @Tags         ptz
// @Produce      json
// @Param        index  path  int  true  "Preset index"
// @Success      200  {object}  map[string]interface{}  "status, message, preset"
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /ptz/goto/{index} [get]
func (h *Handler) gotoPreset(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": statusError, "message": errInvalidPresetIndex})
		return
	}

	if err := h.services.Cycle.GotoPreset(c.Request.Context(), index); err != nil {
		h.logAndJSONError(c, ptzStatusCode(err), err.Error(), "ptz_goto_failed", err, "preset", index)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  statusOK,
		"message": "camera moved to preset " + strconv.Itoa(index),
		"preset":  index,
	})
}

// @Summary      Start automatic cycle
// @Tags         ptz
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /ptz/start [get]
func (h *Handler) startCycle(c *gin.Context) {
	if !h.services.Cycle.Start(c.Request.Context()) {
		c.JSON(http.StatusOK, gin.H{"status": statusWarning, "message": "cycle is already running"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK, "message": "cycle started"})
}

// @Summary      Stop automatic cycle
// @Tags         ptz
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /ptz/stop [get]
func (h *Handler) stopCycle(c *gin.Context) {
	if !h.services.Cycle.Stop(c.Request.Context()) {
		c.JSON(http.StatusOK, gin.H{"status": statusWarning, "message": "cycle is not running"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK, "message": "cycle stopping"})
}

// @Summary      Toggle automatic mode
// @Tags         ptz
// @Produce      json
// @Param        state  path  string  true  "on or off"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /ptz/automatic/{state} [get]
func (h *Handler) setAutomaticMode(c *gin.Context) {
	var enabled bool
	switch strings.ToLower(c.Param("state")) {
	case "on", "true", "1":
		enabled = true
	case "off", "false", "0":
		enabled = false
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  statusError,
			"message": "invalid state " + c.Param("state") + ": use 'on' or 'off'",
		})
		return
	}

	if err := h.services.Cycle.SetAutomaticMode(c.Request.Context(), enabled); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to change mode", "automatic_mode_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK, "automatic_mode": enabled})
}

// @Summary      List configured presets
// @Tags         ptz
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /ptz/presets [get]
func (h *Handler) listPresets(c *gin.Context) {
	cfg := h.services.Config.Get()
	c.JSON(http.StatusOK, gin.H{
		"status":  statusOK,
		"presets": cfg.Presets,
	})
}

// @Summary      Status snapshot
// @Tags         ptz
// @Produce      json
// @Success      200  {object}  models.StatusSnapshot
// @Failure      500  {object}  map[string]string
// @Router       /ptz/status [get]
func (h *Handler) ptzStatus(c *gin.Context) {
	st, err := h.services.Monitoring.GetStatus(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetStatus, "ptz_status_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Update configuration
// @Description  Partial form update; omitted fields are unchanged, a blank password keeps the stored credential
// @Tags         ptz
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        home_preset      formData  int     false  "Home preset (0-4)"
// @Param        dwell_time       formData  int     false  "Dwell seconds (5-300)"
// @Param        home_dwell_time  formData  int     false  "Home dwell seconds (10-3600)"
// @Param        capture_delay    formData  int     false  "Capture delay seconds (1-60)"
// @Param        connection_url   formData  string  false  "Camera feed URL"
// @Param        username         formData  string  false  "Camera username"
// @Param        password         formData  string  false  "Camera password"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /ptz/config [post]
func (h *Handler) updateConfig(c *gin.Context) {
	update, err := configUpdateFromForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": statusError, "message": err.Error()})
		return
	}

	cfg, err := h.services.Config.Update(c.Request.Context(), update)
	if err != nil {
		var ve *models.ValidationError
		if errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, gin.H{"status": statusError, "message": ve.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to update configuration", "config_update_failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  statusOK,
		"message": "configuration updated",
		"config":  cfg,
	})
}

// configUpdateFromForm collects the optional form fields; only fields
// present in the request are applied.
func configUpdateFromForm(c *gin.Context) (service.ConfigUpdate, error) {
	var u service.ConfigUpdate

	intField := func(name string, dst **int) error {
		v, ok := c.GetPostForm(name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("invalid " + name + ": not a number")
		}
		*dst = &n
		return nil
	}

	for _, f := range []struct {
		name string
		dst  **int
	}{
		{"home_preset", &u.HomePreset},
		{"dwell_time", &u.DwellTime},
		{"home_dwell_time", &u.HomeDwellTime},
		{"capture_delay", &u.CaptureDelay},
	} {
		if err := intField(f.name, f.dst); err != nil {
			return service.ConfigUpdate{}, err
		}
	}

	if v, ok := c.GetPostForm("connection_url"); ok {
		u.ConnectionURL = &v
	}
	if v, ok := c.GetPostForm("username"); ok {
		u.Username = &v
	}
	if v, ok := c.GetPostForm("password"); ok {
		u.Secret = &v // blank values are ignored by the store
	}
	return u, nil
}
