package handlers

import (
	"errors"
	"net/http"
	"strings"

	"ptzcam/internal/models"

	"github.com/gin-gonic/gin"
)

const jpegContentType = "image/jpeg"

// @Summary      Snapshot from the feed
// @Description  Serves the cached frame when fresh; otherwise joins the single in-flight capture
// @Tags         stream
// @Produce      jpeg
// @Param        force_refresh  query  bool    false  "Bypass the freshness window"
// @Param        rtsp_url       query  string  false  "Override the configured feed URL"
// @Success      200  {file}    binary
// @Failure      502  {object}  map[string]string
// @Failure      504  {object}  map[string]string
// @Router       /stream/snapshot [get]
func (h *Handler) snapshot(c *gin.Context) {
	force := parseBoolParam(c.Query("force_refresh"))
	sourceURL := c.Query("rtsp_url")

	frame, err := h.services.Cache.Get(c.Request.Context(), force, sourceURL)
	if err != nil {
		code := http.StatusBadGateway
		if errors.Is(err, models.ErrCaptureTimeout) {
			code = http.StatusGatewayTimeout
		}
		h.logAndJSONError(c, code, err.Error(), "snapshot_failed", err, "force_refresh", force)
		return
	}

	c.Data(http.StatusOK, jpegContentType, frame.Data)
}

// @Summary      Cache status
// @Tags         stream
// @Produce      json
// @Success      200  {object}  models.CacheStatus
// @Router       /stream/cache [get]
func (h *Handler) cacheStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Cache.Status())
}

func parseBoolParam(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
