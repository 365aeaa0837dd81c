package handlers

import (
	"errors"
	"net/http"

	"ptzcam/internal/models"

	"github.com/gin-gonic/gin"
)

// @Summary      Capture a frame now
// @Description  Forces a capture regardless of cache freshness; shares any capture already in flight
// @Tags         capture
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      502  {object}  map[string]string
// @Failure      504  {object}  map[string]string
// @Router       /capture/capture_now [get]
func (h *Handler) captureNow(c *gin.Context) {
	frame, err := h.services.Cycle.CaptureNow(c.Request.Context())
	if err != nil {
		code := http.StatusBadGateway
		if errors.Is(err, models.ErrCaptureTimeout) {
			code = http.StatusGatewayTimeout
		}
		h.logAndJSONError(c, code, err.Error(), "capture_now_failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      statusOK,
		"captured_at": frame.CapturedAt,
		"bytes":       len(frame.Data),
	})
}

// @Summary      Latest captured frame
// @Tags         capture
// @Produce      jpeg
// @Success      200  {file}    binary
// @Failure      404  {object}  map[string]string
// @Router       /capture/latest.jpg [get]
func (h *Handler) latestJPEG(c *gin.Context) {
	// served from the cache, which reloads latest.jpg from disk at
	// startup; no fresh capture is triggered here, stale is fine
	frame, ok := h.services.Cache.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"status": statusError, "message": "no frame captured yet"})
		return
	}
	c.Data(http.StatusOK, jpegContentType, frame.Data)
}
