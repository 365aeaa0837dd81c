// Package camera holds the capability wrappers around the physical
// camera: preset recall over the camera's HTTP CGI surface and still
// capture from the RTSP feed via ffmpeg. Both are narrow, failure-prone
// collaborators; policy (retries, serialization, caching) lives in the
// service layer.
package camera

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"ptzcam/internal/logger"
	"ptzcam/internal/models"
)

// Target identifies the camera a command is sent to. The connection
// URL is the configured feed URL; the control host is derived from it.
type Target struct {
	ConnectionURL string
	Username      string
	Secret        string
}

// HTTPController recalls presets through the camera's CGI endpoint
// (Dahua-style ptz.cgi). One instance is shared process-wide; the
// serialization gate lives in the position service, not here.
type HTTPController struct {
	client *http.Client
	log    *logger.Logger
}

const defaultCommandTimeout = 10 * time.Second

func NewHTTPController(log *logger.Logger) *HTTPController {
	return &HTTPController{
		client: &http.Client{Timeout: defaultCommandTimeout},
		log:    log,
	}
}

// GotoPreset issues a single move command and classifies any failure
// as a typed PTZError. No retries.
func (c *HTTPController) GotoPreset(ctx context.Context, target Target, index int) error {
	cmdURL, err := commandURL(target.ConnectionURL, index)
	if err != nil {
		return &models.PTZError{Kind: models.PTZKindRejected, Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cmdURL, nil)
	if err != nil {
		return &models.PTZError{Kind: models.PTZKindRejected, Message: err.Error()}
	}
	req.SetBasicAuth(target.Username, target.Secret)

	c.log.Debugw("ptz_goto_preset", "host", req.URL.Host, "preset", index)

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &models.PTZError{Kind: models.PTZKindAuth, Message: "camera rejected credentials"}
	case resp.StatusCode >= 400:
		return &models.PTZError{
			Kind:    models.PTZKindRejected,
			Message: fmt.Sprintf("camera returned status %d for preset %d", resp.StatusCode, index),
		}
	}
	return nil
}

// commandURL derives the control URL from the configured feed URL.
// The feed is typically rtsp://host:554/...; control runs on the same
// host over plain HTTP.
func commandURL(connectionURL string, index int) (string, error) {
	u, err := url.Parse(connectionURL)
	if err != nil || u.Hostname() == "" {
		return "", fmt.Errorf("cannot derive camera host from %q", maskURL(connectionURL))
	}
	q := url.Values{}
	q.Set("action", "start")
	q.Set("channel", "1")
	q.Set("code", "GotoPreset")
	q.Set("arg1", "0")
	q.Set("arg2", fmt.Sprintf("%d", index))
	q.Set("arg3", "0")
	host := u.Hostname()
	if u.Scheme == "http" || u.Scheme == "https" {
		// Control endpoint given directly; keep a non-standard port.
		host = u.Host
	}
	return fmt.Sprintf("http://%s/cgi-bin/ptz.cgi?%s", host, q.Encode()), nil
}

func classifyTransportError(err error) *models.PTZError {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &models.PTZError{Kind: models.PTZKindTimeout, Message: err.Error()}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return &models.PTZError{Kind: models.PTZKindTimeout, Message: err.Error()}
	}
	return &models.PTZError{Kind: models.PTZKindNetwork, Message: err.Error()}
}

// maskURL hides the password portion of a URL for logging.
func maskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.User != nil {
		if _, has := u.User.Password(); has {
			u.User = url.UserPassword(u.User.Username(), "****")
		}
	}
	return u.String()
}
