package camera

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"ptzcam/internal/logger"
	"ptzcam/internal/models"
)

// FFmpegGrabber pulls a single JPEG frame out of the RTSP feed by
// shelling out to ffmpeg. Every call opens its own transient
// connection; callers are expected to deduplicate concurrent grabs
// (the snapshot cache's single-flight does).
type FFmpegGrabber struct {
	binary  string
	timeout time.Duration
	log     *logger.Logger
}

const (
	defaultFFmpegBinary = "ffmpeg"
	defaultGrabTimeout  = 20 * time.Second
	stderrTailForErrors = 400
)

func NewFFmpegGrabber(binary string, timeout time.Duration, log *logger.Logger) *FFmpegGrabber {
	if binary == "" {
		binary = defaultFFmpegBinary
	}
	if timeout <= 0 {
		timeout = defaultGrabTimeout
	}
	return &FFmpegGrabber{binary: binary, timeout: timeout, log: log}
}

// Capture blocks until one frame is decoded or the timeout elapses.
// No internal retry.
func (g *FFmpegGrabber) Capture(ctx context.Context, sourceURL string) ([]byte, error) {
	if strings.TrimSpace(sourceURL) == "" {
		return nil, &models.CaptureError{Reason: "empty source URL"}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-rtsp_transport", "tcp",
		"-i", sourceURL,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"pipe:1",
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, g.binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	g.log.Debugw("capture_start", "source", maskURL(sourceURL))

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &models.CaptureError{Reason: "feed read timed out", Err: ctx.Err()}
		}
		return nil, &models.CaptureError{Reason: stderrTail(&stderr), Err: err}
	}

	frame := stdout.Bytes()
	if len(frame) == 0 {
		return nil, &models.CaptureError{Reason: "decoder produced no frame"}
	}

	g.log.Debugw("capture_done", "source", maskURL(sourceURL), "bytes", len(frame))
	return frame, nil
}

// stderrTail keeps error messages bounded; ffmpeg can be chatty.
func stderrTail(buf *bytes.Buffer) string {
	s := strings.TrimSpace(buf.String())
	if s == "" {
		return "ffmpeg exited with error"
	}
	if len(s) > stderrTailForErrors {
		s = s[len(s)-stderrTailForErrors:]
	}
	return s
}
