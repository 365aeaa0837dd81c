package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"ptzcam/internal/logger"
	"ptzcam/internal/models"
	"ptzcam/internal/repository"

	"golang.org/x/sync/singleflight"
)

const (
	defaultFreshnessWindow = 10 * time.Second
	defaultCaptureWait     = 30 * time.Second

	captureKey = "capture" // one single-flight key: at most one capture process-wide
)

// SnapshotCacheService serves the freshest available frame cheaply.
// Non-forcing reads inside the freshness window never touch the feed;
// everything else funnels through a single-flight gate so concurrent
// callers share one capture and its result.
type SnapshotCacheService struct {
	grabber FrameGrabber
	frames  repository.FrameRepo
	config  ConfigStore
	log     *logger.Logger

	maxAge    time.Duration
	waitBound time.Duration

	mu     sync.RWMutex
	latest *models.FrameInfo

	capturing atomic.Bool
	group     singleflight.Group
}

func NewSnapshotCacheService(grabber FrameGrabber, frames repository.FrameRepo, config ConfigStore, opts Options, log *logger.Logger) *SnapshotCacheService {
	s := &SnapshotCacheService{
		grabber:   grabber,
		frames:    frames,
		config:    config,
		log:       log,
		maxAge:    opts.FreshnessWindow,
		waitBound: opts.CaptureWait,
	}
	if s.maxAge <= 0 {
		s.maxAge = defaultFreshnessWindow
	}
	if s.waitBound <= 0 {
		s.waitBound = defaultCaptureWait
	}

	// Reload the last archived frame so restarts keep serving a stale
	// but valid image until the first capture lands.
	if data, ts, err := frames.Latest(); err == nil {
		s.latest = &models.FrameInfo{Data: data, CapturedAt: ts}
		log.Infow("cache_restored_from_disk", "captured_at", ts)
	}
	return s
}

// Get returns a cached frame if it is younger than the freshness
// window and forceRefresh is false; otherwise it joins the (single)
// in-flight capture. All concurrent waiters receive the same frame.
func (s *SnapshotCacheService) Get(ctx context.Context, forceRefresh bool, sourceURL string) (models.FrameInfo, error) {
	if sourceURL == "" {
		sourceURL = s.config.Get().ConnectionURL
	}

	if !forceRefresh {
		if fi, ok := s.freshFrame(); ok {
			return fi, nil
		}
	}

	// The capture runs on a context detached from this caller: a
	// waiter giving up must not cancel the shared work.
	captureCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(captureKey, func() (any, error) {
		return s.captureAndStore(captureCtx, sourceURL)
	})

	timer := time.NewTimer(s.waitBound)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.Err != nil {
			return models.FrameInfo{}, res.Err
		}
		return res.Val.(models.FrameInfo), nil
	case <-timer.C:
		return models.FrameInfo{}, models.ErrCaptureTimeout
	case <-ctx.Done():
		return models.FrameInfo{}, ctx.Err()
	}
}

// Put replaces the latest entry and appends an immutable archive copy.
// It never waits on an in-flight capture and never blocks readers for
// longer than the pointer swap.
func (s *SnapshotCacheService) Put(ctx context.Context, data []byte, sourceURL string) (models.FrameInfo, error) {
	if len(data) == 0 {
		return models.FrameInfo{}, &models.CaptureError{Reason: "empty frame"}
	}
	return s.store(data, sourceURL)
}

// Refresh forces a capture through the single-flight gate.
func (s *SnapshotCacheService) Refresh(ctx context.Context) (models.FrameInfo, error) {
	return s.Get(ctx, true, "")
}

// Latest returns the most recent entry regardless of age.
func (s *SnapshotCacheService) Latest() (models.FrameInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return models.FrameInfo{}, false
	}
	return *s.latest, true
}

// Status never blocks on an in-flight capture.
func (s *SnapshotCacheService) Status() models.CacheStatus {
	st := models.CacheStatus{IsCapturing: s.capturing.Load()}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest != nil {
		st.HasFrame = true
		st.CapturedAt = s.latest.CapturedAt
		st.AgeSeconds = s.latest.Age(time.Now()).Seconds()
		st.SourceURL = s.latest.SourceURL
	}
	return st
}

func (s *SnapshotCacheService) freshFrame() (models.FrameInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil || s.latest.Age(time.Now()) > s.maxAge {
		return models.FrameInfo{}, false
	}
	return *s.latest, true
}

// captureAndStore is the single-flight body. A failed capture leaves
// the previous entry untouched and still servable.
func (s *SnapshotCacheService) captureAndStore(ctx context.Context, sourceURL string) (models.FrameInfo, error) {
	s.capturing.Store(true)
	defer s.capturing.Store(false)

	data, err := s.grabber.Capture(ctx, sourceURL)
	if err != nil {
		return models.FrameInfo{}, err
	}
	return s.store(data, sourceURL)
}

func (s *SnapshotCacheService) store(data []byte, sourceURL string) (models.FrameInfo, error) {
	now := time.Now().UTC()
	path, err := s.frames.Store(data, now)
	if err != nil {
		// the frame is still good; serve it from memory and complain
		s.log.Warnw("frame_archive_failed", "err", err)
	}

	fi := models.FrameInfo{Data: data, CapturedAt: now, SourceURL: sourceURL, Path: path}
	s.mu.Lock()
	s.latest = &fi
	s.mu.Unlock()
	return fi, nil
}
