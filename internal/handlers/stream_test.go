package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ptzcam/internal/models"
	"ptzcam/internal/service"
)

func TestSnapshotHandler(t *testing.T) {
	jpeg := []byte{0xff, 0xd8, 0xff, 0xe0, 0x01, 0x02}
	ca := &mockCache{getResp: models.FrameInfo{Data: jpeg, CapturedAt: time.Now()}}
	s := &service.Service{Cache: ca}
	r := newTestRouter(s)

	// plain request serves the frame bytes as JPEG
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stream/snapshot", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("snapshot status=%d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != jpegContentType {
		t.Fatalf("content type %q, want %q", ct, jpegContentType)
	}
	if w.Body.Len() != len(jpeg) {
		t.Fatalf("body size %d, want %d", w.Body.Len(), len(jpeg))
	}
	if ca.lastForce {
		t.Fatalf("plain request should not force a refresh")
	}

	// force_refresh and rtsp_url query params reach the cache
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/stream/snapshot?force_refresh=true&rtsp_url=rtsp://other/feed", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("forced snapshot status=%d", w.Code)
	}
	if !ca.lastForce || ca.lastSource != "rtsp://other/feed" {
		t.Fatalf("query params not forwarded: force=%v source=%q", ca.lastForce, ca.lastSource)
	}

	// waiter timeout → 504
	ca.getErr = models.ErrCaptureTimeout
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/stream/snapshot", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504 on wait timeout, got %d", w.Code)
	}

	// capture failure → 502
	ca.getErr = &models.CaptureError{Reason: "feed unreachable"}
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/stream/snapshot", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 on capture failure, got %d", w.Code)
	}
}

func TestCacheStatusHandler(t *testing.T) {
	ca := &mockCache{cacheState: models.CacheStatus{
		HasFrame:    true,
		CapturedAt:  time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		AgeSeconds:  12.5,
		SourceURL:   "rtsp://cam/stream1",
		IsCapturing: false,
	}}
	s := &service.Service{Cache: ca}
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stream/cache", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("cache status=%d", w.Code)
	}
	var st models.CacheStatus
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("unmarshal cache status: %v", err)
	}
	if !st.HasFrame || st.AgeSeconds != 12.5 || st.SourceURL != "rtsp://cam/stream1" {
		t.Fatalf("unexpected cache status: %+v", st)
	}
}
