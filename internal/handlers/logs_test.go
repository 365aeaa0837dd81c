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

func TestLogsHandler_ListAndValidation(t *testing.T) {
	auth := &mockAuth{parseID: 99}
	now := time.Now().UTC().Truncate(time.Second)
	events := []models.CameraEvent{
		{EventID: "e1", OccurredAt: now, Type: "MOVE", Description: "moved to preset 1"},
		{EventID: "e2", OccurredAt: now.Add(1 * time.Second), Type: "CAPTURE", Description: "frame captured"},
	}
	logs := &mockEventLog{resp: events}
	s := &service.Service{
		Auth:     auth,
		EventLog: logs,
	}
	r := newTestRouter(s)

	// No token → 401 before the service is touched
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/logs/", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without auth, got %d", w.Code)
	}

	// Invalid 'from' → 400
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/logs/?from=notatime", nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 invalid 'from', got %d", w.Code)
	}

	// Valid range and type (lowercase type should be normalized to upper in service call)
	w = httptest.NewRecorder()
	q := "/api/v1/logs/?from=" + now.Format(time.RFC3339) + "&to=" + now.Add(2*time.Second).Format(time.RFC3339) + "&type=capture"
	req = httptest.NewRequest(http.MethodGet, q, nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("logs status=%d, body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count  int                  `json:"count"`
		Events []models.CameraEvent `json:"events"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 2 || len(out.Events) != 2 {
		t.Fatalf("unexpected response: %+v", out)
	}
	if logs.lastType != "CAPTURE" {
		t.Fatalf("expected lastType CAPTURE, got %q", logs.lastType)
	}

	// Date-only 'to' should cover the whole day
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/logs/?to=2026-08-30", nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("date-only 'to' status=%d", w.Code)
	}
	endOfDay := time.Date(2026, 8, 30, 23, 59, 59, 999999999, time.UTC)
	if !logs.lastTo.Equal(endOfDay) {
		t.Fatalf("expected end-of-day %v, got %v", endOfDay, logs.lastTo)
	}
}
