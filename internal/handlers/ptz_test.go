package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"ptzcam/internal/models"
	"ptzcam/internal/service"
)

func TestPTZHandlers_GotoStartStopAutomatic(t *testing.T) {
	cy := &mockCycle{startResult: true, stopResult: true}
	s := &service.Service{Cycle: cy}
	r := newTestRouter(s)

	// goto valid index → 200, delegates to the cycle
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ptz/goto/2", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("goto status=%d, body=%s", w.Code, w.Body.String())
	}
	if cy.gotoCalls != 1 || cy.lastGoto != 2 {
		t.Fatalf("goto calls=%d lastGoto=%d", cy.gotoCalls, cy.lastGoto)
	}

	// goto non-numeric index → 400 without a service call
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ptz/goto/abc", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad index, got %d", w.Code)
	}
	if cy.gotoCalls != 1 {
		t.Fatalf("goto should not have been called again, calls=%d", cy.gotoCalls)
	}

	// goto rejected preset → 400
	cy.gotoErr = &models.PTZError{Kind: models.PTZKindRejected, Message: "preset 9 is not configured"}
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ptz/goto/9", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for rejected move, got %d body=%s", w.Code, w.Body.String())
	}

	// goto camera unreachable → 502
	cy.gotoErr = &models.PTZError{Kind: models.PTZKindNetwork, Message: "connection refused"}
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ptz/goto/1", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for network failure, got %d", w.Code)
	}
	cy.gotoErr = nil

	// start → ok, second start reports a warning
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ptz/start", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("start status=%d", w.Code)
	}
	var resp struct {
		Status string `json:"status"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != statusOK {
		t.Fatalf("expected status %q, got %q", statusOK, resp.Status)
	}

	cy.startResult = false
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ptz/start", nil)
	r.ServeHTTP(w, req)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != statusWarning {
		t.Fatalf("expected warning for duplicate start, got %q", resp.Status)
	}

	// stop → ok, second stop reports a warning
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ptz/stop", nil)
	r.ServeHTTP(w, req)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != statusOK {
		t.Fatalf("expected ok stop, got %q", resp.Status)
	}
	cy.stopResult = false
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ptz/stop", nil)
	r.ServeHTTP(w, req)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != statusWarning {
		t.Fatalf("expected warning for duplicate stop, got %q", resp.Status)
	}

	// automatic on/off and an invalid state
	for _, tc := range []struct {
		state string
		code  int
		mode  bool
	}{
		{"on", http.StatusOK, true},
		{"off", http.StatusOK, false},
		{"1", http.StatusOK, true},
		{"maybe", http.StatusBadRequest, false},
	} {
		w = httptest.NewRecorder()
		req = httptest.NewRequest(http.MethodGet, "/ptz/automatic/"+tc.state, nil)
		r.ServeHTTP(w, req)
		if w.Code != tc.code {
			t.Fatalf("automatic %q: status=%d, want %d", tc.state, w.Code, tc.code)
		}
		if tc.code == http.StatusOK && cy.lastMode != tc.mode {
			t.Fatalf("automatic %q: mode=%v, want %v", tc.state, cy.lastMode, tc.mode)
		}
	}
}

func TestListPresets(t *testing.T) {
	cfg := &mockConfig{cfg: models.CameraConfig{
		Presets: []models.Preset{{Index: 0, Name: "Gate"}, {Index: 1, Name: "Yard"}},
	}}
	s := &service.Service{Config: cfg}
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ptz/presets", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("presets status=%d", w.Code)
	}
	var resp struct {
		Status  string          `json:"status"`
		Presets []models.Preset `json:"presets"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal presets: %v", err)
	}
	if len(resp.Presets) != 2 || resp.Presets[1].Name != "Yard" {
		t.Fatalf("unexpected presets: %+v", resp.Presets)
	}
}

func TestPTZStatus(t *testing.T) {
	mon := &mockMonitoring{snapshot: models.StatusSnapshot{
		Status:         "ok",
		CurrentPreset:  3,
		AutomaticMode:  true,
		Cycle:          models.CycleStatus{Phase: models.PhaseDwelling, Started: true},
		Cache:          models.CacheStatus{HasFrame: true},
	}}
	s := &service.Service{Monitoring: mon}
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ptz/status", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var st models.StatusSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if st.CurrentPreset != 3 || !st.AutomaticMode || st.Cycle.Phase != models.PhaseDwelling {
		t.Fatalf("unexpected snapshot: %+v", st)
	}
}

func TestUpdateConfigHandler(t *testing.T) {
	cfg := &mockConfig{updateCfg: models.CameraConfig{DwellTime: 50}}
	s := &service.Service{Config: cfg}
	r := newTestRouter(s)

	postForm := func(form url.Values) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/ptz/config", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		r.ServeHTTP(w, req)
		return w
	}

	// partial update carries only the submitted fields
	w := postForm(url.Values{"dwell_time": {"50"}, "username": {"viewer"}})
	if w.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", w.Code, w.Body.String())
	}
	if cfg.updateCalls != 1 {
		t.Fatalf("update calls=%d", cfg.updateCalls)
	}
	if cfg.lastUpdate.DwellTime == nil || *cfg.lastUpdate.DwellTime != 50 {
		t.Fatalf("dwell_time not forwarded: %+v", cfg.lastUpdate)
	}
	if cfg.lastUpdate.Username == nil || *cfg.lastUpdate.Username != "viewer" {
		t.Fatalf("username not forwarded: %+v", cfg.lastUpdate)
	}
	if cfg.lastUpdate.HomePreset != nil || cfg.lastUpdate.CaptureDelay != nil {
		t.Fatalf("omitted fields should stay nil: %+v", cfg.lastUpdate)
	}

	// non-numeric field → 400 without a service call
	w = postForm(url.Values{"dwell_time": {"fast"}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad number, got %d", w.Code)
	}
	if cfg.updateCalls != 1 {
		t.Fatalf("update should not run on parse failure, calls=%d", cfg.updateCalls)
	}

	// store-level validation failure → 400 with the field message
	cfg.updateErr = &models.ValidationError{Field: "dwell_time", Message: "must be between 5 and 300"}
	w = postForm(url.Values{"dwell_time": {"400"}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for validation error, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "dwell_time") {
		t.Fatalf("validation message missing field: %s", w.Body.String())
	}
}
