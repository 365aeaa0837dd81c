package handlers

import (
	"context"
	"net/http"
	"time"

	"ptzcam/internal/models"
	"ptzcam/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockConfig struct {
	cfg       models.CameraConfig
	updateCfg models.CameraConfig
	updateErr error

	lastUpdate  service.ConfigUpdate
	updateCalls int
}

func (m *mockConfig) Get() models.CameraConfig { return m.cfg }
func (m *mockConfig) Update(ctx context.Context, u service.ConfigUpdate) (models.CameraConfig, error) {
	m.updateCalls++
	m.lastUpdate = u
	return m.updateCfg, m.updateErr
}
func (m *mockConfig) SetCurrentPreset(ctx context.Context, index int) error { return nil }
func (m *mockConfig) SetScheduledMode(ctx context.Context, enabled bool) error {
	return nil
}

type mockCycle struct {
	startResult bool
	stopResult  bool
	setModeErr  error
	gotoErr     error
	captureResp models.FrameInfo
	captureErr  error
	status      models.CycleStatus

	lastMode     bool
	lastGoto     int
	startCalled  int
	stopCalled   int
	setModeCalls int
	gotoCalls    int
	captureCalls int
}

func (m *mockCycle) Run(ctx context.Context) {}
func (m *mockCycle) Start(ctx context.Context) bool {
	m.startCalled++
	return m.startResult
}
func (m *mockCycle) Stop(ctx context.Context) bool {
	m.stopCalled++
	return m.stopResult
}
func (m *mockCycle) SetAutomaticMode(ctx context.Context, enabled bool) error {
	m.setModeCalls++
	m.lastMode = enabled
	return m.setModeErr
}
func (m *mockCycle) GotoPreset(ctx context.Context, index int) error {
	m.gotoCalls++
	m.lastGoto = index
	return m.gotoErr
}
func (m *mockCycle) CaptureNow(ctx context.Context) (models.FrameInfo, error) {
	m.captureCalls++
	return m.captureResp, m.captureErr
}
func (m *mockCycle) Status() models.CycleStatus { return m.status }

type mockCache struct {
	getResp    models.FrameInfo
	getErr     error
	latest     models.FrameInfo
	hasLatest  bool
	cacheState models.CacheStatus

	lastForce  bool
	lastSource string
	getCalls   int
}

func (m *mockCache) Get(ctx context.Context, forceRefresh bool, sourceURL string) (models.FrameInfo, error) {
	m.getCalls++
	m.lastForce = forceRefresh
	m.lastSource = sourceURL
	return m.getResp, m.getErr
}
func (m *mockCache) Put(ctx context.Context, data []byte, sourceURL string) (models.FrameInfo, error) {
	return models.FrameInfo{}, nil
}
func (m *mockCache) Refresh(ctx context.Context) (models.FrameInfo, error) {
	return m.getResp, m.getErr
}
func (m *mockCache) Latest() (models.FrameInfo, bool) { return m.latest, m.hasLatest }
func (m *mockCache) Status() models.CacheStatus       { return m.cacheState }

type mockMonitoring struct {
	snapshot models.StatusSnapshot
	err      error
}

func (m *mockMonitoring) GetStatus(ctx context.Context) (models.StatusSnapshot, error) {
	return m.snapshot, m.err
}

type mockEventLog struct {
	resp     []models.CameraEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.CameraEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
