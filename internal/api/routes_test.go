package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/housei/dashboard/adapters"
	"github.com/housei/dashboard/domain/entities"
	"github.com/housei/dashboard/internal/auth"
	"github.com/housei/dashboard/internal/viewmodel"
	"github.com/housei/dashboard/internal/websocket"
	"github.com/housei/dashboard/usecase"
)

type testServer struct {
	echo   *echo.Echo
	store  *adapters.MemoryDeviceStore
	admins *adapters.MemoryAdminRepository
	tokens *auth.TokenIssuer
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	store := adapters.NewMemoryDeviceStore()
	admins := adapters.NewMemoryAdminRepository()

	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	registry := viewmodel.NewRegistry(store, logger)
	require.NoError(t, registry.Activate(context.Background()))
	t.Cleanup(registry.Release)

	e := echo.New()
	InitRoutes(e, Dependencies{
		Devices:    usecase.NewDeviceService(store, logger).WithPowerEstimator(func() float64 { return 10 }),
		Admins:     usecase.NewAdminService(admins, usecase.DefaultFallbackCredentials, logger),
		Tokens:     tokens,
		Hub:        websocket.NewHub(store, logger),
		Registry:   registry,
		SetupToken: "let-me-in",
		Logger:     logger,
	})

	return &testServer{echo: e, store: store, admins: admins, tokens: tokens}
}

func (s *testServer) token(t *testing.T) string {
	t.Helper()
	token, _, err := s.tokens.GenerateAdminToken(entities.NewAdminUser("admin@housei.io"))
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealth(t *testing.T) {
	s := setupServer(t)
	rec := s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestLogin(t *testing.T) {
	s := setupServer(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"fallback admin", `{"email":"admin@housei.io","password":"admin123"}`, http.StatusOK},
		{"wrong password", `{"email":"admin@housei.io","password":"nope"}`, http.StatusUnauthorized},
		{"missing fields", `{"email":"admin@housei.io"}`, http.StatusBadRequest},
		{"malformed", `{"email":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/v1/session/login", tt.body, "")
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}

	rec := s.do(t, http.MethodPost, "/api/v1/session/login", `{"email":"admin@housei.io","password":"admin123"}`, "")
	var resp LoginResponse
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, entities.RoleAdmin, resp.User.Role)

	me := s.do(t, http.MethodGet, "/api/v1/session/me", "", resp.Token)
	assert.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), "admin@housei.io")
}

func TestAdminRoutesRequireToken(t *testing.T) {
	s := setupServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/devices", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/dashboard", "", "forged")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/ws", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSetupAdmin(t *testing.T) {
	s := setupServer(t)
	body := `{"email":"ops@housei.io","password":"hunter2"}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/setup/admin", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/setup/admin", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(setupTokenHeader, "let-me-in")
	rec = httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	login := s.do(t, http.MethodPost, "/api/v1/session/login", body, "")
	assert.Equal(t, http.StatusOK, login.Code)
}

func TestDeviceLifecycle(t *testing.T) {
	s := setupServer(t)
	token := s.token(t)

	rec := s.do(t, http.MethodPost, "/api/v1/devices", `{
		"name": "Living Room Hub",
		"type": "Sensor Hub",
		"sensors": ["temperature", "humidity"],
		"owner_email": "owner@example.com",
		"owner_password": "secret"
	}`, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created CreateDeviceResponse
	decode(t, rec, &created)
	require.NotEmpty(t, created.ID)

	rec = s.do(t, http.MethodGet, "/api/v1/devices", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret", "owner password never leaves the server")
	var list DeviceListResponse
	decode(t, rec, &list)
	require.Len(t, list.Devices, 1)
	assert.Equal(t, entities.DeviceStatusOff, list.Devices[0].Status)
	assert.True(t, list.Loaded)

	rec = s.do(t, http.MethodPost, "/api/v1/devices/"+created.ID+"/toggle", `{"current_status":"off"}`, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var toggled ToggleResponse
	decode(t, rec, &toggled)
	assert.Equal(t, entities.DeviceStatusOn, toggled.Status)

	rec = s.do(t, http.MethodGet, "/api/v1/dashboard", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var dash DashboardResponse
	decode(t, rec, &dash)
	assert.Equal(t, 1, dash.Stats.ActiveCount)
	assert.Equal(t, 10.0, dash.Stats.TotalPower)
	assert.True(t, dash.Trend.Synthetic)
	assert.Len(t, dash.Recent, 1)

	rec = s.do(t, http.MethodDelete, "/api/v1/devices/"+created.ID, "", token)
	assert.Equal(t, http.StatusPreconditionRequired, rec.Code)
	assert.Equal(t, 1, s.store.Len(), "unconfirmed delete must not reach the store")

	rec = s.do(t, http.MethodDelete, "/api/v1/devices/"+created.ID+"?confirm=true", "", token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, s.store.Len())
}

func TestDeviceErrors(t *testing.T) {
	s := setupServer(t)
	token := s.token(t)

	rec := s.do(t, http.MethodPost, "/api/v1/devices", `{"name":"Lamp","type":"Light","sensors":[],"owner_email":"a@b.c","owner_password":"x"}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var errResp ErrorResponse
	decode(t, rec, &errResp)
	assert.Equal(t, "validation_failed", errResp.Error)
	assert.Equal(t, 0, s.store.Len())

	rec = s.do(t, http.MethodPost, "/api/v1/devices/ghost/toggle", `{"current_status":"on"}`, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/devices/ghost/toggle", `{"current_status":"dim"}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
