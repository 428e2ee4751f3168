package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/housei/dashboard/domain/entities"
	"github.com/housei/dashboard/internal/auth"
	"github.com/housei/dashboard/internal/viewmodel"
	"github.com/housei/dashboard/internal/websocket"
	"github.com/housei/dashboard/usecase"
)

// setupTokenHeader authorizes admin creation
const setupTokenHeader = "X-Setup-Token"

// Dependencies are the services the routes are served from
type Dependencies struct {
	Devices *usecase.DeviceService
	Admins  *usecase.AdminService
	Tokens  *auth.TokenIssuer
	Hub     *websocket.Hub
	// Registry backs the list and dashboard reads; it must be active
	Registry *viewmodel.Registry
	// SetupToken enables POST /api/v1/setup/admin when non-empty
	SetupToken string
	Logger     *zap.Logger
}

type handlers struct {
	Dependencies
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Dependencies) {
	h := &handlers{Dependencies: deps}

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "housei-dashboard",
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1")

	v1.POST("/session/login", h.login)
	v1.POST("/setup/admin", h.setupAdmin)

	admin := v1.Group("", requireAdmin(deps.Tokens, false, deps.Logger))
	admin.GET("/session/me", h.me)
	admin.GET("/devices", h.listDevices)
	admin.POST("/devices", h.createDevice)
	admin.POST("/devices/:id/toggle", h.toggleDevice)
	admin.DELETE("/devices/:id", h.deleteDevice)
	admin.GET("/dashboard", h.dashboard)

	// WebSocket endpoint with JWT validation
	e.GET("/ws", h.liveDashboard, requireAdmin(deps.Tokens, true, deps.Logger))
}

func (h *handlers) login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		h.Logger.Error("Failed to bind login request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Email and password are required",
		})
	}

	user, err := h.Admins.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return h.writeError(c, err)
	}

	token, expiresAt, err := h.Tokens.GenerateAdminToken(user)
	if err != nil {
		h.Logger.Error("Failed to generate admin token",
			zap.String("email", user.Email),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	h.Logger.Info("Admin authenticated successfully", zap.String("email", user.Email))

	return c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	})
}

func (h *handlers) setupAdmin(c echo.Context) error {
	if h.SetupToken == "" {
		return c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "setup_disabled",
			Message: "Admin setup is disabled",
		})
	}
	if c.Request().Header.Get(setupTokenHeader) != h.SetupToken {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_setup_token",
			Message: "A valid setup token is required",
		})
	}

	var req SetupAdminRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if err := h.Admins.CreateAdmin(c.Request().Context(), req.Email, req.Password); err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]string{
		"message": "Admin user created successfully",
	})
}

func (h *handlers) me(c echo.Context) error {
	return c.JSON(http.StatusOK, adminFrom(c))
}

func (h *handlers) listDevices(c echo.Context) error {
	state := h.Registry.State()
	return c.JSON(http.StatusOK, DeviceListResponse{
		Devices: state.Devices,
		Loaded:  state.Loaded,
	})
}

func (h *handlers) createDevice(c echo.Context) error {
	var draft entities.DeviceDraft
	if err := c.Bind(&draft); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	id, err := h.Devices.Create(c.Request().Context(), draft)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusCreated, CreateDeviceResponse{
		ID:      id,
		Message: "Device added successfully",
	})
}

func (h *handlers) toggleDevice(c echo.Context) error {
	var req ToggleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	id := c.Param("id")
	status, err := h.Devices.ToggleStatus(c.Request().Context(), id, req.CurrentStatus)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, ToggleResponse{ID: id, Status: status})
}

func (h *handlers) deleteDevice(c echo.Context) error {
	if !strings.EqualFold(c.QueryParam("confirm"), "true") {
		return c.JSON(http.StatusPreconditionRequired, ErrorResponse{
			Error:   "confirmation_required",
			Message: "Deleting a device cannot be undone; repeat the request with confirm=true",
		})
	}

	id := c.Param("id")
	if err := h.Devices.Delete(c.Request().Context(), id); err != nil {
		return h.writeError(c, err)
	}

	h.Logger.Info("Device deleted via API",
		zap.String("device_id", id),
		zap.String("admin", adminFrom(c).Email))

	return c.JSON(http.StatusOK, DeleteDeviceResponse{
		ID:      id,
		Message: "Device deleted successfully",
	})
}

func (h *handlers) dashboard(c echo.Context) error {
	state := h.Registry.State()
	recent := state.Devices
	if len(recent) > viewmodel.RecentLimit {
		recent = recent[:viewmodel.RecentLimit]
	}
	return c.JSON(http.StatusOK, DashboardResponse{
		Stats:   state.Stats,
		Trend:   state.Trend,
		Recent:  recent,
		Loaded:  state.Loaded,
		Warning: state.Error,
	})
}

func (h *handlers) liveDashboard(c echo.Context) error {
	user := adminFrom(c)
	h.Logger.Info("WebSocket connection authenticated", zap.String("admin", user.Email))
	return websocket.HandleWebSocket(h.Hub, c, user, h.Logger)
}

// writeError maps domain errors onto HTTP responses
func (h *handlers) writeError(c echo.Context, err error) error {
	var (
		validationErr *entities.ValidationError
		authErr       *entities.AuthenticationError
		updateErr     *entities.UpdateError
		creationErr   *entities.CreationError
		deletionErr   *entities.DeletionError
	)

	switch {
	case errors.As(err, &validationErr):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_failed",
			Message: validationErr.Error(),
		})
	case errors.As(err, &authErr):
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "authentication_failed",
			Message: "Invalid email or password",
		})
	case errors.Is(err, entities.ErrDeviceNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "device_not_found",
			Message: err.Error(),
		})
	case errors.As(err, &updateErr):
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "update_failed",
			Message: updateErr.Error(),
		})
	case errors.As(err, &creationErr):
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "creation_failed",
			Message: creationErr.Error(),
		})
	case errors.As(err, &deletionErr):
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "deletion_failed",
			Message: deletionErr.Error(),
		})
	default:
		h.Logger.Error("Unhandled request error", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
	}
}
