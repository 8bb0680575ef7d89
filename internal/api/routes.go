package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/firdraft/domain"
	"github.com/satriahrh/firdraft/domain/entities"
	"github.com/satriahrh/firdraft/domain/repositories"
	"github.com/satriahrh/firdraft/internal/auth"
	"github.com/satriahrh/firdraft/internal/websocket"
	"github.com/satriahrh/firdraft/usecase"
)

// Dependencies are the collaborators the HTTP layer serves
type Dependencies struct {
	Hub      *websocket.Hub
	Issuer   *auth.Issuer
	Drafts   *usecase.DraftStore
	Stations repositories.StationLocator
	// DevTokens enables POST /api/v1/auth/dev-token
	DevTokens bool
}

type handler struct {
	deps   Dependencies
	logger *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Dependencies, logger *zap.Logger) {
	h := &handler{deps: deps, logger: logger}

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "firdraft-server",
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1")
	v1.GET("/languages", h.languages)
	if deps.DevTokens {
		v1.POST("/auth/dev-token", h.devToken)
	}

	requireUser := JWTMiddleware(deps.Issuer, logger)
	v1.GET("/drafts", h.listDrafts, requireUser)
	v1.GET("/drafts/:id", h.getDraft, requireUser)
	v1.PUT("/drafts/:id", h.updateDraft, requireUser)
	v1.GET("/stations", h.nearbyStations, requireUser)

	// WebSocket endpoint with JWT validation
	e.GET("/ws", h.websocketWithAuth)
}

func (h *handler) languages(c echo.Context) error {
	out := make([]LanguageResponse, 0, len(entities.SupportedLanguages))
	for _, l := range entities.SupportedLanguages {
		out = append(out, LanguageResponse{Code: l, Name: l.DisplayName(), SpeechTag: l.SpeechTag()})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handler) devToken(c echo.Context) error {
	var req DevTokenRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Error("Failed to bind dev token request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if strings.TrimSpace(req.UserID) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "user_id is required",
		})
	}

	token, expiresAt, err := h.deps.Issuer.GenerateUserToken(req.UserID, req.Email)
	if err != nil {
		h.logger.Error("Failed to generate user token",
			zap.String("user_id", req.UserID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	h.logger.Info("Development token issued", zap.String("user_id", req.UserID))

	return c.JSON(http.StatusOK, DevTokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		UserID:    req.UserID,
	})
}

func (h *handler) listDrafts(c echo.Context) error {
	drafts, err := h.deps.Drafts.List(c.Request().Context(), userID(c))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, DraftListResponse{Drafts: drafts})
}

func (h *handler) getDraft(c echo.Context) error {
	draft, err := h.deps.Drafts.Get(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, draft)
}

// updateDraft is last-write-wins: the latest confirmed write is what stays
func (h *handler) updateDraft(c echo.Context) error {
	var req UpdateDraftRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	ctx := c.Request().Context()
	owner, id := userID(c), c.Param("id")
	if err := h.deps.Drafts.UpdateContent(ctx, owner, id, req.Content); err != nil {
		return h.errorResponse(c, err)
	}

	draft, err := h.deps.Drafts.Get(ctx, owner, id)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, draft)
}

func (h *handler) nearbyStations(c echo.Context) error {
	lat, latErr := strconv.ParseFloat(c.QueryParam("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.QueryParam("lng"), 64)
	if latErr != nil || lngErr != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "lat and lng query parameters are required",
		})
	}

	coordinate := entities.Coordinate{Latitude: lat, Longitude: lng}
	if err := coordinate.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
	}

	stations, err := h.deps.Stations.Nearby(c.Request().Context(), coordinate)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, StationsResponse{Stations: stations})
}

// websocketWithAuth handles WebSocket connections with JWT authentication
func (h *handler) websocketWithAuth(c echo.Context) error {
	token := bearerToken(c)
	if token == "" {
		h.logger.Warn("WebSocket connection rejected: missing token")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "JWT token is required in Authorization header",
		})
	}

	claims, err := h.deps.Issuer.ValidateToken(token)
	if err != nil {
		h.logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired JWT token",
		})
	}

	h.logger.Info("WebSocket connection authenticated", zap.String("user_id", claims.UserID))

	return websocket.HandleWebSocketWithAuth(h.deps.Hub, c, token, h.logger)
}

func (h *handler) errorResponse(c echo.Context, err error) error {
	kind := domain.ErrorKind(err)
	status := http.StatusInternalServerError
	switch kind {
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindInvalidRequest:
		status = http.StatusBadRequest
	case domain.KindUnauthenticated:
		status = http.StatusUnauthorized
	case domain.KindPersistence:
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.JSON(status, ErrorResponse{Error: kind, Message: err.Error()})
}
