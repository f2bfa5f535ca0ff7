package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/sitegate/internal/auth"
	"github.com/BradenHooton/sitegate/internal/models"
	pkghttp "github.com/BradenHooton/sitegate/pkg/http"
	pkglogger "github.com/BradenHooton/sitegate/pkg/logger"
)

// maxGateBodyBytes caps the login request body
const maxGateBodyBytes = 1024

// GateServiceInterface defines the interface for gate business logic
type GateServiceInterface interface {
	Authenticate(ctx context.Context, clientKey string, password any) error
}

// SessionIssuer issues and checks gate session markers
type SessionIssuer interface {
	Issue() (*models.SessionMarker, *auth.SessionCookies, error)
	Check(token, issuedAt string) models.SessionStatus
	Duration() time.Duration
}

// AuthHandler handles the password gate endpoints
type AuthHandler struct {
	service      GateServiceInterface
	sessions     SessionIssuer
	cookieConfig auth.CookieConfig
	auditLogger  *pkglogger.AuditLogger
	logger       *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(
	service GateServiceInterface,
	sessions SessionIssuer,
	cookieConfig auth.CookieConfig,
	auditLogger *pkglogger.AuditLogger,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		service:      service,
		sessions:     sessions,
		cookieConfig: cookieConfig,
		auditLogger:  auditLogger,
		logger:       logger,
	}
}

// GateRequest represents the request body for a gate login. Password is left
// untyped so that a non-string value is classified rather than rejected by
// the decoder.
type GateRequest struct {
	Password any `json:"password"`
}

// Login handles a gate login attempt
// @Summary Submit the gate password
// @Accept json
// @Param request body GateRequest true "Gate request"
// @Produce json
// @Success 200 {object} pkghttp.SuccessResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 429 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /auth [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req *GateRequest

	r.Body = http.MaxBytesReader(w, r.Body, maxGateBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to read gate request body", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}
	// A bare null decodes without error but carries no request object
	if req == nil {
		h.logger.Warn("gate request body is null")
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	clientKey := pkghttp.ClientKey(r)

	if err := h.service.Authenticate(r.Context(), clientKey, req.Password); err != nil {
		switch {
		case errors.Is(err, models.ErrPasswordRequired):
			pkghttp.WriteBadRequest(w, "Password is required")
		case errors.Is(err, models.ErrInvalidPasswordFormat):
			pkghttp.WriteBadRequest(w, "Invalid password format")
		case errors.Is(err, models.ErrRateLimitExceeded):
			pkghttp.WriteTooManyRequests(w, "Too many attempts. Please try again later.")
		case errors.Is(err, models.ErrInvalidPassword):
			pkghttp.WriteUnauthorized(w, "Invalid password")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	_, cookies, err := h.sessions.Issue()
	if err != nil {
		h.logger.Error("failed to issue session", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	auth.SetSessionCookies(w, cookies, h.sessions.Duration(), h.cookieConfig)
	pkghttp.WriteSuccess(w)
}

// Status reports whether the request carries a valid session
// @Summary Gate session status
// @Produce json
// @Success 200 {object} models.SessionStatus
// @Router /auth [get]
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	status := h.sessions.Check(auth.GetSessionCookies(r))

	if status.Expired {
		auth.ClearSessionCookies(w, h.cookieConfig)
	}

	pkghttp.WriteJSON(w, http.StatusOK, status)
}

// Logout clears the session cookies
// @Summary Gate sign-out
// @Produce json
// @Success 200 {object} pkghttp.SuccessResponse
// @Router /auth [delete]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookies(w, h.cookieConfig)
	h.auditLogger.LogSessionAction(r.Context(), pkglogger.EventGateLogout, pkghttp.ClientKey(r))
	pkghttp.WriteSuccess(w)
}
