package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/SIACAML/cooqu-order/internal/service"
	apperrors "github.com/SIACAML/cooqu-order/pkg/errors"
	"github.com/SIACAML/cooqu-order/pkg/httputil"
	"github.com/SIACAML/cooqu-order/pkg/validator"
)

// AuthHandler serves the signup/OTP flow endpoints.
type AuthHandler struct {
	auth    *service.AuthService
	logger  *slog.Logger
	nowFunc func() time.Time
}

// NewAuthHandler creates the auth HTTP handler.
func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:    auth,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// VerifyRequest is the JSON request body for OTP verification.
type VerifyRequest struct {
	OTP string `json:"otp" validate:"required"`
}

// Begin handles POST /api/v1/auth/begin: collect details, trigger the OTP.
func (h *AuthHandler) Begin(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("no session"), h.logger)
		return
	}

	var req service.Details
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	sess, err := h.auth.Begin(r.Context(), sid, req)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: viewOf(sess, h.nowFunc())})
}

// Verify handles POST /api/v1/auth/verify.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("no session"), h.logger)
		return
	}

	var req VerifyRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	sess, err := h.auth.Verify(r.Context(), sid, req.OTP)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: viewOf(sess, h.nowFunc())})
}

// Resend handles POST /api/v1/auth/resend.
func (h *AuthHandler) Resend(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("no session"), h.logger)
		return
	}

	sess, err := h.auth.Resend(r.Context(), sid)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: viewOf(sess, h.nowFunc())})
}

// ChangeDetails handles POST /api/v1/auth/change-details: back to the
// details form with the typed values intact.
func (h *AuthHandler) ChangeDetails(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("no session"), h.logger)
		return
	}

	sess, err := h.auth.ChangeDetails(r.Context(), sid)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: viewOf(sess, h.nowFunc())})
}

// writeAuthError renders validation failures as field-keyed errors and
// everything else through the standard mapping.
func (h *AuthHandler) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	if valErr, ok := asValidationError(err); ok {
		httputil.WriteValidationError(w, valErr)
		return
	}
	httputil.WriteError(w, r, err, h.logger)
}

// asValidationError unwraps a struct-tag validation error if err carries one.
func asValidationError(err error) (*validator.ValidationError, bool) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		return valErr, true
	}
	return nil, false
}
