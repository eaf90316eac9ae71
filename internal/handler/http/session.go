// Package http exposes the order-intake API over HTTP.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/SIACAML/cooqu-order/internal/domain"
	"github.com/SIACAML/cooqu-order/internal/service"
	apperrors "github.com/SIACAML/cooqu-order/pkg/errors"
	"github.com/SIACAML/cooqu-order/pkg/httputil"
)

// sessionReader is the read-only slice of the session store the handler uses.
type sessionReader interface {
	Get(ctx context.Context, sid string) (*domain.Session, error)
}

// SessionHandler serves session hydration and logout.
type SessionHandler struct {
	store   sessionReader
	auth    *service.AuthService
	logger  *slog.Logger
	nowFunc func() time.Time
}

// NewSessionHandler creates the session HTTP handler.
func NewSessionHandler(store sessionReader, auth *service.AuthService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		store:   store,
		auth:    auth,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// sessionView is the client-facing session projection. The access token
// never leaves the server.
type sessionView struct {
	Step     string          `json:"step"`
	Verified bool            `json:"verified"`
	Banner   string          `json:"banner,omitempty"`
	User     *domain.User    `json:"user,omitempty"`
	Address  *domain.Address `json:"address,omitempty"`
	Auth     *authStateView  `json:"auth,omitempty"`
}

// authStateView is the pending auth flow projection.
type authStateView struct {
	Stage    string       `json:"stage"`
	Details  *domain.User `json:"details,omitempty"`
	ResendIn int          `json:"resend_in_seconds,omitempty"`
}

// viewOf projects a session for the client, computing the remaining resend
// window at read time.
func viewOf(sess *domain.Session, now time.Time) *sessionView {
	v := &sessionView{
		Step:     sess.Step(),
		Verified: sess.Verified(),
		Banner:   sess.Banner(),
		User:     sess.User,
		Address:  sess.Address,
	}
	if auth := sess.Auth; auth != nil {
		av := &authStateView{Stage: auth.Stage, Details: &auth.Details}
		if auth.Stage == domain.StageOtpSent {
			if remaining := auth.OTPDeadline.Sub(now); remaining > 0 {
				av.ResendIn = int(remaining.Round(time.Second).Seconds())
			}
		}
		v.Auth = av
	}
	return v
}

// Get handles GET /api/v1/session: hydrates the client after a reload.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("no session"), h.logger)
		return
	}

	sess, err := h.store.Get(r.Context(), sid)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: viewOf(sess, h.nowFunc())})
}

// Logout handles DELETE /api/v1/session: clears identity, keeps the address.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("no session"), h.logger)
		return
	}

	if err := h.auth.Logout(r.Context(), sid); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	sess, err := h.store.Get(r.Context(), sid)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: viewOf(sess, h.nowFunc())})
}
