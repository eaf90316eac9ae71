// Package service holds the order-intake business logic: the signup/OTP
// state machine, address search and confirmation, and order submission.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/SIACAML/cooqu-order/internal/domain"
	"github.com/SIACAML/cooqu-order/internal/session"
	"github.com/SIACAML/cooqu-order/internal/upstream"
	apperrors "github.com/SIACAML/cooqu-order/pkg/errors"
	"github.com/SIACAML/cooqu-order/pkg/validator"
)

// authUpstream is the slice of the marketplace client the auth flow uses.
type authUpstream interface {
	Signup(ctx context.Context, d upstream.SignupDetails) (int64, error)
	VerifyOTP(ctx context.Context, userID int64, otp string) (string, error)
}

// Details is the signup form payload.
type Details struct {
	FirstName     string `json:"first_name" validate:"required,min=2"`
	LastName      string `json:"last_name" validate:"required,min=1"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"required,len=10,numeric"`
	TermsAccepted bool   `json:"terms_accepted"`
}

// AuthService drives the per-session signup/OTP state machine:
// CollectingDetails -> OtpSent -> Verified. All transient state lives in the
// session store's pending auth sub-record, so a page reload resumes the flow
// where it left off.
type AuthService struct {
	store        session.Store
	upstream     authUpstream
	otpLength    int
	resendWindow time.Duration
	logger       *slog.Logger

	// nowFunc is replaced in tests to drive the resend window.
	nowFunc func() time.Time
}

// NewAuthService creates the auth flow service.
func NewAuthService(store session.Store, up authUpstream, otpLength int, resendWindow time.Duration, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:        store,
		upstream:     up,
		otpLength:    otpLength,
		resendWindow: resendWindow,
		logger:       logger,
		nowFunc:      time.Now,
	}
}

// Begin validates the signup details, registers the user upstream, and moves
// the session to the OTP stage with a fresh resend window.
//
// The terms check never reaches the network: it fails locally with its own
// error code so the client can highlight the checkbox rather than show an
// upstream failure.
func (s *AuthService) Begin(ctx context.Context, sid string, d Details) (*domain.Session, error) {
	if err := validator.Validate(d); err != nil {
		return nil, err
	}
	if !d.TermsAccepted {
		return nil, &apperrors.AppError{
			Code:    "TERMS_NOT_ACCEPTED",
			Message: "you must accept the terms and conditions to continue",
			Status:  http.StatusBadRequest,
			Err:     apperrors.ErrInvalidInput,
		}
	}

	sess, err := s.store.Get(ctx, sid)
	if err != nil {
		return nil, err
	}
	if sess.Verified() {
		return nil, apperrors.Conflict("session is already verified")
	}

	userID, err := s.upstream.Signup(ctx, upstream.SignupDetails{
		FirstName: d.FirstName,
		LastName:  d.LastName,
		Email:     d.Email,
		Phone:     d.Phone,
	})
	if err != nil {
		return nil, err
	}

	sess.Auth = &domain.AuthState{
		Stage: domain.StageOtpSent,
		Details: domain.User{
			FirstName: d.FirstName,
			LastName:  d.LastName,
			Email:     d.Email,
			Phone:     d.Phone,
		},
		UserID:      userID,
		OTPDeadline: s.nowFunc().Add(s.resendWindow),
	}
	if err := s.store.Save(ctx, sid, sess); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "otp sent",
		slog.String("session_id", sid),
		slog.Int64("user_id", userID),
	)
	return sess, nil
}

// Verify checks the one-time code against the upstream and, on success,
// promotes the pending details into the verified session identity in a
// single save.
func (s *AuthService) Verify(ctx context.Context, sid, code string) (*domain.Session, error) {
	if err := s.checkCode(code); err != nil {
		return nil, err
	}

	sess, err := s.store.Get(ctx, sid)
	if err != nil {
		return nil, err
	}
	auth := sess.Auth
	if auth == nil || auth.Stage != domain.StageOtpSent {
		return nil, apperrors.Conflict("no verification in progress")
	}
	if s.nowFunc().After(auth.OTPDeadline) {
		return nil, &apperrors.AppError{
			Code:    "OTP_EXPIRED",
			Message: "the code has expired, request a new one",
			Status:  http.StatusBadRequest,
			Err:     apperrors.ErrInvalidInput,
		}
	}

	token, err := s.upstream.VerifyOTP(ctx, auth.UserID, code)
	if err != nil {
		return nil, err
	}

	details := auth.Details
	sess.User = &details
	sess.UserID = auth.UserID
	sess.AccessToken = token
	sess.IsVerified = true
	sess.Auth = nil
	if err := s.store.Save(ctx, sid, sess); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "session verified",
		slog.String("session_id", sid),
		slog.Int64("user_id", sess.UserID),
	)
	return sess, nil
}

// Resend re-invokes signup with the details already on file and restarts the
// resend window. Only available once the current window has elapsed.
func (s *AuthService) Resend(ctx context.Context, sid string) (*domain.Session, error) {
	sess, err := s.store.Get(ctx, sid)
	if err != nil {
		return nil, err
	}
	auth := sess.Auth
	if auth == nil || auth.Stage != domain.StageOtpSent {
		return nil, apperrors.Conflict("no verification in progress")
	}

	now := s.nowFunc()
	if now.Before(auth.OTPDeadline) {
		remaining := auth.OTPDeadline.Sub(now).Round(time.Second)
		return nil, apperrors.Conflict(fmt.Sprintf("resend available in %s", remaining))
	}

	userID, err := s.upstream.Signup(ctx, upstream.SignupDetails{
		FirstName: auth.Details.FirstName,
		LastName:  auth.Details.LastName,
		Email:     auth.Details.Email,
		Phone:     auth.Details.Phone,
	})
	if err != nil {
		return nil, err
	}

	auth.UserID = userID
	auth.OTPDeadline = now.Add(s.resendWindow)
	if err := s.store.Save(ctx, sid, sess); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "otp resent", slog.String("session_id", sid))
	return sess, nil
}

// ChangeDetails drops the OTP stage and returns to detail collection,
// keeping the typed name, email, and phone for re-edit.
func (s *AuthService) ChangeDetails(ctx context.Context, sid string) (*domain.Session, error) {
	sess, err := s.store.Get(ctx, sid)
	if err != nil {
		return nil, err
	}
	auth := sess.Auth
	if auth == nil {
		return nil, apperrors.Conflict("no verification in progress")
	}

	auth.Stage = domain.StageCollectingDetails
	auth.UserID = 0
	auth.OTPDeadline = time.Time{}
	if err := s.store.Save(ctx, sid, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Logout clears the session's identity, retaining the confirmed address so a
// returning user does not retype it.
func (s *AuthService) Logout(ctx context.Context, sid string) error {
	if err := s.store.Logout(ctx, sid); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "session logged out", slog.String("session_id", sid))
	return nil
}

// checkCode rejects codes of the wrong length or with non-digit characters
// before any network call.
func (s *AuthService) checkCode(code string) error {
	if len(code) != s.otpLength {
		return apperrors.InvalidInput(fmt.Sprintf("otp must be %d digits", s.otpLength))
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return apperrors.InvalidInput(fmt.Sprintf("otp must be %d digits", s.otpLength))
		}
	}
	return nil
}
