package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/SIACAML/cooqu-order/internal/domain"
	"github.com/SIACAML/cooqu-order/internal/session"
	"github.com/SIACAML/cooqu-order/internal/upstream"
	apperrors "github.com/SIACAML/cooqu-order/pkg/errors"
	"github.com/SIACAML/cooqu-order/pkg/validator"
)

// --- Mock upstream ---

type mockMarketplace struct {
	mock.Mock
}

func (m *mockMarketplace) Signup(ctx context.Context, d upstream.SignupDetails) (int64, error) {
	args := m.Called(ctx, d)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockMarketplace) VerifyOTP(ctx context.Context, userID int64, otp string) (string, error) {
	args := m.Called(ctx, userID, otp)
	return args.String(0), args.Error(1)
}

func (m *mockMarketplace) CreateOrder(ctx context.Context, accessToken string, form *upstream.OrderForm) (string, error) {
	args := m.Called(ctx, accessToken, form)
	return args.String(0), args.Error(1)
}

// --- Test helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newAuthFixture(t *testing.T) (*AuthService, *mockMarketplace, *session.MemoryStore, *time.Time) {
	t.Helper()
	store := session.NewMemoryStore()
	up := new(mockMarketplace)
	svc := NewAuthService(store, up, 6, 60*time.Second, newTestLogger())

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	clock := &now
	svc.nowFunc = func() time.Time { return *clock }
	return svc, up, store, clock
}

func validDetails() Details {
	return Details{
		FirstName:     "Asha",
		LastName:      "Rao",
		Email:         "asha@example.com",
		Phone:         "9876543210",
		TermsAccepted: true,
	}
}

// --- Begin ---

func TestAuthBegin_Success(t *testing.T) {
	svc, up, store, clock := newAuthFixture(t)
	ctx := context.Background()

	up.On("Signup", ctx, upstream.SignupDetails{
		FirstName: "Asha", LastName: "Rao", Email: "asha@example.com", Phone: "9876543210",
	}).Return(int64(42), nil)

	sess, err := svc.Begin(ctx, "sid-1", validDetails())

	require.NoError(t, err)
	require.NotNil(t, sess.Auth)
	assert.Equal(t, domain.StageOtpSent, sess.Auth.Stage)
	assert.Equal(t, int64(42), sess.Auth.UserID)
	assert.Equal(t, clock.Add(60*time.Second), sess.Auth.OTPDeadline)
	assert.False(t, sess.Verified())

	// Persisted, so a reload resumes at the OTP stage.
	stored, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	require.NotNil(t, stored.Auth)
	assert.Equal(t, domain.StageOtpSent, stored.Auth.Stage)
	up.AssertExpectations(t)
}

func TestAuthBegin_TermsNotAccepted(t *testing.T) {
	svc, up, _, _ := newAuthFixture(t)

	d := validDetails()
	d.TermsAccepted = false
	_, err := svc.Begin(context.Background(), "sid-1", d)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "TERMS_NOT_ACCEPTED", appErr.Code)
	// The terms check fails locally, before any network call.
	up.AssertNotCalled(t, "Signup", mock.Anything, mock.Anything)
}

func TestAuthBegin_InvalidDetails(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Details)
		field  string
	}{
		{"short first name", func(d *Details) { d.FirstName = "A" }, "FirstName"},
		{"missing last name", func(d *Details) { d.LastName = "" }, "LastName"},
		{"bad email", func(d *Details) { d.Email = "not-an-email" }, "Email"},
		{"short phone", func(d *Details) { d.Phone = "98765" }, "Phone"},
		{"alpha phone", func(d *Details) { d.Phone = "987654321x" }, "Phone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, up, _, _ := newAuthFixture(t)

			d := validDetails()
			tt.mutate(&d)
			_, err := svc.Begin(context.Background(), "sid-1", d)

			var valErr *validator.ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Contains(t, valErr.Fields(), tt.field)
			up.AssertNotCalled(t, "Signup", mock.Anything, mock.Anything)
		})
	}
}

func TestAuthBegin_UpstreamFailureLeavesStateUnchanged(t *testing.T) {
	svc, up, store, _ := newAuthFixture(t)
	ctx := context.Background()

	up.On("Signup", mock.Anything, mock.Anything).
		Return(int64(0), apperrors.Upstream("phone number is blocked"))

	_, err := svc.Begin(ctx, "sid-1", validDetails())

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUpstream))

	stored, gerr := store.Get(ctx, "sid-1")
	require.NoError(t, gerr)
	assert.Nil(t, stored.Auth)
}

// --- Verify ---

func beginSession(t *testing.T, svc *AuthService, up *mockMarketplace) {
	t.Helper()
	up.On("Signup", mock.Anything, mock.Anything).Return(int64(42), nil).Once()
	_, err := svc.Begin(context.Background(), "sid-1", validDetails())
	require.NoError(t, err)
}

func TestAuthVerify_Success(t *testing.T) {
	svc, up, store, _ := newAuthFixture(t)
	ctx := context.Background()
	beginSession(t, svc, up)

	up.On("VerifyOTP", ctx, int64(42), "123456").Return("token-xyz", nil)

	sess, err := svc.Verify(ctx, "sid-1", "123456")

	require.NoError(t, err)
	assert.True(t, sess.Verified())
	assert.Equal(t, domain.StepOrder, sess.Step())
	assert.Equal(t, "Ordering as Asha Rao (9876543210)", sess.Banner())
	assert.Nil(t, sess.Auth)

	// Identity fields land in one save.
	stored, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.True(t, stored.Verified())
	assert.Equal(t, int64(42), stored.UserID)
	assert.Equal(t, "token-xyz", stored.AccessToken)
}

func TestAuthVerify_Expired(t *testing.T) {
	svc, up, _, clock := newAuthFixture(t)
	beginSession(t, svc, up)

	*clock = clock.Add(61 * time.Second)

	_, err := svc.Verify(context.Background(), "sid-1", "123456")

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "OTP_EXPIRED", appErr.Code)
	up.AssertNotCalled(t, "VerifyOTP", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthVerify_BadCodeShape(t *testing.T) {
	svc, up, _, _ := newAuthFixture(t)
	beginSession(t, svc, up)

	for _, code := range []string{"1234", "12345678901", "12345x"} {
		_, err := svc.Verify(context.Background(), "sid-1", code)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidInput), "code %q", code)
	}
	up.AssertNotCalled(t, "VerifyOTP", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthVerify_NoFlowInProgress(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)

	_, err := svc.Verify(context.Background(), "sid-1", "123456")

	assert.True(t, errors.Is(err, apperrors.ErrConflict))
}

func TestAuthVerify_WrongCodeSurfacesUpstreamMessage(t *testing.T) {
	svc, up, store, _ := newAuthFixture(t)
	ctx := context.Background()
	beginSession(t, svc, up)

	up.On("VerifyOTP", ctx, int64(42), "999999").
		Return("", apperrors.Upstream("invalid otp"))

	_, err := svc.Verify(ctx, "sid-1", "999999")

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "invalid otp", appErr.Message)

	// Machine state unchanged: still at OtpSent, retry possible.
	stored, gerr := store.Get(ctx, "sid-1")
	require.NoError(t, gerr)
	require.NotNil(t, stored.Auth)
	assert.Equal(t, domain.StageOtpSent, stored.Auth.Stage)
}

// --- Resend ---

func TestAuthResend_BeforeWindowElapsed(t *testing.T) {
	svc, up, _, clock := newAuthFixture(t)
	beginSession(t, svc, up)

	*clock = clock.Add(30 * time.Second)

	_, err := svc.Resend(context.Background(), "sid-1")

	assert.True(t, errors.Is(err, apperrors.ErrConflict))
}

func TestAuthResend_RestartsWindow(t *testing.T) {
	svc, up, _, clock := newAuthFixture(t)
	ctx := context.Background()
	beginSession(t, svc, up)

	*clock = clock.Add(90 * time.Second)
	up.On("Signup", mock.Anything, mock.Anything).Return(int64(42), nil).Once()

	sess, err := svc.Resend(ctx, "sid-1")

	require.NoError(t, err)
	require.NotNil(t, sess.Auth)
	assert.Equal(t, clock.Add(60*time.Second), sess.Auth.OTPDeadline)

	// Verification works again inside the fresh window.
	up.On("VerifyOTP", ctx, int64(42), "123456").Return("token-xyz", nil)
	verified, err := svc.Verify(ctx, "sid-1", "123456")
	require.NoError(t, err)
	assert.True(t, verified.Verified())
}

// --- ChangeDetails ---

func TestAuthChangeDetails_RetainsTypedFields(t *testing.T) {
	svc, up, _, _ := newAuthFixture(t)
	ctx := context.Background()
	beginSession(t, svc, up)

	sess, err := svc.ChangeDetails(ctx, "sid-1")

	require.NoError(t, err)
	require.NotNil(t, sess.Auth)
	assert.Equal(t, domain.StageCollectingDetails, sess.Auth.Stage)
	assert.Equal(t, "Asha", sess.Auth.Details.FirstName)
	assert.Equal(t, "9876543210", sess.Auth.Details.Phone)
	assert.Zero(t, sess.Auth.UserID)
	assert.True(t, sess.Auth.OTPDeadline.IsZero())
}

// --- Logout ---

func TestAuthLogout_RetainsAddress(t *testing.T) {
	svc, up, store, _ := newAuthFixture(t)
	ctx := context.Background()
	beginSession(t, svc, up)

	up.On("VerifyOTP", ctx, int64(42), "123456").Return("token-xyz", nil)
	_, err := svc.Verify(ctx, "sid-1", "123456")
	require.NoError(t, err)

	// Confirm an address, then log out.
	sess, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	sess.Address = &domain.Address{FullAddress: "12 Brigade Road"}
	require.NoError(t, store.Save(ctx, "sid-1", sess))

	require.NoError(t, svc.Logout(ctx, "sid-1"))

	stored, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.False(t, stored.Verified())
	assert.Nil(t, stored.User)
	require.NotNil(t, stored.Address)
	assert.Equal(t, "12 Brigade Road", stored.Address.FullAddress)
}
