package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func verifiedSession() *Session {
	return &Session{
		User:        &User{FirstName: "Asha", LastName: "Rao", Email: "asha@example.com", Phone: "9876543210"},
		UserID:      42,
		AccessToken: "token-abc",
		IsVerified:  true,
		Address:     &Address{FullAddress: "12 Brigade Road, Bengaluru"},
	}
}

func TestSession_Verified(t *testing.T) {
	t.Run("all three present", func(t *testing.T) {
		assert.True(t, verifiedSession().Verified())
	})

	t.Run("missing user", func(t *testing.T) {
		s := verifiedSession()
		s.User = nil
		assert.False(t, s.Verified())
	})

	t.Run("missing token", func(t *testing.T) {
		s := verifiedSession()
		s.AccessToken = ""
		assert.False(t, s.Verified())
	})

	t.Run("flag unset", func(t *testing.T) {
		s := verifiedSession()
		s.IsVerified = false
		assert.False(t, s.Verified())
	})
}

func TestSession_Step(t *testing.T) {
	assert.Equal(t, StepOrder, verifiedSession().Step())
	assert.Equal(t, StepAuth, (&Session{}).Step())

	// Partial state never reaches the order step.
	partial := &Session{User: &User{FirstName: "Asha"}, IsVerified: true}
	assert.Equal(t, StepAuth, partial.Step())
}

func TestSession_Banner(t *testing.T) {
	assert.Equal(t, "Ordering as Asha Rao (9876543210)", verifiedSession().Banner())
	assert.Empty(t, (&Session{}).Banner())
}

func TestSession_ClearIdentity(t *testing.T) {
	s := verifiedSession()
	s.Auth = &AuthState{Stage: StageOtpSent}

	s.ClearIdentity()

	assert.Nil(t, s.User)
	assert.Zero(t, s.UserID)
	assert.Empty(t, s.AccessToken)
	assert.False(t, s.IsVerified)
	assert.Nil(t, s.Auth)
	// The confirmed address survives logout.
	assert.NotNil(t, s.Address)
	assert.Equal(t, "12 Brigade Road, Bengaluru", s.Address.FullAddress)
}
