package domain

import (
	"fmt"
	"time"
)

// User holds the identity fields collected during signup.
type User struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// Address is the single confirmed delivery location for a session.
// Fields populated by the geocoder arrive via an AddressCandidate and are
// promoted here only on explicit confirmation.
type Address struct {
	FullAddress string  `json:"full_address"`
	HouseNo     string  `json:"house_no,omitempty"`
	Area        string  `json:"area,omitempty"`
	City        string  `json:"city,omitempty"`
	State       string  `json:"state,omitempty"`
	Pincode     string  `json:"pincode,omitempty"`
	Landmark    string  `json:"landmark,omitempty"`
	Lat         float64 `json:"lat,omitempty"`
	Lng         float64 `json:"lng,omitempty"`
}

// Auth flow stages.
const (
	StageCollectingDetails = "collecting_details"
	StageOtpSent           = "otp_sent"
	StageVerified          = "verified"
)

// AuthState is the pending auth sub-record held alongside the session while
// the signup/OTP flow is in progress. It survives reloads, so the flow
// resumes where it left off.
type AuthState struct {
	Stage       string    `json:"stage"`
	Details     User      `json:"details"`
	UserID      int64     `json:"user_id,omitempty"`
	OTPDeadline time.Time `json:"otp_deadline,omitempty"`
}

// Session is the durable, cross-reload state for one browser session.
type Session struct {
	User        *User      `json:"user,omitempty"`
	UserID      int64      `json:"user_id,omitempty"`
	AccessToken string     `json:"access_token,omitempty"`
	IsVerified  bool       `json:"is_verified"`
	Address     *Address   `json:"address,omitempty"`
	Auth        *AuthState `json:"auth,omitempty"`
}

// Session steps, derived from verification state.
const (
	StepAuth  = "auth"
	StepOrder = "order"
)

// Verified reports whether the session may reach the order form's data-entry
// step: user, verification flag, and access token must all be present.
func (s *Session) Verified() bool {
	return s.User != nil && s.IsVerified && s.AccessToken != ""
}

// Step returns which step the client should render for this session.
func (s *Session) Step() string {
	if s.Verified() {
		return StepOrder
	}
	return StepAuth
}

// Banner returns the "ordering as" line shown above the form once verified.
// Empty until the session is verified.
func (s *Session) Banner() string {
	if !s.Verified() {
		return ""
	}
	return fmt.Sprintf("Ordering as %s %s (%s)", s.User.FirstName, s.User.LastName, s.User.Phone)
}

// ClearIdentity atomically clears user, userID, accessToken, and isVerified.
// The confirmed delivery address is retained so a returning user does not
// retype it after logging back in.
func (s *Session) ClearIdentity() {
	s.User = nil
	s.UserID = 0
	s.AccessToken = ""
	s.IsVerified = false
	s.Auth = nil
}
