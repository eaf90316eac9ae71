// Package upstream is the client for the marketplace backend API: signup,
// OTP verification, and custom-order creation. The order-intake service owns
// no order records itself; this API does.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// Paths as consumed on the marketplace API. Note the order-create path has
// no leading slash segment prefix in the upstream routing scheme.
const (
	signupPath      = "/user/form-signup"
	otpVerifyPath   = "/user/form-otp-verify"
	orderCreatePath = "/order/form-custom-order-create"
)

// countryCode is fixed at submission time; the intake flow only serves +91.
const countryCode = "+91"

// genericFailure is the fallback message when the upstream body carries none.
const genericFailure = "something went wrong, please try again"

// Doer executes HTTP requests. Both httpclient.Client and
// httpclient.CircuitBreakerClient satisfy this.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client calls the marketplace backend API.
type Client struct {
	baseURL string
	http    Doer
	logger  *slog.Logger
}

// NewClient creates a marketplace API client. baseURL must not end in a slash.
func NewClient(baseURL string, doer Doer, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    doer,
		logger:  logger,
	}
}

// SignupDetails are the identity fields sent to form-signup.
type SignupDetails struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

type signupRequest struct {
	Firstname   string `json:"firstname"`
	Lastname    string `json:"lastname"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	CountryCode string `json:"country_code"`
}

// envelope is the common upstream response shape.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Signup registers the user (or re-triggers the OTP for an existing one) and
// returns the upstream user ID.
func (c *Client) Signup(ctx context.Context, d SignupDetails) (int64, error) {
	body := signupRequest{
		Firstname:   d.FirstName,
		Lastname:    d.LastName,
		Email:       d.Email,
		Phone:       d.Phone,
		CountryCode: countryCode,
	}

	var data struct {
		ID int64 `json:"id"`
	}
	if err := c.postJSON(ctx, signupPath, body, &data); err != nil {
		return 0, err
	}
	if data.ID == 0 {
		return 0, fmt.Errorf("signup response missing user id")
	}
	return data.ID, nil
}

type otpVerifyRequest struct {
	UserID int64  `json:"user_id"`
	OTP    string `json:"otp"`
}

// VerifyOTP checks the one-time code for the given user and returns the
// access token on success.
func (c *Client) VerifyOTP(ctx context.Context, userID int64, otp string) (string, error) {
	var data struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.postJSON(ctx, otpVerifyPath, otpVerifyRequest{UserID: userID, OTP: otp}, &data); err != nil {
		return "", err
	}
	if data.AccessToken == "" {
		return "", fmt.Errorf("otp-verify response missing access token")
	}
	return data.AccessToken, nil
}

// CreateOrder submits the multipart order payload with the session's access
// token as a bearer credential. Returns the upstream success message.
func (c *Client) CreateOrder(ctx context.Context, accessToken string, form *OrderForm) (string, error) {
	buf := &bytes.Buffer{}
	contentType, err := form.Encode(buf)
	if err != nil {
		return "", fmt.Errorf("encode order form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+orderCreatePath, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return "", fmt.Errorf("create order request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	c.authorize(req, accessToken)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("order create: %w", err)
	}

	env, err := decodeEnvelope(resp)
	if err != nil {
		return "", err
	}
	if env.Message == "" {
		return "order request placed successfully", nil
	}
	return env.Message, nil
}

// postJSON sends a JSON body and decodes the envelope's data into out.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	env, err := decodeEnvelope(resp)
	if err != nil {
		return err
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode %s response data: %w", path, err)
		}
	}
	return nil
}

// authorize attaches the bearer credential when a token is present. All
// authenticated calls go through here rather than setting the header per
// call site.
func (c *Client) authorize(req *http.Request, accessToken string) {
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
}
