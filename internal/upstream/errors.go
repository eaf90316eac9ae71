package upstream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/SIACAML/cooqu-order/pkg/errors"
)

// decodeEnvelope reads the upstream response and translates failures into
// AppErrors that preserve the upstream message, so the user sees the
// server's wording when there is one and a generic fallback otherwise.
// The response body is fully consumed and closed.
func decodeEnvelope(resp *http.Response) (*envelope, error) {
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("marketplace api returned status %d (failed to read body: %w)", resp.StatusCode, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr == nil && env.Message != "" {
			return nil, mapStatus(resp.StatusCode, env.Message)
		}
		return nil, mapStatus(resp.StatusCode, genericFailure)
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("decode marketplace api response: %w", decodeErr)
	}

	// The API signals failures inside a 200 body as well.
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = genericFailure
		}
		return nil, apperrors.Upstream(msg)
	}

	return &env, nil
}

// mapStatus translates an upstream HTTP status into an AppError, keeping
// auth failures distinguishable from the rest.
func mapStatus(status int, message string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperrors.Unauthorized(message)
	case status == http.StatusNotFound:
		return apperrors.NotFound("marketplace api", message)
	case status >= 400 && status < 500:
		return apperrors.InvalidInput(message)
	default:
		return apperrors.Upstream(message)
	}
}
