package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type verifyResponse struct {
	UserID   uint64 `json:"userId"`
	Username string `json:"username"`
	Type     string `json:"type"`
	Error    string `json:"error"`
}

// RemoteVerifier asks the auth service's /v1/auth/verify endpoint about each token.
type RemoteVerifier struct {
	client    *http.Client
	verifyURL string
	timeout   time.Duration
}

// NewRemoteVerifier takes the auth service base URL without a path,
// e.g. http://localhost:3001.
func NewRemoteVerifier(baseURL string, client *http.Client, timeout time.Duration) *RemoteVerifier {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 1200 * time.Millisecond
	}
	return &RemoteVerifier{
		client:    client,
		verifyURL: strings.TrimRight(baseURL, "/") + "/v1/auth/verify",
		timeout:   timeout,
	}
}

func (v *RemoteVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, bytes.NewReader([]byte("{}")))
	if err != nil {
		return Identity{}, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		// includes context deadline exceeded
		return Identity{}, fmt.Errorf("%w: %v", ErrVerifierUnavailable, err)
	}
	defer resp.Body.Close()

	var body verifyResponse
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if body.Error == "" {
			body.Error = "rejected by auth service"
		}
		return Identity{}, fmt.Errorf("%w: %s", ErrInvalidToken, body.Error)
	default:
		return Identity{}, fmt.Errorf("%w: verify returned %d", ErrVerifierUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Identity{}, fmt.Errorf("%w: invalid verify response: %v", ErrVerifierUnavailable, err)
	}
	if body.Type != "" && body.Type != TokenTypeAccess {
		return Identity{}, fmt.Errorf("%w: access token required", ErrInvalidToken)
	}
	if body.UserID == 0 {
		return Identity{}, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}
	return Identity{UserID: body.UserID, Username: body.Username}, nil
}
