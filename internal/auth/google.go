package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

const defaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

var (
	// ErrBridgeTokenInvalid means Google rejected the access token (401).
	ErrBridgeTokenInvalid = errors.New("google rejected the access token")
	// ErrBridgeTokenMalformed means the userinfo request was malformed (400).
	ErrBridgeTokenMalformed = errors.New("malformed google access token")
	// ErrBridgeTimeout means the userinfo call exceeded its deadline.
	ErrBridgeTimeout = errors.New("google userinfo request timed out")
	// ErrBridgeUnreachable covers DNS and connection failures.
	ErrBridgeUnreachable = errors.New("google userinfo endpoint unreachable")
)

// GoogleUserInfo is the verified profile returned by Google's userinfo
// endpoint for a valid access token.
type GoogleUserInfo struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// GoogleClient exchanges OAuth access tokens for verified profiles against
// Google's userinfo endpoint. The endpoint and HTTP client are injectable
// so tests can point it at a local server.
type GoogleClient struct {
	httpClient  *http.Client
	userInfoURL string
}

// NewGoogleClient constructs a client with the given request timeout.
// An empty userInfoURL selects Google's production endpoint.
func NewGoogleClient(timeout time.Duration, userInfoURL string) *GoogleClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if userInfoURL == "" {
		userInfoURL = defaultUserInfoURL
	}
	return &GoogleClient{
		httpClient:  &http.Client{Timeout: timeout},
		userInfoURL: userInfoURL,
	}
}

// FetchUserInfo exchanges an access token for the holder's verified
// email/name/avatar. Failures are distinguishable: invalid token,
// malformed request, timeout, and network unreachability each map to a
// different sentinel.
func (c *GoogleClient) FetchUserInfo(ctx context.Context, accessToken string) (*GoogleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, ErrBridgeTokenInvalid
	case http.StatusBadRequest:
		return nil, ErrBridgeTokenMalformed
	default:
		return nil, fmt.Errorf("google userinfo: unexpected status %d", resp.StatusCode)
	}

	var info GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("google userinfo: decode response: %w", err)
	}
	if info.Email == "" {
		return nil, fmt.Errorf("google userinfo: response missing email")
	}
	return &info, nil
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrBridgeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrBridgeTimeout
	}
	return fmt.Errorf("%w: %v", ErrBridgeUnreachable, err)
}
