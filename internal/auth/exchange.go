package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

// ExchangePath is the cloud endpoint that trades a temporary token for a user id.
const ExchangePath = "/api/auth/exchange-user-token"

// DefaultExchangeTimeout bounds one exchange call.
const DefaultExchangeTimeout = 10 * time.Second

// maxExchangeBody caps how much of the cloud's response is read.
const maxExchangeBody = 64 << 10

// TokenExchanger trades a temporary token for an identity.
type TokenExchanger interface {
	Exchange(ctx context.Context, tempToken string) (string, error)
}

// CloudExchanger calls the cloud's exchange endpoint, authenticating with
// the app's API key.
type CloudExchanger struct {
	client      *http.Client
	endpoint    string
	apiKey      string
	packageName string
	timeout     time.Duration
}

var _ TokenExchanger = (*CloudExchanger)(nil)

// NewCloudExchanger builds an exchanger for cloudAPIURL. A zero timeout
// means DefaultExchangeTimeout.
func NewCloudExchanger(cloudAPIURL, apiKey, packageName string, timeout time.Duration) *CloudExchanger {
	if timeout <= 0 {
		timeout = DefaultExchangeTimeout
	}
	return &CloudExchanger{
		client:      cleanhttp.DefaultClient(),
		endpoint:    strings.TrimRight(cloudAPIURL, "/") + ExchangePath,
		apiKey:      apiKey,
		packageName: packageName,
		timeout:     timeout,
	}
}

type exchangeRequest struct {
	TempToken   string `json:"aos_temp_token"`
	PackageName string `json:"packageName"`
}

type exchangeResponse struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId"`
	Error   string `json:"error"`
}

// Exchange implements TokenExchanger. Every failure wraps ErrExchangeFailed.
func (e *CloudExchanger) Exchange(ctx context.Context, tempToken string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	body, err := json.Marshal(exchangeRequest{TempToken: tempToken, PackageName: e.packageName})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", ErrExchangeFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrExchangeFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: network error: %v", ErrExchangeFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var data exchangeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxExchangeBody)).Decode(&data); err != nil {
		return "", fmt.Errorf("%w: parse error (status %d): %v", ErrExchangeFailed, resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK || !data.Success {
		msg := data.Error
		if msg == "" {
			msg = "Unknown exchange error"
		}
		return "", fmt.Errorf("%w: cloud error (status %d): %s", ErrExchangeFailed, resp.StatusCode, msg)
	}
	if data.UserID == "" {
		return "", fmt.Errorf("%w: no userId in response", ErrExchangeFailed)
	}
	return data.UserID, nil
}
