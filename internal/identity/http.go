package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const requestTimeout = 10 * time.Second

// HTTPGateway implements Gateway against a provider exposing the OAuth2
// resource-owner password grant plus a bearer-authenticated userinfo
// endpoint. Every request carries the project's publishable key in an
// "apikey" header, which is how the provider routes the call to the right
// tenant.
type HTTPGateway struct {
	baseURL string
	conf    *oauth2.Config
	client  *http.Client
	logger  *slog.Logger
}

// apikeyTransport injects the tenant key into every outgoing request.
type apikeyTransport struct {
	key  string
	next http.RoundTripper
}

func (t *apikeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("apikey", t.key)
	return t.next.RoundTrip(clone)
}

// NewHTTPGateway builds a gateway for the provider rooted at baseURL.
func NewHTTPGateway(baseURL, apiKey string, logger *slog.Logger) *HTTPGateway {
	baseURL = strings.TrimRight(baseURL, "/")
	return &HTTPGateway{
		baseURL: baseURL,
		conf: &oauth2.Config{
			Endpoint: oauth2.Endpoint{
				TokenURL: baseURL + "/auth/v1/token?grant_type=password",
			},
		},
		client: &http.Client{
			Timeout:   requestTimeout,
			Transport: &apikeyTransport{key: apiKey, next: http.DefaultTransport},
		},
		logger: logger,
	}
}

// Authenticate exchanges the credentials for a provider access token, then
// resolves the token to the account it belongs to.
//
// A 4xx from the token endpoint is a credential verdict and maps to
// ErrInvalidCredentials. Anything else (network failure, 5xx, malformed
// userinfo) maps to ErrUnavailable; the underlying detail is logged here and
// never returned to the caller.
func (g *HTTPGateway) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.client)

	tok, err := g.conf.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response.StatusCode >= 400 && rerr.Response.StatusCode < 500 {
			g.logger.Warn("identity provider rejected credentials",
				"status", rerr.Response.StatusCode)
			return nil, ErrInvalidCredentials
		}
		g.logger.Error("identity provider token request failed", "error", err)
		return nil, ErrUnavailable
	}

	id, err := g.fetchUser(ctx, tok)
	if err != nil {
		g.logger.Error("identity provider userinfo request failed", "error", err)
		return nil, ErrUnavailable
	}
	return id, nil
}

func (g *HTTPGateway) fetchUser(ctx context.Context, tok *oauth2.Token) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, err
	}
	tok.SetAuthHeader(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var body struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if body.ID == "" {
		return nil, errors.New("userinfo missing subject")
	}
	return &Identity{Subject: body.ID, Email: body.Email}, nil
}
