package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/payboard/payboard-backend/pkg/config"
	pkgerrors "github.com/payboard/payboard-backend/pkg/errors"
	"github.com/payboard/payboard-backend/pkg/logger"
)

const (
	defaultAPIBase = "https://discord.com/api/v10"
	oauthScope     = "identify"
)

var (
	errClientIDRequired     = errors.New("discord client id is required")
	errClientSecretRequired = errors.New("discord client secret is required")
	errRedirectURIRequired  = errors.New("discord redirect uri is required")
)

// TokenResponse is the OAuth token exchange result.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

// User is the subset of the Discord user object the dashboard needs.
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
}

// OAuthClient exchanges authorization codes and resolves the authenticated
// Discord user. It never persists anything; account rows live in the document.
type OAuthClient struct {
	clientID     string
	clientSecret string
	redirectURI  string
	apiBase      string
	httpClient   *http.Client
	logg         *logger.Logger
}

// NewOAuthClient validates the OAuth application credentials.
func NewOAuthClient(cfg config.DiscordConfig, logg *logger.Logger) (*OAuthClient, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errClientIDRequired
	}
	if strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errClientSecretRequired
	}
	if strings.TrimSpace(cfg.RedirectURI) == "" {
		return nil, errRedirectURIRequired
	}
	return &OAuthClient{
		clientID:     strings.TrimSpace(cfg.ClientID),
		clientSecret: strings.TrimSpace(cfg.ClientSecret),
		redirectURI:  strings.TrimSpace(cfg.RedirectURI),
		apiBase:      defaultAPIBase,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		logg:         logg,
	}, nil
}

// NewOAuthClientWithTransport injects an API base and HTTP client (tests).
func NewOAuthClientWithTransport(cfg config.DiscordConfig, apiBase string, httpClient *http.Client, logg *logger.Logger) *OAuthClient {
	return &OAuthClient{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
		apiBase:      apiBase,
		httpClient:   httpClient,
		logg:         logg,
	}
}

// AuthorizeURL builds the user-facing OAuth consent URL.
func (c *OAuthClient) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("redirect_uri", c.redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", oauthScope)
	if state != "" {
		q.Set("state", state)
	}
	return "https://discord.com/oauth2/authorize?" + q.Encode()
}

// ExchangeCode trades an authorization code for an access token.
func (c *OAuthClient) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	if strings.TrimSpace(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "authorization code is required")
	}

	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "building token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var token TokenResponse
	if err := c.do(ctx, req, "exchange_code", &token); err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "discord returned an empty access token")
	}
	return &token, nil
}

// FetchUser resolves the authenticated user behind an access token.
func (c *OAuthClient) FetchUser(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/users/@me", nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "building user request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var user User
	if err := c.do(ctx, req, "fetch_user", &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "discord returned an empty user id")
	}
	return &user, nil
}

func (c *OAuthClient) do(ctx context.Context, req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("discord %s failed", op))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("reading discord %s response", op))
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, fmt.Sprintf("discord %s rejected", op))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("discord %s returned status %d", op, resp.StatusCode)).
			WithDetails(map[string]any{"http_status": resp.StatusCode})
	}

	if err := json.Unmarshal(body, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decoding discord %s response", op))
	}

	if c.logg != nil {
		logCtx := c.logg.WithFields(ctx, map[string]any{"operation": op})
		c.logg.Info(logCtx, "discord request completed")
	}
	return nil
}
