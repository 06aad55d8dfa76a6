// Package provider is the OAuth2 identity provider client used by the login
// flow: authorization URLs with PKCE, code exchange, and userinfo lookup.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	Google    = "google"
	Microsoft = "microsoft"
	Azure     = "azure"
	Custom    = "custom"
)

var (
	ErrUnknownProvider = errors.New("provider: unknown provider")
	ErrMissingEndpoint = errors.New("provider: missing endpoint")
	ErrUserInfo        = errors.New("provider: userinfo request failed")
)

const (
	googleUserInfoURL    = "https://www.googleapis.com/oauth2/v2/userinfo"
	microsoftUserInfoURL = "https://graph.microsoft.com/oidc/userinfo"
	defaultTenant        = "common"
	maxUserInfoBytes     = 1 << 20
)

type Config struct {
	Name         string
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// TenantID selects the Microsoft Entra tenant. Defaults to "common".
	TenantID string

	// Endpoint overrides. Required for the custom provider, optional otherwise.
	AuthURL     string
	TokenURL    string
	UserInfoURL string

	Scopes []string

	// HTTPClient is used for token exchange and userinfo calls.
	HTTPClient *http.Client
}

// Provider is safe for concurrent use.
type Provider struct {
	name        string
	oauth       *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// New resolves cfg.Name to its endpoints and builds a Provider. Explicit
// endpoint URLs in cfg always win over the presets.
func New(cfg Config) (*Provider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Name))
	if name == "" {
		name = Google
	}

	var (
		endpoint    oauth2.Endpoint
		userInfoURL string
		scopes      []string
	)

	switch name {
	case Google:
		endpoint = endpoints.Google
		userInfoURL = googleUserInfoURL
		scopes = []string{"email"}
	case Microsoft, Azure:
		tenant := cfg.TenantID
		if tenant == "" {
			tenant = defaultTenant
		}
		endpoint = endpoints.AzureAD(tenant)
		userInfoURL = microsoftUserInfoURL
		scopes = []string{"openid", "email"}
	case Custom:
		scopes = []string{"openid", "email"}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Name)
	}

	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	if cfg.UserInfoURL != "" {
		userInfoURL = cfg.UserInfoURL
	}
	if len(cfg.Scopes) > 0 {
		scopes = cfg.Scopes
	}

	switch {
	case endpoint.AuthURL == "":
		return nil, fmt.Errorf("%w: auth url", ErrMissingEndpoint)
	case endpoint.TokenURL == "":
		return nil, fmt.Errorf("%w: token url", ErrMissingEndpoint)
	case userInfoURL == "":
		return nil, fmt.Errorf("%w: userinfo url", ErrMissingEndpoint)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}

	return &Provider{
		name: name,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		userInfoURL: userInfoURL,
		httpClient:  hc,
	}, nil
}

func (p *Provider) Name() string { return p.name }

// AuthCodeURL returns the provider's consent URL carrying state and the S256
// challenge for verifier.
func (p *Provider) AuthCodeURL(state, verifier string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))
}

// Exchange trades an authorization code for a token, proving possession of
// the PKCE verifier.
func (p *Provider) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	tok, err := p.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("provider: exchange code: %w", err)
	}
	return tok, nil
}

// userInfoResponse accepts both Google's v2 field and the OIDC claim name.
type userInfoResponse struct {
	Email              string `json:"email"`
	VerifiedEmail      *bool  `json:"verified_email"`
	EmailVerifiedClaim *bool  `json:"email_verified"`
}

// UserInfo fetches the caller's email and verification flag with tok.
func (p *Provider) UserInfo(ctx context.Context, tok *oauth2.Token) (domain.UserInfo, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	client := p.oauth.Client(ctx, tok)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return domain.UserInfo{}, fmt.Errorf("%w: %w", ErrUserInfo, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return domain.UserInfo{}, fmt.Errorf("%w: %w", ErrUserInfo, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return domain.UserInfo{}, fmt.Errorf("%w: status %d", ErrUserInfo, resp.StatusCode)
	}

	var body userInfoResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxUserInfoBytes)).Decode(&body); err != nil {
		return domain.UserInfo{}, fmt.Errorf("%w: decode: %w", ErrUserInfo, err)
	}

	info := domain.UserInfo{Email: strings.TrimSpace(body.Email)}
	switch {
	case body.VerifiedEmail != nil:
		info.VerifiedEmail = *body.VerifiedEmail
	case body.EmailVerifiedClaim != nil:
		info.VerifiedEmail = *body.EmailVerifiedClaim
	}
	return info, nil
}
