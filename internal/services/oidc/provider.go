package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/taskquest/taskquest/internal/database"
	"github.com/taskquest/taskquest/internal/models"
)

// Provider resolves stored identity provider configuration into what the
// frontend needs to run a login flow.
type Provider struct {
	repo *database.OIDCConfigRepository
}

// NewProvider creates a provider manager backed by the config repository.
func NewProvider(repo *database.OIDCConfigRepository) *Provider {
	return &Provider{repo: repo}
}

// GetConfig retrieves the stored configuration for a provider name.
func (p *Provider) GetConfig(ctx context.Context, providerName string) (*models.OIDCConfig, error) {
	config, err := p.repo.GetByProvider(ctx, providerName)
	if err != nil {
		return nil, fmt.Errorf("failed to get OIDC config: %w", err)
	}
	return config, nil
}

// LoginConfig is the provider metadata handed to the frontend so it can
// start an authorization code flow.
type LoginConfig struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	ClientID              string `json:"client_id"`
	RedirectURI           string `json:"redirect_uri"`
	Scope                 string `json:"scope"`
}

// GetLoginConfig builds the login metadata for a provider. Endpoints come
// from OIDC discovery when the issuer serves it, otherwise from the
// issuer's conventional /oauth2 paths. Cognito is special-cased: its
// OAuth2 endpoints live on the configured domain, not the issuer.
func (p *Provider) GetLoginConfig(ctx context.Context, providerName string) (*LoginConfig, error) {
	config, err := p.GetConfig(ctx, providerName)
	if err != nil {
		return nil, err
	}

	authEndpoint := p.discoverAuthEndpoint(ctx, config.Issuer)
	if authEndpoint == "" {
		authEndpoint = joinIssuerPath(config.Issuer, "oauth2/authorize")
	}

	var tokenEndpoint string
	if config.Domain != nil && *config.Domain != "" && strings.Contains(config.Issuer, "cognito-idp.") {
		base := domainBaseURL(*config.Domain)
		authEndpoint = base + "/oauth2/authorize"
		tokenEndpoint = base + "/oauth2/token"
	} else {
		tokenEndpoint = joinIssuerPath(config.Issuer, "oauth2/token")
	}

	return &LoginConfig{
		AuthorizationEndpoint: authEndpoint,
		TokenEndpoint:         tokenEndpoint,
		ClientID:              config.ClientID,
		RedirectURI:           config.RedirectURI,
		Scope:                 "openid email profile",
	}, nil
}

// discoverAuthEndpoint fetches the authorization endpoint from the
// issuer's discovery document. Returns "" on any failure; callers fall
// back to the conventional path.
func (p *Provider) discoverAuthEndpoint(ctx context.Context, issuer string) string {
	discoveryURL := issuer + "/.well-known/openid-configuration"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return ""
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return ""
	}
	defer resp.Body.Close()

	var discovery struct {
		AuthorizationEndpoint string `json:"authorization_endpoint"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&discovery); err != nil {
		return ""
	}
	return discovery.AuthorizationEndpoint
}

// joinIssuerPath appends path to issuer, tolerating a trailing slash.
func joinIssuerPath(issuer, path string) string {
	if strings.HasSuffix(issuer, "/") {
		return issuer + path
	}
	return issuer + "/" + path
}

// domainBaseURL normalizes a configured OAuth2 domain to a base URL. The
// domain may arrive bare (idp.example.com) or already carrying a scheme.
func domainBaseURL(domain string) string {
	if strings.HasPrefix(domain, "https://") {
		return domain
	}
	return "https://" + domain
}
