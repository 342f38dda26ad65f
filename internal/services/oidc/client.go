package oidc

import (
	"context"

	"github.com/taskquest/taskquest/internal/models"
	"golang.org/x/oauth2"
)

// Client drives the authorization code flow for a stored provider config.
type Client struct {
	config *oauth2.Config
}

// NewClient builds an OAuth2 client from the provider row. A nil
// ClientSecret means a public client; the endpoints follow the issuer's
// standard /oauth2 layout.
func NewClient(oidcConfig *models.OIDCConfig) *Client {
	clientSecret := ""
	if oidcConfig.ClientSecret != nil {
		clientSecret = *oidcConfig.ClientSecret
	}

	return &Client{config: &oauth2.Config{
		ClientID:     oidcConfig.ClientID,
		ClientSecret: clientSecret,
		RedirectURL:  oidcConfig.RedirectURI,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  oidcConfig.Issuer + "/oauth2/authorize",
			TokenURL: oidcConfig.Issuer + "/oauth2/token",
		},
	}}
}

// AuthCodeURL returns the provider login URL carrying state.
func (c *Client) AuthCodeURL(state string) string {
	return c.config.AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return c.config.Exchange(ctx, code)
}
