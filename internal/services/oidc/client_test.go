package oidc

import (
	"strings"
	"testing"

	"github.com/taskquest/taskquest/internal/models"
)

func TestNewClient(t *testing.T) {
	t.Parallel()

	secret := "test-secret"

	tests := []struct {
		name       string
		oidcConfig *models.OIDCConfig
		wantSecret string
	}{
		{
			name: "confidential client",
			oidcConfig: &models.OIDCConfig{
				ClientID:     "test-client-id",
				ClientSecret: &secret,
				RedirectURI:  "http://localhost:3000/callback",
				Issuer:       "https://auth.example.com",
			},
			wantSecret: "test-secret",
		},
		{
			name: "public client without secret",
			oidcConfig: &models.OIDCConfig{
				ClientID:    "test-client-id",
				RedirectURI: "http://localhost:3000/callback",
				Issuer:      "https://auth.example.com",
			},
			wantSecret: "",
		},
	}

	for _, tt := range tests {

		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := NewClient(tt.oidcConfig)
			if client == nil || client.config == nil {
				t.Fatal("NewClient returned nil client or config")
			}
			if client.config.ClientID != tt.oidcConfig.ClientID {
				t.Errorf("Expected ClientID '%s', got '%s'", tt.oidcConfig.ClientID, client.config.ClientID)
			}
			if client.config.ClientSecret != tt.wantSecret {
				t.Errorf("Expected ClientSecret '%s', got '%s'", tt.wantSecret, client.config.ClientSecret)
			}
			if client.config.RedirectURL != tt.oidcConfig.RedirectURI {
				t.Errorf("Expected RedirectURL '%s', got '%s'", tt.oidcConfig.RedirectURI, client.config.RedirectURL)
			}
			if client.config.Endpoint.AuthURL != "https://auth.example.com/oauth2/authorize" {
				t.Errorf("Unexpected AuthURL: %s", client.config.Endpoint.AuthURL)
			}
		})
	}
}

func TestClient_AuthCodeURL(t *testing.T) {
	t.Parallel()

	client := NewClient(&models.OIDCConfig{
		ClientID:    "test-client-id",
		RedirectURI: "http://localhost:3000/callback",
		Issuer:      "https://auth.example.com",
	})

	url := client.AuthCodeURL("test-state-123")

	if !strings.HasPrefix(url, "https://auth.example.com/oauth2/authorize") {
		t.Errorf("AuthCodeURL should start with the authorization endpoint, got %s", url)
	}
	if !strings.Contains(url, "state=test-state-123") {
		t.Errorf("AuthCodeURL should carry the state parameter, got %s", url)
	}
	if !strings.Contains(url, "client_id=test-client-id") {
		t.Errorf("AuthCodeURL should carry the client ID, got %s", url)
	}
}
