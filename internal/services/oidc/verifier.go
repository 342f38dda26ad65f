package oidc

import (
	"context"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/taskquest/taskquest/internal/models"
)

// Verifier validates bearer tokens against the provider's signing keys
// and pins the issuer.
type Verifier struct {
	jwksManager *JWKSManager
	issuer      string
}

// NewVerifier creates a verifier for tokens issued by issuer.
func NewVerifier(jwksManager *JWKSManager, issuer string) *Verifier {
	return &Verifier{
		jwksManager: jwksManager,
		issuer:      issuer,
	}
}

// Verify checks the token's signature, validity window and issuer, and
// returns the claims the API uses downstream.
func (v *Verifier) Verify(ctx context.Context, tokenString string, jwksURL string) (*models.JWTClaims, error) {
	keys, err := v.jwksManager.GetJWKS(ctx, jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWKS: %w", err)
	}

	token, err := jwt.Parse([]byte(tokenString), jwt.WithKeySet(keys), jwt.WithValidate(true))
	if err != nil {
		return nil, fmt.Errorf("failed to parse/verify token: %w", err)
	}

	iss := stringClaim(token, "iss")
	if iss == "" {
		return nil, fmt.Errorf("token missing issuer claim")
	}
	if iss != v.issuer {
		return nil, fmt.Errorf("token issuer mismatch: expected %s, got %s", v.issuer, iss)
	}

	return &models.JWTClaims{
		Sub:   stringClaim(token, "sub"),
		Email: stringClaim(token, "email"),
		Name:  stringClaim(token, "name"),
		Exp:   int64Claim(token, "exp"),
		Iat:   int64Claim(token, "iat"),
		Iss:   iss,
		Aud:   audienceClaim(token),
	}, nil
}

func stringClaim(token jwt.Token, name string) string {
	v, ok := token.Get(name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// int64Claim normalizes numeric date claims; jwx surfaces registered
// claims like exp and iat as time.Time.
func int64Claim(token jwt.Token, name string) int64 {
	v, ok := token.Get(name)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case time.Time:
		return t.Unix()
	case float64:
		return int64(t)
	case int64:
		return t
	}
	return 0
}

// audienceClaim handles both string and array forms of aud, taking the
// first entry when the provider sends an array.
func audienceClaim(token jwt.Token) string {
	v, ok := token.Get("aud")
	if !ok {
		return ""
	}
	switch aud := v.(type) {
	case string:
		return aud
	case []any:
		if len(aud) > 0 {
			s, _ := aud[0].(string)
			return s
		}
	case []string:
		if len(aud) > 0 {
			return aud[0]
		}
	}
	return ""
}
