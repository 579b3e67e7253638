package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/example/bakery/pkg/config"
)

const ProviderGoogle = "google"

// Identity is what the store keeps from a provider ID token.
type Identity struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

type IdentityVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*Identity, error)
}

// OIDCVerifier checks ID tokens issued for the configured client.
type OIDCVerifier struct {
	provider string
	verifier *oidc.IDTokenVerifier
}

// NewGoogleVerifier discovers the provider keys from the issuer.
func NewGoogleVerifier(ctx context.Context, cfg *config.AuthConfig) (*OIDCVerifier, error) {
	if cfg.OIDCClientID == "" {
		return nil, errors.New("auth.oidc_client_id is required for provider login")
	}
	provider, err := oidc.NewProvider(ctx, cfg.OIDCIssuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover oidc provider: %w", err)
	}
	return &OIDCVerifier{
		provider: ProviderGoogle,
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.OIDCClientID}),
	}, nil
}

func NewOIDCVerifier(provider string, verifier *oidc.IDTokenVerifier) *OIDCVerifier {
	return &OIDCVerifier{provider: provider, verifier: verifier}
}

func (v *OIDCVerifier) Verify(ctx context.Context, rawIDToken string) (*Identity, error) {
	token, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to read id token claims: %w", err)
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("%w: id token has no email", ErrInvalidToken)
	}
	if !claims.EmailVerified {
		return nil, fmt.Errorf("%w: email %s is not verified", ErrInvalidToken, claims.Email)
	}
	return &Identity{
		Provider:      v.provider,
		Subject:       token.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		Picture:       claims.Picture,
	}, nil
}
