package identity

import (
	"context"
	"fmt"
	"time"

	keyfunc "github.com/MicahParks/keyfunc/v3"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/entragate/funcgateway/internal/errors"
)

// Config controls token validation policy.
type Config struct {
	// Authority is the discovery base, e.g.
	// "https://login.microsoftonline.com/{tenant}/v2.0". The discovery document
	// is fetched from {Authority}/.well-known/openid-configuration.
	Authority string

	// Issuer is the expected iss claim. Entra ID emits either the v2.0 form
	// ("https://login.microsoftonline.com/{tenant}/v2.0") or the legacy
	// "https://sts.windows.net/{tenant}/" form depending on token version; the
	// deployment picks one, it is never hardcoded here.
	Issuer string

	// ClientID is the expected audience. Tokens carrying the "api://{ClientID}"
	// application ID URI form are also accepted.
	ClientID string

	AllowedAlgs []string
	Leeway      time.Duration
}

// DefaultConfig returns a Config with safe algorithm and leeway defaults.
func DefaultConfig() Config {
	return Config{
		AllowedAlgs: []string{"RS256"},
		Leeway:      60 * time.Second,
	}
}

// Verifier validates bearer tokens against the provider's signing keys. The
// JWKS cache behind the keyfunc is safe for concurrent reads and refreshes
// itself, including on unrecognized key ids, which tolerates provider key
// rotation without restarts.
type Verifier struct {
	cfg     Config
	keyfunc jwt.Keyfunc
}

// NewVerifier fetches the provider's discovery metadata, wires up the JWKS
// cache and returns a ready Verifier.
func NewVerifier(ctx context.Context, cfg Config) (*Verifier, error) {
	if cfg.Authority == "" {
		return nil, fmt.Errorf("[NewVerifier] authority is required")
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("[NewVerifier] client ID is required")
	}
	if len(cfg.AllowedAlgs) == 0 {
		cfg.AllowedAlgs = []string{"RS256"}
	}
	if cfg.Issuer == "" {
		cfg.Issuer = cfg.Authority
	}

	provider, err := oidc.NewProvider(oidc.InsecureIssuerURLContext(ctx, cfg.Issuer), cfg.Authority)
	if err != nil {
		return nil, fmt.Errorf("[NewVerifier] oidc discovery failed: %w", err)
	}

	var meta struct {
		JwksURI string `json:"jwks_uri"`
	}
	if err := provider.Claims(&meta); err != nil {
		return nil, fmt.Errorf("[NewVerifier] invalid discovery metadata: %w", err)
	}
	if meta.JwksURI == "" {
		return nil, fmt.Errorf("[NewVerifier] discovery metadata has no jwks_uri")
	}

	kf, err := keyfunc.NewDefaultCtx(ctx, []string{meta.JwksURI})
	if err != nil {
		return nil, fmt.Errorf("[NewVerifier] jwks init failed: %w", err)
	}

	return &Verifier{cfg: cfg, keyfunc: kf.Keyfunc}, nil
}

// Verify checks the raw bearer token's signature, issuer, audience and expiry,
// in that order, and returns the resolved Identity. Failed checks map onto the
// sentinel errors in internal/errors; callers must treat all of them as 401.
func (v *Verifier) Verify(_ context.Context, raw string) (*Identity, error) {
	if raw == "" {
		return nil, apperrors.ErrUnauthenticated
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods(v.cfg.AllowedAlgs),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithLeeway(v.cfg.Leeway),
	)

	parsed, err := parser.Parse(raw, v.keyfunc)
	if err != nil {
		switch {
		case apperrors.Is(err, jwt.ErrTokenExpired):
			return nil, apperrors.Wrapf(apperrors.ErrTokenExpired, "token verification")
		case apperrors.Is(err, jwt.ErrTokenInvalidIssuer):
			return nil, apperrors.Wrapf(apperrors.ErrInvalidIssuer, "token verification")
		default:
			return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "token verification")
		}
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "unexpected claims type")
	}

	if err := v.checkAudience(claims); err != nil {
		return nil, err
	}

	return identityFromClaims(claims), nil
}

// checkAudience accepts the bare client ID or its api:// application ID URI.
func (v *Verifier) checkAudience(claims jwt.MapClaims) error {
	auds, err := claims.GetAudience()
	if err != nil || len(auds) == 0 {
		return apperrors.Wrapf(apperrors.ErrInvalidAudience, "missing aud claim")
	}
	for _, aud := range auds {
		if aud == v.cfg.ClientID || aud == "api://"+v.cfg.ClientID {
			return nil
		}
	}
	return apperrors.Wrapf(apperrors.ErrInvalidAudience, "aud %q", auds)
}
