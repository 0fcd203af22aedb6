package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/entragate/funcgateway/identity"
	"github.com/entragate/funcgateway/identity/identitytest"
	apperrors "github.com/entragate/funcgateway/internal/errors"
)

const testClientID = "client-123"

func newVerifier(t *testing.T, provider *identitytest.Provider) *identity.Verifier {
	t.Helper()
	cfg := identity.DefaultConfig()
	cfg.Authority = provider.Issuer()
	cfg.Issuer = provider.Issuer()
	cfg.ClientID = testClientID

	verifier, err := identity.NewVerifier(context.Background(), cfg)
	require.NoError(t, err)
	return verifier
}

func TestVerifier_ValidToken(t *testing.T) {
	provider, err := identitytest.New(testClientID)
	require.NoError(t, err)
	defer provider.Close()

	verifier := newVerifier(t, provider)
	token := provider.MintAccessToken(nil)

	ident, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "abc", ident.Subject)
	require.Equal(t, "u@tenant.com", ident.Email)
	require.Equal(t, "Test User", ident.Name)
	require.Equal(t, "tenant-1", ident.TenantID)

	t.Run("repeat validation is deterministic", func(t *testing.T) {
		again, err := verifier.Verify(context.Background(), token)
		require.NoError(t, err)
		require.Equal(t, ident, again)
	})
}

func TestVerifier_ClaimFallbacks(t *testing.T) {
	provider, err := identitytest.New(testClientID)
	require.NoError(t, err)
	defer provider.Close()

	verifier := newVerifier(t, provider)

	t.Run("upn stands in for preferred_username", func(t *testing.T) {
		token := provider.MintAccessToken(jwt.MapClaims{
			"preferred_username": "",
			"upn":                "legacy@tenant.com",
		})
		ident, err := verifier.Verify(context.Background(), token)
		require.NoError(t, err)
		require.Equal(t, "legacy@tenant.com", ident.Email)
	})

	t.Run("scp claim becomes scopes", func(t *testing.T) {
		token := provider.MintAccessToken(jwt.MapClaims{"scp": "Functions.Read Functions.Execute"})
		ident, err := verifier.Verify(context.Background(), token)
		require.NoError(t, err)
		require.Equal(t, []string{"Functions.Read", "Functions.Execute"}, ident.Scopes)
	})
}

func TestVerifier_AcceptsAppIDURIAudience(t *testing.T) {
	provider, err := identitytest.New(testClientID)
	require.NoError(t, err)
	defer provider.Close()

	verifier := newVerifier(t, provider)
	token := provider.MintAccessToken(jwt.MapClaims{"aud": "api://" + testClientID})

	_, err = verifier.Verify(context.Background(), token)
	require.NoError(t, err)
}

func TestVerifier_AudienceMismatch(t *testing.T) {
	provider, err := identitytest.New(testClientID)
	require.NoError(t, err)
	defer provider.Close()

	verifier := newVerifier(t, provider)
	token := provider.MintAccessToken(jwt.MapClaims{"aud": "some-other-client"})

	_, err = verifier.Verify(context.Background(), token)
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.ErrInvalidAudience))
}

func TestVerifier_ExpiredToken(t *testing.T) {
	provider, err := identitytest.New(testClientID)
	require.NoError(t, err)
	defer provider.Close()

	verifier := newVerifier(t, provider)
	token := provider.MintAccessToken(jwt.MapClaims{
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err = verifier.Verify(context.Background(), token)
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.ErrTokenExpired))
}

func TestVerifier_IssuerMismatch(t *testing.T) {
	provider, err := identitytest.New(testClientID)
	require.NoError(t, err)
	defer provider.Close()

	verifier := newVerifier(t, provider)
	token := provider.MintAccessToken(jwt.MapClaims{
		"iss": "https://sts.windows.net/elsewhere/",
	})

	_, err = verifier.Verify(context.Background(), token)
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.ErrInvalidIssuer))
}

func TestVerifier_WrongSigningKey(t *testing.T) {
	provider, err := identitytest.New(testClientID)
	require.NoError(t, err)
	defer provider.Close()

	other, err := identitytest.New(testClientID)
	require.NoError(t, err)
	defer other.Close()

	verifier := newVerifier(t, provider)

	// Correct issuer and audience claims, signed by a key the verifier has
	// never seen
	token := other.MintAccessToken(jwt.MapClaims{
		"iss": provider.Issuer(),
		"aud": testClientID,
	})

	_, err = verifier.Verify(context.Background(), token)
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.ErrInvalidToken))
}

func TestVerifier_EmptyToken(t *testing.T) {
	provider, err := identitytest.New(testClientID)
	require.NoError(t, err)
	defer provider.Close()

	verifier := newVerifier(t, provider)

	_, err = verifier.Verify(context.Background(), "")
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.ErrUnauthenticated))
}

func TestVerifier_MalformedToken(t *testing.T) {
	provider, err := identitytest.New(testClientID)
	require.NoError(t, err)
	defer provider.Close()

	verifier := newVerifier(t, provider)

	_, err = verifier.Verify(context.Background(), "not.a.token")
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.ErrInvalidToken))
}
