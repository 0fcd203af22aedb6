package authclient_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/entragate/funcgateway/authclient"
	"github.com/entragate/funcgateway/authclient/cache"
	"github.com/entragate/funcgateway/identity/identitytest"
	apperrors "github.com/entragate/funcgateway/internal/errors"
)

const testClientID = "client-123"

type fakeInteractor struct {
	token *oauth2.Token
	err   error
	calls int
}

func (f *fakeInteractor) Authenticate(_ context.Context, _ authclient.AuthRequest) (*oauth2.Token, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.token, nil
}

func newTestClient(t *testing.T, provider *identitytest.Provider, opts ...authclient.Option) *authclient.Client {
	t.Helper()
	cfg := authclient.Config{
		ClientID:    testClientID,
		Authority:   provider.Issuer(),
		RedirectURI: "http://localhost:4000/auth/callback",
		Scopes:      []string{"openid", "profile", "email"},
	}
	client := authclient.New(cfg, opts...)
	require.NoError(t, client.Initialize(context.Background()))
	return client
}

// signInToken builds the token response a successful interactive sign-in
// would produce, with the ID token minted by the fake provider.
func signInToken(provider *identitytest.Provider, expiry time.Time) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  "seed-access",
		TokenType:    "Bearer",
		RefreshToken: "seed-refresh",
		Expiry:       expiry,
	}
	return tok.WithExtra(map[string]any{"id_token": provider.MintAccessToken(nil)})
}

func TestClient_RequiresInitialize(t *testing.T) {
	client := authclient.New(authclient.Config{ClientID: testClientID})

	_, err := client.SignIn(context.Background())
	require.True(t, apperrors.Is(err, apperrors.ErrNotInitialized))

	_, err = client.AcquireToken(context.Background())
	require.True(t, apperrors.Is(err, apperrors.ErrNotInitialized))

	_, err = client.BeginInteractiveAuth(context.Background(), "/")
	require.True(t, apperrors.Is(err, apperrors.ErrNotInitialized))
}

func TestClient_SignIn(t *testing.T) {
	provider, err := identitytest.New(testClientID)
	require.NoError(t, err)
	defer provider.Close()

	interactor := &fakeInteractor{token: signInToken(provider, time.Now().Add(time.Hour))}
	client := newTestClient(t, provider, authclient.WithInteractor(interactor))

	account, err := client.SignIn(context.Background())
	require.NoError(t, err)
	require.Equal(t, "abc", account.ID)
	require.Equal(t, "u@tenant.com", account.Username)
	require.Equal(t, 1, interactor.calls)

	active := client.ActiveAccount()
	require.NotNil(t, active)
	require.Equal(t, account.ID, active.ID)
}

func TestClient_SignInWithoutInteractor(t *testing.T) {
	provider, err := identitytest.New(testClientID)
	require.NoError(t, err)
	defer provider.Close()

	client := newTestClient(t, provider)

	_, err = client.SignIn(context.Background())
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.ErrInteraction))
}

func TestClient_AcquireTokenNoAccount(t *testing.T) {
	provider, err := identitytest.New(testClientID)
	require.NoError(t, err)
	defer provider.Close()

	interactor := &fakeInteractor{token: signInToken(provider, time.Now().Add(time.Hour))}
	client := newTestClient(t, provider, authclient.WithInteractor(interactor))

	token, err := client.AcquireToken(context.Background())
	require.NoError(t, err)
	require.Nil(t, token)
	require.Zero(t, interactor.calls, "no interaction without an active account")
}

func TestClient_AcquireTokenFromCache(t *testing.T) {
	provider, err := identitytest.New(testClientID)
	require.NoError(t, err)
	defer provider.Close()

	interactor := &fakeInteractor{token: signInToken(provider, time.Now().Add(time.Hour))}
	client := newTestClient(t, provider, authclient.WithInteractor(interactor))

	_, err = client.SignIn(context.Background())
	require.NoError(t, err)

	token, err := client.AcquireToken(context.Background())
	require.NoError(t, err)
	require.NotNil(t, token)
	require.Equal(t, "seed-access", token.AccessToken)
	require.Equal(t, 1, interactor.calls, "cached token served without interaction")
	require.Equal(t, "abc", token.Account.ID)
}

func TestClient_AcquireTokenSilentRefresh(t *testing.T) {
	provider, err := identitytest.New(testClientID)
	require.NoError(t, err)
	defer provider.Close()

	// Sign in with an access token that is already past its expiry margin
	interactor := &fakeInteractor{token: signInToken(provider, time.Now().Add(-time.Minute))}
	client := newTestClient(t, provider, authclient.WithInteractor(interactor))

	_, err = client.SignIn(context.Background())
	require.NoError(t, err)

	token, err := client.AcquireToken(context.Background())
	require.NoError(t, err)
	require.NotNil(t, token)
	require.NotEqual(t, "seed-access", token.AccessToken, "stale token replaced by refresh")
	require.Equal(t, 1, interactor.calls, "refresh stays silent")

	t.Run("refreshed token is cached", func(t *testing.T) {
		again, err := client.AcquireToken(context.Background())
		require.NoError(t, err)
		require.Equal(t, token.AccessToken, again.AccessToken)
	})
}

func TestClient_AcquireTokenInteractiveFallback(t *testing.T) {
	provider, err := identitytest.New(testClientID)
	require.NoError(t, err)
	defer provider.Close()

	interactor := &fakeInteractor{token: signInToken(provider, time.Now().Add(-time.Minute))}
	client := newTestClient(t, provider, authclient.WithInteractor(interactor))

	_, err = client.SignIn(context.Background())
	require.NoError(t, err)

	provider.FailRefresh(true)
	interactor.token = signInToken(provider, time.Now().Add(time.Hour))

	token, err := client.AcquireToken(context.Background())
	require.NoError(t, err)
	require.NotNil(t, token)
	require.Equal(t, "seed-access", token.AccessToken)
	require.Equal(t, 2, interactor.calls, "interactive fallback after failed refresh")
}

func TestClient_AcquireTokenRedirectModeDefersInteraction(t *testing.T) {
	provider, err := identitytest.New(testClientID)
	require.NoError(t, err)
	defer provider.Close()

	creds := cache.NewInMemoryRepo()
	interactor := &fakeInteractor{token: signInToken(provider, time.Now().Add(-time.Minute))}
	seeded := newTestClient(t, provider,
		authclient.WithInteractor(interactor),
		authclient.WithCredentialCache(creds))
	_, err = seeded.SignIn(context.Background())
	require.NoError(t, err)

	// Same cache, no interactor: the redirect-mode client must not block on
	// a browser it does not have
	provider.FailRefresh(true)
	client := newTestClient(t, provider, authclient.WithCredentialCache(creds))

	_, err = client.AcquireToken(context.Background())
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.ErrTokenAcquisition))
}

func TestClient_SignOut(t *testing.T) {
	provider, err := identitytest.New(testClientID)
	require.NoError(t, err)
	defer provider.Close()

	interactor := &fakeInteractor{token: signInToken(provider, time.Now().Add(time.Hour))}
	client := newTestClient(t, provider, authclient.WithInteractor(interactor))

	_, err = client.SignIn(context.Background())
	require.NoError(t, err)

	require.NoError(t, client.SignOut(context.Background()))
	require.Nil(t, client.ActiveAccount())

	token, err := client.AcquireToken(context.Background())
	require.NoError(t, err)
	require.Nil(t, token, "credentials dropped on sign-out")

	t.Run("idempotent", func(t *testing.T) {
		require.NoError(t, client.SignOut(context.Background()))
	})
}

func TestClient_EnsureAccountOnInitialize(t *testing.T) {
	provider, err := identitytest.New(testClientID)
	require.NoError(t, err)
	defer provider.Close()

	creds := cache.NewInMemoryRepo()
	interactor := &fakeInteractor{token: signInToken(provider, time.Now().Add(time.Hour))}
	first := newTestClient(t, provider,
		authclient.WithInteractor(interactor),
		authclient.WithCredentialCache(creds))
	_, err = first.SignIn(context.Background())
	require.NoError(t, err)

	// A fresh client over the same cache resumes the session silently
	second := newTestClient(t, provider, authclient.WithCredentialCache(creds))
	active := second.ActiveAccount()
	require.NotNil(t, active)
	require.Equal(t, "abc", active.ID)
}

func TestClient_OnAccountChanged(t *testing.T) {
	provider, err := identitytest.New(testClientID)
	require.NoError(t, err)
	defer provider.Close()

	interactor := &fakeInteractor{token: signInToken(provider, time.Now().Add(time.Hour))}
	client := newTestClient(t, provider, authclient.WithInteractor(interactor))

	var events []*authclient.Account
	unsubscribe := client.OnAccountChanged(func(a *authclient.Account) {
		events = append(events, a)
	})

	_, err = client.SignIn(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "abc", events[0].ID)

	t.Run("repeat sign-in of the same account does not notify", func(t *testing.T) {
		_, err := client.SignIn(context.Background())
		require.NoError(t, err)
		require.Len(t, events, 1)
	})

	require.NoError(t, client.SignOut(context.Background()))
	require.Len(t, events, 2)
	require.Nil(t, events[1])

	unsubscribe()
	_, err = client.SignIn(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2, "no notifications after unsubscribe")
}

func beginAuth(t *testing.T, client *authclient.Client, returnURL string) (state, nonce string) {
	t.Helper()
	authURL, err := client.BeginInteractiveAuth(context.Background(), returnURL)
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	query := parsed.Query()
	require.Equal(t, "S256", query.Get("code_challenge_method"))
	require.NotEmpty(t, query.Get("code_challenge"))
	require.NotEmpty(t, query.Get("state"))
	require.NotEmpty(t, query.Get("nonce"))
	return query.Get("state"), query.Get("nonce")
}

func TestClient_RedirectFlow(t *testing.T) {
	provider, err := identitytest.New(testClientID)
	require.NoError(t, err)
	defer provider.Close()

	client := newTestClient(t, provider)

	state, nonce := beginAuth(t, client, "http://localhost:5173/dashboard")
	provider.SetNextNonce(nonce)

	account, returnURL, err := client.CompleteInteractiveAuth(context.Background(), state, "test-code")
	require.NoError(t, err)
	require.Equal(t, "abc", account.ID)
	require.Equal(t, "http://localhost:5173/dashboard", returnURL)
	require.NotNil(t, client.ActiveAccount())

	t.Run("token acquisition works after the redirect flow", func(t *testing.T) {
		token, err := client.AcquireToken(context.Background())
		require.NoError(t, err)
		require.NotNil(t, token)
		require.NotEmpty(t, token.AccessToken)
	})

	t.Run("state is one-shot", func(t *testing.T) {
		_, _, err := client.CompleteInteractiveAuth(context.Background(), state, "test-code")
		require.True(t, apperrors.Is(err, apperrors.ErrInvalidAuthState))
	})
}

func TestClient_RedirectFlowUnknownState(t *testing.T) {
	provider, err := identitytest.New(testClientID)
	require.NoError(t, err)
	defer provider.Close()

	client := newTestClient(t, provider)

	_, _, err = client.CompleteInteractiveAuth(context.Background(), "never-issued", "test-code")
	require.True(t, apperrors.Is(err, apperrors.ErrInvalidAuthState))
}

func TestClient_RedirectFlowExpiredState(t *testing.T) {
	provider, err := identitytest.New(testClientID)
	require.NoError(t, err)
	defer provider.Close()

	now := time.Now()
	client := newTestClient(t, provider, authclient.WithNowTime(func() time.Time { return now }))

	state, _ := beginAuth(t, client, "/")

	now = now.Add(16 * time.Minute)
	_, _, err = client.CompleteInteractiveAuth(context.Background(), state, "test-code")
	require.True(t, apperrors.Is(err, apperrors.ErrAuthStateExpired))
}

func TestClient_RedirectFlowNonceMismatch(t *testing.T) {
	provider, err := identitytest.New(testClientID)
	require.NoError(t, err)
	defer provider.Close()

	client := newTestClient(t, provider)

	state, _ := beginAuth(t, client, "/")
	provider.SetNextNonce("a-nonce-from-some-other-flow")

	_, _, err = client.CompleteInteractiveAuth(context.Background(), state, "test-code")
	require.True(t, apperrors.Is(err, apperrors.ErrInvalidNonce))
	require.Nil(t, client.ActiveAccount())
}
