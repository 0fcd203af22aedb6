// Package authclient acquires and refreshes bearer access tokens from the
// identity provider on behalf of a signed-in account. Silent acquisition from
// the credential cache is always tried first; interactive acquisition is the
// fallback, never the default. The package owns the single active account and
// publishes changes to subscribers.
package authclient

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/entragate/funcgateway/authclient/authstate"
	"github.com/entragate/funcgateway/authclient/cache"
	apperrors "github.com/entragate/funcgateway/internal/errors"
)

const (
	// expiryMargin is how close to expiry a cached access token is still
	// presented before silent renewal kicks in
	expiryMargin = 30 * time.Second

	// pendingAuthTimeout bounds the gap between BeginInteractiveAuth and the
	// browser coming back through CompleteInteractiveAuth
	pendingAuthTimeout = 15 * time.Minute
)

// Config holds the provider registration for this client. Every value is
// supplied by the deployment; there are no production defaults here.
type Config struct {
	ClientID     string
	ClientSecret string // confidential clients only
	Authority    string // issuer URL, e.g. https://login.microsoftonline.com/{tenant}/v2.0
	RedirectURI  string // redirect-mode callback, unused by the loopback interactor
	Scopes       []string
}

// Client is the token acquisition component. Construct exactly one per
// process and call Initialize before anything else; every other method
// returns ErrNotInitialized until the barrier has completed.
type Client struct {
	cfg        Config
	creds      cache.Repo
	pending    authstate.Repo
	interactor Interactor
	httpClient *http.Client
	logger     zerolog.Logger
	nowTime    func() time.Time

	provider *oidc.Provider
	oauthCfg *oauth2.Config
	verifier *oidc.IDTokenVerifier

	mu          sync.Mutex
	initialized bool
	active      *Account
	nextSubID   int
	subs        map[int]func(*Account)
}

// Option defines a function type to modify the Client instance.
type Option func(*Client)

// WithInteractor sets the interactive sign-in mechanism (loopback browser
// flow). Without one the client operates in redirect mode only.
func WithInteractor(i Interactor) Option {
	return func(c *Client) { c.interactor = i }
}

// WithCredentialCache replaces the default in-memory credential cache.
func WithCredentialCache(repo cache.Repo) Option {
	return func(c *Client) { c.creds = repo }
}

// WithAuthStateRepo sets the pending-auth repository used by the redirect flow.
func WithAuthStateRepo(repo authstate.Repo) Option {
	return func(c *Client) { c.pending = repo }
}

// WithHTTPClient routes provider traffic through a custom client (testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Client) { c.nowTime = nowFunc }
}

// WithLogger replaces the default global logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a Client. The returned client is inert until Initialize runs.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:     cfg,
		creds:   cache.NewInMemoryRepo(),
		pending: authstate.NewInMemoryRepo(),
		logger:  log.Logger,
		nowTime: time.Now,
		subs:    make(map[int]func(*Account)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize discovers the provider endpoints and resolves any previously
// cached active account. It must complete before SignIn or AcquireToken is
// called; callers that race past it get ErrNotInitialized rather than a
// half-built client.
func (c *Client) Initialize(ctx context.Context) error {
	if c.httpClient != nil {
		ctx = oidc.ClientContext(ctx, c.httpClient)
	}

	provider, err := oidc.NewProvider(ctx, c.cfg.Authority)
	if err != nil {
		return apperrors.Wrapf(err, "[Client Initialize] oidc discovery for %q", c.cfg.Authority)
	}

	c.mu.Lock()
	c.provider = provider
	c.oauthCfg = &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  c.cfg.RedirectURI,
		Scopes:       c.loginScopes(),
	}
	c.verifier = provider.Verifier(&oidc.Config{ClientID: c.cfg.ClientID})
	c.initialized = true
	c.mu.Unlock()

	// Resolve a cached session before anyone asks for a token
	c.EnsureAccount()
	return nil
}

func (c *Client) requireInit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return apperrors.ErrNotInitialized
	}
	return nil
}

// loginScopes is the requested scope set plus offline_access so the provider
// hands back refresh material for silent renewal.
func (c *Client) loginScopes() []string {
	scopes := append([]string(nil), c.cfg.Scopes...)
	for _, s := range scopes {
		if s == oidc.ScopeOfflineAccess {
			return scopes
		}
	}
	return append(scopes, oidc.ScopeOfflineAccess)
}

// SignIn runs an interactive sign-in and makes the resulting account active.
func (c *Client) SignIn(ctx context.Context) (*Account, error) {
	if err := c.requireInit(); err != nil {
		return nil, err
	}
	if c.interactor == nil {
		return nil, apperrors.Wrapf(apperrors.ErrInteraction, "no interactor configured, use BeginInteractiveAuth for the redirect flow")
	}

	token, err := c.interactive(ctx)
	if err != nil {
		return nil, err
	}

	account, err := c.accountFromToken(ctx, token, "")
	if err != nil {
		return nil, err
	}

	if err := c.storeCredential(account, token); err != nil {
		return nil, err
	}
	c.setActive(account)
	return account, nil
}

// AcquireToken returns a current access token for the active account, or nil
// when nobody is signed in. Silent acquisition is tried first; interactive
// acquisition is the fallback. With no interactor configured the fallback is
// deferred to the redirect flow and the caller gets ErrTokenAcquisition.
func (c *Client) AcquireToken(ctx context.Context) (*Token, error) {
	if err := c.requireInit(); err != nil {
		return nil, err
	}

	account := c.ActiveAccount()
	if account == nil {
		// Never trigger an interactive sign-in implicitly
		return nil, nil
	}

	key := cache.Key(account.ID, c.cfg.Authority, c.loginScopes())
	cred, err := c.creds.Get(key)
	if err == nil && c.usable(cred.Token) {
		return c.bearerToken(account, cred.Token), nil
	}

	// Silent path: redeem the cached refresh material
	if err == nil && cred.Token != nil && cred.Token.RefreshToken != "" {
		refreshed, rerr := c.refreshToken(ctx, cred.Token)
		if rerr == nil {
			if serr := c.storeCredential(account, refreshed); serr != nil {
				return nil, serr
			}
			return c.bearerToken(account, refreshed), nil
		}
		c.logger.Warn().Err(rerr).Str("account", account.Username).Msg("silent token refresh failed, falling back to interactive")
	}

	if c.interactor == nil {
		return nil, apperrors.Wrapf(apperrors.ErrTokenAcquisition, "silent acquisition failed and interactive acquisition is deferred to the redirect flow")
	}

	token, err := c.interactive(ctx)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrTokenAcquisition, "interactive fallback: %v", err)
	}

	refreshedAccount, err := c.accountFromToken(ctx, token, "")
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrTokenAcquisition, "interactive fallback: %v", err)
	}
	if err := c.storeCredential(refreshedAccount, token); err != nil {
		return nil, err
	}
	c.setActive(refreshedAccount)
	return c.bearerToken(refreshedAccount, token), nil
}

// SignOut clears the active account and drops its cached credentials.
func (c *Client) SignOut(_ context.Context) error {
	if err := c.requireInit(); err != nil {
		return err
	}

	account := c.ActiveAccount()
	if account == nil {
		return nil
	}

	if err := c.creds.DeleteAccount(account.ID); err != nil {
		return apperrors.Wrapf(err, "[Client SignOut] clearing credentials for %q", account.Username)
	}
	c.setActive(nil)
	c.logger.Info().Str("account", account.Username).Msg("signed out")
	return nil
}

// EnsureAccount re-synchronizes the active account from the credential cache.
func (c *Client) EnsureAccount() {
	cred, err := c.creds.GetActive()
	if err != nil {
		c.setActive(nil)
		return
	}
	c.setActive(&Account{
		ID:       cred.AccountID,
		Username: cred.Username,
		Name:     cred.Name,
		TenantID: cred.TenantID,
	})
}

// ActiveAccount returns the currently signed-in account, or nil.
func (c *Client) ActiveAccount() *Account {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return nil
	}
	cp := *c.active
	return &cp
}

// OnAccountChanged registers a callback invoked whenever the active account
// changes. The returned function unsubscribes it.
func (c *Client) OnAccountChanged(fn func(*Account)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// setActive is the single writer for the active account. Subscribers are only
// notified on a real change.
func (c *Client) setActive(account *Account) {
	c.mu.Lock()
	prevID := ""
	if c.active != nil {
		prevID = c.active.ID
	}
	newID := ""
	if account != nil {
		newID = account.ID
	}
	if prevID == newID {
		c.active = account
		c.mu.Unlock()
		return
	}
	c.active = account
	subs := make([]func(*Account), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(account)
	}
	if account != nil {
		_ = c.creds.SetActive(account.ID)
	} else {
		_ = c.creds.SetActive("")
	}
}

// interactive drives the configured Interactor through one authorization-code
// exchange with fresh state, nonce and PKCE material.
func (c *Client) interactive(ctx context.Context) (*oauth2.Token, error) {
	verifier := generateRandomString(32)
	req := AuthRequest{
		OAuth:         c.cloneOAuthConfig(),
		State:         generateRandomString(16),
		Nonce:         generateRandomString(16),
		CodeVerifier:  verifier,
		CodeChallenge: generateCodeChallenge(verifier),
	}
	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}

	token, err := c.interactor.Authenticate(ctx, req)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInteraction, "%v", err)
	}
	return token, nil
}

// accountFromToken verifies the ID token riding along with a token response
// and builds the Account it describes. wantNonce is checked when non-empty.
func (c *Client) accountFromToken(ctx context.Context, token *oauth2.Token, wantNonce string) (*Account, error) {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, apperrors.Wrapf(apperrors.ErrTokenAcquisition, "no ID token in response")
	}

	if c.httpClient != nil {
		ctx = oidc.ClientContext(ctx, c.httpClient)
	}
	idToken, err := c.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrTokenAcquisition, "ID token verification: %v", err)
	}

	var claims struct {
		Nonce             string `json:"nonce"`
		Sub               string `json:"sub"`
		Email             string `json:"email"`
		PreferredUsername string `json:"preferred_username"`
		Name              string `json:"name"`
		TenantID          string `json:"tid"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrTokenAcquisition, "extracting claims: %v", err)
	}

	if wantNonce != "" && claims.Nonce != wantNonce {
		return nil, apperrors.ErrInvalidNonce
	}

	username := claims.PreferredUsername
	if username == "" {
		username = claims.Email
	}

	return &Account{
		ID:       claims.Sub,
		Username: username,
		Name:     claims.Name,
		TenantID: claims.TenantID,
	}, nil
}

func (c *Client) storeCredential(account *Account, token *oauth2.Token) error {
	key := cache.Key(account.ID, c.cfg.Authority, c.loginScopes())
	err := c.creds.Upsert(key, &cache.Credential{
		AccountID: account.ID,
		Username:  account.Username,
		Name:      account.Name,
		TenantID:  account.TenantID,
		Authority: c.cfg.Authority,
		Scopes:    c.loginScopes(),
		Token:     token,
	})
	if err != nil {
		return apperrors.Wrapf(err, "[Client storeCredential] caching credential for %q", account.Username)
	}
	return nil
}

// refreshToken redeems refresh material for a new access token.
func (c *Client) refreshToken(ctx context.Context, cached *oauth2.Token) (*oauth2.Token, error) {
	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}
	// Hand the token source only the refresh token so it cannot short-circuit
	// on the stale access token
	src := c.cloneOAuthConfig().TokenSource(ctx, &oauth2.Token{RefreshToken: cached.RefreshToken})
	refreshed, err := src.Token()
	if err != nil {
		return nil, err
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = cached.RefreshToken
	}
	return refreshed, nil
}

func (c *Client) usable(token *oauth2.Token) bool {
	return token != nil && token.AccessToken != "" &&
		token.Expiry.After(c.nowTime().Add(expiryMargin))
}

func (c *Client) bearerToken(account *Account, token *oauth2.Token) *Token {
	return &Token{
		AccessToken: token.AccessToken,
		Expiry:      token.Expiry,
		Scopes:      c.loginScopes(),
		Account:     account,
	}
}

func (c *Client) cloneOAuthConfig() *oauth2.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	cfg := *c.oauthCfg
	cfg.Scopes = append([]string(nil), c.oauthCfg.Scopes...)
	return &cfg
}

// generateRandomString creates a random base64url string
func generateRandomString(length int) string {
	b := make([]byte, length)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// generateCodeChallenge creates a PKCE code challenge from a verifier
func generateCodeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}
