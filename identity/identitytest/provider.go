// Package identitytest runs a fake identity provider for tests: discovery
// metadata, a JWKS endpoint backed by a fresh RSA key, and a token endpoint
// that mints signed tokens. It stands in for Azure AD in component and
// end-to-end tests.
package identitytest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

// Provider is the running fake. Mutable fields steer what the token endpoint
// hands out next; set them before driving the flow under test.
type Provider struct {
	ClientID string
	Subject  string
	Username string
	Name     string
	TenantID string

	mu          sync.Mutex
	nextNonce   string
	failRefresh bool
	accessTTL   time.Duration

	srv *httptest.Server
	key *rsa.PrivateKey
	kid string
}

// New starts a fake provider. Callers must Close it.
func New(clientID string) (*Provider, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		ClientID:  clientID,
		Subject:   "abc",
		Username:  "u@tenant.com",
		Name:      "Test User",
		TenantID:  "tenant-1",
		accessTTL: time.Hour,
		key:       key,
		kid:       "test-key",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-configuration", p.handleDiscovery)
	mux.HandleFunc("GET /keys", p.handleJWKS)
	mux.HandleFunc("POST /oauth2/token", p.handleToken)
	p.srv = httptest.NewServer(mux)
	return p, nil
}

func (p *Provider) Close() { p.srv.Close() }

// Issuer is the provider's base URL; it doubles as the expected iss claim.
func (p *Provider) Issuer() string { return p.srv.URL }

// SetNextNonce fixes the nonce the next issued ID token will carry.
func (p *Provider) SetNextNonce(nonce string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextNonce = nonce
}

// FailRefresh makes refresh_token grants fail until reset, simulating expired
// refresh material.
func (p *Provider) FailRefresh(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failRefresh = fail
}

// MintAccessToken signs a token with the provider's key. Standard claims
// default to valid values; pass overrides to break specific checks.
func (p *Provider) MintAccessToken(overrides jwt.MapClaims) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":                p.Issuer(),
		"aud":                p.ClientID,
		"sub":                p.Subject,
		"preferred_username": p.Username,
		"name":               p.Name,
		"tid":                p.TenantID,
		"iat":                now.Unix(),
		"exp":                now.Add(p.accessTTL).Unix(),
	}
	for k, v := range overrides {
		claims[k] = v
	}
	return p.sign(claims)
}

func (p *Provider) sign(claims jwt.MapClaims) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = p.kid
	signed, err := tok.SignedString(p.key)
	if err != nil {
		panic("identitytest: signing token: " + err.Error())
	}
	return signed
}

func (p *Provider) handleDiscovery(w http.ResponseWriter, _ *http.Request) {
	meta := map[string]any{
		"issuer":                                p.Issuer(),
		"jwks_uri":                              p.Issuer() + "/keys",
		"authorization_endpoint":                p.Issuer() + "/oauth2/authorize",
		"token_endpoint":                        p.Issuer() + "/oauth2/token",
		"response_types_supported":              []string{"code"},
		"subject_types_supported":               []string{"public"},
		"id_token_signing_alg_values_supported": []string{"RS256"},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(meta)
}

func (p *Provider) handleJWKS(w http.ResponseWriter, _ *http.Request) {
	set := jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{{
			Key:       &p.key.PublicKey,
			KeyID:     p.kid,
			Algorithm: "RS256",
			Use:       "sig",
		}},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(set)
}

func (p *Provider) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	nonce := p.nextNonce
	failRefresh := p.failRefresh
	ttl := p.accessTTL
	p.mu.Unlock()

	grantType := r.FormValue("grant_type")
	if grantType == "refresh_token" && failRefresh {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_grant",
			"error_description": "refresh token expired",
		})
		return
	}

	now := time.Now()
	idClaims := jwt.MapClaims{
		"iss":                p.Issuer(),
		"aud":                p.ClientID,
		"sub":                p.Subject,
		"preferred_username": p.Username,
		"name":               p.Name,
		"tid":                p.TenantID,
		"iat":                now.Unix(),
		"exp":                now.Add(ttl).Unix(),
	}
	if nonce != "" {
		idClaims["nonce"] = nonce
	}

	resp := map[string]any{
		"access_token":  p.MintAccessToken(nil),
		"token_type":    "Bearer",
		"expires_in":    int(ttl.Seconds()),
		"refresh_token": "refresh-" + grantType,
		"id_token":      p.sign(idClaims),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
