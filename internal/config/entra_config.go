package config

import "fmt"

// EntraConfig supplies the identity provider settings. All values come from the
// environment; a production deployment must set every one of them.
type EntraConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetTenantID() string
	GetAuthorityHost() string
	GetIssuerURL() string
	GetRedirectURI() string
	GetScopes() []string
}

const (
	clientIDVar     = "AZURE_CLIENT_ID"
	clientSecretVar = "AZURE_CLIENT_SECRET"
	tenantIDVar     = "AZURE_TENANT_ID"
	authorityVar    = "AZURE_AUTHORITY"
	redirectURIVar  = "REDIRECT_URI"
	apiScopeVar     = "API_SCOPE"
	issuerFormatVar = "ISSUER_FORMAT"
)

type Entra struct{}

var _ EntraConfig = Entra{}

func (Entra) GetClientID() string {
	return GetEnv(clientIDVar, "")
}

// GetClientSecret is confidential and backend only, never handed to a client
func (Entra) GetClientSecret() string {
	return GetEnv(clientSecretVar, "")
}

func (Entra) GetTenantID() string {
	return GetEnv(tenantIDVar, "common")
}

func (Entra) GetAuthorityHost() string {
	return GetEnv(authorityVar, "https://login.microsoftonline.com")
}

// GetIssuerURL builds the expected issuer for the configured tenant. The v2.0
// form is the default; ISSUER_FORMAT=legacy selects the sts.windows.net form
// still emitted for v1.0 access tokens.
func (e Entra) GetIssuerURL() string {
	if GetEnv(issuerFormatVar, "v2.0") == "legacy" {
		return fmt.Sprintf("https://sts.windows.net/%s/", e.GetTenantID())
	}
	return fmt.Sprintf("%s/%s/v2.0", e.GetAuthorityHost(), e.GetTenantID())
}

func (Entra) GetRedirectURI() string {
	return GetEnv(redirectURIVar, "http://localhost:4000/auth/callback")
}

// GetScopes returns the login scopes. If an API scope is provided, include it.
func (Entra) GetScopes() []string {
	scopes := []string{"openid", "profile", "email"}
	if apiScope := GetEnv(apiScopeVar, ""); apiScope != "" {
		scopes = append(scopes, apiScope)
	}
	return scopes
}
