package authclient

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/entragate/funcgateway/authclient/authstate"
	apperrors "github.com/entragate/funcgateway/internal/errors"
)

// The redirect flow is a suspended computation: BeginInteractiveAuth never
// "returns" an account in the navigating process, it hands back the provider
// URL and parks the flow's secrets. CompleteInteractiveAuth is the resume
// point, invoked when the browser comes back through the callback route.

// BeginInteractiveAuth records a pending authorization (state, PKCE verifier,
// nonce) and returns the provider URL to send the browser to.
func (c *Client) BeginInteractiveAuth(_ context.Context, returnURL string) (string, error) {
	if err := c.requireInit(); err != nil {
		return "", err
	}

	state := generateRandomString(16)
	verifier := generateRandomString(32)
	nonce := uuid.NewString()

	err := c.pending.Upsert(state, &authstate.PendingAuth{
		CodeVerifier: verifier,
		Nonce:        nonce,
		ReturnURL:    returnURL,
		CreatedAt:    c.nowTime(),
	})
	if err != nil {
		return "", apperrors.Wrapf(err, "[BeginInteractiveAuth] recording pending auth")
	}

	authURL := c.cloneOAuthConfig().AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", generateCodeChallenge(verifier)),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		oauth2.SetAuthURLParam("nonce", nonce),
	)
	return authURL, nil
}

// CompleteInteractiveAuth consumes the pending authorization matching state,
// exchanges the code and makes the resulting account active. Each pending
// authorization is usable exactly once and only within its timeout window.
func (c *Client) CompleteInteractiveAuth(ctx context.Context, state, code string) (*Account, string, error) {
	if err := c.requireInit(); err != nil {
		return nil, "", err
	}

	pending, err := c.pending.Get(state)
	if err != nil {
		return nil, "", apperrors.Wrapf(apperrors.ErrInvalidAuthState, "unknown state")
	}
	// One-shot: the state is spent whether or not the exchange succeeds
	if err := c.pending.Delete(state); err != nil {
		return nil, "", apperrors.Wrapf(err, "[CompleteInteractiveAuth] consuming state")
	}

	if c.nowTime().Sub(pending.CreatedAt) > pendingAuthTimeout {
		return nil, "", apperrors.ErrAuthStateExpired
	}

	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}
	token, err := c.cloneOAuthConfig().Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", pending.CodeVerifier))
	if err != nil {
		return nil, "", apperrors.Wrapf(apperrors.ErrTokenAcquisition, "code exchange: %v", err)
	}

	account, err := c.accountFromToken(ctx, token, pending.Nonce)
	if err != nil {
		return nil, "", err
	}

	if err := c.storeCredential(account, token); err != nil {
		return nil, "", err
	}
	c.setActive(account)
	return account, pending.ReturnURL, nil
}
