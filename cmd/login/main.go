// Command login signs in interactively through the system browser, acquires
// an access token and calls the gateway's /auth/user endpoint with it.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/entragate/funcgateway/authclient"
	"github.com/entragate/funcgateway/internal/config"
	apperrors "github.com/entragate/funcgateway/internal/errors"
)

func main() {
	apiURL := flag.String("api", "http://localhost:4000", "gateway base URL")
	timeout := flag.Duration("timeout", 5*time.Minute, "how long to wait for the browser sign-in")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := run(*apiURL, *timeout); err != nil {
		log.Fatal().Err(err).Msg("login failed")
	}
}

func run(apiURL string, timeout time.Duration) error {
	c := config.New()
	ctx := context.Background()

	client := authclient.New(authclient.Config{
		ClientID:     c.GetClientID(),
		ClientSecret: c.GetClientSecret(),
		Authority:    c.GetIssuerURL(),
		Scopes:       c.GetScopes(),
	}, authclient.WithInteractor(&authclient.LoopbackInteractor{Timeout: timeout}))

	if err := client.Initialize(ctx); err != nil {
		return fmt.Errorf("initializing auth client: %w", err)
	}

	account, err := client.SignIn(ctx)
	if err != nil {
		return fmt.Errorf("signing in: %w", err)
	}
	log.Info().Str("account", account.Username).Msg("signed in")

	token, err := client.AcquireToken(ctx)
	if err != nil {
		return fmt.Errorf("acquiring token: %w", err)
	}
	if token == nil {
		return apperrors.ErrNoActiveAccount
	}
	if !token.Valid(time.Now()) {
		return fmt.Errorf("acquired token already expired at %s", token.Expiry)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+"/auth/user", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, body)
	}

	fmt.Println(string(body))
	return nil
}
