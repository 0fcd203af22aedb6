package authclient

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"time"

	"github.com/pkg/browser"
	"golang.org/x/oauth2"
)

// AuthRequest carries everything an Interactor needs to run one interactive
// authorization-code exchange. OAuth is the interactor's own copy; it may
// rewrite RedirectURL to point at itself.
type AuthRequest struct {
	OAuth         *oauth2.Config
	State         string
	Nonce         string
	CodeVerifier  string
	CodeChallenge string
}

// Interactor performs an interactive sign-in and returns the provider's token
// response. Implementations surface user cancellation and provider errors as
// plain errors; the caller wraps them into the interaction error family.
type Interactor interface {
	Authenticate(ctx context.Context, req AuthRequest) (*oauth2.Token, error)
}

// LoopbackInteractor signs in through the system browser: it serves a
// one-shot callback endpoint on the loopback interface, sends the user to the
// provider's authorization page and waits for the browser to come back with
// the code. This is the native analog of a popup sign-in: the call blocks and
// resolves with the token once the user completes authentication.
type LoopbackInteractor struct {
	// Port fixes the callback port; 0 picks a free one
	Port int

	// Timeout bounds how long the user gets to finish signing in
	Timeout time.Duration

	// OpenBrowser launches the provider URL; defaults to the system browser
	OpenBrowser func(url string) error
}

var _ Interactor = (*LoopbackInteractor)(nil)

// Authenticate runs the loopback flow and blocks until the user finishes,
// cancels, or the timeout elapses.
func (l *LoopbackInteractor) Authenticate(ctx context.Context, req AuthRequest) (*oauth2.Token, error) {
	timeout := l.Timeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", l.Port))
	if err != nil {
		return nil, fmt.Errorf("starting callback listener: %w", err)
	}

	req.OAuth.RedirectURL = fmt.Sprintf("http://%s/callback", listener.Addr().String())

	tokenChan := make(chan *oauth2.Token, 1)
	errorChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", l.handleCallback(req, tokenChan, errorChan))

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if serr := server.Serve(listener); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errorChan <- fmt.Errorf("callback server: %w", serr)
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	authURL := req.OAuth.AuthCodeURL(req.State,
		oauth2.SetAuthURLParam("code_challenge", req.CodeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		oauth2.SetAuthURLParam("nonce", req.Nonce),
	)

	openBrowser := l.OpenBrowser
	if openBrowser == nil {
		openBrowser = browser.OpenURL
	}
	if err := openBrowser(authURL); err != nil {
		return nil, fmt.Errorf("opening browser: %w", err)
	}

	select {
	case token := <-tokenChan:
		return token, nil
	case err := <-errorChan:
		return nil, err
	case <-ctx.Done():
		return nil, fmt.Errorf("sign-in not completed: %w", ctx.Err())
	}
}

func (l *LoopbackInteractor) handleCallback(req AuthRequest, tokenChan chan<- *oauth2.Token, errorChan chan<- error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if errParam := r.URL.Query().Get("error"); errParam != "" {
			desc := r.URL.Query().Get("error_description")
			http.Error(w, "Sign-in failed: "+html.EscapeString(errParam), http.StatusBadRequest)
			errorChan <- fmt.Errorf("provider error: %s - %s", errParam, desc)
			return
		}

		if r.URL.Query().Get("state") != req.State {
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			errorChan <- errors.New("state mismatch on callback")
			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "Missing code parameter", http.StatusBadRequest)
			errorChan <- errors.New("no authorization code on callback")
			return
		}

		token, err := req.OAuth.Exchange(r.Context(), code,
			oauth2.SetAuthURLParam("code_verifier", req.CodeVerifier))
		if err != nil {
			http.Error(w, "Token exchange failed", http.StatusInternalServerError)
			errorChan <- fmt.Errorf("token exchange: %w", err)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body><h3>Signed in</h3><p>You can close this window.</p></body></html>")
		tokenChan <- token
	}
}
