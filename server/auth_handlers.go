package server

import (
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
)

// AuthUserHandler returns the validated identity for the calling request.
func (s *Server) AuthUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := IdentityFromContext(r.Context())
		if !ok {
			// RequireAuth always runs first; reaching here means a wiring bug
			writeJSON(w, http.StatusUnauthorized, notAuthenticatedBody)
			return
		}
		writeJSON(w, http.StatusOK, ident)
	}
}

// LoginRedirectHandler starts the redirect-flow sign-in: it records the
// pending authorization and sends the browser to the provider. Nothing is
// returned to the caller in this process; the flow resumes at the callback.
func (s *Server) LoginRedirectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authClient == nil {
			http.Error(w, "Redirect sign-in not configured", http.StatusNotFound)
			return
		}

		returnURL := r.URL.Query().Get("return_url")
		if returnURL == "" {
			returnURL = s.config.GetSPAOrigin()
		}

		authURL, err := s.authClient.BeginInteractiveAuth(r.Context(), returnURL)
		if err != nil {
			log.Err(err).Msg("failed to begin interactive auth")
			http.Error(w, "Failed to start sign-in", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// AuthCallbackHandler completes the provider handshake when the browser comes
// back. Errors here have no caller waiting for them: they are logged, the
// flow is abandoned and the browser is sent back to the SPA, which observes
// the outcome through its account state.
func (s *Server) AuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authClient == nil {
			http.Error(w, "Redirect sign-in not configured", http.StatusNotFound)
			return
		}

		state := r.FormValue("state")
		code := r.FormValue("code")
		errorParam := r.FormValue("error")
		errorDesc := r.FormValue("error_description")

		if errorParam != "" {
			log.Warn().
				Str("error", errorParam).
				Str("description", errorDesc).
				Msg("provider returned an authorization error")
			s.redirectToSPA(w, r, s.config.GetSPAOrigin(), false)
			return
		}

		if code == "" || state == "" {
			http.Error(w, "Missing code or state parameter", http.StatusBadRequest)
			return
		}

		account, returnURL, err := s.authClient.CompleteInteractiveAuth(r.Context(), state, code)
		if err != nil {
			log.Err(err).Msg("completing interactive auth failed")
			s.redirectToSPA(w, r, s.config.GetSPAOrigin(), false)
			return
		}

		log.Info().Str("account", account.Username).Msg("interactive sign-in completed")
		if returnURL == "" {
			returnURL = s.config.GetSPAOrigin()
		}
		s.redirectToSPA(w, r, returnURL, true)
	}
}

// LogoutHandler clears the client-held session and sends the browser home.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authClient != nil {
			if err := s.authClient.SignOut(r.Context()); err != nil {
				log.Err(err).Msg("sign-out failed")
			}
		}
		http.Redirect(w, r, s.config.GetSPAOrigin(), http.StatusFound)
	}
}

func (s *Server) redirectToSPA(w http.ResponseWriter, r *http.Request, target string, ok bool) {
	if !ok {
		u, err := url.Parse(target)
		if err == nil {
			q := u.Query()
			q.Set("auth_error", "sign_in_failed")
			u.RawQuery = q.Encode()
			target = u.String()
		}
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// PreflightHandler backs the catch-all OPTIONS route. Cross-origin preflights
// are answered by CorsMiddleware before this runs; it only sees same-origin
// OPTIONS requests.
func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

// HealthzHandler is the unauthenticated liveness probe.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
