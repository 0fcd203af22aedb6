package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/entragate/funcgateway/authclient"
	"github.com/entragate/funcgateway/functions"
	"github.com/entragate/funcgateway/identity"
	"github.com/entragate/funcgateway/internal/config"
)

const contentTypeJSON = "application/json; charset=utf-8"

type Server struct {
	env        string // Environment (e.g., "DEV", "PROD")
	mux        *http.ServeMux
	routes     []string
	config     config.Config
	verifier   *identity.Verifier
	authClient *authclient.Client
	functions  functions.Repo
	executor   *functions.Executor
}

func New(cfg config.Config, verifier *identity.Verifier, authClient *authclient.Client, functionsRepo functions.Repo, executor *functions.Executor) (*Server, error) {
	if verifier == nil {
		return nil, fmt.Errorf("[Server New] a token verifier is required")
	}

	s := &Server{
		mux:        http.NewServeMux(),
		config:     cfg,
		verifier:   verifier,
		authClient: authClient,
		functions:  functionsRepo,
		executor:   executor,
	}
	s.env = cfg.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}

// writeJSON encodes v as the response body with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
