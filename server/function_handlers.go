package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/entragate/funcgateway/functions"
)

// FunctionsListHandler serves the function catalog.
func (s *Server) FunctionsListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		list, err := s.functions.List()
		if err != nil {
			log.Err(err).Msg("listing function catalog failed")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// ExecuteFunctionHandler runs the simulated execution of a cataloged function.
func (s *Server) ExecuteFunctionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req functions.ExecuteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
			return
		}
		if req.FunctionName == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "function_name is required"})
			return
		}

		result := s.executor.Execute(r.Context(), &req)
		writeJSON(w, http.StatusOK, result)
	}
}
