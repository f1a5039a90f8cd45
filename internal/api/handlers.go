package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListPortfolios(w http.ResponseWriter, r *http.Request) {
	writeBody(w, r, http.StatusOK, s.portfolios.List())
}

func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, ok := s.portfolios.Get(id)
	if !ok {
		writeError(w, r, http.StatusNotFound, "portfolio not found")
		return
	}
	writeBody(w, r, http.StatusOK, view)
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	outcomes, ok := s.batches.Outcomes(id)
	if !ok {
		writeError(w, r, http.StatusNotFound, "batch not found")
		return
	}
	writeBody(w, r, http.StatusOK, outcomes)
}
