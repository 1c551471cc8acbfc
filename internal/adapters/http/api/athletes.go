package api

import (
	"net/http"

	"github.com/okian/platehub/internal/domain/model"
)

type athletesResponse struct {
	Athletes []model.Athlete `json:"athletes"`
}

// handleSearchAthletes handles GET /athletes?search=term. An empty term
// lists every athlete of the professional groups.
func (s *Server) handleSearchAthletes(w http.ResponseWriter, r *http.Request) {
	const op = "api.search_athletes"
	athletes, err := s.deps.SearchAthletes(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	if athletes == nil {
		athletes = []model.Athlete{}
	}
	writeJSON(w, http.StatusOK, athletesResponse{Athletes: athletes})
}
