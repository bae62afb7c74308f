package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/grc-cli/internal/model"
	"github.com/sells-group/grc-cli/internal/project"
)

func (s *Server) handleIndustries(w http.ResponseWriter, _ *http.Request) {
	industries := s.taxonomy.Industries()
	if industries == nil {
		industries = []model.Industry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"industries": industries})
}

func (s *Server) handleListPacks(w http.ResponseWriter, r *http.Request) {
	packs, err := s.catalog.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]model.PackSummary, len(packs))
	for i, p := range packs {
		out[i] = p.Summary()
	}
	writeJSON(w, http.StatusOK, map[string]any{"packs": out})
}

func (s *Server) handleGetPack(w http.ResponseWriter, r *http.Request) {
	ref := model.SelectedPack{
		Domain:  chi.URLParam(r, "domain"),
		PackID:  chi.URLParam(r, "packID"),
		Version: chi.URLParam(r, "version"),
	}
	pack, ok, err := s.catalog.Lookup(r.Context(), ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeError(w, r, eris.Wrapf(project.ErrNotFound, "pack %s:%s:%s", ref.Domain, ref.PackID, ref.Version))
		return
	}
	writeJSON(w, http.StatusOK, pack)
}
