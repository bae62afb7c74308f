package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/grc-cli/internal/model"
	"github.com/sells-group/grc-cli/internal/project"
	"github.com/sells-group/grc-cli/internal/store"
)

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ProjectFilter{IndustryID: q.Get("industry_id")}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		badRequest(w, "limit must be a non-negative integer")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		badRequest(w, "offset must be a non-negative integer")
		return
	}

	projects, err := s.projects.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if projects == nil {
		projects = []model.ProjectSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req project.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	res, err := s.projects.Create(r.Context(), req, actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/projects/"+res.ProjectID)
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	doc, err := s.projects.Get(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handlePatchProject(w http.ResponseWriter, r *http.Request) {
	var patch project.ProjectPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	doc, err := s.projects.Patch(r.Context(), chi.URLParam(r, "projectID"), patch, actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	summary, err := s.projects.Delete(r.Context(), chi.URLParam(r, "projectID"), actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleGetChecklist(w http.ResponseWriter, r *http.Request) {
	cl, err := s.projects.Checklist(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cl)
}

func (s *Server) handlePatchItem(w http.ResponseWriter, r *http.Request) {
	var patch project.ItemPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	item, err := s.projects.PatchItem(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "itemID"), patch, actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := s.projects.Audit(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleFingerprint(w http.ResponseWriter, r *http.Request) {
	report, err := s.projects.Fingerprint(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"report":     report,
		"up_to_date": report.UpToDate(),
	})
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
