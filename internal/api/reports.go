package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/grc-cli/internal/export"
)

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		badRequest(w, "format must be one of json, csv, xlsx")
		return
	}

	projectID := chi.URLParam(r, "projectID")
	doc, err := s.projects.Get(r.Context(), projectID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cl, err := s.projects.Checklist(r.Context(), projectID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Render fully before writing headers so a failure can still become a 500.
	var buf bytes.Buffer
	if err := export.Write(&buf, format, export.Report{Project: *doc, Checklist: *cl}); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	if format != export.FormatJSON {
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-checklist.%s"`, projectID, format))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
