package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// multipartMemory bounds how much of a form is buffered in memory before
// spilling to temp files.
const multipartMemory = 8 << 20

// formUpload adapts a multipart file part to project.Upload.
type formUpload struct {
	header *multipart.FileHeader
}

func (u formUpload) Open() (io.ReadCloser, error) { return u.header.Open() }
func (u formUpload) Filename() string             { return u.header.Filename }
func (u formUpload) ContentType() string          { return u.header.Header.Get("Content-Type") }

func (s *Server) handleUploadEvidence(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxRequest)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			writeError(w, r, err)
			return
		}
		badRequest(w, "expected a multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		badRequest(w, `missing form field "file"`)
		return
	}

	rec, err := s.projects.UploadEvidence(r.Context(),
		chi.URLParam(r, "projectID"), chi.URLParam(r, "itemID"),
		formUpload{header: files[0]}, actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}
