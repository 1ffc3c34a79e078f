package httpserver

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"estate_api/internal/app"
	"estate_api/internal/domain"
)

// sniff reads the first bytes of the part to detect its type; the declared
// Content-Type header is client controlled.
func sniff(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}

func (h *Handlers) uploadMedia(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadFiles*app.MaxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, r, domain.Invalid("invalid multipart form: "+err.Error()))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	var files []app.Upload
	for _, field := range []string{"file", "files"} {
		for _, fh := range r.MultipartForm.File[field] {
			fh := fh
			ct, err := sniff(fh)
			if err != nil {
				writeError(w, r, err)
				return
			}
			files = append(files, app.Upload{
				Name:        fh.Filename,
				ContentType: ct,
				Size:        fh.Size,
				Open:        func() (io.ReadCloser, error) { return fh.Open() },
			})
		}
	}
	out, err := h.Media.Upload(r.Context(), mustPrincipal(r), files)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handlers) deleteMedia(w http.ResponseWriter, r *http.Request) {
	if err := h.Media.Delete(r.Context(), chi.URLParam(r, "fileId")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
