package handlers

import (
	"net/http"

	"github.com/kongrex/regdesk/internal/storage"
)

const maxUploadBytes = 10 << 20 // 10 MiB

// Upload accepts a multipart document (field name "file") and returns its
// public URL. The wizard attaches the URL to the selection that required it.
func Upload(store *storage.Local) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			fail(w, http.StatusBadRequest, "invalid multipart body")
			return
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			fail(w, http.StatusBadRequest, "missing file field")
			return
		}
		defer f.Close()

		url, err := store.Save(f, header.Filename)
		if err != nil {
			fail(w, http.StatusBadRequest, err.Error())
			return
		}
		respond(w, http.StatusOK, map[string]any{"url": url})
	}
}
