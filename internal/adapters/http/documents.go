package httpadapter

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
)

const multipartMemory = 32 << 20

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorMessage(w, http.StatusRequestEntityTooLarge, "upload exceeds the size limit")
			return
		}
		writeErrorMessage(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "read upload failed")
		return
	}

	start := time.Now()
	info, err := rt.services.Ingest.Ingest(r.Context(), r.PathValue("id"), fileHeader.Filename, data)
	if rt.metrics != nil {
		format, _ := domain.FormatFromFilename(fileHeader.Filename)
		chunks := 0
		if info != nil {
			chunks = info.ChunkCount
		}
		rt.metrics.RecordIngest(serviceName, string(format), chunks, time.Since(start), err)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := rt.services.Catalog.ListDocuments(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (rt *Router) clearDocuments(w http.ResponseWriter, r *http.Request) {
	if err := rt.services.Catalog.ClearDocuments(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) removeDocument(w http.ResponseWriter, r *http.Request) {
	if err := rt.services.Catalog.RemoveDocument(r.Context(), r.PathValue("id"), r.PathValue("doc")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) documentText(w http.ResponseWriter, r *http.Request) {
	pages, err := rt.services.Catalog.DocumentPages(r.Context(), r.PathValue("id"), r.PathValue("doc"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": r.PathValue("doc"),
		"pages":       pages,
	})
}
