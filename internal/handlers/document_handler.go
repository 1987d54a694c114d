package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"famhealth/internal/service"
)

// DocumentHandler handles document metadata, uploads and downloads
type DocumentHandler struct {
	documentService *service.DocumentService
	maxUploadSize   int64
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documentService *service.DocumentService, maxUploadSize int64) *DocumentHandler {
	return &DocumentHandler{documentService: documentService, maxUploadSize: maxUploadSize}
}

// ListDocuments lists the active member's documents, newest first
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	member, ok := activeMember(w, r)
	if !ok {
		return
	}
	list, err := h.documentService.ListDocuments(GetUserFromContext(r.Context()).ID, member)
	if err != nil {
		respondServiceError(w, "Error listing documents", err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	d, err := h.documentService.GetDocument(GetUserFromContext(r.Context()).ID, r.PathValue("id"))
	if err != nil {
		respondServiceError(w, "Error loading document", err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// UploadDocument accepts a multipart form with a "file" part and the
// document fields as form values.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	member, ok := activeMember(w, r)
	if !ok {
		return
	}

	if r.ContentLength > h.maxUploadSize {
		respondWithError(w, http.StatusRequestEntityTooLarge, "File is too large", "", nil)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "File is too large", "", nil)
			return
		}
		respondWithError(w, http.StatusBadRequest, "Failed to parse form", "", nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Please select a file", "", nil)
		return
	}
	defer file.Close()

	in := service.DocumentInput{
		Title:        r.FormValue("title"),
		DocumentType: r.FormValue("document_type"),
		DocumentDate: r.FormValue("document_date"),
		Notes:        r.FormValue("notes"),
	}
	// Generic types are re-detected from the file extension
	contentType := header.Header.Get("Content-Type")
	if contentType == "application/octet-stream" {
		contentType = ""
	}
	up := service.Upload{
		Filename:    header.Filename,
		ContentType: contentType,
		Body:        file,
	}

	d, err := h.documentService.CreateDocument(r.Context(), GetUserFromContext(r.Context()).ID, member, in, up)
	if err != nil {
		respondServiceError(w, "Error uploading document", err)
		return
	}
	respondJSON(w, http.StatusCreated, d)
}

func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	var in service.DocumentInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}
	d, err := h.documentService.UpdateDocument(GetUserFromContext(r.Context()).ID, r.PathValue("id"), in)
	if err != nil {
		respondServiceError(w, "Error updating document", err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.documentService.DeleteDocument(r.Context(), GetUserFromContext(r.Context()).ID, r.PathValue("id")); err != nil {
		respondServiceError(w, "Error deleting document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SignedURL returns a time-limited link to the document's file
func (h *DocumentHandler) SignedURL(w http.ResponseWriter, r *http.Request) {
	url, expiresAt, err := h.documentService.SignedURL(r.Context(), GetUserFromContext(r.Context()).ID, r.PathValue("id"))
	if err != nil {
		respondServiceError(w, "Error signing document URL", err)
		return
	}

	resp := struct {
		URL       string     `json:"url"`
		ExpiresAt *time.Time `json:"expires_at,omitempty"`
	}{URL: url}
	if !expiresAt.IsZero() {
		resp.ExpiresAt = &expiresAt
	}
	respondJSON(w, http.StatusOK, resp)
}

// DownloadFile streams the document's file
func (h *DocumentHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	d, rc, err := h.documentService.OpenFile(r.Context(), GetUserFromContext(r.Context()).ID, r.PathValue("id"))
	if err != nil {
		respondServiceError(w, "Error opening document file", err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", d.ContentType)
	if d.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(d.SizeBytes, 10))
	}
	w.Header().Set("Content-Disposition", "inline")
	if _, err := io.Copy(w, rc); err != nil {
		log.Printf("Error streaming document %s: %v", d.ID, err)
	}
}
