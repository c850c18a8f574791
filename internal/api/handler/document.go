package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/mikaelw/subtrack/internal/api/request"
	"github.com/mikaelw/subtrack/internal/api/response"
	"github.com/mikaelw/subtrack/internal/core"
	"github.com/mikaelw/subtrack/internal/preview"
	"github.com/mikaelw/subtrack/internal/storage"
)

const maxDocumentBytes = 25 << 20 // 25 MiB

// Document serves the invoice PDF attached to an invoice and its rendered
// preview image.
type Document struct {
	svc   *core.InvoiceService
	store *storage.DocumentStore
	tc    temporalclient.Client
}

func NewDocument(svc *core.InvoiceService, store *storage.DocumentStore, tc temporalclient.Client) *Document {
	return &Document{svc: svc, store: store, tc: tc}
}

// Upload godoc
//
//	@Summary		Upload invoice document
//	@Description	Attaches a PDF to the invoice. The first page is rendered to a PNG preview in the background.
//	@Tags			Invoices
//	@Accept			application/pdf
//	@Security		ApiKeyAuth
//	@Param			id path string true "Invoice ID"
//	@Success		202 {object} map[string]string
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		413 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/invoices/{id}/document [put]
func (h *Document) Upload(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.svc.GetByID(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusNotFound, fmt.Sprintf("invoice %s not found", id))
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.WriteError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("document exceeds %d bytes", int64(maxDocumentBytes)))
			return
		}
		response.WriteError(w, http.StatusBadRequest, "read request body: "+err.Error())
		return
	}
	// Sniff the magic bytes rather than trusting the declared content type.
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		response.WriteError(w, http.StatusBadRequest, "document is not a PDF")
		return
	}

	key := storage.DocumentKey(id)
	if err := h.store.Put(r.Context(), key, "application/pdf", data); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.svc.SetDocumentKey(r.Context(), id, key); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// The workflow ID dedupes concurrent renders for the same invoice.
	_, err = h.tc.ExecuteWorkflow(r.Context(), temporalclient.StartWorkflowOptions{
		ID:        "invoice-document-" + id,
		TaskQueue: "subtrack-billing",
	}, "InvoiceDocumentWorkflow", id)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, "start InvoiceDocumentWorkflow: "+err.Error())
		return
	}

	response.WriteJSON(w, http.StatusAccepted, map[string]string{
		"status":       "processing",
		"document_key": key,
	})
}

// Download godoc
//
//	@Summary		Download invoice document
//	@Tags			Invoices
//	@Produce		application/pdf
//	@Security		ApiKeyAuth
//	@Param			id path string true "Invoice ID"
//	@Success		200 {file} binary
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/invoices/{id}/document [get]
func (h *Document) Download(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	inv, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, fmt.Sprintf("invoice %s not found", id))
		return
	}
	if inv.DocumentKey == nil {
		response.WriteError(w, http.StatusNotFound, fmt.Sprintf("invoice %s has no document", id))
		return
	}

	body, contentType, err := h.store.Get(r.Context(), *inv.DocumentKey)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer body.Close()

	filename := id + ".pdf"
	if inv.Number != nil {
		filename = *inv.Number + ".pdf"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	if _, err := io.Copy(w, body); err != nil {
		log.Error().Err(err).Str("invoice_id", id).Msg("stream invoice document failed")
	}
}

// Preview godoc
//
//	@Summary		Invoice document preview
//	@Description	Serves the pre-rendered first page. Other pages are rendered on demand via ?page=N.
//	@Tags			Invoices
//	@Produce		png
//	@Security		ApiKeyAuth
//	@Param			id path string true "Invoice ID"
//	@Param			page query int false "Page number (1-based)"
//	@Success		200 {file} binary
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/invoices/{id}/document/preview [get]
func (h *Document) Preview(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	inv, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, fmt.Sprintf("invoice %s not found", id))
		return
	}
	if inv.DocumentKey == nil {
		response.WriteError(w, http.StatusNotFound, fmt.Sprintf("invoice %s has no document", id))
		return
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.WriteError(w, http.StatusBadRequest, "invalid page")
			return
		}
		page = n
	}

	// Page 1 is rendered ahead of time by the document workflow.
	if page == 1 && inv.PreviewKey != nil {
		body, contentType, err := h.store.Get(r.Context(), *inv.PreviewKey)
		if err == nil {
			defer body.Close()
			w.Header().Set("Content-Type", contentType)
			if _, err := io.Copy(w, body); err != nil {
				log.Error().Err(err).Str("invoice_id", id).Msg("stream invoice preview failed")
			}
			return
		}
		log.Warn().Err(err).Str("invoice_id", id).Msg("stored preview unavailable, rendering inline")
	}

	pdf, _, err := h.store.GetBytes(r.Context(), *inv.DocumentKey)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	png, err := preview.RenderPNG(pdf, page, preview.DefaultDPI)
	if err != nil {
		if errors.Is(err, preview.ErrPageOutOfRange) {
			response.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(png); err != nil {
		log.Error().Err(err).Str("invoice_id", id).Msg("stream invoice preview failed")
	}
}
