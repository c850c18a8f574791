package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/mikaelw/subtrack/internal/api/response"
	"github.com/mikaelw/subtrack/internal/core"
)

type Export struct {
	svc *core.ExportService
}

func NewExport(svc *core.ExportService) *Export {
	return &Export{svc: svc}
}

// Download godoc
//
//	@Summary		Download a CSV report
//	@Description	Streams one of the reports (subscriptions, invoices, devices, assignments) as a CSV attachment. A trailing .csv on the report name is accepted.
//	@Tags			Exports
//	@Security		ApiKeyAuth
//	@Produce		text/csv
//	@Param			report path string true "Report name"
//	@Success		200 {string} string "CSV data"
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/exports/{report} [get]
func (h *Export) Download(w http.ResponseWriter, r *http.Request) {
	report := strings.TrimSuffix(chi.URLParam(r, "report"), ".csv")

	var export func(context.Context, io.Writer) error
	switch report {
	case "subscriptions":
		export = h.svc.Subscriptions
	case "invoices":
		export = h.svc.Invoices
	case "devices":
		export = h.svc.Devices
	case "assignments":
		export = h.svc.Assignments
	default:
		response.WriteError(w, http.StatusBadRequest, fmt.Sprintf("unknown report %q", report))
		return
	}

	filename := fmt.Sprintf("subtrack-%s-%s.csv", report, time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	// Rows buffer inside the CSV writer until the first flush, so a query
	// that fails up front still produces a clean JSON error.
	if err := export(r.Context(), w); err != nil {
		log.Error().Err(err).Str("report", report).Msg("csv export failed")
		response.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
