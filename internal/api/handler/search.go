package handler

import (
	"net/http"
	"strconv"

	"github.com/mikaelw/subtrack/internal/api/response"
	"github.com/mikaelw/subtrack/internal/core"
)

type Search struct {
	svc *core.SearchService
}

func NewSearch(svc *core.SearchService) *Search {
	return &Search{svc: svc}
}

type searchResponse struct {
	Results []core.SearchResult `json:"results"`
}

// Search godoc
//
//	@Summary		Search across resources
//	@Description	Searches customers, plans, subscriptions, devices and invoices by name, code, serial number or invoice number. Returns up to limit matches per resource type.
//	@Tags			Search
//	@Security		ApiKeyAuth
//	@Param			q		query		string	true	"Search term"
//	@Param			limit	query		int		false	"Max results per resource type (default 5, max 20)"
//	@Success		200		{object}	object
//	@Failure		500		{object}	response.ErrorResponse
//	@Router			/search [get]
func (h *Search) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		response.WriteJSON(w, http.StatusOK, searchResponse{Results: []core.SearchResult{}})
		return
	}

	limit := 5
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 20 {
			limit = parsed
		}
	}

	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if results == nil {
		results = []core.SearchResult{}
	}

	response.WriteJSON(w, http.StatusOK, searchResponse{Results: results})
}
