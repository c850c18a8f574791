package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mikaelw/subtrack/internal/api/request"
	"github.com/mikaelw/subtrack/internal/api/response"
	"github.com/mikaelw/subtrack/internal/model"
)

type Audit struct {
	pool *pgxpool.Pool
}

func NewAudit(pool *pgxpool.Pool) *Audit {
	return &Audit{pool: pool}
}

// List godoc
//
//	@Summary		List audit logs
//	@Description	Returns a paginated list of audit log entries. Supports filtering by actor_type, resource_type, HTTP method (action), and date range (date_from/date_to). Each entry includes the actor, HTTP method, path, resource affected, status code, request body, and timestamp.
//	@Tags			Audit
//	@Security		ApiKeyAuth
//	@Param			search			query		string	false	"Search in resource_type or method"
//	@Param			actor_type		query		string	false	"Filter by actor type (api_key, user)"
//	@Param			resource_type	query		string	false	"Filter by resource type"
//	@Param			action			query		string	false	"Filter by HTTP method"
//	@Param			date_from		query		string	false	"Filter by start date"
//	@Param			date_to			query		string	false	"Filter by end date"
//	@Param			limit			query		int		false	"Page size"	default(50)
//	@Param			cursor			query		string	false	"Pagination cursor (entry id)"
//	@Param			order			query		string	false	"Listing direction: desc (newest first, default) or asc"
//	@Success		200				{object}	response.PaginatedResponse{items=[]model.AuditLog}
//	@Failure		400				{object}	response.ErrorResponse
//	@Failure		500				{object}	response.ErrorResponse
//	@Router			/audit-logs [get]
func (h *Audit) List(w http.ResponseWriter, r *http.Request) {
	params := request.ParseListParams(r)

	actorType := r.URL.Query().Get("actor_type")
	resourceType := r.URL.Query().Get("resource_type")
	action := r.URL.Query().Get("action")
	dateFrom := r.URL.Query().Get("date_from")
	dateTo := r.URL.Query().Get("date_to")

	query := `SELECT id, actor_type, actor_id, method, path, resource_type, resource_id, status_code, request_body, created_at
              FROM audit_logs WHERE 1=1`
	args := []any{}
	argIdx := 1

	if params.Search != "" {
		query += fmt.Sprintf(` AND (resource_type ILIKE $%d OR method ILIKE $%d)`, argIdx, argIdx+1)
		args = append(args, "%"+params.Search+"%", "%"+params.Search+"%")
		argIdx += 2
	}
	if actorType != "" {
		query += fmt.Sprintf(` AND actor_type = $%d`, argIdx)
		args = append(args, actorType)
		argIdx++
	}
	if resourceType != "" {
		query += fmt.Sprintf(` AND resource_type = $%d`, argIdx)
		args = append(args, resourceType)
		argIdx++
	}
	if action != "" {
		query += fmt.Sprintf(` AND method = $%d`, argIdx)
		args = append(args, action)
		argIdx++
	}
	if dateFrom != "" {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, dateFrom)
		argIdx++
	}
	if dateTo != "" {
		query += fmt.Sprintf(` AND created_at <= $%d`, argIdx)
		args = append(args, dateTo)
		argIdx++
	}

	// Newest first by default; the sequence id is both the ordering and the
	// cursor, so pages stay stable while new entries arrive.
	cmp, order := "<", "DESC"
	if params.Order == "asc" {
		cmp, order = ">", "ASC"
	}
	if params.Cursor != "" {
		cursor, err := strconv.ParseInt(params.Cursor, 10, 64)
		if err != nil {
			response.WriteError(w, http.StatusBadRequest, "invalid cursor")
			return
		}
		query += fmt.Sprintf(` AND id %s $%d`, cmp, argIdx)
		args = append(args, cursor)
		argIdx++
	}
	query += ` ORDER BY id ` + order
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, params.Limit+1)

	rows, err := h.pool.Query(r.Context(), query, args...)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer rows.Close()

	var logs []model.AuditLog
	for rows.Next() {
		var l model.AuditLog
		if err := rows.Scan(&l.ID, &l.ActorType, &l.ActorID, &l.Method, &l.Path,
			&l.ResourceType, &l.ResourceID, &l.StatusCode, &l.RequestBody, &l.CreatedAt); err != nil {
			response.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		logs = append(logs, l)
	}

	hasMore := len(logs) > params.Limit
	if hasMore {
		logs = logs[:params.Limit]
	}
	var nextCursor string
	if hasMore && len(logs) > 0 {
		nextCursor = strconv.FormatInt(logs[len(logs)-1].ID, 10)
	}

	response.WritePaginated(w, http.StatusOK, logs, nextCursor, hasMore)
}
