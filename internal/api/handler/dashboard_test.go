package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mikaelw/subtrack/internal/core"
)

func newDashboardHandlerWithDB(db *handlerMockDB) *Dashboard {
	return NewDashboard(core.NewDashboardService(db, nil), nil, nil, nil)
}

func statusCountScan(status string, count int) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*string)) = status
		*(dest[1].(*int)) = count
		return nil
	}
}

func TestDashboardStats_Success(t *testing.T) {
	db := &handlerMockDB{}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&handlerMockRow{scanFunc: func(dest ...any) error {
			counts := []int{12, 10, 4, 25, 18, 3, 2, 40, 15, 22, 22, 60, 7, 2}
			for i, c := range counts {
				*(dest[i].(*int)) = c
			}
			return nil
		}}).Once()
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(newHandlerMockRows(statusCountScan("active", 18), statusCountScan("trialing", 3)), nil).Once()
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(newHandlerMockRows(statusCountScan("assigned", 22)), nil).Once()
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(newHandlerMockRows(statusCountScan("open", 7)), nil).Once()
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(newHandlerMockRows(func(dest ...any) error {
			*(dest[0].(*string)) = "plan-1"
			*(dest[1].(*string)) = "pro-monthly"
			*(dest[2].(*string)) = "Pro"
			*(dest[3].(*int)) = 18
			return nil
		}), nil).Once()
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&handlerMockRow{scanFunc: func(dest ...any) error {
			*(dest[0].(*decimal.Decimal)) = decimal.RequireFromString("1247.50")
			*(dest[1].(*decimal.Decimal)) = decimal.RequireFromString("8790.00")
			return nil
		}}).Once()
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&handlerMockRow{scanFunc: func(dest ...any) error {
			rate := decimal.RequireFromString("4990")
			*(dest[0].(**decimal.Decimal)) = &rate
			return nil
		}}).Once()
	h := newDashboardHandlerWithDB(db)

	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/dashboard/stats", nil)

	h.Stats(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"customers":12`)
	assert.Contains(t, body, `"invoices_overdue":2`)
	assert.Contains(t, body, `"plan_code":"pro-monthly"`)
	assert.Contains(t, body, `"monthly_run_rate":"4990"`)
	db.AssertExpectations(t)
}

// --- Activity ---

func TestDashboardActivity_InvalidLimit(t *testing.T) {
	h := NewDashboard(nil, nil, nil, nil)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/dashboard/activity?limit=abc", nil)

	h.Activity(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "invalid limit")
}

func TestDashboardActivity_Success(t *testing.T) {
	now := time.Now()
	db := &handlerMockDB{}
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(newHandlerMockRows(func(dest ...any) error {
			*(dest[0].(*string)) = "audit-1"
			*(dest[1].(*string)) = "api_key"
			*(dest[3].(*string)) = http.MethodPost
			*(dest[4].(*string)) = "/api/v1/customers"
			*(dest[7].(*int)) = http.StatusCreated
			*(dest[8].(*json.RawMessage)) = json.RawMessage(`{"name":"Acme AS"}`)
			*(dest[9].(*time.Time)) = now
			return nil
		}), nil).Once()
	h := newDashboardHandlerWithDB(db)

	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/dashboard/activity", nil)

	h.Activity(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"path":"/api/v1/customers"`)
	db.AssertExpectations(t)
}

// --- Live ---

func TestDashboardLive_MissingToken(t *testing.T) {
	h := NewDashboard(nil, nil, nil, nil)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/dashboard/live", nil)

	h.Live(rec, r)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "missing token")
}
