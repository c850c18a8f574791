package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mikaelw/subtrack/internal/core"
)

func newAPIKeyHandler() *APIKey {
	return NewAPIKey(nil)
}

func newAPIKeyHandlerWithDB(db *handlerMockDB) *APIKey {
	return NewAPIKey(core.NewAPIKeyService(db))
}

// --- Create ---

func TestAPIKeyCreate_InvalidJSON(t *testing.T) {
	h := newAPIKeyHandler()
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPost, "/api-keys", "{bad json")

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "invalid JSON")
}

func TestAPIKeyCreate_EmptyBody(t *testing.T) {
	h := newAPIKeyHandler()
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPost, "/api-keys", "")

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIKeyCreate_MissingName(t *testing.T) {
	h := newAPIKeyHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/api-keys", map[string]any{})

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "validation error")
}

func TestAPIKeyCreate_MissingRequiredFields(t *testing.T) {
	h := newAPIKeyHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/api-keys", map[string]any{
		"scopes": []string{"read"},
	})

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "validation error")
}

func TestAPIKeyCreate_ReturnsRawKeyOnce(t *testing.T) {
	var insertArgs []any

	db := &handlerMockDB{}
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) { insertArgs = args.Get(2).([]any) }).
		Return(handlerCmdTag("INSERT", 1), nil).Once()
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&handlerMockRow{scanFunc: func(dest ...any) error {
			*(dest[0].(*time.Time)) = time.Now()
			return nil
		}}).Once()
	h := newAPIKeyHandlerWithDB(db)

	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/api-keys", map[string]any{
		"name":   "ci-pipeline",
		"scopes": []string{"invoices:read"},
	})

	h.Create(rec, r)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	rawKey, _ := body["key"].(string)
	// 3-char prefix plus 64 hex chars; only the hash is stored.
	assert.Len(t, rawKey, 67)
	assert.Contains(t, rawKey, "st_")
	assert.Len(t, insertArgs, 5)
	assert.NotContains(t, insertArgs, rawKey)
	db.AssertExpectations(t)
}

// --- Get ---

func TestAPIKeyGet_EmptyID(t *testing.T) {
	h := newAPIKeyHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/api-keys/", nil)
	r = withChiURLParam(r, "id", "")

	h.Get(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "missing required ID")
}

// --- Update ---

func TestAPIKeyUpdate_MissingScopes(t *testing.T) {
	h := newAPIKeyHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPut, "/api-keys/"+validID, map[string]any{
		"name": "ci-pipeline",
	})
	r = withChiURLParam(r, "id", validID)

	h.Update(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "validation error")
}

// --- Revoke ---

func TestAPIKeyRevoke_EmptyID(t *testing.T) {
	h := newAPIKeyHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodDelete, "/api-keys/", nil)
	r = withChiURLParam(r, "id", "")

	h.Revoke(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "missing required ID")
}

func TestAPIKeyRevoke_Success(t *testing.T) {
	db := &handlerMockDB{}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&handlerMockRow{scanFunc: func(dest ...any) error {
			*(dest[0].(*string)) = validID
			*(dest[1].(*string)) = "ci-pipeline"
			*(dest[2].(*string)) = "st_abababab"
			*(dest[3].(*[]string)) = []string{"*:*"}
			*(dest[4].(*time.Time)) = time.Now()
			*(dest[5].(**time.Time)) = nil
			return nil
		}}).Once()
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(handlerCmdTag("UPDATE", 1), nil).Once()
	h := newAPIKeyHandlerWithDB(db)

	rec := httptest.NewRecorder()
	r := newRequest(http.MethodDelete, "/api-keys/"+validID, nil)
	r = withChiURLParam(r, "id", validID)

	h.Revoke(rec, r)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	db.AssertExpectations(t)
}

func TestAPIKeyRevoke_UnknownKey(t *testing.T) {
	db := &handlerMockDB{}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&handlerMockRow{scanFunc: func(dest ...any) error {
			return assert.AnError
		}}).Once()
	h := newAPIKeyHandlerWithDB(db)

	rec := httptest.NewRecorder()
	r := newRequest(http.MethodDelete, "/api-keys/"+validID, nil)
	r = withChiURLParam(r, "id", validID)

	h.Revoke(rec, r)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	db.AssertExpectations(t)
}

// --- Error response format ---

func TestAPIKeyCreate_ErrorResponseFormat(t *testing.T) {
	h := newAPIKeyHandler()
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPost, "/api-keys", "{bad")

	h.Create(rec, r)

	var body map[string]any
	err := json.Unmarshal(rec.Body.Bytes(), &body)
	require.NoError(t, err)
	_, hasError := body["error"]
	assert.True(t, hasError)
}
