package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mikaelw/subtrack/internal/core"
	"github.com/mikaelw/subtrack/internal/events"
)

func newSubscriptionHandler() *Subscription {
	return NewSubscription(nil, nil, nil)
}

func newSubscriptionHandlerWithDB(db *handlerMockDB) *Subscription {
	svc := core.NewSubscriptionService(db, nil, events.NoopPublisher{}, nil)
	return NewSubscription(svc, core.NewCustomerService(db), core.NewPlanService(db))
}

// subscriptionRow yields a subscription row in the given status.
func subscriptionRow(id, status string) *handlerMockRow {
	now := time.Now()
	return &handlerMockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = id
		*(dest[1].(*string)) = "cust-1"
		*(dest[2].(*string)) = "plan-1"
		*(dest[3].(*string)) = status
		*(dest[4].(*int)) = 5
		*(dest[5].(*bool)) = true
		*(dest[6].(*time.Time)) = now
		*(dest[7].(*time.Time)) = now
		*(dest[8].(*time.Time)) = now.AddDate(0, 1, 0)
		*(dest[11].(*time.Time)) = now
		*(dest[12].(*time.Time)) = now
		return nil
	}}
}

// --- Create ---

func TestSubscriptionCreate_EmptyCustomerID(t *testing.T) {
	h := newSubscriptionHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/customers//subscriptions", map[string]any{"plan_id": validID})
	r = withChiURLParam(r, "customerID", "")

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubscriptionCreate_MissingPlanID(t *testing.T) {
	h := newSubscriptionHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/customers/"+validID+"/subscriptions", map[string]any{})
	r = withChiURLParam(r, "customerID", validID)

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "validation error")
}

func TestSubscriptionCreate_ZeroSeats(t *testing.T) {
	h := newSubscriptionHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/customers/"+validID+"/subscriptions", map[string]any{
		"plan_id": validID2,
		"seats":   0,
	})
	r = withChiURLParam(r, "customerID", validID)

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubscriptionCreate_RetiredPlanConflict(t *testing.T) {
	db := &handlerMockDB{}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(customerRow("cust-1")).Once()
	retired := planRow(validID2)
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&handlerMockRow{scanFunc: func(dest ...any) error {
			if err := retired.scanFunc(dest...); err != nil {
				return err
			}
			*(dest[10].(*string)) = "retired"
			return nil
		}}).Once()

	h := newSubscriptionHandlerWithDB(db)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/customers/cust-1/subscriptions", map[string]any{"plan_id": validID2})
	r = withChiURLParam(r, "customerID", "cust-1")

	h.Create(rec, r)

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "retired")
	db.AssertExpectations(t)
}

func TestSubscriptionCreate_DefaultsSeatsAndAutoRenew(t *testing.T) {
	db := &handlerMockDB{}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(customerRow("cust-1")).Once()
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(planRow(validID2)).Once()

	var insertArgs []any
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) {
			insertArgs = args.Get(2).([]any)
		}).
		Return(handlerCmdTag("INSERT", 1), nil)

	h := newSubscriptionHandlerWithDB(db)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/customers/cust-1/subscriptions", map[string]any{"plan_id": validID2})
	r = withChiURLParam(r, "customerID", "cust-1")

	h.Create(rec, r)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, insertArgs, 11)
	assert.Equal(t, 1, insertArgs[4])
	assert.Equal(t, true, insertArgs[5])
	// The plan has trial days, so the subscription starts trialing.
	assert.Contains(t, rec.Body.String(), `"status":"trialing"`)
	db.AssertExpectations(t)
}

// --- Get ---

func TestSubscriptionGet_EmptyID(t *testing.T) {
	h := newSubscriptionHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/subscriptions/", nil)
	r = withChiURLParam(r, "id", "")

	h.Get(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- Update ---

func TestSubscriptionUpdate_InvalidJSON(t *testing.T) {
	h := newSubscriptionHandler()
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPut, "/subscriptions/"+validID, "{bad json")
	r = withChiURLParam(r, "id", validID)

	h.Update(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubscriptionUpdate_SeatsOnly(t *testing.T) {
	db := &handlerMockDB{}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(subscriptionRow(validID, "active"))

	var updateArgs []any
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) {
			updateArgs = args.Get(2).([]any)
		}).
		Return(handlerCmdTag("UPDATE", 1), nil)

	h := newSubscriptionHandlerWithDB(db)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPut, "/subscriptions/"+validID, map[string]any{"seats": 8})
	r = withChiURLParam(r, "id", validID)

	h.Update(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, updateArgs, 3)
	assert.Equal(t, 8, updateArgs[0])
	// auto_renew keeps its stored value.
	assert.Equal(t, true, updateArgs[1])
}

// --- Cancel ---

func TestSubscriptionCancel_EmptyID(t *testing.T) {
	h := newSubscriptionHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodDelete, "/subscriptions/", nil)
	r = withChiURLParam(r, "id", "")

	h.Cancel(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubscriptionCancel_AlreadyCanceledConflict(t *testing.T) {
	db := &handlerMockDB{}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(subscriptionRow(validID, "canceled"))

	h := newSubscriptionHandlerWithDB(db)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodDelete, "/subscriptions/"+validID, nil)
	r = withChiURLParam(r, "id", validID)

	h.Cancel(rec, r)

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "already canceled")
}

// --- Pause / Resume ---

func TestSubscriptionPause_CanceledConflict(t *testing.T) {
	db := &handlerMockDB{}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(subscriptionRow(validID, "canceled"))

	h := newSubscriptionHandlerWithDB(db)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/subscriptions/"+validID+"/pause", nil)
	r = withChiURLParam(r, "id", validID)

	h.Pause(rec, r)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSubscriptionResume_NotPausedConflict(t *testing.T) {
	db := &handlerMockDB{}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(subscriptionRow(validID, "active"))

	h := newSubscriptionHandlerWithDB(db)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/subscriptions/"+validID+"/resume", nil)
	r = withChiURLParam(r, "id", validID)

	h.Resume(rec, r)

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "not paused")
}

func TestSubscriptionPause_Success(t *testing.T) {
	db := &handlerMockDB{}
	// Handler pre-check, service re-fetch, and post-update fetch all load the
	// subscription; the final fetch reports the paused status.
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(subscriptionRow(validID, "active")).Twice()
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(subscriptionRow(validID, "paused")).Once()
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(handlerCmdTag("UPDATE", 1), nil)

	h := newSubscriptionHandlerWithDB(db)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/subscriptions/"+validID+"/pause", nil)
	r = withChiURLParam(r, "id", validID)

	h.Pause(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"paused"`)
	db.AssertExpectations(t)
}

// --- Renew ---

func TestSubscriptionRenew_ExpiredConflict(t *testing.T) {
	db := &handlerMockDB{}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(subscriptionRow(validID, "expired"))

	h := newSubscriptionHandlerWithDB(db)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/subscriptions/"+validID+"/renew", nil)
	r = withChiURLParam(r, "id", validID)

	h.Renew(rec, r)

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "not renewable")
}
