package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mikaelw/subtrack/internal/core"
	"github.com/mikaelw/subtrack/internal/events"
)

func newDocumentHandler(db *handlerMockDB) *Document {
	if db == nil {
		return NewDocument(nil, nil, nil)
	}
	return NewDocument(core.NewInvoiceService(db, events.NoopPublisher{}), nil, nil)
}

// invoiceRowWithDocument overlays document and preview keys on a plain
// invoice row.
func invoiceRowWithDocument(id, status string, docKey, previewKey *string) *handlerMockRow {
	base := invoiceRow(id, status)
	return &handlerMockRow{scanFunc: func(dest ...any) error {
		if err := base.scanFunc(dest...); err != nil {
			return err
		}
		if docKey != nil {
			*(dest[16].(**string)) = docKey
		}
		if previewKey != nil {
			*(dest[17].(**string)) = previewKey
		}
		return nil
	}}
}

func expectDocumentInvoiceFetch(db *handlerMockDB, id, status string, docKey, previewKey *string) {
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(invoiceRowWithDocument(id, status, docKey, previewKey)).Once()
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(newHandlerMockRows(), nil).Once()
}

// --- Upload ---

func TestDocumentUpload_EmptyID(t *testing.T) {
	h := newDocumentHandler(nil)
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPut, "/invoices//document", "%PDF-1.4")
	r = withChiURLParam(r, "id", "")

	h.Upload(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentUpload_InvoiceNotFound(t *testing.T) {
	db := &handlerMockDB{}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&handlerMockRow{scanFunc: func(dest ...any) error {
			return assert.AnError
		}}).Once()

	h := newDocumentHandler(db)
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPut, "/invoices/"+validID+"/document", "%PDF-1.4")
	r = withChiURLParam(r, "id", validID)

	h.Upload(rec, r)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocumentUpload_NotPDF(t *testing.T) {
	db := &handlerMockDB{}
	expectDocumentInvoiceFetch(db, validID, "open", nil, nil)

	h := newDocumentHandler(db)
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPut, "/invoices/"+validID+"/document", `{"pdf":false}`)
	r = withChiURLParam(r, "id", validID)

	h.Upload(rec, r)

	// The magic bytes decide, not the Content-Type header.
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not a PDF")
}

// --- Download ---

func TestDocumentDownload_EmptyID(t *testing.T) {
	h := newDocumentHandler(nil)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/invoices//document", nil)
	r = withChiURLParam(r, "id", "")

	h.Download(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentDownload_NoDocument(t *testing.T) {
	db := &handlerMockDB{}
	expectDocumentInvoiceFetch(db, validID, "open", nil, nil)

	h := newDocumentHandler(db)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/invoices/"+validID+"/document", nil)
	r = withChiURLParam(r, "id", validID)

	h.Download(rec, r)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "has no document")
}

// --- Preview ---

func TestDocumentPreview_NoDocument(t *testing.T) {
	db := &handlerMockDB{}
	expectDocumentInvoiceFetch(db, validID, "open", nil, nil)

	h := newDocumentHandler(db)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/invoices/"+validID+"/document/preview", nil)
	r = withChiURLParam(r, "id", validID)

	h.Preview(rec, r)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocumentPreview_InvalidPage(t *testing.T) {
	docKey := "invoices/" + validID + "/document.pdf"

	for _, bad := range []string{"abc", "0", "-1"} {
		db := &handlerMockDB{}
		expectDocumentInvoiceFetch(db, validID, "open", &docKey, nil)

		h := newDocumentHandler(db)
		rec := httptest.NewRecorder()
		r := newRequest(http.MethodGet, "/invoices/"+validID+"/document/preview?page="+bad, nil)
		r = withChiURLParam(r, "id", validID)

		h.Preview(rec, r)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "page=%s", bad)
		assert.Contains(t, rec.Body.String(), "invalid page")
	}
}
