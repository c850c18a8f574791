package e2e

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// minimalPDF builds a one-page PDF with a correct xref table. Offsets are
// computed so the document parses cleanly, not just passes the magic-byte
// sniff.
func minimalPDF() []byte {
	objs := []string{
		"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n",
		"2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n",
		"3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n",
	}

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, obj := range objs {
		offsets[i] = b.Len()
		b.WriteString(obj)
	}
	xref := b.Len()
	b.WriteString("xref\n")
	fmt.Fprintf(&b, "0 %d\n", len(objs)+1)
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return b.Bytes()
}

// TestInvoiceDocument covers the upload, download and on-demand preview path.
// The preview renders inline from the stored PDF, so it works before the
// background render finishes.
func TestInvoiceDocument(t *testing.T) {
	customerID := createTestCustomer(t, "E2E Document")
	invoice := createDraftInvoice(t, customerID)
	invoiceID := invoice["id"].(string)

	resp, body := httpGet(t, apiURL+"/invoices/"+invoiceID+"/document")
	require.Equal(t, 404, resp.StatusCode, "no document attached yet: %s", body)

	resp, body = httpPutRaw(t, apiURL+"/invoices/"+invoiceID+"/document", "application/pdf", []byte("this is not a pdf"))
	require.Equal(t, 400, resp.StatusCode, body)
	require.Contains(t, parseJSON(t, body)["error"], "not a PDF")

	pdf := minimalPDF()
	resp, body = httpPutRaw(t, apiURL+"/invoices/"+invoiceID+"/document", "application/pdf", pdf)
	require.Equal(t, 202, resp.StatusCode, body)
	upload := parseJSON(t, body)
	require.Equal(t, "processing", upload["status"])
	require.NotEmpty(t, upload["document_key"])

	resp, body = httpGet(t, apiURL+"/invoices/"+invoiceID+"/document")
	require.Equal(t, 200, resp.StatusCode, body)
	require.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	require.Contains(t, resp.Header.Get("Content-Disposition"), "inline")
	require.Equal(t, string(pdf), body, "stored document must round-trip unchanged")

	resp, body = httpGet(t, apiURL+"/invoices/"+invoiceID+"/document/preview")
	require.Equal(t, 200, resp.StatusCode, body)
	require.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	require.True(t, strings.HasPrefix(body, "\x89PNG\r\n\x1a\n"), "preview is not a PNG")

	resp, body = httpGet(t, apiURL+"/invoices/"+invoiceID+"/document/preview?page=abc")
	require.Equal(t, 400, resp.StatusCode, body)
	resp, body = httpGet(t, apiURL+"/invoices/"+invoiceID+"/document/preview?page=0")
	require.Equal(t, 400, resp.StatusCode, body)
	resp, body = httpGet(t, apiURL+"/invoices/"+invoiceID+"/document/preview?page=99")
	require.Equal(t, 400, resp.StatusCode, "out-of-range page: %s", body)
}

// TestInvoiceDocumentBackgroundRender waits for the worker to render and
// store the first-page preview.
func TestInvoiceDocumentBackgroundRender(t *testing.T) {
	customerID := createTestCustomer(t, "E2E Render")
	invoice := createDraftInvoice(t, customerID)
	invoiceID := invoice["id"].(string)

	resp, body := httpPutRaw(t, apiURL+"/invoices/"+invoiceID+"/document", "application/pdf", minimalPDF())
	require.Equal(t, 202, resp.StatusCode, body)

	deadline := time.Now().Add(workflowTimeout)
	for {
		resp, body := httpGet(t, apiURL+"/invoices/"+invoiceID)
		require.Equal(t, 200, resp.StatusCode, body)
		if key, ok := parseJSON(t, body)["preview_key"].(string); ok && key != "" {
			t.Logf("preview rendered at %s", key)
			break
		}
		require.True(t, time.Now().Before(deadline), "preview was never rendered")
		time.Sleep(time.Second)
	}

	resp, body = httpGet(t, apiURL+"/invoices/"+invoiceID+"/document/preview")
	require.Equal(t, 200, resp.StatusCode, body)
	require.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	require.True(t, strings.HasPrefix(body, "\x89PNG\r\n\x1a\n"), "stored preview is not a PNG")
}

func TestInvoiceDocumentUnknownInvoice(t *testing.T) {
	resp, body := httpPutRaw(t, apiURL+"/invoices/does-not-exist/document", "application/pdf", minimalPDF())
	require.Equal(t, 404, resp.StatusCode, body)
}
