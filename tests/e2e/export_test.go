package e2e

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCSVExports downloads each report and checks the header row.
func TestCSVExports(t *testing.T) {
	// Make sure at least one row exists per report.
	customerID := createTestCustomer(t, "E2E Export Co")
	plan := createTestPlan(t, 0, 0)
	sub := createTestSubscription(t, customerID, plan["id"].(string), 1)
	deviceID := createTestDevice(t)
	resp, body := httpPost(t, apiURL+"/subscriptions/"+sub["id"].(string)+"/assignments", map[string]interface{}{
		"device_id": deviceID,
		"assignee":  "Kim Larsen",
	})
	require.Equal(t, 201, resp.StatusCode, "assign: %s", body)
	invoiceID := createDraftInvoice(t, customerID)
	addLineItem(t, invoiceID, "Line", 1, "10.00")

	headers := map[string]string{
		"subscriptions": "id,customer,customer_email,plan,status,seats",
		"invoices":      "id,number,customer,status,currency,subtotal",
		"devices":       "id,serial_number,model,manufacturer,owner,status",
		"assignments":   "id,device_serial,customer,assignee,status",
	}

	for report, headerPrefix := range headers {
		resp, body := httpGet(t, apiURL+"/exports/"+report)
		require.Equal(t, 200, resp.StatusCode, "export %s: %s", report, body)
		require.Contains(t, resp.Header.Get("Content-Type"), "text/csv", "export %s content type", report)
		require.Contains(t, resp.Header.Get("Content-Disposition"), "attachment", "export %s disposition", report)

		lines := strings.SplitN(body, "\n", 2)
		require.True(t, strings.HasPrefix(lines[0], headerPrefix),
			"export %s header = %q, want prefix %q", report, lines[0], headerPrefix)

		// Every row must parse and match the header width.
		records, err := csv.NewReader(strings.NewReader(body)).ReadAll()
		require.NoError(t, err, "export %s should be valid CSV", report)
		require.GreaterOrEqual(t, len(records), 2, "export %s should have data rows", report)
		t.Logf("export %s: %d rows", report, len(records)-1)
	}
}

func TestExportAcceptsCSVSuffix(t *testing.T) {
	resp, body := httpGet(t, apiURL+"/exports/devices.csv")
	require.Equal(t, 200, resp.StatusCode, "trailing .csv should be accepted: %s", body)
}

func TestExportUnknownReport(t *testing.T) {
	resp, body := httpGet(t, apiURL+"/exports/espionage")
	require.Equal(t, 400, resp.StatusCode, body)
	errResp := parseJSON(t, body)
	require.Contains(t, errResp["error"], "unknown report")
}
