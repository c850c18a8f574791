package e2e

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDeviceAssignmentFlow assigns a device under a subscription, verifies
// the device is claimed for the customer, and returns it to stock.
func TestDeviceAssignmentFlow(t *testing.T) {
	customerID := createTestCustomer(t, "E2E Assignments")
	plan := createTestPlan(t, 0, 0)
	sub := createTestSubscription(t, customerID, plan["id"].(string), 2)
	subID := sub["id"].(string)
	deviceID := createTestDevice(t)

	// Assign.
	resp, body := httpPost(t, apiURL+"/subscriptions/"+subID+"/assignments", map[string]interface{}{
		"device_id": deviceID,
		"assignee":  "Kim Larsen",
	})
	require.Equal(t, 201, resp.StatusCode, "assign device: %s", body)
	assignment := parseJSON(t, body)
	assignmentID := assignment["id"].(string)
	require.Equal(t, "active", assignment["status"])
	require.NotEmpty(t, assignment["assigned_at"])
	t.Logf("device assigned: %s", assignmentID)

	// The device is now out and owned by the customer.
	resp, body = httpGet(t, apiURL+"/devices/"+deviceID)
	require.Equal(t, 200, resp.StatusCode, body)
	device := parseJSON(t, body)
	require.Equal(t, "assigned", device["status"])
	require.Equal(t, customerID, device["customer_id"])

	// A device that is out cannot be assigned again.
	resp, body = httpPost(t, apiURL+"/subscriptions/"+subID+"/assignments", map[string]interface{}{
		"device_id": deviceID,
		"assignee":  "Ola Nordmann",
	})
	require.Equal(t, 409, resp.StatusCode, "double assign should conflict: %s", body)

	// Nor deleted.
	resp, body = httpDelete(t, apiURL+"/devices/"+deviceID)
	require.Equal(t, 409, resp.StatusCode, "delete of assigned device should conflict: %s", body)

	// It shows up in both assignment listings.
	resp, body = httpGet(t, apiURL+"/subscriptions/"+subID+"/assignments")
	require.Equal(t, 200, resp.StatusCode, body)
	require.Len(t, parseJSONArray(t, body), 1)

	resp, body = httpGet(t, apiURL+"/devices/"+deviceID+"/assignments")
	require.Equal(t, 200, resp.StatusCode, body)
	require.Len(t, parseJSONArray(t, body), 1)

	// Reassign to a different person without returning.
	resp, body = httpPut(t, apiURL+"/assignments/"+assignmentID, map[string]interface{}{
		"assignee": "Ola Nordmann",
	})
	require.Equal(t, 200, resp.StatusCode, "update assignment: %s", body)
	require.Equal(t, "Ola Nordmann", parseJSON(t, body)["assignee"])

	// Return the device.
	resp, body = httpDelete(t, apiURL+"/assignments/"+assignmentID)
	require.Equal(t, 200, resp.StatusCode, "return assignment: %s", body)
	returned := parseJSON(t, body)
	require.Equal(t, "returned", returned["status"])
	require.NotEmpty(t, returned["returned_at"])
	t.Logf("device returned")

	// Back in stock, still associated with the customer.
	resp, body = httpGet(t, apiURL+"/devices/"+deviceID)
	require.Equal(t, 200, resp.StatusCode, body)
	device = parseJSON(t, body)
	require.Equal(t, "in_stock", device["status"])
	require.Equal(t, customerID, device["customer_id"])

	// Returning twice is a conflict.
	resp, body = httpDelete(t, apiURL+"/assignments/"+assignmentID)
	require.Equal(t, 409, resp.StatusCode, "double return should conflict: %s", body)
}

// TestAssignmentDeviceLimit verifies the plan's device limit caps active
// assignments per subscription.
func TestAssignmentDeviceLimit(t *testing.T) {
	customerID := createTestCustomer(t, "E2E Device Limit")
	plan := createTestPlan(t, 0, 1)
	sub := createTestSubscription(t, customerID, plan["id"].(string), 1)
	subID := sub["id"].(string)

	first := createTestDevice(t)
	second := createTestDevice(t)

	resp, body := httpPost(t, apiURL+"/subscriptions/"+subID+"/assignments", map[string]interface{}{
		"device_id": first,
		"assignee":  "Kim Larsen",
	})
	require.Equal(t, 201, resp.StatusCode, "first assignment: %s", body)
	firstAssignment := parseJSON(t, body)["id"].(string)

	// The second device does not fit under a limit of one.
	resp, body = httpPost(t, apiURL+"/subscriptions/"+subID+"/assignments", map[string]interface{}{
		"device_id": second,
		"assignee":  "Ola Nordmann",
	})
	require.Equal(t, 409, resp.StatusCode, "limit should block the second device: %s", body)
	t.Logf("device limit enforced")

	// Returning the first frees a slot.
	resp, body = httpDelete(t, apiURL+"/assignments/"+firstAssignment)
	require.Equal(t, 200, resp.StatusCode, "return: %s", body)

	resp, body = httpPost(t, apiURL+"/subscriptions/"+subID+"/assignments", map[string]interface{}{
		"device_id": second,
		"assignee":  "Ola Nordmann",
	})
	require.Equal(t, 201, resp.StatusCode, "assignment after return: %s", body)
	t.Logf("slot freed after return")
}

// TestCancelReturnsDevices verifies that cancelling a subscription returns
// its devices to stock.
func TestCancelReturnsDevices(t *testing.T) {
	customerID := createTestCustomer(t, "E2E Cancel Restock")
	plan := createTestPlan(t, 0, 0)
	sub := createTestSubscription(t, customerID, plan["id"].(string), 1)
	subID := sub["id"].(string)
	deviceID := createTestDevice(t)

	resp, body := httpPost(t, apiURL+"/subscriptions/"+subID+"/assignments", map[string]interface{}{
		"device_id": deviceID,
		"assignee":  "Kim Larsen",
	})
	require.Equal(t, 201, resp.StatusCode, "assign: %s", body)

	resp, body = httpDelete(t, apiURL+"/subscriptions/"+subID)
	require.Equal(t, 202, resp.StatusCode, "cancel: %s", body)
	waitForStatus(t, apiURL+"/subscriptions/"+subID, "canceled", workflowTimeout)

	// The cancel workflow returns every active assignment.
	waitForStatus(t, apiURL+"/devices/"+deviceID, "in_stock", workflowTimeout)
	t.Logf("device restocked by cancel workflow")

	resp, body = httpGet(t, apiURL+"/subscriptions/"+subID+"/assignments")
	require.Equal(t, 200, resp.StatusCode, body)
	for _, a := range parseJSONArray(t, body) {
		require.Equal(t, "returned", a["status"], "no assignment should stay active after cancel")
	}
}

// TestAssignmentOnAnotherCustomersSubscription verifies a device claimed by
// one customer cannot be assigned under another customer's subscription.
func TestAssignmentCustomerOwnership(t *testing.T) {
	first := createTestCustomer(t, "E2E Owner A")
	second := createTestCustomer(t, "E2E Owner B")
	plan := createTestPlan(t, 0, 0)
	subA := createTestSubscription(t, first, plan["id"].(string), 1)
	subB := createTestSubscription(t, second, plan["id"].(string), 1)
	deviceID := createTestDevice(t)

	// Claim the device for customer A, then return it. The device keeps its
	// customer association when it goes back to stock.
	resp, body := httpPost(t, apiURL+"/subscriptions/"+subA["id"].(string)+"/assignments", map[string]interface{}{
		"device_id": deviceID,
		"assignee":  "Kim Larsen",
	})
	require.Equal(t, 201, resp.StatusCode, "assign for A: %s", body)
	assignmentID := parseJSON(t, body)["id"].(string)
	resp, body = httpDelete(t, apiURL+"/assignments/"+assignmentID)
	require.Equal(t, 200, resp.StatusCode, "return: %s", body)

	// Customer B cannot pick it up.
	resp, body = httpPost(t, apiURL+"/subscriptions/"+subB["id"].(string)+"/assignments", map[string]interface{}{
		"device_id": deviceID,
		"assignee":  "Ola Nordmann",
	})
	require.Equal(t, 409, resp.StatusCode, "cross-customer assignment should conflict: %s", body)
	t.Logf("device stays bound to its customer")
}
