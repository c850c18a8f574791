package model

// Subscription lifecycle statuses.
const (
	SubscriptionTrialing = "trialing"
	SubscriptionActive   = "active"
	SubscriptionPastDue  = "past_due"
	SubscriptionPaused   = "paused"
	SubscriptionCanceled = "canceled"
	SubscriptionExpired  = "expired"
)

// Invoice lifecycle statuses.
const (
	InvoiceDraft = "draft"
	InvoiceOpen  = "open"
	InvoicePaid  = "paid"
	InvoiceVoid  = "void"
)

// Device inventory statuses.
const (
	DeviceInStock  = "in_stock"
	DeviceAssigned = "assigned"
	DeviceInRepair = "in_repair"
	DeviceRetired  = "retired"
	DeviceLost     = "lost"
)

// Assignment statuses.
const (
	AssignmentActive   = "active"
	AssignmentReturned = "returned"
)

// Customer and plan statuses.
const (
	CustomerActive   = "active"
	CustomerArchived = "archived"
	PlanActive       = "active"
	PlanRetired      = "retired"
)

// SubscriptionRenewable reports whether a subscription in the given status
// is eligible for period renewal.
func SubscriptionRenewable(status string) bool {
	switch status {
	case SubscriptionTrialing, SubscriptionActive, SubscriptionPastDue:
		return true
	}
	return false
}

// SubscriptionTerminal reports whether the status is an end state.
func SubscriptionTerminal(status string) bool {
	return status == SubscriptionCanceled || status == SubscriptionExpired
}
