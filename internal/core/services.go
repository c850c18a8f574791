package core

import (
	temporalclient "go.temporal.io/sdk/client"

	"github.com/mikaelw/subtrack/internal/cache"
	"github.com/mikaelw/subtrack/internal/events"
)

type Services struct {
	Customer     *CustomerService
	Plan         *PlanService
	Subscription *SubscriptionService
	Invoice      *InvoiceService
	LineItem     *LineItemService
	Device       *DeviceService
	Assignment   *AssignmentService
	Dashboard    *DashboardService
	Entitlement  *EntitlementService
	Export       *ExportService
	Search       *SearchService
	APIKey       *APIKeyService
	Auth         *AuthService
}

func NewServices(db DB, tc temporalclient.Client, pub events.Publisher, caches *cache.Cache, jwtSecret, jwtIssuer string) *Services {
	return &Services{
		Customer:     NewCustomerService(db),
		Plan:         NewPlanService(db),
		Subscription: NewSubscriptionService(db, tc, pub, caches),
		Invoice:      NewInvoiceService(db, pub),
		LineItem:     NewLineItemService(db),
		Device:       NewDeviceService(db),
		Assignment:   NewAssignmentService(db, pub),
		Dashboard:    NewDashboardService(db, caches),
		Entitlement:  NewEntitlementService(db, caches),
		Export:       NewExportService(db),
		Search:       NewSearchService(db),
		APIKey:       NewAPIKeyService(db),
		Auth:         NewAuthService(db, jwtSecret, jwtIssuer),
	}
}
