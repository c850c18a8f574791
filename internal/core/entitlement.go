package core

import (
	"context"
	"fmt"
	"time"

	"github.com/mikaelw/subtrack/internal/cache"
	"github.com/mikaelw/subtrack/internal/model"
)

// Entitlements is the feature set a customer currently has access to: the
// union of plan features across their renewing subscriptions. A past_due
// subscription keeps its features during the grace period.
type Entitlements struct {
	CustomerID string    `json:"customer_id"`
	Features   []string  `json:"features"`
	ComputedAt time.Time `json:"computed_at"`
}

// Has reports whether the feature is in the entitlement set.
func (e *Entitlements) Has(feature string) bool {
	for _, f := range e.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// EntitlementService resolves customer entitlements from their
// subscriptions. Results are cached and invalidated on subscription
// lifecycle changes.
type EntitlementService struct {
	db     DB
	caches *cache.Cache
}

// NewEntitlementService creates a new EntitlementService.
func NewEntitlementService(db DB, caches *cache.Cache) *EntitlementService {
	return &EntitlementService{db: db, caches: caches}
}

// ForCustomer returns the customer's current entitlements.
func (s *EntitlementService) ForCustomer(ctx context.Context, customerID string) (*Entitlements, error) {
	var cached Entitlements
	if ok := s.caches.GetJSON(ctx, cache.EntitlementsKey(customerID), &cached); ok {
		return &cached, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT DISTINCT f FROM subscriptions sub
		 JOIN plans p ON p.id = sub.plan_id, unnest(p.features) AS f
		 WHERE sub.customer_id = $1 AND sub.status IN ($2, $3, $4)
		 ORDER BY f`,
		customerID, model.SubscriptionTrialing, model.SubscriptionActive, model.SubscriptionPastDue,
	)
	if err != nil {
		return nil, fmt.Errorf("resolve entitlements for customer %s: %w", customerID, err)
	}
	defer rows.Close()

	ent := &Entitlements{
		CustomerID: customerID,
		Features:   []string{},
		ComputedAt: time.Now().UTC(),
	}
	for rows.Next() {
		var feature string
		if err := rows.Scan(&feature); err != nil {
			return nil, fmt.Errorf("scan entitlement feature: %w", err)
		}
		ent.Features = append(ent.Features, feature)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entitlement features: %w", err)
	}

	s.caches.SetJSON(ctx, cache.EntitlementsKey(customerID), ent, cache.EntitlementsTTL)
	return ent, nil
}
