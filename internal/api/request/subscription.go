package request

// CreateSubscription holds the request body for subscribing a customer to a
// plan. The customer comes from the URL.
type CreateSubscription struct {
	PlanID    string `json:"plan_id" validate:"required"`
	Seats     *int   `json:"seats" validate:"omitempty,min=1"`
	AutoRenew *bool  `json:"auto_renew"`
}

// UpdateSubscription holds the request body for updating a subscription.
// Only seats and auto-renew are mutable; status moves through the lifecycle
// endpoints.
type UpdateSubscription struct {
	Seats     *int  `json:"seats" validate:"omitempty,min=1"`
	AutoRenew *bool `json:"auto_renew"`
}
