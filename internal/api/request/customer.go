package request

// CreateCustomer holds the request body for creating a customer.
type CreateCustomer struct {
	Name           string  `json:"name" validate:"required,min=1,max=255"`
	Email          string  `json:"email" validate:"required,email"`
	Country        string  `json:"country" validate:"required,len=2"`
	Currency       string  `json:"currency" validate:"required,len=3"`
	BillingAddress *string `json:"billing_address"`
}

// UpdateCustomer holds the request body for updating a customer.
type UpdateCustomer struct {
	Name           *string `json:"name" validate:"omitempty,min=1,max=255"`
	Email          *string `json:"email" validate:"omitempty,email"`
	Country        *string `json:"country" validate:"omitempty,len=2"`
	Currency       *string `json:"currency" validate:"omitempty,len=3"`
	BillingAddress *string `json:"billing_address"`
}
