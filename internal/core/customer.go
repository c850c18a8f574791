package core

import (
	"context"
	"fmt"

	"github.com/mikaelw/subtrack/internal/api/request"
	"github.com/mikaelw/subtrack/internal/model"
)

// CustomerService manages customer records.
type CustomerService struct {
	db DB
}

// NewCustomerService creates a new CustomerService.
func NewCustomerService(db DB) *CustomerService {
	return &CustomerService{db: db}
}

// Create inserts a new customer.
func (s *CustomerService) Create(ctx context.Context, c *model.Customer) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO customers (id, name, email, country, currency, billing_address, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.Name, c.Email, c.Country, c.Currency, c.BillingAddress, c.Status, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

// GetByID retrieves a customer by its ID.
func (s *CustomerService) GetByID(ctx context.Context, id string) (*model.Customer, error) {
	var c model.Customer
	err := s.db.QueryRow(ctx,
		`SELECT id, name, email, country, currency, billing_address, status, created_at, updated_at
		 FROM customers WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Email, &c.Country, &c.Currency, &c.BillingAddress,
		&c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get customer %s: %w", id, err)
	}
	return &c, nil
}

// List retrieves customers with cursor-based pagination. Search matches name
// and email.
func (s *CustomerService) List(ctx context.Context, params request.ListParams) ([]model.Customer, bool, error) {
	query := `SELECT id, name, email, country, currency, billing_address, status, created_at, updated_at FROM customers WHERE 1=1`
	args := []any{}
	argIdx := 1

	if params.Search != "" {
		query += fmt.Sprintf(` AND (name ILIKE $%d OR email ILIKE $%d)`, argIdx, argIdx)
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}
	if params.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, params.Status)
		argIdx++
	}
	if params.Cursor != "" {
		query += fmt.Sprintf(` AND id > $%d`, argIdx)
		args = append(args, params.Cursor)
		argIdx++
	}

	query += ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, params.Limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Country, &c.Currency, &c.BillingAddress,
			&c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate customers: %w", err)
	}

	hasMore := len(customers) > params.Limit
	if hasMore {
		customers = customers[:params.Limit]
	}
	return customers, hasMore, nil
}

// Update modifies the mutable fields of a customer.
func (s *CustomerService) Update(ctx context.Context, id, name, email, country, currency string, billingAddress *string) (*model.Customer, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE customers SET name = $1, email = $2, country = $3, currency = $4, billing_address = $5, updated_at = now()
		 WHERE id = $6`,
		name, email, country, currency, billingAddress, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update customer %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("customer %s not found", id)
	}
	return s.GetByID(ctx, id)
}

// Archive flips the customer to archived. Archived customers keep their
// history but no longer accept new subscriptions.
func (s *CustomerService) Archive(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE customers SET status = $1, updated_at = now() WHERE id = $2",
		model.CustomerArchived, id,
	)
	if err != nil {
		return fmt.Errorf("archive customer %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("customer %s not found", id)
	}
	return nil
}

// OpenSubscriptionCount returns how many of the customer's subscriptions are
// not in a terminal status. Used to block archival of customers with live
// subscriptions.
func (s *CustomerService) OpenSubscriptionCount(ctx context.Context, id string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM subscriptions WHERE customer_id = $1 AND status NOT IN ($2, $3)`,
		id, model.SubscriptionCanceled, model.SubscriptionExpired,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count open subscriptions for customer %s: %w", id, err)
	}
	return count, nil
}
