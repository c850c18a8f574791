package core

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// SearchResult represents a single search result across resource types.
type SearchResult struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Label      string `json:"label"`
	CustomerID string `json:"customer_id,omitempty"`
	Status     string `json:"status"`
}

// SearchService provides cross-resource search.
type SearchService struct {
	db DB
}

// NewSearchService creates a new SearchService.
func NewSearchService(db DB) *SearchService {
	return &SearchService{db: db}
}

// Search runs parallel queries across resource tables and returns matching results.
func (s *SearchService) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 5
	}
	pattern := "%" + query + "%"

	type queryDef struct {
		sql  string
		args []any
	}

	queries := []queryDef{
		{
			sql: `SELECT 'customer', id, name, id, status FROM customers
				WHERE id ILIKE $1 OR name ILIKE $1 OR email ILIKE $1
				LIMIT $2`,
			args: []any{pattern, limit},
		},
		{
			sql: `SELECT 'plan', id, name, '', status FROM plans
				WHERE code ILIKE $1 OR name ILIKE $1
				LIMIT $2`,
			args: []any{pattern, limit},
		},
		{
			sql: `SELECT 'subscription', id, id, customer_id, status FROM subscriptions
				WHERE id ILIKE $1
				LIMIT $2`,
			args: []any{pattern, limit},
		},
		{
			sql: `SELECT 'device', id, serial_number || ' ' || model, COALESCE(customer_id, ''), status FROM devices
				WHERE serial_number ILIKE $1 OR model ILIKE $1 OR manufacturer ILIKE $1
				LIMIT $2`,
			args: []any{pattern, limit},
		},
		{
			sql: `SELECT 'invoice', id, COALESCE(number, id), customer_id, status FROM invoices
				WHERE id ILIKE $1 OR number ILIKE $1
				LIMIT $2`,
			args: []any{pattern, limit},
		},
	}

	results := make([][]SearchResult, len(queries))
	g, ctx := errgroup.WithContext(ctx)

	for i, q := range queries {
		g.Go(func() error {
			rows, err := s.db.Query(ctx, q.sql, q.args...)
			if err != nil {
				return fmt.Errorf("search query %d: %w", i, err)
			}
			defer rows.Close()

			for rows.Next() {
				var r SearchResult
				if err := rows.Scan(&r.Type, &r.ID, &r.Label, &r.CustomerID, &r.Status); err != nil {
					return fmt.Errorf("scan search result: %w", err)
				}
				results[i] = append(results[i], r)
			}
			return rows.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var all []SearchResult
	for _, batch := range results {
		all = append(all, batch...)
	}
	return all, nil
}
