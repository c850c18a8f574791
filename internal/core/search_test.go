package core

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// queryContaining matches any SQL text containing the given fragment. Search
// fires its per-table queries concurrently, so mocks have to match on SQL
// content instead of call order.
func queryContaining(substr string) interface{} {
	return mock.MatchedBy(func(sql string) bool { return strings.Contains(sql, substr) })
}

func TestSearchService_Search(t *testing.T) {
	db := &mockDB{}
	svc := NewSearchService(db)

	custRows := newMockRows(func(dest ...any) error {
		*(dest[0].(*string)) = "customer"
		*(dest[1].(*string)) = "cust-1"
		*(dest[2].(*string)) = "Acme GmbH"
		*(dest[3].(*string)) = "cust-1"
		*(dest[4].(*string)) = "active"
		return nil
	})
	devRows := newMockRows(func(dest ...any) error {
		*(dest[0].(*string)) = "device"
		*(dest[1].(*string)) = "dev-1"
		*(dest[2].(*string)) = "SN-1001 ThinkPad T14"
		*(dest[3].(*string)) = "cust-1"
		*(dest[4].(*string)) = "assigned"
		return nil
	})

	db.On("Query", mock.Anything, queryContaining("'customer'"), mock.Anything).Return(custRows, nil)
	db.On("Query", mock.Anything, queryContaining("'plan'"), mock.Anything).Return(newEmptyMockRows(), nil)
	db.On("Query", mock.Anything, queryContaining("'subscription'"), mock.Anything).Return(newEmptyMockRows(), nil)
	db.On("Query", mock.Anything, queryContaining("'device'"), mock.Anything).Return(devRows, nil)
	db.On("Query", mock.Anything, queryContaining("'invoice'"), mock.Anything).Return(newEmptyMockRows(), nil)

	results, err := svc.Search(context.Background(), "acme", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Results keep table order regardless of which query finished first.
	assert.Equal(t, "customer", results[0].Type)
	assert.Equal(t, "Acme GmbH", results[0].Label)
	assert.Equal(t, "device", results[1].Type)
	assert.Equal(t, "cust-1", results[1].CustomerID)
	db.AssertExpectations(t)
}

func TestSearchService_Search_DefaultLimit(t *testing.T) {
	db := &mockDB{}
	svc := NewSearchService(db)

	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.MatchedBy(func(args []any) bool {
		return len(args) == 2 && args[0] == "%acme%" && args[1] == 5
	})).Return(newEmptyMockRows(), nil)

	results, err := svc.Search(context.Background(), "acme", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
	db.AssertNumberOfCalls(t, "Query", 5)
}

func TestSearchService_Search_QueryError(t *testing.T) {
	db := &mockDB{}
	svc := NewSearchService(db)

	db.On("Query", mock.Anything, queryContaining("'invoice'"), mock.Anything).
		Return(nil, fmt.Errorf("connection refused"))
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(newEmptyMockRows(), nil).Maybe()

	_, err := svc.Search(context.Background(), "acme", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search")
}
