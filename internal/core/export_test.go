package core

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewExportService(t *testing.T) {
	db := &mockDB{}
	svc := NewExportService(db)
	require.NotNil(t, svc)
}

func TestExportService_Subscriptions(t *testing.T) {
	db := &mockDB{}
	svc := NewExportService(db)
	ctx := context.Background()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := newMockRows(
		func(dest ...any) error {
			*(dest[0].(*string)) = "sub-1"
			*(dest[1].(*string)) = "Acme AS"
			*(dest[2].(*string)) = "billing@acme.example"
			*(dest[3].(*string)) = "pro-monthly"
			*(dest[4].(*string)) = "active"
			*(dest[5].(*int)) = 5
			*(dest[6].(*bool)) = true
			*(dest[7].(*time.Time)) = start
			*(dest[8].(*time.Time)) = start.AddDate(0, 1, 0)
			*(dest[9].(*time.Time)) = start
			return nil
		},
	)
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	var buf bytes.Buffer
	err := svc.Subscriptions(ctx, &buf)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,customer,customer_email,plan,status,seats,auto_renew,current_period_start,current_period_end,created_at", lines[0])
	assert.Equal(t, "sub-1,Acme AS,billing@acme.example,pro-monthly,active,5,true,2026-01-01T00:00:00Z,2026-02-01T00:00:00Z,2026-01-01T00:00:00Z", lines[1])
	db.AssertExpectations(t)
}

func TestExportService_Invoices_NullableFields(t *testing.T) {
	db := &mockDB{}
	svc := NewExportService(db)
	ctx := context.Background()

	// A draft invoice has no number and no issue/due/paid timestamps.
	rows := newMockRows(
		func(dest ...any) error {
			*(dest[0].(*string)) = "inv-1"
			*(dest[1].(**string)) = nil
			*(dest[2].(*string)) = "Acme AS"
			*(dest[3].(*string)) = "draft"
			*(dest[4].(*string)) = "NOK"
			*(dest[5].(*string)) = "100.00"
			*(dest[6].(*string)) = "25.00"
			*(dest[7].(*string)) = "125.00"
			*(dest[8].(**time.Time)) = nil
			*(dest[9].(**time.Time)) = nil
			*(dest[10].(**time.Time)) = nil
			return nil
		},
	)
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	var buf bytes.Buffer
	err := svc.Invoices(ctx, &buf)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "inv-1,,Acme AS,draft,NOK,100.00,25.00,125.00,,,", lines[1])
	db.AssertExpectations(t)
}

func TestExportService_Devices_QueryError(t *testing.T) {
	db := &mockDB{}
	svc := NewExportService(db)
	ctx := context.Background()

	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(nil, errors.New("connection refused"))

	var buf bytes.Buffer
	err := svc.Devices(ctx, &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export devices")
	// Only the header was written before the query failed.
	assert.Equal(t, "id,serial_number,model,manufacturer,owner,status,purchased_at,warranty_expires_at\n", buf.String())
	db.AssertExpectations(t)
}

func TestExportService_Assignments(t *testing.T) {
	db := &mockDB{}
	svc := NewExportService(db)
	ctx := context.Background()

	assignedAt := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	returnedAt := assignedAt.AddDate(0, 2, 0)
	rows := newMockRows(
		func(dest ...any) error {
			*(dest[0].(*string)) = "asg-1"
			*(dest[1].(*string)) = "SN-1001"
			*(dest[2].(*string)) = "Acme AS"
			*(dest[3].(*string)) = "kari@acme.example"
			*(dest[4].(*string)) = "returned"
			*(dest[5].(*time.Time)) = assignedAt
			*(dest[6].(**time.Time)) = &returnedAt
			return nil
		},
	)
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	var buf bytes.Buffer
	err := svc.Assignments(ctx, &buf)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "asg-1,SN-1001,Acme AS,kari@acme.example,returned,2026-03-15T09:00:00Z,2026-05-15T09:00:00Z", lines[1])
	db.AssertExpectations(t)
}

func TestExportService_Subscriptions_ScanError(t *testing.T) {
	db := &mockDB{}
	svc := NewExportService(db)
	ctx := context.Background()

	rows := newMockRows(
		func(dest ...any) error {
			return errors.New("bad column")
		},
	)
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	var buf bytes.Buffer
	err := svc.Subscriptions(ctx, &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan subscription row")
	db.AssertExpectations(t)
}
