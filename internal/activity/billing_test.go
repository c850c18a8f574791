package activity

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mikaelw/subtrack/internal/model"
)

func renewalParams() CreateRenewalInvoiceParams {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	return CreateRenewalInvoiceParams{
		SubscriptionID: "sub-1",
		PeriodStart:    start,
		PeriodEnd:      start.AddDate(0, 1, 0),
	}
}

// ---------- CreateRenewalInvoice ----------

func TestBilling_CreateRenewalInvoice_ExistingInvoiceReused(t *testing.T) {
	db := &mockDB{}
	a := NewBilling(db)
	ctx := context.Background()

	existing := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "inv-existing"
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(existing).Once()

	id, err := a.CreateRenewalInvoice(ctx, renewalParams())
	require.NoError(t, err)
	assert.Equal(t, "inv-existing", id)
	// No inserts happen when the period already has an invoice.
	db.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
	db.AssertExpectations(t)
}

func TestBilling_CreateRenewalInvoice_Success(t *testing.T) {
	db := &mockDB{}
	a := NewBilling(db)
	ctx := context.Background()

	noExisting := &mockRow{scanFunc: func(dest ...any) error {
		return pgx.ErrNoRows
	}}
	subPlan := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "cust-1"
		*(dest[1].(*int)) = 3
		*(dest[2].(*string)) = "Fleet Pro"
		*(dest[3].(*decimal.Decimal)) = decimal.RequireFromString("49.00")
		*(dest[4].(*string)) = "EUR"
		return nil
	}}
	asgRows := newMockRows(func(dest ...any) error {
		*(dest[0].(*string)) = "SN-1001"
		*(dest[1].(*string)) = "ThinkPad T14"
		*(dest[2].(*string)) = "Kim Larsen"
		return nil
	})

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(noExisting).Once()
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(subPlan).Once()
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(cmdTag("INSERT", 1), nil)
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(asgRows, nil)

	id, err := a.CreateRenewalInvoice(ctx, renewalParams())
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	// One invoice insert, one plan line, one device line.
	db.AssertNumberOfCalls(t, "Exec", 3)
	db.AssertExpectations(t)
}

func TestBilling_CreateRenewalInvoice_SubscriptionMissing(t *testing.T) {
	db := &mockDB{}
	a := NewBilling(db)
	ctx := context.Background()

	noExisting := &mockRow{scanFunc: func(dest ...any) error {
		return pgx.ErrNoRows
	}}
	missing := &mockRow{scanFunc: func(dest ...any) error {
		return fmt.Errorf("no rows in result set")
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(noExisting).Once()
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(missing).Once()

	_, err := a.CreateRenewalInvoice(ctx, renewalParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load subscription sub-1")
	db.AssertExpectations(t)
}

// ---------- IssueInvoice ----------

func TestBilling_IssueInvoice_AllocatesNumber(t *testing.T) {
	db := &mockDB{}
	a := NewBilling(db)
	ctx := context.Background()

	draft := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[1].(*string)) = model.InvoiceDraft
		return nil
	}}
	seqRow := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*int64)) = 42
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(draft).Once()
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(seqRow).Once()
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(cmdTag("UPDATE", 1), nil)

	number, err := a.IssueInvoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("INV-%d-000042", time.Now().UTC().Year()), number)
	db.AssertExpectations(t)
}

func TestBilling_IssueInvoice_AlreadyIssued(t *testing.T) {
	db := &mockDB{}
	a := NewBilling(db)
	ctx := context.Background()

	number := "INV-2026-000007"
	open := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(**string)) = &number
		*(dest[1].(*string)) = model.InvoiceOpen
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(open).Once()

	got, err := a.IssueInvoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, number, got)
	// The sequence must not advance for an invoice that already has a number.
	db.AssertNumberOfCalls(t, "QueryRow", 1)
	db.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
	db.AssertExpectations(t)
}

func TestBilling_IssueInvoice_NotFound(t *testing.T) {
	db := &mockDB{}
	a := NewBilling(db)
	ctx := context.Background()

	missing := &mockRow{scanFunc: func(dest ...any) error {
		return pgx.ErrNoRows
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(missing).Once()

	_, err := a.IssueInvoice(ctx, "inv-404")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get invoice inv-404")
	db.AssertExpectations(t)
}
