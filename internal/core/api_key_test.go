package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mikaelw/subtrack/internal/api/request"
	"github.com/mikaelw/subtrack/internal/crypto"
)

func TestNewAPIKeyService(t *testing.T) {
	db := &mockDB{}
	svc := NewAPIKeyService(db)
	require.NotNil(t, svc)
}

// ---------- Create ----------

func TestAPIKeyService_Create_Success(t *testing.T) {
	db := &mockDB{}
	svc := NewAPIKeyService(db)
	ctx := context.Background()

	var insertArgs []any
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) {
			insertArgs = args.Get(2).([]any)
		}).
		Return(cmdTag("INSERT", 1), nil)

	createdAt := time.Now()
	createdRow := &mockRow{
		scanFunc: func(dest ...any) error {
			*(dest[0].(*time.Time)) = createdAt
			return nil
		},
	}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(createdRow)

	key, rawKey, err := svc.Create(ctx, "ci-deploy", []string{"subscriptions:read"})
	require.NoError(t, err)
	require.NotNil(t, key)

	// "st_" plus 32 random bytes hex encoded.
	assert.True(t, strings.HasPrefix(rawKey, "st_"))
	assert.Len(t, rawKey, 67)
	assert.Equal(t, rawKey[:11], key.KeyPrefix)
	assert.Equal(t, "ci-deploy", key.Name)
	assert.Equal(t, []string{"subscriptions:read"}, key.Scopes)
	assert.Equal(t, createdAt, key.CreatedAt)

	// Only the hash reaches the database, never the raw key.
	require.Len(t, insertArgs, 5)
	assert.Equal(t, crypto.HashAPIKey(rawKey), insertArgs[2])
	assert.Equal(t, rawKey[:11], insertArgs[3])

	db.AssertExpectations(t)
}

func TestAPIKeyService_Create_DefaultScopes(t *testing.T) {
	db := &mockDB{}
	svc := NewAPIKeyService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(cmdTag("INSERT", 1), nil)
	createdRow := &mockRow{
		scanFunc: func(dest ...any) error {
			*(dest[0].(*time.Time)) = time.Now()
			return nil
		},
	}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(createdRow)

	key, _, err := svc.Create(ctx, "admin", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"*:*"}, key.Scopes)
	db.AssertExpectations(t)
}

func TestAPIKeyService_Create_InsertError(t *testing.T) {
	db := &mockDB{}
	svc := NewAPIKeyService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(cmdTag("INSERT", 0), errors.New("insert failed"))

	key, rawKey, err := svc.Create(ctx, "broken", nil)
	require.Error(t, err)
	assert.Nil(t, key)
	assert.Empty(t, rawKey)
	assert.Contains(t, err.Error(), "insert api key")
	db.AssertExpectations(t)
}

func TestAPIKeyService_CreateWithRawKey(t *testing.T) {
	db := &mockDB{}
	svc := NewAPIKeyService(db)
	ctx := context.Background()

	rawKey := "st_" + strings.Repeat("ab", 32)

	var insertArgs []any
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) {
			insertArgs = args.Get(2).([]any)
		}).
		Return(cmdTag("INSERT", 1), nil)
	createdRow := &mockRow{
		scanFunc: func(dest ...any) error {
			*(dest[0].(*time.Time)) = time.Now()
			return nil
		},
	}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(createdRow)

	key, err := svc.CreateWithRawKey(ctx, "dev-seed", rawKey, []string{"*:*"})
	require.NoError(t, err)
	assert.Equal(t, "st_abababab", key.KeyPrefix)

	require.Len(t, insertArgs, 5)
	assert.Equal(t, crypto.HashAPIKey(rawKey), insertArgs[2])
	db.AssertExpectations(t)
}

// ---------- GetByID ----------

func TestAPIKeyService_GetByID_Success(t *testing.T) {
	db := &mockDB{}
	svc := NewAPIKeyService(db)
	ctx := context.Background()

	row := &mockRow{
		scanFunc: func(dest ...any) error {
			*(dest[0].(*string)) = "key-1"
			*(dest[1].(*string)) = "ci-deploy"
			*(dest[2].(*string)) = "st_abababab"
			*(dest[3].(*[]string)) = []string{"*:*"}
			*(dest[4].(*time.Time)) = time.Now()
			*(dest[5].(**time.Time)) = nil
			return nil
		},
	}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	key, err := svc.GetByID(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "key-1", key.ID)
	assert.Equal(t, "st_abababab", key.KeyPrefix)
	assert.Nil(t, key.RevokedAt)
	db.AssertExpectations(t)
}

func TestAPIKeyService_GetByID_NotFound(t *testing.T) {
	db := &mockDB{}
	svc := NewAPIKeyService(db)
	ctx := context.Background()

	row := &mockRow{
		scanFunc: func(dest ...any) error {
			return errors.New("no rows in result set")
		},
	}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	key, err := svc.GetByID(ctx, "missing")
	require.Error(t, err)
	assert.Nil(t, key)
	assert.Contains(t, err.Error(), "get api key missing")
	db.AssertExpectations(t)
}

// ---------- List ----------

func TestAPIKeyService_List_Success(t *testing.T) {
	db := &mockDB{}
	svc := NewAPIKeyService(db)
	ctx := context.Background()

	rows := newMockRows(
		func(dest ...any) error {
			*(dest[0].(*string)) = "key-1"
			*(dest[1].(*string)) = "ci-deploy"
			*(dest[2].(*string)) = "st_abababab"
			*(dest[3].(*[]string)) = []string{"*:*"}
			*(dest[4].(*time.Time)) = time.Now()
			*(dest[5].(**time.Time)) = nil
			return nil
		},
	)
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	keys, hasMore, err := svc.List(ctx, request.ListParams{Limit: 10})
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.False(t, hasMore)
	assert.Equal(t, "ci-deploy", keys[0].Name)
	db.AssertExpectations(t)
}

func TestAPIKeyService_List_StatusFilter(t *testing.T) {
	db := &mockDB{}
	svc := NewAPIKeyService(db)
	ctx := context.Background()

	var gotSQL string
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) { gotSQL = args.Get(1).(string) }).
		Return(newMockRows(), nil)

	_, _, err := svc.List(ctx, request.ListParams{Limit: 10, Status: "revoked"})
	require.NoError(t, err)
	assert.Contains(t, gotSQL, "revoked_at IS NOT NULL")
	assert.Contains(t, gotSQL, "ORDER BY id")
	db.AssertExpectations(t)
}

func TestAPIKeyService_List_QueryError(t *testing.T) {
	db := &mockDB{}
	svc := NewAPIKeyService(db)
	ctx := context.Background()

	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(nil, errors.New("connection refused"))

	keys, hasMore, err := svc.List(ctx, request.ListParams{Limit: 10})
	require.Error(t, err)
	assert.Nil(t, keys)
	assert.False(t, hasMore)
	assert.Contains(t, err.Error(), "list api keys")
	db.AssertExpectations(t)
}

// ---------- Update ----------

func TestAPIKeyService_Update_Success(t *testing.T) {
	db := &mockDB{}
	svc := NewAPIKeyService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(cmdTag("UPDATE", 1), nil)

	row := &mockRow{
		scanFunc: func(dest ...any) error {
			*(dest[0].(*string)) = "key-1"
			*(dest[1].(*string)) = "renamed"
			*(dest[2].(*string)) = "st_abababab"
			*(dest[3].(*[]string)) = []string{"devices:read"}
			*(dest[4].(*time.Time)) = time.Now()
			*(dest[5].(**time.Time)) = nil
			return nil
		},
	}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	key, err := svc.Update(ctx, "key-1", "renamed", []string{"devices:read"})
	require.NoError(t, err)
	assert.Equal(t, "renamed", key.Name)
	assert.Equal(t, []string{"devices:read"}, key.Scopes)
	db.AssertExpectations(t)
}

func TestAPIKeyService_Update_Revoked(t *testing.T) {
	db := &mockDB{}
	svc := NewAPIKeyService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(cmdTag("UPDATE", 0), nil)

	key, err := svc.Update(ctx, "key-1", "renamed", nil)
	require.Error(t, err)
	assert.Nil(t, key)
	assert.Contains(t, err.Error(), "not found or already revoked")
	db.AssertExpectations(t)
}

// ---------- Revoke ----------

func TestAPIKeyService_Revoke_Success(t *testing.T) {
	db := &mockDB{}
	svc := NewAPIKeyService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(cmdTag("UPDATE", 1), nil)

	err := svc.Revoke(ctx, "key-1")
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestAPIKeyService_Revoke_NotFound(t *testing.T) {
	db := &mockDB{}
	svc := NewAPIKeyService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(cmdTag("UPDATE", 0), nil)

	err := svc.Revoke(ctx, "key-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	db.AssertExpectations(t)
}
