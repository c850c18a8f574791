package core

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/mikaelw/subtrack/internal/api/request"
	"github.com/mikaelw/subtrack/internal/crypto"
	"github.com/mikaelw/subtrack/internal/model"
	"github.com/mikaelw/subtrack/internal/platform"
)

// APIKeyService manages API key operations against the billing database.
type APIKeyService struct {
	db DB
}

// NewAPIKeyService creates a new APIKeyService.
func NewAPIKeyService(db DB) *APIKeyService {
	return &APIKeyService{db: db}
}

// Create generates a new API key, stores the hash, and returns the model along
// with the raw key string. The raw key must be shown to the user exactly once.
func (s *APIKeyService) Create(ctx context.Context, name string, scopes []string) (*model.APIKey, string, error) {
	// Generate a random 32-byte key.
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return nil, "", fmt.Errorf("generate api key: %w", err)
	}
	rawKey := "st_" + hex.EncodeToString(rawBytes) // 67 chars total

	return s.createWithKey(ctx, name, rawKey, scopes)
}

// CreateWithRawKey stores an API key with a caller-provided raw key value.
// Used for well-known dev/test keys where the raw value must be deterministic.
func (s *APIKeyService) CreateWithRawKey(ctx context.Context, name, rawKey string, scopes []string) (*model.APIKey, error) {
	key, _, err := s.createWithKey(ctx, name, rawKey, scopes)
	if err != nil {
		return nil, err
	}
	return key, nil
}

func (s *APIKeyService) createWithKey(ctx context.Context, name, rawKey string, scopes []string) (*model.APIKey, string, error) {
	id := platform.NewID()

	keyHash := crypto.HashAPIKey(rawKey)
	keyPrefix := rawKey[:11] // "st_" + first 8 hex chars

	if scopes == nil {
		scopes = []string{"*:*"}
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, scopes, created_at) VALUES ($1, $2, $3, $4, $5, now())`,
		id, name, keyHash, keyPrefix, scopes,
	)
	if err != nil {
		return nil, "", fmt.Errorf("insert api key: %w", err)
	}

	key := &model.APIKey{
		ID:        id,
		Name:      name,
		KeyPrefix: keyPrefix,
		Scopes:    scopes,
	}
	// Fetch the server-generated created_at.
	err = s.db.QueryRow(ctx, "SELECT created_at FROM api_keys WHERE id = $1", id).Scan(&key.CreatedAt)
	if err != nil {
		return nil, "", fmt.Errorf("get api key created_at: %w", err)
	}

	return key, rawKey, nil
}

// GetByID retrieves an API key by its ID.
func (s *APIKeyService) GetByID(ctx context.Context, id string) (*model.APIKey, error) {
	var k model.APIKey
	err := s.db.QueryRow(ctx,
		`SELECT id, name, key_prefix, scopes, created_at, revoked_at FROM api_keys WHERE id = $1`, id,
	).Scan(&k.ID, &k.Name, &k.KeyPrefix, &k.Scopes, &k.CreatedAt, &k.RevokedAt)
	if err != nil {
		return nil, fmt.Errorf("get api key %s: %w", id, err)
	}
	return &k, nil
}

// List retrieves API keys with cursor-based pagination. Status filters on
// revocation: "active" keys have no revoked_at, "revoked" keys do.
func (s *APIKeyService) List(ctx context.Context, params request.ListParams) ([]model.APIKey, bool, error) {
	query := `SELECT id, name, key_prefix, scopes, created_at, revoked_at FROM api_keys WHERE 1=1`
	args := []any{}
	argIdx := 1

	if params.Search != "" {
		query += fmt.Sprintf(` AND name ILIKE $%d`, argIdx)
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}
	switch params.Status {
	case "active":
		query += ` AND revoked_at IS NULL`
	case "revoked":
		query += ` AND revoked_at IS NOT NULL`
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
		return nil, false, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []model.APIKey
	for rows.Next() {
		var k model.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyPrefix, &k.Scopes, &k.CreatedAt, &k.RevokedAt); err != nil {
			return nil, false, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate api keys: %w", err)
	}

	hasMore := len(keys) > params.Limit
	if hasMore {
		keys = keys[:params.Limit]
	}
	return keys, hasMore, nil
}

// Update modifies the name and scopes of an API key.
func (s *APIKeyService) Update(ctx context.Context, id, name string, scopes []string) (*model.APIKey, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE api_keys SET name = $1, scopes = $2 WHERE id = $3 AND revoked_at IS NULL`,
		name, scopes, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update api key %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("api key %s not found or already revoked", id)
	}
	return s.GetByID(ctx, id)
}

// Revoke soft-deletes an API key by setting revoked_at. Revoking a revoked
// key keeps the original timestamp.
func (s *APIKeyService) Revoke(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE api_keys SET revoked_at = COALESCE(revoked_at, now()) WHERE id = $1", id,
	)
	if err != nil {
		return fmt.Errorf("revoke api key %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("api key %s not found", id)
	}
	return nil
}
