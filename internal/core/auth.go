package core

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mikaelw/subtrack/internal/crypto"
	"github.com/mikaelw/subtrack/internal/model"
)

const tokenTTL = 24 * time.Hour

// TokenClaims are the JWT claims issued for dashboard users.
type TokenClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService authenticates dashboard users and issues JWTs.
type AuthService struct {
	db        DB
	jwtSecret []byte
	jwtIssuer string
}

// NewAuthService creates a new AuthService.
func NewAuthService(db DB, jwtSecret, jwtIssuer string) *AuthService {
	return &AuthService{
		db:        db,
		jwtSecret: []byte(jwtSecret),
		jwtIssuer: jwtIssuer,
	}
}

// Login authenticates a user by email and password, returning a JWT on
// success. Failures are deliberately indistinct.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	var user model.User
	err := s.db.QueryRow(ctx,
		`SELECT id, email, password_hash, display_name, role, created_at, updated_at
		 FROM users WHERE email = $1`, email,
	).Scan(&user.ID, &user.Email, &user.PasswordHash,
		&user.DisplayName, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return "", nil, fmt.Errorf("invalid credentials")
	}

	if !crypto.VerifyPassword(password, user.PasswordHash) {
		return "", nil, fmt.Errorf("invalid credentials")
	}

	token, err := s.IssueToken(&user)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}

	return token, &user, nil
}

// IssueToken creates a signed JWT for the given user.
func (s *AuthService) IssueToken(user *model.User) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.jwtIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(s.jwtIssuer))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// CreateUser inserts a dashboard user with a hashed password.
func (s *AuthService) CreateUser(ctx context.Context, u *model.User, password string) error {
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash

	_, err = s.db.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, display_name, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Email, u.PasswordHash, u.DisplayName, u.Role, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := s.db.QueryRow(ctx,
		`SELECT id, email, password_hash, display_name, role, created_at, updated_at
		 FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &u, nil
}

// UpdateProfile changes a user's display name and, when newPassword is
// non-empty, their password.
func (s *AuthService) UpdateProfile(ctx context.Context, id, displayName, newPassword string) (*model.User, error) {
	if newPassword != "" {
		hash, err := crypto.HashPassword(newPassword)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		tag, err := s.db.Exec(ctx,
			`UPDATE users SET display_name = $1, password_hash = $2, updated_at = now() WHERE id = $3`,
			displayName, hash, id,
		)
		if err != nil {
			return nil, fmt.Errorf("update user %s: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return nil, fmt.Errorf("user %s not found", id)
		}
	} else {
		tag, err := s.db.Exec(ctx,
			`UPDATE users SET display_name = $1, updated_at = now() WHERE id = $2`,
			displayName, id,
		)
		if err != nil {
			return nil, fmt.Errorf("update user %s: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return nil, fmt.Errorf("user %s not found", id)
		}
	}
	return s.GetUser(ctx, id)
}
