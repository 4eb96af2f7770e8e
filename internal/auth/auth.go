// Package auth resolves bearer tokens to identities and decides edit
// policy for documents.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/quokka-collab/quokka/internal/domain"
)

// DefaultTokenTTL is how long issued tokens stay valid.
const DefaultTokenTTL = 24 * time.Hour

// Service issues and verifies JWT bearer tokens backed by the user store.
type Service struct {
	users  domain.UserStore
	secret []byte
	ttl    time.Duration
}

// NewService creates an auth service. secret signs tokens with HS256.
func NewService(users domain.UserStore, secret []byte, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Service{users: users, secret: secret, ttl: ttl}
}

// EncodeToken issues a signed token for a user ID.
func (s *Service) EncodeToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Identity resolves a bearer token to its user. An empty token resolves
// to no identity without error, so publicly shared documents can admit
// anonymous sessions; an invalid or expired token, or one naming an
// unknown or inactive user, is ErrAuthFailure.
func (s *Service) Identity(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, nil
	}

	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, domain.ErrAuthFailure
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return nil, domain.ErrAuthFailure
	}

	user, err := s.users.Get(ctx, claims.Subject)
	if err != nil {
		return nil, domain.ErrAuthFailure
	}
	if !user.IsActive {
		return nil, domain.ErrAuthFailure
	}
	return user, nil
}

// MayEdit reports whether an identity may submit edits to a document.
// Owners always may; everyone else needs the EDIT share role.
func MayEdit(user *domain.User, doc *domain.Document) bool {
	if user != nil && user.ID == doc.UserID {
		return true
	}
	return doc.ShareRole == domain.RoleEdit
}

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword verifies a plaintext password against a stored hash.
func CheckPassword(hashed, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}
