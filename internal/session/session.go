package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cuongbtq/agency-be/internal/domain"
)

// Resolver turns a bearer token into the calling identity
type Resolver interface {
	Resolve(ctx context.Context, token string) (domain.Caller, error)
}

type claims struct {
	jwt.RegisteredClaims
	Role     string `json:"role"`
	AgencyID string `json:"agency_id"`
}

// JWTResolver issues and verifies HS256 session tokens
type JWTResolver struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTResolver creates a resolver signing with secret
func NewJWTResolver(secret, issuer string, ttl time.Duration) *JWTResolver {
	return &JWTResolver{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for caller
func (r *JWTResolver) Issue(caller domain.Caller) (string, error) {
	if len(r.secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	if err := caller.Validate(); err != nil {
		return "", fmt.Errorf("invalid caller: %w", err)
	}

	now := r.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.UserID,
			Issuer:    r.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.ttl)),
		},
		Role:     string(caller.Role),
		AgencyID: caller.AgencyID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Resolve verifies token and returns the caller it names. Any failure maps to
// domain.ErrUnauthorized.
func (r *JWTResolver) Resolve(_ context.Context, token string) (domain.Caller, error) {
	token = strings.TrimSpace(token)
	if token == "" || len(r.secret) == 0 {
		return domain.Caller{}, domain.ErrUnauthorized
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(r.now),
	}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}

	c := &claims{}
	parsed, err := jwt.NewParser(opts...).ParseWithClaims(token, c, func(*jwt.Token) (any, error) {
		return r.secret, nil
	})
	if err != nil || !parsed.Valid {
		return domain.Caller{}, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}

	caller := domain.Caller{UserID: c.Subject, Role: domain.Role(c.Role), AgencyID: c.AgencyID}
	if err := caller.Validate(); err != nil {
		return domain.Caller{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return caller, nil
}
