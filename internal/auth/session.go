package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"terapiahub/internal/models"
)

// Session is who the token says the signed-in user is. Signatures are
// checked by the backend, not here.
type Session struct {
	UserID    int64
	Role      models.Role
	Name      string
	ExpiresAt time.Time
}

var ErrMissingClaim = errors.New("token is missing a required claim")

type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	Name   string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// ParseSession reads the user id and role from token without verifying it.
// The user id comes from the user_id claim, falling back to a numeric sub.
func ParseSession(token string) (*Session, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	userID := claims.UserID
	if userID == 0 && claims.Subject != "" {
		id, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: sub %q is not a user id", ErrMissingClaim, claims.Subject)
		}
		userID = id
	}
	if userID == 0 {
		return nil, fmt.Errorf("%w: user_id", ErrMissingClaim)
	}

	role, err := models.ParseRole(claims.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingClaim, err)
	}

	s := &Session{UserID: userID, Role: role, Name: claims.Name}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// Expired reports whether the token's exp has passed. Tokens without exp
// never expire here.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// IssueToken signs an HS256 token for local development backends.
func IssueToken(secret []byte, userID int64, role models.Role, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   string(role),
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
