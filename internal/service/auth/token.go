package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/Olprog59/ehs-access/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Issuer is stamped on every persisted session token
const Issuer = "ehs-access"

const minKeyLength = 16

var (
	ErrWeakKey     = errors.New("session signing key too weak")
	ErrUnknownRole = errors.New("session token carries an unknown role")
	// ErrTokenExpired re-exports the jwt sentinel so callers need not import jwt
	ErrTokenExpired = jwt.ErrTokenExpired
)

// SessionClaims is the signed form of a persisted session / Forme signée d'une session persistée
type SessionClaims struct {
	jwt.RegisteredClaims
	Email    string           `json:"email"`
	Name     string           `json:"name"`
	Role     string           `json:"role"`
	LoggedIn *jwt.NumericDate `json:"login_at"`
}

// IssueSessionToken signs the session with HS256 / Signe la session avec HS256
// Expiry counts from the login time, so re-issuing after a role switch does not extend it.
func IssueSessionToken(session domain.PersistedSession, key string, ttl time.Duration) (string, time.Time, error) {
	if len(key) < minKeyLength {
		return "", time.Time{}, ErrWeakKey
	}
	if session.LoggedIn.IsZero() {
		session.LoggedIn = time.Now()
	}

	now := time.Now()
	expiresAt := session.LoggedIn.Add(ttl)
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.User.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    Issuer,
		},
		Email:    session.User.Email,
		Name:     session.User.Name,
		Role:     session.User.Role.String(),
		LoggedIn: jwt.NewNumericDate(session.LoggedIn),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseSessionToken validates signature, issuer, expiry and role / Valide signature, émetteur, expiration et rôle
func ParseSessionToken(tokenStr, key string) (*domain.PersistedSession, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		return []byte(key), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	role, ok := domain.ParseRole(claims.Role)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, claims.Role)
	}

	session := &domain.PersistedSession{
		User: domain.User{
			ID:    claims.Subject,
			Email: claims.Email,
			Name:  claims.Name,
			Role:  role,
		},
	}
	if claims.LoggedIn != nil {
		session.LoggedIn = claims.LoggedIn.Time
	}
	return session, nil
}
