package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"digytal.com/control/internal/business"
)

const (
	purposeSession = "session"
	purposeReset   = "password_reset"

	defaultIssuer     = "control"
	defaultSessionTTL = time.Hour
	defaultResetTTL   = 30 * time.Minute
)

// Claims are the JWT claims of session and reset tokens.
type Claims struct {
	Purpose       string   `json:"purpose"`
	Login         string   `json:"login,omitempty"`
	Organization  string   `json:"org,omitempty"`
	Organizations []string `json:"orgs,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 tokens.
type TokenIssuer struct {
	secret     []byte
	issuer     string
	sessionTTL time.Duration
	resetTTL   time.Duration
	now        func() time.Time
}

// TokenOption configures TokenIssuer.
type TokenOption func(*TokenIssuer)

// WithIssuer overrides the iss claim.
func WithIssuer(issuer string) TokenOption {
	return func(t *TokenIssuer) {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			t.issuer = issuer
		}
	}
}

// WithSessionTTL sets the fixed session validity window.
func WithSessionTTL(ttl time.Duration) TokenOption {
	return func(t *TokenIssuer) {
		if ttl > 0 {
			t.sessionTTL = ttl
		}
	}
}

// WithResetTTL sets how long reset tokens stay valid.
func WithResetTTL(ttl time.Duration) TokenOption {
	return func(t *TokenIssuer) {
		if ttl > 0 {
			t.resetTTL = ttl
		}
	}
}

// WithTokenClock overrides the time source.
func WithTokenClock(fn func() time.Time) TokenOption {
	return func(t *TokenIssuer) {
		if fn != nil {
			t.now = fn
		}
	}
}

// NewTokenIssuer builds an issuer signing with secret.
func NewTokenIssuer(secret string, opts ...TokenOption) (*TokenIssuer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth: token secret is required")
	}
	t := &TokenIssuer{
		secret:     []byte(secret),
		issuer:     defaultIssuer,
		sessionTTL: defaultSessionTTL,
		resetTTL:   defaultResetTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// IssueSession signs a session token for u. The first organization becomes the active one.
func (t *TokenIssuer) IssueSession(u User, orgs []Organization) (string, time.Time, time.Time, error) {
	now := t.now().UTC()
	end := now.Add(t.sessionTTL)
	claims := Claims{
		Purpose: purposeSession,
		Login:   u.Login,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(end),
			ID:        uuid.NewString(),
		},
	}
	for _, org := range orgs {
		claims.Organizations = append(claims.Organizations, org.ID)
	}
	if len(claims.Organizations) > 0 {
		claims.Organization = claims.Organizations[0]
	}
	signed, err := t.sign(claims)
	if err != nil {
		return "", time.Time{}, time.Time{}, err
	}
	return signed, now, end, nil
}

// IssueReset signs a password-reset token for userID and returns it with its id and expiry.
func (t *TokenIssuer) IssueReset(userID string) (string, string, time.Time, error) {
	now := t.now().UTC()
	exp := now.Add(t.resetTTL)
	jti := uuid.NewString()
	signed, err := t.sign(Claims{
		Purpose: purposeReset,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        jti,
		},
	})
	if err != nil {
		return "", "", time.Time{}, err
	}
	return signed, jti, exp, nil
}

// ParseSession verifies a session token.
func (t *TokenIssuer) ParseSession(token string) (*Claims, error) {
	return t.parse(token, purposeSession)
}

// ParseReset verifies a reset token.
func (t *TokenIssuer) ParseReset(token string) (*Claims, error) {
	return t.parse(token, purposeReset)
}

func (t *TokenIssuer) sign(claims Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (t *TokenIssuer) parse(token, purpose string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: token is empty", business.ErrInvalidToken)
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(5*time.Second),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", business.ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, business.ErrInvalidToken
	}
	if claims.Purpose != purpose {
		return nil, fmt.Errorf("%w: unexpected purpose %q", business.ErrInvalidToken, claims.Purpose)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: subject missing", business.ErrInvalidToken)
	}
	return claims, nil
}
