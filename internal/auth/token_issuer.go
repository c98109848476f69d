package auth

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultAccessTokenTTL = 30 * time.Minute
	refreshTTLMultiplier  = 24
	minimumRefreshTTL     = 60 * time.Minute
)

// Token type tags embedded in every session token.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	// ErrInvalidOrExpiredToken covers every decode failure: bad signature,
	// malformed input, wrong algorithm or expiry in the past.
	ErrInvalidOrExpiredToken = errors.New("auth: invalid or expired token")

	errMissingSigningSecret = errors.New("signing secret must be provided")
	errUnsupportedAlgorithm = errors.New("signing algorithm must be HS256, HS384 or HS512")
)

// SessionClaims is the payload of access and refresh tokens.
type SessionClaims struct {
	UserID    uint   `json:"user_id"`
	Email     string `json:"email"`
	IsAdmin   bool   `json:"is_admin"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// BaseClaims is the identity snapshot copied into both tokens of a pair.
type BaseClaims struct {
	UserID  uint
	Email   string
	IsAdmin bool
}

// TokenPair is what login and refresh hand back to clients.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenServiceConfig configures the backend JWT service.
type TokenServiceConfig struct {
	SigningSecret []byte
	Algorithm     string
	AccessTTL     time.Duration
	Clock         func() time.Time
}

// TokenService issues and decodes HMAC signed session tokens.
type TokenService struct {
	signingSecret []byte
	method        *jwt.SigningMethodHMAC
	accessTTL     time.Duration
	refreshTTL    time.Duration
	clock         func() time.Time
}

// NewTokenService constructs a TokenService with sane defaults.
func NewTokenService(cfg TokenServiceConfig) (*TokenService, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, errMissingSigningSecret
	}
	algorithm := cfg.Algorithm
	if algorithm == "" {
		algorithm = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnsupportedAlgorithm, algorithm)
	}
	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTokenTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TokenService{
		signingSecret: append([]byte(nil), cfg.SigningSecret...),
		method:        method,
		accessTTL:     accessTTL,
		refreshTTL:    RefreshTTL(accessTTL),
		clock:         clock,
	}, nil
}

// RefreshTTL derives the refresh lifetime from the access lifetime: a day's
// worth of access windows, never less than an hour. Lifetimes too large to
// multiply saturate at the longest representable duration.
func RefreshTTL(accessTTL time.Duration) time.Duration {
	if accessTTL > math.MaxInt64/refreshTTLMultiplier {
		return math.MaxInt64
	}
	ttl := accessTTL * refreshTTLMultiplier
	if ttl < minimumRefreshTTL {
		return minimumRefreshTTL
	}
	return ttl
}

// AccessTTL reports the configured access token lifetime.
func (s *TokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

// RefreshTTL reports the derived refresh token lifetime.
func (s *TokenService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// IssueAccess signs an access token for the identity.
func (s *TokenService) IssueAccess(claims BaseClaims) (string, error) {
	return s.issue(claims, TokenTypeAccess, s.accessTTL)
}

// IssueRefresh signs a refresh token for the identity.
func (s *TokenService) IssueRefresh(claims BaseClaims) (string, error) {
	return s.issue(claims, TokenTypeRefresh, s.refreshTTL)
}

// IssuePair signs an access and a refresh token from the same claims.
func (s *TokenService) IssuePair(claims BaseClaims) (TokenPair, error) {
	access, err := s.IssueAccess(claims)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.IssueRefresh(claims)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *TokenService) issue(claims BaseClaims, tokenType string, ttl time.Duration) (string, error) {
	now := s.clock().UTC()
	payload := SessionClaims{
		UserID:    claims.UserID,
		Email:     claims.Email,
		IsAdmin:   claims.IsAdmin,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(s.method, payload).SignedString(s.signingSecret)
}

// Decode verifies signature and expiry and returns the embedded claims.
// The underlying cause is kept in the chain for logging only.
func (s *TokenService) Decode(tokenString string) (SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			return s.signingSecret, nil
		},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock),
	)
	if err != nil {
		return SessionClaims{}, fmt.Errorf("%w: %w", ErrInvalidOrExpiredToken, err)
	}
	if parsed == nil || !parsed.Valid {
		return SessionClaims{}, ErrInvalidOrExpiredToken
	}
	return *claims, nil
}
