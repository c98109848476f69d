package auth

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestTokenService(t *testing.T, clock func() time.Time, accessTTL time.Duration) *TokenService {
	t.Helper()
	service, err := NewTokenService(TokenServiceConfig{
		SigningSecret: []byte("super-secret"),
		Algorithm:     "HS256",
		AccessTTL:     accessTTL,
		Clock:         clock,
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	return service
}

func TestTokenServiceRoundTripsAccessClaims(t *testing.T) {
	service := newTestTokenService(t, nil, 30*time.Minute)

	tokenString, err := service.IssueAccess(BaseClaims{UserID: 7, Email: "a@b.com", IsAdmin: true})
	if err != nil {
		t.Fatalf("expected successful issuance: %v", err)
	}

	claims, err := service.Decode(tokenString)
	if err != nil {
		t.Fatalf("expected decode success: %v", err)
	}
	if claims.UserID != 7 || claims.Email != "a@b.com" || !claims.IsAdmin {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.TokenType != TokenTypeAccess {
		t.Fatalf("unexpected token type %q", claims.TokenType)
	}
}

func TestTokenServiceEmbedsAbsoluteExpiry(t *testing.T) {
	issuedAt := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	service := newTestTokenService(t, func() time.Time { return issuedAt }, 30*time.Minute)

	pair, err := service.IssuePair(BaseClaims{UserID: 1, Email: "a@b.com"})
	if err != nil {
		t.Fatalf("unexpected issue error: %v", err)
	}

	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	access := &SessionClaims{}
	if _, err := parser.ParseWithClaims(pair.AccessToken, access, func(*jwt.Token) (interface{}, error) {
		return []byte("super-secret"), nil
	}); err != nil {
		t.Fatalf("failed to parse access token: %v", err)
	}
	if !access.ExpiresAt.Time.Equal(issuedAt.Add(30 * time.Minute)) {
		t.Fatalf("unexpected access expiry %s", access.ExpiresAt.Time)
	}

	refresh := &SessionClaims{}
	if _, err := parser.ParseWithClaims(pair.RefreshToken, refresh, func(*jwt.Token) (interface{}, error) {
		return []byte("super-secret"), nil
	}); err != nil {
		t.Fatalf("failed to parse refresh token: %v", err)
	}
	if refresh.TokenType != TokenTypeRefresh {
		t.Fatalf("unexpected refresh type %q", refresh.TokenType)
	}
	if !refresh.ExpiresAt.Time.Equal(issuedAt.Add(12 * time.Hour)) {
		t.Fatalf("unexpected refresh expiry %s", refresh.ExpiresAt.Time)
	}
}

func TestTokenServiceRejectsExpiredTokens(t *testing.T) {
	now := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	service := newTestTokenService(t, clock, 5*time.Minute)

	tokenString, err := service.IssueAccess(BaseClaims{UserID: 3})
	if err != nil {
		t.Fatalf("unexpected issue error: %v", err)
	}

	now = now.Add(5 * time.Minute)
	if _, err := service.Decode(tokenString); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected token to be expired at its expiry instant, got %v", err)
	}

	now = now.Add(time.Hour)
	if _, err := service.Decode(tokenString); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
	}
}

func TestTokenServiceCollapsesValidationFailures(t *testing.T) {
	service := newTestTokenService(t, nil, 30*time.Minute)
	other, err := NewTokenService(TokenServiceConfig{SigningSecret: []byte("different-secret")})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	foreign, err := other.IssueAccess(BaseClaims{UserID: 1})
	if err != nil {
		t.Fatalf("unexpected issue error: %v", err)
	}

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{
		UserID:    1,
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to build unsigned token: %v", err)
	}

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		UserID:    1,
		TokenType: TokenTypeAccess,
	}).SignedString([]byte("super-secret"))
	if err != nil {
		t.Fatalf("failed to build token without expiry: %v", err)
	}

	for name, candidate := range map[string]string{
		"malformed":      "invalid.token",
		"empty":          "",
		"wrong secret":   foreign,
		"none algorithm": noneToken,
		"missing expiry": noExpiry,
	} {
		if _, err := service.Decode(candidate); !errors.Is(err, ErrInvalidOrExpiredToken) {
			t.Fatalf("%s: expected ErrInvalidOrExpiredToken, got %v", name, err)
		}
	}
}

func TestRefreshTTLPolicy(t *testing.T) {
	testCases := []struct {
		access time.Duration
		want   time.Duration
	}{
		{access: time.Minute, want: 60 * time.Minute},
		{access: 2 * time.Minute, want: 60 * time.Minute},
		{access: 3 * time.Minute, want: 72 * time.Minute},
		{access: 30 * time.Minute, want: 12 * time.Hour},
		{access: 24 * time.Hour, want: 24 * 24 * time.Hour},
		{access: 10_000_000 * time.Minute, want: time.Duration(math.MaxInt64)},
		{access: time.Duration(math.MaxInt64), want: time.Duration(math.MaxInt64)},
	}
	for _, testCase := range testCases {
		got := RefreshTTL(testCase.access)
		if got != testCase.want {
			t.Fatalf("access %s: expected refresh %s, got %s", testCase.access, testCase.want, got)
		}
		if got < testCase.access || got < time.Hour {
			t.Fatalf("access %s: refresh %s is shorter than access or an hour", testCase.access, got)
		}
		if got != math.MaxInt64 && got < 24*testCase.access {
			t.Fatalf("access %s: refresh %s violates the lifetime floor", testCase.access, got)
		}
	}
}

func TestNewTokenServiceValidatesConfig(t *testing.T) {
	if _, err := NewTokenService(TokenServiceConfig{}); err == nil {
		t.Fatalf("expected constructor error for missing secret")
	}
	if _, err := NewTokenService(TokenServiceConfig{SigningSecret: []byte("secret"), Algorithm: "RS256"}); err == nil {
		t.Fatalf("expected constructor error for asymmetric algorithm")
	}
	service, err := NewTokenService(TokenServiceConfig{SigningSecret: []byte("secret"), Algorithm: "HS512"})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	if service.AccessTTL() != defaultAccessTokenTTL {
		t.Fatalf("expected default access ttl, got %s", service.AccessTTL())
	}
	if service.RefreshTTL() != 12*time.Hour {
		t.Fatalf("unexpected refresh ttl %s", service.RefreshTTL())
	}
}
