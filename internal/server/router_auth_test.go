package server

import (
	contextpkg "context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/users"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAuthorizeRequestLogsExpiredTokenAtInfoLevel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	request := httptest.NewRequest(http.MethodGet, "/api/auth/me", http.NoBody)
	request.Header.Set("Authorization", "Bearer expired-token")
	ctx.Request = request

	core, logs := observer.New(zapcore.DebugLevel)
	handler := &httpHandler{
		authenticator: stubSessionAuthenticator{
			resolveErr: fmt.Errorf("%w: %w", auth.ErrInvalidOrExpiredToken, jwt.ErrTokenExpired),
		},
		logger: zap.New(core),
	}

	handler.authorizeRequest(ctx)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status code: got %d, want %d", recorder.Code, http.StatusUnauthorized)
	}
	if recorder.Body.String() != `{"detail":"Could not validate credentials"}` {
		t.Fatalf("unexpected response body: %s", recorder.Body.String())
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected exactly one log entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != zapcore.InfoLevel {
		t.Fatalf("expected info level for expired token, got %s", entry.Level)
	}
	if entry.Message != "token validation failed" {
		t.Fatalf("unexpected log message: %q", entry.Message)
	}
	hasExpired := false
	for _, field := range entry.Context {
		if field.Type == zapcore.ErrorType && errors.Is(field.Interface.(error), jwt.ErrTokenExpired) {
			hasExpired = true
			break
		}
	}
	if !hasExpired {
		t.Fatalf("expected expired token error context, got %v", entry.Context)
	}
}

func TestAuthorizeRequestLogsUnexpectedTokenErrorAtWarnLevel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	request := httptest.NewRequest(http.MethodGet, "/api/auth/me", http.NoBody)
	request.Header.Set("Authorization", "Bearer invalid-token")
	ctx.Request = request

	core, logs := observer.New(zapcore.DebugLevel)
	handler := &httpHandler{
		authenticator: stubSessionAuthenticator{
			resolveErr: fmt.Errorf("%w: %w", auth.ErrInvalidOrExpiredToken, jwt.ErrSignatureInvalid),
		},
		logger: zap.New(core),
	}

	handler.authorizeRequest(ctx)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status code: got %d, want %d", recorder.Code, http.StatusUnauthorized)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected exactly one log entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != zapcore.WarnLevel {
		t.Fatalf("expected warn level for unexpected error, got %s", entry.Level)
	}
	if entry.Message != "token validation failed" {
		t.Fatalf("unexpected log message: %q", entry.Message)
	}
}

func TestAuthorizeRequestRejectsMalformedHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	headers := []string{"", "Bearer", "Bearer    ", "Basic dXNlcjpwYXNz", "token-without-scheme"}
	for _, header := range headers {
		recorder := httptest.NewRecorder()
		ctx, _ := gin.CreateTestContext(recorder)
		request := httptest.NewRequest(http.MethodGet, "/api/auth/me", http.NoBody)
		if header != "" {
			request.Header.Set("Authorization", header)
		}
		ctx.Request = request

		stub := &countingAuthenticator{}
		handler := &httpHandler{authenticator: stub, logger: zap.NewNop()}
		handler.authorizeRequest(ctx)

		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, recorder.Code)
		}
		if stub.resolveCalls != 0 {
			t.Fatalf("header %q: expected no token resolution", header)
		}
	}
}

func TestAuthorizeRequestAcceptsCaseInsensitiveScheme(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	request := httptest.NewRequest(http.MethodGet, "/api/auth/me", http.NoBody)
	request.Header.Set("Authorization", "bearer good-token")
	ctx.Request = request

	handler := &httpHandler{
		authenticator: stubSessionAuthenticator{user: &users.User{ID: 7, Email: "asha@example.com"}},
		logger:        zap.NewNop(),
	}
	handler.authorizeRequest(ctx)

	if ctx.IsAborted() {
		t.Fatalf("expected request to pass, got status %d", recorder.Code)
	}
	if user := currentUser(ctx); user == nil || user.ID != 7 {
		t.Fatalf("expected resolved user in context, got %+v", user)
	}
}

func TestRequireAdminRejectsRegularUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/api/admin/dashboard", http.NoBody)
	ctx.Set(currentUserContextKey, &users.User{ID: 3})

	handler := &httpHandler{logger: zap.NewNop()}
	handler.requireAdmin(ctx)

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", recorder.Code)
	}
	if recorder.Body.String() != `{"detail":"Admin access required"}` {
		t.Fatalf("unexpected response body: %s", recorder.Body.String())
	}
}

type stubSessionAuthenticator struct {
	user       *users.User
	resolveErr error
}

func (s stubSessionAuthenticator) Login(contextpkg.Context, string) (auth.LoginResult, error) {
	return auth.LoginResult{}, errors.New("not implemented")
}

func (s stubSessionAuthenticator) Refresh(contextpkg.Context, string) (auth.TokenPair, error) {
	return auth.TokenPair{}, errors.New("not implemented")
}

func (s stubSessionAuthenticator) ResolveIdentity(contextpkg.Context, string) (*users.User, error) {
	return s.user, s.resolveErr
}

type countingAuthenticator struct {
	stubSessionAuthenticator
	resolveCalls int
}

func (c *countingAuthenticator) ResolveIdentity(ctx contextpkg.Context, token string) (*users.User, error) {
	c.resolveCalls++
	return c.stubSessionAuthenticator.ResolveIdentity(ctx, token)
}
