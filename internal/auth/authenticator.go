package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/users"
	"go.uber.org/zap"
)

const unknownUserName = "Unknown User"

var (
	ErrMissingSubject      = errors.New("auth: google token missing subject")
	ErrMissingEmail        = errors.New("auth: google token missing email")
	ErrEmailConflict       = errors.New("auth: email belongs to another account")
	ErrInvalidRefreshToken = errors.New("auth: invalid refresh token")
	ErrMissingUserID       = errors.New("auth: token missing user id")
	ErrUserNotFound        = errors.New("auth: user not found")
	ErrForbiddenNotAdmin   = errors.New("auth: admin access required")

	errMissingVerifier     = errors.New("auth: google verifier dependency required")
	errMissingTokenService = errors.New("auth: token service dependency required")
	errMissingIdentities   = errors.New("auth: identity store dependency required")
)

// AssertionVerifier validates an externally issued identity assertion.
type AssertionVerifier interface {
	Verify(ctx context.Context, rawToken string) (GoogleClaims, error)
}

// IdentityStore is the subset of the users table the flow relies on.
type IdentityStore interface {
	GetByID(ctx context.Context, id uint) (*users.User, error)
	EnsureIdentity(ctx context.Context, identity users.NewIdentity) (*users.User, bool, error)
}

// LoginObserver is notified about login outcomes; metrics hook in here.
type LoginObserver interface {
	LoginSucceeded(created bool)
	LoginFailed(reason string)
}

// AuthenticatorConfig wires the collaborators of the authentication flow.
type AuthenticatorConfig struct {
	Verifier   AssertionVerifier
	Tokens     *TokenService
	Identities IdentityStore
	Observer   LoginObserver
	Logger     *zap.Logger
}

// Authenticator turns Google assertions into sessions and sessions into users.
type Authenticator struct {
	verifier   AssertionVerifier
	tokens     *TokenService
	identities IdentityStore
	observer   LoginObserver
	logger     *zap.Logger
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	User   *users.User
	Tokens TokenPair
}

// NewAuthenticator validates dependencies and constructs the flow.
func NewAuthenticator(cfg AuthenticatorConfig) (*Authenticator, error) {
	if cfg.Verifier == nil {
		return nil, errMissingVerifier
	}
	if cfg.Tokens == nil {
		return nil, errMissingTokenService
	}
	if cfg.Identities == nil {
		return nil, errMissingIdentities
	}
	observer := cfg.Observer
	if observer == nil {
		observer = noopLoginObserver{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{
		verifier:   cfg.Verifier,
		tokens:     cfg.Tokens,
		identities: cfg.Identities,
		observer:   observer,
		logger:     logger,
	}, nil
}

// Login verifies the Google ID token, provisions the user on first sight and
// issues a fresh token pair.
func (a *Authenticator) Login(ctx context.Context, assertion string) (LoginResult, error) {
	claims, err := a.verifier.Verify(ctx, assertion)
	if err != nil {
		a.observer.LoginFailed(loginFailureReason(err))
		return LoginResult{}, err
	}
	if claims.Subject == "" {
		a.observer.LoginFailed("missing_subject")
		return LoginResult{}, ErrMissingSubject
	}

	user, created, err := a.identities.EnsureIdentity(ctx, users.NewIdentity{
		GoogleID: claims.Subject,
		Email:    claims.Email,
		Name:     claims.DisplayName(),
	})
	switch {
	case errors.Is(err, users.ErrEmailRequired):
		a.observer.LoginFailed("missing_email")
		return LoginResult{}, ErrMissingEmail
	case errors.Is(err, users.ErrEmailTaken):
		a.observer.LoginFailed("email_conflict")
		return LoginResult{}, ErrEmailConflict
	case err != nil:
		a.observer.LoginFailed("provisioning")
		return LoginResult{}, fmt.Errorf("auth: provision identity: %w", err)
	}
	if created {
		a.logger.Info("user provisioned", zap.Uint("user_id", user.ID))
	}

	pair, err := a.tokens.IssuePair(baseClaimsFor(user))
	if err != nil {
		a.observer.LoginFailed("token_issue")
		return LoginResult{}, err
	}
	a.observer.LoginSucceeded(created)
	return LoginResult{User: user, Tokens: pair}, nil
}

// Refresh exchanges a refresh token for a new pair built from the current
// state of the user row, so admin changes since login are picked up.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := a.tokens.Decode(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return TokenPair{}, ErrInvalidRefreshToken
	}
	user, err := a.lookup(ctx, claims.UserID)
	if err != nil {
		return TokenPair{}, err
	}
	return a.tokens.IssuePair(baseClaimsFor(user))
}

// ResolveIdentity decodes an access token and loads the user it names.
// Refresh tokens are rejected here.
func (a *Authenticator) ResolveIdentity(ctx context.Context, accessToken string) (*users.User, error) {
	claims, err := a.tokens.Decode(accessToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, fmt.Errorf("%w: token type %q", ErrInvalidOrExpiredToken, claims.TokenType)
	}
	if claims.UserID == 0 {
		return nil, ErrMissingUserID
	}
	return a.lookup(ctx, claims.UserID)
}

func (a *Authenticator) lookup(ctx context.Context, userID uint) (*users.User, error) {
	user, err := a.identities.GetByID(ctx, userID)
	if errors.Is(err, users.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// RequireAdmin passes the user through when it carries the admin flag.
func RequireAdmin(user *users.User) (*users.User, error) {
	if user == nil || !user.IsAdmin {
		return nil, ErrForbiddenNotAdmin
	}
	return user, nil
}

// IsAuthenticationFailure reports errors that mean "the session is not valid".
func IsAuthenticationFailure(err error) bool {
	return errors.Is(err, ErrInvalidOrExpiredToken) ||
		errors.Is(err, ErrInvalidRefreshToken) ||
		errors.Is(err, ErrMissingUserID) ||
		errors.Is(err, ErrUserNotFound)
}

func baseClaimsFor(user *users.User) BaseClaims {
	return BaseClaims{UserID: user.ID, Email: user.Email, IsAdmin: user.IsAdmin}
}

func loginFailureReason(err error) string {
	switch {
	case errors.Is(err, ErrAudienceMismatch):
		return "audience_mismatch"
	case errors.Is(err, ErrInvalidAssertion):
		return "invalid_assertion"
	default:
		return "verification_error"
	}
}

type noopLoginObserver struct{}

func (noopLoginObserver) LoginSucceeded(bool) {}

func (noopLoginObserver) LoginFailed(string) {}
