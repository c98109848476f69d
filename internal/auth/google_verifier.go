package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultTokenInfoURL     = "https://oauth2.googleapis.com/tokeninfo"
	defaultTokenInfoTimeout = 10 * time.Second
	maxTokenInfoBodyBytes   = 1 << 20
)

var (
	// ErrInvalidAssertion reports that Google refused or could not verify the ID token.
	ErrInvalidAssertion = errors.New("auth: invalid google token")
	// ErrAudienceMismatch reports an ID token minted for another OAuth client.
	ErrAudienceMismatch      = errors.New("auth: token audience mismatch")
	ErrInvalidVerifierConfig = errors.New("auth: invalid google verifier config")

	errMissingAudienceConfig = errors.New("audience configuration required")
)

// GoogleVerifierConfig bundles configuration required to instantiate a GoogleVerifier.
type GoogleVerifierConfig struct {
	Audience     string
	TokenInfoURL string
	HTTPClient   *http.Client
	Timeout      time.Duration
	Logger       *zap.Logger
}

// GoogleClaims exposes the claim set returned by the tokeninfo endpoint.
type GoogleClaims struct {
	Subject       string
	Audience      string
	Email         string
	EmailVerified bool
	Name          string
	GivenName     string
	Picture       string
}

// DisplayName picks the best available human readable name.
func (c GoogleClaims) DisplayName() string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	if given := strings.TrimSpace(c.GivenName); given != "" {
		return given
	}
	return unknownUserName
}

// GoogleVerifier delegates ID token verification to Google's tokeninfo endpoint.
type GoogleVerifier struct {
	audience     string
	tokenInfoURL string
	httpClient   *http.Client
	timeout      time.Duration
	logger       *zap.Logger
}

// NewGoogleVerifier constructs a verifier with validated configuration.
func NewGoogleVerifier(cfg GoogleVerifierConfig) (*GoogleVerifier, error) {
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVerifierConfig, errMissingAudienceConfig)
	}

	tokenInfoURL := strings.TrimSpace(cfg.TokenInfoURL)
	if tokenInfoURL == "" {
		tokenInfoURL = defaultTokenInfoURL
	}
	if _, err := url.Parse(tokenInfoURL); err != nil {
		return nil, fmt.Errorf("%w: tokeninfo url: %v", ErrInvalidVerifierConfig, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTokenInfoTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &GoogleVerifier{
		audience:     audience,
		tokenInfoURL: tokenInfoURL,
		httpClient:   httpClient,
		timeout:      timeout,
		logger:       logger,
	}, nil
}

type tokenInfoResponse struct {
	Subject       string `json:"sub"`
	Audience      string `json:"aud"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	Picture       string `json:"picture"`
}

// Verify asks Google to validate the ID token and checks the audience.
func (v *GoogleVerifier) Verify(ctx context.Context, rawToken string) (GoogleClaims, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return GoogleClaims{}, fmt.Errorf("%w: id token must not be empty", ErrInvalidAssertion)
	}

	requestCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	endpoint, err := url.Parse(v.tokenInfoURL)
	if err != nil {
		return GoogleClaims{}, err
	}
	query := endpoint.Query()
	query.Set("id_token", rawToken)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return GoogleClaims{}, err
	}

	response, err := v.httpClient.Do(req)
	if err != nil {
		return GoogleClaims{}, fmt.Errorf("%w: %v", ErrInvalidAssertion, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, maxTokenInfoBodyBytes))
		v.logger.Debug("tokeninfo rejected token", zap.Int("status", response.StatusCode))
		return GoogleClaims{}, fmt.Errorf("%w: tokeninfo returned status %d", ErrInvalidAssertion, response.StatusCode)
	}

	var payload tokenInfoResponse
	if err := json.NewDecoder(io.LimitReader(response.Body, maxTokenInfoBodyBytes)).Decode(&payload); err != nil {
		return GoogleClaims{}, fmt.Errorf("%w: decode tokeninfo: %v", ErrInvalidAssertion, err)
	}

	if payload.Audience != v.audience {
		return GoogleClaims{}, ErrAudienceMismatch
	}

	return GoogleClaims{
		Subject:       strings.TrimSpace(payload.Subject),
		Audience:      payload.Audience,
		Email:         strings.TrimSpace(payload.Email),
		EmailVerified: strings.EqualFold(payload.EmailVerified, "true"),
		Name:          payload.Name,
		GivenName:     payload.GivenName,
		Picture:       payload.Picture,
	}, nil
}
