package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// CloudPlatformScope is the OAuth scope requested for recognition calls.
	CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"
	// DefaultTokenURI is used when the key does not name one.
	DefaultTokenURI = "https://oauth2.googleapis.com/token"

	jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	assertionTTL   = time.Hour
	expiryLeeway   = time.Minute
)

var (
	ErrNoCredentials      = errors.New("no credentials configured")
	ErrInvalidCredentials = errors.New("invalid service account key")
)

var validate = validator.New()

// ServiceAccount is the subset of a Google service-account key used to mint tokens.
type ServiceAccount struct {
	Type         string `json:"type" validate:"omitempty,eq=service_account"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key" validate:"required"`
	ClientEmail  string `json:"client_email" validate:"required,email"`
	TokenURI     string `json:"token_uri" validate:"omitempty,url"`
}

// ParseServiceAccount decodes and validates a service-account key.
func ParseServiceAccount(data []byte) (*ServiceAccount, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, ErrNoCredentials
	}
	var sa ServiceAccount
	if err := json.Unmarshal(data, &sa); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	if err := validate.Struct(&sa); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, formatValidationError(err))
	}
	if sa.TokenURI == "" {
		sa.TokenURI = DefaultTokenURI
	}
	return &sa, nil
}

func formatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		msgs = append(msgs, formatFieldError(e))
	}
	return strings.Join(msgs, "; ")
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "eq":
		return fmt.Sprintf("%s must be %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// assertionClaims are the claims of a JWT-bearer grant assertion.
type assertionClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

type cachedToken struct {
	value  string
	expiry time.Time
}

// tokenSource exchanges signed assertions for access tokens and caches them
// per service account.
type tokenSource struct {
	http  *http.Client
	scope string
	now   func() time.Time

	mu    sync.Mutex
	cache map[string]cachedToken
}

func newTokenSource(client *http.Client, scope string) *tokenSource {
	return &tokenSource{
		http:  client,
		scope: scope,
		now:   time.Now,
		cache: make(map[string]cachedToken),
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// Token returns a valid access token for sa, minting one when needed.
func (ts *tokenSource) Token(ctx context.Context, sa *ServiceAccount) (string, error) {
	key := sa.ClientEmail + "/" + sa.PrivateKeyID
	now := ts.now()

	ts.mu.Lock()
	if tok, ok := ts.cache[key]; ok && now.Before(tok.expiry.Add(-expiryLeeway)) {
		ts.mu.Unlock()
		return tok.value, nil
	}
	ts.mu.Unlock()

	assertion, err := ts.sign(sa, now)
	if err != nil {
		return "", err
	}
	tok, err := ts.exchange(ctx, sa.TokenURI, assertion, now)
	if err != nil {
		return "", err
	}

	ts.mu.Lock()
	ts.cache[key] = tok
	ts.mu.Unlock()
	return tok.value, nil
}

func (ts *tokenSource) sign(sa *ServiceAccount, now time.Time) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(sa.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("%w: failed to parse private key: %v", ErrInvalidCredentials, err)
	}

	claims := assertionClaims{
		Scope: ts.scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sa.ClientEmail,
			Audience:  jwt.ClaimStrings{sa.TokenURI},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(assertionTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if sa.PrivateKeyID != "" {
		token.Header["kid"] = sa.PrivateKeyID
	}
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign assertion: %w", err)
	}
	return signed, nil
}

func (ts *tokenSource) exchange(ctx context.Context, tokenURI, assertion string, now time.Time) (cachedToken, error) {
	form := url.Values{
		"grant_type": {jwtBearerGrant},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return cachedToken{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.http.Do(req)
	if err != nil {
		return cachedToken{}, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return cachedToken{}, fmt.Errorf("token endpoint http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return cachedToken{}, fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return cachedToken{}, fmt.Errorf("token endpoint returned no access token")
	}
	return cachedToken{
		value:  tr.AccessToken,
		expiry: now.Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}
