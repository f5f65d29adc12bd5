// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/jeranaias/retroterm/internal/config"
	"github.com/jeranaias/retroterm/internal/util"
)

// Gateway request limits.
const (
	// DefaultTimeout bounds every auth request.
	DefaultTimeout = 30 * time.Second

	// maxResponseSize caps auth response bodies.
	// SECURITY: Response size limit prevents memory exhaustion.
	maxResponseSize = 1024 * 1024

	// MinPasswordLength is enforced client-side before the request.
	MinPasswordLength = 8
)

// Gateway errors. Provider error codes map onto these sentinels so callers
// can branch with errors.Is.
var (
	// ErrInvalidCredentials indicates a wrong email or password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUserExists indicates the email is already registered.
	ErrUserExists = errors.New("account already exists")

	// ErrWeakPassword indicates the password failed the provider's policy.
	ErrWeakPassword = errors.New("password too weak")

	// ErrTOTPRequired indicates the account needs a one-time code to log in.
	ErrTOTPRequired = errors.New("one-time code required")

	// ErrTOTPInvalid indicates the supplied one-time code was rejected.
	ErrTOTPInvalid = errors.New("invalid one-time code")

	// ErrNotAuthenticated indicates no valid session is held.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrSessionExpired indicates the session token is no longer accepted.
	ErrSessionExpired = errors.New("session expired")
)

// GatewayError is a non-sentinel error response from the auth service.
type GatewayError struct {
	Code    string
	Message string
	Status  int
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	return fmt.Sprintf("auth error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// =============================================================================
// WIRE TYPES
// =============================================================================

type credentialsRequest struct {
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	Password string `json:"password"`
	TOTPCode string `json:"totpCode,omitempty"`
}

type sessionResponse struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type gatewayErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type settingsRecord struct {
	Settings config.Settings `json:"settings"`
	Exists   bool            `json:"exists"`
}

// =============================================================================
// GATEWAY
// =============================================================================

// Gateway is the client for the account service. It holds at most one
// session, mirrors it to the encrypted cache, and doubles as the remote
// half of the settings store.
type Gateway struct {
	baseURL    string
	httpClient *http.Client
	cache      *SessionCache

	mu      sync.RWMutex
	session *Session
}

// NewGateway creates a gateway against baseURL, restoring any cached
// session from dir.
func NewGateway(baseURL, dir string) *Gateway {
	g := &Gateway{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		cache:      NewSessionCache(dir),
	}

	if session, err := g.cache.Load(); err == nil {
		g.session = session
		util.Logger().Debug("restored cached session", "user", session.Username)
	}

	return g
}

// Authenticated reports whether a valid session is held.
func (g *Gateway) Authenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.session.Valid()
}

// Session returns a copy of the current session, or nil.
func (g *Gateway) Session() *Session {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.session.Valid() {
		return nil
	}
	copied := *g.session
	return &copied
}

// Register creates an account and establishes a session.
func (g *Gateway) Register(ctx context.Context, email, username, password string) (*Session, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if username == "" {
		return nil, errors.New("username required")
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: minimum %d characters", ErrWeakPassword, MinPasswordLength)
	}

	return g.establish(ctx, "/v1/register", credentialsRequest{
		Email:    email,
		Username: username,
		Password: password,
	})
}

// Login authenticates and establishes a session. totpCode may be empty;
// accounts with a second factor enabled get ErrTOTPRequired back and the
// caller retries with a code.
func (g *Gateway) Login(ctx context.Context, email, password, totpCode string) (*Session, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, ErrInvalidCredentials
	}

	return g.establish(ctx, "/v1/login", credentialsRequest{
		Email:    email,
		Password: password,
		TOTPCode: totpCode,
	})
}

// establish posts credentials and installs the returned session.
func (g *Gateway) establish(ctx context.Context, path string, req credentialsRequest) (*Session, error) {
	var wire sessionResponse
	if err := g.post(ctx, path, req, &wire, ""); err != nil {
		return nil, err
	}

	session := &Session{
		UserID:    wire.UserID,
		Email:     wire.Email,
		Username:  wire.Username,
		Token:     wire.Token,
		CreatedAt: time.Now(),
		ExpiresAt: wire.ExpiresAt,
	}
	if !session.Valid() {
		return nil, fmt.Errorf("service returned unusable session (expires %v)", wire.ExpiresAt)
	}

	g.mu.Lock()
	g.session = session
	g.mu.Unlock()

	if err := g.cache.Save(session); err != nil {
		// Cache failure degrades to per-run sessions, not a login failure.
		util.Logger().Warn("session cache write failed", "error", err)
	}

	copied := *session
	return &copied, nil
}

// Logout invalidates the session server-side and locally. Local state is
// torn down even when the remote call fails.
func (g *Gateway) Logout(ctx context.Context) error {
	g.mu.Lock()
	session := g.session
	g.session = nil
	g.mu.Unlock()

	if cerr := g.cache.Clear(); cerr != nil {
		util.Logger().Warn("session cache clear failed", "error", cerr)
	}

	if !session.Valid() {
		return nil
	}

	if err := g.post(ctx, "/v1/logout", struct{}{}, nil, session.Token); err != nil {
		util.Logger().Warn("remote logout failed", "error", err)
		return err
	}
	return nil
}

// =============================================================================
// REMOTE SETTINGS (config.RemoteSettings)
// =============================================================================

// FetchSettings retrieves the account settings record. The bool reports
// whether a record exists yet for this user.
func (g *Gateway) FetchSettings(ctx context.Context) (config.Settings, bool, error) {
	session := g.Session()
	if session == nil {
		return config.Settings{}, false, ErrNotAuthenticated
	}

	var record settingsRecord
	if err := g.get(ctx, "/v1/settings", &record, session.Token); err != nil {
		return config.Settings{}, false, err
	}
	return record.Settings, record.Exists, nil
}

// SaveSettings writes the account settings record, last write wins.
func (g *Gateway) SaveSettings(ctx context.Context, s config.Settings) error {
	session := g.Session()
	if session == nil {
		return ErrNotAuthenticated
	}
	return g.put(ctx, "/v1/settings", settingsRecord{Settings: s, Exists: true}, session.Token)
}

// =============================================================================
// TOTP SECOND FACTOR
// =============================================================================

// GenerateTOTPCode computes the current one-time code from an enrolled
// secret, for accounts that stored their secret locally at enrollment.
func GenerateTOTPCode(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("empty TOTP secret")
	}
	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		return "", fmt.Errorf("generating one-time code: %w", err)
	}
	return code, nil
}

// ValidateTOTPCode checks a code against a secret. Used in tests and by
// the enrollment flow to confirm the user saved the secret correctly.
func ValidateTOTPCode(code, secret string) bool {
	return totp.Validate(code, secret)
}

// =============================================================================
// HTTP PLUMBING
// =============================================================================

func (g *Gateway) post(ctx context.Context, path string, body, out any, token string) error {
	return g.do(ctx, http.MethodPost, path, body, out, token)
}

func (g *Gateway) put(ctx context.Context, path string, body any, token string) error {
	return g.do(ctx, http.MethodPut, path, body, nil, token)
}

func (g *Gateway) get(ctx context.Context, path string, out any, token string) error {
	return g.do(ctx, http.MethodGet, path, nil, out, token)
}

func (g *Gateway) do(ctx context.Context, method, path string, body, out any, token string) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "retroterm/1.0")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	util.Logger().Debug("auth request", "method", method, "path", path)
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return g.mapError(resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}
	return nil
}

// mapError converts service error responses to sentinels.
func (g *Gateway) mapError(status int, body []byte) error {
	var wire gatewayErrorResponse
	if err := json.Unmarshal(body, &wire); err == nil && wire.Error.Code != "" {
		switch wire.Error.Code {
		case "invalid_credentials":
			return ErrInvalidCredentials
		case "user_exists", "email_taken":
			return ErrUserExists
		case "weak_password":
			return fmt.Errorf("%w: %s", ErrWeakPassword, wire.Error.Message)
		case "totp_required":
			return ErrTOTPRequired
		case "totp_invalid":
			return ErrTOTPInvalid
		case "session_expired", "token_expired":
			g.expireLocal()
			return ErrSessionExpired
		default:
			return &GatewayError{Code: wire.Error.Code, Message: wire.Error.Message, Status: status}
		}
	}

	switch status {
	case http.StatusUnauthorized:
		if g.Authenticated() {
			g.expireLocal()
			return ErrSessionExpired
		}
		return ErrInvalidCredentials
	case http.StatusConflict:
		return ErrUserExists
	default:
		return &GatewayError{Message: strings.TrimSpace(string(body)), Status: status}
	}
}

// expireLocal drops the held session after the service rejected its token.
func (g *Gateway) expireLocal() {
	g.mu.Lock()
	g.session = nil
	g.mu.Unlock()
	if err := g.cache.Clear(); err != nil {
		util.Logger().Warn("session cache clear failed", "error", err)
	}
}

// validateEmail rejects obviously malformed addresses before the request.
func validateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email address: %w", err)
	}
	return nil
}
