// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud implements the client for the hosted generative API.
//
// It covers streaming text generation, image generation, and the error
// mapping that turns provider failures into the fixed set of system
// messages the chat log displays.
//
// CLOUD: Secure logging, retry logic, and validation
package cloud

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"

	"github.com/jeranaias/retroterm/internal/util"
)

// Configuration constants for the generative API.
const (
	// DefaultBaseURL is the base URL for the hosted generative API.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	// apiVersion is the path segment for the API version in use.
	apiVersion = "v1beta"

	// DefaultTimeout is the default timeout for non-streaming requests.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for
	// transient errors.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 32 * 1024 * 1024 // image payloads are large
)

var (
	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	// Shared HTTP client for all non-streaming requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient is used for streaming requests.
	// No timeout; the lifetime is controlled via context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// Error variables for common API failures.
var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("API key not configured")

	// ErrAuthFailed indicates authentication failed (invalid or expired key).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrModelNotFound indicates the requested model does not exist.
	ErrModelNotFound = errors.New("model not found")

	// ErrContentBlocked indicates the prompt or reply violated content policy.
	ErrContentBlocked = errors.New("content blocked")

	// ErrInsufficientCredits indicates the account has exhausted its quota.
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// APIError represents an error response from the generative API.
type APIError struct {
	Code    string
	Message string
	Status  int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("API error (HTTP %d): %s", e.Status, e.Message)
}

// apiErrorResponse is the provider's error envelope.
type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Turn is one conversation turn in API wire format.
type Turn struct {
	Role string `json:"role"` // "user" or "model"
	Text string `json:"-"`
}

// MarshalJSON renders a Turn as a contents entry with a single text part.
func (t Turn) MarshalJSON() ([]byte, error) {
	type part struct {
		Text string `json:"text"`
	}
	type wire struct {
		Role  string `json:"role"`
		Parts []part `json:"parts"`
	}
	return json.Marshal(wire{Role: t.Role, Parts: []part{{Text: t.Text}}})
}

// NewUserTurn creates a user turn with NFC-normalized text.
// UNICODE: Composed and decomposed input must compare and tokenize equally.
func NewUserTurn(text string) Turn {
	return Turn{Role: "user", Text: norm.NFC.String(text)}
}

// NewModelTurn creates a model turn.
func NewModelTurn(text string) Turn {
	return Turn{Role: "model", Text: text}
}

// GenerateOptions carries per-request tuning.
type GenerateOptions struct {
	// ThinkingBudget limits the model's internal reasoning tokens.
	// Zero means provider default; only sent when ThinkingEnabled.
	ThinkingEnabled bool
	ThinkingBudget  int
}

type thinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget,omitempty"`
}

type generationConfig struct {
	ThinkingConfig *thinkingConfig `json:"thinkingConfig,omitempty"`
}

type generateRequest struct {
	Contents         []Turn            `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

// Usage carries the token counts reported in a response's usage metadata.
type Usage struct {
	PromptTokens     int `json:"promptTokenCount"`
	CandidatesTokens int `json:"candidatesTokenCount"`
	TotalTokens      int `json:"totalTokenCount"`
}

// Citation is one grounding source attached to a reply.
type Citation struct {
	Title string
	URI   string
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is a client for the hosted generative API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	maxRetries int

	// limiter throttles outbound calls client-side so a fast typist
	// cannot trip the provider's rate limits.
	limiter *rate.Limiter
}

// NewClient creates a new client with the given API key.
//
// An empty key is allowed; requests fail with ErrNotConfigured until a key
// is set. The key is trimmed but otherwise stored as given.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    DefaultBaseURL,
		maxRetries: DefaultMaxRetries,
		limiter:    rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
	}
}

// WithBaseURL sets a custom base URL for the API.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// WithMaxRetries sets the maximum number of retry attempts.
func (c *Client) WithMaxRetries(maxRetries int) *Client {
	c.maxRetries = maxRetries
	return c
}

// SetModel sets the canonical model id used for text generation.
func (c *Client) SetModel(id string) {
	c.model = id
}

// Model returns the current model id.
func (c *Client) Model() string {
	return c.model
}

// SetAPIKey replaces the API key at runtime (after /apikey or login).
func (c *Client) SetAPIKey(key string) {
	c.apiKey = strings.TrimSpace(key)
}

// IsConfigured returns true if the client has an API key.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// APIKeyMasked returns a display-safe description of the API key.
// SECURITY: Never exposes key fragments; uses a fingerprint instead.
func (c *Client) APIKeyMasked() string {
	if c.apiKey == "" {
		return "[not set]"
	}
	return fmt.Sprintf("[REDACTED, length=%d, fingerprint=%s]", len(c.apiKey), c.KeyFingerprint())
}

// KeyFingerprint returns a short SHA-256 fingerprint of the API key.
// CLOUD: Secure logging, never log key fragments.
func (c *Client) KeyFingerprint() string {
	if c.apiKey == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(c.apiKey))
	return hex.EncodeToString(h[:4])
}

// ValidateAPIKey checks whether a key has a plausible shape.
// This does not verify the key with the provider.
// SECURITY: Entropy check catches obvious placeholder keys.
func ValidateAPIKey(apiKey string) bool {
	apiKey = strings.TrimSpace(apiKey)
	if len(apiKey) < 20 {
		return false
	}
	uniqueChars := make(map[rune]bool)
	for _, char := range apiKey {
		uniqueChars[char] = true
	}
	return len(uniqueChars) >= 10
}

// =============================================================================
// HTTP PLUMBING
// =============================================================================

// endpoint builds the URL for a model operation like "streamGenerateContent".
func (c *Client) endpoint(model, op string) string {
	return fmt.Sprintf("%s/%s/models/%s:%s", c.baseURL, apiVersion, model, op)
}

// setHeaders sets the required headers for API requests.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "retroterm/1.0")
}

// wait blocks on the client-side rate limiter.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// readResponse reads the response body with a size cap.
// SECURITY: Response size limit prevents memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse converts HTTP error responses to sentinel errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		msg := apiErr.Error.Message
		switch statusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			// The provider reports bad keys as 400 INVALID_ARGUMENT
			// with an API_KEY message, not only as 401.
			if strings.Contains(msg, "API key") || statusCode != http.StatusBadRequest {
				return fmt.Errorf("%w: %s", ErrAuthFailed, msg)
			}
			if strings.Contains(strings.ToUpper(apiErr.Error.Status), "SAFETY") {
				return fmt.Errorf("%w: %s", ErrContentBlocked, msg)
			}
			return &APIError{Code: apiErr.Error.Status, Message: msg, Status: statusCode}
		case http.StatusPaymentRequired:
			return fmt.Errorf("%w: %s", ErrInsufficientCredits, msg)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrModelNotFound, msg)
		case http.StatusTooManyRequests:
			if strings.Contains(strings.ToLower(msg), "quota") {
				return fmt.Errorf("%w: %s", ErrInsufficientCredits, msg)
			}
			return fmt.Errorf("%w: %s", ErrRateLimited, msg)
		default:
			return &APIError{Code: apiErr.Error.Status, Message: msg, Status: statusCode}
		}
	}

	// Fallback for unparseable error responses.
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuthFailed
	case http.StatusPaymentRequired:
		return ErrInsufficientCredits
	case http.StatusNotFound:
		return ErrModelNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return &APIError{Message: string(body), Status: statusCode}
	}
}

// isRetryable determines if an error should trigger a retry.
func (c *Client) isRetryable(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 && apiErr.Status < 600
	}
	return false
}

// calculateBackoff returns the delay before the next retry attempt.
// RELIABILITY: up to 25% jitter keeps concurrent clients from retrying
// in lockstep against a struggling backend.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay + rand.N(delay/4)
}

// logRequest logs an API request without exposing sensitive data.
// CLOUD: Secure logging, no headers and no body.
func (c *Client) logRequest(req *http.Request) {
	util.Logger().Debug("api request",
		"method", req.Method,
		"path", req.URL.Path,
		"key", c.KeyFingerprint())
}

// logResponse logs an API response status and duration.
func (c *Client) logResponse(resp *http.Response, duration time.Duration) {
	util.Logger().Debug("api response",
		"status", resp.StatusCode,
		"duration", duration)
}
