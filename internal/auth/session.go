// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"github.com/jeranaias/retroterm/internal/util"
)

// =============================================================================
// SESSION TYPE
// =============================================================================

// Session is an authenticated account session. Created on login or
// register, invalidated on logout or expiry, never mutated in place.
type Session struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Valid reports whether the session carries a token that has not expired.
func (s *Session) Valid() bool {
	if s == nil || s.Token == "" {
		return false
	}
	return time.Now().Before(s.ExpiresAt)
}

// Remaining returns the time until expiry, never negative.
func (s *Session) Remaining() time.Duration {
	if s == nil {
		return 0
	}
	d := time.Until(s.ExpiresAt)
	if d < 0 {
		return 0
	}
	return d
}

// =============================================================================
// ENCRYPTED SESSION CACHE
// =============================================================================

// Cache key derivation and cipher parameters.
const (
	// NonceSize is the AES-GCM nonce size in bytes.
	NonceSize = 12

	// KeySize is the AES-256 key size in bytes.
	KeySize = 32

	// SaltSize is the PBKDF2 salt size in bytes.
	SaltSize = 32

	// PBKDF2Iterations is the key derivation work factor.
	PBKDF2Iterations = 600000

	sessionFileName = "session.enc"
	secretFileName  = "session.key"
)

// Cache errors.
var (
	// ErrNoCachedSession indicates no session file exists.
	ErrNoCachedSession = errors.New("no cached session")

	// ErrCacheCorrupt indicates the session file failed to decrypt.
	// A corrupt or tampered cache is treated as absent, forcing re-login.
	ErrCacheCorrupt = errors.New("session cache corrupt")
)

// SessionCache persists the account session across runs, encrypted with
// AES-256-GCM under a key derived from a machine-local random secret.
// SECURITY: The token never touches disk in plaintext.
type SessionCache struct {
	dir string
}

// NewSessionCache creates a cache rooted at dir (usually ~/.retroterm).
func NewSessionCache(dir string) *SessionCache {
	return &SessionCache{dir: dir}
}

// Save encrypts and writes the session. File format: salt || nonce || sealed.
func (c *SessionCache) Save(session *Session) error {
	if session == nil {
		return errors.New("nil session")
	}

	plaintext, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	secret, err := c.loadOrCreateSecret()
	if err != nil {
		return err
	}

	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("generating salt: %w", err)
	}

	gcm, err := newCipher(secret, salt)
	if err != nil {
		return err
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)

	blob := make([]byte, 0, SaltSize+NonceSize+len(sealed))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, sealed...)

	return util.AtomicWriteFilePrivate(filepath.Join(c.dir, sessionFileName), blob, 0600)
}

// Load decrypts and returns the cached session. Expired sessions are
// returned as ErrNoCachedSession and the stale file is removed.
func (c *SessionCache) Load() (*Session, error) {
	blob, err := os.ReadFile(filepath.Join(c.dir, sessionFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCachedSession
		}
		return nil, fmt.Errorf("reading session cache: %w", err)
	}

	if len(blob) < SaltSize+NonceSize {
		return nil, ErrCacheCorrupt
	}

	secret, err := c.loadOrCreateSecret()
	if err != nil {
		return nil, err
	}

	salt := blob[:SaltSize]
	nonce := blob[SaltSize : SaltSize+NonceSize]
	sealed := blob[SaltSize+NonceSize:]

	gcm, err := newCipher(secret, salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		util.Logger().Warn("session cache failed authentication, discarding")
		return nil, ErrCacheCorrupt
	}

	var session Session
	if err := json.Unmarshal(plaintext, &session); err != nil {
		return nil, ErrCacheCorrupt
	}

	if !session.Valid() {
		c.Clear()
		return nil, ErrNoCachedSession
	}

	return &session, nil
}

// Clear removes the cached session file.
func (c *SessionCache) Clear() error {
	err := os.Remove(filepath.Join(c.dir, sessionFileName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing session cache: %w", err)
	}
	return nil
}

// loadOrCreateSecret reads the machine-local secret, creating it on first
// use. The secret gates offline decryption of the cache; it is random, not
// a password, so losing it simply forces a re-login.
func (c *SessionCache) loadOrCreateSecret() ([]byte, error) {
	path := filepath.Join(c.dir, secretFileName)

	secret, err := os.ReadFile(path)
	if err == nil && len(secret) == KeySize {
		return secret, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading cache secret: %w", err)
	}

	secret = make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return nil, fmt.Errorf("generating cache secret: %w", err)
	}
	if err := util.AtomicWriteFilePrivate(path, secret, 0600); err != nil {
		return nil, fmt.Errorf("writing cache secret: %w", err)
	}
	return secret, nil
}

// newCipher derives an AES-256-GCM cipher from the secret and salt.
func newCipher(secret, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(secret, salt, PBKDF2Iterations, KeySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return gcm, nil
}
