package service

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/bnema/transcoder/internal/infrastructure/logger"
)

var (
	ErrInvalidAPIKey = errors.New("invalid api key")
	ErrEmptyAPIKey   = errors.New("api key is empty")
)

const minAPIKeyLength = 16

// APIKeyAuthenticator checks bearer tokens against the configured key. Only
// a bcrypt hash of the key is kept. Tokens that already passed bcrypt are
// remembered as an HMAC under a per-process secret so polling clients do
// not pay the bcrypt cost on every request.
type APIKeyAuthenticator struct {
	hash   []byte
	secret []byte

	mu       sync.RWMutex
	verified map[string]struct{}
}

func NewAPIKeyAuthenticator(apiKey string, cost int) (*APIKeyAuthenticator, error) {
	if apiKey == "" {
		return nil, ErrEmptyAPIKey
	}
	if len(apiKey) < minAPIKeyLength {
		logger.Warn.Printf("API_KEY is shorter than %d characters", minAPIKeyLength)
	}

	hash, err := bcrypt.GenerateFromPassword(prehash(apiKey), cost)
	if err != nil {
		return nil, fmt.Errorf("hash api key: %w", err)
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	return &APIKeyAuthenticator{
		hash:     hash,
		secret:   secret,
		verified: make(map[string]struct{}),
	}, nil
}

func (a *APIKeyAuthenticator) Authenticate(token string) error {
	if token == "" {
		return ErrInvalidAPIKey
	}

	mac := a.mac(token)
	a.mu.RLock()
	_, ok := a.verified[mac]
	a.mu.RUnlock()
	if ok {
		return nil
	}

	if err := bcrypt.CompareHashAndPassword(a.hash, prehash(token)); err != nil {
		return ErrInvalidAPIKey
	}

	a.mu.Lock()
	// Only one key is valid, so one entry is enough.
	clear(a.verified)
	a.verified[mac] = struct{}{}
	a.mu.Unlock()
	return nil
}

func (a *APIKeyAuthenticator) mac(token string) string {
	m := hmac.New(sha256.New, a.secret)
	m.Write([]byte(token))
	return base64.RawURLEncoding.EncodeToString(m.Sum(nil))
}

// prehash keeps keys longer than bcrypt's 72 byte input limit usable.
func prehash(key string) []byte {
	sum := sha256.Sum256([]byte(key))
	return []byte(base64.RawStdEncoding.EncodeToString(sum[:]))
}
