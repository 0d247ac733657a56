// Package credentials keeps upstream API tokens in the OS credential store.
package credentials

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// Service name for OS credential store
const credentialService = "mcp-bridge"

// Kind names one stored credential.
type Kind string

const (
	LinearAPIKey Kind = "linear_api_key"
	FigmaToken   Kind = "figma_token"
)

// ErrNotStored is returned when the credential store has no entry for a kind.
var ErrNotStored = errors.New("credential not stored")

// Kinds lists every credential the bridge knows about.
func Kinds() []Kind {
	return []Kind{LinearAPIKey, FigmaToken}
}

// ParseKind accepts either the key name or the short service alias ("linear", "figma").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear", string(LinearAPIKey):
		return LinearAPIKey, nil
	case "figma", string(FigmaToken):
		return FigmaToken, nil
	default:
		return "", fmt.Errorf("unknown credential %q (want linear or figma)", s)
	}
}

// Store handles secure storage and retrieval of upstream credentials
type Store struct {
	service string
}

func NewStore() *Store {
	return &Store{service: credentialService}
}

// Set validates and stores a token.
func (s *Store) Set(kind Kind, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}
	if err := validateTokenFormat(kind, token); err != nil {
		return fmt.Errorf("invalid token format: %w", err)
	}

	if err := keyring.Set(s.service, string(kind), token); err != nil {
		return fmt.Errorf("failed to store %s in credential store: %w", kind, err)
	}
	return nil
}

// Get returns the stored token or ErrNotStored.
func (s *Store) Get(kind Kind) (string, error) {
	token, err := keyring.Get(s.service, string(kind))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%s: %w", kind, ErrNotStored)
		}
		return "", fmt.Errorf("failed to retrieve %s from credential store: %w", kind, err)
	}

	if strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%s: %w", kind, ErrNotStored)
	}
	return token, nil
}

// Delete removes a token; a missing token is not an error.
func (s *Store) Delete(kind Kind) error {
	err := keyring.Delete(s.service, string(kind))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete %s from credential store: %w", kind, err)
	}
	return nil
}

func (s *Store) Has(kind Kind) bool {
	_, err := s.Get(kind)
	return err == nil
}

// Resolve prefers an explicitly configured value and falls back to the store.
// An unavailable credential store resolves to the empty string.
func (s *Store) Resolve(configured string, kind Kind) string {
	if v := strings.TrimSpace(configured); v != "" {
		return v
	}
	token, err := s.Get(kind)
	if err != nil {
		return ""
	}
	return token
}

func validateTokenFormat(kind Kind, token string) error {
	if strings.ContainsAny(token, " \t\r\n") {
		return fmt.Errorf("token must not contain whitespace")
	}
	switch kind {
	case LinearAPIKey:
		if !strings.HasPrefix(token, "lin_api_") && !strings.HasPrefix(token, "lin_oauth_") && len(token) < 32 {
			return fmt.Errorf("linear keys start with lin_api_ or lin_oauth_")
		}
	case FigmaToken:
		if len(token) < 16 {
			return fmt.Errorf("figma token is too short")
		}
	default:
		return fmt.Errorf("unknown credential kind %q", kind)
	}
	return nil
}
