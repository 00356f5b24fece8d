package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kirillkom/knowledge-assistant/internal/core/domain"
)

type CredentialStore struct {
	mu      sync.RWMutex
	byEmail map[string]domain.Credential
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{byEmail: make(map[string]domain.Credential)}
}

func (s *CredentialStore) CreateCredential(_ context.Context, cred domain.Credential) error {
	key := strings.ToLower(cred.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[key]; exists {
		return domain.WrapError(domain.ErrInvalidInput, "create credential", errors.New("email is already registered"))
	}
	cred.Email = key
	cred.PasswordHash = append([]byte(nil), cred.PasswordHash...)
	s.byEmail[key] = cred
	return nil
}

func (s *CredentialStore) GetCredentialByEmail(_ context.Context, email string) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, domain.WrapError(domain.ErrUnauthorized, "get credential", fmt.Errorf("no user with email %s", email))
	}
	return &cred, nil
}
