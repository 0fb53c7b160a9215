// Package kyc reads party risk profiles from the identity service.
package kyc

import (
	"context"
	"sync"

	"txguard/internal/compliance/models"
	id "txguard/pkg/domain"
	"txguard/pkg/platform/sentinel"
)

//go:generate mockgen -source=kyc.go -destination=mocks/mocks.go -package=mocks

// Service returns the identity service's profile for a party.
type Service interface {
	Profile(ctx context.Context, partyID id.PartyID) (models.KYCProfile, error)
}

// MemoryStore is an in-process Service for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[id.PartyID]models.KYCProfile
}

func NewMemoryStore(profiles ...models.KYCProfile) *MemoryStore {
	s := &MemoryStore{profiles: make(map[id.PartyID]models.KYCProfile, len(profiles))}
	for _, p := range profiles {
		s.profiles[p.PartyID] = p
	}
	return s
}

// Put stores or replaces a profile.
func (s *MemoryStore) Put(p models.KYCProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.PartyID] = p
}

func (s *MemoryStore) Profile(ctx context.Context, partyID id.PartyID) (models.KYCProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[partyID]
	if !ok {
		return models.KYCProfile{}, sentinel.ErrNotFound
	}
	return p, nil
}
