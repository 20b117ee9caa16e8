package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"charge-gateway/internal/models"
)

// InMemoryStore is the default attempt store for deployments that do not
// configure MySQL. Records do not survive a restart.
type InMemoryStore struct {
	mutex    sync.RWMutex
	attempts map[string]*models.ChargeAttempt
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		attempts: make(map[string]*models.ChargeAttempt),
	}
}

func (s *InMemoryStore) SaveAttempt(ctx context.Context, attempt *models.ChargeAttempt) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	copied := *attempt
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now()
	}
	copied.UpdatedAt = time.Now()
	s.attempts[copied.Reference] = &copied
	return nil
}

func (s *InMemoryStore) GetAttempt(ctx context.Context, reference string) (*models.ChargeAttempt, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	attempt, exists := s.attempts[reference]
	if !exists {
		return nil, ErrAttemptNotFound
	}
	copied := *attempt
	return &copied, nil
}

func (s *InMemoryStore) UpsertStatus(ctx context.Context, reference string, status models.ChargeStatus, declineCode string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	attempt, exists := s.attempts[reference]
	if !exists {
		attempt = &models.ChargeAttempt{
			Reference: reference,
			CreatedAt: time.Now(),
		}
		s.attempts[reference] = attempt
	}
	attempt.Status = status
	if declineCode != "" {
		attempt.DeclineCode = declineCode
	}
	attempt.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) ListAttempts(ctx context.Context, status models.ChargeStatus, limit, offset int) ([]*models.ChargeAttempt, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	matched := make([]*models.ChargeAttempt, 0)
	for _, attempt := range s.attempts {
		if status == "" || attempt.Status == status {
			copied := *attempt
			matched = append(matched, &copied)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *InMemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *InMemoryStore) Close() error {
	return nil
}
