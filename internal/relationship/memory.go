package relationship

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"compset/server/internal/errs"
	"compset/server/internal/models"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps relationships in a single index keyed by the canonical
// pair. All mutations run under one lock, so a pair can never be created twice.
type MemoryStore struct {
	mu     sync.RWMutex
	byPair map[models.PairKey]*models.CompetitiveRelationship
	byID   map[string]models.PairKey
	logger *logrus.Logger
	now    func() time.Time
}

// NewMemoryStore creates an empty in-memory relationship store
func NewMemoryStore(logger *logrus.Logger) *MemoryStore {
	if logger == nil {
		logger = logrus.New()
	}
	return &MemoryStore{
		byPair: make(map[models.PairKey]*models.CompetitiveRelationship),
		byID:   make(map[string]models.PairKey),
		logger: logger,
		now:    time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, a, b int64) (*models.CompetitiveRelationship, error) {
	if a == b {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rel, ok := s.byPair[models.NewPairKey(a, b)]
	if !ok {
		return nil, nil
	}
	out := *rel
	return &out, nil
}

func (s *MemoryStore) Create(ctx context.Context, portfolioID, a, b int64, relType models.RelationshipType) (*models.CompetitiveRelationship, error) {
	relType, err := ValidatePair(a, b, relType)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.createLocked(portfolioID, models.NewPairKey(a, b), relType)
}

func (s *MemoryStore) createLocked(portfolioID int64, key models.PairKey, relType models.RelationshipType) (*models.CompetitiveRelationship, error) {
	if existing, ok := s.byPair[key]; ok {
		return nil, fmt.Errorf("relationship between %d and %d already exists as %s: %w",
			key.Low, key.High, existing.ID, errs.ErrConflict)
	}

	rel := &models.CompetitiveRelationship{
		ID:               uuid.NewString(),
		PortfolioID:      portfolioID,
		PropertyAID:      key.Low,
		PropertyBID:      key.High,
		RelationshipType: relType,
		IsActive:         true,
		CreatedAt:        s.now().UTC(),
	}
	s.byPair[key] = rel
	s.byID[rel.ID] = key

	s.logger.WithFields(logrus.Fields{
		"relationship_id": rel.ID,
		"property_a_id":   rel.PropertyAID,
		"property_b_id":   rel.PropertyBID,
		"type":            rel.RelationshipType,
	}).Debug("Created relationship")

	out := *rel
	return &out, nil
}

func (s *MemoryStore) Toggle(ctx context.Context, id string) (*models.CompetitiveRelationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("relationship %s: %w", id, errs.ErrNotFound)
	}
	return s.toggleLocked(key), nil
}

func (s *MemoryStore) toggleLocked(key models.PairKey) *models.CompetitiveRelationship {
	rel := s.byPair[key]
	rel.IsActive = !rel.IsActive

	s.logger.WithFields(logrus.Fields{
		"relationship_id": rel.ID,
		"is_active":       rel.IsActive,
	}).Debug("Toggled relationship")

	out := *rel
	return &out
}

func (s *MemoryStore) ToggleOrCreate(ctx context.Context, portfolioID, a, b int64, relType models.RelationshipType) (*models.CompetitiveRelationship, error) {
	relType, err := ValidatePair(a, b, relType)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.NewPairKey(a, b)
	if _, ok := s.byPair[key]; ok {
		return s.toggleLocked(key), nil
	}
	return s.createLocked(portfolioID, key, relType)
}

func (s *MemoryStore) List(ctx context.Context, portfolioID int64) ([]models.CompetitiveRelationship, error) {
	return s.list(portfolioID, false), nil
}

func (s *MemoryStore) ListActive(ctx context.Context, portfolioID int64) ([]models.CompetitiveRelationship, error) {
	return s.list(portfolioID, true), nil
}

func (s *MemoryStore) list(portfolioID int64, activeOnly bool) []models.CompetitiveRelationship {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.CompetitiveRelationship, 0)
	for _, rel := range s.byPair {
		if rel.PortfolioID != portfolioID || (activeOnly && !rel.IsActive) {
			continue
		}
		out = append(out, *rel)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
