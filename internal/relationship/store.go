// Package relationship maintains the symmetric graph of competitive
// relationships between properties.
package relationship

import (
	"context"

	"compset/server/internal/errs"
	"compset/server/internal/models"
)

// Store owns the competitive-relationship edges. Lookups are symmetric:
// Get(a, b) and Get(b, a) return the same record.
type Store interface {
	// Get returns the relationship for the unordered pair, or nil when none
	// exists. A self pair always returns nil.
	Get(ctx context.Context, a, b int64) (*models.CompetitiveRelationship, error)

	// Create adds an active relationship. It fails with errs.ErrConflict when
	// the pair already has a relationship, active or not.
	Create(ctx context.Context, portfolioID, a, b int64, relType models.RelationshipType) (*models.CompetitiveRelationship, error)

	// Toggle flips IsActive. It fails with errs.ErrNotFound for unknown ids.
	Toggle(ctx context.Context, id string) (*models.CompetitiveRelationship, error)

	// ToggleOrCreate toggles the pair's relationship when one exists and
	// creates it otherwise, as one atomic step.
	ToggleOrCreate(ctx context.Context, portfolioID, a, b int64, relType models.RelationshipType) (*models.CompetitiveRelationship, error)

	List(ctx context.Context, portfolioID int64) ([]models.CompetitiveRelationship, error)
	ListActive(ctx context.Context, portfolioID int64) ([]models.CompetitiveRelationship, error)
}

// ValidatePair checks the arguments of a create and fills in the default type
func ValidatePair(a, b int64, relType models.RelationshipType) (models.RelationshipType, error) {
	if a <= 0 {
		return "", errs.Invalid("propertyAId", "must be a positive id")
	}
	if b <= 0 {
		return "", errs.Invalid("propertyBId", "must be a positive id")
	}
	if a == b {
		return "", errs.Invalid("propertyBId", "a property cannot compete with itself")
	}
	if relType == "" {
		relType = models.DirectCompetitor
	}
	if !relType.Valid() {
		return "", errs.Invalid("relationshipType", "unknown relationship type %q", relType)
	}
	return relType, nil
}
