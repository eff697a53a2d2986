package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"compset/server/internal/errs"
	"compset/server/internal/models"
	"compset/server/internal/relationship"
)

var _ relationship.Store = (*RelationshipRepository)(nil)

// RelationshipRepository stores competitive relationships in sqlite. The pair
// is kept in canonical order, so the UNIQUE(property_a_id, property_b_id)
// constraint rejects duplicate edges regardless of argument order.
type RelationshipRepository struct {
	db     *sql.DB
	logger *logrus.Logger
	now    func() time.Time
}

func NewRelationshipRepository(db *sql.DB, logger *logrus.Logger) *RelationshipRepository {
	if logger == nil {
		logger = logrus.New()
	}
	return &RelationshipRepository{db: db, logger: logger, now: time.Now}
}

const relationshipColumns = `id, portfolio_id, property_a_id, property_b_id, relationship_type, is_active, created_at`

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func scanRelationship(row scanner) (*models.CompetitiveRelationship, error) {
	var rel models.CompetitiveRelationship
	var relType string
	if err := row.Scan(
		&rel.ID,
		&rel.PortfolioID,
		&rel.PropertyAID,
		&rel.PropertyBID,
		&relType,
		&rel.IsActive,
		&rel.CreatedAt,
	); err != nil {
		return nil, err
	}
	rel.RelationshipType = models.RelationshipType(relType)
	return &rel, nil
}

func getByPair(ctx context.Context, q querier, key models.PairKey) (*models.CompetitiveRelationship, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+relationshipColumns+`
		FROM competitive_relationships
		WHERE property_a_id = ? AND property_b_id = ?
	`, key.Low, key.High)

	rel, err := scanRelationship(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get relationship: %w", err)
	}
	return rel, nil
}

func getByID(ctx context.Context, q querier, id string) (*models.CompetitiveRelationship, error) {
	row := q.QueryRowContext(ctx, `SELECT `+relationshipColumns+` FROM competitive_relationships WHERE id = ?`, id)

	rel, err := scanRelationship(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("relationship %s: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get relationship: %w", err)
	}
	return rel, nil
}

func (r *RelationshipRepository) Get(ctx context.Context, a, b int64) (*models.CompetitiveRelationship, error) {
	if a == b {
		return nil, nil
	}
	return getByPair(ctx, r.db, models.NewPairKey(a, b))
}

func (r *RelationshipRepository) Create(ctx context.Context, portfolioID, a, b int64, relType models.RelationshipType) (*models.CompetitiveRelationship, error) {
	relType, err := relationship.ValidatePair(a, b, relType)
	if err != nil {
		return nil, err
	}

	rel := &models.CompetitiveRelationship{
		ID:               uuid.NewString(),
		PortfolioID:      portfolioID,
		PropertyAID:      min(a, b),
		PropertyBID:      max(a, b),
		RelationshipType: relType,
		IsActive:         true,
		CreatedAt:        r.now().UTC(),
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO competitive_relationships
		(id, portfolio_id, property_a_id, property_b_id, relationship_type, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		rel.ID,
		rel.PortfolioID,
		rel.PropertyAID,
		rel.PropertyBID,
		string(rel.RelationshipType),
		rel.IsActive,
		rel.CreatedAt,
	)
	if err != nil {
		return nil, classifyWriteError(err, rel.PropertyAID, rel.PropertyBID)
	}

	r.logger.WithFields(logrus.Fields{
		"relationship_id": rel.ID,
		"property_a_id":   rel.PropertyAID,
		"property_b_id":   rel.PropertyBID,
		"type":            rel.RelationshipType,
	}).Info("Created relationship")

	return rel, nil
}

// classifyWriteError maps sqlite constraint failures onto the error taxonomy
func classifyWriteError(err error, a, b int64) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("relationship between %d and %d already exists: %w", a, b, errs.ErrConflict)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("property %d or %d: %w", a, b, errs.ErrNotFound)
		}
	}
	return fmt.Errorf("failed to insert relationship: %w", err)
}

func (r *RelationshipRepository) Toggle(ctx context.Context, id string) (*models.CompetitiveRelationship, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rel, err := toggleInTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"relationship_id": rel.ID,
		"is_active":       rel.IsActive,
	}).Info("Toggled relationship")

	return rel, nil
}

// toggleInTx flips is_active in a single statement and reads the row back,
// so concurrent toggles of the same id can never lose an update.
func toggleInTx(ctx context.Context, tx *sql.Tx, id string) (*models.CompetitiveRelationship, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE competitive_relationships SET is_active = NOT is_active WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle relationship: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("relationship %s: %w", id, errs.ErrNotFound)
	}

	return getByID(ctx, tx, id)
}

func (r *RelationshipRepository) ToggleOrCreate(ctx context.Context, portfolioID, a, b int64, relType models.RelationshipType) (*models.CompetitiveRelationship, error) {
	if _, err := relationship.ValidatePair(a, b, relType); err != nil {
		return nil, err
	}

	existing, err := r.Get(ctx, a, b)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return r.Toggle(ctx, existing.ID)
	}

	created, err := r.Create(ctx, portfolioID, a, b, relType)
	if errors.Is(err, errs.ErrConflict) {
		// Lost the race against a concurrent create of the same pair
		existing, err = r.Get(ctx, a, b)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("relationship between %d and %d vanished after conflict: %w", a, b, errs.ErrConflict)
		}
		return r.Toggle(ctx, existing.ID)
	}
	return created, err
}

func (r *RelationshipRepository) List(ctx context.Context, portfolioID int64) ([]models.CompetitiveRelationship, error) {
	return r.list(ctx, `
		SELECT `+relationshipColumns+`
		FROM competitive_relationships
		WHERE portfolio_id = ?
		ORDER BY created_at, id
	`, portfolioID)
}

func (r *RelationshipRepository) ListActive(ctx context.Context, portfolioID int64) ([]models.CompetitiveRelationship, error) {
	return r.list(ctx, `
		SELECT `+relationshipColumns+`
		FROM competitive_relationships
		WHERE portfolio_id = ? AND is_active = 1
		ORDER BY created_at, id
	`, portfolioID)
}

func (r *RelationshipRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.CompetitiveRelationship, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships: %w", err)
	}
	defer rows.Close()

	relationships := make([]models.CompetitiveRelationship, 0)
	for rows.Next() {
		rel, err := scanRelationship(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		relationships = append(relationships, *rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating relationships: %w", err)
	}
	return relationships, nil
}
