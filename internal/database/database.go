package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"compset/server/internal/errs"
	"compset/server/internal/models"
)

type Database struct {
	db     *sql.DB
	logger *logrus.Logger
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func NewDatabase(dbPath string, logger *logrus.Logger) (*Database, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Foreign keys are a per-connection setting, so they go in the DSN
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return New(db, logger), nil
}

// New wraps an already opened connection pool
func New(db *sql.DB, logger *logrus.Logger) *Database {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Database{db: db, logger: logger}
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) GetDB() *sql.DB {
	return d.db
}

// CreateProperty inserts a property profile and fills in its id and creation time
func (d *Database) CreateProperty(ctx context.Context, p *models.PropertyProfile) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	result, err := d.db.ExecContext(ctx, `
		INSERT INTO properties
		(portfolio_id, name, address, profile_type, total_units, latitude, longitude, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.PortfolioID,
		p.Name,
		p.Address,
		p.ProfileType,
		p.TotalUnits,
		p.Latitude,
		p.Longitude,
		p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert property: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get property ID: %w", err)
	}
	p.ID = id
	return nil
}

const propertyColumns = `id, portfolio_id, name, address, profile_type, total_units, latitude, longitude, created_at`

func scanProperty(row scanner) (*models.PropertyProfile, error) {
	var p models.PropertyProfile
	var latitude, longitude sql.NullFloat64
	var profileType string

	if err := row.Scan(
		&p.ID,
		&p.PortfolioID,
		&p.Name,
		&p.Address,
		&profileType,
		&p.TotalUnits,
		&latitude,
		&longitude,
		&p.CreatedAt,
	); err != nil {
		return nil, err
	}

	p.ProfileType = models.ProfileType(profileType)
	if latitude.Valid {
		lat := latitude.Float64
		p.Latitude = &lat
	}
	if longitude.Valid {
		lon := longitude.Float64
		p.Longitude = &lon
	}
	return &p, nil
}

// GetProperty returns a property profile by id
func (d *Database) GetProperty(ctx context.Context, id int64) (*models.PropertyProfile, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = ?`, id)

	p, err := scanProperty(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("property %d: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return p, nil
}

// ListProperties returns every property of a portfolio ordered by id
func (d *Database) ListProperties(ctx context.Context, portfolioID int64) ([]models.PropertyProfile, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE portfolio_id = ? ORDER BY id`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	defer rows.Close()

	properties := make([]models.PropertyProfile, 0)
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		properties = append(properties, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating properties: %w", err)
	}
	return properties, nil
}

// ListUnits returns the unit inventory of a property ordered by unit number
func (d *Database) ListUnits(ctx context.Context, propertyID int64) ([]models.PropertyUnit, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT
			id,
			property_id,
			unit_number,
			tag,
			bedrooms,
			bathrooms,
			square_feet,
			current_rent,
			status,
			updated_at
		FROM property_units
		WHERE property_id = ?
		ORDER BY unit_number
	`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query units: %w", err)
	}
	defer rows.Close()

	units := make([]models.PropertyUnit, 0)
	for rows.Next() {
		var u models.PropertyUnit
		var tag sql.NullString
		var squareFeet sql.NullInt64
		var rent sql.NullFloat64
		var status string

		if err := rows.Scan(
			&u.ID,
			&u.PropertyID,
			&u.UnitNumber,
			&tag,
			&u.Bedrooms,
			&u.Bathrooms,
			&squareFeet,
			&rent,
			&status,
			&u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}

		u.Status = models.UnitStatus(status)
		if tag.Valid {
			t := tag.String
			u.Tag = &t
		}
		if squareFeet.Valid {
			sf := int(squareFeet.Int64)
			u.SquareFeet = &sf
		}
		if rent.Valid {
			r := rent.Float64
			u.Rent = &r
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating units: %w", err)
	}
	return units, nil
}
