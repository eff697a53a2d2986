package database

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"compset/server/internal/errs"
	"compset/server/internal/models"
)

// UnitRecord is the gorm mapping of the property_units table
type UnitRecord struct {
	ID          int64    `gorm:"primaryKey;autoIncrement"`
	PropertyID  int64    `gorm:"not null;uniqueIndex:idx_unit_property_number"`
	UnitNumber  string   `gorm:"not null;uniqueIndex:idx_unit_property_number"`
	Tag         *string
	Bedrooms    int      `gorm:"not null;default:0"`
	Bathrooms   float64  `gorm:"not null;default:1"`
	SquareFeet  *int
	CurrentRent *float64 `gorm:"column:current_rent"`
	Status      string   `gorm:"not null;default:occupied"`
	UpdatedAt   time.Time
}

func (UnitRecord) TableName() string {
	return "property_units"
}

// OpenGorm opens the same sqlite file through gorm for batch writes.
// Transactions take the write lock up front so concurrent batches wait on the
// busy timeout instead of failing on lock upgrade.
func OpenGorm(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}
	return db, nil
}

// UpsertUnits writes an import batch, replacing units that share a unit number
// with an existing unit of the same property. It is meant to run inside a
// transaction.
func UpsertUnits(tx *gorm.DB, batch *models.UnitImportBatch) error {
	var count int64
	if err := tx.Table("properties").Where("id = ?", batch.PropertyID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check property: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("property %d: %w", batch.PropertyID, errs.ErrNotFound)
	}

	if len(batch.Units) == 0 {
		return nil
	}

	now := time.Now().UTC()
	records := make([]UnitRecord, len(batch.Units))
	for i, u := range batch.Units {
		records[i] = UnitRecord{
			PropertyID:  batch.PropertyID,
			UnitNumber:  u.UnitNumber,
			Tag:         u.Tag,
			Bedrooms:    u.Bedrooms,
			Bathrooms:   u.Bathrooms,
			SquareFeet:  u.SquareFeet,
			CurrentRent: u.Rent,
			Status:      string(u.Status),
			UpdatedAt:   now,
		}
	}

	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "property_id"}, {Name: "unit_number"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"tag", "bedrooms", "bathrooms", "square_feet", "current_rent", "status", "updated_at",
		}),
	}).CreateInBatches(records, 100).Error
}
