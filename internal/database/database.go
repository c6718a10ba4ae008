package database

import (
	"ropa-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open opens a GORM DB from DSN (Postgres, pooler-friendly).
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") behind PgBouncer-style poolers.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{TranslateError: true})
}

// AutoMigrate runs migrations for every model in dependency order: reference
// tables first, then tenants, then owned entities and junctions.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Country{},
		&models.DataNature{},
		&models.TransferMechanism{},
		&models.Organization{},
		&models.DataCategory{},
		&models.DataCategoryNature{},
		&models.Recipient{},
		&models.DigitalAsset{},
		&models.RecipientLocation{},
		&models.AssetLocation{},
		&models.ProcessingActivity{},
		&models.ActivityRecipient{},
		&models.ActivityAsset{},
	)
}
