package db

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/sitescan/sitescan/internal/modules/model"
	"gorm.io/gorm"
)

func migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "001_extensions",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error
			},
			Rollback: func(tx *gorm.DB) error { return nil },
		},
		{
			ID: "002_artifacts",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&model.Artifact{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("artifacts")
			},
		},
		{
			ID: "003_notes",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&model.Note{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("notes")
			},
		},
	}
}

// Migrate applies every pending schema migration.
func Migrate(db *gorm.DB) error {
	return gormigrate.New(db, gormigrate.DefaultOptions, migrations()).Migrate()
}

// RollbackLast reverts the most recent migration.
func RollbackLast(db *gorm.DB) error {
	return gormigrate.New(db, gormigrate.DefaultOptions, migrations()).RollbackLast()
}
