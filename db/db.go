package db

import (
	"fmt"

	"taskmgr-backend/models"
	"taskmgr-backend/utils"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Init opens the database connection and migrates the schema. The handle is
// returned to the caller and injected where needed; there is no package
// global.
func Init(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database URL is not configured")
	}

	gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: utils.GetGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	err = gormDB.AutoMigrate(
		&models.UserProfile{},
		&models.Subscription{},
		&models.Task{},
		&models.TicketTransaction{},
		&models.ProcessedEvent{},
	)
	if err != nil {
		return nil, fmt.Errorf("error migrating database: %w", err)
	}

	utils.LogSuccess("Database connection successful")
	return gormDB, nil
}
