// internal/database/db.go
package database

import (
	"fmt"
	"log"

	"pos-service/internal/config"
	"pos-service/pkg/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var db *gorm.DB

func InitDB(cfg *config.Config) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPass, cfg.DBName, cfg.DBSSLMode,
	)

	var err error
	db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("❌ Failed to connect to DB: %v", err)
	}

	if err := Migrate(db); err != nil {
		log.Fatalf("❌ Failed to migrate: %v", err)
	}

	log.Println("✅ POS DB connected & migrated")

	if err := Seed(db); err != nil {
		log.Printf("⚠️ Failed to seed baseline data: %v", err)
	} else {
		log.Println("✅ Baseline roles & admin seeded")
	}
}

// Migrate runs AutoMigrate for every entity (safe in dev; use migrations in prod).
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Store{},
		&models.Role{},
		&models.User{},
		&models.DeviceToken{},
		&models.Category{},
		&models.Product{},
		&models.Promotion{},
		&models.Sale{},
		&models.Payment{},
		&models.SyncBatch{},
		&models.SyncLog{},
	)
}

func GetDB() *gorm.DB {
	return db
}
