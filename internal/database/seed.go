// internal/database/seed.go
package database

import (
	"encoding/json"
	"fmt"
	"log"

	"pos-service/internal/auth"
	"pos-service/pkg/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// helper converts []string -> jsonb safely
func jsonList(values []string) []byte {
	b, _ := json.Marshal(values)
	return b
}

// Seed populates baseline roles, a default store, and the initial admin
// account. Idempotent: existing rows are left alone.
func Seed(db *gorm.DB) error {
	roles := []models.Role{
		{
			Name:        "admin",
			Description: "Full administrative access across all stores",
			Permissions: jsonList([]string{auth.PermAdminFullAccess, auth.PermAdminAllStores}),
		},
		{
			Name:        "manager",
			Description: "Manages one store's catalog, promotions and sales",
			Permissions: jsonList([]string{
				auth.PermStoresView,
				auth.PermCategoriesView, auth.PermCategoriesManage,
				auth.PermProductsView, auth.PermProductsManage,
				auth.PermPromotionsView, auth.PermPromotionsManage,
				auth.PermSalesView, auth.PermSalesManage,
				auth.PermPaymentsView, auth.PermPaymentsManage,
				auth.PermUsersView,
				auth.PermSyncExecute, auth.PermSyncView,
			}),
		},
		{
			Name:        "cashier",
			Description: "Registers sales and payments, syncs the device",
			Permissions: jsonList([]string{
				auth.PermCategoriesView,
				auth.PermProductsView,
				auth.PermPromotionsView,
				auth.PermSalesView, auth.PermSalesManage,
				auth.PermPaymentsView, auth.PermPaymentsManage,
				auth.PermSyncExecute,
			}),
		},
	}

	for _, role := range roles {
		var existing models.Role
		err := db.Where("name = ?", role.Name).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			if err := db.Create(&role).Error; err != nil {
				return fmt.Errorf("seed role %s: %w", role.Name, err)
			}
			log.Printf("📝 Seeded role %q", role.Name)
			continue
		}
		if err != nil {
			return err
		}
	}

	var store models.Store
	if err := db.First(&store).Error; err == gorm.ErrRecordNotFound {
		store = models.Store{Name: "Main Store", Active: true}
		if err := db.Create(&store).Error; err != nil {
			return fmt.Errorf("seed default store: %w", err)
		}
		log.Printf("📝 Seeded default store (id=%d)", store.ID)
	} else if err != nil {
		return err
	}

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		var adminRole models.Role
		if err := db.Where("name = ?", "admin").First(&adminRole).Error; err != nil {
			return err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		admin := models.User{
			Username:     "admin",
			FullName:     "Administrator",
			PasswordHash: string(hash),
			RoleID:       adminRole.ID,
			StoreID:      store.ID,
			Active:       true,
		}
		if err := db.Create(&admin).Error; err != nil {
			return fmt.Errorf("seed admin user: %w", err)
		}
		log.Println("📝 Seeded admin user (change the default password!)")
	}

	return nil
}
