package database

import "github.com/RingdingdongJeter/Food-App-Backend/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []any {
	return []any{
		&models.User{},
		&models.Relationship{},
		&models.Record{},
	}
}
