package db

import (
	"gorm.io/gorm"

	"github.com/reai/reai-backend/internal/types"
)

func (s *PostgresService) AutoMigrateAll() error {
	return AutoMigrateAll(s.db)
}

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.FinancialCompany{},
		&types.Department{},
		&types.Review{},
		&types.AgentLog{},
	)
}
