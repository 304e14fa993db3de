package migrations

import (
	"gorm.io/gorm"
)

// Migration001Initial 创建客户端持久化存储表
type Migration001Initial struct{}

func (m *Migration001Initial) Version() string {
	return "001_initial"
}

func (m *Migration001Initial) Description() string {
	return "Create client storage key/value table"
}

func (m *Migration001Initial) Up(db *gorm.DB) error {
	return db.Exec(`
		CREATE TABLE IF NOT EXISTS client_storage (
			storage_key VARCHAR(191) PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error
}
