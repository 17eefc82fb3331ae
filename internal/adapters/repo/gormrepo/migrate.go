package gormrepo

import (
	"gorm.io/gorm"

	"github.com/phenrril/storeadmin/internal/domain"
)

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.Client{}, &domain.Product{}, &domain.Order{}, &domain.OrderLine{}); err != nil {
		return err
	}

	// El email del cliente es opcional: único solo cuando está presente.
	switch db.Dialector.Name() {
	case "postgres":
		_ = db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_clients_email ON clients (LOWER(email)) WHERE email IS NOT NULL").Error
		_ = db.Exec("CREATE INDEX IF NOT EXISTS idx_order_lines_order_product ON order_lines (order_id, product_id)").Error
	case "sqlserver":
		_ = db.Exec("CREATE UNIQUE INDEX idx_clients_email ON clients (email) WHERE email IS NOT NULL").Error
		_ = db.Exec("CREATE INDEX idx_order_lines_order_product ON order_lines (order_id, product_id)").Error
	default:
		// MySQL admite varios NULL en un índice único.
		_ = db.Exec("CREATE UNIQUE INDEX idx_clients_email ON clients (email)").Error
		_ = db.Exec("CREATE INDEX idx_order_lines_order_product ON order_lines (order_id, product_id)").Error
	}
	return nil
}
