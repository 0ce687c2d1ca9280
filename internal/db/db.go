package db

import (
	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kongrex/regdesk/internal/models"
)

var conn *gorm.DB

// Init opens the SQLite database at path and migrates the schema.
func Init(path string) error {
	var err error
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	conn, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	// SQLite works best with a single writer; cap the pool accordingly.
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := conn.AutoMigrate(
		&models.Category{},
		&models.RegistrationType{},
		&models.Registration{},
		&models.RegistrationSelection{},
		&models.AuditLog{},
		&models.PaymentTransaction{},
		&models.BankAccount{},
		&models.FormSetting{},
		&models.PageSetting{},
	); err != nil {
		return err
	}

	// Composite indexes that GORM doesn't auto-create from struct tags.
	conn.Exec("CREATE INDEX IF NOT EXISTS idx_sel_reg_type     ON registration_selections(registration_id, registration_type_id)")
	conn.Exec("CREATE INDEX IF NOT EXISTS idx_audit_table_rec  ON audit_logs(table_name, record_id)")
	conn.Exec("CREATE INDEX IF NOT EXISTS idx_reg_pay_status   ON registrations(payment_method, payment_status)")

	log.Info().Str("path", path).Msg("database ready (sqlite)")
	return nil
}

func Conn() *gorm.DB {
	return conn
}
