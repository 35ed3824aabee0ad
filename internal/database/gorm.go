package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"whatsapp-console/internal/config"
	"whatsapp-console/internal/models"
)

// Setting is one key/value row of the sandbox settings table.
type Setting struct {
	Key       string `gorm:"primaryKey;type:varchar(100)"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

func (Setting) TableName() string {
	return "settings"
}

// Media is an uploaded file served back by the sandbox.
type Media struct {
	ID        string `gorm:"primaryKey;type:varchar(64)"`
	Filename  string `gorm:"type:varchar(255)"`
	MimeType  string `gorm:"type:varchar(100)"`
	Data      []byte
	CreatedAt time.Time
}

func (Media) TableName() string {
	return "media"
}

// Open connects to the sandbox database selected by cfg.DBDriver and migrates
// the schema.
func Open(cfg config.SandboxConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.Open(cfg.PostgresDSN())
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DBPath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.DBDriver, err)
	}
	log.Info("connected to database", zap.String("driver", cfg.DBDriver))

	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info("database migration completed")
	return db, nil
}

// newGormLogger writes gorm's warnings through zap. A missing record is normal
// control flow for lookups and is not logged.
func newGormLogger(log *zap.Logger) logger.Interface {
	return logger.New(
		zap.NewStdLog(log.Named("gorm").WithOptions(zap.AddCallerSkip(1))),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// Migrate creates or updates every sandbox table.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Contact{},
		&models.Message{},
		&models.Template{},
		&models.Campaign{},
		&Setting{},
		&Media{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// LoadSettings reads the WhatsApp credentials stored as key/value rows.
func LoadSettings(db *gorm.DB) (models.WhatsAppSettings, error) {
	var rows []Setting
	if err := db.Find(&rows).Error; err != nil {
		return models.WhatsAppSettings{}, err
	}

	values := make(map[string]string, len(rows))
	for _, r := range rows {
		values[r.Key] = r.Value
	}
	s := models.WhatsAppSettings{
		AccessToken:       values["WHATSAPP_TOKEN"],
		PhoneNumberID:     values["PHONE_NUMBER_ID"],
		BusinessAccountID: values["WABA_ID"],
		WebhookURL:        values["WEBHOOK_URL"],
		WebhookToken:      values["VERIFY_TOKEN"],
	}
	s.IsConfigured = s.Configured()
	return s, nil
}

// SaveSettings upserts the credentials in one transaction.
func SaveSettings(db *gorm.DB, s models.WhatsAppSettings) error {
	settings := []Setting{
		{Key: "WHATSAPP_TOKEN", Value: s.AccessToken},
		{Key: "PHONE_NUMBER_ID", Value: s.PhoneNumberID},
		{Key: "WABA_ID", Value: s.BusinessAccountID},
		{Key: "WEBHOOK_URL", Value: s.WebhookURL},
		{Key: "VERIFY_TOKEN", Value: s.WebhookToken},
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, setting := range settings {
			if err := tx.Save(&setting).Error; err != nil {
				return fmt.Errorf("save setting %s: %w", setting.Key, err)
			}
		}
		return nil
	})
}
