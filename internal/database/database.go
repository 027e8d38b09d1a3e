package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tfgRecruit/internal/config"
)

// InitDatabase opens the PostgreSQL connection pool and verifies it with a ping.
func InitDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap db: %w", err)
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// Migrate creates or updates every table and seeds the default email templates.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&User{},
		&Form{},
		&Campaign{},
		&Candidate{},
		&StatusHistory{},
		&EmailTemplate{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return SeedEmailTemplates(db)
}

// DefaultEmailTemplates are inserted for any template type that has no row yet.
var DefaultEmailTemplates = []EmailTemplate{
	{
		Name:    "Application Received",
		Type:    TemplateApplicationReceived,
		Subject: "We received your application for {{campaign_title}}",
		Content: "Hi {{candidate_name}},\n\nThank you for applying to {{campaign_title}}. Our team will review your application and get back to you soon.",
	},
	{
		Name:    "Under Review",
		Type:    TemplateUnderReview,
		Subject: "Your application for {{campaign_title}} is under review",
		Content: "Hi {{candidate_name}},\n\nGood news: your application for {{campaign_title}} is now being reviewed.",
	},
	{
		Name:    "Accepted",
		Type:    TemplateAccepted,
		Subject: "Congratulations! {{campaign_title}}",
		Content: "Hi {{candidate_name}},\n\nWe are happy to let you know that you have been accepted for {{campaign_title}}.",
	},
	{
		Name:    "Rejected",
		Type:    TemplateRejected,
		Subject: "Update on your application for {{campaign_title}}",
		Content: "Hi {{candidate_name}},\n\nThank you for your interest in {{campaign_title}}. Unfortunately we will not be moving forward with your application.",
	},
}

// SeedEmailTemplates inserts missing default templates and leaves edited ones untouched.
func SeedEmailTemplates(db *gorm.DB) error {
	for _, tpl := range DefaultEmailTemplates {
		var existing EmailTemplate
		switch err := db.Where("type = ?", tpl.Type).First(&existing).Error; {
		case err == nil:
			continue
		case errors.Is(err, gorm.ErrRecordNotFound):
			row := tpl
			if err := db.Create(&row).Error; err != nil {
				return fmt.Errorf("seed email template %s: %w", tpl.Type, err)
			}
		default:
			return fmt.Errorf("query email template %s: %w", tpl.Type, err)
		}
	}
	return nil
}
