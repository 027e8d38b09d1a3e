package store

import (
	"context"
	"fmt"

	"tfgRecruit/internal/database"
)

// EmailTemplateInput replaces the editable parts of a template. An empty Name keeps the current one.
type EmailTemplateInput struct {
	Name    string
	Subject string
	Content string
}

func (s *Store) ListEmailTemplates(ctx context.Context) ([]database.EmailTemplate, error) {
	var rows []database.EmailTemplate
	if err := s.db.WithContext(ctx).Order("type ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list email templates: %w", err)
	}
	return rows, nil
}

func (s *Store) EmailTemplateByType(ctx context.Context, templateType string) (*database.EmailTemplate, error) {
	var row database.EmailTemplate
	if err := s.db.WithContext(ctx).Where("type = ?", templateType).First(&row).Error; err != nil {
		return nil, mapNotFound(err, ErrNotFound)
	}
	return &row, nil
}

func (s *Store) UpdateEmailTemplate(ctx context.Context, id string, in EmailTemplateInput) (*database.EmailTemplate, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	db := s.db.WithContext(ctx)
	var row database.EmailTemplate
	if err := db.First(&row, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err, ErrNotFound)
	}
	if in.Name != "" {
		row.Name = in.Name
	}
	row.Subject = in.Subject
	row.Content = in.Content
	if err := db.Save(&row).Error; err != nil {
		return nil, fmt.Errorf("update email template: %w", err)
	}
	return &row, nil
}
