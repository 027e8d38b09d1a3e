package store

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"tfgRecruit/internal/database"
	"tfgRecruit/internal/form"
)

// FormInput is the full replacement payload of a form.
type FormInput struct {
	Title       string
	Description string
	Fields      []form.Field
	IsPublished bool
}

// SchemaOf decodes a stored form into its domain view.
func SchemaOf(f database.Form) (form.Schema, error) {
	fields, err := DecodeFields(f.Fields)
	if err != nil {
		return form.Schema{}, err
	}
	return form.Schema{
		ID:          f.ID,
		Title:       f.Title,
		Description: f.Description,
		Fields:      fields,
		IsPublished: f.IsPublished,
	}, nil
}

// DecodeFields reads the stored field list without re-validating it.
func DecodeFields(raw datatypes.JSON) ([]form.Field, error) {
	if len(raw) == 0 {
		return []form.Field{}, nil
	}
	var fields []form.Field
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode form fields: %w", err)
	}
	if fields == nil {
		fields = []form.Field{}
	}
	return fields, nil
}

func encodeFields(fields []form.Field) (datatypes.JSON, error) {
	if fields == nil {
		fields = []form.Field{}
	}
	if err := form.CheckFields(fields); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode form fields: %w", err)
	}
	return datatypes.JSON(raw), nil
}

func (s *Store) CreateForm(ctx context.Context, in FormInput) (*database.Form, error) {
	fields, err := encodeFields(in.Fields)
	if err != nil {
		return nil, err
	}
	row := database.Form{
		Title:       in.Title,
		Description: in.Description,
		Fields:      fields,
		IsPublished: in.IsPublished,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("create form: %w", err)
	}
	return &row, nil
}

func (s *Store) GetForm(ctx context.Context, id string) (*database.Form, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	var row database.Form
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err, ErrNotFound)
	}
	return &row, nil
}

// GetPublishedForm returns the form only while it is published; drafts read as missing.
func (s *Store) GetPublishedForm(ctx context.Context, id string) (*database.Form, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	var row database.Form
	if err := s.db.WithContext(ctx).
		Where("id = ? AND is_published = ?", id, true).
		First(&row).Error; err != nil {
		return nil, mapNotFound(err, ErrNotFound)
	}
	return &row, nil
}

// ListForms returns forms newest first, optionally filtered by publish flag.
func (s *Store) ListForms(ctx context.Context, published *bool) ([]database.Form, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if published != nil {
		q = q.Where("is_published = ?", *published)
	}
	var rows []database.Form
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	return rows, nil
}

// UpdateForm replaces title, description, fields and publish flag wholesale.
func (s *Store) UpdateForm(ctx context.Context, id string, in FormInput) (*database.Form, error) {
	row, err := s.GetForm(ctx, id)
	if err != nil {
		return nil, err
	}
	fields, err := encodeFields(in.Fields)
	if err != nil {
		return nil, err
	}
	row.Title = in.Title
	row.Description = in.Description
	row.Fields = fields
	row.IsPublished = in.IsPublished
	if err := s.db.WithContext(ctx).Save(row).Error; err != nil {
		return nil, fmt.Errorf("update form: %w", err)
	}
	return row, nil
}

// SetFormPublished flips only the publish flag.
func (s *Store) SetFormPublished(ctx context.Context, id string, published bool) (*database.Form, error) {
	row, err := s.GetForm(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(row).Update("is_published", published).Error; err != nil {
		return nil, fmt.Errorf("publish form: %w", err)
	}
	row.IsPublished = published
	return row, nil
}

// DuplicateForm copies a form under a fresh id as an unpublished draft titled "<title> (Copy)".
func (s *Store) DuplicateForm(ctx context.Context, id string) (*database.Form, error) {
	src, err := s.GetForm(ctx, id)
	if err != nil {
		return nil, err
	}
	fields := make(datatypes.JSON, len(src.Fields))
	copy(fields, src.Fields)
	row := database.Form{
		Title:       src.Title + " (Copy)",
		Description: src.Description,
		Fields:      fields,
		IsPublished: false,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("duplicate form: %w", err)
	}
	return &row, nil
}

// DeleteForm removes the form and detaches it from campaigns that used it.
// Active campaigns left without a form are paused.
func (s *Store) DeleteForm(ctx context.Context, id string) error {
	if !validID(id) {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&database.Campaign{}).
			Where("form_id = ? AND status = ?", id, database.CampaignActive).
			Update("status", database.CampaignPaused).Error; err != nil {
			return fmt.Errorf("pause campaigns: %w", err)
		}
		if err := tx.Model(&database.Campaign{}).Where("form_id = ?", id).Update("form_id", nil).Error; err != nil {
			return fmt.Errorf("detach form from campaigns: %w", err)
		}
		if err := tx.Delete(&database.Form{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("delete form: %w", err)
		}
		return nil
	})
}
