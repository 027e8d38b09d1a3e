package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"tfgRecruit/internal/database"
)

// CampaignInput is the full replacement payload of a campaign. An empty Status means draft.
type CampaignInput struct {
	Title       string
	Description string
	Status      string
	FormID      *string
}

// CampaignSummary is a list row with the form title and applicant count.
type CampaignSummary struct {
	database.Campaign
	FormTitle      string
	CandidateCount int64
}

func (s *Store) checkCampaignInput(ctx context.Context, in *CampaignInput) error {
	if in.Status == "" {
		in.Status = database.CampaignDraft
	}
	if !contains(database.CampaignStatuses, in.Status) {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, in.Status)
	}
	if in.FormID != nil && *in.FormID == "" {
		in.FormID = nil
	}
	if in.FormID == nil {
		if in.Status == database.CampaignActive {
			return ErrCampaignNeedsForm
		}
		return nil
	}
	if _, err := s.GetForm(ctx, *in.FormID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrFormNotFound
		}
		return err
	}
	return nil
}

func (s *Store) CreateCampaign(ctx context.Context, in CampaignInput) (*database.Campaign, error) {
	if err := s.checkCampaignInput(ctx, &in); err != nil {
		return nil, err
	}
	row := database.Campaign{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		FormID:      in.FormID,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}
	return &row, nil
}

// GetCampaign returns the campaign with its form preloaded.
func (s *Store) GetCampaign(ctx context.Context, id string) (*database.Campaign, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	var row database.Campaign
	if err := s.db.WithContext(ctx).Preload("Form").First(&row, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err, ErrNotFound)
	}
	return &row, nil
}

// ListCampaigns returns campaigns newest first with form titles and applicant counts.
func (s *Store) ListCampaigns(ctx context.Context) ([]CampaignSummary, error) {
	db := s.db.WithContext(ctx)

	var rows []database.Campaign
	if err := db.Preload("Form").Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}

	var counts []struct {
		CampaignID string
		Total      int64
	}
	if err := db.Model(&database.Candidate{}).
		Select("campaign_id, COUNT(*) AS total").
		Group("campaign_id").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("count candidates per campaign: %w", err)
	}
	byCampaign := make(map[string]int64, len(counts))
	for _, c := range counts {
		byCampaign[c.CampaignID] = c.Total
	}

	out := make([]CampaignSummary, 0, len(rows))
	for _, row := range rows {
		summary := CampaignSummary{Campaign: row, CandidateCount: byCampaign[row.ID]}
		if row.Form != nil {
			summary.FormTitle = row.Form.Title
		}
		out = append(out, summary)
	}
	return out, nil
}

// UpdateCampaign replaces title, description, status and form.
func (s *Store) UpdateCampaign(ctx context.Context, id string, in CampaignInput) (*database.Campaign, error) {
	row, err := s.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkCampaignInput(ctx, &in); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(row).Updates(map[string]any{
		"title":       in.Title,
		"description": in.Description,
		"status":      in.Status,
		"form_id":     in.FormID,
	}).Error; err != nil {
		return nil, fmt.Errorf("update campaign: %w", err)
	}
	return s.GetCampaign(ctx, id)
}

// DeleteCampaign removes the campaign together with its candidates and their history.
func (s *Store) DeleteCampaign(ctx context.Context, id string) error {
	if !validID(id) {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		candidateIDs := tx.Model(&database.Candidate{}).Select("id").Where("campaign_id = ?", id)
		if err := tx.Where("candidate_id IN (?)", candidateIDs).Delete(&database.StatusHistory{}).Error; err != nil {
			return fmt.Errorf("delete campaign history: %w", err)
		}
		if err := tx.Where("campaign_id = ?", id).Delete(&database.Candidate{}).Error; err != nil {
			return fmt.Errorf("delete campaign candidates: %w", err)
		}
		if err := tx.Delete(&database.Campaign{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("delete campaign: %w", err)
		}
		return nil
	})
}

// LatestCampaignByForm returns the most recently created campaign that uses the form.
func (s *Store) LatestCampaignByForm(ctx context.Context, formID string) (*database.Campaign, error) {
	if !validID(formID) {
		return nil, ErrNotFound
	}
	var row database.Campaign
	if err := s.db.WithContext(ctx).
		Where("form_id = ?", formID).
		Order("created_at DESC").
		First(&row).Error; err != nil {
		return nil, mapNotFound(err, ErrNotFound)
	}
	return &row, nil
}

// CountCampaigns returns the total and active campaign counts.
func (s *Store) CountCampaigns(ctx context.Context) (total, active int64, err error) {
	db := s.db.WithContext(ctx).Model(&database.Campaign{})
	if err = db.Count(&total).Error; err != nil {
		return 0, 0, fmt.Errorf("count campaigns: %w", err)
	}
	if err = s.db.WithContext(ctx).Model(&database.Campaign{}).
		Where("status = ?", database.CampaignActive).
		Count(&active).Error; err != nil {
		return 0, 0, fmt.Errorf("count active campaigns: %w", err)
	}
	return total, active, nil
}
