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

const submittedNote = "Application submitted"

// NewCandidate is an accepted submission ready to be persisted.
type NewCandidate struct {
	CampaignID  string
	FormID      string
	Answers     form.Answers
	Email       string
	Name        string
	Phone       *string
	ResumeURL   *string
	CoverLetter *string

	// Check runs inside the transaction once the campaign and form are verified.
	Check func(schema form.Schema) error
}

// CandidateFilter narrows ListCandidates. Zero Limit means 50.
type CandidateFilter struct {
	CampaignID string
	Status     string
	Limit      int
	Offset     int
}

// StatusChange is one reviewer transition.
type StatusChange struct {
	Status     string
	Notes      string
	ReviewedBy *string
}

// CandidateDetails holds the reviewer-editable attributes. Nil members are left alone.
type CandidateDetails struct {
	Rating *int
	Notes  *string
}

// CandidateDetail is a candidate with its campaign and newest-first history.
type CandidateDetail struct {
	database.Candidate
	History []database.StatusHistory
}

// CampaignAccepts reports whether the campaign takes applications through formID.
func CampaignAccepts(campaign database.Campaign, formID string) error {
	if campaign.Status != database.CampaignActive {
		return ErrCampaignNotActive
	}
	if campaign.FormID == nil || *campaign.FormID != formID {
		return ErrFormMismatch
	}
	return nil
}

// CreateCandidate verifies the campaign accepts applications for the form, then writes the
// candidate and its first history entry in one transaction.
func (s *Store) CreateCandidate(ctx context.Context, in NewCandidate) (*database.Candidate, error) {
	if !validID(in.CampaignID) {
		return nil, ErrCampaignNotFound
	}
	if in.Answers == nil {
		in.Answers = form.Answers{}
	}
	data, err := json.Marshal(in.Answers)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}

	var row database.Candidate
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var campaign database.Campaign
		if err := tx.First(&campaign, "id = ?", in.CampaignID).Error; err != nil {
			return mapNotFound(err, ErrCampaignNotFound)
		}
		if err := CampaignAccepts(campaign, in.FormID); err != nil {
			return err
		}

		var stored database.Form
		if err := tx.First(&stored, "id = ?", in.FormID).Error; err != nil {
			return mapNotFound(err, ErrFormNotFound)
		}
		if !stored.IsPublished {
			return ErrFormNotPublished
		}
		if in.Check != nil {
			schema, err := SchemaOf(stored)
			if err != nil {
				return err
			}
			if err := in.Check(schema); err != nil {
				return err
			}
		}

		row = database.Candidate{
			CampaignID:  in.CampaignID,
			FormID:      in.FormID,
			Data:        datatypes.JSON(data),
			Status:      database.StatusPending,
			Email:       in.Email,
			Name:        in.Name,
			Phone:       in.Phone,
			ResumeURL:   in.ResumeURL,
			CoverLetter: in.CoverLetter,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("create candidate: %w", err)
		}
		entry := database.StatusHistory{
			CandidateID: row.ID,
			Status:      database.StatusPending,
			Notes:       submittedNote,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("create status history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// GetCandidate returns the candidate with its campaign and history.
func (s *Store) GetCandidate(ctx context.Context, id string) (*CandidateDetail, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	db := s.db.WithContext(ctx)
	var row database.Candidate
	if err := db.Preload("Campaign").First(&row, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err, ErrNotFound)
	}
	history, err := s.History(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CandidateDetail{Candidate: row, History: history}, nil
}

// History returns a candidate's status history newest first.
func (s *Store) History(ctx context.Context, candidateID string) ([]database.StatusHistory, error) {
	var history []database.StatusHistory
	if err := s.db.WithContext(ctx).
		Where("candidate_id = ?", candidateID).
		Order("created_at DESC").
		Find(&history).Error; err != nil {
		return nil, fmt.Errorf("load status history: %w", err)
	}
	return history, nil
}

// ListCandidates returns candidates newest first with their campaign preloaded.
func (s *Store) ListCandidates(ctx context.Context, f CandidateFilter) ([]database.Candidate, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	q := s.db.WithContext(ctx).Preload("Campaign").Order("created_at DESC")
	if f.CampaignID != "" {
		if !validID(f.CampaignID) {
			return []database.Candidate{}, nil
		}
		q = q.Where("campaign_id = ?", f.CampaignID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var rows []database.Candidate
	if err := q.Limit(f.Limit).Offset(f.Offset).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	return rows, nil
}

// UpdateCandidateStatus moves the candidate to a new status and appends one history entry.
// Any status may follow any other.
func (s *Store) UpdateCandidateStatus(ctx context.Context, id string, change StatusChange) (*database.Candidate, error) {
	if !contains(database.CandidateStatuses, change.Status) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, change.Status)
	}
	if !validID(id) {
		return nil, ErrNotFound
	}
	var row database.Candidate
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, "id = ?", id).Error; err != nil {
			return mapNotFound(err, ErrNotFound)
		}
		if err := tx.Model(&row).Update("status", change.Status).Error; err != nil {
			return fmt.Errorf("update candidate status: %w", err)
		}
		entry := database.StatusHistory{
			CandidateID: row.ID,
			Status:      change.Status,
			Notes:       change.Notes,
			ReviewedBy:  change.ReviewedBy,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("create status history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	row.Status = change.Status
	return &row, nil
}

// UpdateCandidateDetails sets rating and notes. Rating must be within 1..5.
func (s *Store) UpdateCandidateDetails(ctx context.Context, id string, d CandidateDetails) (*database.Candidate, error) {
	if d.Rating != nil && (*d.Rating < 1 || *d.Rating > 5) {
		return nil, ErrInvalidRating
	}
	if !validID(id) {
		return nil, ErrNotFound
	}
	db := s.db.WithContext(ctx)
	var row database.Candidate
	if err := db.First(&row, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err, ErrNotFound)
	}
	updates := map[string]any{}
	if d.Rating != nil {
		updates["rating"] = *d.Rating
	}
	if d.Notes != nil {
		updates["notes"] = *d.Notes
	}
	if len(updates) > 0 {
		if err := db.Model(&row).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update candidate: %w", err)
		}
	}
	if err := db.First(&row, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("reload candidate: %w", err)
	}
	return &row, nil
}

// DeleteCandidate removes the candidate and its history.
func (s *Store) DeleteCandidate(ctx context.Context, id string) error {
	if !validID(id) {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("candidate_id = ?", id).Delete(&database.StatusHistory{}).Error; err != nil {
			return fmt.Errorf("delete status history: %w", err)
		}
		if err := tx.Delete(&database.Candidate{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("delete candidate: %w", err)
		}
		return nil
	})
}

// CandidateStatuses loads the status column, optionally for one campaign.
func (s *Store) CandidateStatuses(ctx context.Context, campaignID string) ([]string, error) {
	q := s.db.WithContext(ctx).Model(&database.Candidate{})
	if campaignID != "" {
		if !validID(campaignID) {
			return []string{}, nil
		}
		q = q.Where("campaign_id = ?", campaignID)
	}
	var statuses []string
	if err := q.Pluck("status", &statuses).Error; err != nil {
		return nil, fmt.Errorf("load candidate statuses: %w", err)
	}
	return statuses, nil
}
