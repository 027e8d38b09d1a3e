package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Campaign statuses.
const (
	CampaignDraft  = "draft"
	CampaignActive = "active"
	CampaignPaused = "paused"
	CampaignClosed = "closed"
)

// Candidate statuses.
const (
	StatusPending   = "pending"
	StatusReviewing = "reviewing"
	StatusAccepted  = "accepted"
	StatusRejected  = "rejected"
)

// Email template types.
const (
	TemplateApplicationReceived = "application_received"
	TemplateUnderReview         = "under_review"
	TemplateAccepted            = "accepted"
	TemplateRejected            = "rejected"
)

// Reviewer account roles.
const (
	UserRoleAdmin     = "admin"
	UserRoleRecruiter = "recruiter"
)

// CampaignStatuses lists the allowed campaign states.
var CampaignStatuses = []string{CampaignDraft, CampaignActive, CampaignPaused, CampaignClosed}

// CandidateStatuses lists the allowed candidate states. Any transition between them is permitted.
var CandidateStatuses = []string{StatusPending, StatusReviewing, StatusAccepted, StatusRejected}

// TemplateTypes lists the allowed email template types.
var TemplateTypes = []string{TemplateApplicationReceived, TemplateUnderReview, TemplateAccepted, TemplateRejected}

// Base carries the uuid primary key and timestamps shared by every table.
type Base struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeforeCreate assigns a fresh uuid when none was set.
func (b *Base) BeforeCreate(_ *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// User is a reviewer account.
type User struct {
	Base
	Username           string `gorm:"uniqueIndex;size:64"`
	Role               string `gorm:"size:32;default:recruiter"`
	PasswordHash       string `gorm:"size:255"`
	MustChangePassword bool   `gorm:"default:false"`
}

// Form is a stored form schema. Fields holds the ordered field definitions as JSON.
type Form struct {
	Base
	Title       string         `gorm:"size:255;not null"`
	Description string         `gorm:"type:text"`
	Fields      datatypes.JSON `gorm:"type:jsonb"`
	IsPublished bool           `gorm:"default:false;index"`
}

// Campaign groups a form with a review status.
type Campaign struct {
	Base
	Title       string  `gorm:"size:255;not null"`
	Description string  `gorm:"type:text"`
	Status      string  `gorm:"size:16;default:draft;index"`
	FormID      *string `gorm:"type:uuid;index"`
	Form        *Form   `gorm:"constraint:OnDelete:SET NULL"`
}

// Candidate is one accepted application.
type Candidate struct {
	Base
	CampaignID  string         `gorm:"type:uuid;index;not null"`
	Campaign    *Campaign      `gorm:"constraint:OnDelete:CASCADE"`
	FormID      string         `gorm:"type:uuid;index;not null"`
	Data        datatypes.JSON `gorm:"type:jsonb"`
	Status      string         `gorm:"size:16;default:pending;index"`
	Email       string         `gorm:"size:255;not null"`
	Name        string         `gorm:"size:255;not null"`
	Phone       *string        `gorm:"size:64"`
	ResumeURL   *string        `gorm:"size:1024"`
	CoverLetter *string        `gorm:"type:text"`
	Rating      *int
	Notes       *string `gorm:"type:text"`
}

// StatusHistory is an append-only record of one candidate status transition.
type StatusHistory struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	CandidateID string    `gorm:"type:uuid;index;not null"`
	Status      string    `gorm:"size:16;not null"`
	Notes       string    `gorm:"type:text"`
	ReviewedBy  *string   `gorm:"size:255"`
	CreatedAt   time.Time `gorm:"index"`
}

func (StatusHistory) TableName() string { return "application_status_history" }

func (h *StatusHistory) BeforeCreate(_ *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}

// EmailTemplate is the message sent for a candidate status.
type EmailTemplate struct {
	Base
	Name    string `gorm:"size:255;not null"`
	Subject string `gorm:"size:255;not null"`
	Content string `gorm:"type:text;not null"`
	Type    string `gorm:"size:32;uniqueIndex"`
}
