// Package store persists forms, campaigns, candidates and their status history.
package store

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrCampaignNotActive = errors.New("campaign is not active")
	ErrCampaignNeedsForm = errors.New("active campaign requires a form")
	ErrFormNotFound      = errors.New("form not found")
	ErrFormNotPublished  = errors.New("form is not published")
	ErrFormMismatch      = errors.New("form does not belong to campaign")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
)

// Store wraps the gorm handle shared by every repository method.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// validID guards uuid columns so malformed path ids read as missing rows instead of driver errors.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func mapNotFound(err error, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
