package api

import (
	"encoding/json"
	"time"

	"tfgRecruit/internal/database"
	"tfgRecruit/internal/form"
	"tfgRecruit/internal/store"
)

type formView struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Fields      []form.Field `json:"fields"`
	IsPublished bool         `json:"is_published"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func newFormView(f database.Form) (formView, error) {
	fields, err := store.DecodeFields(f.Fields)
	if err != nil {
		return formView{}, err
	}
	return formView{
		ID:          f.ID,
		Title:       f.Title,
		Description: f.Description,
		Fields:      fields,
		IsPublished: f.IsPublished,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}, nil
}

type formRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type campaignView struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Status         string          `json:"status"`
	FormID         *string         `json:"form_id"`
	Form           *formRef        `json:"form,omitempty"`
	FormTitle      string          `json:"form_title,omitempty"`
	CandidateCount *int64          `json:"candidate_count,omitempty"`
	Candidates     []candidateView `json:"candidates,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func newCampaignView(c database.Campaign) campaignView {
	v := campaignView{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Status:      c.Status,
		FormID:      c.FormID,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	if c.Form != nil {
		v.Form = &formRef{ID: c.Form.ID, Title: c.Form.Title}
	}
	return v
}

func newCampaignSummaryView(s store.CampaignSummary) campaignView {
	v := newCampaignView(s.Campaign)
	v.FormTitle = s.FormTitle
	count := s.CandidateCount
	v.CandidateCount = &count
	return v
}

type campaignRef struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

type candidateView struct {
	ID          string          `json:"id"`
	CampaignID  string          `json:"campaign_id"`
	Campaign    *campaignRef    `json:"campaign,omitempty"`
	FormID      string          `json:"form_id"`
	Data        json.RawMessage `json:"data"`
	Status      string          `json:"status"`
	Email       string          `json:"email"`
	Name        string          `json:"name"`
	Phone       *string         `json:"phone"`
	ResumeURL   *string         `json:"resume_url"`
	CoverLetter *string         `json:"cover_letter"`
	Rating      *int            `json:"rating"`
	Notes       *string         `json:"notes"`
	History     []historyView   `json:"history,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func newCandidateView(c database.Candidate) candidateView {
	data := json.RawMessage(c.Data)
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	v := candidateView{
		ID:          c.ID,
		CampaignID:  c.CampaignID,
		FormID:      c.FormID,
		Data:        data,
		Status:      c.Status,
		Email:       c.Email,
		Name:        c.Name,
		Phone:       c.Phone,
		ResumeURL:   c.ResumeURL,
		CoverLetter: c.CoverLetter,
		Rating:      c.Rating,
		Notes:       c.Notes,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	if c.Campaign != nil {
		v.Campaign = &campaignRef{ID: c.Campaign.ID, Title: c.Campaign.Title, Status: c.Campaign.Status}
	}
	return v
}

func newCandidateViews(rows []database.Candidate) []candidateView {
	out := make([]candidateView, 0, len(rows))
	for _, row := range rows {
		out = append(out, newCandidateView(row))
	}
	return out
}

type historyView struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	Notes      string    `json:"notes"`
	ReviewedBy *string   `json:"reviewed_by"`
	CreatedAt  time.Time `json:"created_at"`
}

func newHistoryViews(rows []database.StatusHistory) []historyView {
	out := make([]historyView, 0, len(rows))
	for _, h := range rows {
		out = append(out, historyView{
			ID:         h.ID,
			Status:     h.Status,
			Notes:      h.Notes,
			ReviewedBy: h.ReviewedBy,
			CreatedAt:  h.CreatedAt,
		})
	}
	return out
}

type templateView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newTemplateView(t database.EmailTemplate) templateView {
	return templateView{
		ID:        t.ID,
		Name:      t.Name,
		Subject:   t.Subject,
		Content:   t.Content,
		Type:      t.Type,
		UpdatedAt: t.UpdatedAt,
	}
}
