package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tfgRecruit/internal/api/middleware"
	"tfgRecruit/internal/database"
	"tfgRecruit/internal/report"
	"tfgRecruit/internal/store"
)

// campaignCandidateLimit caps the candidates embedded in a campaign detail response.
const campaignCandidateLimit = 500

// CampaignStore is the persistence surface CampaignHandler needs.
type CampaignStore interface {
	CreateCampaign(ctx context.Context, in store.CampaignInput) (*database.Campaign, error)
	GetCampaign(ctx context.Context, id string) (*database.Campaign, error)
	ListCampaigns(ctx context.Context) ([]store.CampaignSummary, error)
	UpdateCampaign(ctx context.Context, id string, in store.CampaignInput) (*database.Campaign, error)
	DeleteCampaign(ctx context.Context, id string) error
	LatestCampaignByForm(ctx context.Context, formID string) (*database.Campaign, error)
	ListCandidates(ctx context.Context, f store.CandidateFilter) ([]database.Candidate, error)
}

type CampaignHandler struct {
	campaigns CampaignStore
	reports   *report.Service
}

func NewCampaignHandler(campaigns CampaignStore, reports *report.Service) *CampaignHandler {
	return &CampaignHandler{campaigns: campaigns, reports: reports}
}

type campaignRequest struct {
	Title       string  `json:"title" binding:"required,max=255"`
	Description string  `json:"description"`
	Status      string  `json:"status" binding:"omitempty,campaign_status"`
	FormID      *string `json:"form_id"`
}

func (r campaignRequest) input() store.CampaignInput {
	formID := r.FormID
	if formID != nil && strings.TrimSpace(*formID) == "" {
		formID = nil
	}
	return store.CampaignInput{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		FormID:      formID,
	}
}

func (h *CampaignHandler) List(c *gin.Context) {
	rows, err := h.campaigns.ListCampaigns(c.Request.Context())
	if err != nil {
		middleware.LoggerFromContext(c).Error("list campaigns failed", slog.Any("error", err))
		Internal(c, "Failed to fetch campaigns")
		return
	}
	out := make([]campaignView, 0, len(rows))
	for _, row := range rows {
		out = append(out, newCampaignSummaryView(row))
	}
	c.JSON(http.StatusOK, out)
}

// Get returns the campaign with its form and candidates.
func (h *CampaignHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	row, err := h.campaigns.GetCampaign(ctx, c.Param("id"))
	if err != nil {
		h.writeError(c, err, "Failed to fetch campaign")
		return
	}
	candidates, err := h.campaigns.ListCandidates(ctx, store.CandidateFilter{CampaignID: row.ID, Limit: campaignCandidateLimit})
	if err != nil {
		h.writeError(c, err, "Failed to fetch campaign")
		return
	}
	v := newCampaignView(*row)
	v.Candidates = newCandidateViews(candidates)
	c.JSON(http.StatusOK, v)
}

func (h *CampaignHandler) Create(c *gin.Context) {
	var req campaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Title is required and status must be draft, active, paused or closed")
		return
	}
	row, err := h.campaigns.CreateCampaign(c.Request.Context(), req.input())
	if err != nil {
		h.writeError(c, err, "Failed to create campaign")
		return
	}
	c.JSON(http.StatusCreated, newCampaignView(*row))
}

func (h *CampaignHandler) Update(c *gin.Context) {
	var req campaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Title is required and status must be draft, active, paused or closed")
		return
	}
	row, err := h.campaigns.UpdateCampaign(c.Request.Context(), c.Param("id"), req.input())
	if err != nil {
		h.writeError(c, err, "Failed to update campaign")
		return
	}
	c.JSON(http.StatusOK, newCampaignView(*row))
}

func (h *CampaignHandler) Delete(c *gin.Context) {
	if err := h.campaigns.DeleteCampaign(c.Request.Context(), c.Param("id")); err != nil {
		middleware.LoggerFromContext(c).Error("delete campaign failed", slog.Any("error", err))
		Internal(c, "Failed to delete campaign")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CampaignHandler) Stats(c *gin.Context) {
	counts, err := h.reports.Campaign(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.LoggerFromContext(c).Error("campaign stats failed", slog.Any("error", err))
		Internal(c, "Failed to fetch campaign stats")
		return
	}
	c.JSON(http.StatusOK, counts)
}

// ByForm returns the newest campaign using the form, used by the public application page.
func (h *CampaignHandler) ByForm(c *gin.Context) {
	row, err := h.campaigns.LatestCampaignByForm(c.Request.Context(), c.Param("formId"))
	if err != nil {
		h.writeError(c, err, "Failed to fetch campaign")
		return
	}
	c.JSON(http.StatusOK, newCampaignView(*row))
}

func (h *CampaignHandler) writeError(c *gin.Context, err error, failure string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		NotFound(c, "Campaign not found")
	case errors.Is(err, store.ErrInvalidStatus):
		BadRequest(c, "Invalid campaign status")
	case errors.Is(err, store.ErrCampaignNeedsForm):
		BadRequest(c, "An active campaign needs a form")
	case errors.Is(err, store.ErrFormNotFound):
		BadRequest(c, "Form not found")
	default:
		middleware.LoggerFromContext(c).Error(failure, slog.Any("error", err))
		Internal(c, failure)
	}
}
