package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"tfgRecruit/internal/api/middleware"
	"tfgRecruit/internal/database"
	"tfgRecruit/internal/events"
	"tfgRecruit/internal/form"
	"tfgRecruit/internal/intake"
	"tfgRecruit/internal/metrics"
	"tfgRecruit/internal/report"
	"tfgRecruit/internal/store"
)

// CandidateStore is the persistence surface CandidateHandler needs.
type CandidateStore interface {
	CreateCandidate(ctx context.Context, in store.NewCandidate) (*database.Candidate, error)
	GetCandidate(ctx context.Context, id string) (*store.CandidateDetail, error)
	ListCandidates(ctx context.Context, f store.CandidateFilter) ([]database.Candidate, error)
	UpdateCandidateStatus(ctx context.Context, id string, change store.StatusChange) (*database.Candidate, error)
	UpdateCandidateDetails(ctx context.Context, id string, d store.CandidateDetails) (*database.Candidate, error)
	DeleteCandidate(ctx context.Context, id string) error
	LatestCampaignByForm(ctx context.Context, formID string) (*database.Campaign, error)
	GetForm(ctx context.Context, id string) (*database.Form, error)
}

// CandidateHandler serves the review pipeline and both application entry points.
type CandidateHandler struct {
	candidates     CandidateStore
	submitter      *intake.Submitter
	reports        *report.Service
	publisher      events.Publisher
	maxUploadBytes int64
}

func NewCandidateHandler(candidates CandidateStore, submitter *intake.Submitter, reports *report.Service, publisher events.Publisher, maxUploadBytes int64) *CandidateHandler {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &CandidateHandler{
		candidates:     candidates,
		submitter:      submitter,
		reports:        reports,
		publisher:      publisher,
		maxUploadBytes: maxUploadBytes,
	}
}

type createCandidateRequest struct {
	CampaignID  string       `json:"campaign_id"`
	FormID      string       `json:"form_id"`
	Data        form.Answers `json:"data"`
	Email       string       `json:"email"`
	Name        string       `json:"name"`
	Phone       *string      `json:"phone"`
	ResumeURL   *string      `json:"resume_url"`
	CoverLetter *string      `json:"cover_letter"`
}

func (r createCandidateRequest) missingRequired() bool {
	return strings.TrimSpace(r.CampaignID) == "" ||
		strings.TrimSpace(r.FormID) == "" ||
		strings.TrimSpace(r.Email) == "" ||
		strings.TrimSpace(r.Name) == ""
}

// Create stores an already assembled application. The answers are checked against the
// stored form inside the same transaction as the insert.
func (h *CandidateHandler) Create(c *gin.Context) {
	var req createCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.missingRequired() {
		metrics.ObserveApplication(metrics.OutcomeInvalid)
		BadRequest(c, "Missing required fields")
		return
	}

	answers := req.Data
	row, err := h.candidates.CreateCandidate(c.Request.Context(), store.NewCandidate{
		CampaignID:  req.CampaignID,
		FormID:      req.FormID,
		Answers:     answers,
		Email:       strings.TrimSpace(req.Email),
		Name:        strings.TrimSpace(req.Name),
		Phone:       req.Phone,
		ResumeURL:   req.ResumeURL,
		CoverLetter: req.CoverLetter,
		Check: func(schema form.Schema) error {
			return intake.Validate(schema, intake.Submission{Answers: answers})
		},
	})
	if err != nil {
		writeSubmissionError(c, err)
		return
	}

	metrics.ObserveApplication(metrics.OutcomeAccepted)
	h.publish(c, events.TypeCandidateCreated, *row)
	c.JSON(http.StatusCreated, newCandidateView(*row))
}

type applyResponse struct {
	Candidate     candidateView `json:"candidate"`
	DroppedFields []string      `json:"dropped_fields"`
}

// Apply accepts a multipart or urlencoded submission of a published form. Each form field
// is posted under its field id; checkbox fields may repeat. campaign_id defaults to the
// newest campaign using the form. The body is capped at one upload limit per file field.
func (h *CandidateHandler) Apply(c *gin.Context) {
	ctx := c.Request.Context()
	formID := c.Param("id")

	limit, err := h.applyBodyLimit(ctx, formID)
	if err != nil {
		writeSubmissionError(c, err)
		return
	}
	if c.Request.ContentLength > limit {
		metrics.ObserveApplication(metrics.OutcomeInvalid)
		BadRequest(c, "Submission too large")
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	if err := c.Request.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		metrics.ObserveApplication(metrics.OutcomeInvalid)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			BadRequest(c, "Submission too large")
			return
		}
		BadRequest(c, "Invalid form submission")
		return
	}

	campaignID := c.PostForm("campaign_id")
	if campaignID == "" {
		campaign, err := h.candidates.LatestCampaignByForm(ctx, formID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				metrics.ObserveApplication(metrics.OutcomeRejected)
				NotFound(c, "Campaign not found")
				return
			}
			middleware.LoggerFromContext(c).Error("find campaign for form failed", slog.Any("error", err))
			Internal(c, "Failed to submit application")
			return
		}
		campaignID = campaign.ID
	}

	sub := intake.Submission{Answers: form.Answers{}, Files: map[string]intake.Upload{}}
	if mf := c.Request.MultipartForm; mf != nil {
		collectAnswers(sub.Answers, mf.Value)
		for key, headers := range mf.File {
			if len(headers) > 0 {
				sub.Files[key] = uploadFromHeader(headers[0])
			}
		}
	} else {
		collectAnswers(sub.Answers, c.Request.PostForm)
	}

	receipt, err := h.submitter.Submit(ctx, campaignID, formID, sub)
	if err != nil {
		writeSubmissionError(c, err)
		return
	}

	metrics.ObserveApplication(metrics.OutcomeAccepted)
	h.publish(c, events.TypeCandidateCreated, *receipt.Candidate)
	dropped := receipt.Dropped
	if dropped == nil {
		dropped = []string{}
	}
	c.JSON(http.StatusCreated, applyResponse{Candidate: newCandidateView(*receipt.Candidate), DroppedFields: dropped})
}

// applyBodyLimit sizes the request cap from the number of file fields on the form.
func (h *CandidateHandler) applyBodyLimit(ctx context.Context, formID string) (int64, error) {
	stored, err := h.candidates.GetForm(ctx, formID)
	if err != nil {
		return 0, err
	}
	fields, err := store.DecodeFields(stored.Fields)
	if err != nil {
		return 0, err
	}
	var files int64
	for _, f := range fields {
		if f.Type == form.TypeFile {
			files++
		}
	}
	return files*h.maxUploadBytes + multipartOverhead, nil
}

// collectAnswers maps posted values to answers. Repeated keys and keys ending in "[]" become lists.
func collectAnswers(dst form.Answers, values map[string][]string) {
	for key, vs := range values {
		if key == "campaign_id" {
			continue
		}
		if len(vs) == 1 && !strings.HasSuffix(key, "[]") {
			dst[key] = form.Text(vs[0])
			continue
		}
		dst[strings.TrimSuffix(key, "[]")] = form.List(vs...)
	}
}

func writeSubmissionError(c *gin.Context, err error) {
	var validationErr *intake.ValidationError
	var identityErr *intake.IdentityError
	outcome := metrics.OutcomeRejected
	switch {
	case errors.As(err, &validationErr):
		outcome = metrics.OutcomeInvalid
		BadRequest(c, validationErr.Message)
	case errors.As(err, &identityErr):
		outcome = metrics.OutcomeInvalid
		BadRequest(c, identityErr.Error())
	case errors.Is(err, store.ErrCampaignNotFound):
		NotFound(c, "Campaign not found")
	case errors.Is(err, store.ErrCampaignNotActive):
		BadRequest(c, "Campaign is not active")
	case errors.Is(err, store.ErrFormNotPublished):
		BadRequest(c, "Form is not published")
	case errors.Is(err, store.ErrFormMismatch):
		BadRequest(c, "Form does not belong to this campaign")
	case errors.Is(err, store.ErrFormNotFound), errors.Is(err, store.ErrNotFound):
		NotFound(c, "Form not found")
	default:
		outcome = metrics.OutcomeError
		middleware.LoggerFromContext(c).Error("create candidate failed", slog.Any("error", err))
		Internal(c, "Failed to create candidate")
	}
	metrics.ObserveApplication(outcome)
}

func (h *CandidateHandler) List(c *gin.Context) {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		BadRequest(c, "limit must be a number")
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		BadRequest(c, "offset must be a number")
		return
	}
	h.list(c, store.CandidateFilter{
		CampaignID: c.Query("campaign_id"),
		Status:     c.Query("status"),
		Limit:      limit,
		Offset:     offset,
	})
}

func (h *CandidateHandler) ListByCampaign(c *gin.Context) {
	h.list(c, store.CandidateFilter{
		CampaignID: c.Param("campaignId"),
		Status:     c.Query("status"),
		Limit:      campaignCandidateLimit,
	})
}

func (h *CandidateHandler) list(c *gin.Context, f store.CandidateFilter) {
	rows, err := h.candidates.ListCandidates(c.Request.Context(), f)
	if err != nil {
		middleware.LoggerFromContext(c).Error("list candidates failed", slog.Any("error", err))
		Internal(c, "Failed to fetch candidates")
		return
	}
	c.JSON(http.StatusOK, newCandidateViews(rows))
}

func (h *CandidateHandler) Get(c *gin.Context) {
	detail, err := h.candidates.GetCandidate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "Failed to fetch candidate")
		return
	}
	v := newCandidateView(detail.Candidate)
	v.History = newHistoryViews(detail.History)
	c.JSON(http.StatusOK, v)
}

type statusRequest struct {
	Status     string  `json:"status" binding:"required,candidate_status"`
	Notes      string  `json:"notes"`
	ReviewedBy *string `json:"reviewed_by"`
}

// UpdateStatus moves a candidate to a new status and records who did it.
func (h *CandidateHandler) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Status must be pending, reviewing, accepted or rejected")
		return
	}
	reviewedBy := req.ReviewedBy
	if reviewedBy == nil || strings.TrimSpace(*reviewedBy) == "" {
		if username := middleware.CurrentUsername(c); username != "" {
			reviewedBy = &username
		} else {
			reviewedBy = nil
		}
	}

	row, err := h.candidates.UpdateCandidateStatus(c.Request.Context(), c.Param("id"), store.StatusChange{
		Status:     req.Status,
		Notes:      req.Notes,
		ReviewedBy: reviewedBy,
	})
	if err != nil {
		h.writeError(c, err, "Failed to update candidate status")
		return
	}

	metrics.ObserveStatusChange(row.Status)
	h.publish(c, events.TypeStatusChanged, *row)
	c.JSON(http.StatusOK, newCandidateView(*row))
}

type detailsRequest struct {
	Rating *int    `json:"rating"`
	Notes  *string `json:"notes"`
}

func (h *CandidateHandler) UpdateDetails(c *gin.Context) {
	var req detailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body")
		return
	}
	row, err := h.candidates.UpdateCandidateDetails(c.Request.Context(), c.Param("id"), store.CandidateDetails{
		Rating: req.Rating,
		Notes:  req.Notes,
	})
	if err != nil {
		h.writeError(c, err, "Failed to update candidate")
		return
	}
	c.JSON(http.StatusOK, newCandidateView(*row))
}

func (h *CandidateHandler) Delete(c *gin.Context) {
	if err := h.candidates.DeleteCandidate(c.Request.Context(), c.Param("id")); err != nil {
		middleware.LoggerFromContext(c).Error("delete candidate failed", slog.Any("error", err))
		Internal(c, "Failed to delete candidate")
		return
	}
	c.Status(http.StatusNoContent)
}

// Overview returns status counts across all candidates, optionally for one campaign.
func (h *CandidateHandler) Overview(c *gin.Context) {
	counts, err := h.reports.Overview(c.Request.Context(), c.Query("campaign_id"))
	if err != nil {
		middleware.LoggerFromContext(c).Error("candidate overview failed", slog.Any("error", err))
		Internal(c, "Failed to fetch candidate stats")
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *CandidateHandler) writeError(c *gin.Context, err error, failure string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		NotFound(c, "Candidate not found")
	case errors.Is(err, store.ErrInvalidStatus):
		BadRequest(c, "Invalid status")
	case errors.Is(err, store.ErrInvalidRating):
		BadRequest(c, "Rating must be between 1 and 5")
	default:
		middleware.LoggerFromContext(c).Error(failure, slog.Any("error", err))
		Internal(c, failure)
	}
}

// publish is best effort; a failed publish never fails the request.
func (h *CandidateHandler) publish(c *gin.Context, eventType string, row database.Candidate) {
	err := h.publisher.Publish(c.Request.Context(), events.Event{
		Type:        eventType,
		CandidateID: row.ID,
		CampaignID:  row.CampaignID,
		Status:      row.Status,
		Name:        row.Name,
	})
	if err != nil {
		middleware.LoggerFromContext(c).Warn("publish candidate event failed", slog.Any("error", err))
	}
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
