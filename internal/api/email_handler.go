package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"tfgRecruit/internal/api/middleware"
	"tfgRecruit/internal/database"
	"tfgRecruit/internal/store"
	"tfgRecruit/internal/tasks"
)

// TaskEnqueuer is satisfied by *asynq.Client.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EmailStore is the persistence surface EmailHandler needs.
type EmailStore interface {
	GetCandidate(ctx context.Context, id string) (*store.CandidateDetail, error)
	ListEmailTemplates(ctx context.Context) ([]database.EmailTemplate, error)
	UpdateEmailTemplate(ctx context.Context, id string, in store.EmailTemplateInput) (*database.EmailTemplate, error)
}

// EmailHandler queues notification emails and edits their templates.
type EmailHandler struct {
	emails EmailStore
	queue  TaskEnqueuer
}

func NewEmailHandler(emails EmailStore, queue TaskEnqueuer) *EmailHandler {
	return &EmailHandler{emails: emails, queue: queue}
}

type notifyRequest struct {
	CandidateID   string `json:"candidate_id" binding:"required"`
	Status        string `json:"status" binding:"required,candidate_status"`
	CustomMessage string `json:"custom_message"`
}

type queuedResponse struct {
	TaskID string `json:"task_id"`
}

// NotifyCandidate queues the status email for a candidate.
func (h *EmailHandler) NotifyCandidate(c *gin.Context) {
	var req notifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "candidate_id and a valid status are required")
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c).With(slog.String("candidate_id", req.CandidateID))

	if _, err := h.emails.GetCandidate(ctx, req.CandidateID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "Candidate not found")
			return
		}
		logger.Error("load candidate failed", slog.Any("error", err))
		Internal(c, "Failed to queue email")
		return
	}

	task, err := tasks.NewEmailNotifyTask(tasks.EmailNotifyPayload{
		CandidateID:   req.CandidateID,
		Status:        req.Status,
		CustomMessage: req.CustomMessage,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		logger.Error("build email task failed", slog.Any("error", err))
		Internal(c, "Failed to queue email")
		return
	}
	h.enqueue(c, task, logger)
}

type testEmailRequest struct {
	To string `json:"to" binding:"required,email"`
}

func (h *EmailHandler) SendTest(c *gin.Context) {
	var req testEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "A valid recipient address is required")
		return
	}
	logger := middleware.LoggerFromContext(c)
	task, err := tasks.NewEmailTestTask(tasks.EmailTestPayload{To: req.To, CorrelationID: middleware.GetCorrelationID(c)})
	if err != nil {
		logger.Error("build test email task failed", slog.Any("error", err))
		Internal(c, "Failed to queue email")
		return
	}
	h.enqueue(c, task, logger)
}

func (h *EmailHandler) enqueue(c *gin.Context, task *asynq.Task, logger *slog.Logger) {
	info, err := h.queue.EnqueueContext(c.Request.Context(), task)
	if err != nil {
		logger.Error("enqueue email task failed", slog.String("task_type", task.Type()), slog.Any("error", err))
		Internal(c, "Failed to queue email")
		return
	}
	logger.Info("email task queued", slog.String("task_type", task.Type()), slog.String("task_id", info.ID))
	c.JSON(http.StatusAccepted, queuedResponse{TaskID: info.ID})
}

func (h *EmailHandler) ListTemplates(c *gin.Context) {
	rows, err := h.emails.ListEmailTemplates(c.Request.Context())
	if err != nil {
		middleware.LoggerFromContext(c).Error("list email templates failed", slog.Any("error", err))
		Internal(c, "Failed to fetch email templates")
		return
	}
	out := make([]templateView, 0, len(rows))
	for _, row := range rows {
		out = append(out, newTemplateView(row))
	}
	c.JSON(http.StatusOK, out)
}

type templateRequest struct {
	Name    string `json:"name"`
	Subject string `json:"subject" binding:"required,max=255"`
	Content string `json:"content" binding:"required"`
}

func (h *EmailHandler) UpdateTemplate(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Subject and content are required")
		return
	}
	row, err := h.emails.UpdateEmailTemplate(c.Request.Context(), c.Param("id"), store.EmailTemplateInput{
		Name:    req.Name,
		Subject: req.Subject,
		Content: req.Content,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "Template not found")
			return
		}
		middleware.LoggerFromContext(c).Error("update email template failed", slog.Any("error", err))
		Internal(c, "Failed to update email template")
		return
	}
	c.JSON(http.StatusOK, newTemplateView(*row))
}
