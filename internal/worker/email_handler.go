package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	"tfgRecruit/internal/database"
	"tfgRecruit/internal/mail"
	"tfgRecruit/internal/store"
	"tfgRecruit/internal/tasks"
)

// EmailSource is the read side of the store the email tasks need.
type EmailSource interface {
	GetCandidate(ctx context.Context, id string) (*store.CandidateDetail, error)
	EmailTemplateByType(ctx context.Context, templateType string) (*database.EmailTemplate, error)
}

// EmailTaskHandler consumes notification and test email tasks.
type EmailTaskHandler struct {
	src    EmailSource
	mailer mail.Mailer
	logger *slog.Logger
}

func NewEmailTaskHandler(src EmailSource, mailer mail.Mailer, logger *slog.Logger) *EmailTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailTaskHandler{src: src, mailer: mailer, logger: logger}
}

// TemplateTypeFor maps a candidate status to the template sent for it.
func TemplateTypeFor(status string) string {
	switch status {
	case database.StatusReviewing:
		return database.TemplateUnderReview
	case database.StatusAccepted:
		return database.TemplateAccepted
	case database.StatusRejected:
		return database.TemplateRejected
	default:
		return database.TemplateApplicationReceived
	}
}

// RenderTemplate substitutes the placeholders and appends the reviewer's custom message.
func RenderTemplate(tpl database.EmailTemplate, candidateName, campaignTitle, customMessage string) (subject, body string) {
	r := strings.NewReplacer(
		"{{candidate_name}}", candidateName,
		"{{campaign_title}}", campaignTitle,
	)
	subject = r.Replace(tpl.Subject)
	body = r.Replace(tpl.Content)
	if strings.TrimSpace(customMessage) != "" {
		body += "\n\n" + customMessage
	}
	return subject, body
}

// ProcessTask implements asynq.Handler.
func (h *EmailTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	defer func() {
		if retErr != nil && isFinalAsynqAttempt(ctx) {
			h.logger.Error("email task exhausted retries",
				slog.String("task_type", t.Type()),
				slog.Any("error", retErr),
			)
		}
	}()

	switch t.Type() {
	case tasks.TypeEmailNotify:
		return h.processNotify(ctx, t)
	case tasks.TypeEmailTest:
		return h.processTest(ctx, t)
	default:
		return fmt.Errorf("unexpected task type %q: %w", t.Type(), asynq.SkipRetry)
	}
}

func (h *EmailTaskHandler) processNotify(ctx context.Context, t *asynq.Task) error {
	var payload tasks.EmailNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("decode payload: %w", asynq.SkipRetry)
	}

	log := h.logger.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("candidate_id", payload.CandidateID),
		slog.String("status", payload.Status),
	)

	candidate, err := h.src.GetCandidate(ctx, payload.CandidateID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("candidate not found, skipping email")
			return nil
		}
		log.Error("load candidate failed", slog.Any("error", err))
		return err
	}

	tpl, err := h.src.EmailTemplateByType(ctx, TemplateTypeFor(payload.Status))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("email template missing, skipping email")
			return fmt.Errorf("template %s missing: %w", TemplateTypeFor(payload.Status), asynq.SkipRetry)
		}
		log.Error("load email template failed", slog.Any("error", err))
		return err
	}

	campaignTitle := ""
	if candidate.Campaign != nil {
		campaignTitle = candidate.Campaign.Title
	}
	subject, body := RenderTemplate(*tpl, candidate.Name, campaignTitle, payload.CustomMessage)

	if err := h.mailer.Send(ctx, mail.Message{To: candidate.Email, Subject: subject, Body: body}); err != nil {
		log.Error("send notification email failed", slog.Any("error", err))
		return err
	}
	log.Info("notification email sent")
	return nil
}

func (h *EmailTaskHandler) processTest(ctx context.Context, t *asynq.Task) error {
	var payload tasks.EmailTestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", asynq.SkipRetry)
	}
	msg := mail.Message{
		To:      payload.To,
		Subject: "Test email from the recruitment CRM",
		Body:    "This is a test email. If you can read it, outgoing mail is configured correctly.",
	}
	if err := h.mailer.Send(ctx, msg); err != nil {
		h.logger.Error("send test email failed", slog.String("correlation_id", payload.CorrelationID), slog.Any("error", err))
		return err
	}
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
