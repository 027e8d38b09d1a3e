package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"tfgRecruit/internal/api/middleware"
	"tfgRecruit/internal/database"
	"tfgRecruit/internal/form"
	"tfgRecruit/internal/intake"
	"tfgRecruit/internal/store"
)

// FormStore is the persistence surface FormHandler needs.
type FormStore interface {
	CreateForm(ctx context.Context, in store.FormInput) (*database.Form, error)
	GetForm(ctx context.Context, id string) (*database.Form, error)
	GetPublishedForm(ctx context.Context, id string) (*database.Form, error)
	ListForms(ctx context.Context, published *bool) ([]database.Form, error)
	UpdateForm(ctx context.Context, id string, in store.FormInput) (*database.Form, error)
	SetFormPublished(ctx context.Context, id string, published bool) (*database.Form, error)
	DuplicateForm(ctx context.Context, id string) (*database.Form, error)
	DeleteForm(ctx context.Context, id string) error
}

// FormHandler serves form CRUD and the published form views.
type FormHandler struct {
	forms FormStore
}

func NewFormHandler(forms FormStore) *FormHandler {
	return &FormHandler{forms: forms}
}

type formRequest struct {
	Title       string          `json:"title" binding:"required,max=255"`
	Description string          `json:"description"`
	Fields      json.RawMessage `json:"fields"`
	IsPublished bool            `json:"is_published"`
}

func (r formRequest) input() (store.FormInput, error) {
	fields, err := form.ParseFields(r.Fields)
	if err != nil {
		return store.FormInput{}, err
	}
	return store.FormInput{
		Title:       r.Title,
		Description: r.Description,
		Fields:      fields,
		IsPublished: r.IsPublished,
	}, nil
}

type publishRequest struct {
	IsPublished *bool `json:"is_published" binding:"required"`
}

func (h *FormHandler) List(c *gin.Context) {
	// Only the literal "true" selects published forms; any other value selects drafts.
	var published *bool
	if raw := c.Query("is_published"); raw != "" {
		v := raw == "true"
		published = &v
	}

	rows, err := h.forms.ListForms(c.Request.Context(), published)
	if err != nil {
		middleware.LoggerFromContext(c).Error("list forms failed", slog.Any("error", err))
		Internal(c, "Failed to fetch forms")
		return
	}
	out := make([]formView, 0, len(rows))
	for _, row := range rows {
		v, err := newFormView(row)
		if err != nil {
			middleware.LoggerFromContext(c).Error("decode form failed", slog.String("form_id", row.ID), slog.Any("error", err))
			Internal(c, "Failed to fetch forms")
			return
		}
		out = append(out, v)
	}
	c.JSON(http.StatusOK, out)
}

func (h *FormHandler) Get(c *gin.Context) {
	row, err := h.forms.GetForm(c.Request.Context(), c.Param("id"))
	h.reply(c, http.StatusOK, row, err, "Failed to fetch form")
}

func (h *FormHandler) Create(c *gin.Context) {
	var req formRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Title is required")
		return
	}
	in, err := req.input()
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	row, err := h.forms.CreateForm(c.Request.Context(), in)
	h.reply(c, http.StatusCreated, row, err, "Failed to create form")
}

func (h *FormHandler) Update(c *gin.Context) {
	var req formRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Title is required")
		return
	}
	in, err := req.input()
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	row, err := h.forms.UpdateForm(c.Request.Context(), c.Param("id"), in)
	h.reply(c, http.StatusOK, row, err, "Failed to update form")
}

func (h *FormHandler) Delete(c *gin.Context) {
	if err := h.forms.DeleteForm(c.Request.Context(), c.Param("id")); err != nil {
		middleware.LoggerFromContext(c).Error("delete form failed", slog.Any("error", err))
		Internal(c, "Failed to delete form")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FormHandler) Publish(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "is_published is required")
		return
	}
	row, err := h.forms.SetFormPublished(c.Request.Context(), c.Param("id"), *req.IsPublished)
	h.reply(c, http.StatusOK, row, err, "Failed to update form")
}

func (h *FormHandler) Duplicate(c *gin.Context) {
	row, err := h.forms.DuplicateForm(c.Request.Context(), c.Param("id"))
	h.reply(c, http.StatusCreated, row, err, "Failed to duplicate form")
}

// PublicFields returns a published form. Unpublished forms read as missing.
func (h *FormHandler) PublicFields(c *gin.Context) {
	row, err := h.forms.GetPublishedForm(c.Request.Context(), c.Param("id"))
	h.reply(c, http.StatusOK, row, err, "Failed to fetch form")
}

type renderResponse struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Controls    []intake.Control `json:"controls"`
}

// Render returns the control descriptors of a published form.
func (h *FormHandler) Render(c *gin.Context) {
	row, err := h.forms.GetPublishedForm(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "Form not found")
			return
		}
		middleware.LoggerFromContext(c).Error("load form failed", slog.Any("error", err))
		Internal(c, "Failed to fetch form")
		return
	}
	schema, err := store.SchemaOf(*row)
	if err != nil {
		middleware.LoggerFromContext(c).Error("decode form failed", slog.Any("error", err))
		Internal(c, "Failed to fetch form")
		return
	}
	c.JSON(http.StatusOK, renderResponse{
		ID:          schema.ID,
		Title:       schema.Title,
		Description: schema.Description,
		Controls:    intake.Render(schema),
	})
}

func (h *FormHandler) reply(c *gin.Context, status int, row *database.Form, err error, failure string) {
	if err != nil {
		var defErr *form.DefinitionError
		switch {
		case errors.Is(err, store.ErrNotFound):
			NotFound(c, "Form not found")
		case errors.As(err, &defErr):
			BadRequest(c, defErr.Error())
		default:
			middleware.LoggerFromContext(c).Error(failure, slog.Any("error", err))
			Internal(c, failure)
		}
		return
	}
	v, err := newFormView(*row)
	if err != nil {
		middleware.LoggerFromContext(c).Error("decode form failed", slog.Any("error", err))
		Internal(c, failure)
		return
	}
	c.JSON(status, v)
}
