package api

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"tfgRecruit/internal/api/middleware"
	"tfgRecruit/internal/intake"
)

// multipartOverhead leaves room for part headers when capping the request body.
const multipartOverhead = 1 << 20

// UploadHandler serves POST /upload.
type UploadHandler struct {
	uploader *FileUploader
	maxBytes int64
}

func NewUploadHandler(uploader *FileUploader, maxBytes int64) *UploadHandler {
	return &UploadHandler{uploader: uploader, maxBytes: maxBytes}
}

type uploadResponse struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
	Size     int64  `json:"size"`
}

func (h *UploadHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			BadRequest(c, "File too large")
			return
		}
		BadRequest(c, "No file uploaded")
		return
	}

	url, err := h.uploader.Upload(c.Request.Context(), "file", uploadFromHeader(file))
	if err != nil {
		switch {
		case errors.Is(err, ErrFileTooLarge):
			BadRequest(c, "File too large")
		case errors.Is(err, ErrFileInfected):
			BadRequest(c, "Malicious file detected")
		default:
			middleware.LoggerFromContext(c).Error("upload file failed", slog.Any("error", err))
			Internal(c, "Failed to upload file")
		}
		return
	}

	c.JSON(http.StatusOK, uploadResponse{URL: url, FileName: file.Filename, Size: file.Size})
}

func uploadFromHeader(fh *multipart.FileHeader) intake.Upload {
	return intake.Upload{
		FileName:    fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}
