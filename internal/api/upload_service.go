package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dutchcoders/go-clamd"

	"tfgRecruit/internal/intake"
	"tfgRecruit/internal/metrics"
	"tfgRecruit/internal/storage"
)

var (
	ErrFileTooLarge = errors.New("file too large")
	ErrFileInfected = errors.New("malicious file detected")
)

const maxFileNameLength = 120

// Scanner inspects an upload before it is stored. A nil error means clean.
type Scanner interface {
	Scan(r io.Reader) error
}

// ClamdScanner streams uploads to a clamd daemon.
type ClamdScanner struct {
	Addr string
}

func (s ClamdScanner) Scan(r io.Reader) error {
	client := clamd.NewClamd(s.Addr)
	abortChan := make(chan bool)
	defer close(abortChan)

	results, err := client.ScanStream(r, abortChan)
	if err != nil {
		return fmt.Errorf("scan file: %w", err)
	}
	infected := false
	for result := range results {
		if result.Status != clamd.RES_OK {
			infected = true
		}
	}
	if infected {
		return ErrFileInfected
	}
	return nil
}

// FileUploader enforces the size ceiling, scans when a scanner is set and writes to blob storage.
// It serves both the /upload route and file fields of public applications.
type FileUploader struct {
	blob     storage.Blob
	scanner  Scanner
	maxBytes int64
	now      func() time.Time
}

func NewFileUploader(blob storage.Blob, scanner Scanner, maxBytes int64) *FileUploader {
	return &FileUploader{blob: blob, scanner: scanner, maxBytes: maxBytes, now: time.Now}
}

// Upload implements intake.Uploader.
func (u *FileUploader) Upload(ctx context.Context, _ string, up intake.Upload) (string, error) {
	if up.Size > u.maxBytes {
		metrics.ObserveUpload("too_large")
		return "", ErrFileTooLarge
	}

	if u.scanner != nil {
		r, err := up.Open()
		if err != nil {
			return "", fmt.Errorf("open upload: %w", err)
		}
		err = u.scanner.Scan(r)
		r.Close()
		if err != nil {
			if errors.Is(err, ErrFileInfected) {
				metrics.ObserveUpload("infected")
			}
			return "", err
		}
	}

	r, err := up.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer r.Close()

	url, err := u.blob.Put(ctx, objectKey(u.now(), up.FileName), r, up.Size, up.ContentType)
	if err != nil {
		metrics.ObserveUpload("dropped")
		return "", err
	}
	metrics.ObserveUpload("stored")
	return url, nil
}

// objectKey prefixes the sanitized file name with the upload time in milliseconds.
func objectKey(now time.Time, fileName string) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), sanitizeFileName(fileName))
}

func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if !utf8.ValidString(name) || name == "." || name == "/" || name == ".." {
		return "file"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "file"
	}
	if len(out) > maxFileNameLength {
		out = out[len(out)-maxFileNameLength:]
	}
	return out
}
