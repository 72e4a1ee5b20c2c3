package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mrops-br/product-catalog-api/internal/app/dto"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/http/response"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/storage"
)

const (
	uploadField    = "file"
	uploadAttempts = 3
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]`)

// BlobSink persists named binary content and returns a URL referencing it.
// Put must fail with storage.ErrBlobExists rather than overwrite.
type BlobSink interface {
	Put(ctx context.Context, name string, content io.Reader) (string, error)
}

// UploadHandler stores uploaded files in a blob sink
type UploadHandler struct {
	sink      BlobSink
	maxMemory int64
	logger    *slog.Logger
	now       func() time.Time
}

// NewUploadHandler creates a new upload handler. maxMemory bounds how much of
// a multipart body is buffered in memory before spilling to temp files.
func NewUploadHandler(sink BlobSink, maxMemory int64, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		sink:      sink,
		maxMemory: maxMemory,
		logger:    logger,
		now:       time.Now,
	}
}

// SanitizeFilename replaces every character outside [A-Za-z0-9.-_] with an underscore
func SanitizeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(name, "_")
}

// uniqueName prefixes the sanitized name with a millisecond timestamp and a
// random token.
func (h *UploadHandler) uniqueName(original string) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d_%s_%s", h.now().UnixMilli(), token, SanitizeFilename(original))
}

// Upload handles POST /upload
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(h.maxMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			response.Error(w, http.StatusBadRequest, "No file provided")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to parse upload",
			slog.String("error", err.Error()),
		)
		response.Error(w, http.StatusInternalServerError, "Failed to upload file")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			response.Error(w, http.StatusBadRequest, "No file provided")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to read uploaded file",
			slog.String("error", err.Error()),
		)
		response.Error(w, http.StatusInternalServerError, "Failed to upload file")
		return
	}
	defer file.Close()

	url, err := h.store(ctx, header.Filename, file)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to store upload",
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()),
		)
		response.Error(w, http.StatusInternalServerError, "Failed to upload file")
		return
	}

	h.logger.InfoContext(ctx, "File uploaded",
		slog.String("filename", header.Filename),
		slog.Int64("size", header.Size),
		slog.String("url", url),
	)

	response.JSON(w, http.StatusOK, dto.UploadResponse{URL: url})
}

// store retries with a fresh name when the sink reports a collision
func (h *UploadHandler) store(ctx context.Context, original string, content io.ReadSeeker) (string, error) {
	var err error
	for attempt := 0; attempt < uploadAttempts; attempt++ {
		if _, err = content.Seek(0, io.SeekStart); err != nil {
			return "", fmt.Errorf("failed to rewind upload: %w", err)
		}

		var url string
		url, err = h.sink.Put(ctx, h.uniqueName(original), content)
		if err == nil {
			return url, nil
		}
		if !errors.Is(err, storage.ErrBlobExists) {
			return "", err
		}
	}
	return "", err
}
