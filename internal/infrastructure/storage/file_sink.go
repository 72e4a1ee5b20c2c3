package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrBlobExists is returned when a blob with the same name is already stored
var ErrBlobExists = errors.New("blob already exists")

// FileSink stores blobs as files under a directory of an afero filesystem and
// addresses them by URL prefix + name.
type FileSink struct {
	fs        afero.Fs
	dir       string
	urlPrefix string
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewFileSink creates the target directory if needed and returns a sink writing into it
func NewFileSink(fs afero.Fs, dir, urlPrefix string, tracer trace.Tracer, logger *slog.Logger) (*FileSink, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &FileSink{
		fs:        fs,
		dir:       dir,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
		tracer:    tracer,
		logger:    logger,
	}, nil
}

// Put writes the content under name and returns its URL. It never overwrites:
// an existing name yields ErrBlobExists.
func (s *FileSink) Put(ctx context.Context, name string, content io.Reader) (string, error) {
	ctx, span := s.tracer.Start(ctx, "FileSink.Put")
	defer span.End()

	span.SetAttributes(attribute.String("blob.name", name))

	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		err := fmt.Errorf("invalid blob name %q", name)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid blob name")
		return "", err
	}

	target := filepath.Join(s.dir, name)
	f, err := s.fs.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", ErrBlobExists
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create blob")
		return "", fmt.Errorf("failed to create blob: %w", err)
	}

	written, err := io.Copy(f, content)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = s.fs.Remove(target)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to write blob")
		return "", fmt.Errorf("failed to write blob: %w", err)
	}

	span.SetAttributes(attribute.Int64("blob.size", written))
	s.logger.InfoContext(ctx, "Blob stored",
		slog.String("blob_name", name),
		slog.Int64("size", written),
	)

	span.SetStatus(codes.Ok, "Blob stored")
	return path.Join(s.urlPrefix, name), nil
}

// URLPrefix is the path stored blobs are served under
func (s *FileSink) URLPrefix() string {
	return s.urlPrefix
}

// Handler serves stored blobs read-only under URLPrefix
func (s *FileSink) Handler() http.Handler {
	return http.StripPrefix(s.urlPrefix, http.FileServer(afero.NewHttpFs(s.fs).Dir(s.dir)))
}
