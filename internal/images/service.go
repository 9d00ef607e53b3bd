// Package images uploads product imagery into the public images bucket and
// keeps its metadata in uploaded_images.
package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/maplecart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
	"github.com/maplecart/storefront-backend/pkg/logger"
	"github.com/maplecart/storefront-backend/pkg/pagination"
)

const pathPrefix = "products"

type objectStore interface {
	Upload(ctx context.Context, objectPath, contentType string, body io.Reader, size int64) error
	Delete(ctx context.Context, objectPath string) error
	PublicURL(objectPath string) string
}

type imageStore interface {
	Create(ctx context.Context, image *models.UploadedImage) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.UploadedImage, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params pagination.Params) ([]models.UploadedImage, string, error)
}

type Service interface {
	Upload(ctx context.Context, input UploadInput) (*ImageDTO, error)
	List(ctx context.Context, params pagination.Params) (*ListResult, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// UploadInput is one file from a multipart upload.
type UploadInput struct {
	FileName     string
	DeclaredType string
	Body         io.Reader
	AltText      *string
	UploadedBy   *uuid.UUID
}

type service struct {
	repo     imageStore
	store    objectStore
	maxBytes int64
	logg     *logger.Logger
}

func NewService(repo imageStore, store objectStore, maxBytes int64, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("image repository required")
	}
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max upload size must be positive")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, store: store, maxBytes: maxBytes, logg: logg}, nil
}

func (s *service) Upload(ctx context.Context, input UploadInput) (*ImageDTO, error) {
	if input.Body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is required")
	}
	declared, err := parseDeclaredType(input.DeclaredType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid content type")
	}

	data, err := io.ReadAll(io.LimitReader(input.Body, s.maxBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}
	switch {
	case len(data) == 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	case int64(len(data)) > s.maxBytes:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("file exceeds %d bytes", s.maxBytes))
	}

	contentType, ext, ok := detectType(data)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported image type").
			WithDetails(map[string]string{"file": fmt.Sprintf("detected %s; must be %s", contentType, allowedTypes())})
	}
	if declared != "" && declared != contentType {
		s.logg.Warn(ctx, fmt.Sprintf("declared content type %s differs from detected %s", declared, contentType))
	}

	id := uuid.New()
	objectPath := fmt.Sprintf("%s/%s.%s", pathPrefix, id, ext)
	if err := s.store.Upload(ctx, objectPath, contentType, bytes.NewReader(data), int64(len(data))); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload image")
	}

	row := &models.UploadedImage{
		ID:          id,
		Path:        objectPath,
		PublicURL:   s.store.PublicURL(objectPath),
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		AltText:     trimmedOrNil(input.AltText),
		UploadedBy:  input.UploadedBy,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, row); err != nil {
		if delErr := s.store.Delete(ctx, objectPath); delErr != nil {
			s.logg.Error(ctx, "failed to remove orphaned image "+objectPath, delErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save image")
	}

	s.logg.Info(s.logg.WithField(ctx, "image_path", objectPath), "image uploaded")
	dto := NewImageDTO(*row)
	return &dto, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*ListResult, error) {
	rows, next, err := s.repo.List(ctx, params)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list images")
	}
	out := make([]ImageDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, NewImageDTO(row))
	}
	return &ListResult{Images: out, NextCursor: next}, nil
}

// Delete removes the object first so a failed bucket call leaves the row for
// a retry.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "image not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load image")
	}
	if err := s.store.Delete(ctx, row.Path); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete image object")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete image")
	}
	return nil
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
