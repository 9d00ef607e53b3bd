// Package qrcodes manages tracked redirect codes printed on packaging and
// flyers. Images are rendered by clients from the scan URL.
package qrcodes

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/maplecart/storefront-backend/internal/undo"
	"github.com/maplecart/storefront-backend/pkg/db"
	"github.com/maplecart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
	"github.com/maplecart/storefront-backend/pkg/logger"
	"github.com/maplecart/storefront-backend/pkg/pagination"
)

const (
	generatedCodeLength = 8
	maxCodeAttempts     = 5
)

var codePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{2,31}$`)

type Service interface {
	Create(ctx context.Context, input CreateInput) (*QRCodeDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*QRCodeDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*QRCodeDTO, error)
	List(ctx context.Context, params pagination.Params) (*ListResult, error)
	Delete(ctx context.Context, id uuid.UUID) (*undo.Ticket, error)
	Restore(ctx context.Context, id uuid.UUID) error
	// Scan records a hit and returns the redirect target.
	Scan(ctx context.Context, code string) (string, error)
}

// CreateInput leaves Code empty to have one generated.
type CreateInput struct {
	Label     string
	Code      string
	TargetURL string
	Enabled   bool
}

type UpdateInput struct {
	Label     *string
	TargetURL *string
	Enabled   *bool
}

type codeStore interface {
	Create(ctx context.Context, code *models.QRCode) error
	Save(ctx context.Context, code *models.QRCode) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.QRCode, error)
	FindByCode(ctx context.Context, code string) (*models.QRCode, error)
	IncrementScan(ctx context.Context, id uuid.UUID, at time.Time) error
	List(ctx context.Context, params pagination.Params) ([]models.QRCode, string, error)
}

type deleteScheduler interface {
	Schedule(key string, action undo.Action) undo.Ticket
	Cancel(key string) bool
	Pending(key string) bool
}

type ServiceParams struct {
	Repo     codeStore
	Undo     deleteScheduler
	Logger   *logger.Logger
	ScanBase string
	Now      func() time.Time
}

type service struct {
	repo     codeStore
	undo     deleteScheduler
	logg     *logger.Logger
	scanBase string
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("qr code repository required")
	case params.Undo == nil:
		return nil, fmt.Errorf("undo scheduler required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	base := strings.TrimRight(params.ScanBase, "/") + "/qr/"
	return &service{repo: params.Repo, undo: params.Undo, logg: params.Logger, scanBase: base, now: now}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*QRCodeDTO, error) {
	row := &models.QRCode{
		Label:     strings.TrimSpace(input.Label),
		TargetURL: strings.TrimSpace(input.TargetURL),
		Enabled:   input.Enabled,
	}
	if err := validate(row); err != nil {
		return nil, err
	}

	custom := strings.ToLower(strings.TrimSpace(input.Code))
	if custom != "" {
		if !codePattern.MatchString(custom) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid code").
				WithDetails(map[string]string{"code": "must be 3-32 lowercase letters, digits or hyphens"})
		}
		row.Code = custom
		if err := s.repo.Create(ctx, row); err != nil {
			if db.IsUniqueViolation(err, "") {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "code already in use")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert qr code")
		}
	} else if err := s.createGenerated(ctx, row); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "qr_code_id", row.ID.String()), "qr code created")
	dto := newQRCodeDTO(*row, s.scanBase)
	return &dto, nil
}

func (s *service) createGenerated(ctx context.Context, row *models.QRCode) error {
	var lastErr error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		row.ID = uuid.Nil
		row.Code = generateCode()
		err := s.repo.Create(ctx, row)
		if err == nil {
			return nil
		}
		if !db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert qr code")
		}
		lastErr = err
	}
	return pkgerrors.Wrap(pkgerrors.CodeConflict, lastErr, "could not allocate a unique code")
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*QRCodeDTO, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Label != nil {
		row.Label = strings.TrimSpace(*input.Label)
	}
	if input.TargetURL != nil {
		row.TargetURL = strings.TrimSpace(*input.TargetURL)
	}
	if input.Enabled != nil {
		row.Enabled = *input.Enabled
	}
	if err := validate(row); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update qr code")
	}
	return s.dto(*row), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*QRCodeDTO, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.dto(*row), nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*ListResult, error) {
	rows, next, err := s.repo.List(ctx, params)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list qr codes")
	}
	out := make([]QRCodeDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, *s.dto(row))
	}
	return &ListResult{QRCodes: out, NextCursor: next}, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) (*undo.Ticket, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	ticket := s.undo.Schedule(undoKey(id), func(runCtx context.Context) error {
		return s.repo.Delete(runCtx, id)
	})
	s.logg.Info(s.logg.WithField(ctx, "qr_code_id", id.String()), "qr code delete scheduled")
	return &ticket, nil
}

func (s *service) Restore(ctx context.Context, id uuid.UUID) error {
	if !s.undo.Cancel(undoKey(id)) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "no pending delete for qr code")
	}
	s.logg.Info(s.logg.WithField(ctx, "qr_code_id", id.String()), "qr code delete cancelled")
	return nil
}

func (s *service) Scan(ctx context.Context, code string) (string, error) {
	row, err := s.repo.FindByCode(ctx, strings.ToLower(strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, "qr code not found")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load qr code")
	}
	if !row.Enabled || s.undo.Pending(undoKey(row.ID)) {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "qr code not found")
	}
	if err := s.repo.IncrementScan(ctx, row.ID, s.now().UTC()); err != nil {
		// The redirect still works when the counter cannot be written.
		s.logg.Error(s.logg.WithField(ctx, "qr_code_id", row.ID.String()), "failed to record qr scan", err)
	}
	return row.TargetURL, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.QRCode, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "qr code not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load qr code")
	}
	return row, nil
}

func (s *service) dto(row models.QRCode) *QRCodeDTO {
	dto := newQRCodeDTO(row, s.scanBase)
	dto.PendingDelete = s.undo.Pending(undoKey(row.ID))
	return &dto
}

func validate(row *models.QRCode) error {
	details := map[string]string{}
	if row.Label == "" {
		details["label"] = "is required"
	}
	target, err := url.Parse(row.TargetURL)
	if row.TargetURL == "" || err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		details["target_url"] = "must be an absolute http(s) URL"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid qr code").WithDetails(details)
	}
	return nil
}

func generateCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:generatedCodeLength]
}

func undoKey(id uuid.UUID) string {
	return "qr:" + id.String()
}
