// Package cart tracks shopper carts. Active carts are keyed by browser
// session; idle ones are moved to the abandoned table where each may receive
// a single recovery email.
package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/maplecart/storefront-backend/internal/products"
	"github.com/maplecart/storefront-backend/pkg/db"
	"github.com/maplecart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
	"github.com/maplecart/storefront-backend/pkg/logger"
	"github.com/maplecart/storefront-backend/pkg/pagination"
	"github.com/maplecart/storefront-backend/pkg/types"
)

const maxLineQuantity = 99

// Service exposes cart operations for the storefront and the admin.
type Service interface {
	UpsertActive(ctx context.Context, sessionID string, input UpsertInput) (*ActiveCartDTO, error)
	Complete(ctx context.Context, sessionID string) (*CompleteResult, error)
	MarkAbandoned(ctx context.Context, idleFor time.Duration, limit int) (int, error)
	ListActive(ctx context.Context, params pagination.Params) (*ActiveListResult, error)
	ListAbandoned(ctx context.Context, includeRecovered bool, params pagination.Params) (*AbandonedListResult, error)
	SendRecoveryEmail(ctx context.Context, id uuid.UUID) (*AbandonedCartDTO, error)
	// SendPendingRecoveryEmails emails up to limit carts that are due. Failed
	// sends stay due for the next run.
	SendPendingRecoveryEmails(ctx context.Context, limit int) (int, error)
}

// UpsertInput is the shopper's full cart; it replaces what was stored.
type UpsertInput struct {
	Email *string
	Items []ItemInput
}

type ItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

type productPricer interface {
	PriceProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]products.PricedProduct, error)
}

type recoveryMailer interface {
	SendAbandonedCart(ctx context.Context, record models.AbandonedCart) error
}

// ServiceParams wires the cart service.
type ServiceParams struct {
	Repo     *Repository
	DB       *db.Client
	Products productPricer
	Mailer   recoveryMailer
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	products productPricer
	mailer   recoveryMailer
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("cart repository required")
	case params.DB == nil:
		return nil, fmt.Errorf("db client required")
	case params.Products == nil:
		return nil, fmt.Errorf("product pricer required")
	case params.Mailer == nil:
		return nil, fmt.Errorf("recovery mailer required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		dbClient: params.DB,
		products: params.Products,
		mailer:   params.Mailer,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// UpsertActive reprices every line from the catalog so stored totals never
// trust client prices. Unknown or hidden products are dropped and reported.
func (s *service) UpsertActive(ctx context.Context, sessionID string, input UpsertInput) (*ActiveCartDTO, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	ctx = s.logg.WithSessionID(ctx, sessionID)

	merged, order := mergeLines(input.Items)
	for id, qty := range merged {
		if qty > maxLineQuantity {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds limit").
				WithDetails(map[string]string{id.String(): fmt.Sprintf("max %d", maxLineQuantity)})
		}
	}

	priced, err := s.products.PriceProducts(ctx, order)
	if err != nil {
		return nil, err
	}

	items := make(types.CartItems, 0, len(order))
	removed := []uuid.UUID{}
	for _, id := range order {
		entry, ok := priced[id]
		if !ok {
			removed = append(removed, id)
			continue
		}
		item := types.CartItem{
			ProductID: id,
			Name:      entry.Product.Name,
			Quantity:  merged[id],
			UnitPrice: entry.Price.Price,
		}
		if len(entry.Product.ImageURLs) > 0 {
			item.ImageURL = entry.Product.ImageURLs[0]
		}
		items = append(items, item)
	}

	now := s.now().UTC()
	record := &models.ActiveCart{
		SessionID:      sessionID,
		Email:          normalizeEmail(input.Email),
		Items:          items,
		Subtotal:       items.Subtotal(),
		LastActivityAt: now,
	}
	if err := s.repo.UpsertActive(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: upsert cart")
	}
	stored, err := s.repo.FindActiveBySession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload cart")
	}
	if len(removed) > 0 {
		s.logg.Warn(s.logg.WithField(ctx, "removed_products", len(removed)), "cart lines dropped for unavailable products")
	}
	dto := NewActiveCartDTO(*stored)
	dto.RemovedProductIDs = removed
	return &dto, nil
}

// Complete clears the active cart after checkout and stamps any abandoned
// record of the same session as recovered.
func (s *service) Complete(ctx context.Context, sessionID string) (*CompleteResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	result := &CompleteResult{SessionID: sessionID}
	now := s.now().UTC()
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		cleared, err := txRepo.DeleteActiveBySession(ctx, sessionID)
		if err != nil {
			return err
		}
		recovered, err := txRepo.MarkRecovered(ctx, sessionID, now)
		if err != nil {
			return err
		}
		result.Cleared = cleared > 0
		result.Recovered = recovered > 0
		return nil
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: complete cart")
	}
	s.logg.Info(s.logg.WithSessionID(ctx, sessionID), "cart completed")
	return result, nil
}

// MarkAbandoned moves up to limit carts idle for idleFor into the abandoned
// table. Empty carts are dropped without a record.
func (s *service) MarkAbandoned(ctx context.Context, idleFor time.Duration, limit int) (int, error) {
	if limit <= 0 {
		limit = 50
	}
	now := s.now().UTC()
	cutoff := now.Add(-idleFor)
	moved := 0
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		idle, err := txRepo.ListIdle(ctx, cutoff, limit)
		if err != nil {
			return err
		}
		if len(idle) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, 0, len(idle))
		records := make([]models.AbandonedCart, 0, len(idle))
		for _, active := range idle {
			ids = append(ids, active.ID)
			if len(active.Items) == 0 {
				continue
			}
			records = append(records, models.AbandonedCart{
				SessionID:   active.SessionID,
				Email:       active.Email,
				Items:       active.Items,
				Subtotal:    active.Subtotal,
				AbandonedAt: now,
			})
		}
		if err := txRepo.CreateAbandoned(ctx, records); err != nil {
			return err
		}
		if err := txRepo.DeleteActiveByIDs(ctx, ids); err != nil {
			return err
		}
		moved = len(records)
		return nil
	})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: mark carts abandoned")
	}
	return moved, nil
}

func (s *service) ListActive(ctx context.Context, params pagination.Params) (*ActiveListResult, error) {
	records, next, err := s.repo.ListActive(ctx, params)
	if err != nil {
		return nil, listError(err)
	}
	out := make([]ActiveCartDTO, 0, len(records))
	for _, record := range records {
		out = append(out, NewActiveCartDTO(record))
	}
	return &ActiveListResult{Carts: out, NextCursor: next}, nil
}

func (s *service) ListAbandoned(ctx context.Context, includeRecovered bool, params pagination.Params) (*AbandonedListResult, error) {
	records, next, err := s.repo.ListAbandoned(ctx, includeRecovered, params)
	if err != nil {
		return nil, listError(err)
	}
	out := make([]AbandonedCartDTO, 0, len(records))
	for _, record := range records {
		out = append(out, NewAbandonedCartDTO(record))
	}
	return &AbandonedListResult{Carts: out, NextCursor: next}, nil
}

// SendRecoveryEmail emails the shopper once. The send happens before the
// stamp so a failed send can be retried.
func (s *service) SendRecoveryEmail(ctx context.Context, id uuid.UUID) (*AbandonedCartDTO, error) {
	record, err := s.repo.FindAbandoned(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "abandoned cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load abandoned cart")
	}
	switch {
	case record.Email == nil || *record.Email == "":
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart has no email address")
	case record.RecoveredAt != nil:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart already recovered")
	case record.RecoveryEmailSentAt != nil:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "recovery email already sent")
	}

	if err := s.mailer.SendAbandonedCart(ctx, *record); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	stamped, err := s.repo.MarkRecoverySent(ctx, id, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: stamp recovery email")
	}
	if stamped {
		record.RecoveryEmailSentAt = &now
	}
	s.logg.Info(s.logg.WithField(ctx, "abandoned_cart_id", id.String()), "recovery email sent")
	dto := NewAbandonedCartDTO(*record)
	return &dto, nil
}

func (s *service) SendPendingRecoveryEmails(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 50
	}
	due, err := s.repo.ListRecoveryDue(ctx, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list recovery due carts")
	}
	sent := 0
	var errs error
	for _, record := range due {
		if err := ctx.Err(); err != nil {
			return sent, multierr.Append(errs, err)
		}
		if _, err := s.SendRecoveryEmail(ctx, record.ID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("cart %s: %w", record.ID, err))
			continue
		}
		sent++
	}
	return sent, errs
}

func mergeLines(items []ItemInput) (map[uuid.UUID]int, []uuid.UUID) {
	merged := map[uuid.UUID]int{}
	order := []uuid.UUID{}
	for _, item := range items {
		if item.ProductID == uuid.Nil || item.Quantity <= 0 {
			continue
		}
		if _, seen := merged[item.ProductID]; !seen {
			order = append(order, item.ProductID)
		}
		merged[item.ProductID] += item.Quantity
	}
	return merged, order
}

func normalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	clean := strings.ToLower(strings.TrimSpace(*email))
	if clean == "" {
		return nil
	}
	return &clean
}

func listError(err error) error {
	if errors.Is(err, pagination.ErrInvalidCursor) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list carts")
}
