// Package emails renders and sends transactional and campaign mail, and keeps
// an email_logs row for every attempt.
package emails

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/maplecart/storefront-backend/pkg/db/models"
	"github.com/maplecart/storefront-backend/pkg/enums"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
	"github.com/maplecart/storefront-backend/pkg/logger"
	"github.com/maplecart/storefront-backend/pkg/mailer"
	"github.com/maplecart/storefront-backend/pkg/pagination"
	"github.com/maplecart/storefront-backend/pkg/types"
)

const (
	promotionWorkers       = 4
	maxPromotionRecipients = 1000
)

type Service interface {
	SendOrderConfirmation(ctx context.Context, order models.Order) (*LogDTO, error)
	SendShippingNotification(ctx context.Context, order models.Order) (*LogDTO, error)
	SendAdminWelcome(ctx context.Context, email string, role enums.AdminRole) (*LogDTO, error)
	SendAbandonedCart(ctx context.Context, record models.AbandonedCart) error
	SendPromotion(ctx context.Context, input PromotionInput) (*CampaignResult, error)
	ListLogs(ctx context.Context, filter LogFilter, params pagination.Params) (*LogListResult, error)
	PruneLogs(ctx context.Context, olderThan time.Duration) (int64, error)
}

// PromotionInput is an admin campaign sent to each recipient individually.
type PromotionInput struct {
	Recipients []string
	Subject    string
	Headline   string
	Body       string
	CTAURL     string
	CTALabel   string
}

// Sender delivers one message and returns the provider id.
type Sender interface {
	Send(ctx context.Context, msg mailer.Message) (string, error)
}

type emailCounter interface {
	IncEmail(emailType, status string)
}

type logStore interface {
	Create(ctx context.Context, entry *models.EmailLog) error
	List(ctx context.Context, filter LogFilter, params pagination.Params) ([]models.EmailLog, string, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type ServiceParams struct {
	Repo      logStore
	Sender    Sender
	Metrics   emailCounter
	Logger    *logger.Logger
	StoreName string
	StoreURL  string
	Now       func() time.Time
}

type service struct {
	repo      logStore
	sender    Sender
	metrics   emailCounter
	logg      *logger.Logger
	storeName string
	storeURL  string
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("email log repository required")
	case params.Sender == nil:
		return nil, fmt.Errorf("email sender required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	storeName := strings.TrimSpace(params.StoreName)
	if storeName == "" {
		storeName = "Storefront"
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      params.Repo,
		sender:    params.Sender,
		metrics:   params.Metrics,
		logg:      params.Logger,
		storeName: storeName,
		storeURL:  strings.TrimRight(strings.TrimSpace(params.StoreURL), "/"),
		now:       now,
	}, nil
}

// NoopSender fails every send. It stands in when no provider is configured so
// attempts are still logged.
type NoopSender struct{}

func (NoopSender) Send(context.Context, mailer.Message) (string, error) {
	return "", pkgerrors.New(pkgerrors.CodeDependency, "email provider not configured")
}

type attempt struct {
	emailType enums.EmailType
	recipient string
	content   content
	orderID   *uuid.UUID
	metadata  types.JSONMap
}

func (s *service) SendOrderConfirmation(ctx context.Context, order models.Order) (*LogDTO, error) {
	body, err := orderConfirmationContent(s.storeName, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render order confirmation")
	}
	return s.deliver(ctx, attempt{
		emailType: enums.EmailTypeOrderConfirmation,
		recipient: order.CustomerEmail,
		content:   body,
		orderID:   &order.ID,
		metadata:  orderMetadata(order),
	})
}

func (s *service) SendShippingNotification(ctx context.Context, order models.Order) (*LogDTO, error) {
	if order.TrackingNumber == nil || strings.TrimSpace(*order.TrackingNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has no tracking number")
	}
	body, err := shippingNotificationContent(s.storeName, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render shipping notification")
	}
	meta := orderMetadata(order)
	meta["tracking_number"] = *order.TrackingNumber
	return s.deliver(ctx, attempt{
		emailType: enums.EmailTypeShippingNotification,
		recipient: order.CustomerEmail,
		content:   body,
		orderID:   &order.ID,
		metadata:  meta,
	})
}

func (s *service) SendAdminWelcome(ctx context.Context, email string, role enums.AdminRole) (*LogDTO, error) {
	body, err := adminWelcomeContent(s.storeName, string(role), s.storeURL+"/admin/login")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render admin welcome")
	}
	return s.deliver(ctx, attempt{
		emailType: enums.EmailTypeAdminWelcome,
		recipient: email,
		content:   body,
		metadata:  types.JSONMap{"role": string(role)},
	})
}

// SendAbandonedCart satisfies the cart service's recovery mailer.
func (s *service) SendAbandonedCart(ctx context.Context, record models.AbandonedCart) error {
	if record.Email == nil || strings.TrimSpace(*record.Email) == "" {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "abandoned cart has no email")
	}
	recoveryURL := s.storeURL + "/cart?session=" + url.QueryEscape(record.SessionID)
	body, err := abandonedCartContent(s.storeName, recoveryURL, record)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render abandoned cart")
	}
	_, err = s.deliver(ctx, attempt{
		emailType: enums.EmailTypeAbandonedCart,
		recipient: *record.Email,
		content:   body,
		metadata:  types.JSONMap{"abandoned_cart_id": record.ID.String(), "session_id": record.SessionID},
	})
	return err
}

// SendPromotion sends one message per recipient with bounded concurrency.
// Individual failures are counted, not returned.
func (s *service) SendPromotion(ctx context.Context, input PromotionInput) (*CampaignResult, error) {
	recipients, err := validatePromotion(&input)
	if err != nil {
		return nil, err
	}
	body, err := promotionContent(s.storeName, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render promotion")
	}

	result := &CampaignResult{Total: len(recipients), Failures: []RecipientFailure{}}
	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(promotionWorkers)
	for _, recipient := range recipients {
		group.Go(func() error {
			_, sendErr := s.deliver(groupCtx, attempt{
				emailType: enums.EmailTypeAdminPromotion,
				recipient: recipient,
				content:   body,
				metadata:  types.JSONMap{"campaign_subject": input.Subject},
			})
			mu.Lock()
			defer mu.Unlock()
			if sendErr != nil {
				result.Failed++
				result.Failures = append(result.Failures, RecipientFailure{Recipient: recipient, Error: sendErr.Error()})
				return nil
			}
			result.Sent++
			return nil
		})
	}
	_ = group.Wait()

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"campaign_total":  result.Total,
		"campaign_sent":   result.Sent,
		"campaign_failed": result.Failed,
	}), "promotion campaign finished")
	return result, nil
}

func (s *service) ListLogs(ctx context.Context, filter LogFilter, params pagination.Params) (*LogListResult, error) {
	rows, next, err := s.repo.List(ctx, filter, params)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list email logs")
	}
	out := make([]LogDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, NewLogDTO(row))
	}
	return &LogListResult{Logs: out, NextCursor: next}, nil
}

func (s *service) PruneLogs(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "retention must be positive")
	}
	cutoff := s.now().UTC().Add(-olderThan)
	deleted, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "prune email logs")
	}
	return deleted, nil
}

// deliver sends one message and records the attempt. A provider failure is
// logged as failed and returned as a dependency error. A log write failure
// after a send does not undo the send.
func (s *service) deliver(ctx context.Context, a attempt) (*LogDTO, error) {
	recipient, err := normalizeAddress(a.recipient)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid recipient").
			WithDetails(map[string]string{"recipient": err.Error()})
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"email_type": string(a.emailType), "recipient": recipient})

	providerID, sendErr := s.sender.Send(ctx, mailer.Message{
		To:      []string{recipient},
		Subject: a.content.Subject,
		HTML:    a.content.HTML,
		Text:    a.content.Text,
		Tags:    map[string]string{"type": string(a.emailType)},
	})

	entry := &models.EmailLog{
		EmailType: a.emailType,
		Recipient: recipient,
		Subject:   a.content.Subject,
		Status:    enums.EmailStatusSent,
		OrderID:   a.orderID,
		Metadata:  a.metadata,
		CreatedAt: s.now().UTC(),
	}
	if sendErr != nil {
		msg := sendErr.Error()
		entry.Status = enums.EmailStatusFailed
		entry.ErrorMessage = &msg
	} else if providerID != "" {
		entry.ProviderMessageID = &providerID
	}
	if s.metrics != nil {
		s.metrics.IncEmail(string(a.emailType), string(entry.Status))
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.logg.Error(ctx, "failed to write email log", err)
	}

	if sendErr != nil {
		s.logg.Warn(ctx, "email send failed: "+sendErr.Error())
		if typed := pkgerrors.As(sendErr); typed != nil && typed.Code() == pkgerrors.CodeDependency {
			return nil, sendErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, sendErr, "email send failed")
	}
	s.logg.Info(ctx, "email sent")
	dto := NewLogDTO(*entry)
	return &dto, nil
}

func validatePromotion(input *PromotionInput) ([]string, error) {
	details := map[string]string{}
	input.Subject = strings.TrimSpace(input.Subject)
	input.Headline = strings.TrimSpace(input.Headline)
	input.CTAURL = strings.TrimSpace(input.CTAURL)
	if input.Subject == "" {
		details["subject"] = "is required"
	}
	if input.Headline == "" {
		input.Headline = input.Subject
	}
	if strings.TrimSpace(input.Body) == "" {
		details["body"] = "is required"
	}
	if input.CTAURL != "" {
		if u, err := url.Parse(input.CTAURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			details["cta_url"] = "must be an http(s) url"
		}
	}

	seen := map[string]struct{}{}
	recipients := make([]string, 0, len(input.Recipients))
	for i, raw := range input.Recipients {
		addr, err := normalizeAddress(raw)
		if err != nil {
			details[fmt.Sprintf("recipients[%d]", i)] = "invalid email"
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		recipients = append(recipients, addr)
	}
	switch {
	case len(input.Recipients) == 0:
		details["recipients"] = "at least one recipient is required"
	case len(recipients) > maxPromotionRecipients:
		details["recipients"] = fmt.Sprintf("at most %d recipients", maxPromotionRecipients)
	}

	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid promotion").WithDetails(details)
	}
	return recipients, nil
}

func normalizeAddress(raw string) (string, error) {
	parsed, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(parsed.Address), nil
}

func orderMetadata(order models.Order) types.JSONMap {
	meta := types.JSONMap{"order_number": order.OrderNumber}
	if order.Source != "" {
		meta["source"] = string(order.Source)
	}
	return meta
}
