package cart

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maplecart/storefront-backend/internal/pricing"
	"github.com/maplecart/storefront-backend/internal/products"
	"github.com/maplecart/storefront-backend/pkg/db/dbtest"
	"github.com/maplecart/storefront-backend/pkg/db/models"
	"github.com/maplecart/storefront-backend/pkg/enums"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
	"github.com/maplecart/storefront-backend/pkg/logger"
	"github.com/maplecart/storefront-backend/pkg/pagination"
)

type stubPricer struct {
	catalog map[uuid.UUID]products.PricedProduct
}

func (s stubPricer) PriceProducts(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]products.PricedProduct, error) {
	out := map[uuid.UUID]products.PricedProduct{}
	for _, id := range ids {
		if p, ok := s.catalog[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type stubMailer struct {
	sent []models.AbandonedCart
	err  error
}

func (m *stubMailer) SendAbandonedCart(_ context.Context, record models.AbandonedCart) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, record)
	return nil
}

type fixture struct {
	svc    Service
	repo   *Repository
	mailer *stubMailer
	clock  *time.Time
	tee    uuid.UUID
	mug    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Client(t)
	tee, mug := uuid.New(), uuid.New()
	catalog := map[uuid.UUID]products.PricedProduct{
		tee: {
			Product: models.Product{ID: tee, Name: "Tee", ImageURLs: pq.StringArray{"https://cdn/tee.png"}},
			Price:   pricing.Result{Price: decimal.RequireFromString("10.00"), Source: enums.PriceSourceFlashSale},
		},
		mug: {
			Product: models.Product{ID: mug, Name: "Mug"},
			Price:   pricing.Result{Price: decimal.RequireFromString("7.25"), Source: enums.PriceSourceBase},
		},
	}
	clock := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	f := &fixture{repo: NewRepository(client.DB()), mailer: &stubMailer{}, clock: &clock, tee: tee, mug: mug}
	svc, err := NewService(ServiceParams{
		Repo:     f.repo,
		DB:       client,
		Products: stubPricer{catalog: catalog},
		Mailer:   f.mailer,
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}),
		Now:      func() time.Time { return *f.clock },
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) advance(d time.Duration) {
	next := f.clock.Add(d)
	*f.clock = next
}

func TestUpsertActiveRepricesAndMerges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ghost := uuid.New()
	email := "  Shopper@Example.com "

	dto, err := f.svc.UpsertActive(ctx, "sess-1", UpsertInput{
		Email: &email,
		Items: []ItemInput{
			{ProductID: f.tee, Quantity: 1},
			{ProductID: f.mug, Quantity: 2},
			{ProductID: f.tee, Quantity: 1},
			{ProductID: ghost, Quantity: 1},
			{ProductID: f.mug, Quantity: 0},
		},
	})
	require.NoError(t, err)
	require.Len(t, dto.Items, 2)
	assert.Equal(t, 2, dto.Items[0].Quantity)
	assert.Equal(t, "https://cdn/tee.png", dto.Items[0].ImageURL)
	assert.Equal(t, "34.50", dto.Subtotal.StringFixed(2))
	assert.Equal(t, []uuid.UUID{ghost}, dto.RemovedProductIDs)
	require.NotNil(t, dto.Email)
	assert.Equal(t, "shopper@example.com", *dto.Email)

	again, err := f.svc.UpsertActive(ctx, "sess-1", UpsertInput{Items: []ItemInput{{ProductID: f.mug, Quantity: 1}}})
	require.NoError(t, err)
	assert.Equal(t, dto.ID, again.ID)
	assert.Equal(t, "7.25", again.Subtotal.StringFixed(2))
}

func TestUpsertActiveRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.UpsertActive(context.Background(), " ", UpsertInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.UpsertActive(context.Background(), "s", UpsertInput{Items: []ItemInput{{ProductID: f.tee, Quantity: 100}}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestMarkAbandonedMovesIdleCarts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	email := "a@example.com"
	_, err := f.svc.UpsertActive(ctx, "idle", UpsertInput{Email: &email, Items: []ItemInput{{ProductID: f.tee, Quantity: 1}}})
	require.NoError(t, err)
	_, err = f.svc.UpsertActive(ctx, "empty", UpsertInput{})
	require.NoError(t, err)
	f.advance(2 * time.Hour)
	_, err = f.svc.UpsertActive(ctx, "fresh", UpsertInput{Items: []ItemInput{{ProductID: f.mug, Quantity: 1}}})
	require.NoError(t, err)

	moved, err := f.svc.MarkAbandoned(ctx, time.Hour, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	active, err := f.svc.ListActive(ctx, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, active.Carts, 1)
	assert.Equal(t, "fresh", active.Carts[0].SessionID)

	abandoned, err := f.svc.ListAbandoned(ctx, false, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, abandoned.Carts, 1)
	assert.Equal(t, "idle", abandoned.Carts[0].SessionID)
	assert.Equal(t, enums.CartStatusAbandoned, abandoned.Carts[0].Status)
}

func TestCompleteMarksAbandonedRecovered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.UpsertActive(ctx, "comeback", UpsertInput{Items: []ItemInput{{ProductID: f.tee, Quantity: 1}}})
	require.NoError(t, err)
	f.advance(3 * time.Hour)
	_, err = f.svc.MarkAbandoned(ctx, time.Hour, 10)
	require.NoError(t, err)

	_, err = f.svc.UpsertActive(ctx, "comeback", UpsertInput{Items: []ItemInput{{ProductID: f.tee, Quantity: 1}}})
	require.NoError(t, err)
	result, err := f.svc.Complete(ctx, "comeback")
	require.NoError(t, err)
	assert.True(t, result.Cleared)
	assert.True(t, result.Recovered)

	open, err := f.svc.ListAbandoned(ctx, false, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, open.Carts)

	all, err := f.svc.ListAbandoned(ctx, true, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, all.Carts, 1)
	assert.Equal(t, enums.CartStatusRecovered, all.Carts[0].Status)
}

func TestSendRecoveryEmailOnlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	email := "later@example.com"
	_, err := f.svc.UpsertActive(ctx, "later", UpsertInput{Email: &email, Items: []ItemInput{{ProductID: f.mug, Quantity: 3}}})
	require.NoError(t, err)
	f.advance(2 * time.Hour)
	_, err = f.svc.MarkAbandoned(ctx, time.Hour, 10)
	require.NoError(t, err)

	list, err := f.svc.ListAbandoned(ctx, false, pagination.Params{})
	require.NoError(t, err)
	id := list.Carts[0].ID

	f.mailer.err = pkgerrors.New(pkgerrors.CodeDependency, "provider down")
	_, err = f.svc.SendRecoveryEmail(ctx, id)
	require.Error(t, err)

	f.mailer.err = nil
	dto, err := f.svc.SendRecoveryEmail(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, dto.RecoveryEmailSentAt)
	require.Len(t, f.mailer.sent, 1)

	_, err = f.svc.SendRecoveryEmail(ctx, id)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = f.svc.SendRecoveryEmail(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestSendRecoveryEmailRequiresAddress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.UpsertActive(ctx, "anon", UpsertInput{Items: []ItemInput{{ProductID: f.mug, Quantity: 1}}})
	require.NoError(t, err)
	f.advance(2 * time.Hour)
	_, err = f.svc.MarkAbandoned(ctx, time.Hour, 10)
	require.NoError(t, err)
	list, err := f.svc.ListAbandoned(ctx, false, pagination.Params{})
	require.NoError(t, err)

	_, err = f.svc.SendRecoveryEmail(ctx, list.Carts[0].ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Empty(t, f.mailer.sent)
}

func TestSendPendingRecoveryEmails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, second := "first@example.com", "second@example.com"
	_, err := f.svc.UpsertActive(ctx, "one", UpsertInput{Email: &first, Items: []ItemInput{{ProductID: f.tee, Quantity: 1}}})
	require.NoError(t, err)
	_, err = f.svc.UpsertActive(ctx, "two", UpsertInput{Email: &second, Items: []ItemInput{{ProductID: f.mug, Quantity: 1}}})
	require.NoError(t, err)
	_, err = f.svc.UpsertActive(ctx, "anon", UpsertInput{Items: []ItemInput{{ProductID: f.mug, Quantity: 1}}})
	require.NoError(t, err)
	f.advance(2 * time.Hour)
	_, err = f.svc.MarkAbandoned(ctx, time.Hour, 10)
	require.NoError(t, err)

	f.mailer.err = pkgerrors.New(pkgerrors.CodeDependency, "provider down")
	sent, err := f.svc.SendPendingRecoveryEmails(ctx, 10)
	assert.Error(t, err)
	assert.Equal(t, 0, sent)

	f.mailer.err = nil
	sent, err = f.svc.SendPendingRecoveryEmails(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	sent, err = f.svc.SendPendingRecoveryEmails(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Len(t, f.mailer.sent, 2)
}
