package qrcodes

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maplecart/storefront-backend/internal/undo"
	"github.com/maplecart/storefront-backend/pkg/db/dbtest"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
	"github.com/maplecart/storefront-backend/pkg/logger"
	"github.com/maplecart/storefront-backend/pkg/pagination"
)

var scanTime = time.Date(2025, time.June, 3, 14, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, delay time.Duration) (Service, *Repository) {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	scheduler := undo.NewScheduler(delay, logg)
	t.Cleanup(func() { _ = scheduler.Shutdown(context.Background()) })
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Undo:     scheduler,
		Logger:   logg,
		ScanBase: "https://shop.example/",
		Now:      func() time.Time { return scanTime },
	})
	require.NoError(t, err)
	return svc, repo
}

func TestCreateGeneratesCode(t *testing.T) {
	svc, _ := newTestService(t, time.Minute)

	dto, err := svc.Create(context.Background(), CreateInput{Label: "Flyer", TargetURL: "https://shop.example/sale", Enabled: true})
	require.NoError(t, err)
	assert.Len(t, dto.Code, generatedCodeLength)
	assert.Equal(t, "https://shop.example/qr/"+dto.Code, dto.ScanURL)
}

func TestCreateCustomCodeConflicts(t *testing.T) {
	svc, _ := newTestService(t, time.Minute)
	input := CreateInput{Label: "Box", Code: "Summer-25", TargetURL: "https://shop.example/summer", Enabled: true}

	dto, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "summer-25", dto.Code)

	_, err = svc.Create(context.Background(), input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t, time.Minute)

	_, err := svc.Create(context.Background(), CreateInput{TargetURL: "ftp://files"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "label")
	assert.Contains(t, details, "target_url")
}

func TestScanCountsAndRedirects(t *testing.T) {
	svc, repo := newTestService(t, time.Minute)
	dto, err := svc.Create(context.Background(), CreateInput{Label: "Flyer", Code: "flyer", TargetURL: "https://shop.example/sale", Enabled: true})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		target, err := svc.Scan(context.Background(), "FLYER")
		require.NoError(t, err)
		assert.Equal(t, "https://shop.example/sale", target)
	}

	row, err := repo.FindByID(context.Background(), dto.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), row.ScanCount)
	require.NotNil(t, row.LastScannedAt)
	assert.True(t, row.LastScannedAt.Equal(scanTime))
}

func TestScanDisabledIsNotFound(t *testing.T) {
	svc, _ := newTestService(t, time.Minute)
	dto, err := svc.Create(context.Background(), CreateInput{Label: "Old", Code: "old", TargetURL: "https://shop.example", Enabled: true})
	require.NoError(t, err)

	disabled := false
	_, err = svc.Update(context.Background(), dto.ID, UpdateInput{Enabled: &disabled})
	require.NoError(t, err)

	_, err = svc.Scan(context.Background(), "old")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Scan(context.Background(), "missing")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDeleteCanBeRestored(t *testing.T) {
	svc, _ := newTestService(t, time.Minute)
	dto, err := svc.Create(context.Background(), CreateInput{Label: "Flyer", Code: "flyer", TargetURL: "https://shop.example", Enabled: true})
	require.NoError(t, err)

	ticket, err := svc.Delete(context.Background(), dto.ID)
	require.NoError(t, err)
	assert.Equal(t, "qr:"+dto.ID.String(), ticket.Key)

	got, err := svc.Get(context.Background(), dto.ID)
	require.NoError(t, err)
	assert.True(t, got.PendingDelete)
	_, err = svc.Scan(context.Background(), "flyer")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	require.NoError(t, svc.Restore(context.Background(), dto.ID))
	assert.True(t, pkgerrors.IsCode(svc.Restore(context.Background(), dto.ID), pkgerrors.CodeStateConflict))

	list, err := svc.List(context.Background(), pagination.Params{})
	require.NoError(t, err)
	require.Len(t, list.QRCodes, 1)
	assert.False(t, list.QRCodes[0].PendingDelete)
}

func TestDeleteRunsAfterDelay(t *testing.T) {
	svc, _ := newTestService(t, 20*time.Millisecond)
	dto, err := svc.Create(context.Background(), CreateInput{Label: "Flyer", TargetURL: "https://shop.example", Enabled: true})
	require.NoError(t, err)

	_, err = svc.Delete(context.Background(), dto.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := svc.Get(context.Background(), dto.ID)
		return pkgerrors.IsCode(err, pkgerrors.CodeNotFound)
	}, time.Second, 10*time.Millisecond)
}
