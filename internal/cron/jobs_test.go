package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"go.uber.org/multierr"

	"github.com/maplecart/storefront-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type fakeCarts struct {
	markErr   error
	sendErr   error
	idleFor   time.Duration
	markLimit int
	sendLimit int
	sendCalls int
}

func (f *fakeCarts) MarkAbandoned(_ context.Context, idleFor time.Duration, limit int) (int, error) {
	f.idleFor = idleFor
	f.markLimit = limit
	if f.markErr != nil {
		return 0, f.markErr
	}
	return 3, nil
}

func (f *fakeCarts) SendPendingRecoveryEmails(_ context.Context, limit int) (int, error) {
	f.sendCalls++
	f.sendLimit = limit
	if f.sendErr != nil {
		return 1, f.sendErr
	}
	return 2, nil
}

func TestAbandonedCartJobUsesDefaults(t *testing.T) {
	carts := &fakeCarts{}
	job, err := NewAbandonedCartJob(AbandonedCartJobParams{Logger: testLogger(), Carts: carts})
	if err != nil {
		t.Fatalf("NewAbandonedCartJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if carts.idleFor != defaultAbandonedAfter || carts.markLimit != defaultRecoveryBatch || carts.sendLimit != defaultRecoveryBatch {
		t.Fatalf("unexpected parameters: idle=%v mark=%d send=%d", carts.idleFor, carts.markLimit, carts.sendLimit)
	}
}

func TestAbandonedCartJobCombinesErrors(t *testing.T) {
	carts := &fakeCarts{markErr: errors.New("tx aborted"), sendErr: errors.New("provider down")}
	job, err := NewAbandonedCartJob(AbandonedCartJobParams{Logger: testLogger(), Carts: carts, AbandonedAfter: 2 * time.Hour, Batch: 5})
	if err != nil {
		t.Fatalf("NewAbandonedCartJob: %v", err)
	}
	err = job.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if got := len(multierr.Errors(err)); got != 2 {
		t.Fatalf("expected both failures, got %d: %v", got, err)
	}
	if carts.sendCalls != 1 {
		t.Fatalf("expected recovery emails to run after a failed sweep")
	}
}

type fakePruner struct {
	olderThan time.Duration
	err       error
}

func (f *fakePruner) PruneLogs(_ context.Context, olderThan time.Duration) (int64, error) {
	f.olderThan = olderThan
	return 7, f.err
}

func TestEmailLogRetentionJob(t *testing.T) {
	pruner := &fakePruner{}
	job, err := NewEmailLogRetentionJob(EmailLogRetentionJobParams{Logger: testLogger(), Emails: pruner, Retention: 48 * time.Hour})
	if err != nil {
		t.Fatalf("NewEmailLogRetentionJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if pruner.olderThan != 48*time.Hour {
		t.Fatalf("expected retention to be forwarded, got %v", pruner.olderThan)
	}

	pruner.err = errors.New("boom")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
