package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/maplecart/storefront-backend/pkg/logger"
)

const (
	defaultAbandonedAfter = time.Hour
	defaultRecoveryBatch  = 50
)

type AbandonedCartJobParams struct {
	Logger         *logger.Logger
	Carts          cartSweeper
	AbandonedAfter time.Duration
	Batch          int
}

type cartSweeper interface {
	MarkAbandoned(ctx context.Context, idleFor time.Duration, limit int) (int, error)
	SendPendingRecoveryEmails(ctx context.Context, limit int) (int, error)
}

// NewAbandonedCartJob moves idle carts to the abandoned table and emails the
// ones that are due a recovery message.
func NewAbandonedCartJob(params AbandonedCartJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	after := params.AbandonedAfter
	if after <= 0 {
		after = defaultAbandonedAfter
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultRecoveryBatch
	}
	return &abandonedCartJob{logg: params.Logger, carts: params.Carts, after: after, batch: batch}, nil
}

type abandonedCartJob struct {
	logg  *logger.Logger
	carts cartSweeper
	after time.Duration
	batch int
}

func (j *abandonedCartJob) Name() string { return "abandoned-carts" }

// Run always attempts both steps; a failed sweep does not block recovery
// emails for carts abandoned earlier.
func (j *abandonedCartJob) Run(ctx context.Context) error {
	var errs error
	moved, err := j.carts.MarkAbandoned(ctx, j.after, j.batch)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("mark abandoned: %w", err))
	}
	sent, err := j.carts.SendPendingRecoveryEmails(ctx, j.batch)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("recovery emails: %w", err))
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"carts_abandoned":      moved,
		"recovery_emails_sent": sent,
		"abandoned_after_mins": int(j.after.Minutes()),
	})
	j.logg.Info(logCtx, "abandoned cart sweep complete")
	return errs
}
