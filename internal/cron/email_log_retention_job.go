package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/maplecart/storefront-backend/pkg/logger"
)

const defaultEmailLogRetention = 90 * 24 * time.Hour

type EmailLogRetentionJobParams struct {
	Logger    *logger.Logger
	Emails    logPruner
	Retention time.Duration
}

type logPruner interface {
	PruneLogs(ctx context.Context, olderThan time.Duration) (int64, error)
}

func NewEmailLogRetentionJob(params EmailLogRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Emails == nil {
		return nil, fmt.Errorf("email service required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultEmailLogRetention
	}
	return &emailLogRetentionJob{logg: params.Logger, emails: params.Emails, retention: retention}, nil
}

type emailLogRetentionJob struct {
	logg      *logger.Logger
	emails    logPruner
	retention time.Duration
}

func (j *emailLogRetentionJob) Name() string { return "email-log-retention" }

func (j *emailLogRetentionJob) Run(ctx context.Context) error {
	deleted, err := j.emails.PruneLogs(ctx, j.retention)
	if err != nil {
		return fmt.Errorf("email log retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"retention_days": int(j.retention.Hours() / 24),
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "email log retention complete")
	return nil
}
