// Package seo records storefront page views and pings search engines when
// the sitemap changes.
package seo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/maplecart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
	"github.com/maplecart/storefront-backend/pkg/logger"
)

const (
	maxPathLength      = 512
	maxUserAgentLength = 512
	defaultTopPages    = 10
	maxTopPages        = 100
)

var errPingFailed = errors.New("search engine ping failed")

type Service interface {
	RecordView(ctx context.Context, input ViewInput) error
	TopPages(ctx context.Context, from, to time.Time, limit int) ([]PageCount, error)
	PingSearchEngines(ctx context.Context) (*PingReport, error)
}

type ViewInput struct {
	Path      string
	Referrer  string
	UserAgent string
}

type viewStore interface {
	Create(ctx context.Context, view *models.SEOPageView) error
	TopPages(ctx context.Context, from, to time.Time, limit int) ([]PageCount, error)
}

type sitemapPinger interface {
	Ping(ctx context.Context, sitemapURL string) PingReport
}

type ServiceParams struct {
	Repo       viewStore
	Pinger     sitemapPinger
	SitemapURL string
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	repo       viewStore
	pinger     sitemapPinger
	sitemapURL string
	logg       *logger.Logger
	now        func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("page view repository required")
	case params.Pinger == nil:
		return nil, fmt.Errorf("sitemap pinger required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:       params.Repo,
		pinger:     params.Pinger,
		sitemapURL: strings.TrimSpace(params.SitemapURL),
		logg:       params.Logger,
		now:        now,
	}, nil
}

func (s *service) RecordView(ctx context.Context, input ViewInput) error {
	path, err := normalizePath(input.Path)
	if err != nil {
		return err
	}
	view := &models.SEOPageView{
		Path:      path,
		Referrer:  optional(input.Referrer, maxPathLength),
		UserAgent: optional(input.UserAgent, maxUserAgentLength),
		ViewedAt:  s.now().UTC(),
	}
	if err := s.repo.Create(ctx, view); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: record page view")
	}
	return nil
}

func (s *service) TopPages(ctx context.Context, from, to time.Time, limit int) ([]PageCount, error) {
	if !to.After(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "to must be after from")
	}
	if limit <= 0 {
		limit = defaultTopPages
	}
	if limit > maxTopPages {
		limit = maxTopPages
	}
	rows, err := s.repo.TopPages(ctx, from.UTC(), to.UTC(), limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: top pages")
	}
	if rows == nil {
		rows = []PageCount{}
	}
	return rows, nil
}

func (s *service) PingSearchEngines(ctx context.Context) (*PingReport, error) {
	if s.sitemapURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "sitemap url not configured")
	}
	report := s.pinger.Ping(ctx, s.sitemapURL)
	failed := 0
	for _, engine := range report.Engines {
		if !engine.OK {
			failed++
		}
	}
	if failed > 0 {
		s.logg.Warn(s.logg.WithField(ctx, "failed_engines", failed), "sitemap ping incomplete")
	} else {
		s.logg.Info(ctx, "sitemap pinged")
	}
	return &report, nil
}

// normalizePath keeps only the path of a URL or path, with a leading slash
// and no trailing one.
func normalizePath(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "path is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid path")
	}
	path := parsed.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	if len(path) > maxPathLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "path too long")
	}
	return path, nil
}

func optional(value string, limit int) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if len(value) > limit {
		value = value[:limit]
	}
	return &value
}
