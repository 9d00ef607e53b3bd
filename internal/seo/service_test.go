package seo

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maplecart/storefront-backend/pkg/db/dbtest"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
	"github.com/maplecart/storefront-backend/pkg/logger"
)

var viewTime = time.Date(2025, time.June, 2, 12, 0, 0, 0, time.UTC)

type recordingObserver struct {
	mu    sync.Mutex
	calls []error
}

func (r *recordingObserver) ObserveCall(_, _ string, _ time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, err)
}

func newTestService(t *testing.T, pinger sitemapPinger, sitemap string) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:       NewRepository(dbtest.Open(t)),
		Pinger:     pinger,
		SitemapURL: sitemap,
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Now:        func() time.Time { return viewTime },
	})
	require.NoError(t, err)
	return svc
}

func TestTopPagesGroupsNormalizedPaths(t *testing.T) {
	svc := newTestService(t, NewPinger(nil, nil), "")
	ctx := context.Background()

	for _, path := range []string{"/products/tee", "https://shop.example/products/tee/?utm=x", "/about", "products/tee"} {
		require.NoError(t, svc.RecordView(ctx, ViewInput{Path: path, UserAgent: "test-agent"}))
	}

	top, err := svc.TopPages(ctx, viewTime.Add(-time.Hour), viewTime.Add(time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, PageCount{Path: "/products/tee", Views: 3}, top[0])
	assert.Equal(t, PageCount{Path: "/about", Views: 1}, top[1])

	outside, err := svc.TopPages(ctx, viewTime.Add(time.Hour), viewTime.Add(2*time.Hour), 5)
	require.NoError(t, err)
	assert.Empty(t, outside)
}

func TestRecordViewValidation(t *testing.T) {
	svc := newTestService(t, NewPinger(nil, nil), "")
	err := svc.RecordView(context.Background(), ViewInput{Path: "  "})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.TopPages(context.Background(), viewTime, viewTime, 5)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestPingReportsPerEngine(t *testing.T) {
	var gotSitemap string
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSitemap = r.URL.Query().Get("sitemap")
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()
	gone := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer gone.Close()

	observer := &recordingObserver{}
	pinger := NewPinger([]string{ok.URL + "/ping?sitemap=", gone.URL + "/ping?sitemap=", " "}, observer)
	svc := newTestService(t, pinger, "https://shop.example/sitemap.xml")

	report, err := svc.PingSearchEngines(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Engines, 2)
	assert.True(t, report.Engines[0].OK)
	assert.Equal(t, http.StatusOK, report.Engines[0].StatusCode)
	assert.False(t, report.Engines[1].OK)
	assert.Equal(t, http.StatusGone, report.Engines[1].StatusCode)
	assert.Equal(t, "https://shop.example/sitemap.xml", gotSitemap)

	require.Len(t, observer.calls, 2)
	assert.NoError(t, observer.calls[0])
	assert.Error(t, observer.calls[1])
}

func TestPingRequiresSitemap(t *testing.T) {
	svc := newTestService(t, NewPinger([]string{"http://127.0.0.1:1/ping?sitemap="}, nil), "")
	_, err := svc.PingSearchEngines(context.Background())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}
