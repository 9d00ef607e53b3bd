// Package storage talks to the object-storage REST API that backs the
// public images bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/maplecart/storefront-backend/pkg/config"
	"github.com/maplecart/storefront-backend/pkg/logger"
)

const (
	requestTimeout = 30 * time.Second
	pingTimeout    = 5 * time.Second
	errBodyLimit   = 512
)

var ErrNotConfigured = errors.New("storage not configured")

type Client struct {
	http    *resty.Client
	baseURL string
	bucket  string
}

// NewClient builds the client and verifies the bucket is reachable.
func NewClient(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (*Client, error) {
	client, err := newClient(cfg, &http.Client{Timeout: requestTimeout})
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("storage health check failed: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", client.bucket), "storage client initialized")
	}
	return client, nil
}

func newClient(cfg config.StorageConfig, httpClient *http.Client) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	key := strings.TrimSpace(cfg.ServiceKey)
	if base == "" || key == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket name is required")
	}
	rc := resty.NewWithClient(httpClient).
		SetAuthToken(key).
		SetHeader("apikey", key).
		SetRetryCount(0)
	return &Client{http: rc, baseURL: base, bucket: cfg.Bucket}, nil
}

func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

// PublicURL is the unauthenticated URL of an object in a public bucket.
func (c *Client) PublicURL(objectPath string) string {
	return c.endpoint("object/public", objectPath)
}

// Upload writes at most size bytes of body at objectPath. Existing objects
// are not overwritten.
func (c *Client) Upload(ctx context.Context, objectPath, contentType string, body io.Reader, size int64) error {
	if c == nil {
		return ErrNotConfigured
	}
	if strings.TrimSpace(objectPath) == "" {
		return errors.New("object path is required")
	}
	if contentType == "" {
		return errors.New("content type is required")
	}

	if size > 0 {
		body = io.LimitReader(body, size)
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("Cache-Control", "max-age=31536000").
		SetHeader("x-upsert", "false").
		SetBody(body).
		Post(c.endpoint("object", objectPath))
	if err != nil {
		return fmt.Errorf("storage upload: %w", err)
	}
	return expectStatus("upload", resp, http.StatusOK, http.StatusCreated)
}

// Delete removes an object. A missing object is not an error.
func (c *Client) Delete(ctx context.Context, objectPath string) error {
	if c == nil {
		return ErrNotConfigured
	}
	resp, err := c.http.R().SetContext(ctx).Delete(c.endpoint("object", objectPath))
	if err != nil {
		return fmt.Errorf("storage delete: %w", err)
	}
	return expectStatus("delete", resp, http.StatusOK, http.StatusNoContent, http.StatusNotFound)
}

// Ping checks that the bucket exists and the key can read it.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(c.baseURL + "/storage/v1/bucket/" + url.PathEscape(c.bucket))
	if err != nil {
		return fmt.Errorf("storage bucket check: %w", err)
	}
	return expectStatus("bucket check", resp, http.StatusOK)
}

// endpoint joins kind, the bucket and an escaped object path.
func (c *Client) endpoint(kind, objectPath string) string {
	parts := strings.Split(strings.Trim(objectPath, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return fmt.Sprintf("%s/storage/v1/%s/%s/%s", c.baseURL, kind, url.PathEscape(c.bucket), strings.Join(parts, "/"))
}

func expectStatus(op string, resp *resty.Response, ok ...int) error {
	for _, code := range ok {
		if resp.StatusCode() == code {
			return nil
		}
	}
	body := strings.TrimSpace(string(resp.Body()))
	if len(body) > errBodyLimit {
		body = body[:errBodyLimit]
	}
	if body == "" {
		return fmt.Errorf("storage %s failed: %s", op, resp.Status())
	}
	return fmt.Errorf("storage %s failed: %s: %s", op, resp.Status(), body)
}
