// Package dbtest opens isolated in-memory sqlite databases carrying the
// storefront schema, for repository and service tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/maplecart/storefront-backend/pkg/db"
)

// Schema mirrors the goose migrations using sqlite column types. Money is
// TEXT so decimals round-trip exactly.
var Schema = []string{
	`CREATE TABLE products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  description TEXT,
  category_slug TEXT NOT NULL,
  sku TEXT,
  price TEXT NOT NULL,
  original_price TEXT,
  sale_price TEXT,
  stock_quantity INTEGER NOT NULL DEFAULT 0,
  track_stock INTEGER NOT NULL DEFAULT 0,
  weight_grams INTEGER NOT NULL DEFAULT 0,
  is_visible INTEGER NOT NULL DEFAULT 1,
  image_urls TEXT,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE flash_sales (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  discount_type TEXT NOT NULL,
  discount_value TEXT NOT NULL,
  applies_to TEXT NOT NULL,
  product_ids TEXT,
  category_slugs TEXT,
  starts_at DATETIME NOT NULL,
  ends_at DATETIME NOT NULL,
  enabled INTEGER NOT NULL DEFAULT 1,
  priority INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE store_settings (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_by TEXT,
  updated_at DATETIME
)`,
	`CREATE TABLE shipping_zones (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  priority INTEGER NOT NULL DEFAULT 0,
  enabled INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE shipping_zone_rules (
  id TEXT PRIMARY KEY,
  zone_id TEXT NOT NULL REFERENCES shipping_zones(id) ON DELETE CASCADE,
  rule_type TEXT NOT NULL,
  rule_value TEXT NOT NULL,
  position INTEGER NOT NULL DEFAULT 0
)`,
	`CREATE TABLE shipping_zone_rates (
  id TEXT PRIMARY KEY,
  zone_id TEXT NOT NULL REFERENCES shipping_zones(id) ON DELETE CASCADE,
  method_name TEXT NOT NULL,
  rate_type TEXT NOT NULL,
  rate_amount TEXT NOT NULL,
  free_threshold TEXT,
  enabled INTEGER NOT NULL DEFAULT 1,
  position INTEGER NOT NULL DEFAULT 0
)`,
	orderTable("orders"),
	orderTable("square_orders"),
	`CREATE TABLE active_carts (
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL UNIQUE,
  email TEXT,
  items TEXT NOT NULL,
  subtotal TEXT NOT NULL,
  last_activity_at DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE abandoned_carts (
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL,
  email TEXT,
  items TEXT NOT NULL,
  subtotal TEXT NOT NULL,
  abandoned_at DATETIME NOT NULL,
  recovery_email_sent_at DATETIME,
  recovered_at DATETIME,
  created_at DATETIME
)`,
	`CREATE TABLE email_logs (
  id TEXT PRIMARY KEY,
  email_type TEXT NOT NULL,
  recipient TEXT NOT NULL,
  subject TEXT NOT NULL,
  status TEXT NOT NULL,
  provider_message_id TEXT,
  error_message TEXT,
  order_id TEXT,
  metadata TEXT,
  created_at DATETIME
)`,
	`CREATE TABLE qr_codes (
  id TEXT PRIMARY KEY,
  label TEXT NOT NULL,
  code TEXT NOT NULL UNIQUE,
  target_url TEXT NOT NULL,
  enabled INTEGER NOT NULL DEFAULT 1,
  scan_count INTEGER NOT NULL DEFAULT 0,
  last_scanned_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE uploaded_images (
  id TEXT PRIMARY KEY,
  path TEXT NOT NULL UNIQUE,
  public_url TEXT NOT NULL,
  content_type TEXT NOT NULL,
  size_bytes INTEGER NOT NULL,
  alt_text TEXT,
  uploaded_by TEXT,
  created_at DATETIME
)`,
	`CREATE TABLE seo_page_views (
  id TEXT PRIMARY KEY,
  path TEXT NOT NULL,
  referrer TEXT,
  user_agent TEXT,
  viewed_at DATETIME NOT NULL
)`,
	`CREATE TABLE admin_roles (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  email TEXT NOT NULL,
  role TEXT NOT NULL,
  granted_by TEXT,
  created_at DATETIME,
  UNIQUE (user_id, role)
)`,
}

func orderTable(name string) string {
	return fmt.Sprintf(`CREATE TABLE %s (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  customer_email TEXT NOT NULL,
  customer_name TEXT NOT NULL,
  items TEXT NOT NULL,
  subtotal TEXT NOT NULL,
  discount_total TEXT NOT NULL,
  shipping_cost TEXT NOT NULL,
  tax_total TEXT NOT NULL,
  total TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'CAD',
  shipping_address TEXT,
  shipping_method TEXT,
  payment_reference TEXT,
  payment_status TEXT NOT NULL DEFAULT 'paid',
  fulfillment_status TEXT NOT NULL DEFAULT 'unfulfilled',
  carrier_shipment_id TEXT,
  tracking_number TEXT,
  tracking_url TEXT,
  label_url TEXT,
  shipped_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`, name)
}

// Open returns a fresh database with every table created.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range Schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// Client wraps Open in a db.Client for services that need WithTx.
func Client(t *testing.T) *db.Client {
	t.Helper()
	return db.Wrap(Open(t))
}
