package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/maplecart/storefront-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestMigrationsContainSchemas(t *testing.T) {
	cases := map[string][]string{
		"create_products_table": {
			"CREATE TABLE IF NOT EXISTS products",
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_products_slug",
		},
		"create_flash_sales_table": {
			"CREATE TABLE IF NOT EXISTS flash_sales",
			"CHECK (ends_at > starts_at)",
			"discount_value <= 100",
		},
		"create_store_settings_table": {
			"CREATE TABLE IF NOT EXISTS store_settings",
			"'store_discount'",
			"'fallback_shipping'",
		},
		"create_shipping_zones_tables": {
			"CREATE TABLE IF NOT EXISTS shipping_zones",
			"CREATE TABLE IF NOT EXISTS shipping_zone_rules",
			"CREATE TABLE IF NOT EXISTS shipping_zone_rates",
			"ON DELETE CASCADE",
		},
		"create_orders_tables": {
			"CREATE TABLE IF NOT EXISTS orders",
			"CREATE TABLE IF NOT EXISTS square_orders",
			"tracking_number",
			"label_url",
		},
		"create_carts_tables": {
			"CREATE TABLE IF NOT EXISTS active_carts",
			"CREATE TABLE IF NOT EXISTS abandoned_carts",
		},
		"create_email_logs_table": {
			"CREATE TABLE IF NOT EXISTS email_logs",
		},
		"create_qr_images_seo_admin_tables": {
			"CREATE TABLE IF NOT EXISTS qr_codes",
			"CREATE TABLE IF NOT EXISTS uploaded_images",
			"CREATE TABLE IF NOT EXISTS seo_page_views",
			"CREATE TABLE IF NOT EXISTS admin_roles",
		},
	}

	for suffix, checks := range cases {
		content := readMigration(t, suffix)
		for _, sub := range checks {
			if !strings.Contains(content, sub) {
				t.Errorf("%s: missing expected statement %q", suffix, sub)
			}
		}
	}
}

func TestValidateDirAcceptsMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename error")
	}
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add QR Campaigns!")
	if err != nil {
		t.Fatalf("CreateSQLMigration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_qr_campaigns.sql") {
		t.Fatalf("unexpected file name %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	embedded, err := fs.Glob(migrate.Migrations(), "*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob disk: %v", err)
	}
	if len(embedded) != len(onDisk) {
		t.Fatalf("embedded %d migrations, disk has %d", len(embedded), len(onDisk))
	}
	if err := migrate.ValidateFS(migrate.Migrations()); err != nil {
		t.Fatalf("embedded migrations invalid: %v", err)
	}
}

func TestValidateFSRejectsUnbalancedBlocks(t *testing.T) {
	fsys := fstest.MapFS{
		"20250101000000_broken.sql": {Data: []byte("-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n")},
	}
	if err := migrate.ValidateFS(fsys); err == nil || !strings.Contains(err.Error(), "unbalanced") {
		t.Fatalf("expected unbalanced block error, got %v", err)
	}
}

func TestValidateFSRejectsDuplicateVersions(t *testing.T) {
	body := []byte("-- +goose Up\n-- +goose Down\n")
	fsys := fstest.MapFS{
		"20250101000000_a.sql": {Data: body},
		"20250101000000_b.sql": {Data: body},
	}
	if err := migrate.ValidateFS(fsys); err == nil {
		t.Fatal("expected duplicate version error")
	}
}
