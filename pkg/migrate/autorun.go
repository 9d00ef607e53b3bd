package migrate

import (
	"context"
	"fmt"

	"github.com/maplecart/storefront-backend/pkg/config"
	"github.com/maplecart/storefront-backend/pkg/db"
	"github.com/maplecart/storefront-backend/pkg/env"
	"github.com/maplecart/storefront-backend/pkg/logger"
)

// MaybeRunDev applies pending migrations on boot in dev when
// STOREFRONT_AUTO_MIGRATE is set. STOREFRONT_MIGRATIONS_DIR points at a
// directory to use instead of the embedded files.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	dir := env.Get("STOREFRONT_MIGRATIONS_DIR", "")
	migrator, err := New(sqlDB, dir)
	if err != nil {
		return err
	}

	source := dir
	if source == "" {
		source = "embedded"
	}
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "migrations": source})
	applied, err := migrator.Up(ctx)
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", applied), "dev migrations applied")
	return nil
}
