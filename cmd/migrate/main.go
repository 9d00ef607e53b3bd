package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/maplecart/storefront-backend/internal/admins"
	"github.com/maplecart/storefront-backend/pkg/config"
	"github.com/maplecart/storefront-backend/pkg/db"
	"github.com/maplecart/storefront-backend/pkg/db/models"
	"github.com/maplecart/storefront-backend/pkg/enums"
	"github.com/maplecart/storefront-backend/pkg/logger"
	"github.com/maplecart/storefront-backend/pkg/migrate"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate|bootstrap-owner")
	dir := flag.String("dir", "", "migrations directory; empty uses the embedded files (create defaults to "+migrate.DefaultDir+")")

	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	ownerID := flag.String("user-id", "", "auth user id granted owner (for bootstrap-owner)")
	ownerEmail := flag.String("email", "", "owner email (for bootstrap-owner)")

	flag.Parse()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx = logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": *dir,
	})

	switch *cmd {
	case "create":
		if *name == "" {
			fmt.Fprintln(os.Stderr, "missing -name for create")
			os.Exit(1)
		}
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(target, *name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create migration: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("created migration:", path)
		return

	case "validate":
		fsys := migrate.Migrations()
		if *dir != "" {
			fsys = os.DirFS(*dir)
		}
		if err := migrate.ValidateFS(fsys); err != nil {
			fmt.Fprintf(os.Stderr, "migration validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("migration validation passed")
		return
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	migrator, err := migrate.New(sqlDB, *dir)
	requireResource(ctx, logg, "migrator", err)

	switch *cmd {
	case "up":
		applied, err := migrator.Up(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "goose up failed: %v\n", err)
			os.Exit(1)
		}
		logg.Info(logg.WithField(ctx, "applied", applied), "migrations applied")

	case "down":
		if err := migrator.Down(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "goose down failed: %v\n", err)
			os.Exit(1)
		}

	case "status":
		statuses, err := migrator.Status(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "goose status failed: %v\n", err)
			os.Exit(1)
		}
		for _, st := range statuses {
			applied := "pending"
			if !st.AppliedAt.IsZero() {
				applied = st.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Printf("%-14d %-24s %s\n", st.Source.Version, applied, st.Source.Path)
		}

	case "version":
		if *version == "" {
			fmt.Fprintln(os.Stderr, "missing -version for version command")
			os.Exit(1)
		}
		if err := migrator.MigrateTo(ctx, *version); err != nil {
			fmt.Fprintf(os.Stderr, "goose version migrate failed: %v\n", err)
			os.Exit(1)
		}

	case "bootstrap-owner":
		if err := bootstrapOwner(ctx, logg, dbClient, *ownerID, *ownerEmail); err != nil {
			fmt.Fprintf(os.Stderr, "bootstrap owner failed: %v\n", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmd)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}

// bootstrapOwner grants the first owner role. Once an owner exists further
// grants go through the admin API.
func bootstrapOwner(ctx context.Context, logg *logger.Logger, dbClient *db.Client, rawID, email string) error {
	userID, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return fmt.Errorf("invalid -user-id: %w", err)
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("missing -email")
	}

	repo := admins.NewRepository(dbClient.DB())
	owners, err := repo.CountRole(ctx, enums.AdminRoleOwner)
	if err != nil {
		return fmt.Errorf("count owners: %w", err)
	}
	if owners > 0 {
		return fmt.Errorf("an owner already exists")
	}
	if err := repo.Create(ctx, &models.AdminRoleAssignment{
		UserID: userID,
		Email:  email,
		Role:   enums.AdminRoleOwner,
	}); err != nil {
		return fmt.Errorf("grant owner: %w", err)
	}

	logg.Info(logg.WithField(ctx, "admin_user_id", userID.String()), "owner bootstrapped")
	return nil
}
