package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"jeevandhara/internal/config"
	"jeevandhara/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes accepted in DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus describes what ApplySchema would do and what has been done.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	Pending            []Migration
}

// constraintIndexes are created after AutoMigrate because GORM tags cannot
// express partial indexes. The SQL migrations declare the same indexes.
var constraintIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_blood_requests_active_requester
		ON blood_requests (requester_id) WHERE status IN ('pending', 'accepted')`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_blood_stocks_bank_group
		ON blood_stocks (blood_bank_id, blood_group) WHERE blood_bank_id IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_blood_stocks_hospital_group
		ON blood_stocks (hospital_id, blood_group) WHERE hospital_id IS NOT NULL`,
}

func isProdLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

func schemaMode(cfg *config.Config) string {
	if mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)); mode != "" {
		return mode
	}
	return SchemaModeHybrid
}

// schemaPolicy decides which schema steps run. Hybrid runs SQL everywhere and
// adds AutoMigrate outside production; auto in production needs an explicit
// opt-in.
func schemaPolicy(cfg *config.Config) (runSQL, runAuto bool, err error) {
	prodLike := isProdLike(cfg.Env)
	switch mode := schemaMode(cfg); mode {
	case SchemaModeSQL:
		return true, false, nil
	case SchemaModeAuto:
		if prodLike && !cfg.DBAutoMigrateAllowDestructive {
			return false, false, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		return false, true, nil
	case SchemaModeHybrid:
		return true, !prodLike, nil
	default:
		return false, false, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
}

// AutoMigrate creates or updates tables from the GORM models and then adds
// the partial unique indexes.
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return EnsureConstraintIndexes(ctx, db)
}

// EnsureConstraintIndexes creates the partial unique indexes backing the
// one-active-request rule and the per-owner stock rows.
func EnsureConstraintIndexes(ctx context.Context, db *gorm.DB) error {
	for _, stmt := range constraintIndexes {
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("create constraint index: %w", err)
		}
	}
	return nil
}

// ApplySchema runs the steps chosen by schemaPolicy.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return err
	}

	if runSQL {
		migrator, err := NewEmbeddedMigrator(db)
		if err != nil {
			return err
		}
		n, err := migrator.Up(ctx)
		if err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
		if n > 0 {
			middleware.Logger.Info("sql migrations applied", slog.Int("count", n))
		}
	}

	if runAuto {
		if schemaMode(cfg) == SchemaModeAuto && cfg.DBAutoMigrateAllowDestructive {
			middleware.Logger.Warn("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE is set; review schema diffs before deploying")
		}
		middleware.Logger.Info("running auto-migrate", slog.String("mode", schemaMode(cfg)), slog.String("env", cfg.Env))
		if err := AutoMigrate(ctx, db); err != nil {
			return err
		}
	}
	return nil
}

// GetSchemaStatus reports the schema policy and migration state.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{
		Mode:               schemaMode(cfg),
		Environment:        cfg.Env,
		WillRunSQL:         runSQL,
		WillRunAutoMigrate: runAuto,
	}
	if !runSQL {
		return status, nil
	}

	migrator, err := NewEmbeddedMigrator(db)
	if err != nil {
		return nil, err
	}
	if status.AppliedVersions, err = migrator.Applied(ctx); err != nil {
		return nil, err
	}
	if status.Pending, err = migrator.Pending(ctx); err != nil {
		return nil, err
	}
	return status, nil
}
