// Package bootstrap opens the runtime dependencies shared by the server and
// the maintenance commands.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"jeevandhara/internal/cache"
	"jeevandhara/internal/config"
	"jeevandhara/internal/database"
	"jeevandhara/internal/middleware"
	"jeevandhara/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedFacilities loads the baseline hospitals and blood banks.
	SeedFacilities bool
	// SkipSchema leaves the schema untouched.
	SkipSchema bool
}

// InitRuntime connects to the database and Redis and optionally seeds the
// baseline facilities. The Redis client is nil when Redis is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	if err := ensureDevAdminHash(cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to prepare admin credentials: %w", err)
	}

	db, err := database.Connect(ctx, cfg, database.Options{SkipSchema: opts.SkipSchema})
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	rdb := cache.Connect(ctx, cfg.RedisURL)

	if opts.SeedFacilities {
		report, err := seed.NewSeeder(db, seed.Options{}).Facilities(ctx)
		if err != nil {
			_ = database.Close(db)
			return nil, nil, fmt.Errorf("failed to seed facilities: %w", err)
		}
		middleware.Logger.Info("facility seed complete",
			slog.Int("hospitals_added", report.HospitalsAdded),
			slog.Int("blood_banks_added", report.BloodBanksAdded),
			slog.Int("stock_rows", report.StockRows),
		)
	}

	return db, rdb, nil
}

// ensureDevAdminHash hashes ADMIN_PASSWORD into ADMIN_PASSWORD_HASH for
// local runs. Production must configure the hash directly.
func ensureDevAdminHash(cfg *config.Config) error {
	if cfg == nil || cfg.IsProduction() || cfg.AdminPasswordHash != "" {
		return nil
	}
	password := strings.TrimSpace(cfg.AdminPassword)
	if password == "" {
		middleware.Logger.Warn("no admin credentials configured; admin login is disabled")
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	cfg.AdminPasswordHash = string(hash)
	middleware.Logger.Info("development admin password hashed", slog.String("username", cfg.AdminUsername))
	return nil
}
