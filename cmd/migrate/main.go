// Command migrate creates or updates the ledger schema and seeds the
// registry from SUPPORTED_ASSETS and DEFAULT_THRESHOLD_PCT, then exits.
package main

import (
	"context"
	"flag"

	authzadapter "pooled-lending/internal/adapter/authz"
	"pooled-lending/internal/adapter/repository/mysql"
	"pooled-lending/internal/config"
	"pooled-lending/internal/infrastructure/db"
	"pooled-lending/internal/logger"
	"pooled-lending/internal/usecase/registry"
	"pooled-lending/pkg/guard"
)

func main() {
	seed := flag.Bool("seed", true, "seed supported assets and the default threshold")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()
	log := logger.Get()

	if err := cfg.Validate(); err != nil {
		log.Fatalw("invalid config", "error", err)
	}
	gdb, err := db.OpenGorm(cfg.DBDriver, cfg.DSN(), cfg.AppEnv)
	if err != nil {
		log.Fatalw("open database", "driver", cfg.DBDriver, "error", err)
	}
	if err := mysql.Migrate(gdb); err != nil {
		log.Fatalw("migrate", "error", err)
	}
	log.Infow("schema up to date", "driver", cfg.DBDriver, "tables", len(mysql.Models()))

	if !*seed {
		return
	}
	reg := registry.NewUsecase(mysql.NewRegistryRepository(gdb), mysql.NewGormUoW(gdb),
		authzadapter.NewStatic(cfg.AdminPrincipals, cfg.OperatorPrincipals), guard.New(), cfg.DefaultThresholdPct)
	if err := reg.Seed(context.Background(), cfg.SupportedAssets, cfg.DefaultThresholdPct); err != nil {
		log.Fatalw("seed registry", "error", err)
	}
	log.Infow("registry seeded", "assets", cfg.SupportedAssets, "threshold_pct", cfg.DefaultThresholdPct)
}
