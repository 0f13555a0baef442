package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	authzadapter "pooled-lending/internal/adapter/authz"
	httpadp "pooled-lending/internal/adapter/http"
	"pooled-lending/internal/adapter/middleware"
	"pooled-lending/internal/adapter/repository/mysql"
	"pooled-lending/internal/config"
	"pooled-lending/internal/domain/clock"
	"pooled-lending/internal/infrastructure/cache"
	"pooled-lending/internal/infrastructure/db"
	"pooled-lending/internal/logger"
	"pooled-lending/internal/usecase/loan"
	"pooled-lending/internal/usecase/registry"
	"pooled-lending/internal/usecase/repayment"
	"pooled-lending/internal/usecase/withdrawal"
	"pooled-lending/pkg/guard"
)

const shutdownTimeout = 10 * time.Second

func main() {
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
	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Fatalw("open redis", "addr", cfg.RedisAddr, "error", err)
	}
	defer rdb.Close()

	repos := mysql.Repos(gdb)
	tx := mysql.NewGormUoW(gdb)
	oracle := authzadapter.NewStatic(cfg.AdminPrincipals, cfg.OperatorPrincipals)
	clk := clock.System{}
	// one guard for every mutating entry point
	g := guard.New()

	// registry seeding lives in cmd/migrate so restarts keep admin changes
	regUC := registry.NewUsecase(repos.Registry, tx, oracle, g, cfg.DefaultThresholdPct)
	loanUC := loan.NewUsecase(loan.Deps{
		Loans:                repos.Loans,
		Positions:            repos.Positions,
		Registry:             repos.Registry,
		UoW:                  tx,
		Authz:                oracle,
		Clock:                clk,
		Guard:                g,
		Distributor:          repayment.NewDistributor(cfg.PoolAccount),
		PoolAccount:          cfg.PoolAccount,
		FallbackThresholdPct: cfg.DefaultThresholdPct,
	})
	withdrawalUC := withdrawal.NewUsecase(repos.Loans, tx, oracle, clk, g, cfg.PoolAccount)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover(), middleware.RequestLogger())
	e.Use(middleware.IdempotencyMiddleware(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second))

	httpadp.Register(e, httpadp.Handlers{
		Health: httpadp.NewHandler(dbCheck(gdb), redisCheck(rdb)),
		Loans:  httpadp.NewLoanHandler(loanUC, withdrawalUC),
		Admin:  httpadp.NewAdminHandler(regUC),
		Funds:  httpadp.NewFundsHandler(mysql.NewBalanceLedger(gdb), oracle, cfg.PoolAccount),
	})

	go func() {
		addr := ":" + cfg.AppPort
		log.Infow("listening", "addr", addr, "env", cfg.AppEnv)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Errorw("shutdown", "error", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("bye")
}

func dbCheck(gdb *gorm.DB) httpadp.Check {
	return httpadp.Check{Name: "db", Ping: func(ctx context.Context) error {
		sqlDB, err := gdb.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}}
}

func redisCheck(rdb *redis.Client) httpadp.Check {
	return httpadp.Check{Name: "redis", Ping: func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}}
}
