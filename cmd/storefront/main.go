package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"storefront/internal/cartstore"
	"storefront/internal/config"
	apphttp "storefront/internal/http"
	"storefront/internal/http/handlers"
	applog "storefront/internal/log"
	"storefront/internal/metrics"
	"storefront/internal/notify"
	"storefront/internal/repos"
	"storefront/internal/services"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		l := applog.Logger()
		l.Fatal().Err(err).Msg("storefront exited")
	}
}

func run() error {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	var logFile *os.File
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file %s: %w", cfg.LogFile, err)
		}
		logFile = f
		out = io.MultiWriter(os.Stdout, f)
	}
	logger := applog.Setup(applog.Options{
		Service: "storefront",
		Level:   applog.ParseLevel(cfg.LogLevel),
		Format:  cfg.LogFormat,
		Output:  out,
	})
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		logger.Warn().Err(envErr).Msg("could not load .env")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repos.OpenDB(ctx, repos.Options{
		Driver:       cfg.DBDriver,
		DSN:          cfg.DBDSN,
		MaxOpenConns: cfg.DBMaxOpenConns,
	})
	if err != nil {
		return err
	}
	if cfg.AutoMigrate {
		if err := repos.Migrate(ctx, db); err != nil {
			return multierr.Append(err, db.Close())
		}
	}
	if cfg.SeedDemo {
		if err := repos.SeedDemo(ctx, db); err != nil {
			return multierr.Append(fmt.Errorf("seed demo data: %w", err), db.Close())
		}
	}

	var rdb *redis.Client
	if cfg.UsesRedis() {
		rdb, err = cartstore.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return multierr.Append(err, db.Close())
		}
	}

	tax, _ := cfg.Tax()
	shipping, _ := cfg.Shipping()
	pricing := services.Pricing{TaxRate: tax, Shipping: shipping}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewCheckoutMetrics(reg)

	products := repos.NewProductRepo(db)
	orders := repos.NewOrderRepo(db)
	var carts services.CartStore = repos.NewCartRepo(db)
	if cfg.CartBackend == "redis" {
		carts = cartstore.NewRedisStore(rdb, cfg.CartTTL)
	}
	var notifier notify.Notifier = notify.LogNotifier{Log: logger}
	if cfg.Notifier == "redis" {
		notifier = notify.NewRedisNotifier(rdb, notify.DefaultChannel)
	}

	cartSvc := services.NewCartService(carts, products, pricing, m)
	orderSvc := services.NewOrderService(carts, products, orders, repos.NewTxRunner(db), pricing, m, logger)
	authSvc := services.NewAuthService(repos.NewUserRepo(db), cartSvc, logger)

	session := handlers.SessionOptions{Secure: cfg.CookieSecure, MaxAge: 30 * 24 * time.Hour}
	deps := handlers.NewDeps(handlers.Services{
		Auth:      authSvc,
		Cart:      cartSvc,
		Orders:    orderSvc,
		Inventory: services.NewInventoryService(products),
		Notifier:  notifier,
	}, session)

	opts := apphttp.DefaultOptions()
	opts.CookieSecure = cfg.CookieSecure
	opts.Metrics = reg
	opts.AccessLog = out

	app := apphttp.NewApp()
	apphttp.Register(app, deps, authSvc, opts)

	logger.Info().
		Str("port", cfg.Port).
		Str("db", cfg.DBDriver).
		Str("cart_backend", cfg.CartBackend).
		Str("notifier", cfg.Notifier).
		Msg("storefront starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})
	runErr := g.Wait()

	closers := []io.Closer{db}
	if rdb != nil {
		closers = append(closers, rdb)
	}
	if logFile != nil {
		closers = append(closers, logFile)
	}
	return multierr.Combine(runErr, closeAll(logger, closers))
}

func closeAll(logger zerolog.Logger, closers []io.Closer) error {
	var err error
	for _, c := range closers {
		if cerr := c.Close(); cerr != nil {
			logger.Error().Err(cerr).Msg("close failed")
			err = multierr.Append(err, cerr)
		}
	}
	return err
}
