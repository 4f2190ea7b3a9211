package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/lock"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/pkg/authclient"
	"github.com/Skotchmaster/storefront/pkg/config"
	"github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/logging"
	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/pkg/middleware/csrf"
	loggingmw "github.com/Skotchmaster/storefront/pkg/middleware/logging"
	"github.com/Skotchmaster/storefront/pkg/middleware/ratelimit"
	"github.com/Skotchmaster/storefront/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	cfg.MustRequired()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	ctx := logging.IntoContext(context.Background(), logger)

	app, err := build(ctx, cfg)
	if err != nil {
		logger.Error("startup_failed", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      app.echo,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http_server_started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	go func() {
		<-quit
		logger.Warn("force_exit")
		os.Exit(1)
	}()

	logger.Info("shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = multierr.Append(srv.Shutdown(shutdownCtx), app.close())
	if err != nil {
		logger.Error("shutdown_error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown_complete")
}

type app struct {
	echo    *echo.Echo
	closers []func() error
}

func (a *app) close() error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i]())
	}
	return err
}

func build(ctx context.Context, cfg config.Config) (*app, error) {
	l := logging.FromContext(ctx)
	a := &app{}

	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { return db.Close(gdb) })

	store := &repo.GormRepo{DB: gdb}
	if cfg.AutoMigrate {
		if err := store.AutoMigrate(ctx); err != nil {
			return nil, multierr.Append(fmt.Errorf("auto migrate: %w", err), a.close())
		}
		l.Info("auto_migrate_done")
	}

	ready := map[string]httpserver.Check{"database": store.Ping}

	var (
		locks    lock.Locker = lock.NewLocal()
		limiter  ratelimit.Store
		rdb      *redis.Client
		gateways []payment.Gateway
	)
	if cfg.RedisURL != "" {
		rdb, err = redis.New(ctx, cfg.RedisURL)
		if err != nil {
			return nil, multierr.Append(err, a.close())
		}
		a.closers = append(a.closers, rdb.Close)
		locks = lock.NewRedis(rdb, cfg.UserLockTTL)
		limiter = rdb
		ready["redis"] = rdb.Ping
	} else {
		l.Warn("redis_disabled", "reason", "REDIS_URL is empty; using in-process locks and no refund rate limit")
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := events.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			return nil, multierr.Append(err, a.close())
		}
		a.closers = append(a.closers, producer.Close)
		publisher = producer
	}

	var index service.ItemIndex
	if cfg.ESURL != "" {
		idx, err := search.New(search.Config{
			URL:      cfg.ESURL,
			User:     cfg.ESUser,
			Password: cfg.ESPassword,
			Index:    cfg.ESIndex,
		})
		if err != nil {
			return nil, multierr.Append(err, a.close())
		}
		index = idx
		ready["search"] = idx.Ping
	}

	if cfg.StripeEnabled() {
		gw, err := payment.NewStripe(payment.StripeConfig{APIKey: cfg.StripeAPIKey})
		if err != nil {
			return nil, multierr.Append(err, a.close())
		}
		gateways = append(gateways, gw)
	}
	if cfg.SquareEnabled() {
		gw, err := payment.NewSquare(payment.SquareConfig{
			AccessToken: cfg.SquareAccessToken,
			Environment: cfg.SquareEnvironment,
			LocationID:  cfg.SquareLocationID,
		})
		if err != nil {
			return nil, multierr.Append(err, a.close())
		}
		gateways = append(gateways, gw)
	}
	registry := payment.NewRegistry(gateways...)
	if len(registry.Options()) == 0 {
		l.Warn("no_payment_gateways", "reason", "neither stripe nor square is configured")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	cartSvc := &service.CartService{Repo: store, Locks: locks, Events: publisher, Metrics: m}
	deps := &httpserver.Deps{
		Catalog: &httpserver.CatalogHTTP{Svc: &service.CatalogService{Repo: store, Index: index, Events: publisher}},
		Cart:    &httpserver.CartHTTP{Svc: cartSvc},
		Checkout: &httpserver.CheckoutHTTP{
			Svc: &service.CheckoutService{
				Repo:     store,
				Locks:    locks,
				Gateways: registry,
				Events:   publisher,
				Metrics:  m,
				Currency: cfg.Currency,
			},
			Cart: cartSvc,
		},
		Orders: &httpserver.OrderHTTP{
			Svc:     &service.OrderService{Repo: store, Events: publisher},
			Refunds: &service.RefundService{Repo: store, Events: publisher, Metrics: m},
		},
		Wishlist: &httpserver.WishlistHTTP{Svc: &service.WishlistService{Repo: store}},
		Auth:     middleware.NewAutoRefreshMiddleware([]byte(cfg.JWTAccessSecret), refresher(cfg)),
		CSRF:     csrf.Middleware(csrf.DefaultConfig()),
		Metrics:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Ready:    ready,
	}
	if limiter != nil {
		deps.RefundLimit = ratelimit.PerIP(ratelimit.Policy{
			Name:   "refunds",
			Limit:  cfg.RefundRateLimit,
			Window: cfg.RefundRateWindow,
		}, limiter)
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover(), echomw.RequestID(), loggingmw.RequestLogger(l))
	httpserver.Register(e, deps)
	a.echo = e

	l.Info("startup_complete",
		"gateways", registry.Options(),
		"redis", rdb != nil,
		"kafka", len(cfg.KafkaBrokers) > 0,
		"search", index != nil,
	)
	return a, nil
}

func refresher(cfg config.Config) middleware.Refresher {
	if cfg.AuthHTTPURL == "" {
		return nil
	}
	return authclient.NewClient(cfg.AuthHTTPURL, cfg.AuthTimeout)
}
