package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"noor-storefront/internal/apiclient"
	"noor-storefront/internal/cart"
	"noor-storefront/internal/config"
	"noor-storefront/internal/db"
	"noor-storefront/internal/domain"
	"noor-storefront/internal/httpserver"
	"noor-storefront/internal/migrate"
	"noor-storefront/internal/repository/state"
	"noor-storefront/internal/session"
	authsvc "noor-storefront/internal/service/auth"
	catalogsvc "noor-storefront/internal/service/catalog"
	checkoutsvc "noor-storefront/internal/service/checkout"
	orderssvc "noor-storefront/internal/service/orders"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[storefront] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	store, closeStore, err := openState(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("open state backend %s: %v", cfg.StateBackend, err)
	}
	defer closeStore()

	sess := session.New(store, logger)
	sess.Subscribe(func(st session.State) {
		logger.Printf("session changed authenticated=%t hydrated=%t", st.Authenticated(), st.Hydrated)
	})
	if err := sess.Hydrate(ctx); err != nil {
		logger.Printf("restore session: %v", err)
	}
	if exp, ok := sess.AccessTokenExpiry(); ok {
		logger.Printf("restored session access_token_expires=%s", exp.Format("2006-01-02T15:04:05Z"))
	}

	var resolver apiclient.BaseURLResolver = apiclient.StaticBaseURL(cfg.APIBaseURL)
	if cfg.APIConfigURL != "" {
		resolver = apiclient.RemoteBaseURL{ConfigURL: cfg.APIConfigURL, Client: &http.Client{Timeout: cfg.RequestTimeout}}
	}
	baseURL := apiclient.Cached(resolver)

	client, err := apiclient.New(apiclient.Config{
		BaseURL: baseURL,
		Tokens:  sess,
		Timeout: cfg.RequestTimeout,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatalf("init api client: %v", err)
	}

	shopCart := cart.New()
	shopCart.Subscribe(func(items []domain.LineItem) {
		logger.Printf("cart changed lines=%d", len(items))
	})

	orderService := orderssvc.New(client)
	srv, err := httpserver.New(cfg.HTTPAddr, logger, httpserver.Deps{
		Session:  sess,
		Cart:     shopCart,
		Auth:     authsvc.New(client, sess, logger),
		Catalog:  catalogsvc.New(client),
		Orders:   orderService,
		Checkout: checkoutsvc.New(client, shopCart, sess, orderService, checkoutsvc.Config{
			PollInterval: cfg.PollInterval,
			MaxAttempts:  cfg.PollMaxAttempts,
		}, logger),
		Storage:     store,
		BaseURL:     baseURL,
		CORSOrigins: cfg.CORSOrigins,
		SuccessURL:  cfg.SuccessURL(),
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s backend=%s", cfg.HTTPAddr, cfg.StateBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}

// openState returns the configured session backend and a func releasing it.
func openState(ctx context.Context, cfg config.Config, logger *log.Logger) (state.Repository, func(), error) {
	switch cfg.StateBackend {
	case config.BackendPostgres:
		pool, err := db.Connect(ctx, cfg.DBConnString)
		if err != nil {
			return nil, nil, err
		}
		if err := migrate.Apply(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("apply migrations: %w", err)
		}
		return state.NewPostgres(pool, logger), pool.Close, nil
	case config.BackendRedis:
		client, err := state.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPass)
		if err != nil {
			return nil, nil, err
		}
		return state.NewRedis(client, logger), func() { _ = client.Close() }, nil
	case config.BackendFile, "":
		return state.NewFile(cfg.StateDir, logger), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
	}
}
