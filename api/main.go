package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rogerio-castellano/storefront/internal/admin"
	"github.com/rogerio-castellano/storefront/internal/alerts"
	"github.com/rogerio-castellano/storefront/internal/backend"
	"github.com/rogerio-castellano/storefront/internal/cart"
	"github.com/rogerio-castellano/storefront/internal/catalog"
	"github.com/rogerio-castellano/storefront/internal/checkout"
	"github.com/rogerio-castellano/storefront/internal/config"
	"github.com/rogerio-castellano/storefront/internal/http/handlers"
	mw "github.com/rogerio-castellano/storefront/internal/http/middleware"
	rl "github.com/rogerio-castellano/storefront/internal/http/rate_limiter"
	"github.com/rogerio-castellano/storefront/internal/http/router"
	"github.com/rogerio-castellano/storefront/internal/logging"
	"github.com/rogerio-castellano/storefront/internal/notice"
	"github.com/rogerio-castellano/storefront/internal/payment/paypal"
	"github.com/rogerio-castellano/storefront/internal/realtime"
	"github.com/rogerio-castellano/storefront/internal/redissvc"
	"github.com/rogerio-castellano/storefront/internal/session"
	"github.com/rogerio-castellano/storefront/internal/stock"
	"github.com/rogerio-castellano/storefront/internal/stockfeed"
	"github.com/rogerio-castellano/storefront/internal/storage"
	"github.com/sirupsen/logrus"
)

// @title Storefront API
// @version 1.0
// @description UI-facing API of the clothing store: catalog, cart, checkout and staff panel.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey SessionAuth
// @in header
// @name Cookie
func main() {
	configPath := flag.String("config", os.Getenv("STOREFRONT_CONFIG"), "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("❌ Invalid configuration: %v", err)
	}
	if err := logging.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		logrus.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, closer, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		logrus.Fatalf("❌ Could not open local storage: %v", err)
	}
	defer closer.Close()

	sess := session.New(kv)
	if err := sess.Rehydrate(ctx); err != nil {
		logrus.WithError(err).Warn("Could not restore the previous session")
	}

	api, err := backend.New(backend.Options{
		BaseURL:           cfg.Backend.BaseURL,
		AuthScheme:        cfg.Backend.AuthScheme,
		Timeout:           cfg.Backend.Timeout,
		RequestsPerSecond: cfg.Backend.RequestsPerSecond,
		Burst:             cfg.Backend.Burst,
		Tokens:            sess,
		OnUnauthorized: func(ctx context.Context) {
			if err := sess.Clear(ctx); err != nil {
				logrus.WithError(err).Warn("Could not clear the rejected session")
			}
		},
	})
	if err != nil {
		logrus.Fatal(err)
	}

	feed := notice.NewFeed(notice.DefaultFeedSize)

	shopCart := cart.New(api, sess, cart.Options{ExpiryDelay: cfg.Cart.ExpiryDelay, Notifier: feed})
	defer shopCart.Close()

	manager := realtime.NewManager(
		realtime.RedisTransport{Addr: cfg.Realtime.Addr, Username: cfg.Realtime.Username},
		realtime.AuthorizerFunc(func(ctx context.Context) (realtime.Credentials, error) {
			secret, err := api.RealtimeAuth(ctx, cfg.Realtime.AuthPath, cfg.Realtime.Channel)
			if err != nil {
				return realtime.Credentials{}, err
			}
			return realtime.Credentials{Username: cfg.Realtime.Username, Password: secret}, nil
		}),
	)
	stockFeed := stockfeed.NewFeed(ctx, manager, stockfeed.Options{
		Channel:        cfg.Realtime.Channel,
		MaxRetries:     cfg.Realtime.MaxRetries,
		RetryBaseDelay: cfg.Realtime.RetryBaseDelay,
	}, func(c stockfeed.StockChange) {
		shopCart.OnStockChange(c.ProductID, c.NewStock)
	})
	shopCart.Watch(stockFeed)
	sess.OnLogin(stockFeed.Start)
	sess.OnLogout(stockFeed.Stop)
	if sess.LoggedIn() {
		stockFeed.Start()
	}

	var payments checkout.Payments = paypal.Unavailable{}
	pp, err := paypal.New(ctx, paypal.Config{
		ClientID:  cfg.PayPal.ClientID,
		Secret:    cfg.PayPal.Secret,
		BaseURL:   cfg.PayPal.BaseURL,
		BrandName: cfg.PayPal.BrandName,
		ReturnURL: cfg.PayPal.ReturnURL,
		CancelURL: cfg.PayPal.CancelURL,
	})
	switch {
	case errors.Is(err, paypal.ErrNotConfigured):
		logrus.Warn("⚠️ PayPal credentials missing, payments are disabled")
	case err != nil:
		logrus.Fatal(err)
	default:
		payments = pp
	}

	alerter, closeAlerts := newAlerter(ctx, cfg.Alerts)
	defer closeAlerts()
	defer alerter.Wait()
	go alerter.StartDailySummary(ctx)

	pricer, err := checkout.NewPricer(cfg.Checkout)
	if err != nil {
		logrus.Fatal(err)
	}
	orchestrator := checkout.New(shopCart, api, payments, alerter, checkout.NewDraftStore(kv), pricer)

	sess.OnLogout(func() {
		shopCart.Reset()
		if err := orchestrator.Discard(context.Background()); err != nil {
			logrus.WithError(err).Warn("Could not discard the checkout draft")
		}
	})
	sess.OnLogin(func() {
		go func() {
			if err := shopCart.Load(ctx); err != nil {
				logrus.WithError(err).Warn("Could not load the cart after login")
			}
		}()
	})

	handlers.SetAuthenticator(api)
	handlers.SetSession(sess)
	handlers.SetCart(shopCart)
	handlers.SetCatalog(catalog.New(api))
	handlers.SetStockFetcher(stock.NewFetcher(api))
	handlers.SetCheckout(orchestrator)
	handlers.SetAdmin(admin.New(api))
	handlers.SetNotices(feed)
	mw.SetSession(sess)

	rl.Configure(cfg.Server.RateLimit, cfg.Server.RateBurst)
	go rl.StartVisitorCleanupLoop(ctx)

	routes := router.NewRouter(router.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit:      cfg.Server.RateLimit > 0,
		TrustProxy:     cfg.Server.TrustProxy,
	})
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           routes,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.Infof("✅ Server running on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("Graceful shutdown failed")
	}
}

// newAlerter mails through SMTP when configured and keeps the daily log in
// redis when alerts.redis_addr is set, in memory otherwise.
func newAlerter(ctx context.Context, cfg config.AlertsConfig) (*alerts.Alerter, func()) {
	var mailer alerts.Mailer
	if m, ok := alerts.NewSMTPMailer(cfg); ok {
		mailer = m
	} else {
		logrus.Warn("⚠️ SMTP not configured, operator alerts are only logged")
	}

	var log alerts.Log
	closeLog := func() {}
	if cfg.RedisAddr != "" {
		rs, err := redissvc.Connect(ctx, &redis.Options{Addr: cfg.RedisAddr})
		if err != nil {
			logrus.WithError(err).Warn("Alert log falls back to memory")
		} else {
			log = alerts.NewRedisLog(rs.Rdb(), cfg.LogKey)
			closeLog = func() { _ = rs.Close() }
		}
	}
	return alerts.New(mailer, log), closeLog
}
