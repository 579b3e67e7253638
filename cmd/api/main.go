package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/bakery/gateway"
	"github.com/example/bakery/pkg/auth"
	"github.com/example/bakery/pkg/checkout"
	"github.com/example/bakery/pkg/config"
	"github.com/example/bakery/pkg/delivery"
	"github.com/example/bakery/pkg/discovery"
	"github.com/example/bakery/pkg/grpc"
	"github.com/example/bakery/pkg/logger"
	"github.com/example/bakery/pkg/notify"
	"github.com/example/bakery/pkg/payment"
	"github.com/example/bakery/pkg/repository"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the yaml config file")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	log, err := logger.New(&cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting bakery API",
		zap.String("name", cfg.Server.Name),
		zap.Int("port", cfg.Server.Port))

	ctx := context.Background()

	// Storage
	mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoRepo.Close(closeCtx); err != nil {
			log.Error("Failed to close MongoDB", zap.Error(err))
		}
	}()
	if err := mongoRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal("Failed to create indexes", zap.Error(err))
	}

	health := map[string]gateway.Pinger{"mongodb": mongoRepo}

	var redisRepo *repository.RedisRepository
	if cfg.Redis.Enabled {
		redisRepo = repository.NewRedisRepository(&cfg.Redis)
		defer redisRepo.Close()
		if err := redisRepo.Ping(ctx); err != nil {
			log.Warn("Redis connection failed", zap.Error(err))
		} else {
			log.Info("Redis connected successfully")
		}
		health["redis"] = redisRepo
	} else {
		log.Info("Redis disabled; catalog cache and idempotency keys are off")
	}

	ledger, err := repository.OpenLedger(&cfg.MySQL)
	if err != nil {
		log.Fatal("Failed to open payments ledger", zap.Error(err))
	}
	defer ledger.Close()

	cakes := repository.NewCakeStore(mongoRepo)
	categories := repository.NewCategoryStore(mongoRepo)
	addons := repository.NewAddonStore(mongoRepo)
	locations := repository.NewLocationStore(mongoRepo)
	coupons := repository.NewCouponStore(mongoRepo)
	settings := repository.NewSettingsStore(mongoRepo)
	users := repository.NewUserStore(mongoRepo)
	admins := repository.NewAdminStore(mongoRepo)
	carts := repository.NewCartStore(mongoRepo)
	orders := repository.NewOrderStore(mongoRepo)

	// Delivery
	var geocoder delivery.Geocoder
	if cfg.Geocoding.Enabled {
		gc, err := delivery.NewGeocodeClient(&cfg.Geocoding)
		if err != nil {
			log.Fatal("Failed to set up geocoding", zap.Error(err))
		}
		geocoder = gc
	}
	var deliveryCache delivery.Cache
	if redisRepo != nil {
		deliveryCache = redisRepo
	}
	checker := delivery.NewChecker(locations, geocoder, deliveryCache, cfg.Store.DeliveryCacheTTL, log.Named("delivery"))

	// Notifications
	hub := gateway.NewLiveHub(log.Named("live"))
	mailer, err := notify.NewMailer(&cfg.Mail, log)
	if err != nil {
		log.Fatal("Failed to create mailer", zap.Error(err))
	}
	notifier, err := notify.Start(&cfg.Mail, mailer, hub, log)
	if err != nil {
		log.Fatal("Failed to start notification actors", zap.Error(err))
	}
	defer notifier.Stop(5 * time.Second)

	// Checkout
	checkoutDeps := checkout.Deps{
		Cakes:    cakes,
		Addons:   addons,
		Coupons:  coupons,
		Settings: settings,
		Carts:    carts,
		Users:    users,
		Orders:   orders,
		Delivery: checker,
		Gateway:  payment.NewGateway(&cfg.Payment),
		Ledger:   ledger,
		Events:   notifier,
	}
	if redisRepo != nil {
		checkoutDeps.Idempotency = redisRepo
	}
	checkoutSvc := checkout.NewService(checkoutDeps, checkout.Options{
		Location:       cfg.Store.Location(),
		MaxAdvanceDays: cfg.Store.MaxAdvanceDays,
		IdempotencyTTL: cfg.Store.IdempotencyTTL,
		Currency:       cfg.Payment.Currency,
		KeySecret:      cfg.Payment.KeySecret,
		WebhookSecret:  cfg.Payment.WebhookSecret,
	}, log.Named("checkout"))

	// Auth
	tokens := auth.NewTokenIssuer(&cfg.Auth, cfg.Server.Name)
	if err := auth.SeedAdmin(ctx, admins, &cfg.Auth, log); err != nil {
		log.Fatal("Failed to seed admin", zap.Error(err))
	}

	deps := gateway.Deps{
		Cakes:         cakes,
		Categories:    categories,
		Addons:        addons,
		Locations:     locations,
		Banners:       repository.NewBannerStore(mongoRepo),
		News:          repository.NewNewsStore(mongoRepo),
		Subscribers:   repository.NewSubscriberStore(mongoRepo),
		Coupons:       coupons,
		Settings:      settings,
		Users:         users,
		Admins:        admins,
		Carts:         carts,
		Orders:        orders,
		Ledger:        ledger,
		Audit:         mongoRepo,
		Delivery:      checker,
		Checkout:      checkoutSvc,
		Subscriptions: notifier,
		Tokens:        tokens,
		Live:          hub,
		Health:        health,
	}
	if redisRepo != nil {
		deps.Cache = redisRepo
	}
	if cfg.Auth.OIDCClientID != "" {
		verifier, err := auth.NewGoogleVerifier(ctx, &cfg.Auth)
		if err != nil {
			log.Fatal("Failed to set up Google sign-in", zap.Error(err))
		}
		deps.Identity = verifier
	} else {
		log.Warn("auth.oidc_client_id is not set; Google sign-in is disabled")
	}

	// Service discovery
	var sd *discovery.ServiceDiscovery
	instance := &discovery.ServiceInstance{
		Name: cfg.Server.Name,
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}
	if cfg.Etcd.Enabled {
		sd, err = discovery.NewServiceDiscovery(&cfg.Etcd, log.Named("discovery"))
		if err != nil {
			log.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
		} else {
			defer sd.Close()
			if err := sd.Register(ctx, instance); err != nil {
				log.Error("Failed to register service", zap.Error(err))
			} else {
				log.Info("Service registered in etcd", zap.String("address", instance.Addr()))
			}
			deps.Instances = sd
		}
	}

	gw := gateway.NewGateway(cfg, deps, log.Named("gateway"))

	errCh := make(chan error, 2)
	go func() {
		if err := gw.Start(); err != nil {
			errCh <- err
		}
	}()

	var healthSrv *grpc.HealthServer
	if cfg.GRPC.Enabled {
		checks := make(map[string]grpc.Pinger, len(health))
		for name, p := range health {
			checks[name] = p
		}
		healthSrv = grpc.NewHealthServer(&cfg.GRPC, checks, log.Named("grpc"))
		go func() {
			if err := healthSrv.Start(); err != nil {
				errCh <- fmt.Errorf("grpc health: %w", err)
			}
		}()
	}

	log.Info("Bakery API started successfully")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("Received shutdown signal")
	case err := <-errCh:
		log.Error("Server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if sd != nil {
		if err := sd.Deregister(shutdownCtx, instance); err != nil {
			log.Error("Failed to deregister service", zap.Error(err))
		}
	}
	if healthSrv != nil {
		healthSrv.Stop()
	}
	if err := gw.Shutdown(shutdownCtx); err != nil {
		log.Error("Gateway shutdown failed", zap.Error(err))
	}

	log.Info("Bakery API stopped")
}
