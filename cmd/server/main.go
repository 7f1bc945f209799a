package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Lixing-Zhang/storefront/internal/catalog"
	"github.com/Lixing-Zhang/storefront/internal/config"
	"github.com/Lixing-Zhang/storefront/internal/coupon"
	"github.com/Lixing-Zhang/storefront/internal/events"
	"github.com/Lixing-Zhang/storefront/internal/handlers"
	"github.com/Lixing-Zhang/storefront/internal/metrics"
	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/Lixing-Zhang/storefront/internal/repository"
	"github.com/Lixing-Zhang/storefront/internal/service"
	"github.com/Lixing-Zhang/storefront/internal/session"
	"github.com/Lixing-Zhang/storefront/internal/settings"
	"github.com/Lixing-Zhang/storefront/pkg/logger"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.LogLevel)
	zap.ReplaceGlobals(log)
	defer log.Sync()
	otel.SetTextMapPropagator(propagation.TraceContext{})

	log.Info("starting storefront api server",
		zap.String("port", cfg.Server.Port),
		zap.String("host", cfg.Server.Host),
		zap.String("log_level", cfg.LogLevel),
		zap.String("catalog_source", cfg.Catalog.Source),
		zap.String("order_store", cfg.Orders.Store),
	)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("server stopped gracefully")
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	prefs, err := settings.Load(cfg.SettingsFile)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	m := metrics.New()

	registry, err := session.NewRegistry(cfg.Auth.APIKeys)
	if err != nil {
		return fmt.Errorf("load api keys: %w", err)
	}

	// Catalog feed and mirror
	seed := repository.NewInMemoryProductRepository()
	var (
		feed       catalog.Feed
		memoryFeed *catalog.MemoryFeed
	)
	switch cfg.Catalog.Source {
	case config.SourceRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.Catalog.RedisAddr})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		feed = catalog.NewRedisFeed(client, cfg.Catalog.ItemsChannel, cfg.Catalog.CategoryChannel, log)
	default:
		memoryFeed = catalog.NewMemoryFeed(seed)
		feed = memoryFeed
	}

	mirror := catalog.NewMirror(feed, feed, cfg.Catalog.LoadTimeout, log)
	mirror.OnUpdate(func() { m.CatalogUpdated(len(mirror.Items())) })
	if err := mirror.Start(ctx); err != nil {
		return fmt.Errorf("start catalog mirror: %w", err)
	}
	defer mirror.Close()

	var products repository.ProductRepository = seed
	if memoryFeed == nil {
		products = catalog.NewMirrorRepository(mirror)
	}

	// Discount codes
	coupons := coupon.NewCatalog()
	if len(cfg.Discount.Sources) > 0 {
		log.Info("loading discount codes...", zap.Strings("sources", cfg.Discount.Sources))
		if err := coupons.Load(ctx, cfg.Discount.Sources); err != nil {
			return fmt.Errorf("load discount codes: %w", err)
		}
		stats := coupons.Stats()
		log.Info("discount codes loaded successfully",
			zap.Int("total_sources", stats.TotalSources),
			zap.Int("total_codes", stats.TotalCodes),
		)
	} else {
		log.Warn("no discount sources configured, every code will be rejected")
	}

	// Order store
	var orders repository.OrderRepository
	switch cfg.Orders.Store {
	case config.StoreMySQL:
		db, err := sql.Open("mysql", cfg.Orders.MySQLDSN)
		if err != nil {
			return fmt.Errorf("open mysql: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("connect mysql: %w", err)
		}
		repo := repository.NewMySQLOrderRepository(db)
		if cfg.Orders.Migrate {
			if err := repo.Migrate(ctx); err != nil {
				return err
			}
			if err := catalog.SeedInventory(ctx, mirror, repo, log); err != nil {
				return fmt.Errorf("seed inventory: %w", err)
			}
		}
		orders = repo
	default:
		if memoryFeed != nil {
			orders = repository.NewInMemoryOrderRepository(seed)
		} else {
			orders = repository.NewInMemoryOrderRepository(nil)
		}
	}

	// Order events
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.AMQPURL != "" {
		pub, err := events.NewRabbitMQPublisher(events.RabbitMQConfig{
			URL:      cfg.Events.AMQPURL,
			Exchange: cfg.Events.Exchange,
		}, log)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		publisher = pub
	}
	defer publisher.Close()

	// Initialize services
	orderService := service.NewOrderService(products, orders, publisher, m, log)
	if memoryFeed != nil {
		orderService.OnPlaced(func(ctx context.Context, order *models.Order) {
			if cfg.Orders.Store == config.StoreMySQL {
				if err := seed.DeductStock(ctx, order.Lines); err != nil {
					log.Warn("catalog_stock_deduct_failed", zap.String("order_id", order.ID), zap.Error(err))
				}
			}
			if err := memoryFeed.Publish(ctx); err != nil {
				log.Warn("catalog_republish_failed", zap.String("order_id", order.ID), zap.Error(err))
			}
		})
	}

	store := service.NewStoreService(mirror, coupons, service.LocalOrderCreator{Orders: orderService}, m, log)
	catalogService := service.NewCatalogService(mirror, store, prefs)

	r := handlers.NewRouter(handlers.Dependencies{
		Registry:       registry,
		Store:          store,
		Catalog:        catalogService,
		Orders:         orderService,
		Coupons:        coupons,
		Metrics:        m,
		Logger:         log,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed to start: %w", err)
	case <-quit:
	}

	log.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
