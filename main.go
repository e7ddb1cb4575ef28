package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/misterVKLN/shopify-webhook/internals/configs"
	database "github.com/misterVKLN/shopify-webhook/internals/databases"
	commerceService "github.com/misterVKLN/shopify-webhook/internals/features/commerce/service"
	enrollmentService "github.com/misterVKLN/shopify-webhook/internals/features/enrollment/service"
	webhookService "github.com/misterVKLN/shopify-webhook/internals/features/webhooks/service"
	helper "github.com/misterVKLN/shopify-webhook/internals/helpers"
	"github.com/misterVKLN/shopify-webhook/internals/metrics"
	middlewares "github.com/misterVKLN/shopify-webhook/internals/middlewares"
	"github.com/misterVKLN/shopify-webhook/internals/queue"
	routes "github.com/misterVKLN/shopify-webhook/internals/route"
	scheduler "github.com/misterVKLN/shopify-webhook/internals/scheduler"
)

func main() {
	configs.LoadEnv()

	app := fiber.New(fiber.Config{
		// 🚀 JSON super cepat
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		DisableStartupMessage: true,
		ProxyHeader:           fiber.HeaderXForwardedFor,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var ve validator.ValidationErrors
			if errors.As(err, &ve) {
				return helper.ValidationError(c, ve)
			}
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return helper.Error(c, code, err.Error())
		},
	})

	// ⚙️ middleware dasar + performa
	app.Use(middlewares.RecoveryMiddleware())
	app.Use(cors.New())
	app.Use(compress.New(compress.Config{Level: compress.LevelDefault}))
	app.Use(etag.New())

	// 🔎 Request-ID + timing (observability ringan)
	app.Use(func(c *fiber.Ctx) error {
		id := c.Get("X-Request-ID")
		if id == "" {
			id = utils.UUID()
		}
		c.Set("X-Request-ID", id)
		c.Locals("reqid", id)
		start := time.Now()
		ctx, cancel := context.WithTimeout(c.Context(), 30*time.Second)
		defer cancel()
		c.SetUserContext(ctx)
		err := c.Next()
		dur := time.Since(start)
		status := c.Response().StatusCode()
		metrics.RequestDuration.
			WithLabelValues(c.Route().Path, strconv.Itoa(status)).
			Observe(dur.Seconds())
		log.Printf("[REQ] id=%s %s %s status=%d dur=%s", id, c.Method(), c.OriginalURL(), status, dur)
		return err
	})

	// 🔌 DB connect + pool + migrasi
	database.ConnectDB()
	database.TunePool()
	database.Migrate()

	// ✅ Settings eksplisit — dipass ke service, bukan global
	shopifySettings := configs.LoadShopifySettings()
	lmsSettings := configs.LoadLMSSettings()

	// Kolaborator eksternal
	shopifyClient := commerceService.NewShopifyClient(shopifySettings)
	gateway := enrollmentService.NewGatewayClient(lmsSettings)
	catalog := enrollmentService.NewCatalogClient(gateway)

	// Core pipeline
	store := webhookService.NewWebhookStore(database.DB)
	orders := webhookService.NewOrderService(database.DB, store, shopifyClient, gateway, catalog)

	// 📨 Work queue: Kafka kalau ada broker, selain itu in-process pool.
	var publisher queue.Publisher
	var memQueue *queue.MemoryQueue
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()

	if kafkaCfg, ok := queue.LoadKafkaConfigFromEnv(configs.GetEnv); ok {
		kq, err := queue.NewKafkaQueue(kafkaCfg)
		if err != nil {
			log.Fatalf("❌ Gagal konek Kafka: %v", err)
		}
		defer kq.Close()
		publisher = kq
		go func() {
			if err := queue.RunKafkaConsumer(consumerCtx, kafkaCfg, orders.HandleMessage); err != nil && consumerCtx.Err() == nil {
				log.Fatalf("❌ Kafka consumer mati: %v", err)
			}
		}()
		log.Printf("✅ Work queue: Kafka topic=%s group=%s", kafkaCfg.Topic, kafkaCfg.GroupID)
	} else {
		memQueue = queue.NewMemoryQueue(configs.GetEnvInt("QUEUE_BUFFER", 256))
		memQueue.Start(configs.GetEnvInt("QUEUE_WORKERS", 4), orders.HandleMessage)
		publisher = memQueue
		log.Println("✅ Work queue: in-process worker pool")
	}

	reconcile := webhookService.NewReconcileService(database.DB, publisher)

	// ⏱ reconciliation sweep berkala setelah semua siap
	scheduler.StartReconcileScheduler(reconcile)

	// ❤️ Health check (anti-cold start)
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	// ✅ Routes
	routes.SetupRoutes(app, routes.Deps{
		DB:        database.DB,
		Store:     store,
		Orders:    orders,
		Reconcile: reconcile,
		Queue:     publisher,
		Shopify:   shopifySettings,
	})

	// 🔒 timeout koneksi server
	app.Server().ReadTimeout = 15 * time.Second
	app.Server().WriteTimeout = 30 * time.Second
	app.Server().IdleTimeout = 90 * time.Second

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	go func() {
		log.Printf("✅ Listening on :%s", port)
		if err := app.Listen("0.0.0.0:" + port); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown: server dulu, baru worker pool + pool DB
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(ctx)

	stopConsumer()
	if memQueue != nil {
		memQueue.Close()
	}
	if sqlDB, err := database.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
