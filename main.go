package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pos-service/internal/cache"
	"pos-service/internal/config"
	"pos-service/internal/database"
	"pos-service/internal/email"
	"pos-service/internal/fcm"
	"pos-service/internal/hub"
	"pos-service/internal/middleware"
	"pos-service/internal/sync"
	"pos-service/internal/transport/http"
	"pos-service/utils"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

var startTime time.Time

func main() {
	startTime = time.Now()
	cfg := config.Load()

	database.InitDB(cfg)
	db := database.GetDB()

	// R2 product-image storage is optional; routes answer 503 without it.
	var r2Client *utils.ProductR2Client
	if cfg.R2AccountID != "" {
		client, err := utils.NewProductR2Client(utils.ProductR2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		})
		if err != nil {
			log.Fatalf("❌ [R2] Failed to initialize client: %v", err)
		}
		r2Client = client
		log.Println("✅ [R2] Product image client initialized")
	} else {
		log.Println("⚠️ [R2] Image storage disabled (no R2_ACCOUNT_ID)")
	}

	var fcmClient *fcm.Client
	if creds := os.Getenv("FIREBASE_CREDENTIALS_JSON"); creds != "" {
		client, err := fcm.NewClient(context.Background(), []byte(creds))
		if err != nil {
			log.Fatalf("❌ Failed to initialize FCM: %v", err)
		}
		fcmClient = client
		log.Println("✅ FCM client initialized")
	} else {
		log.Println("⚠️ FCM disabled (no FIREBASE_CREDENTIALS_JSON)")
	}

	emailSender := email.NewSender(cfg)
	if emailSender.Enabled() {
		log.Printf("✅ [EMAIL] Receipt delivery enabled via %s", cfg.SMTPHost)
	} else {
		log.Println("⚠️ [EMAIL] Receipt delivery disabled (no SMTP_HOST/SMTP_FROM)")
	}

	// Store groups: local hub always, redis on top when configured so
	// multiple instances see each other's sync events.
	storeHub := hub.New()
	var notifier sync.Notifier = storeHub
	var eventBus *cache.EventBus
	if cfg.RedisAddr != "" {
		bus, err := cache.NewEventBus(cache.BusConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, storeHub)
		if err != nil {
			log.Fatalf("❌ [REDIS] Failed to connect: %v", err)
		}
		eventBus = bus
		notifier = bus
		log.Printf("✅ [REDIS] Sync event bus connected (%s)", cfg.RedisAddr)
	} else {
		log.Println("⚠️ [REDIS] Event bus disabled, sync events stay in-process")
	}

	syncService := sync.NewService(db, notifier)
	hubHandler := hub.NewHandler(storeHub, syncService, db, pusherOrNil(fcmClient))
	handler := http.NewHandler(db, cfg, syncService, emailSender, r2Client)
	log.Println("✅ [SERVICE] Sync service & handlers initialized")

	app := fiber.New(fiber.Config{
		AppName:      "pos-service",
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Requested-With,X-Device-ID,Cache-Control",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(logger.New(logger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${ua}\n",
	}))

	handler.RegisterRoutes(app)
	log.Println("✅ [ROUTES] Registered API routes under /api")

	// Realtime sync channel. Token travels as a query parameter because
	// browser websocket clients cannot set headers.
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/sync", middleware.WSAuth(cfg.JWTSecret), websocket.New(hubHandler.Serve))
	log.Println("✅ [ROUTES] Registered realtime channel: /ws/sync")

	app.Get("/health", func(c *fiber.Ctx) error {
		uptime := time.Since(startTime).Round(time.Second)
		return c.JSON(fiber.Map{
			"status":        "ok",
			"service":       "pos-service",
			"uptime":        uptime.String(),
			"timestamp":     time.Now().UTC().Format(time.RFC3339),
			"fcm_enabled":   fcmClient != nil,
			"email_enabled": emailSender.Enabled(),
			"redis_enabled": eventBus != nil,
			"ws_clients":    storeHub.TotalClientCount(),
		})
	})
	log.Println("✅ [ROUTES] Registered /health")

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("🛑 [SHUTDOWN] Graceful shutdown initiated...")
		if eventBus != nil {
			if err := eventBus.Close(); err != nil {
				log.Printf("❌ [SHUTDOWN] Redis close error: %v", err)
			}
		}
		if err := app.Shutdown(); err != nil {
			log.Printf("❌ [SHUTDOWN] Error: %v", err)
		}
	}()

	log.Printf("🚀 pos-service starting...")
	log.Printf("   🔗 Listening on port: %s", cfg.ServerPort)
	log.Printf("   🌐 CORS allowed origins: %s", cfg.AllowedOrigins)
	log.Printf("   🗄️  Database: %s@%s:%s/%s", cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName)
	log.Println("✅ Server ready.")

	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		log.Fatalf("❌ [STARTUP] Server failed to start: %v", err)
	}
}

// pusherOrNil keeps the hub's Pusher interface nil when FCM is disabled
// (a typed nil would dodge the handler's nil check).
func pusherOrNil(client *fcm.Client) hub.Pusher {
	if client == nil {
		return nil
	}
	return client
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var errMsg string
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		errMsg = e.Message
	} else {
		errMsg = err.Error()
	}
	log.Printf("🔥 [ERROR] [%d] %s %s → %v | IP=%s | UA=%s",
		code,
		c.Method(),
		c.Path(),
		errMsg,
		c.IP(),
		c.Get("User-Agent"),
	)
	return c.Status(code).JSON(fiber.Map{
		"error":      "something went wrong",
		"request_id": c.Get("X-Request-ID"),
	})
}
