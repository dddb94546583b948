package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/parleychat/parley-backend/internal/config"
	"github.com/parleychat/parley-backend/internal/database"
	"github.com/parleychat/parley-backend/internal/handlers"
	"github.com/parleychat/parley-backend/internal/middleware"
	"github.com/parleychat/parley-backend/internal/routes"
	"github.com/parleychat/parley-backend/internal/services"
	"github.com/parleychat/parley-backend/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	if cfg.JWTSecret == "your-secret-key-change-in-production" && cfg.IsProduction() {
		log.Println("⚠️  WARNING: JWT_SECRET is the default value. Set a real secret in production.")
	}

	ctx := context.Background()

	// Optional Redis: used as the snapshot backend and/or for cross-instance
	// rate limiting.
	var redisClient *redis.Client
	if cfg.RedisURI != "" {
		var err error
		log.Printf("Connecting to Redis...")
		redisClient, err = database.ConnectRedis(cfg.RedisURI)
		if err != nil {
			log.Fatal("Failed to connect to Redis:", err)
		}
		defer redisClient.Close()
	}

	// Snapshot store: the durable home of users, messages and presence.
	var snapshots store.Store
	switch cfg.Storage {
	case config.StorageRedis:
		if redisClient == nil {
			log.Fatal("STORAGE_BACKEND=redis requires REDIS_URI")
		}
		snapshots = store.NewRedisStore(redisClient)
		log.Println("✅ Using Redis snapshot store")
	case config.StorageMongo:
		if cfg.MongoURI == "" {
			log.Fatal("STORAGE_BACKEND=mongo requires MONGODB_URI")
		}
		log.Printf("Connecting to MongoDB...")
		client, db, err := database.ConnectMongo(cfg.MongoURI)
		if err != nil {
			log.Fatal("Failed to connect to MongoDB:", err)
		}
		defer database.DisconnectMongo(client)
		snapshots = store.NewMongoStore(db)
		log.Println("✅ Using MongoDB snapshot store")
	default:
		fs, err := store.NewFileStore(cfg.DataDir)
		if err != nil {
			log.Fatal("Failed to open data dir:", err)
		}
		snapshots = fs
		log.Printf("✅ Using file snapshot store (%s)", cfg.DataDir)
	}

	// Accounts: snapshot-backed by default, PostgreSQL when configured.
	var accounts services.AccountStore
	if cfg.PostgresURI != "" {
		log.Printf("Connecting to PostgreSQL...")
		db, err := database.ConnectPostgres(cfg.PostgresURI)
		if err != nil {
			log.Fatal("Failed to connect to PostgreSQL:", err)
		}
		defer db.Close()
		accounts = services.NewPostgresAccounts(db)
	} else {
		snap, err := services.NewSnapshotAccounts(ctx, snapshots)
		if err != nil {
			log.Fatal("Failed to load users:", err)
		}
		accounts = snap
	}

	presence, err := services.NewPresenceRegistry(ctx, snapshots)
	if err != nil {
		log.Fatal("Failed to load presence registry:", err)
	}
	messages, err := services.NewMessageStore(ctx, snapshots)
	if err != nil {
		log.Fatal("Failed to load message log:", err)
	}

	authenticator := services.NewAuthenticator(accounts, cfg.JWTSecret, cfg.TokenTTL)
	relay := services.NewRelayDispatcher(presence)
	signaling := services.NewSignalingForwarder(relay)
	reconciler := services.NewSyncReconciler(presence, messages)

	authHandler := handlers.NewAuthHandler(authenticator, presence)
	syncHandler := handlers.NewSyncHandler(authenticator, reconciler)
	gateway := handlers.NewGateway(authenticator, presence, messages, relay, signaling)

	r := chi.NewRouter()

	// Custom CORS: set headers and respond to OPTIONS with 200 so preflight
	// never gets 403.
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity() {
			r.Use(mw)
		}
		log.Println("✅ Production security enabled (security headers, per-IP + login rate limiting)")
	}
	if redisClient != nil {
		r.Use(middleware.RedisRateLimit(redisClient))
		log.Println("✅ Redis rate limiting enabled")
	}

	// Health check (no auth)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	routes.SetupRoutes(r, authHandler, syncHandler, gateway)

	log.Println("📋 Registered routes:")
	log.Println("  GET  /health")
	log.Println("  POST /api/auth/signup")
	log.Println("  POST /api/auth/signin")
	log.Println("  GET  /api/auth/verify")
	log.Println("  GET  /api/users")
	log.Println("  POST /api/sync/presence")
	log.Println("  POST /api/sync/messages")
	log.Println("  GET  /ws/chat")

	log.Printf("🚀 Parley backend running on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
