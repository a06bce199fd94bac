package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"timeoff-tracker-go/internal/handlers"
	"timeoff-tracker-go/internal/hrms"
	"timeoff-tracker-go/internal/notify"
	"timeoff-tracker-go/internal/recordstore"
	"timeoff-tracker-go/internal/store"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	// Record store configuration (system of record for users and requests)
	recordServer := os.Getenv("RECORD_STORE_URL")
	if recordServer == "" {
		log.Fatal("RECORD_STORE_URL environment variable is required")
	}
	recordDB := os.Getenv("RECORD_STORE_DATABASE")
	if recordDB == "" {
		recordDB = "timeoff"
	}
	recordClient := recordstore.NewClient(
		recordServer,
		recordDB,
		os.Getenv("RECORD_STORE_USER"),
		os.Getenv("RECORD_STORE_PASSWORD"),
	)

	// Redis configuration (bearer-token sessions)
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisDB := 0
	if s := os.Getenv("REDIS_DB"); s != "" {
		if db, err := strconv.Atoi(s); err == nil {
			redisDB = db
		}
	}
	sessionStore := store.NewRedisSessionStore(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       redisDB,
	})

	// PostgreSQL configuration (audit log, push subscriptions)
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}
	pgStore, err := store.NewPostgresStore(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	if err := pgStore.RunMigrations(context.Background()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	userStore := store.NewRecordUserStore(recordClient)
	requestStore := store.NewRecordRequestStore(recordClient)
	hrmsService := hrms.NewService(recordClient)
	hub := notify.NewHub()

	h := handlers.NewHandler(userStore, requestStore, sessionStore, pgStore, hrmsService, hub)

	// Auth routes
	http.HandleFunc("/api/auth/register", postOnly(h.RegisterHandler))
	http.HandleFunc("/api/auth/login", postOnly(h.LoginHandler))
	http.HandleFunc("/api/auth/verify-2fa", postOnly(h.Verify2FAHandler))
	http.HandleFunc("/api/auth/logout", postOnly(h.WithAuth(h.LogoutHandler)))
	http.HandleFunc("/api/auth/me", h.WithAuth(h.MeHandler))
	http.HandleFunc("/api/auth/password", postOnly(h.WithAuth(h.ChangePasswordHandler)))
	http.HandleFunc("/api/auth/2fa/generate", postOnly(h.WithAuth(h.Generate2FAHandler)))
	http.HandleFunc("/api/auth/2fa/enable", postOnly(h.WithAuth(h.Enable2FAHandler)))
	http.HandleFunc("/api/auth/2fa/disable", postOnly(h.WithAuth(h.Disable2FAHandler)))

	// Request routes
	http.HandleFunc("/api/requests", h.WithAuth(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.ListRequestsHandler(w, r)
		case http.MethodPost:
			h.CreateRequestHandler(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}))
	http.HandleFunc("/api/requests/", h.WithAuth(func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/requests/")
		parts := strings.Split(strings.Trim(rest, "/"), "/")

		switch {
		case len(parts) == 1 && parts[0] != "" && r.Method == http.MethodGet:
			h.GetRequestHandler(w, r, parts[0])
		case len(parts) == 2 && parts[1] == "decision" && r.Method == http.MethodPut:
			h.DecideRequestHandler(w, r, parts[0])
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}))

	// User routes
	http.HandleFunc("/api/users", h.WithAuth(handlers.RequireRole("admin", h.GetUsersHandler)))
	http.HandleFunc("/api/users/", h.WithAuth(func(w http.ResponseWriter, r *http.Request) {
		id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/users/"), "/")
		if id == "" {
			http.NotFound(w, r)
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.GetUserHandler(w, r, id)
		case http.MethodPut:
			h.UpdateUserHandler(w, r, id)
		case http.MethodDelete:
			handlers.RequireRole("admin", func(w http.ResponseWriter, r *http.Request) {
				h.DeleteUserHandler(w, r, id)
			})(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}))

	// Admin routes
	http.HandleFunc("/api/admin/audit", h.WithAuth(handlers.RequireRole("admin", h.AuditLogHandler)))

	// Web push
	http.HandleFunc("/api/push/vapid", h.GetVAPIDKeyHandler)
	http.HandleFunc("/api/push/subscribe", postOnly(h.WithAuth(h.SubscribePushHandler)))

	// Live channel
	http.HandleFunc("/ws", h.WSHandler)

	// Operational endpoints
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Println("Listening on :" + port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal(err)
	}
}

func postOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}
