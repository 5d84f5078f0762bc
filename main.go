package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"runtime"
	"strings"
	"time"

	"pricepilot/cache"
	"pricepilot/config"
	"pricepilot/database"
	"pricepilot/handlers"
	"pricepilot/matcher"
	"pricepilot/middleware"
	"pricepilot/pipeline"
	"pricepilot/recommend"
	"pricepilot/repository"
	"pricepilot/scheduler"
	"pricepilot/scraper"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

var startTime = time.Now()

// Metrics struct for basic monitoring
type Metrics struct {
	Timestamp      time.Time              `json:"timestamp"`
	Uptime         string                 `json:"uptime"`
	Goroutines     int                    `json:"goroutines"`
	MemoryUsage    string                 `json:"memory_usage"`
	ActiveProducts int                    `json:"active_products"`
	Tasks          map[string]interface{} `json:"tasks"`
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := database.CreateTables(db); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	// Optional latest-price cache. A nil cache is a no-op.
	priceCache, err := cache.New(cfg.Redis)
	if err != nil {
		log.Printf("⚠️ Redis unavailable, running without price cache: %v", err)
	}

	// Initialize repositories
	productRepo := repository.NewProductRepository(db)
	priceRepo := repository.NewPriceRecordRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	// Pick the page fetcher. Plain HTTP is the default; the headless
	// browser handles vendors that render prices client side.
	var fetcher scraper.Fetcher
	if cfg.Scraper.UseBrowser {
		browser, err := scraper.NewBrowserFetcher(cfg.Scraper.BrowserBin)
		if err != nil {
			log.Fatalf("Failed to start browser fetcher: %v", err)
		}
		defer browser.Close()
		fetcher = browser
		log.Println("🧭 Using headless browser fetcher")
	} else {
		fetcher = scraper.NewHTTPFetcher(cfg.Scraper.RequestTimeout)
	}

	// Cross-platform matcher and recommendation engine
	m := matcher.New(fetcher, priceRepo, cfg.Matcher)
	engine := recommend.NewEngine(cfg.Model)

	// Pipeline orchestrator ties scraping, persistence and matching together
	orchestrator := pipeline.New(fetcher, productRepo, priceRepo, alertRepo, m, priceCache, cfg.Matcher)

	// Background task manager for async tracking requests
	taskManager := scheduler.NewTaskManager(orchestrator.TrackURL, 3)
	defer taskManager.Stop()

	// Daily refresh of every tracked product
	dailyScraper := scheduler.NewDailyScraper(orchestrator)
	dailyScraper.Start()
	defer dailyScraper.Stop()

	// Initialize handlers
	h := handlers.NewHandlers(orchestrator, productRepo, priceRepo, alertRepo, m, engine, priceCache, taskManager)

	// Setup router
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.RateLimitMiddleware(cfg.API.RateLimit))

	// Health and monitoring endpoints (no auth required)
	r.HandleFunc("/health", healthCheck).Methods("GET")
	r.HandleFunc("/metrics", metricsHandler(productRepo, taskManager)).Methods("GET")
	r.HandleFunc("/status", statusHandler(productRepo, priceCache)).Methods("GET")

	// API v1 routes
	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.Use(middleware.APIKeyMiddleware(cfg.API))

	// Product tracking
	apiV1.HandleFunc("/products", h.TrackProduct).Methods("POST")
	apiV1.HandleFunc("/products/async", h.TrackProductAsync).Methods("POST")
	apiV1.HandleFunc("/products", h.GetProducts).Methods("GET")
	apiV1.HandleFunc("/products/{id}", h.GetProduct).Methods("GET")
	apiV1.HandleFunc("/products/{id}", h.DeleteProduct).Methods("DELETE")
	apiV1.HandleFunc("/products/{id}/history", h.GetPriceHistory).Methods("GET")
	apiV1.HandleFunc("/products/{id}/stats", h.GetPriceStats).Methods("GET")
	apiV1.HandleFunc("/products/{id}/recommendation", h.Recommend).Methods("POST")

	// Cross-platform search
	apiV1.HandleFunc("/search-platforms", h.SearchPlatforms).Methods("POST")

	// Price alerts
	apiV1.HandleFunc("/products/{id}/alerts", h.SetPriceAlert).Methods("POST")
	apiV1.HandleFunc("/products/{id}/alerts", h.GetPriceAlerts).Methods("GET")
	apiV1.HandleFunc("/products/{id}/alerts/{alertId}", h.DeletePriceAlert).Methods("DELETE")

	// Task management
	apiV1.HandleFunc("/tasks/stats", h.GetTaskStats).Methods("GET")
	apiV1.HandleFunc("/tasks/{taskId}", h.GetTaskStatus).Methods("GET")

	// Internal operations
	apiV1.HandleFunc("/internal/daily-run", h.RunDailyNow).Methods("POST")

	// CORS configuration
	c := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.Server.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	log.Printf("🌐 Server starting on port %s", cfg.Server.Port)
	log.Printf("📋 Endpoints:")
	log.Printf("   GET  /health - Health check")
	log.Printf("   GET  /metrics - System metrics")
	log.Printf("   GET  /status - Detailed status")
	log.Printf("   POST /api/v1/products - Track a product URL")
	log.Printf("   POST /api/v1/products/async - Track a product URL (queued)")
	log.Printf("   GET  /api/v1/products - List tracked products")
	log.Printf("   POST /api/v1/search-platforms - Search other platforms")
	log.Printf("   POST /api/v1/products/{id}/recommendation - Buy/wait judgment")

	// Start server
	log.Fatal(http.ListenAndServe(cfg.Server.Host+":"+cfg.Server.Port, c.Handler(r)))
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"service":     "pricepilot",
		"status":      "healthy",
		"timestamp":   time.Now(),
		"version":     "1.0.0",
		"api_version": "v1",
		"endpoints": map[string]string{
			"health":  "/health",
			"metrics": "/metrics",
			"status":  "/status",
			"api_v1":  "/api/v1",
		},
	}
	writeJSON(w, http.StatusOK, response)
}

func metricsHandler(products *repository.ProductRepository, tm *scheduler.TaskManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		active := 0
		if list, err := products.List(r.Context()); err == nil {
			active = len(list)
		}

		writeJSON(w, http.StatusOK, Metrics{
			Timestamp:      time.Now(),
			Uptime:         time.Since(startTime).String(),
			Goroutines:     runtime.NumGoroutine(),
			MemoryUsage:    fmt.Sprintf("%.2f MB", float64(m.Alloc)/1024/1024),
			ActiveProducts: active,
			Tasks:          tm.Stats(),
		})
	}
}

func statusHandler(products *repository.ProductRepository, priceCache *cache.PriceCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := products.List(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to get products")
			return
		}

		cacheState := "disabled"
		if priceCache != nil {
			cacheState = "enabled"
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"timestamp":      time.Now(),
			"uptime":         time.Since(startTime).String(),
			"total_products": len(list),
			"price_cache":    cacheState,
			"system_health":  "healthy",
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
