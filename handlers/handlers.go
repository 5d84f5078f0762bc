package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"pricepilot/cache"
	"pricepilot/matcher"
	"pricepilot/models"
	"pricepilot/pipeline"
	"pricepilot/repository"
	"pricepilot/scheduler"
	"pricepilot/scraper"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// ProductStore is the product persistence surface handlers need.
type ProductStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetByUser(ctx context.Context, userID string) ([]models.Product, error)
	Deactivate(ctx context.Context, id uuid.UUID, userID string) error
}

// RecordStore is the price-history surface handlers need.
type RecordStore interface {
	History(ctx context.Context, productID uuid.UUID, limit int) ([]models.PriceRecord, error)
	Stats(ctx context.Context, productID uuid.UUID) (models.PriceStats, error)
}

// AlertStore is the alert persistence surface handlers need.
type AlertStore interface {
	SetPriceAlert(ctx context.Context, productID uuid.UUID, targetPrice float64, alertType string, percentage float64) (*models.PriceAlert, error)
	GetPriceAlerts(ctx context.Context, productID uuid.UUID) ([]models.PriceAlert, error)
	DeletePriceAlert(ctx context.Context, alertID int) error
}

// Recommender produces a buy/wait judgment for a product.
type Recommender interface {
	Recommend(ctx context.Context, product *models.Product, history []models.PriceRecord, stats models.PriceStats) models.Recommendation
}

type Handlers struct {
	orchestrator *pipeline.Orchestrator
	products     ProductStore
	records      RecordStore
	alerts       AlertStore
	finder       pipeline.AlternateFinder
	recommender  Recommender
	priceCache   *cache.PriceCache
	taskManager  *scheduler.TaskManager
}

func NewHandlers(
	orchestrator *pipeline.Orchestrator,
	products ProductStore,
	records RecordStore,
	alerts AlertStore,
	finder pipeline.AlternateFinder,
	recommender Recommender,
	priceCache *cache.PriceCache,
	taskManager *scheduler.TaskManager,
) *Handlers {
	return &Handlers{
		orchestrator: orchestrator,
		products:     products,
		records:      records,
		alerts:       alerts,
		finder:       finder,
		recommender:  recommender,
		priceCache:   priceCache,
		taskManager:  taskManager,
	}
}

// TrackProduct handles a user submitting a product URL: the scrape handler.
// The domain is validated against the vendor table before any fetch.
func (h *Handlers) TrackProduct(w http.ResponseWriter, r *http.Request) {
	var req models.TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.URL == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "url and user_id are required")
		return
	}

	if _, err := scraper.VendorForURL(req.URL); err != nil {
		writeError(w, http.StatusBadRequest, "Unsupported vendor domain")
		return
	}

	resp, err := h.orchestrator.TrackURL(r.Context(), req.URL, req.UserID)
	if err != nil {
		log.Printf("Failed to track %s: %v", req.URL, err)
		writeError(w, trackStatus(err), "Failed to track product: "+err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// TrackProductAsync queues the submission and returns a task ID.
func (h *Handlers) TrackProductAsync(w http.ResponseWriter, r *http.Request) {
	var req models.TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.URL == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "url and user_id are required")
		return
	}

	if _, err := scraper.VendorForURL(req.URL); err != nil {
		writeError(w, http.StatusBadRequest, "Unsupported vendor domain")
		return
	}

	task := h.taskManager.Submit(req.URL, req.UserID)

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"task_id": task.ID,
		"status":  task.Status,
		"message": "Tracking queued for processing",
	})
}

// GetTaskStatus returns the status of an async task
func (h *Handlers) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskId"]

	task, exists := h.taskManager.GetTask(taskID)
	if !exists {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// GetTaskStats returns statistics about the task manager
func (h *Handlers) GetTaskStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.taskManager.Stats())
}

// GetProducts returns all tracked products for a user
func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	products, err := h.products.GetByUser(r.Context(), userID)
	if err != nil {
		log.Printf("Failed to get products: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to get products")
		return
	}

	if products == nil {
		products = []models.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

// GetProduct returns one tracked product
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	product, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		log.Printf("Failed to get product: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to get product")
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// DeleteProduct removes a tracked product and, through the cascade, its
// price records.
func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if err := h.products.Deactivate(r.Context(), id, userID); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		log.Printf("Failed to delete product: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete product")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}

// GetPriceHistory returns price records for a product, most recent first
func (h *Handlers) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	history, err := h.records.History(r.Context(), id, limit)
	if err != nil {
		log.Printf("Failed to get price history: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to get price history")
		return
	}

	if history == nil {
		history = []models.PriceRecord{}
	}
	writeJSON(w, http.StatusOK, history)
}

// GetPriceStats returns derived min/max/avg/current statistics, plus the
// cached latest observation when one is fresh.
func (h *Handlers) GetPriceStats(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	stats, err := h.records.Stats(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNoHistory) {
			writeError(w, http.StatusNotFound, "No price history for product")
			return
		}
		log.Printf("Failed to compute price stats: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to compute price stats")
		return
	}

	response := map[string]interface{}{"stats": stats}
	if latest, err := h.priceCache.GetLatest(r.Context(), id); err == nil && latest != nil {
		response["latest"] = latest
	}

	writeJSON(w, http.StatusOK, response)
}

// SearchPlatforms searches the other supported platforms for a product.
// When the name is missing it is resolved from the stored product, falling
// back to the source URL's path segment.
func (h *Handlers) SearchPlatforms(w http.ResponseWriter, r *http.Request) {
	var req models.SearchPlatformsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	name := req.ProductName
	brand := req.Brand
	if name == "" && req.ProductID != uuid.Nil {
		product, err := h.products.GetByID(r.Context(), req.ProductID)
		if err == nil {
			name = product.Name
			if brand == "" {
				brand = product.Brand
			}
			if name == "" {
				name = scraper.NameFromURLPath(product.SourceURL)
			}
		}
	}

	if name == "" {
		writeError(w, http.StatusBadRequest, "product_name or a resolvable product_id is required")
		return
	}

	result, err := h.finder.FindAlternates(r.Context(), name, brand, req.ProductID)
	if err != nil {
		log.Printf("Platform search failed for %q: %v", name, err)
		writeError(w, http.StatusInternalServerError, "Platform search failed")
		return
	}

	if result.Results == nil {
		result.Results = []matcher.Candidate{}
	}
	writeJSON(w, http.StatusOK, result)
}

// Recommend returns a buy/wait judgment for a product. The judgment is
// recomputed on every call, never persisted.
func (h *Handlers) Recommend(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	product, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		log.Printf("Failed to get product: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to get product")
		return
	}

	// Stats cover the full record set; the history slice only bounds how
	// much recent context goes into the model prompt.
	stats, err := h.records.Stats(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNoHistory) {
			writeError(w, http.StatusNotFound, "No price history for product")
			return
		}
		log.Printf("Failed to compute price stats: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to compute price stats")
		return
	}

	history, err := h.records.History(r.Context(), id, 20)
	if err != nil {
		log.Printf("Failed to get price history: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to get price history")
		return
	}

	recommendation := h.recommender.Recommend(r.Context(), product, history, stats)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"recommendation": recommendation,
		"stats":          stats,
	})
}

// RunDailyNow triggers the daily refresh across all tracked products.
func (h *Handlers) RunDailyNow(w http.ResponseWriter, r *http.Request) {
	result := h.orchestrator.RunDaily(r.Context())
	writeJSON(w, http.StatusOK, result)
}

// SetPriceAlert creates a new price alert
func (h *Handlers) SetPriceAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	var req models.SetAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.AlertType != "price_drop" && req.AlertType != "percentage_drop" {
		writeError(w, http.StatusBadRequest, "alert_type must be price_drop or percentage_drop")
		return
	}
	if req.AlertType == "price_drop" && req.TargetPrice <= 0 {
		writeError(w, http.StatusBadRequest, "target_price is required for price drop alerts")
		return
	}
	if req.AlertType == "percentage_drop" && req.Percentage <= 0 {
		writeError(w, http.StatusBadRequest, "percentage is required for percentage drop alerts")
		return
	}

	alert, err := h.alerts.SetPriceAlert(r.Context(), id, req.TargetPrice, req.AlertType, req.Percentage)
	if err != nil {
		log.Printf("Failed to set price alert: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to set price alert")
		return
	}

	writeJSON(w, http.StatusCreated, alert)
}

// GetPriceAlerts returns all alerts for a product
func (h *Handlers) GetPriceAlerts(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	alerts, err := h.alerts.GetPriceAlerts(r.Context(), id)
	if err != nil {
		log.Printf("Failed to get price alerts: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to get price alerts")
		return
	}

	if alerts == nil {
		alerts = []models.PriceAlert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

// DeletePriceAlert deletes a price alert
func (h *Handlers) DeletePriceAlert(w http.ResponseWriter, r *http.Request) {
	alertID, err := strconv.Atoi(mux.Vars(r)["alertId"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid alert ID")
		return
	}

	if err := h.alerts.DeletePriceAlert(r.Context(), alertID); err != nil {
		log.Printf("Failed to delete price alert: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete price alert")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Alert deleted successfully"})
}

// productID parses the {id} route variable, writing a 400 on failure.
func productID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product ID")
		return uuid.Nil, false
	}
	return id, true
}

// trackStatus maps pipeline errors onto HTTP statuses.
func trackStatus(err error) int {
	switch {
	case errors.Is(err, scraper.ErrUnsupportedVendor):
		return http.StatusBadRequest
	case errors.Is(err, scraper.ErrBlocked):
		return http.StatusBadGateway
	case errors.Is(err, scraper.ErrNoDataFound):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
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
