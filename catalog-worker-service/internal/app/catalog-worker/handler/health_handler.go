package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"productcatalog/catalog-worker-service/internal/app/catalog-worker/repository"
	"productcatalog/catalog-worker-service/internal/app/catalog-worker/service"
	"productcatalog/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoPinger проверка доступности MongoDB, реализуется *mongo.Client
type MongoPinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

type HealthCheckHandler struct {
	db          *sql.DB
	redisClient *redis.Client
	mongo       MongoPinger
	stockSvc    service.StockServiceInterface
	eventSvc    service.EventServiceInterface
	staleAfter  time.Duration // Снимок старше этого считается устаревшим
}

func NewHealthCheckHandler(
	db *sql.DB,
	redisClient *redis.Client,
	mongo MongoPinger,
	stockSvc service.StockServiceInterface,
	eventSvc service.EventServiceInterface,
	staleAfter time.Duration,
) *HealthCheckHandler {
	return &HealthCheckHandler{
		db:          db,
		redisClient: redisClient,
		mongo:       mongo,
		stockSvc:    stockSvc,
		eventSvc:    eventSvc,
		staleAfter:  staleAfter,
	}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp time.Time         `json:"timestamp"`
}

func (h *HealthCheckHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	overallStatus := "healthy"

	for name, check := range map[string]func(context.Context) error{
		"database": h.checkDatabase,
		"redis":    h.checkRedis,
		"mongodb":  h.checkMongo,
	} {
		if err := check(ctx); err != nil {
			checks[name] = "unhealthy: " + err.Error()
			overallStatus = "unhealthy"
		} else {
			checks[name] = "healthy"
		}
	}

	// Устаревший снимок остатков не делает сервис нездоровым
	if err := h.checkLowStockSnapshot(ctx); err != nil {
		checks["low_stock_scan"] = "warning: " + err.Error()
	} else {
		checks["low_stock_scan"] = "healthy"
	}

	status := http.StatusOK
	if overallStatus != "healthy" {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, HealthResponse{
		Status:    overallStatus,
		Checks:    checks,
		Timestamp: time.Now(),
	})
}

func (h *HealthCheckHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.checkDatabase(ctx); err != nil {
		http.Error(w, "database not ready", http.StatusServiceUnavailable)
		return
	}

	if err := h.checkRedis(ctx); err != nil {
		http.Error(w, "redis not ready", http.StatusServiceUnavailable)
		return
	}

	if err := h.checkMongo(ctx); err != nil {
		http.Error(w, "mongodb not ready", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

func (h *HealthCheckHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("alive"))
}

// LowStock отдает снимок последней проверки остатков
func (h *HealthCheckHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.stockSvc.LastSnapshot(r.Context())
	if err != nil {
		if errors.Is(err, repository.ErrSnapshotNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "low stock scan has not run yet"})
			return
		}
		logger.Error().Err(err).Msg("Failed to read low stock snapshot")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

// ProductEvents отдает историю событий товара: GET /products/{id}/events?limit=N
func (h *HealthCheckHandler) ProductEvents(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || limit <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
	}

	records, err := h.eventSvc.History(r.Context(), productID, limit)
	if err != nil {
		logger.Error().Err(err).Str("product_id", productID.String()).Msg("Failed to load product events")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"product_id": productID,
		"events":     records,
	})
}

func (h *HealthCheckHandler) checkDatabase(ctx context.Context) error {
	return h.db.PingContext(ctx)
}

func (h *HealthCheckHandler) checkRedis(ctx context.Context) error {
	return h.redisClient.Ping(ctx).Err()
}

func (h *HealthCheckHandler) checkMongo(ctx context.Context) error {
	return h.mongo.Ping(ctx, readpref.Primary())
}

func (h *HealthCheckHandler) checkLowStockSnapshot(ctx context.Context) error {
	snapshot, err := h.stockSvc.LastSnapshot(ctx)
	if err != nil {
		return err
	}

	if age := time.Since(snapshot.ScannedAt); age > h.staleAfter {
		return fmt.Errorf("last scan is outdated (age: %s)", age.Round(time.Second))
	}
	return nil
}

func (h *HealthCheckHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HealthCheck)
	mux.HandleFunc("/health/readiness", h.Readiness)
	mux.HandleFunc("/health/liveness", h.Liveness)
	mux.HandleFunc("GET /low-stock", h.LowStock)
	mux.HandleFunc("GET /products/{id}/events", h.ProductEvents)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error().Err(err).Msg("Failed to encode response")
	}
}
