package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"restaurant-fulfillment/internal/logger"
	"restaurant-fulfillment/internal/models"
)

// Handler handles HTTP requests for the order service
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a new order handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

// SetupRoutes sets up the HTTP routes. The payment webhook handler is mounted
// alongside the order API so both share the middleware stack.
func (h *Handler) SetupRoutes(paymentWebhook http.HandlerFunc) *chi.Mux {
	r := chi.NewRouter()
	r.Use(h.withLogging)

	r.Post("/orders", h.CreateOrder)
	r.Get("/orders/{number}", h.TrackOrder)
	r.Post("/orders/{number}/status", h.AdvanceStatus)
	r.Post("/orders/{number}/cancel", h.CancelOrder)
	r.Get("/customers/{customerID}/loyalty", h.LoyaltyBalance)
	r.Post("/webhooks/payment", paymentWebhook)
	r.Get("/health", h.HealthCheck)

	return r
}

// CreateOrder handles POST /orders requests
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	if r.Header.Get("Content-Type") != "application/json" {
		h.writeErrorResponse(w, http.StatusBadRequest, "Content-Type must be application/json", requestID)
		return
	}

	var req models.CreateOrderRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&req); err != nil {
		h.logger.Error("validation_failed", "Failed to parse request body", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	response, err := h.service.CreateOrder(ctx, &req, requestID)
	if err != nil {
		h.writeDomainError(w, err, requestID, map[string]interface{}{
			"customer_id": req.CustomerID,
		})
		return
	}

	h.writeJSON(w, http.StatusCreated, response, requestID)
}

// TrackOrder handles GET /orders/{number} requests
func (h *Handler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	number := chi.URLParam(r, "number")

	response, err := h.service.TrackOrder(r.Context(), number)
	if err != nil {
		h.writeDomainError(w, err, requestID, map[string]interface{}{
			"order_number": number,
		})
		return
	}

	h.writeJSON(w, http.StatusOK, response, requestID)
}

// AdvanceStatus handles POST /orders/{number}/status requests
func (h *Handler) AdvanceStatus(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	number := chi.URLParam(r, "number")

	var req models.AdvanceStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}

	err := h.service.AdvanceStatus(r.Context(), number, req.Status, req.ChangedBy, req.Notes, requestID)
	if err != nil {
		h.writeDomainError(w, err, requestID, map[string]interface{}{
			"order_number": number,
			"target":       string(req.Status),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"order_number": number,
		"status":       req.Status,
	}, requestID)
}

// CancelOrder handles POST /orders/{number}/cancel requests
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	number := chi.URLParam(r, "number")

	var req models.CancelOrderRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", requestID)
			return
		}
	}

	err := h.service.CancelOrder(r.Context(), number, req.Reason, req.ChangedBy, false, requestID)
	if err != nil {
		h.writeDomainError(w, err, requestID, map[string]interface{}{
			"order_number": number,
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"order_number": number,
		"status":       models.StatusCancelled,
	}, requestID)
}

// LoyaltyBalance handles GET /customers/{customerID}/loyalty requests
func (h *Handler) LoyaltyBalance(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	customerID, err := strconv.ParseInt(chi.URLParam(r, "customerID"), 10, 64)
	if err != nil || customerID <= 0 {
		h.writeErrorResponse(w, http.StatusBadRequest, "customer id must be a positive integer", requestID)
		return
	}

	points, err := h.service.LoyaltyBalance(r.Context(), customerID)
	if err != nil {
		h.writeDomainError(w, err, requestID, map[string]interface{}{
			"customer_id": customerID,
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"customer_id": customerID,
		"points":      points,
	}, requestID)
}

// HealthCheck handles GET /health requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	healthy := h.service.HealthCheck(ctx)

	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "order-service",
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
		response["status"] = "unhealthy"
	}

	h.writeJSON(w, status, response, "")
}

// writeDomainError maps domain errors onto HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error, requestID string, fields map[string]interface{}) {
	switch {
	case models.IsValidation(err):
		h.writeErrorResponse(w, http.StatusBadRequest, err.Error(), requestID)
	case models.IsNotFound(err):
		h.writeErrorResponse(w, http.StatusNotFound, err.Error(), requestID)
	case models.IsConflict(err):
		h.writeErrorResponse(w, http.StatusConflict, err.Error(), requestID)
	case errors.Is(err, models.ErrInvalidSignature):
		h.writeErrorResponse(w, http.StatusUnauthorized, err.Error(), requestID)
	default:
		h.logger.Error("request_failed", "Unhandled error", requestID, err, fields)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
	}
}

// writeJSON writes a JSON response body
func (h *Handler) writeJSON(w http.ResponseWriter, statusCode int, body interface{}, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("response_encoding_failed", "Failed to encode response", requestID, err, nil)
	}
}

// writeErrorResponse writes an error response in JSON format
func (h *Handler) writeErrorResponse(w http.ResponseWriter, statusCode int, message, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResponse := map[string]interface{}{
		"error":      message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": requestID,
	}

	json.NewEncoder(w).Encode(errorResponse)
}

type contextKey string

const requestIDKey contextKey = "request_id"

func requestIDFrom(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey).(string); ok {
		return id
	}
	return logger.GenerateRequestID()
}

// withLogging adds request logging middleware
func (h *Handler) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := logger.GenerateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		h.logger.Debug("request_started",
			fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			requestID,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
			})

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		h.logger.Debug("request_completed",
			fmt.Sprintf("%s %s - %d", r.Method, r.URL.Path, rw.statusCode),
			requestID,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status_code": rw.statusCode,
				"duration_ms": duration.Milliseconds(),
			})
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
