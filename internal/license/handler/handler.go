package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"keygate/internal/license/keygen"
	"keygate/internal/license/models"
	"keygate/internal/license/service"
	"keygate/internal/platform/metrics"
	"keygate/internal/platform/middleware"
	dErrors "keygate/pkg/domain-errors"
)

// SignatureHeader carries the payment provider's signature for webhook
// deliveries.
const SignatureHeader = "Stripe-Signature"

// maxWebhookBody bounds provider payloads; real events are a few KB.
const maxWebhookBody = 1 << 20

// Service defines the license operations the transport layer needs.
type Service interface {
	HandlePurchaseCompleted(ctx context.Context, payload []byte, sigHeader string) (*models.License, error)
	Validate(ctx context.Context, key, deviceID string) (*service.ValidationResult, error)
	Deactivate(ctx context.Context, key string) (*models.License, error)
	Reactivate(ctx context.Context, key string) (*models.License, error)
	Get(ctx context.Context, key string) (*models.License, error)
	List(ctx context.Context) ([]*models.License, error)
}

// Handler handles the license endpoints.
type Handler struct {
	licenses    Service
	logger      *slog.Logger
	metrics     *metrics.Metrics
	adminJWTKey string
	rateLimit   func(http.Handler) http.Handler
}

// Option configures the Handler.
type Option func(*Handler)

// WithAdminJWTKey enables the admin surface behind HS256 bearer tokens.
func WithAdminJWTKey(key string) Option {
	return func(h *Handler) { h.adminJWTKey = key }
}

// WithRateLimit installs a rate limit middleware on the validate path.
func WithRateLimit(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) { h.rateLimit = mw }
}

// New creates a license Handler.
func New(licenses Service, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Handler {
	h := &Handler{
		licenses: licenses,
		logger:   logger,
		metrics:  m,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the license routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.Latency(h.metrics))

	router.Post("/webhook", h.handleWebhook)

	if h.rateLimit != nil {
		router.With(h.rateLimit).Post("/validate", h.handleValidate)
	} else {
		router.Post("/validate", h.handleValidate)
	}

	router.Get("/healthz", h.handleHealth)

	router.Route("/admin", func(admin chi.Router) {
		admin.Use(middleware.RequireAdmin(h.adminJWTKey, h.logger))
		admin.Get("/licenses", h.handleListLicenses)
		admin.Get("/licenses/{key}", h.handleGetLicense)
		admin.Post("/licenses/{key}/deactivate", h.handleDeactivate)
		admin.Post("/licenses/{key}/reactivate", h.handleReactivate)
	})

	r.Mount("/", router)
}

// handleWebhook receives purchase-completion events from the payment provider.
// Every internally handled outcome, duplicates included, answers 200 so the
// provider does not enter a retry storm; only verification failures get 400.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.logger.WarnContext(ctx, "unreadable webhook body", "request_id", requestID, "error", err.Error())
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unreadable body"})
		return
	}

	_, err = h.licenses.HandlePurchaseCompleted(ctx, payload, r.Header.Get(SignatureHeader))
	if err != nil {
		switch dErrors.CodeOf(err) {
		case dErrors.CodeDuplicateEvent:
			// Redelivery short-circuit; answer as success.
		case dErrors.CodeInvalidEvent:
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid signature"})
			return
		case dErrors.CodeContention:
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": dErrors.MessageOf(err)})
			return
		default:
			h.logger.ErrorContext(ctx, "webhook handling failed", "request_id", requestID, "error", err.Error())
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"received": true})
}

type validateRequest struct {
	LicenseKey string `json:"licenseKey"`
	DeviceID   string `json:"deviceId"`
}

type validateResponse struct {
	Valid   bool   `json:"valid"`
	Plan    string `json:"plan,omitempty"`
	Devices int    `json:"devices,omitempty"`
	Email   string `json:"email,omitempty"`
	Error   string `json:"error,omitempty"`
}

// handleValidate serves application startup checks: look up the key, consume
// an activation slot for new devices, and report the license shape back.
func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, validateResponse{Valid: false, Error: "invalid request body"})
		return
	}
	if req.LicenseKey == "" || req.DeviceID == "" {
		writeJSON(w, http.StatusBadRequest, validateResponse{Valid: false, Error: "missing licenseKey or deviceId"})
		return
	}
	if !keygen.ValidFormat(req.LicenseKey) {
		// Lexically impossible keys never hit the store.
		writeJSON(w, http.StatusNotFound, validateResponse{Valid: false, Error: "invalid license key"})
		return
	}

	res, err := h.licenses.Validate(ctx, req.LicenseKey, req.DeviceID)
	if err != nil {
		status := dErrors.ToHTTPStatus(dErrors.CodeOf(err))
		if status == http.StatusInternalServerError {
			h.logger.ErrorContext(ctx, "validation failed",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
		}
		writeJSON(w, status, validateResponse{Valid: false, Error: dErrors.MessageOf(err)})
		return
	}

	writeJSON(w, http.StatusOK, validateResponse{
		Valid:   true,
		Plan:    string(res.Plan),
		Devices: res.DeviceCap,
		Email:   res.Email,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleGetLicense(w http.ResponseWriter, r *http.Request) {
	license, err := h.licenses.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.writeAdminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, license)
}

func (h *Handler) handleListLicenses(w http.ResponseWriter, r *http.Request) {
	licenses, err := h.licenses.List(r.Context())
	if err != nil {
		h.writeAdminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"licenses": licenses})
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	license, err := h.licenses.Deactivate(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.writeAdminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, license)
}

func (h *Handler) handleReactivate(w http.ResponseWriter, r *http.Request) {
	license, err := h.licenses.Reactivate(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.writeAdminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, license)
}

func (h *Handler) writeAdminError(w http.ResponseWriter, r *http.Request, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "admin operation failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
	}
	writeJSON(w, status, map[string]string{"error": dErrors.MessageOf(err)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
