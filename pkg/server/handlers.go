package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/mail"
	"time"

	"creditwatch/pkg/server/middleware"
	"creditwatch/pkg/storage"
)

// maxBodyBytes limits control-plane request bodies.
const maxBodyBytes = 1 << 20 // 1MB

// updateBalanceRequest is the body of POST /update-balance. Pointer fields
// distinguish "omitted" from zero so partial updates leave the other field
// unchanged.
type updateBalanceRequest struct {
	RemainingCredits *float64 `json:"remaining_credits"`
	Threshold        *float64 `json:"threshold"`
}

// addEmailRequest is the body of POST /add-email.
type addEmailRequest struct {
	Email string `json:"email"`
}

// BalanceHandler serves the balance CRUD endpoints.
type BalanceHandler struct {
	store  storage.BalanceStore
	logger *slog.Logger
}

// NewBalanceHandler creates the balance handler.
func NewBalanceHandler(store storage.BalanceStore, logger *slog.Logger) *BalanceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BalanceHandler{store: store, logger: logger.With("component", "server.balance")}
}

// Update handles POST /update-balance. It creates the singleton record if
// absent and partially updates it otherwise; omitted fields are left
// unchanged. The reconciliation watermark is never touched here.
func (h *BalanceHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req updateBalanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RemainingCredits == nil && req.Threshold == nil {
		writeError(w, http.StatusBadRequest, "at least one of remaining_credits, threshold is required")
		return
	}
	if req.RemainingCredits != nil && *req.RemainingCredits < 0 {
		writeError(w, http.StatusBadRequest, "remaining_credits cannot be negative")
		return
	}
	if req.Threshold != nil && *req.Threshold < 0 {
		writeError(w, http.StatusBadRequest, "threshold cannot be negative")
		return
	}

	rec, err := h.store.GetBalance(r.Context())
	if err != nil {
		h.logger.Error("failed to read balance", "error", err, "request_id", middleware.GetRequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "failed to update balance")
		return
	}

	created := false
	if rec == nil {
		rec = &storage.BalanceRecord{LastCheckedAt: time.Now().Unix()}
		created = true
	}
	if req.RemainingCredits != nil {
		rec.RemainingCredits = *req.RemainingCredits
	}
	if req.Threshold != nil {
		rec.Threshold = *req.Threshold
	}

	if err := h.store.SaveBalance(r.Context(), rec); err != nil {
		h.logger.Error("failed to save balance", "error", err, "request_id", middleware.GetRequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "failed to update balance")
		return
	}

	h.logger.Info("balance updated",
		"remaining_credits", rec.RemainingCredits,
		"threshold", rec.Threshold,
		"created", created,
	)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "success",
		"remaining_credits": rec.RemainingCredits,
		"threshold":         rec.Threshold,
	})
}

// Get handles GET /balance. It returns 404 when no record exists yet.
func (h *BalanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rec, err := h.store.GetBalance(r.Context())
	if err != nil {
		h.logger.Error("failed to read balance", "error", err, "request_id", middleware.GetRequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "failed to read balance")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "no balance found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"remaining_credits": rec.RemainingCredits,
		"threshold":         rec.Threshold,
	})
}

// EmailHandler serves the alert recipient endpoints.
type EmailHandler struct {
	store     storage.RecipientStore
	pageLimit int
	logger    *slog.Logger
}

// NewEmailHandler creates the recipient handler. pageLimit bounds
// GET /emails responses.
func NewEmailHandler(store storage.RecipientStore, pageLimit int, logger *slog.Logger) *EmailHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailHandler{store: store, pageLimit: pageLimit, logger: logger.With("component", "server.emails")}
}

// Add handles POST /add-email. Registration is idempotent: re-adding an
// existing address succeeds without creating a duplicate.
func (h *EmailHandler) Add(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req addEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	addr, err := mail.ParseAddress(req.Email)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}

	if err := h.store.AddRecipient(r.Context(), addr.Address); err != nil {
		h.logger.Error("failed to add recipient", "error", err, "request_id", middleware.GetRequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "failed to add email")
		return
	}

	h.logger.Info("alert recipient registered", "email", addr.Address)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"email":  addr.Address,
	})
}

// List handles GET /emails.
func (h *EmailHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	emails, err := h.store.ListRecipients(r.Context(), h.pageLimit)
	if err != nil {
		h.logger.Error("failed to list recipients", "error", err, "request_id", middleware.GetRequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "failed to list emails")
		return
	}
	if emails == nil {
		emails = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"emails": emails})
}

// HealthHandler handles liveness probes.
type HealthHandler struct{}

// ServeHTTP implements http.Handler for liveness checks.
func (HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}

// ReadyHandler handles readiness probes by pinging the store.
type ReadyHandler struct {
	store storage.Store
}

// NewReadyHandler creates a readiness handler.
func NewReadyHandler(store storage.Store) *ReadyHandler {
	return &ReadyHandler{store: store}
}

// ServeHTTP implements http.Handler for readiness checks.
func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := "ready"
	code := http.StatusOK
	if err := h.store.Ping(r.Context()); err != nil {
		status = "not_ready"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Unix(),
	})
}

// decodeJSON decodes a bounded JSON request body, rejecting unknown fields
// and trailing data.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected trailing data")
	}
	return nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes a JSON error response with a safe message.
func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
