// Package server exposes the checkout flow over a local HTTP API so a
// point-of-sale front end can take payments without linking the SDK.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"softpos/internal/checkout"
	"softpos/internal/errors"
	"softpos/internal/journal"
	"softpos/internal/logging"
	"softpos/internal/tap"
)

// CheckoutFunc runs one checkout for an order
type CheckoutFunc func(ctx context.Context, order checkout.Order) checkout.Outcome

// History reads recorded checkouts
type History interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
	Get(ctx context.Context, id string) (journal.Entry, error)
}

// Server handles payment requests from the register front end
type Server struct {
	*http.Server
	Logger *logging.Logger

	checkout CheckoutFunc
	history  History

	// The SDK runs one transaction at a time
	busy sync.Mutex
}

// NewServer creates the HTTP server. history may be nil when the journal is disabled.
func NewServer(addr string, run CheckoutFunc, history History, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewDefaultLogger("server")
	}

	s := &Server{
		Server: &http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
		Logger:   logger,
		checkout: run,
		history:  history,
	}
	s.Handler = s.Router()
	return s
}

// Router builds the route table
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)

	api := r.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/payments", s.createPaymentHandler).Methods(http.MethodPost)
	api.HandleFunc("/payments", s.listPaymentsHandler).Methods(http.MethodGet)
	api.HandleFunc("/payments/{reference}", s.getPaymentHandler).Methods(http.MethodGet)
	return r
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	s.Logger.Info("Starting payment API on %s", s.Addr)
	if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, errors.ErrorTypeConfiguration, "payment API stopped").
			WithContext("addr", s.Addr)
	}
	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	s.Logger.Info("Shutting down payment API...")
	return s.Shutdown(ctx)
}

// PaymentRequest is the body of POST /v1/payments
type PaymentRequest struct {
	Amount   string         `json:"amount"`
	Currency string         `json:"currency,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// PaymentResponse reports a finished checkout
type PaymentResponse struct {
	Status          checkout.Status `json:"status"`
	Message         string          `json:"message"`
	ActivationCode  string          `json:"activation_code,omitempty"`
	ReferenceID     string          `json:"reference_id,omitempty"`
	Amount          string          `json:"amount,omitempty"`
	Currency        string          `json:"currency,omitempty"`
	TransactionID   string          `json:"transaction_id,omitempty"`
	ResponseCode    string          `json:"response_code,omitempty"`
	ResponseMessage string          `json:"response_message,omitempty"`
	DeviceID        string          `json:"device_id,omitempty"`
	ErrorKind       string          `json:"error_kind,omitempty"`
	DurationMS      int64           `json:"duration_ms"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	if !s.busy.TryLock() {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "a payment is already in progress"})
		return
	}
	defer s.busy.Unlock()

	outcome := s.checkout(r.Context(), checkout.Order{
		Amount:   req.Amount,
		Currency: req.Currency,
		Metadata: req.Metadata,
	})
	s.Logger.Info("payment %s in %s", outcome.Status, outcome.Duration)

	writeJSON(w, statusCode(outcome), responseFor(outcome))
}

func (s *Server) listPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "journal is disabled"})
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.Logger.Error("listing payments: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to read journal"})
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) getPaymentHandler(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "journal is disabled"})
		return
	}

	reference := mux.Vars(r)["reference"]
	entry, err := s.history.Get(r.Context(), reference)
	if errors.Is(err, journal.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "payment not found"})
		return
	}
	if err != nil {
		s.Logger.Error("reading payment %s: %v", reference, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to read journal"})
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// statusCode maps a checkout outcome to an HTTP status
func statusCode(outcome checkout.Outcome) int {
	switch outcome.Status {
	case checkout.StatusApproved:
		return http.StatusOK
	case checkout.StatusDeclined:
		return http.StatusPaymentRequired
	case checkout.StatusActivationRequired:
		return http.StatusForbidden
	case checkout.StatusDeviceSelected:
		return http.StatusAccepted
	}
	if errors.Is(outcome.Err, tap.ErrOperationInProgress) {
		return http.StatusConflict
	}

	switch errors.TypeOf(outcome.Err) {
	case errors.ErrorTypeValidation:
		return http.StatusBadRequest
	case errors.ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrorTypeActivation:
		return http.StatusForbidden
	}
	return http.StatusBadGateway
}

func responseFor(outcome checkout.Outcome) PaymentResponse {
	resp := PaymentResponse{
		Status:         outcome.Status,
		Message:        outcome.Message,
		ActivationCode: outcome.ActivationCode,
		DurationMS:     outcome.Duration.Milliseconds(),
	}
	if outcome.Request != nil {
		resp.ReferenceID = outcome.Request.ReferenceID
		resp.Amount = outcome.Request.Amount.StringFixed(2)
		resp.Currency = outcome.Request.CurrencyCode
	}
	if outcome.Result != nil {
		resp.TransactionID = outcome.Result.TransactionID
		resp.ResponseCode = outcome.Result.ResponseCode
		resp.ResponseMessage = outcome.Result.ResponseMessage
	}
	if outcome.Device != nil {
		resp.DeviceID = outcome.Device.ID
	}
	if outcome.Err != nil {
		resp.ErrorKind = string(errors.TypeOf(outcome.Err))
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
