package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-tx-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-tx-ledger/internal/app/core/usecase"
)

// Server is the HTTP driving adapter. It stays thin: decode, call the
// engine, map the error taxonomy onto status codes.
type Server struct {
	engine *usecase.Engine
	logger *zap.Logger
}

func NewServer(engine *usecase.Engine, logger *zap.Logger) *Server {
	return &Server{
		engine: engine,
		logger: logger,
	}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/accounts", s.handleCreateAccount)
	r.Get("/accounts/{id}/balance", s.handleGetBalance)
	r.Get("/accounts/{id}/transactions", s.handleListTransactions)
	r.Post("/transfers", s.handleTransfer)
	r.Get("/transactions/{id}", s.handleGetTransaction)
	r.Post("/transactions/{id}/reverse", s.handleReverse)

	return r
}

type createAccountRequest struct {
	ID      string          `json:"id"`
	Balance decimal.Decimal `json:"balance"`
}

type transferRequest struct {
	SenderID    string          `json:"sender_id"`
	RecipientID string          `json:"recipient_id"`
	Amount      decimal.Decimal `json:"amount"`
}

type balanceResponse struct {
	AccountID string          `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	account, err := s.engine.CreateAccount(r.Context(), req.ID, req.Balance)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusCreated, account)
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	balance, err := s.engine.GetBalance(r.Context(), accountID)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, balanceResponse{AccountID: accountID, Balance: balance})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	records, err := s.engine.ListTransactions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	record, err := s.engine.Transfer(r.Context(), req.SenderID, req.RecipientID, req.Amount)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusCreated, record)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	record, err := s.engine.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleReverse(w http.ResponseWriter, r *http.Request) {
	record, err := s.engine.Reverse(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

// statusFor maps each failure kind to a stable status so clients never need
// to parse messages.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrSelfTransfer),
		errors.Is(err, domain.ErrInvalidAccountID):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInsufficientFundsForReversal):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrAlreadyReversed),
		errors.Is(err, domain.ErrAccountExists),
		errors.Is(err, domain.ErrStoreConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{
		Code:    domain.ErrorCode(err),
		Message: err.Error(),
	})
}
