package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/statement-engine/internal/service"
	"github.com/statement-engine/internal/types"
)

func requestParams(r *http.Request) (types.Chain, string, string, string, bool) {
	vars := mux.Vars(r)
	chain := types.Chain(strings.ToLower(vars["chain"]))
	address := strings.TrimSpace(vars["address"])
	startDate := r.URL.Query().Get("start_date")
	endDate := r.URL.Query().Get("end_date")
	return chain, address, startDate, endDate, startDate != "" && endDate != ""
}

// handleGetBalance handles GET /api/balance/{chain}/{address}
func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	chain, address, startDate, endDate, ok := requestParams(r)
	if !ok {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "start_date and end_date are required", nil)
		return
	}

	data, err := s.statements.GetTransactionsAndBalance(r.Context(), chain, address, startDate, endDate)
	if err != nil {
		status, code, message := mapServiceError(err)
		respondError(w, status, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":         data.Success,
		"chain":           data.Chain,
		"address":         data.Address,
		"balance":         data.Balance,
		"balance_display": data.BalanceDisplay,
		"native_symbol":   data.NativeSymbol,
		"token_balances":  data.TokenBalances,
		"error":           data.Error,
	})
}

// handleGetTransactions handles GET /api/transactions/{chain}/{address}
func (s *Server) handleGetTransactions(w http.ResponseWriter, r *http.Request) {
	chain, address, startDate, endDate, ok := requestParams(r)
	if !ok {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "start_date and end_date are required", nil)
		return
	}

	data, err := s.statements.GetTransactionsAndBalance(r.Context(), chain, address, startDate, endDate)
	if err != nil {
		status, code, message := mapServiceError(err)
		respondError(w, status, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, data)
}

// handleAnalyze handles GET /api/analyze/{chain}/{address}
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	chain, address, startDate, endDate, ok := requestParams(r)
	if !ok {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "start_date and end_date are required", nil)
		return
	}

	data, err := s.statements.GetTransactionsAndBalance(r.Context(), chain, address, startDate, endDate)
	if err != nil {
		status, code, message := mapServiceError(err)
		respondError(w, status, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":    data.Success,
		"chain":      data.Chain,
		"address":    data.Address,
		"start_date": data.StartDate,
		"end_date":   data.EndDate,
		"statistics": service.Summarize(data.Transactions),
		"error":      data.Error,
	})
}

// handleGetStatement handles GET /api/statement/{chain}/{address}
func (s *Server) handleGetStatement(w http.ResponseWriter, r *http.Request) {
	chain, address, startDate, endDate, ok := requestParams(r)
	if !ok {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "start_date and end_date are required", nil)
		return
	}

	stmt, err := s.statements.GetStatement(r.Context(), chain, address, startDate, endDate)
	if err != nil {
		status, code, message := mapServiceError(err)
		respondError(w, status, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, stmt)
}
