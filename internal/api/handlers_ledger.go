package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

func (s *Server) ledgerEnabled(w http.ResponseWriter) bool {
	if s.ledger == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Historical ledger is not enabled", nil)
		return false
	}
	return true
}

// handleOpeningBalance handles GET /api/ledger/{address}/opening-balance
func (s *Server) handleOpeningBalance(w http.ResponseWriter, r *http.Request) {
	if !s.ledgerEnabled(w) {
		return
	}

	address := strings.TrimSpace(mux.Vars(r)["address"])
	date := r.URL.Query().Get("date")
	network := r.URL.Query().Get("network")
	if date == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "date is required", nil)
		return
	}

	snapshot, err := s.ledger.CalculateOpeningBalance(r.Context(), address, date, network)
	if err != nil {
		status, code, message := mapServiceError(err)
		respondError(w, status, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

// handleLedgerBalance handles GET /api/ledger/{address}/balance
func (s *Server) handleLedgerBalance(w http.ResponseWriter, r *http.Request) {
	if !s.ledgerEnabled(w) {
		return
	}

	address := strings.TrimSpace(mux.Vars(r)["address"])
	endDate := r.URL.Query().Get("end_date")
	network := r.URL.Query().Get("network")

	snapshot, err := s.ledger.GetCurrentBalance(r.Context(), address, endDate, network)
	if err != nil {
		status, code, message := mapServiceError(err)
		respondError(w, status, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

// handleLedgerTransactions handles GET /api/ledger/{address}/transactions
func (s *Server) handleLedgerTransactions(w http.ResponseWriter, r *http.Request) {
	if !s.ledgerEnabled(w) {
		return
	}

	address := strings.TrimSpace(mux.Vars(r)["address"])
	startDate := r.URL.Query().Get("start_date")
	endDate := r.URL.Query().Get("end_date")
	network := r.URL.Query().Get("network")
	if startDate == "" || endDate == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "start_date and end_date are required", nil)
		return
	}

	rows, err := s.ledger.GetTransactionsInPeriod(r.Context(), address, startDate, endDate, network)
	if err != nil {
		status, code, message := mapServiceError(err)
		respondError(w, status, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"address":      address,
		"start_date":   startDate,
		"end_date":     endDate,
		"network":      network,
		"count":        len(rows),
		"transactions": rows,
	})
}
