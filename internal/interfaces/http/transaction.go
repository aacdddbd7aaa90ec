package http

import (
	"log"
	"net/http"

	"github.com/MJSteenberg/xfinance/internal/domain/ledger"
	"github.com/MJSteenberg/xfinance/internal/shared/middleware"
)

type TransactionHandler struct {
	query *ledger.Query
}

func NewTransactionHandler(query *ledger.Query) *TransactionHandler {
	return &TransactionHandler{query: query}
}

type ledgerSummaryJSON struct {
	TotalIncome    string `json:"totalIncome"`
	TotalExpenses  string `json:"totalExpenses"`
	CurrentBalance string `json:"currentBalance"`
}

// HandleListTransactions returns the caller's ledger entries, newest
// transaction date first. Optional from/to query parameters bound the range.
func (h *TransactionHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	from, ok := parseDateParam(r, "from")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", "from must be YYYY-MM-DD")
		return
	}
	to, ok := parseDateParam(r, "to")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", "to must be YYYY-MM-DD")
		return
	}
	if from != nil && to != nil && to.Before(*from) {
		writeError(w, http.StatusBadRequest, "bad_request", "to must not precede from")
		return
	}

	txs, err := h.query.ListTransactions(r.Context(), userID, from, to)
	if err != nil {
		log.Printf("Error listing transactions for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to list transactions")
		return
	}

	writeOK(w, http.StatusOK, toTransactionListJSON(txs))
}

// HandleSummary aggregates the caller's ledger over the optional range.
func (h *TransactionHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	from, ok := parseDateParam(r, "from")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", "from must be YYYY-MM-DD")
		return
	}
	to, ok := parseDateParam(r, "to")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", "to must be YYYY-MM-DD")
		return
	}
	if from != nil && to != nil && to.Before(*from) {
		writeError(w, http.StatusBadRequest, "bad_request", "to must not precede from")
		return
	}

	summary, err := h.query.Summarize(r.Context(), userID, from, to)
	if err != nil {
		log.Printf("Error summarizing ledger for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to summarize ledger")
		return
	}

	writeOK(w, http.StatusOK, ledgerSummaryJSON{
		TotalIncome:    summary.TotalIncome.StringFixed(2),
		TotalExpenses:  summary.TotalExpenses.StringFixed(2),
		CurrentBalance: summary.CurrentBalance.StringFixed(2),
	})
}
