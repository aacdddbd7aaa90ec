package http

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/MJSteenberg/xfinance/internal/domain/ledger"
	"github.com/MJSteenberg/xfinance/internal/ingest"
	"github.com/MJSteenberg/xfinance/internal/shared/middleware"
)

// maxStatementSize bounds uploads. Real bank statements are well under a
// megabyte; anything larger is not a statement.
const maxStatementSize = 10 << 20

type StatementHandler struct {
	ingest *ingest.Service
	query  *ledger.Query
}

func NewStatementHandler(ingestSvc *ingest.Service, query *ledger.Query) *StatementHandler {
	return &StatementHandler{ingest: ingestSvc, query: query}
}

type processStatementResponse struct {
	Transactions []transactionJSON `json:"transactions"`
	Summary      summaryJSON       `json:"summary"`
	Format       string            `json:"format"`
	Period       periodJSON        `json:"period"`
}

type periodJSON struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type storeStatementRequest struct {
	FileName     string            `json:"fileName"`
	Format       string            `json:"format"`
	Period       periodJSON        `json:"period"`
	Transactions []transactionJSON `json:"transactions"`
}

type storeStatementResponse struct {
	StatementID string `json:"statementId,omitempty"`
	Inserted    int    `json:"inserted"`
	Duplicates  int    `json:"duplicates"`
	Status      string `json:"status"`
}

// HandleProcessStatement parses an uploaded document and returns the
// normalized batch for review. Nothing is written to the ledger.
func (h *StatementHandler) HandleProcessStatement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if _, ok := middleware.UserID(r.Context()); !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxStatementSize)
	if err := r.ParseMultipartForm(maxStatementSize); err != nil {
		writeError(w, http.StatusBadRequest, "bad_upload", "could not parse multipart upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_upload", "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		log.Printf("Error reading upload %q: %v", header.Filename, err)
		writeError(w, http.StatusBadRequest, "bad_upload", "could not read uploaded file")
		return
	}

	result, err := h.ingest.ProcessStatement(r.Context(), data, header.Filename)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeOK(w, http.StatusOK, processStatementResponse{
		Transactions: toTransactionListJSON(result.Transactions),
		Summary:      toSummaryJSON(result.Summary),
		Format:       result.Format,
		Period: periodJSON{
			StartDate: result.DeclaredPeriod.Start.Format(ledger.DateFormat),
			EndDate:   result.DeclaredPeriod.End.Format(ledger.DateFormat),
		},
	})
}

// HandleStoreOrList dispatches /api/statements by method: POST stores a
// reviewed batch, GET lists the caller's statements.
func (h *StatementHandler) HandleStoreOrList(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.HandleStoreStatement(w, r)
	case http.MethodGet:
		h.HandleListStatements(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleStoreStatement reconciles a reviewed batch into the caller's ledger.
// The submitted rows are re-normalized; a client cannot bypass the ledger
// invariants by editing the payload between process and store.
func (h *StatementHandler) HandleStoreStatement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req storeStatementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	if req.FileName == "" || req.Format == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "fileName and format are required")
		return
	}

	period, ok := parsePeriod(req.Period)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", "period dates must be YYYY-MM-DD")
		return
	}

	txs, _, err := ledger.Normalize(toRawRecords(req.Transactions))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	for i := range txs {
		txs[i].Category = req.Transactions[i].Category
	}

	result, err := h.ingest.StoreStatement(r.Context(), userID, req.FileName, req.Format, period, txs)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeOK(w, http.StatusOK, storeStatementResponse{
		StatementID: result.StatementID,
		Inserted:    result.Inserted,
		Duplicates:  result.Duplicates,
		Status:      string(result.Status),
	})
}

// HandleListStatements returns the caller's stored statements.
func (h *StatementHandler) HandleListStatements(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	statements, err := h.query.ListStatements(r.Context(), userID)
	if err != nil {
		log.Printf("Error listing statements for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to list statements")
		return
	}

	out := make([]statementJSON, 0, len(statements))
	for _, s := range statements {
		out = append(out, toStatementJSON(s))
	}
	writeOK(w, http.StatusOK, out)
}

// HandleStatementTransactions returns the transactions of one statement.
// Statements belonging to other users are indistinguishable from missing
// ones.
func (h *StatementHandler) HandleStatementTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	statementID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/statements/"), "/transactions")
	if statementID == "" || strings.Contains(statementID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", "statement id is required")
		return
	}

	statement, err := h.query.StatementByID(r.Context(), statementID)
	if err != nil {
		log.Printf("Error getting statement %s: %v", statementID, err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to get statement")
		return
	}
	if statement == nil || statement.UserID != userID {
		writeError(w, http.StatusNotFound, "not_found", "statement not found")
		return
	}

	txs, err := h.query.StatementTransactions(r.Context(), statementID)
	if err != nil {
		log.Printf("Error listing transactions for statement %s: %v", statementID, err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to list transactions")
		return
	}

	writeOK(w, http.StatusOK, toTransactionListJSON(txs))
}

func parsePeriod(p periodJSON) (ledger.Period, bool) {
	start, err := time.Parse(ledger.DateFormat, p.StartDate)
	if err != nil {
		return ledger.Period{}, false
	}
	end, err := time.Parse(ledger.DateFormat, p.EndDate)
	if err != nil {
		return ledger.Period{}, false
	}
	return ledger.Period{Start: start.UTC(), End: end.UTC()}, true
}
