package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MJSteenberg/xfinance/internal/domain/ledger"
)

func newStatementHandler(t *testing.T) (*StatementHandler, *fakeStore) {
	t.Helper()
	store := &fakeStore{}
	svc := newTestIngest(store)
	return NewStatementHandler(svc, ledger.NewQuery(store)), store
}

func multipartUpload(t *testing.T, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestHandleProcessStatement(t *testing.T) {
	handler, store := newStatementHandler(t)

	body, contentType := multipartUpload(t, "feb.csv", testStatementCSV)
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/statements/process", body), "user-1")
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	handler.HandleProcessStatement(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		OK processStatementResponse `json:"ok"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.OK.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(resp.OK.Transactions))
	}
	if resp.OK.Format != "csv" {
		t.Errorf("format = %q, want csv", resp.OK.Format)
	}
	if resp.OK.Summary.ClosingBalance != "10800.00" {
		t.Errorf("closingBalance = %q, want 10800.00", resp.OK.Summary.ClosingBalance)
	}
	if resp.OK.Period.StartDate != "2025-02-01" || resp.OK.Period.EndDate != "2025-02-02" {
		t.Errorf("unexpected period: %+v", resp.OK.Period)
	}

	// Processing never writes.
	if len(store.statements) != 0 {
		t.Errorf("process must not persist, found %d statements", len(store.statements))
	}
}

func TestHandleProcessStatement_ParseFailure(t *testing.T) {
	handler, _ := newStatementHandler(t)

	body, contentType := multipartUpload(t, "feb.csv", "Posting Date,Description\n01/02/2025,Salary\n")
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/statements/process", body), "user-1")
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	handler.HandleProcessStatement(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	var resp struct {
		Error errorBody `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Error.Kind != "missing_column" {
		t.Errorf("error kind = %q, want missing_column", resp.Error.Kind)
	}
}

func TestHandleProcessStatement_MissingFile(t *testing.T) {
	handler, _ := newStatementHandler(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.Close()

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/statements/process", &buf), "user-1")
	req.Header.Set("Content-Type", w.FormDataContentType())
	rr := httptest.NewRecorder()

	handler.HandleProcessStatement(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestHandleStoreStatement(t *testing.T) {
	handler, store := newStatementHandler(t)

	payload := storeStatementRequest{
		FileName: "feb.csv",
		Format:   "csv",
		Period:   periodJSON{StartDate: "2025-02-01", EndDate: "2025-02-28"},
		Transactions: []transactionJSON{
			{
				PostingDate:     "2025-02-01",
				TransactionDate: "2025-02-01",
				Description:     "Salary Payment",
				MoneyIn:         strPtr("5000.00"),
				Balance:         "12000.00",
				Type:            "CREDIT",
			},
			{
				PostingDate:     "2025-02-03",
				TransactionDate: "2025-02-02",
				Description:     "Rent",
				MoneyOut:        strPtr("1200.00"),
				Balance:         "10800.00",
				Type:            "DEBIT",
			},
		},
	}
	raw, _ := json.Marshal(payload)

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/statements", bytes.NewReader(raw)), "user-1")
	rr := httptest.NewRecorder()

	handler.HandleStoreStatement(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		OK storeStatementResponse `json:"ok"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.OK.Status != string(ledger.StatusInserted) {
		t.Errorf("status = %q, want inserted", resp.OK.Status)
	}
	if resp.OK.Inserted != 2 {
		t.Errorf("inserted = %d, want 2", resp.OK.Inserted)
	}
	if len(store.txs) != 2 {
		t.Errorf("store has %d transactions, want 2", len(store.txs))
	}
}

func TestHandleStoreStatement_RevalidatesPayload(t *testing.T) {
	handler, store := newStatementHandler(t)

	// The second row's balance does not follow from the first: a tampered
	// payload is rejected wholesale.
	payload := storeStatementRequest{
		FileName: "feb.csv",
		Format:   "csv",
		Period:   periodJSON{StartDate: "2025-02-01", EndDate: "2025-02-28"},
		Transactions: []transactionJSON{
			{
				PostingDate:     "2025-02-01",
				TransactionDate: "2025-02-01",
				Description:     "Salary Payment",
				MoneyIn:         strPtr("5000.00"),
				Balance:         "12000.00",
			},
			{
				PostingDate:     "2025-02-02",
				TransactionDate: "2025-02-02",
				Description:     "Rent",
				MoneyOut:        strPtr("1200.00"),
				Balance:         "99999.00",
			},
		},
	}
	raw, _ := json.Marshal(payload)

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/statements", bytes.NewReader(raw)), "user-1")
	rr := httptest.NewRecorder()

	handler.HandleStoreStatement(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Error errorBody `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Error.Kind != "balance_discontinuity" {
		t.Errorf("error kind = %q, want balance_discontinuity", resp.Error.Kind)
	}
	if resp.Error.Index == nil || *resp.Error.Index != 1 {
		t.Errorf("error index = %v, want 1", resp.Error.Index)
	}
	if len(store.txs) != 0 {
		t.Errorf("rejected payload must not persist, found %d transactions", len(store.txs))
	}
}

func TestHandleStoreStatement_BadPeriod(t *testing.T) {
	handler, _ := newStatementHandler(t)

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/statements",
		strings.NewReader(`{"fileName":"feb.csv","format":"csv","period":{"startDate":"01/02/2025","endDate":"28/02/2025"},"transactions":[]}`)), "user-1")
	rr := httptest.NewRecorder()

	handler.HandleStoreStatement(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestHandleListStatements(t *testing.T) {
	handler, store := newStatementHandler(t)
	seedLedger(t, newTestIngest(store), "user-1")

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/statements", nil), "user-1")
	rr := httptest.NewRecorder()

	handler.HandleStoreOrList(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		OK []statementJSON `json:"ok"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.OK) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(resp.OK))
	}
	if resp.OK[0].FileName != "feb.csv" {
		t.Errorf("fileName = %q, want feb.csv", resp.OK[0].FileName)
	}
}

func TestHandleStatementTransactions(t *testing.T) {
	handler, store := newStatementHandler(t)
	stmtID := seedLedger(t, newTestIngest(store), "user-1")

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/statements/"+stmtID+"/transactions", nil), "user-1")
	rr := httptest.NewRecorder()

	handler.HandleStatementTransactions(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		OK []transactionJSON `json:"ok"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.OK) != 2 {
		t.Errorf("expected 2 transactions, got %d", len(resp.OK))
	}
}

func TestHandleStatementTransactions_OtherUsersStatement(t *testing.T) {
	handler, store := newStatementHandler(t)
	stmtID := seedLedger(t, newTestIngest(store), "user-1")

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/statements/"+stmtID+"/transactions", nil), "user-2")
	rr := httptest.NewRecorder()

	handler.HandleStatementTransactions(rr, req)

	// Indistinguishable from a missing statement.
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for another user's statement, got %d", rr.Code)
	}
}

func TestHandleStoreOrList_MethodNotAllowed(t *testing.T) {
	handler, _ := newStatementHandler(t)

	req := asUser(httptest.NewRequest(http.MethodDelete, "/api/statements", nil), "user-1")
	rr := httptest.NewRecorder()

	handler.HandleStoreOrList(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
}

func strPtr(s string) *string { return &s }
