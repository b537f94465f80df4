package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/JoeShih716/go-tx-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-tx-ledger/internal/app/core/usecase"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := memory.NewStore(nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	engine := usecase.NewEngine(store, usecase.NopEmitter{})
	server := NewServer(engine, zap.NewNop())
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeErrorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body.Code
}

func createAccount(t *testing.T, ts *httptest.Server, id, balance string) {
	t.Helper()
	resp := post(t, ts.URL+"/accounts", map[string]string{"id": id, "balance": balance})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create account %s: status = %d", id, resp.StatusCode)
	}
}

func TestCreateAccountEndpoint(t *testing.T) {
	ts := newTestServer(t)

	createAccount(t, ts, "alice", "1000")

	resp := post(t, ts.URL+"/accounts", map[string]string{"id": "alice", "balance": "0"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate account: status = %d, want 409", resp.StatusCode)
	}
	if code := decodeErrorCode(t, resp); code != "ACCOUNT_EXISTS" {
		t.Errorf("code = %s, want ACCOUNT_EXISTS", code)
	}
}

func TestTransferEndpoint(t *testing.T) {
	ts := newTestServer(t)
	createAccount(t, ts, "alice", "1000")
	createAccount(t, ts, "bob", "0")

	resp := post(t, ts.URL+"/transfers", map[string]string{
		"sender_id": "alice", "recipient_id": "bob", "amount": "100",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var record struct {
		ID       string `json:"id"`
		Reversed bool   `json:"reversed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		t.Fatalf("failed to decode record: %v", err)
	}
	if record.ID == "" || record.Reversed {
		t.Errorf("unexpected record: %+v", record)
	}

	tests := []struct {
		name       string
		body       map[string]string
		wantStatus int
		wantCode   string
	}{
		{
			"insufficient funds",
			map[string]string{"sender_id": "bob", "recipient_id": "alice", "amount": "5000"},
			http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS",
		},
		{
			"invalid amount",
			map[string]string{"sender_id": "alice", "recipient_id": "bob", "amount": "0"},
			http.StatusBadRequest, "INVALID_AMOUNT",
		},
		{
			"self transfer",
			map[string]string{"sender_id": "alice", "recipient_id": "alice", "amount": "10"},
			http.StatusBadRequest, "SELF_TRANSFER",
		},
		{
			"unknown account",
			map[string]string{"sender_id": "ghost", "recipient_id": "bob", "amount": "10"},
			http.StatusNotFound, "ACCOUNT_NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, ts.URL+"/transfers", tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if code := decodeErrorCode(t, resp); code != tt.wantCode {
				t.Errorf("code = %s, want %s", code, tt.wantCode)
			}
		})
	}
}

func TestReverseEndpoint(t *testing.T) {
	ts := newTestServer(t)
	createAccount(t, ts, "alice", "1000")
	createAccount(t, ts, "bob", "0")

	resp := post(t, ts.URL+"/transfers", map[string]string{
		"sender_id": "alice", "recipient_id": "bob", "amount": "100",
	})
	var record struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		t.Fatalf("failed to decode record: %v", err)
	}

	resp = post(t, ts.URL+"/transactions/"+record.ID+"/reverse", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reverse: status = %d, want 200", resp.StatusCode)
	}
	var reversed struct {
		Reversed bool `json:"reversed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reversed); err != nil {
		t.Fatalf("failed to decode record: %v", err)
	}
	if !reversed.Reversed {
		t.Error("record must come back reversed")
	}

	resp = post(t, ts.URL+"/transactions/"+record.ID+"/reverse", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second reverse: status = %d, want 409", resp.StatusCode)
	}
	if code := decodeErrorCode(t, resp); code != "ALREADY_REVERSED" {
		t.Errorf("code = %s, want ALREADY_REVERSED", code)
	}
}

func TestBalanceEndpoint(t *testing.T) {
	ts := newTestServer(t)
	createAccount(t, ts, "alice", "42.50")

	resp, err := http.Get(ts.URL + "/accounts/alice/balance")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		AccountID string `json:"account_id"`
		Balance   string `json:"balance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.AccountID != "alice" || body.Balance != "42.5" {
		t.Errorf("body = %+v", body)
	}

	missing, err := http.Get(ts.URL + "/accounts/ghost/balance")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("missing account: status = %d, want 404", missing.StatusCode)
	}
}
