package billz

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"debtboard/internal/config"
)

func newTestClient(baseURL string) *Client {
	return NewClient(config.BillzConfig{
		BaseURL:        baseURL,
		SecretToken:    "shared-secret",
		ShopIDs:        "shop-1,shop-2",
		Currency:       "UZS",
		RequestTimeout: 5,
	})
}

func TestAuthenticate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		if body["secret_token"] != "shared-secret" {
			t.Errorf("expected secret_token in body, got %v", body)
		}
		_, _ = w.Write([]byte(`{"data":{"access_token":"tok-123"}}`))
	}))
	defer srv.Close()

	token, err := newTestClient(srv.URL).Authenticate(context.Background())
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if token != "tok-123" {
		t.Fatalf("expected tok-123, got %q", token)
	}
}

func TestAuthenticate_rejectedSecret(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid secret"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).Authenticate(context.Background()); err == nil {
		t.Fatal("expected error for rejected secret")
	}
}

func TestAuthenticate_missingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).Authenticate(context.Background()); err == nil {
		t.Fatal("expected error when response has no access token")
	}
}

func TestListDebts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/debt" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("expected bearer token, got %q", got)
		}
		q := r.URL.Query()
		if q.Get("page") != "2" || q.Get("limit") != "500" {
			t.Errorf("unexpected paging params: %v", q)
		}
		if q.Get("shop_ids") != "shop-1,shop-2" || q.Get("currency") != "UZS" {
			t.Errorf("unexpected scope params: %v", q)
		}
		if q.Get("detalization_by_position") != "true" {
			t.Errorf("expected detalization_by_position=true")
		}
		_, _ = w.Write([]byte(`{"data":[
			{"id":"d1","amount":1000,"paid_amount":"250","status":"partial_paid","created_at":"2026-08-01T10:00:00Z"},
			{"id":"d2","amount":"500.50","paid_amount":0,"status":"unpaid","created_at":"2026-08-15T10:00:00Z"}
		]}`))
	}))
	defer srv.Close()

	records, err := newTestClient(srv.URL).ListDebts(context.Background(), "tok-123", 2, 500)
	if err != nil {
		t.Fatalf("list debts: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Amount != 1000 || records[0].PaidAmount != 250 {
		t.Errorf("string/number amounts decoded wrong: %+v", records[0])
	}
	if records[1].Amount != 500.50 {
		t.Errorf("expected 500.50, got %v", records[1].Amount)
	}
}

func TestListDebts_emptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	records, err := newTestClient(srv.URL).ListDebts(context.Background(), "tok", 1, 500)
	if err != nil {
		t.Fatalf("list debts: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty page, got %d records", len(records))
	}
}

func TestListDebts_serverError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).ListDebts(context.Background(), "tok", 1, 500); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
