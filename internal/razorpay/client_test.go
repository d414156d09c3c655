package razorpay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/orders" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key_id" || pass != "key_secret" {
			t.Error("missing or wrong basic auth")
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["amount"].(float64) != 5000 || body["currency"] != "INR" {
			t.Errorf("request body = %v", body)
		}

		_ = json.NewEncoder(w).Encode(Order{
			ID: "order_9", Entity: "order", Amount: 5000, Currency: "INR",
			Receipt: body["receipt"].(string), Status: "created",
		})
	}))
	defer srv.Close()

	c := New("key_id", "key_secret")
	c.BaseURL = srv.URL

	order, err := c.CreateOrder(context.Background(), 5000, "INR", "receipt_stu-1")
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if order.ID != "order_9" || order.Receipt != "receipt_stu-1" {
		t.Errorf("order = %+v", order)
	}
}

func TestCreateOrderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"description":"bad key"}}`))
	}))
	defer srv.Close()

	c := New("key_id", "wrong")
	c.BaseURL = srv.URL

	if _, err := c.CreateOrder(context.Background(), 5000, "INR", "r"); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
