package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_CreateHold(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/holds" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key123" {
			t.Errorf("Authorization = %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["owner_ref"] != "customer:c1" {
			t.Errorf("owner_ref = %v", body["owner_ref"])
		}
		json.NewEncoder(w).Encode(holdResponse{
			ID:       "hold_abc",
			OwnerRef: "customer:c1",
			Amount:   12000,
			Currency: "USD",
			Status:   "authorized",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key123", time.Second)
	h, err := c.CreateHold(context.Background(), 12000, "USD", "tok_visa", "customer:c1")
	if err != nil {
		t.Fatalf("CreateHold() error = %v", err)
	}
	if h.Ref != "hold_abc" || h.State != HoldAuthorized || h.Amount != 12000 {
		t.Errorf("unexpected hold %+v", h)
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		code    string
		wantErr error
	}{
		{"declined", http.StatusPaymentRequired, "", ErrDeclined},
		{"invalid amount", http.StatusUnprocessableEntity, "", ErrInvalidAmount},
		{"not found", http.StatusNotFound, "", ErrHoldNotFound},
		{"not capturable", http.StatusConflict, "not_capturable", ErrNotCapturable},
		{"not voidable", http.StatusConflict, "not_voidable", ErrNotVoidable},
		{"already captured", http.StatusConflict, "already_captured", ErrAlreadyCaptured},
		{"unknown conflict", http.StatusConflict, "mystery", ErrUnavailable},
		{"server error", http.StatusInternalServerError, "", ErrUnavailable},
		{"bad gateway", http.StatusBadGateway, "", ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(errorResponse{Code: tt.code})
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "", time.Second)
			err := c.CaptureHold(context.Background(), "hold_abc", nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CaptureHold() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestClient_TimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 20*time.Millisecond)
	if err := c.VoidHold(context.Background(), "hold_abc"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("VoidHold() error = %v, want ErrUnavailable", err)
	}
}

func TestClient_TransportFailureIsUnavailable(t *testing.T) {
	// a server that is already closed refuses the connection
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	if _, err := c.GetHold(context.Background(), "hold_abc"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("GetHold() error = %v, want ErrUnavailable", err)
	}
}
