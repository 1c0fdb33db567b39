package druginfo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pillwise/go-reminder-backend/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.DrugInfoConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
	})
}

func TestLookup_Found(t *testing.T) {
	var gotQuery map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"serviceKey": q.Get("serviceKey"),
			"itemName":   q.Get("itemName"),
			"type":       q.Get("type"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"body":{"items":[{"efcyQesitm":"blood sugar control"}]}}`))
	})

	info, err := c.Lookup(context.Background(), "metformin")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if info == nil || info.Efficacy != "blood sugar control" {
		t.Fatalf("info = %+v", info)
	}
	if gotQuery["serviceKey"] != "test-key" || gotQuery["itemName"] != "metformin" || gotQuery["type"] != "json" {
		t.Errorf("query = %v", gotQuery)
	}
}

func TestLookup_NoMatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"body":{"items":[]}}`))
	})

	info, err := c.Lookup(context.Background(), "unknown drug")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if info != nil {
		t.Fatalf("expected nil info, got %+v", info)
	}
}

func TestLookup_ErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if _, err := c.Lookup(context.Background(), "metformin"); err == nil {
		t.Fatal("expected error on 500")
	}
}

func TestLookup_Unconfigured(t *testing.T) {
	c := New(config.DrugInfoConfig{Timeout: time.Second})
	info, err := c.Lookup(context.Background(), "metformin")
	if err != nil || info != nil {
		t.Fatalf("unconfigured lookup = %+v, %v", info, err)
	}
}
