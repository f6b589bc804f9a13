package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"go.uber.org/zap"
)

const sampleResults = `{
	"results": [
		{"name": "Praha", "admin1": "Hlavní město Praha", "latitude": 50.08804, "longitude": 14.42076},
		{"name": "Praha 1", "admin1": "Hlavní město Praha", "latitude": 50.08803, "longitude": 14.42},
		{"name": "Prachatice", "admin1": "Jihočeský kraj", "latitude": 49.013, "longitude": 13.997}
	]
}`

func newTestClient(baseURL string) *Client {
	return NewClient(baseURL, "cs", "CZ", 2*time.Second, zap.NewNop())
}

func TestSearch(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(sampleResults))
	}))
	defer srv.Close()

	results, err := newTestClient(srv.URL).Search(context.Background(), "Pra")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	if results[0].Name != "Praha" || results[0].Admin1 != "Hlavní město Praha" {
		t.Errorf("results[0] = %+v, want Praha", results[0])
	}
	if results[0].Latitude != 50.08804 {
		t.Errorf("results[0].Latitude = %v, want 50.08804", results[0].Latitude)
	}

	if gotQuery.Get("name") != "Pra" {
		t.Errorf("name param = %q, want Pra", gotQuery.Get("name"))
	}
	if gotQuery.Get("count") != "5" {
		t.Errorf("count param = %q, want 5", gotQuery.Get("count"))
	}
	if gotQuery.Get("language") != "cs" {
		t.Errorf("language param = %q, want cs", gotQuery.Get("language"))
	}
	if gotQuery.Get("countryCode") != "CZ" {
		t.Errorf("countryCode param = %q, want CZ", gotQuery.Get("countryCode"))
	}
}

func TestSearch_EmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	results, err := newTestClient(srv.URL).Search(context.Background(), "xyzzy")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("len(results) = %d, want 0", len(results))
	}
}

func TestSearch_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).Search(context.Background(), "Praha"); err == nil {
		t.Error("Search on HTTP 502 succeeded, want error")
	}
}

func TestResolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleResults))
	}))
	defer srv.Close()

	loc, ok := newTestClient(srv.URL).Resolve(context.Background(), "Praha")
	if !ok {
		t.Fatal("Resolve returned false")
	}
	if loc.Name != "Praha" {
		t.Errorf("Resolve name = %q, want Praha (first match)", loc.Name)
	}
}

func TestResolve_DegradesOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, ok := newTestClient(srv.URL).Resolve(context.Background(), "Praha"); ok {
		t.Error("Resolve on upstream failure returned true, want false")
	}
}

func TestResolve_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	if _, ok := newTestClient(srv.URL).Resolve(context.Background(), "xyzzy"); ok {
		t.Error("Resolve with no results returned true, want false")
	}
}
