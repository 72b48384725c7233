package ckan

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func datastoreBody(t *testing.T, success bool, total int, next string, records []map[string]any) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"success": success,
		"result": map[string]any{
			"records": records,
			"total":   total,
			"_links":  map[string]any{"next": next},
		},
	})
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return body
}

func newTestAdapter(baseURL string) *Adapter {
	return NewAdapter(&Config{
		BaseURL:    baseURL,
		ResourceID: "abc-123",
		Timeout:    5 * time.Second,
		MaxRetries: 3,
		Sleep:      func(time.Duration) {},
	})
}

func TestFetchPageMapsRecords(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != searchPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotQuery = map[string]string{
			"resource_id": r.URL.Query().Get("resource_id"),
			"limit":       r.URL.Query().Get("limit"),
			"offset":      r.URL.Query().Get("offset"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(datastoreBody(t, true, 250, "/next-page", []map[string]any{
			{
				"reference_number": "C-2024-001",
				"vendor_name":      "Acme Consulting",
				"description_en":   "Advisory services",
				"contract_value":   "$125,000.00",
				"buyer_name":       "Public Works",
				"contract_date":    "2024-03-15",
			},
			{
				"_id":            float64(42),
				"vendor_name":    "Globex",
				"contract_value": 90000.5,
			},
		}))
	}))
	defer server.Close()

	page, err := newTestAdapter(server.URL).FetchPage(context.Background(), 200, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotQuery["resource_id"] != "abc-123" || gotQuery["limit"] != "100" || gotQuery["offset"] != "200" {
		t.Errorf("unexpected query params: %v", gotQuery)
	}
	if page.Total != 250 {
		t.Errorf("expected total 250, got %d", page.Total)
	}
	if !page.HasMore {
		t.Error("expected HasMore with a next link")
	}
	if len(page.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(page.Records))
	}

	first := page.Records[0]
	if first.ReferenceNumber != "C-2024-001" {
		t.Errorf("expected reference C-2024-001, got %q", first.ReferenceNumber)
	}
	if first.Description != "Advisory services" {
		t.Errorf("expected description_en mapped, got %q", first.Description)
	}
	if first.Raw == nil {
		t.Error("expected full record retained in Raw")
	}

	second := page.Records[1]
	if second.ReferenceNumber != "42" {
		t.Errorf("expected _id fallback \"42\", got %q", second.ReferenceNumber)
	}
	if second.ContractValue != "90000.5" {
		t.Errorf("expected numeric value rendered as string, got %q", second.ContractValue)
	}
}

func TestFetchPageUnsuccessfulResponseIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(datastoreBody(t, false, 0, "", nil))
	}))
	defer server.Close()

	page, err := newTestAdapter(server.URL).FetchPage(context.Background(), 0, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Records) != 0 {
		t.Errorf("expected empty page, got %d records", len(page.Records))
	}
}

func TestFetchPageRetriesTransientFailures(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests < 3 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(datastoreBody(t, true, 1, "", []map[string]any{
			{"reference_number": "C-001"},
		}))
	}))
	defer server.Close()

	page, err := newTestAdapter(server.URL).FetchPage(context.Background(), 0, 100)
	if err != nil {
		t.Fatalf("expected recovery on third attempt, got %v", err)
	}
	if requests != 3 {
		t.Errorf("expected 3 requests, got %d", requests)
	}
	if len(page.Records) != 1 {
		t.Errorf("expected 1 record, got %d", len(page.Records))
	}
}

func TestFetchPageExhaustedRetriesIsError(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestAdapter(server.URL).FetchPage(context.Background(), 300, 100)
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if requests != 4 {
		t.Errorf("expected 4 attempts, got %d", requests)
	}
}
