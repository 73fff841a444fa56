package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLookupUserParsesRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/items/query" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("wix-site-id"); got != "site-1" {
			t.Fatalf("site header = %q", got)
		}
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload["dataCollectionId"] != "CandidateData" {
			t.Fatalf("collection = %v", payload["dataCollectionId"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"dataItems": []map[string]any{{
				"data": map[string]any{
					"userId":    "u-9",
					"cv":        "wix:document://v1/abc/cv.pdf",
					"uses":      float64(4),
					"jobTitles": "Engineer",
				},
			}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "site-1")
	user, err := c.LookupUser(context.Background(), "item-7")
	if err != nil {
		t.Fatalf("LookupUser() error = %v", err)
	}
	if user.ItemID != "item-7" || user.UserID != "u-9" || user.Uses != 4 {
		t.Fatalf("user = %+v", user)
	}
}

func TestLookupUserNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"dataItems": []any{}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "site-1")
	_, err := c.LookupUser(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestIncrementUsageReadsModifiesWrites(t *testing.T) {
	var putData map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/items/query":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"dataItems": []map[string]any{{
					"data": map[string]any{"uses": float64(2), "userId": "u-1"},
				}},
			})
		case r.Method == http.MethodPut && r.URL.Path == "/items/item-7":
			var payload struct {
				DataItem struct {
					Data map[string]any `json:"data"`
				} `json:"dataItem"`
			}
			_ = json.NewDecoder(r.Body).Decode(&payload)
			putData = payload.DataItem.Data
			_ = json.NewEncoder(w).Encode(map[string]any{"dataItem": map[string]any{"data": putData}})
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "site-1")
	if err := c.IncrementUsage(context.Background(), "item-7"); err != nil {
		t.Fatalf("IncrementUsage() error = %v", err)
	}
	if got := putData["uses"]; got != float64(3) {
		t.Fatalf("written uses = %v, want 3", got)
	}
	// Untouched fields survive the read-modify-write.
	if putData["userId"] != "u-1" {
		t.Fatalf("userId lost in update: %v", putData)
	}
}

func TestFetchPromptTemplate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload["dataCollectionId"] != "Interviews" {
			t.Fatalf("collection = %v", payload["dataCollectionId"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"dataItems": []map[string]any{{
				"data": map[string]any{"prompt": "You are interviewing for {role}."},
			}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "site-1")
	prompt, err := c.FetchPromptTemplate(context.Background(), "Barclays")
	if err != nil {
		t.Fatalf("FetchPromptTemplate() error = %v", err)
	}
	if prompt != "You are interviewing for {role}." {
		t.Fatalf("prompt = %q", prompt)
	}
}
