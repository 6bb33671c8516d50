package ads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// roundTrip lets a function stand in for an HTTP transport.
type roundTrip func(*http.Request) (*http.Response, error)

func (f roundTrip) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func searchBody(t *testing.T, numFound, start int, docs []Document) string {
	t.Helper()
	payload := map[string]any{
		"responseHeader": map[string]any{"status": 0},
		"response": map[string]any{
			"numFound": numFound,
			"start":    start,
			"docs":     docs,
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshaling fake response: %v", err)
	}
	return string(data)
}

func TestSearchRequest(t *testing.T) {
	var gotReq *http.Request
	client := NewClient(
		WithToken("test-token"),
		WithRows(25),
		WithHTTPClient(&http.Client{Transport: roundTrip(func(req *http.Request) (*http.Response, error) {
			gotReq = req
			body := searchBody(t, 1, 0, []Document{{ID: "123", Bibcode: "2024MNRAS.tmp..1X"}})
			return jsonResponse(200, body), nil
		})}),
	)

	res, err := client.Search(context.Background(), `aff:"ANU"`, 0)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}

	if got := gotReq.Header.Get("Authorization"); got != "Bearer test-token" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer test-token")
	}
	params := gotReq.URL.Query()
	if got := params.Get("q"); got != `aff:"ANU"` {
		t.Errorf("q = %q, want %q", got, `aff:"ANU"`)
	}
	if got := params.Get("fl"); got != SearchFields {
		t.Errorf("fl = %q, want %q", got, SearchFields)
	}
	if got := params.Get("rows"); got != "25" {
		t.Errorf("rows = %q, want %q", got, "25")
	}
	if got := params.Get("start"); got != "0" {
		t.Errorf("start = %q, want %q", got, "0")
	}

	if res.NumFound != 1 || len(res.Docs) != 1 {
		t.Fatalf("got %d docs (numFound %d), want 1", len(res.Docs), res.NumFound)
	}
	if res.Docs[0].Bibcode != "2024MNRAS.tmp..1X" {
		t.Errorf("bibcode = %q", res.Docs[0].Bibcode)
	}
}

func TestSearchAllPaginates(t *testing.T) {
	all := make([]Document, 5)
	for i := range all {
		all[i] = Document{ID: strconv.Itoa(i), Bibcode: fmt.Sprintf("2024Bib...%d", i)}
	}

	var mu sync.Mutex
	var starts []int
	client := NewClient(
		WithToken("test-token"),
		WithRows(2),
		WithHTTPClient(&http.Client{Transport: roundTrip(func(req *http.Request) (*http.Response, error) {
			start, err := strconv.Atoi(req.URL.Query().Get("start"))
			if err != nil {
				return nil, err
			}
			mu.Lock()
			starts = append(starts, start)
			mu.Unlock()

			end := start + 2
			if end > len(all) {
				end = len(all)
			}
			return jsonResponse(200, searchBody(t, len(all), start, all[start:end])), nil
		})}),
	)

	docs, err := client.SearchAll(context.Background(), "q")
	if err != nil {
		t.Fatalf("SearchAll error: %v", err)
	}

	if len(docs) != len(all) {
		t.Fatalf("got %d docs, want %d", len(docs), len(all))
	}
	for i, d := range docs {
		if d.ID != strconv.Itoa(i) {
			t.Errorf("docs[%d].ID = %q, want %q", i, d.ID, strconv.Itoa(i))
		}
	}

	if len(starts) != 3 {
		t.Errorf("got %d requests, want 3 (starts %v)", len(starts), starts)
	}
}

func TestSearchErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"unauthorized", 401, IsAuthError},
		{"forbidden", 403, IsAuthError},
		{"rate limited", 429, IsRateLimited},
		{"server error", 500, func(err error) bool {
			var apiErr *APIError
			return errors.As(err, &apiErr) && apiErr.StatusCode == 500
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(
				WithToken("test-token"),
				WithHTTPClient(&http.Client{Transport: roundTrip(func(req *http.Request) (*http.Response, error) {
					return jsonResponse(tt.status, `{"error":"boom"}`), nil
				})}),
			)
			_, err := client.Search(context.Background(), "q", 0)
			if err == nil {
				t.Fatal("expected error")
			}
			if !tt.check(err) {
				t.Errorf("error %v did not satisfy check", err)
			}
		})
	}
}

func TestSearchInvalidJSON(t *testing.T) {
	client := NewClient(
		WithToken("test-token"),
		WithHTTPClient(&http.Client{Transport: roundTrip(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(200, "not json"), nil
		})}),
	)
	_, err := client.Search(context.Background(), "q", 0)
	if !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("got %v, want ErrInvalidResponse", err)
	}
}
