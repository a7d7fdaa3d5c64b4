package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xde719/pandaflow/internal/domain"
	"github.com/xde719/pandaflow/internal/ratelimit"
	"github.com/xde719/pandaflow/internal/retry"
)

func testPolicy() retry.Policy {
	return retry.Policy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func testClient(baseURL string) *Client {
	return NewClient(
		Config{BaseURL: baseURL, PageSize: 48, AttemptTimeout: 2 * time.Second},
		ratelimit.New(4, 1000, time.Second),
		testPolicy(),
	)
}

func pageBody(codes []string, nextCursor string) []byte {
	items := make([]map[string]any, 0, len(codes))
	for _, code := range codes {
		items = append(items, map[string]any{"code": code, "name": "vendor " + code})
	}
	body, _ := json.Marshal(map[string]any{
		"data": map[string]any{
			"items":          items,
			"next_cursor":    nextCursor,
			"returned_count": len(items),
		},
	})
	return body
}

func TestFetchPagePaginationOrder(t *testing.T) {
	pages := map[string]struct {
		codes []string
		next  string
	}{
		"":   {codes: []string{"a1", "a2"}, next: "c2"},
		"c2": {codes: []string{"b1"}, next: "c3"},
		"c3": {codes: []string{"c1"}, next: ""},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("city_id"); got != "69036" {
			t.Errorf("expected city_id=69036, got %q", got)
		}
		p, ok := pages[r.URL.Query().Get("cursor")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(pageBody(p.codes, p.next))
	}))
	defer srv.Close()

	c := testClient(srv.URL)

	var codes []string
	cursor := ""
	for {
		page, attempts, err := c.FetchPage(context.Background(), "69036", cursor)
		if err != nil {
			t.Fatalf("fetch failed at cursor %q: %v", cursor, err)
		}
		if attempts != 1 {
			t.Errorf("expected 1 attempt per page, got %d", attempts)
		}
		for _, v := range page.Vendors {
			code, _ := v["code"].(string)
			codes = append(codes, code)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	want := []string{"a1", "a2", "b1", "c1"}
	if len(codes) != len(want) {
		t.Fatalf("expected %d vendors, got %d", len(want), len(codes))
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], codes[i])
		}
	}
}

func TestFetchPageRetriesRateLimited(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write(pageBody([]string{"a1"}, ""))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	page, attempts, err := c.FetchPage(context.Background(), "69036", "")
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if len(page.Vendors) != 1 {
		t.Errorf("expected 1 vendor, got %d", len(page.Vendors))
	}
}

func TestFetchPageExhaustsRetriesOnServerErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, attempts, err := c.FetchPage(context.Background(), "69036", "")

	var ferr *domain.FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if ferr.Kind != domain.FetchTransient || ferr.StatusCode != http.StatusBadGateway {
		t.Errorf("expected transient 502, got kind=%s status=%d", ferr.Kind, ferr.StatusCode)
	}
	if attempts != 3 || calls.Load() != 3 {
		t.Errorf("expected retry budget of 3 to be spent, got attempts=%d calls=%d", attempts, calls.Load())
	}
}

func TestFetchPagePermanentFailsImmediately(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, attempts, err := c.FetchPage(context.Background(), "unknown-city", "")

	var ferr *domain.FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if ferr.Kind != domain.FetchPermanent {
		t.Errorf("expected permanent, got %s", ferr.Kind)
	}
	if attempts != 1 || calls.Load() != 1 {
		t.Errorf("permanent errors must not retry: attempts=%d calls=%d", attempts, calls.Load())
	}
}

func TestFetchPageMalformedBodyIsTransient(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Write([]byte(`{"data": {"items": [`))
			return
		}
		w.Write(pageBody([]string{"a1"}, ""))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, attempts, err := c.FetchPage(context.Background(), "69036", "")
	if err != nil {
		t.Fatalf("expected recovery after truncated body, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestFetchPageCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := testClient(srv.URL)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, _, err := c.FetchPage(ctx, "69036", "")
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected an error after cancellation")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("fetch did not unblock on cancellation")
	}
}
