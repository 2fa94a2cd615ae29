package culler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jfelder/marksman/internal/model"
)

func TestCheckURLs_Statuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/ok"):
			w.WriteHeader(http.StatusOK)
		case strings.HasPrefix(r.URL.Path, "/gone"):
			w.WriteHeader(http.StatusGone)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	bookmarks := []model.Bookmark{
		{URL: srv.URL + "/ok", Title: "OK"},
		{URL: srv.URL + "/gone", Title: "Gone"},
		{URL: srv.URL + "/missing", Title: "Missing"},
	}

	results := CheckURLs(bookmarks, 2, 2*time.Second, nil, nil)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	// Results keep input order.
	if results[0].Status != Healthy {
		t.Errorf("/ok should be healthy, got %v (%d)", results[0].Status, results[0].StatusCode)
	}
	if results[1].Status != Dead || results[1].StatusCode != http.StatusGone {
		t.Errorf("/gone should be dead, got %v (%d)", results[1].Status, results[1].StatusCode)
	}
	if results[2].Status != Dead {
		t.Errorf("/missing should be dead, got %v", results[2].Status)
	}
}

func TestCheckURLs_ExcludedDomainNotDead(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "http://")
	bookmarks := []model.Bookmark{{URL: srv.URL + "/private", Title: "Private"}}

	results := CheckURLs(bookmarks, 1, 2*time.Second, []string{host}, nil)
	if results[0].Status != Unreachable {
		t.Errorf("excluded domain 404 should be unreachable, got %v", results[0].Status)
	}
	if results[0].Error == "" {
		t.Error("expected an explanatory error message")
	}
}

func TestCheckURLs_ServerErrorIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	results := CheckURLs([]model.Bookmark{{URL: srv.URL}}, 1, 2*time.Second, nil, nil)
	if results[0].Status != Unreachable {
		t.Errorf("500 should be unreachable, got %v", results[0].Status)
	}
}

func TestCheckURLs_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	results := CheckURLs([]model.Bookmark{{URL: srv.URL}}, 1, time.Second, nil, nil)
	if results[0].Status != Unreachable {
		t.Errorf("closed server should be unreachable, got %v", results[0].Status)
	}
	if results[0].StatusCode != 0 {
		t.Errorf("no response means no status code, got %d", results[0].StatusCode)
	}
}

func TestCheckURLs_Progress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	bookmarks := []model.Bookmark{
		{URL: srv.URL + "/a"},
		{URL: srv.URL + "/b"},
		{URL: srv.URL + "/c"},
	}

	var calls atomic.Int32
	var last atomic.Int32
	CheckURLs(bookmarks, 2, 2*time.Second, nil, func(completed, total int) {
		calls.Add(1)
		last.Store(int32(completed))
		if total != 3 {
			t.Errorf("total = %d", total)
		}
	})

	if calls.Load() != 3 {
		t.Errorf("expected 3 progress calls, got %d", calls.Load())
	}
	if last.Load() != 3 {
		t.Errorf("final completed = %d", last.Load())
	}
}

func TestCheckURLs_Empty(t *testing.T) {
	if results := CheckURLs(nil, 4, time.Second, nil, nil); results != nil {
		t.Errorf("expected nil for no bookmarks, got %v", results)
	}
}

func TestIsExcludedDomain(t *testing.T) {
	exclude := map[string]bool{"github.com": true}

	cases := []struct {
		url  string
		want bool
	}{
		{"https://github.com/user/repo", true},
		{"https://api.github.com/repos", true},
		{"https://notgithub.com/x", false},
		{"https://example.com", false},
		{"::bad::", false},
	}
	for _, tc := range cases {
		if got := isExcludedDomain(tc.url, exclude); got != tc.want {
			t.Errorf("isExcludedDomain(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}
