package monitor

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/axellelanca/linkstats/internal/database"
	"github.com/axellelanca/linkstats/internal/models"
	"github.com/axellelanca/linkstats/internal/repository"
)

func TestCheckUrlsReportsTransitions(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		if r.URL.Path == "/flaky" && !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	db := database.OpenTest(t)
	repo := repository.NewLinkRepository(db)
	ctx := context.Background()
	for _, l := range []models.Link{
		{OwnerID: "alice", Hash: "flaky", URL: srv.URL + "/flaky"},
		{OwnerID: "alice", Hash: "stable", URL: srv.URL + "/stable"},
	} {
		l := l
		if err := repo.CreateLink(ctx, &l); err != nil {
			t.Fatal(err)
		}
	}

	m := NewUrlMonitor(repo, time.Minute)

	if changes := m.checkUrls(ctx); len(changes) != 0 {
		t.Fatalf("first pass reported %d changes", len(changes))
	}

	healthy.Store(false)
	changes := m.checkUrls(ctx)
	if len(changes) != 1 || changes[0].Link.Hash != "flaky" || !changes[0].Previous || changes[0].Current {
		t.Fatalf("changes = %+v", changes)
	}

	if changes := m.checkUrls(ctx); len(changes) != 0 {
		t.Errorf("unchanged pass reported %+v", changes)
	}

	healthy.Store(true)
	changes = m.checkUrls(ctx)
	if len(changes) != 1 || changes[0].Previous || !changes[0].Current {
		t.Errorf("recovery = %+v", changes)
	}
}

func TestCheckUrlsScansEveryPage(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	db := database.OpenTest(t)
	repo := repository.NewLinkRepository(db)
	ctx := context.Background()
	total := scanBatch + 5
	for i := 0; i < total; i++ {
		l := &models.Link{OwnerID: "alice", Hash: fmt.Sprintf("h%04d", i), URL: srv.URL}
		if err := repo.CreateLink(ctx, l); err != nil {
			t.Fatal(err)
		}
	}

	m := NewUrlMonitor(repo, time.Minute)
	m.checkUrls(ctx)

	if got := hits.Load(); got != int64(total) {
		t.Errorf("checked %d links, want %d", got, total)
	}
	if len(m.knownStates) != total {
		t.Errorf("known states = %d, want %d", len(m.knownStates), total)
	}
}

func TestIsUrlAccessible(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/redirect":
			w.WriteHeader(http.StatusMovedPermanently)
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	m := NewUrlMonitor(nil, time.Minute)
	// Les redirections ne sont pas suivies pour ce test.
	m.httpClient.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	tests := []struct {
		url  string
		want bool
	}{
		{srv.URL + "/ok", true},
		{srv.URL + "/redirect", true},
		{srv.URL + "/missing", false},
		{"http://127.0.0.1:0/unreachable", false},
		{"://bad", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := m.isUrlAccessible(context.Background(), tt.url); got != tt.want {
				t.Errorf("isUrlAccessible(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	db := database.OpenTest(t)
	m := NewUrlMonitor(repository.NewLinkRepository(db), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
