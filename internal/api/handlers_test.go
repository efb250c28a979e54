package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/axellelanca/linkstats/internal/auth"
	"github.com/axellelanca/linkstats/internal/database"
	"github.com/axellelanca/linkstats/internal/models"
	"github.com/axellelanca/linkstats/internal/repository"
	"github.com/axellelanca/linkstats/internal/services"
	"github.com/axellelanca/linkstats/internal/workers"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "testsecret"

type testServer struct {
	router *gin.Engine
	events chan models.VisitEvent
	visits *repository.GormVisitRepository
}

// httptestPeer is the RemoteAddr host of requests built by httptest.NewRequest.
const httptestPeer = "192.0.2.1"

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithProxies(t, []string{httptestPeer})
}

func newTestServerWithProxies(t *testing.T, trustedProxies []string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := database.OpenTest(t)
	linkRepo := repository.NewLinkRepository(db)
	visitRepo := repository.NewVisitRepository(db)
	linkService := services.NewLinkService(linkRepo, services.NewRandomHashGenerator(0), nil)
	statsService := services.NewStatsService(linkRepo, visitRepo, nil)

	events := make(chan models.VisitEvent, 10)
	router, err := NewRouter(trustedProxies)
	if err != nil {
		t.Fatal(err)
	}
	SetupRoutes(router, linkService, statsService, workers.NewChannelSink(events), auth.NewMiddleware(testSecret))

	return &testServer{router: router, events: events, visits: visitRepo}
}

func (s *testServer) do(t *testing.T, method, path, body, owner string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if owner != "" {
		req.Header.Set("Authorization", "Bearer "+generateTestToken(t, owner))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

// drainVisits stores the queued events the way the workers would.
func (s *testServer) drainVisits(t *testing.T) {
	t.Helper()
	for {
		select {
		case ev := <-s.events:
			if err := s.visits.CreateVisit(context.Background(), workers.NewVisit(ev)); err != nil {
				t.Fatal(err)
			}
		default:
			return
		}
	}
}

func generateTestToken(t *testing.T, subject string) string {
	t.Helper()
	claims := &jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
	}
	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return tokenString
}

func TestHealthRoutes(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/", "/health"} {
		rr := s.do(t, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"status":"ok"`) {
			t.Errorf("GET %s = %d %s", path, rr.Code, rr.Body.String())
		}
	}
}

func TestLinkRoutesRequireOwner(t *testing.T) {
	s := newTestServer(t)
	routes := []struct{ method, path, body string }{
		{http.MethodPost, "/link", `{"url":"example.com"}`},
		{http.MethodGet, "/link", ""},
		{http.MethodGet, "/link/stats", ""},
		{http.MethodGet, "/link/abcd", ""},
		{http.MethodPatch, "/link/abcd", `{"url":"example.com"}`},
		{http.MethodDelete, "/link/abcd", ""},
	}
	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			rr := s.do(t, r.method, r.path, r.body, "")
			if rr.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rr.Code)
			}
			if rr.Body.Len() != 0 {
				t.Errorf("body = %q, want empty", rr.Body.String())
			}
		})
	}
}

func TestCreateLink(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name       string
		owner      string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"explicit hash", "alice", `{"url":"example.com","hash":"mine"}`, http.StatusOK, "mine"},
		{"hash in use", "bob", `{"url":"other.example","hash":"mine"}`, http.StatusConflict, "Hash in use"},
		{"short hash", "alice", `{"url":"example.com","hash":"abc"}`, http.StatusBadRequest, "Short hash"},
		{"no url", "alice", `{"hash":"abcd"}`, http.StatusBadRequest, "No URL"},
		{"invalid body", "alice", `{"url":`, http.StatusBadRequest, "Invalid body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(t, http.MethodPost, "/link", tt.body, tt.owner)
			if rr.Code != tt.wantStatus || rr.Body.String() != tt.wantBody {
				t.Errorf("POST /link = %d %q, want %d %q", rr.Code, rr.Body.String(), tt.wantStatus, tt.wantBody)
			}
		})
	}

	rr := s.do(t, http.MethodPost, "/link", `{"url":"example.com"}`, "alice")
	if rr.Code != http.StatusOK || len(rr.Body.String()) != services.DefaultHashLength {
		t.Errorf("random hash = %d %q", rr.Code, rr.Body.String())
	}
}

func TestRedirectAndStats(t *testing.T) {
	s := newTestServer(t)
	if rr := s.do(t, http.MethodPost, "/link", `{"url":"example.com","hash":"mine"}`, "alice"); rr.Code != http.StatusOK {
		t.Fatalf("create = %d %s", rr.Code, rr.Body.String())
	}

	agents := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
	}
	ips := []string{"10.0.0.1", "10.0.0.1", "10.0.0.2"}
	for i, ua := range agents {
		rr := s.do(t, http.MethodGet, "/mine", "", "", "User-Agent", ua, "X-Forwarded-For", ips[i])
		if rr.Code != http.StatusFound || rr.Header().Get("Location") != "https://example.com" {
			t.Fatalf("redirect = %d %q", rr.Code, rr.Header().Get("Location"))
		}
	}
	if rr := s.do(t, http.MethodGet, "/nope", "", ""); rr.Code != http.StatusNotFound || rr.Body.String() != "Not found" {
		t.Errorf("unknown redirect = %d %q", rr.Code, rr.Body.String())
	}
	s.drainVisits(t)

	rr := s.do(t, http.MethodGet, "/link/mine", "", "alice")
	if rr.Code != http.StatusOK {
		t.Fatalf("stats = %d %s", rr.Code, rr.Body.String())
	}
	var stats models.LinkStats
	if err := json.Unmarshal(rr.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.URL != "https://example.com" || stats.TotalViews != 3 || stats.UniqueViews != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Browsers["Chrome"] != 2 || stats.Browsers["Firefox"] != 1 || stats.OS["Windows"] != 2 {
		t.Errorf("breakdowns = %v %v", stats.Browsers, stats.OS)
	}

	if rr := s.do(t, http.MethodGet, "/link/mine", "", "bob"); rr.Code != http.StatusNotFound || rr.Body.String() != "Not found" {
		t.Errorf("other owner stats = %d %q", rr.Code, rr.Body.String())
	}

	rr = s.do(t, http.MethodGet, "/link/stats", "", "alice")
	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != `{"totalViews":3}` {
		t.Errorf("owner stats = %d %s", rr.Code, rr.Body.String())
	}
	rr = s.do(t, http.MethodGet, "/link/stats", "", "bob")
	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != `{"totalViews":0}` {
		t.Errorf("bob's stats = %d %s", rr.Code, rr.Body.String())
	}
}

func TestListLinks(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 12; i++ {
		body := fmt.Sprintf(`{"url":"example.com/%d","hash":"link%02d"}`, i, i)
		if rr := s.do(t, http.MethodPost, "/link", body, "alice"); rr.Code != http.StatusOK {
			t.Fatalf("create = %d %s", rr.Code, rr.Body.String())
		}
	}

	tests := []struct {
		query    string
		wantPage int
		wantLen  int
		wantNext bool
	}{
		{"", 1, 10, true},
		{"?page=2", 2, 2, false},
		{"?page=0", 1, 10, true},
		{"?page=-4", 1, 10, true},
		{"?page=abc", 1, 10, true},
	}
	for _, tt := range tests {
		t.Run("query "+tt.query, func(t *testing.T) {
			rr := s.do(t, http.MethodGet, "/link"+tt.query, "", "alice")
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d", rr.Code)
			}
			var page services.LinkPage
			if err := json.Unmarshal(rr.Body.Bytes(), &page); err != nil {
				t.Fatal(err)
			}
			if page.Page != tt.wantPage || len(page.Links) != tt.wantLen || page.HasNextPage != tt.wantNext || page.Total != 12 || page.Pages != 2 {
				t.Errorf("page = %+v", page)
			}
		})
	}

	rr := s.do(t, http.MethodGet, "/link", "", "bob")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"links":[]`) {
		t.Errorf("bob's listing = %d %s", rr.Code, rr.Body.String())
	}
}

func TestUpdateAndDeleteLink(t *testing.T) {
	s := newTestServer(t)
	for _, body := range []string{`{"url":"example.com","hash":"mine"}`, `{"url":"other.example","hash":"taken"}`} {
		if rr := s.do(t, http.MethodPost, "/link", body, "alice"); rr.Code != http.StatusOK {
			t.Fatalf("create = %d %s", rr.Code, rr.Body.String())
		}
	}

	patches := []struct {
		name       string
		owner      string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"short hash", "alice", "/link/mine", `{"hash":"ab"}`, http.StatusBadRequest, "Short hash"},
		{"hash in use", "alice", "/link/mine", `{"hash":"taken"}`, http.StatusConflict, "Hash in use"},
		{"other owner is a silent no-op", "bob", "/link/mine", `{"url":"evil.example"}`, http.StatusOK, "Patched"},
		{"missing link", "alice", "/link/none", `{"url":"x.example"}`, http.StatusOK, "Patched"},
		{"rename", "alice", "/link/mine", `{"hash":"renamed","url":"new.example"}`, http.StatusOK, "Patched"},
	}
	for _, tt := range patches {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(t, http.MethodPatch, tt.path, tt.body, tt.owner)
			if rr.Code != tt.wantStatus || rr.Body.String() != tt.wantBody {
				t.Errorf("PATCH = %d %q, want %d %q", rr.Code, rr.Body.String(), tt.wantStatus, tt.wantBody)
			}
		})
	}

	rr := s.do(t, http.MethodGet, "/renamed", "", "")
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "https://new.example" {
		t.Errorf("redirect after rename = %d %q", rr.Code, rr.Header().Get("Location"))
	}

	if rr := s.do(t, http.MethodDelete, "/link/renamed", "", "bob"); rr.Code != http.StatusNotFound {
		t.Errorf("DELETE by other owner = %d", rr.Code)
	}
	if rr := s.do(t, http.MethodDelete, "/link/renamed", "", "alice"); rr.Code != http.StatusOK || rr.Body.String() != "Deleted" {
		t.Errorf("DELETE = %d %q", rr.Code, rr.Body.String())
	}
	if rr := s.do(t, http.MethodDelete, "/link/renamed", "", "alice"); rr.Code != http.StatusNotFound || rr.Body.String() != "Not found" {
		t.Errorf("second DELETE = %d %q", rr.Code, rr.Body.String())
	}
}

func TestForwardedForNeedsTrustedProxy(t *testing.T) {
	tests := []struct {
		name       string
		proxies    []string
		wantUnique int64
	}{
		{"no trusted proxy", nil, 1},
		{"peer is a trusted proxy", []string{httptestPeer}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServerWithProxies(t, tt.proxies)
			if rr := s.do(t, http.MethodPost, "/link", `{"url":"example.com","hash":"mine"}`, "alice"); rr.Code != http.StatusOK {
				t.Fatalf("create = %d %s", rr.Code, rr.Body.String())
			}
			for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
				if rr := s.do(t, http.MethodGet, "/mine", "", "", "X-Forwarded-For", ip); rr.Code != http.StatusFound {
					t.Fatalf("redirect = %d", rr.Code)
				}
			}
			s.drainVisits(t)

			rr := s.do(t, http.MethodGet, "/link/mine", "", "alice")
			var stats models.LinkStats
			if err := json.Unmarshal(rr.Body.Bytes(), &stats); err != nil {
				t.Fatal(err)
			}
			if stats.TotalViews != 3 || stats.UniqueViews != tt.wantUnique {
				t.Errorf("views = %d/%d, want %d/3", stats.UniqueViews, stats.TotalViews, tt.wantUnique)
			}
		})
	}
}

func TestListLinksHugePage(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 3; i++ {
		body := fmt.Sprintf(`{"url":"example.com/%d","hash":"link%02d"}`, i, i)
		if rr := s.do(t, http.MethodPost, "/link", body, "alice"); rr.Code != http.StatusOK {
			t.Fatalf("create = %d %s", rr.Code, rr.Body.String())
		}
	}

	rr := s.do(t, http.MethodGet, "/link?page=9223372036854775807", "", "alice")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rr.Code, rr.Body.String())
	}
	var page services.LinkPage
	if err := json.Unmarshal(rr.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if len(page.Links) != 0 || page.HasNextPage || page.Total != 3 || page.Page != services.MaxPage {
		t.Errorf("page = %+v", page)
	}
}
