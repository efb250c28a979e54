package monitor

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/axellelanca/linkstats/internal/logger"
	"github.com/axellelanca/linkstats/internal/models"
	"github.com/axellelanca/linkstats/internal/repository"
)

// scanBatch est la taille des pages lues lors d'un passage.
const scanBatch = 100

// UrlMonitor periodically checks that link destinations still answer and
// logs every change of state.
type UrlMonitor struct {
	linkRepo    repository.LinkRepository
	interval    time.Duration
	knownStates map[uint]bool // link ID -> accessible
	mu          sync.Mutex
	httpClient  *http.Client
	log         *slog.Logger
}

// Transition is a change of accessibility observed for one link.
type Transition struct {
	Link     models.Link
	Previous bool
	Current  bool
}

// NewUrlMonitor creates and returns a new instance of UrlMonitor.
func NewUrlMonitor(linkRepo repository.LinkRepository, interval time.Duration) *UrlMonitor {
	return &UrlMonitor{
		linkRepo:    linkRepo,
		interval:    interval,
		knownStates: make(map[uint]bool),
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		log:         logger.With("component", "monitor"),
	}
}

// Run checks every link immediately, then once per interval until ctx is done.
func (m *UrlMonitor) Run(ctx context.Context) {
	m.log.Info("starting URL monitor", "interval", m.interval.String())
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.checkUrls(ctx)
	for {
		select {
		case <-ctx.Done():
			m.log.Info("URL monitor stopped")
			return
		case <-ticker.C:
			m.checkUrls(ctx)
		}
	}
}

// checkUrls scans every link in pages and returns the state changes seen
// since the previous pass. A link seen for the first time is not a change.
func (m *UrlMonitor) checkUrls(ctx context.Context) []Transition {
	m.log.Debug("starting URL status verification")

	var changes []Transition
	checked := 0
	for offset := 0; ; offset += scanBatch {
		links, err := m.linkRepo.ListAll(ctx, offset, scanBatch)
		if err != nil {
			m.log.Error("failed to retrieve links for monitoring", "offset", offset, "err", err)
			return changes
		}

		for _, link := range links {
			if ctx.Err() != nil {
				return changes
			}
			current := m.isUrlAccessible(ctx, link.URL)
			checked++

			m.mu.Lock()
			previous, exists := m.knownStates[link.ID]
			m.knownStates[link.ID] = current
			m.mu.Unlock()

			if !exists {
				m.log.Debug("initial link state", "hash", link.Hash, "url", link.URL, "state", formatState(current))
				continue
			}
			if current != previous {
				m.log.Warn("link state changed", "hash", link.Hash, "url", link.URL,
					"from", formatState(previous), "to", formatState(current))
				changes = append(changes, Transition{Link: link, Previous: previous, Current: current})
			}
		}

		if len(links) < scanBatch {
			break
		}
	}

	m.log.Debug("URL status verification completed", "checked", checked, "changes", len(changes))
	return changes
}

// isUrlAccessible sends a HEAD request; 2xx and 3xx count as accessible.
func (m *UrlMonitor) isUrlAccessible(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		m.log.Debug("invalid monitored URL", "url", url, "err", err)
		return false
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.log.Debug("monitored URL unreachable", "url", url, "err", err)
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 400
}

func formatState(accessible bool) string {
	if accessible {
		return "ACCESSIBLE"
	}
	return "INACCESSIBLE"
}
