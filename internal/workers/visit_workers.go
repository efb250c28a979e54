// Package workers persists visit events outside of the request path, either
// from an in-process channel or from an AMQP queue.
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/axellelanca/linkstats/internal/logger"
	"github.com/axellelanca/linkstats/internal/models"
	"github.com/axellelanca/linkstats/internal/repository"
	"github.com/mileusna/useragent"
)

// UnknownAgent remplace un navigateur ou un OS que le User-Agent ne permet pas d'identifier.
const UnknownAgent = "Unknown"

const writeTimeout = 5 * time.Second

// NewVisit turns a raw event into the row stored for it, reducing the
// User-Agent to a browser name and an OS name.
func NewVisit(event models.VisitEvent) *models.Visit {
	ua := useragent.Parse(event.UserAgent)
	visit := &models.Visit{
		LinkID:    event.LinkID,
		IPAddress: event.IPAddress,
		Browser:   orUnknown(ua.Name),
		OS:        orUnknown(ua.OS),
		Timestamp: event.Timestamp,
	}
	if visit.Timestamp.IsZero() {
		visit.Timestamp = time.Now()
	}
	return visit
}

func orUnknown(s string) string {
	if s == "" {
		return UnknownAgent
	}
	return s
}

// StartVisitWorkers launches workerCount goroutines draining events into
// visitRepo. They stop once events is closed and drained; the returned
// WaitGroup lets the caller wait for the last writes.
func StartVisitWorkers(workerCount int, events <-chan models.VisitEvent, visitRepo repository.VisitRepository) *sync.WaitGroup {
	log := logger.With("component", "visit_workers")
	log.Info("starting visit workers", "count", workerCount)

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			visitWorker(events, visitRepo)
			log.Debug("visit worker stopped", "worker", id)
		}(i)
	}
	return &wg
}

// visitWorker s'arrête quand le canal est fermé.
func visitWorker(events <-chan models.VisitEvent, visitRepo repository.VisitRepository) {
	for event := range events {
		// Une écriture ratée est journalisée, le worker continue.
		if err := storeVisit(context.Background(), visitRepo, event); err != nil {
			logger.Default().Error("failed to save visit",
				"link_id", event.LinkID, "ip", event.IPAddress, "err", err)
		}
	}
}

func storeVisit(ctx context.Context, visitRepo repository.VisitRepository, event models.VisitEvent) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return visitRepo.CreateVisit(ctx, NewVisit(event))
}
