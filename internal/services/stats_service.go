package services

import (
	"context"

	"github.com/axellelanca/linkstats/internal/cache"
	customerrors "github.com/axellelanca/linkstats/internal/errors"
	"github.com/axellelanca/linkstats/internal/logger"
	"github.com/axellelanca/linkstats/internal/models"
	"github.com/axellelanca/linkstats/internal/repository"
	"golang.org/x/sync/errgroup"
)

// StatsService agrège les visites d'un lien ou de tous les liens d'un propriétaire.
type StatsService struct {
	linkRepo  repository.LinkRepository
	visitRepo repository.VisitRepository
	cache     cache.StatsCache
}

// NewStatsService creates and returns a new instance of StatsService.
// A nil statsCache means no caching.
func NewStatsService(linkRepo repository.LinkRepository, visitRepo repository.VisitRepository, statsCache cache.StatsCache) *StatsService {
	if statsCache == nil {
		statsCache = cache.Noop{}
	}
	return &StatsService{linkRepo: linkRepo, visitRepo: visitRepo, cache: statsCache}
}

// StatsForLink returns the analytics of (ownerID, hash). The four aggregations
// (unique, total, browsers, os) run concurrently over the visits of the link.
func (s *StatsService) StatsForLink(ctx context.Context, ownerID, hash string) (*models.LinkStats, error) {
	if ownerID == "" {
		return nil, customerrors.ErrUnauthorized
	}
	log := logger.FromContext(ctx)

	key := cache.Key(ownerID, hash)
	if cached, found, err := s.cache.Get(ctx, key); err != nil {
		log.Warn("stats cache read failed", "hash", hash, "err", err)
	} else if found {
		return cached, nil
	}

	link, err := s.linkRepo.FindByHash(ctx, ownerID, hash)
	if err != nil {
		return nil, classify("find link", err)
	}

	var (
		ipGroups      []models.GroupCount
		totalViews    int64
		browserGroups []models.GroupCount
		osGroups      []models.GroupCount
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ipGroups, err = s.visitRepo.GroupCountByField(gctx, link.ID, repository.FieldIPAddress)
		return err
	})
	g.Go(func() (err error) {
		totalViews, err = s.visitRepo.CountJoined(gctx, ownerID, link.Hash)
		return err
	})
	g.Go(func() (err error) {
		browserGroups, err = s.visitRepo.GroupCountByField(gctx, link.ID, repository.FieldBrowser)
		return err
	})
	g.Go(func() (err error) {
		osGroups, err = s.visitRepo.GroupCountByField(gctx, link.ID, repository.FieldOS)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, customerrors.Internal("aggregate visits", err)
	}

	stats := &models.LinkStats{
		URL:         link.URL,
		CreatedAt:   link.CreatedAt,
		UniqueViews: int64(len(ipGroups)),
		TotalViews:  totalViews,
		Browsers:    toCountMap(browserGroups),
		OS:          toCountMap(osGroups),
	}

	if err := s.cache.Set(ctx, key, stats); err != nil {
		log.Warn("stats cache write failed", "hash", hash, "err", err)
	}
	return stats, nil
}

// StatsForOwner returns the number of visits over every link of ownerID.
func (s *StatsService) StatsForOwner(ctx context.Context, ownerID string) (*models.OwnerStats, error) {
	if ownerID == "" {
		return nil, customerrors.ErrUnauthorized
	}
	total, err := s.visitRepo.CountJoinedForOwner(ctx, ownerID)
	if err != nil {
		return nil, customerrors.Internal("count owner visits", err)
	}
	return &models.OwnerStats{TotalViews: total}, nil
}

func toCountMap(rows []models.GroupCount) map[string]int64 {
	m := make(map[string]int64, len(rows))
	for _, r := range rows {
		m[r.Bucket] = r.Total
	}
	return m
}
