package cli

import (
	"github.com/axellelanca/linkstats/cmd"
	"github.com/axellelanca/linkstats/internal/config"
	"github.com/axellelanca/linkstats/internal/database"
	"github.com/axellelanca/linkstats/internal/repository"
	"github.com/axellelanca/linkstats/internal/services"
	"gorm.io/gorm"
)

// backend regroupe ce dont les commandes ont besoin, sans cache ni workers.
type backend struct {
	cfg   *config.Config
	db    *gorm.DB
	links *services.LinkService
	stats *services.StatsService
}

func openBackend() (*backend, error) {
	cfg, err := cmd.Config()
	if err != nil {
		return nil, err
	}
	db, err := database.Open(*cfg)
	if err != nil {
		return nil, err
	}

	linkRepo := repository.NewLinkRepository(db)
	visitRepo := repository.NewVisitRepository(db)
	return &backend{
		cfg:   cfg,
		db:    db,
		links: services.NewLinkService(linkRepo, services.NewRandomHashGenerator(services.DefaultHashLength), nil),
		stats: services.NewStatsService(linkRepo, visitRepo, nil),
	}, nil
}

func (b *backend) Close() error {
	return database.Close(b.db)
}
