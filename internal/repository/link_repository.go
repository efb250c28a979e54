package repository

import (
	"context"
	"errors"
	"fmt"

	customerrors "github.com/axellelanca/linkstats/internal/errors"
	"github.com/axellelanca/linkstats/internal/models"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// LinkRepository définit l'accès aux liens. Toutes les opérations sauf Resolve
// et ListAll sont limitées au propriétaire : un hash connu ne suffit pas pour
// lire ou modifier le lien d'un autre.
type LinkRepository interface {
	CreateLink(ctx context.Context, link *models.Link) error
	FindByHash(ctx context.Context, ownerID, hash string) (*models.Link, error)
	ListByOwner(ctx context.Context, ownerID string, offset, limit int) (int64, []models.Link, error)
	UpdateLink(ctx context.Context, ownerID, hash string, update models.LinkUpdate) (int64, error)
	DeleteLink(ctx context.Context, ownerID, hash string) error
	Resolve(ctx context.Context, hash string) (*models.Link, error)
	ListAll(ctx context.Context, offset, limit int) ([]models.Link, error)
}

// GormLinkRepository est l'implémentation de LinkRepository utilisant GORM.
type GormLinkRepository struct {
	db *gorm.DB
}

// NewLinkRepository crée et retourne une nouvelle instance de GormLinkRepository.
func NewLinkRepository(db *gorm.DB) *GormLinkRepository {
	return &GormLinkRepository{db: db}
}

var _ LinkRepository = (*GormLinkRepository)(nil)

// CreateLink insère un nouveau lien. Un hash déjà pris renvoie ErrConflict.
func (r *GormLinkRepository) CreateLink(ctx context.Context, link *models.Link) error {
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to create link %q: %w", link.Hash, customerrors.ErrConflict)
		}
		return fmt.Errorf("failed to create link: %w", err)
	}
	return nil
}

// FindByHash récupère le lien (ownerID, hash).
func (r *GormLinkRepository) FindByHash(ctx context.Context, ownerID, hash string) (*models.Link, error) {
	var link models.Link
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND hash = ?", ownerID, hash).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, customerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find link %q: %w", hash, err)
	}
	return &link, nil
}

// ListByOwner renvoie le nombre total de liens du propriétaire et la page demandée,
// du plus récent au plus ancien. Les deux requêtes partent en parallèle.
func (r *GormLinkRepository) ListByOwner(ctx context.Context, ownerID string, offset, limit int) (int64, []models.Link, error) {
	var (
		total int64
		links []models.Link
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := r.db.WithContext(gctx).Model(&models.Link{}).
			Where("owner_id = ?", ownerID).
			Count(&total).Error
		if err != nil {
			return fmt.Errorf("failed to count links: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		err := r.db.WithContext(gctx).
			Where("owner_id = ?", ownerID).
			Order("created_at DESC").Order("id DESC").
			Offset(offset).Limit(limit).
			Find(&links).Error
		if err != nil {
			return fmt.Errorf("failed to list links: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return 0, nil, err
	}
	return total, links, nil
}

// UpdateLink applique les champs présents de update et renvoie le nombre de lignes touchées.
// Zéro ligne n'est pas une erreur ici : c'est au service de décider.
func (r *GormLinkRepository) UpdateLink(ctx context.Context, ownerID, hash string, update models.LinkUpdate) (int64, error) {
	fields := make(map[string]any, 2)
	if update.Hash != nil {
		fields["hash"] = *update.Hash
	}
	if update.URL != nil {
		fields["url"] = *update.URL
	}
	if len(fields) == 0 {
		return 0, nil
	}

	res := r.db.WithContext(ctx).Model(&models.Link{}).
		Where("owner_id = ? AND hash = ?", ownerID, hash).
		Updates(fields)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return 0, fmt.Errorf("failed to update link %q: %w", hash, customerrors.ErrConflict)
		}
		return 0, fmt.Errorf("failed to update link %q: %w", hash, res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteLink supprime le lien (ownerID, hash). ErrNotFound si aucune ligne ne correspond.
func (r *GormLinkRepository) DeleteLink(ctx context.Context, ownerID, hash string) error {
	res := r.db.WithContext(ctx).
		Where("owner_id = ? AND hash = ?", ownerID, hash).
		Delete(&models.Link{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete link %q: %w", hash, res.Error)
	}
	if res.RowsAffected == 0 {
		return customerrors.ErrNotFound
	}
	return nil
}

// Resolve cherche un lien par hash seul, pour la redirection publique.
func (r *GormLinkRepository) Resolve(ctx context.Context, hash string) (*models.Link, error) {
	var link models.Link
	err := r.db.WithContext(ctx).
		Select("id", "hash", "url").
		Where("hash = ?", hash).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, customerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve link %q: %w", hash, err)
	}
	return &link, nil
}

// ListAll parcourt tous les liens par lots, dans l'ordre des identifiants.
func (r *GormLinkRepository) ListAll(ctx context.Context, offset, limit int) ([]models.Link, error) {
	var links []models.Link
	if err := r.db.WithContext(ctx).Order("id").Offset(offset).Limit(limit).Find(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve links: %w", err)
	}
	return links, nil
}
