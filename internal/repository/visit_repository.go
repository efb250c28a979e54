package repository

import (
	"context"
	"fmt"

	"github.com/axellelanca/linkstats/internal/models"
	"gorm.io/gorm"
)

// VisitField est une colonne de regroupement autorisée pour les visites.
type VisitField string

const (
	FieldIPAddress VisitField = "ip_address"
	FieldBrowser   VisitField = "browser"
	FieldOS        VisitField = "os"
)

func (f VisitField) valid() bool {
	switch f {
	case FieldIPAddress, FieldBrowser, FieldOS:
		return true
	}
	return false
}

// VisitRepository expose les primitives d'agrégation : regroupement avec
// comptage et comptage par jointure sur les liens.
type VisitRepository interface {
	CreateVisit(ctx context.Context, visit *models.Visit) error
	GroupCountByField(ctx context.Context, linkID uint, field VisitField) ([]models.GroupCount, error)
	CountJoined(ctx context.Context, ownerID, hash string) (int64, error)
	CountJoinedForOwner(ctx context.Context, ownerID string) (int64, error)
}

// GormVisitRepository est l'implémentation de VisitRepository utilisant GORM.
type GormVisitRepository struct {
	db *gorm.DB
}

// NewVisitRepository crée et retourne une nouvelle instance de GormVisitRepository.
func NewVisitRepository(db *gorm.DB) *GormVisitRepository {
	return &GormVisitRepository{db: db}
}

var _ VisitRepository = (*GormVisitRepository)(nil)

// CreateVisit insère une visite.
func (r *GormVisitRepository) CreateVisit(ctx context.Context, visit *models.Visit) error {
	if err := r.db.WithContext(ctx).Create(visit).Error; err != nil {
		return fmt.Errorf("failed to create visit: %w", err)
	}
	return nil
}

// GroupCountByField regroupe les visites du lien linkID par field et compte chaque groupe.
func (r *GormVisitRepository) GroupCountByField(ctx context.Context, linkID uint, field VisitField) ([]models.GroupCount, error) {
	if !field.valid() {
		return nil, fmt.Errorf("unsupported grouping field %q", field)
	}

	var rows []models.GroupCount
	err := r.db.WithContext(ctx).Model(&models.Visit{}).
		Select(string(field)+" AS bucket, COUNT(*) AS total").
		Where("link_id = ?", linkID).
		Group(string(field)).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to group visits by %s for link ID %d: %w", field, linkID, err)
	}
	return rows, nil
}

// CountJoined compte les visites rattachées au lien (ownerID, hash) via une jointure,
// ce qui écarte toute visite dont la référence ne pointe pas vers ce lien.
func (r *GormVisitRepository) CountJoined(ctx context.Context, ownerID, hash string) (int64, error) {
	var count int64
	err := r.joined(ctx).
		Where("links.owner_id = ? AND links.hash = ?", ownerID, hash).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count visits for link %q: %w", hash, err)
	}
	return count, nil
}

// CountJoinedForOwner somme les visites de tous les liens du propriétaire.
func (r *GormVisitRepository) CountJoinedForOwner(ctx context.Context, ownerID string) (int64, error) {
	var count int64
	err := r.joined(ctx).
		Where("links.owner_id = ?", ownerID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count visits for owner: %w", err)
	}
	return count, nil
}

func (r *GormVisitRepository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Link{}).
		Joins("JOIN visits ON visits.link_id = links.id")
}
