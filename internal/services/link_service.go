// Package services contains the business logic layer: link creation with
// collision retry, owner-scoped link management and visit aggregation.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/axellelanca/linkstats/internal/cache"
	customerrors "github.com/axellelanca/linkstats/internal/errors"
	"github.com/axellelanca/linkstats/internal/logger"
	"github.com/axellelanca/linkstats/internal/models"
	"github.com/axellelanca/linkstats/internal/repository"
)

// MaxHashAttempts bounds the number of random hashes tried for one link.
const MaxHashAttempts = 5

// MinHashLength is the shortest hash a caller may choose, in characters.
const MinHashLength = 4

// LinkService provides business logic methods for managing shortened links.
// Every method takes the owner identity explicitly.
type LinkService struct {
	linkRepo repository.LinkRepository
	hashGen  HashGenerator
	cache    cache.StatsCache
}

// NewLinkService creates and returns a new instance of LinkService.
// A nil statsCache disables invalidation.
func NewLinkService(linkRepo repository.LinkRepository, hashGen HashGenerator, statsCache cache.StatsCache) *LinkService {
	if statsCache == nil {
		statsCache = cache.Noop{}
	}
	return &LinkService{
		linkRepo: linkRepo,
		hashGen:  hashGen,
		cache:    statsCache,
	}
}

// LinkSummary is one entry of a listing.
type LinkSummary struct {
	Hash string `json:"hash"`
	URL  string `json:"url"`
}

// LinkPage is one page of an owner's links, newest first.
type LinkPage struct {
	Links       []LinkSummary `json:"links"`
	HasNextPage bool          `json:"hasNextPage"`
	Page        int           `json:"page"`
	Total       int64         `json:"total"`
	Pages       int           `json:"pages"`
}

// CreateLink stores a new link for ownerID and returns its hash.
// With explicitHash set, exactly one insert is attempted and a taken hash is
// a conflict. Without it, random hashes are tried up to MaxHashAttempts times.
func (s *LinkService) CreateLink(ctx context.Context, ownerID, rawURL string, explicitHash *string) (string, error) {
	if ownerID == "" {
		return "", customerrors.ErrUnauthorized
	}
	if strings.TrimSpace(rawURL) == "" {
		return "", customerrors.ValidationError{Field: "url", Message: "No URL"}
	}
	if explicitHash != nil && utf8.RuneCountInString(*explicitHash) < MinHashLength {
		return "", customerrors.ValidationError{Field: "hash", Message: "Short hash"}
	}

	link := &models.Link{
		OwnerID: ownerID,
		URL:     NormalizeURL(rawURL),
	}

	if explicitHash != nil {
		link.Hash = *explicitHash
		if err := s.linkRepo.CreateLink(ctx, link); err != nil {
			if errors.Is(err, customerrors.ErrConflict) {
				return "", err
			}
			return "", customerrors.Internal("create link", err)
		}
		return link.Hash, nil
	}

	// Boucle bornée : une collision relance avec un nouveau candidat,
	// toute autre erreur arrête immédiatement.
	log := logger.FromContext(ctx)
	for attempt := 1; attempt <= MaxHashAttempts; attempt++ {
		link.ID = 0
		link.Hash = s.hashGen.Generate()

		err := s.linkRepo.CreateLink(ctx, link)
		if err == nil {
			return link.Hash, nil
		}
		if !errors.Is(err, customerrors.ErrConflict) {
			return "", customerrors.Internal("create link", err)
		}
		log.Warn("hash collision, retrying", "hash", link.Hash, "attempt", attempt, "max_attempts", MaxHashAttempts)
	}

	return "", customerrors.Internal("create link", errHashBudgetExhausted)
}

var errHashBudgetExhausted = errors.New("failed to generate a unique hash after maximum attempts")

// GetLink returns the link (ownerID, hash).
func (s *LinkService) GetLink(ctx context.Context, ownerID, hash string) (*models.Link, error) {
	if ownerID == "" {
		return nil, customerrors.ErrUnauthorized
	}
	link, err := s.linkRepo.FindByHash(ctx, ownerID, hash)
	if err != nil {
		return nil, classify("get link", err)
	}
	return link, nil
}

// ListLinks returns the requested page of ownerID's links. page is expected
// to come from NormalizePage.
func (s *LinkService) ListLinks(ctx context.Context, ownerID string, page int) (*LinkPage, error) {
	if ownerID == "" {
		return nil, customerrors.ErrUnauthorized
	}

	window := Paginate(0, page)
	total, links, err := s.linkRepo.ListByOwner(ctx, ownerID, window.Offset, window.Limit)
	if err != nil {
		return nil, classify("list links", err)
	}

	meta := Paginate(total, window.Number)
	summaries := make([]LinkSummary, 0, len(links))
	for _, l := range links {
		summaries = append(summaries, LinkSummary{Hash: l.Hash, URL: l.URL})
	}
	return &LinkPage{
		Links:       summaries,
		HasNextPage: meta.HasNextPage,
		Page:        meta.Number,
		Total:       total,
		Pages:       meta.Pages,
	}, nil
}

// UpdateLink applies the present fields of update to (ownerID, hash).
// Zero rows affected is a success whether the link is missing or unchanged.
func (s *LinkService) UpdateLink(ctx context.Context, ownerID, hash string, update models.LinkUpdate) error {
	if ownerID == "" {
		return customerrors.ErrUnauthorized
	}
	if update.Hash != nil && utf8.RuneCountInString(*update.Hash) < MinHashLength {
		return customerrors.ValidationError{Field: "hash", Message: "Short hash"}
	}
	if update.URL != nil {
		if strings.TrimSpace(*update.URL) == "" {
			return customerrors.ValidationError{Field: "url", Message: "No URL"}
		}
		normalized := NormalizeURL(*update.URL)
		update.URL = &normalized
	}
	if update.Empty() {
		return nil
	}

	n, err := s.linkRepo.UpdateLink(ctx, ownerID, hash, update)
	if err != nil {
		return classify("update link", err)
	}
	if n == 0 {
		logger.FromContext(ctx).Debug("update matched no rows", "hash", hash)
	}
	s.invalidate(ctx, ownerID, hash)
	return nil
}

// DeleteLink removes (ownerID, hash). ErrNotFound when nothing matched.
func (s *LinkService) DeleteLink(ctx context.Context, ownerID, hash string) error {
	if ownerID == "" {
		return customerrors.ErrUnauthorized
	}
	if err := s.linkRepo.DeleteLink(ctx, ownerID, hash); err != nil {
		return classify("delete link", err)
	}
	s.invalidate(ctx, ownerID, hash)
	return nil
}

// ResolveLink finds a link by hash alone, for the public redirect.
func (s *LinkService) ResolveLink(ctx context.Context, hash string) (*models.Link, error) {
	link, err := s.linkRepo.Resolve(ctx, hash)
	if err != nil {
		return nil, classify("resolve link", err)
	}
	return link, nil
}

func (s *LinkService) invalidate(ctx context.Context, ownerID, hash string) {
	if err := s.cache.Delete(ctx, cache.Key(ownerID, hash)); err != nil {
		logger.FromContext(ctx).Warn("stats cache invalidation failed", "hash", hash, "err", err)
	}
}

// classify laisse passer les erreurs de la taxonomie et range tout le reste
// en erreur interne.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, customerrors.ErrNotFound),
		errors.Is(err, customerrors.ErrConflict),
		errors.Is(err, customerrors.ErrValidation),
		errors.Is(err, customerrors.ErrUnauthorized),
		errors.Is(err, customerrors.ErrInternal):
		return err
	default:
		return customerrors.Internal(op, err)
	}
}
