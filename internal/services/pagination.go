package services

import (
	"math"
	"strconv"
	"strings"
)

// BatchSize is the fixed number of links per page.
const BatchSize = 10

// MaxPage is the largest page number whose offset still fits in an int.
const MaxPage = math.MaxInt/BatchSize + 1

// Page est le résultat de la pagination d'une liste de totalCount éléments.
type Page struct {
	Number      int
	Offset      int
	Limit       int
	Pages       int
	HasNextPage bool
}

// NormalizePage parses a requested page number. Missing, non-numeric, zero
// and negative values all mean the first page.
func NormalizePage(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		return 1
	}
	return min(page, MaxPage)
}

// Paginate computes offset, limit and page metadata for page out of totalCount items.
func Paginate(totalCount int64, page int) Page {
	page = min(max(page, 1), MaxPage)
	pages := int((totalCount + BatchSize - 1) / BatchSize)
	if totalCount <= 0 {
		pages = 0
	}
	return Page{
		Number:      page,
		Offset:      (page - 1) * BatchSize,
		Limit:       BatchSize,
		Pages:       pages,
		HasNextPage: page < pages,
	}
}
