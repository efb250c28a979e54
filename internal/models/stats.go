package models

import "time"

// LinkStats is the analytics view of a single link.
type LinkStats struct {
	URL         string           `json:"url"`
	CreatedAt   time.Time        `json:"createdAt"`
	UniqueViews int64            `json:"uniqueViews"`
	TotalViews  int64            `json:"totalViews"`
	Browsers    map[string]int64 `json:"browsers"`
	OS          map[string]int64 `json:"os"`
}

// OwnerStats agrège les visites de tous les liens d'un propriétaire.
type OwnerStats struct {
	TotalViews int64 `json:"totalViews"`
}

// GroupCount is one row of a group-by-with-count query.
type GroupCount struct {
	Bucket string `gorm:"column:bucket"`
	Total  int64  `gorm:"column:total"`
}
