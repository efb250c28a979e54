package models

import "time"

// Link représente un lien raccourci appartenant à un propriétaire.
// Le hash est unique sur toute la table, pas seulement par propriétaire.
type Link struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	OwnerID   string    `gorm:"index;size:255;not null" json:"-"`
	Hash      string    `gorm:"uniqueIndex;size:32;not null" json:"hash"`
	URL       string    `gorm:"not null" json:"url"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// LinkUpdate holds the optional fields of a PATCH. A nil field is left untouched.
type LinkUpdate struct {
	Hash *string
	URL  *string
}

// Empty reports whether the update carries no field at all.
func (u LinkUpdate) Empty() bool {
	return u.Hash == nil && u.URL == nil
}
