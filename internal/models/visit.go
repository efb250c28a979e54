package models

import "time"

// Visit est un accès enregistré sur un lien. Les visites sont en ajout seul :
// le coeur du service ne les modifie ni ne les supprime.
type Visit struct {
	ID        uint      `gorm:"primaryKey"`
	LinkID    uint      `gorm:"index;not null"`
	IPAddress string    `gorm:"size:50"`
	Browser   string    `gorm:"size:100"`
	OS        string    `gorm:"size:100"`
	Timestamp time.Time `gorm:"not null"`
}

// VisitEvent is the raw event pushed through channels and the message broker
// before a worker turns it into a Visit.
type VisitEvent struct {
	LinkID    uint      `json:"link_id"`
	Timestamp time.Time `json:"timestamp"`
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
}
