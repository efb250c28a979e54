package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// isUniqueViolation classe une erreur d'insertion ou de mise à jour.
// Avec TranslateError, glebarez/sqlite et le driver postgres renvoient
// gorm.ErrDuplicatedKey ; le texte brut sert de repli pour libsql.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
