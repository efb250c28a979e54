package services

import "strings"

// NormalizeURL ajoute https:// quand l'URL ne commence ni par http:// ni par https://.
// Appliquer NormalizeURL deux fois donne le même résultat.
func NormalizeURL(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "https://" + raw
}
