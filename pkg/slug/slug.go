package slug

import (
	"regexp"
	"strings"
)

var (
	slugRegexp  = regexp.MustCompile(`[^a-z0-9]+`)
	apostrophes = strings.NewReplacer("'", "", "’", "")
	accents     = strings.NewReplacer(
		"á", "a", "à", "a", "â", "a", "ä", "a", "ã", "a",
		"é", "e", "è", "e", "ê", "e", "ë", "e",
		"í", "i", "ì", "i", "î", "i", "ï", "i",
		"ó", "o", "ò", "o", "ô", "o", "ö", "o", "õ", "o",
		"ú", "u", "ù", "u", "û", "u", "ü", "u",
		"ç", "c", "ñ", "n",
	)
)

// Generate creates a URL-friendly slug from the given name.
//
// Examples:
//   - "The Witcher 3: Wild Hunt" → "the-witcher-3-wild-hunt"
//   - "Assassin's Creed" → "assassins-creed"
//   - "Pokémon   Red!" → "pokemon-red"
func Generate(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = apostrophes.Replace(slug)
	slug = accents.Replace(slug)

	// Replace any non-alphanumeric characters with hyphens
	slug = slugRegexp.ReplaceAllString(slug, "-")

	return strings.Trim(slug, "-")
}

// LastPathSegment returns the final non-empty segment of a URL path, e.g.
// "the-witcher-3" for "https://example.com/games/the-witcher-3/".
func LastPathSegment(rawURL string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		rawURL = rawURL[:i]
	}
	rawURL = strings.TrimRight(rawURL, "/")
	if i := strings.LastIndex(rawURL, "/"); i >= 0 {
		rawURL = rawURL[i+1:]
	}
	if strings.Contains(rawURL, ":") {
		return ""
	}
	return rawURL
}
