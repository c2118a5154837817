package scraper

import "regexp"

var hashtagPattern = regexp.MustCompile(`#(\w+)`)

// ExtractHashtags pulls #word tags out of tweet text, case-sensitive,
// de-duplicated, in first-occurrence order. The leading # is stripped.
func ExtractHashtags(text string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		tag := m[1]
		if seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
