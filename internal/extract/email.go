package extract

import "regexp"

// emailRegex matches "local-part@label(.label)+". The local part allows
// letters, digits and "_.+-"; domain labels allow letters, digits and "-".
// A trailing dot is never part of a match.
var emailRegex = regexp.MustCompile(`[a-zA-Z0-9_.+\-]+@[a-zA-Z0-9\-]+(?:\.[a-zA-Z0-9\-]+)+`)

// ExtractEmails returns the distinct email-like substrings of text in the
// order they first appear. Case is preserved.
func ExtractEmails(text string) []string {
	matches := emailRegex.FindAllString(text, -1)

	seen := make(map[string]struct{}, len(matches))
	unique := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		unique = append(unique, m)
	}
	return unique
}
