package auth

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxUsernameLength = 255

// forbiddenUsernameChars are characters that can never appear in a username.
// The set mirrors MediaWiki's $wgLegalTitleChars exclusions for user names.
const forbiddenUsernameChars = "#<>[]|{}/@:"

// CanonicalizeUsername converts a raw username into its canonical form:
// underscores become spaces, surrounding and repeated whitespace collapses,
// and the first letter is uppercased. Returns ErrInvalidUsername for names
// that cannot identify an account.
func CanonicalizeUsername(raw string) (string, error) {
	name := strings.ReplaceAll(raw, "_", " ")
	name = strings.Join(strings.Fields(name), " ")

	if name == "" || len(name) > maxUsernameLength {
		return "", ErrInvalidUsername
	}
	if strings.ContainsAny(name, forbiddenUsernameChars) {
		return "", ErrInvalidUsername
	}
	for _, r := range name {
		if unicode.IsControl(r) || r == utf8.RuneError {
			return "", ErrInvalidUsername
		}
	}

	first, size := utf8.DecodeRuneInString(name)
	upper := unicode.ToUpper(first)
	if upper == first {
		return name, nil
	}
	return string(upper) + name[size:], nil
}

// NormalizeTitle prepares a watched page title for local storage. Titles are
// stored without their namespace prefix and with underscores instead of
// spaces. Returns false for titles that are not valid under local rules;
// callers skip those rather than failing the batch, since remote and local
// title configuration may differ.
func NormalizeTitle(namespace int, title string) (string, bool) {
	if namespace != 0 {
		if _, rest, found := strings.Cut(title, ":"); found {
			title = rest
		}
	}

	title = strings.TrimSpace(title)
	if title == "" || len(title) > maxUsernameLength {
		return "", false
	}
	if strings.ContainsAny(title, "#<>[]|{}") {
		return "", false
	}
	for _, r := range title {
		if unicode.IsControl(r) {
			return "", false
		}
	}

	return strings.ReplaceAll(title, " ", "_"), true
}
