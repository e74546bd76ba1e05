package router

import (
	"strings"

	"github.com/execdesk/execdesk/internal/roles"
)

// NormalizeOwner resolves a free-text owner label to a pool role id using
// the strict rules: strip a leading "virtual " token, exact id match, then
// separator-canonicalized id match. Human-sounding titles that fail here may
// still resolve via RelaxedMatch.
func NormalizeOwner(label string, reg *roles.Registry) (string, bool) {
	l := cleanLabel(label)
	if l == "" {
		return "", false
	}

	if _, ok := reg.Get(l); ok {
		return l, true
	}

	canon := canonicalize(l)
	for _, def := range reg.All() {
		if canonicalize(def.RoleID) == canon {
			return def.RoleID, true
		}
	}
	return "", false
}

// RelaxedMatch resolves a human-sounding title to the closest pool role: an
// alias match first, then token overlap between the label and each role's
// id, title and aliases. Overlap ignores tokens of three characters or fewer
// so stopwords like "of" or "the" cannot match. Ties break toward the
// first-registered role.
func RelaxedMatch(label string, reg *roles.Registry) (string, bool) {
	l := cleanLabel(label)
	if l == "" {
		return "", false
	}

	canon := canonicalize(l)
	for _, def := range reg.All() {
		for _, a := range def.Aliases {
			if canonicalize(strings.ToLower(a)) == canon {
				return def.RoleID, true
			}
		}
	}

	labelTokens := tokensOf(l)
	for _, def := range reg.All() {
		for _, rt := range def.Tokens() {
			if len(rt) <= 3 {
				continue
			}
			for _, lt := range labelTokens {
				if len(lt) <= 3 {
					continue
				}
				if lt == rt {
					return def.RoleID, true
				}
			}
		}
	}
	return "", false
}

func cleanLabel(label string) string {
	l := strings.TrimSpace(strings.ToLower(label))
	l = strings.TrimPrefix(l, "virtual ")
	return strings.TrimSpace(l)
}

func canonicalize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-':
			return '_'
		default:
			return r
		}
	}, s)
}

func tokensOf(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-'
	})
}
