package workflow

import (
	"strings"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
)

// MatchPolicy decides whether a freelancer's skills qualify for a project.
type MatchPolicy string

const (
	// MatchSubset: every skill the project requires is offered.
	MatchSubset MatchPolicy = "subset"
	// MatchOverlap: at least one required skill is offered.
	MatchOverlap MatchPolicy = "overlap"
)

func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch p := MatchPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case MatchSubset, MatchOverlap:
		return p, nil
	}
	return "", apperr.Newf(apperr.CodeValidation, "unknown match policy %q", s)
}

// NormalizeSkills lowercases, trims and dedupes tags, keeping first-seen order.
func NormalizeSkills(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// SplitSkills parses the comma separated form used by the legacy endpoints.
func SplitSkills(csv string) []string {
	return NormalizeSkills(strings.Split(csv, ","))
}

// Matches reports whether offered satisfies required under p. A project
// that requires nothing matches everyone. Both inputs must be normalized.
func (p MatchPolicy) Matches(required, offered []string) bool {
	if len(required) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(offered))
	for _, s := range offered {
		have[s] = struct{}{}
	}
	hits := 0
	for _, s := range required {
		if _, ok := have[s]; ok {
			hits++
		}
	}
	if p == MatchSubset {
		return hits == len(required)
	}
	return hits > 0
}
