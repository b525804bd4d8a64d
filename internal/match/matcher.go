// Package match evaluates notification events against suppression rules.
package match

import (
	"log/slog"
	"strings"
	"time"

	"github.com/quelld/quell/internal/model"
	"github.com/quelld/quell/internal/pattern"
)

// Matcher evaluates single rules against event content. Patterns are
// compiled through a shared bounded cache.
type Matcher struct {
	cache *pattern.Cache
}

// NewMatcher creates a matcher backed by the given pattern cache.
func NewMatcher(cache *pattern.Cache) *Matcher {
	return &Matcher{cache: cache}
}

// Matches reports whether rule matches the event content at the given
// time. A fault during matching (an invalid pattern, or anything else)
// counts as no match; one bad rule must never take down the pipeline.
func (m *Matcher) Matches(rule *model.Rule, packageName, title, text string, now time.Time) (matched bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("rule matching panicked, treating as no match",
				"package", rule.PackageName,
				"panic", r)
			matched = false
		}
	}()

	if !rule.Window.Active(now) {
		return false
	}

	// Callers usually pre-filter by package, but the rule is checked here
	// as well so a matcher is safe to use standalone.
	if rule.PackageName != "" && rule.PackageName != packageName {
		return false
	}

	if !m.matchesFilter(title, rule.TitleFilter, rule.TitleMatch) {
		return false
	}
	return m.matchesFilter(text, rule.TextFilter, rule.TextMatch)
}

// matchesFilter applies one content predicate. A blank filter is vacuously
// true; a non-blank filter never matches missing content.
func (m *Matcher) matchesFilter(value, filter string, matchType model.MatchType) bool {
	if strings.TrimSpace(filter) == "" {
		return true
	}

	switch matchType {
	case model.MatchRegex:
		re, err := m.cache.Compile(filter)
		if err != nil {
			slog.Debug("skipping rule with invalid pattern", "pattern", filter, "error", err)
			return false
		}
		return re.MatchString(value)
	case model.MatchContains:
		return strings.Contains(strings.ToLower(value), strings.ToLower(filter))
	default:
		return false
	}
}
