package match

import (
	"time"

	"github.com/quelld/quell/internal/model"
)

// Decision is the outcome of classifying one event against a rule set.
// AllowIndex and DenyIndex are indexes into the rule slice passed to
// Classify, or -1 when no rule of that kind matched. Incrementing hit
// counts for the matched rules is the caller's responsibility.
type Decision struct {
	Blocked    bool
	AllowIndex int
	DenyIndex  int
}

// MatchedIndexes returns the indexes of the rules whose hit counts should
// be incremented, at most one per kind.
func (d Decision) MatchedIndexes() []int {
	var idx []int
	if d.AllowIndex >= 0 {
		idx = append(idx, d.AllowIndex)
	}
	if d.DenyIndex >= 0 {
		idx = append(idx, d.DenyIndex)
	}
	return idx
}

// Classifier applies a rule set to events to produce block decisions.
type Classifier struct {
	matcher *Matcher
}

// NewClassifier creates a classifier using the given matcher.
func NewClassifier(matcher *Matcher) *Classifier {
	return &Classifier{matcher: matcher}
}

// Classify evaluates the event against the rules in list order and
// decides whether it is blocked.
//
// Rules are filtered to enabled rules scoped to the event's package (a
// rule with no package applies to every package). The scan records the
// first matching allow rule and the first matching deny rule
// independently; an allow match does not stop the deny scan. The event is
// blocked when the package has allow rules and none matched, or when any
// deny rule matched. Deny takes precedence over allow.
func (c *Classifier) Classify(packageName, title, text string, rules []model.Rule, now time.Time) Decision {
	decision := Decision{AllowIndex: -1, DenyIndex: -1}

	hasAllow := false
	for i := range rules {
		rule := &rules[i]
		if !rule.Enabled || !rule.AppliesTo(packageName) {
			continue
		}
		if rule.Kind == model.KindAllow {
			hasAllow = true
		}

		switch rule.Kind {
		case model.KindAllow:
			if decision.AllowIndex < 0 && c.matcher.Matches(rule, packageName, title, text, now) {
				decision.AllowIndex = i
			}
		case model.KindDeny:
			if decision.DenyIndex < 0 && c.matcher.Matches(rule, packageName, title, text, now) {
				decision.DenyIndex = i
			}
		}
	}

	decision.Blocked = (hasAllow && decision.AllowIndex < 0) || decision.DenyIndex >= 0
	return decision
}
