// Package model defines the core data structures for the quell engine.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MatchType selects how a content filter is evaluated against a field.
type MatchType string

// Match type constants.
const (
	// MatchContains matches when the field contains the filter,
	// case-insensitively.
	MatchContains MatchType = "contains"
	// MatchRegex matches when the field matches the filter as an anchored
	// whole-string regular expression.
	MatchRegex MatchType = "regex"
)

// UnmarshalJSON normalizes historical upper-case spellings.
func (m *MatchType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch strings.ToLower(s) {
	case "", string(MatchContains):
		*m = MatchContains
	case string(MatchRegex):
		*m = MatchRegex
	default:
		return fmt.Errorf("unknown match type %q", s)
	}
	return nil
}

// RuleKind distinguishes allow rules from deny rules.
type RuleKind string

// Rule kind constants.
const (
	// KindAllow requires an explicit match to let an event through.
	KindAllow RuleKind = "allow"
	// KindDeny suppresses an event on match.
	KindDeny RuleKind = "deny"
)

// kindAliases maps historical serialized spellings to canonical kinds.
// Two generations of exports used ALLOWLIST/DENYLIST and, before that,
// WHITELIST/BLACKLIST.
var kindAliases = map[string]RuleKind{
	"allow":     KindAllow,
	"allowlist": KindAllow,
	"whitelist": KindAllow,
	"deny":      KindDeny,
	"denylist":  KindDeny,
	"blacklist": KindDeny,
}

// UnmarshalJSON accepts legacy kind spellings and normalizes them.
func (k *RuleKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*k = KindDeny
		return nil
	}
	kind, ok := kindAliases[strings.ToLower(s)]
	if !ok {
		return fmt.Errorf("unknown rule kind %q", s)
	}
	*k = kind
	return nil
}

// TimeWindow restricts a rule to a time-of-day range. A window whose start
// is later than its end spans midnight.
type TimeWindow struct {
	Enabled     bool `json:"enabled"`
	StartHour   int  `json:"start_hour"`
	StartMinute int  `json:"start_minute"`
	EndHour     int  `json:"end_hour"`
	EndMinute   int  `json:"end_minute"`
}

// Active reports whether the window covers the wall-clock time of now.
// A disabled window is always active.
func (w *TimeWindow) Active(now time.Time) bool {
	if w == nil || !w.Enabled {
		return true
	}
	current := now.Hour()*60 + now.Minute()
	start := w.StartHour*60 + w.StartMinute
	end := w.EndHour*60 + w.EndMinute
	if start <= end {
		return current >= start && current <= end
	}
	// Spans midnight.
	return current >= start || current <= end
}

// Validate ensures the window fields are in range.
func (w *TimeWindow) Validate() error {
	if w == nil {
		return nil
	}
	if w.StartHour < 0 || w.StartHour > 23 || w.EndHour < 0 || w.EndHour > 23 {
		return fmt.Errorf("window hours must be between 0 and 23")
	}
	if w.StartMinute < 0 || w.StartMinute > 59 || w.EndMinute < 0 || w.EndMinute > 59 {
		return fmt.Errorf("window minutes must be between 0 and 59")
	}
	return nil
}

// Rule describes one suppression rule. Rules have no persisted identifier;
// they are identified by their field tuple, and their stored order is the
// stable tie-break for "first match".
type Rule struct {
	AppName     string      `json:"app_name,omitempty"`
	PackageName string      `json:"package_name,omitempty"`
	TitleFilter string      `json:"title_filter,omitempty"`
	TitleMatch  MatchType   `json:"title_match"`
	TextFilter  string      `json:"text_filter,omitempty"`
	TextMatch   MatchType   `json:"text_match"`
	Kind        RuleKind    `json:"kind"`
	Enabled     bool        `json:"enabled"`
	HitCount    int         `json:"hit_count"`
	Window      *TimeWindow `json:"window,omitempty"`
}

// RuleIdentity is the comparable field tuple that identifies a rule.
// HitCount is excluded: a rule that has fired is still the same rule.
type RuleIdentity struct {
	PackageName string
	TitleFilter string
	TitleMatch  MatchType
	TextFilter  string
	TextMatch   MatchType
	Kind        RuleKind
	Window      TimeWindow
}

// Identity returns the rule's identifying field tuple.
func (r *Rule) Identity() RuleIdentity {
	id := RuleIdentity{
		PackageName: r.PackageName,
		TitleFilter: r.TitleFilter,
		TitleMatch:  r.TitleMatch,
		TextFilter:  r.TextFilter,
		TextMatch:   r.TextMatch,
		Kind:        r.Kind,
	}
	if r.Window != nil {
		id.Window = *r.Window
	}
	return id
}

// Same reports whether two rules are the same rule by field tuple,
// ignoring hit counts.
func (r *Rule) Same(other *Rule) bool {
	return r.Identity() == other.Identity()
}

// AppliesTo reports whether the rule is scoped to the given package.
// A rule with no package is a legacy any-package rule.
func (r *Rule) AppliesTo(packageName string) bool {
	return r.PackageName == "" || r.PackageName == packageName
}

// Validate ensures the rule has valid data.
func (r *Rule) Validate() error {
	if r.PackageName == "" && r.TitleFilter == "" && r.TextFilter == "" {
		return fmt.Errorf("rule must have a package name or at least one filter")
	}
	switch r.TitleMatch {
	case MatchContains, MatchRegex:
	default:
		return fmt.Errorf("invalid title match type %q", r.TitleMatch)
	}
	switch r.TextMatch {
	case MatchContains, MatchRegex:
	default:
		return fmt.Errorf("invalid text match type %q", r.TextMatch)
	}
	switch r.Kind {
	case KindAllow, KindDeny:
	default:
		return fmt.Errorf("invalid rule kind %q", r.Kind)
	}
	if r.HitCount < 0 {
		return fmt.Errorf("hit count must not be negative")
	}
	if err := r.Window.Validate(); err != nil {
		return err
	}
	return nil
}

// EncodeRules serializes a rule list as an ordered JSON array.
func EncodeRules(rules []Rule) ([]byte, error) {
	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode rules: %w", err)
	}
	return data, nil
}

// DecodeRules parses a JSON rule array, normalizing legacy kind and match
// type spellings and applying defaults for missing fields.
func DecodeRules(data []byte) ([]Rule, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode rules: %w", err)
	}
	rules := make([]Rule, 0, len(raw))
	for i, msg := range raw {
		rule := Rule{
			TitleMatch: MatchContains,
			TextMatch:  MatchContains,
			Kind:       KindDeny,
			Enabled:    true,
		}
		if err := json.Unmarshal(msg, &rule); err != nil {
			return nil, fmt.Errorf("failed to decode rule %d: %w", i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
