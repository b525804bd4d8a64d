package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quelld/quell/internal/model"
	"github.com/quelld/quell/internal/pattern"
)

func newMatcher(t *testing.T) *Matcher {
	t.Helper()
	cache, err := pattern.NewCache(64)
	require.NoError(t, err)
	return NewMatcher(cache)
}

func TestMatcher_Matches(t *testing.T) {
	noon := time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		rule  model.Rule
		pkg   string
		title string
		text  string
		want  bool
	}{
		{
			name:  "contains is case-insensitive",
			rule:  model.Rule{PackageName: "com.app", TitleFilter: "PROMO", TitleMatch: model.MatchContains, TextMatch: model.MatchContains},
			pkg:   "com.app",
			title: "Big promo sale",
			want:  true,
		},
		{
			name:  "contains no match",
			rule:  model.Rule{PackageName: "com.app", TitleFilter: "promo", TitleMatch: model.MatchContains, TextMatch: model.MatchContains},
			pkg:   "com.app",
			title: "Your order shipped",
			want:  false,
		},
		{
			name:  "blank filters are vacuously true",
			rule:  model.Rule{PackageName: "com.app", TitleMatch: model.MatchContains, TextMatch: model.MatchContains},
			pkg:   "com.app",
			title: "anything",
			text:  "at all",
			want:  true,
		},
		{
			name:  "non-blank filter fails on missing title",
			rule:  model.Rule{PackageName: "com.app", TitleFilter: "promo", TitleMatch: model.MatchContains, TextMatch: model.MatchContains},
			pkg:   "com.app",
			text:  "body only",
			want:  false,
		},
		{
			name:  "regex is whole-string",
			rule:  model.Rule{PackageName: "com.app", TitleFilter: "[0-9]+", TitleMatch: model.MatchRegex, TextMatch: model.MatchContains},
			pkg:   "com.app",
			title: "123abc456",
			want:  false,
		},
		{
			name:  "regex whole-string match",
			rule:  model.Rule{PackageName: "com.app", TitleFilter: "[0-9]+", TitleMatch: model.MatchRegex, TextMatch: model.MatchContains},
			pkg:   "com.app",
			title: "123456",
			want:  true,
		},
		{
			name:  "invalid regex is treated as no match",
			rule:  model.Rule{PackageName: "com.app", TitleFilter: "[unclosed", TitleMatch: model.MatchRegex, TextMatch: model.MatchContains},
			pkg:   "com.app",
			title: "[unclosed",
			want:  false,
		},
		{
			name:  "package scope mismatch",
			rule:  model.Rule{PackageName: "com.app", TitleFilter: "promo", TitleMatch: model.MatchContains, TextMatch: model.MatchContains},
			pkg:   "com.other",
			title: "promo",
			want:  false,
		},
		{
			name:  "empty package matches any",
			rule:  model.Rule{TitleFilter: "promo", TitleMatch: model.MatchContains, TextMatch: model.MatchContains},
			pkg:   "com.whatever",
			title: "promo",
			want:  true,
		},
		{
			name: "both predicates must hold",
			rule: model.Rule{
				PackageName: "com.app",
				TitleFilter: "promo", TitleMatch: model.MatchContains,
				TextFilter: "discount", TextMatch: model.MatchContains,
			},
			pkg:   "com.app",
			title: "promo",
			text:  "full price",
			want:  false,
		},
	}

	m := newMatcher(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Matches(&tt.rule, tt.pkg, tt.title, tt.text, noon)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatcher_TemporalWindow(t *testing.T) {
	m := newMatcher(t)
	rule := model.Rule{
		PackageName: "com.app",
		TitleFilter: "promo",
		TitleMatch:  model.MatchContains,
		TextMatch:   model.MatchContains,
		Window:      &model.TimeWindow{Enabled: true, StartHour: 22, EndHour: 6},
	}

	at := func(hour int) time.Time {
		return time.Date(2024, 3, 14, hour, 0, 0, 0, time.UTC)
	}

	assert.True(t, m.Matches(&rule, "com.app", "promo", "", at(23)))
	assert.True(t, m.Matches(&rule, "com.app", "promo", "", at(2)))
	assert.False(t, m.Matches(&rule, "com.app", "promo", "", at(12)))
}
