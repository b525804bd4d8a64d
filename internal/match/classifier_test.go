package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quelld/quell/internal/model"
	"github.com/quelld/quell/internal/pattern"
)

func newClassifier(t *testing.T) *Classifier {
	t.Helper()
	cache, err := pattern.NewCache(64)
	require.NoError(t, err)
	return NewClassifier(NewMatcher(cache))
}

func denyRule(pkg, titleFilter string) model.Rule {
	return model.Rule{
		PackageName: pkg,
		TitleFilter: titleFilter,
		TitleMatch:  model.MatchContains,
		TextMatch:   model.MatchContains,
		Kind:        model.KindDeny,
		Enabled:     true,
	}
}

func allowRule(pkg, titleFilter string) model.Rule {
	rule := denyRule(pkg, titleFilter)
	rule.Kind = model.KindAllow
	return rule
}

func TestClassifier_DenyRuleBlocks(t *testing.T) {
	c := newClassifier(t)
	now := time.Now()

	rules := []model.Rule{denyRule("com.app.x", "promo")}
	decision := c.Classify("com.app.x", "Big Promo Sale", "", rules, now)

	assert.True(t, decision.Blocked)
	assert.Equal(t, 0, decision.DenyIndex)
	assert.Equal(t, -1, decision.AllowIndex)
	assert.Equal(t, []int{0}, decision.MatchedIndexes())
}

func TestClassifier_NoRulesForPackage(t *testing.T) {
	c := newClassifier(t)
	now := time.Now()

	rules := []model.Rule{denyRule("com.app.x", "promo")}
	decision := c.Classify("com.app.y", "Big Promo Sale", "", rules, now)

	assert.False(t, decision.Blocked)
	assert.Empty(t, decision.MatchedIndexes())
}

func TestClassifier_AllowWithoutMatchBlocks(t *testing.T) {
	c := newClassifier(t)
	now := time.Now()

	// One allow rule, zero deny rules: anything that does not match the
	// allow rule is blocked.
	rules := []model.Rule{allowRule("com.app", "important")}

	blocked := c.Classify("com.app", "spam spam spam", "", rules, now)
	assert.True(t, blocked.Blocked)
	assert.Equal(t, -1, blocked.AllowIndex)

	allowed := c.Classify("com.app", "important update", "", rules, now)
	assert.False(t, allowed.Blocked)
	assert.Equal(t, 0, allowed.AllowIndex)
}

func TestClassifier_DenyPrecedence(t *testing.T) {
	c := newClassifier(t)
	now := time.Now()

	allow := allowRule("com.app", "sale")
	deny := denyRule("com.app", "sale")

	// Both orderings: a deny match blocks even when an allow rule matched.
	for _, rules := range [][]model.Rule{{allow, deny}, {deny, allow}} {
		decision := c.Classify("com.app", "mega sale", "", rules, now)
		assert.True(t, decision.Blocked)
		assert.GreaterOrEqual(t, decision.AllowIndex, 0)
		assert.GreaterOrEqual(t, decision.DenyIndex, 0)
		assert.Len(t, decision.MatchedIndexes(), 2)
	}
}

func TestClassifier_DisabledRulesIgnored(t *testing.T) {
	c := newClassifier(t)
	now := time.Now()

	deny := denyRule("com.app", "promo")
	deny.Enabled = false
	allow := allowRule("com.app", "important")
	allow.Enabled = false

	// A disabled allow rule must not trigger the allow-miss block either.
	decision := c.Classify("com.app", "promo", "", []model.Rule{deny, allow}, now)
	assert.False(t, decision.Blocked)
	assert.Empty(t, decision.MatchedIndexes())
}

func TestClassifier_FirstMatchPerKind(t *testing.T) {
	c := newClassifier(t)
	now := time.Now()

	rules := []model.Rule{
		denyRule("com.app", "nope"),
		denyRule("com.app", "promo"),
		denyRule("com.app", "pro"),
	}

	decision := c.Classify("com.app", "promo time", "", rules, now)
	assert.True(t, decision.Blocked)
	assert.Equal(t, 1, decision.DenyIndex, "first matching deny rule in list order wins")
}

func TestClassifier_AllowMatchDoesNotStopDenyScan(t *testing.T) {
	c := newClassifier(t)
	now := time.Now()

	rules := []model.Rule{
		allowRule("com.app", "sale"),
		denyRule("com.app", "sale"),
	}

	decision := c.Classify("com.app", "sale", "", rules, now)
	assert.True(t, decision.Blocked)
	assert.Equal(t, 0, decision.AllowIndex)
	assert.Equal(t, 1, decision.DenyIndex)
}

func TestClassifier_InactiveWindowAllowStillCountsAsAllowRule(t *testing.T) {
	c := newClassifier(t)

	allow := allowRule("com.app", "important")
	allow.Window = &model.TimeWindow{Enabled: true, StartHour: 9, EndHour: 17}

	// Outside the allow rule's window nothing can match it, so every
	// event from the package is blocked.
	night := time.Date(2024, 3, 14, 3, 0, 0, 0, time.UTC)
	decision := c.Classify("com.app", "important update", "", []model.Rule{allow}, night)
	assert.True(t, decision.Blocked)
}

func TestClassifier_LegacyAnyPackageRule(t *testing.T) {
	c := newClassifier(t)
	now := time.Now()

	anyPkg := denyRule("", "lottery")
	decision := c.Classify("com.random.app", "lottery winner", "", []model.Rule{anyPkg}, now)
	assert.True(t, decision.Blocked)
	assert.Equal(t, 0, decision.DenyIndex)
}
