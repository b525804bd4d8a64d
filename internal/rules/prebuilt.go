package rules

import (
	_ "embed"
	"fmt"

	"github.com/quelld/quell/internal/model"
)

//go:embed prebuilt.json
var prebuiltJSON []byte

// Prebuilt returns the catalog of shipped rules for common notification
// spam. The catalog uses the same serialized rule format as exports.
func Prebuilt() ([]model.Rule, error) {
	rules, err := model.DecodeRules(prebuiltJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to load prebuilt rules: %w", err)
	}
	return rules, nil
}

// Merge appends the incoming rules that are not already present in
// existing, comparing by field tuple. Returns the merged list and the
// number of rules actually added.
func Merge(existing, incoming []model.Rule) ([]model.Rule, int) {
	seen := make(map[model.RuleIdentity]bool, len(existing))
	for i := range existing {
		seen[existing[i].Identity()] = true
	}

	merged := existing
	added := 0
	for i := range incoming {
		id := incoming[i].Identity()
		if seen[id] {
			continue
		}
		seen[id] = true
		merged = append(merged, incoming[i])
		added++
	}
	return merged, added
}
