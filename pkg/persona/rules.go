package persona

import (
	"regexp"
	"sort"

	"github.com/relaybroker/broker/pkg/config"
)

// compiledRule is a mapping rule with its pattern compiled at load time.
type compiledRule struct {
	pattern   *regexp.Regexp
	source    string
	personaID string
	priority  int
}

// compileRules compiles each mapping rule in priority order (ascending —
// lower values evaluated first), skipping and reporting any rule whose
// pattern fails to compile. Ties in priority preserve declaration order,
// matching §9's "pattern-matching order is observable" note.
func compileRules(rules []config.MappingRuleConfig, onInvalid func(pattern string, err error)) []compiledRule {
	indexed := make([]struct {
		rule config.MappingRuleConfig
		idx  int
	}, len(rules))
	for i, r := range rules {
		indexed[i] = struct {
			rule config.MappingRuleConfig
			idx  int
		}{r, i}
	}
	sort.SliceStable(indexed, func(i, j int) bool {
		return indexed[i].rule.Priority < indexed[j].rule.Priority
	})

	compiled := make([]compiledRule, 0, len(rules))
	for _, e := range indexed {
		re, err := regexp.Compile("(?i)" + e.rule.Pattern)
		if err != nil {
			onInvalid(e.rule.Pattern, err)
			continue
		}
		compiled = append(compiled, compiledRule{
			pattern:   re,
			source:    e.rule.Pattern,
			personaID: e.rule.PersonaID,
			priority:  e.rule.Priority,
		})
	}
	return compiled
}
