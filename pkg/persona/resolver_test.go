package persona

import (
	"testing"

	"github.com/relaybroker/broker/pkg/config"
	"github.com/stretchr/testify/assert"
)

func testConfig() (map[string]config.PersonaConfig, config.MappingsConfig) {
	personas := map[string]config.PersonaConfig{
		"Trading": {SystemPrompt: "trading"},
		"General": {SystemPrompt: "general"},
	}
	mappings := config.MappingsConfig{
		Rules: []config.MappingRuleConfig{
			{Pattern: "^Trading.*|.*Crypto.*", PersonaID: "Trading", Priority: 2},
			{Pattern: ".*", PersonaID: "General", Priority: 99},
		},
		IDOverride:             map[string]string{"C42": "Trading"},
		DefaultPersonaID:       "General",
		DirectMessagePersonaID: "General",
	}
	return personas, mappings
}

func TestResolveDirectMessageTakesPriority(t *testing.T) {
	personas, mappings := testConfig()
	r := NewRegistry(personas, mappings)

	res := r.Resolve(ChatContext{ChatID: "C42", IsGroup: false, DisplayName: "Crypto Signals"})
	assert.Equal(t, "General", res.PersonaID)
	assert.Equal(t, MatchDirectMessage, res.MatchKind)
}

func TestResolveIDOverride(t *testing.T) {
	personas, mappings := testConfig()
	r := NewRegistry(personas, mappings)

	res := r.Resolve(ChatContext{ChatID: "C42", IsGroup: true, DisplayName: "anything"})
	assert.Equal(t, "Trading", res.PersonaID)
	assert.Equal(t, MatchIDOverride, res.MatchKind)
}

func TestResolvePatternByPriority(t *testing.T) {
	personas, mappings := testConfig()
	r := NewRegistry(personas, mappings)

	res := r.Resolve(ChatContext{ChatID: "C1", IsGroup: true, DisplayName: "Crypto Signals"})
	assert.Equal(t, "Trading", res.PersonaID)
	assert.Equal(t, MatchPattern, res.MatchKind)
}

func TestResolveDefaultWhenNoPatternMatches(t *testing.T) {
	personas, mappings := testConfig()
	mappings.Rules = []config.MappingRuleConfig{{Pattern: "^NoMatch$", PersonaID: "Trading", Priority: 1}}
	r := NewRegistry(personas, mappings)

	res := r.Resolve(ChatContext{ChatID: "C1", IsGroup: true, DisplayName: "anything else"})
	assert.Equal(t, "General", res.PersonaID)
	assert.Equal(t, MatchDefault, res.MatchKind)
}

func TestResolveIsIdempotent(t *testing.T) {
	personas, mappings := testConfig()
	r := NewRegistry(personas, mappings)
	ctx := ChatContext{ChatID: "C1", IsGroup: true, DisplayName: "Crypto Signals"}

	assert.Equal(t, r.Resolve(ctx), r.Resolve(ctx))
}

func TestMalformedPatternIsSkippedNotFatal(t *testing.T) {
	personas, mappings := testConfig()
	mappings.Rules = []config.MappingRuleConfig{
		{Pattern: "(unclosed", PersonaID: "Trading", Priority: 1},
		{Pattern: ".*", PersonaID: "General", Priority: 2},
	}

	r := NewRegistry(personas, mappings)
	res := r.Resolve(ChatContext{ChatID: "C9", IsGroup: true, DisplayName: "anything"})
	assert.Equal(t, "General", res.PersonaID)
}

func TestAllowsSkillWithAllSentinel(t *testing.T) {
	p := &Persona{AllowedSkills: []string{"all"}}
	assert.True(t, p.AllowsSkill("deploy"))
	assert.True(t, p.AllowsSkill("anything"))
}

func TestAllowsSkillLiteralSubset(t *testing.T) {
	p := &Persona{AllowedSkills: []string{"deploy", "browse"}}
	assert.True(t, p.AllowsSkill("deploy"))
	assert.False(t, p.AllowsSkill("shell"))
}

func TestReloadSwapsAtomically(t *testing.T) {
	personas, mappings := testConfig()
	r := NewRegistry(personas, mappings)

	// drop the ".*" catch-all so an unmatched display name falls to the default.
	mappings.Rules = mappings.Rules[:1]
	mappings.DefaultPersonaID = "Trading"
	r.Reload(personas, mappings)

	res := r.Resolve(ChatContext{ChatID: "C1", IsGroup: true, DisplayName: "zzz-no-match-zzz"})
	assert.Equal(t, "Trading", res.PersonaID)
}
