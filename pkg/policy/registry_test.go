package policy

import (
	"testing"

	"github.com/relaybroker/broker/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetReturnsEmptyPolicyForMissingName(t *testing.T) {
	r := NewRegistry(map[string]config.PolicyConfig{}, 300)

	p := r.Get("nonexistent")
	require.NotNil(t, p)
	assert.True(t, p.IsEmpty())
	assert.Equal(t, 300, p.ApprovalTimeout)
}

func TestGetReturnsGlobalForEmptyOrDefaultName(t *testing.T) {
	r := NewRegistry(map[string]config.PolicyConfig{
		"default": {Classification: config.ClassificationConfig{
			Green: config.PatternGroupConfig{Patterns: []string{"^ls$"}},
		}},
	}, 300)

	p1 := r.Get("")
	p2 := r.Get("default")
	assert.Equal(t, p1, p2)
	_, hit := p1.ClassifyTiers("ls")
	assert.True(t, hit)
}

func TestZeroBlacklistPatternsNeverBlacklists(t *testing.T) {
	r := NewRegistry(map[string]config.PolicyConfig{
		"default": {},
	}, 300)

	_, hit := r.Get("default").MatchBlacklist("rm -rf /")
	assert.False(t, hit)
}

func TestAllEmptyTierListsMatchesNothing(t *testing.T) {
	p := compile("p", config.PolicyConfig{}, 300, func(string, string, string) {})
	_, ok := p.ClassifyTiers("anything")
	assert.False(t, ok)
	assert.True(t, p.IsEmpty())
}

func TestInvalidPatternIsSkippedNotFatal(t *testing.T) {
	var invalid []string
	p := compile("p", config.PolicyConfig{
		Classification: config.ClassificationConfig{
			Green: config.PatternGroupConfig{Patterns: []string{"^ok$", "(unclosed"}},
		},
	}, 300, func(name, tier, pattern string) {
		invalid = append(invalid, pattern)
	})

	assert.Equal(t, []string{"(unclosed"}, invalid)
	m, ok := p.ClassifyTiers("ok")
	require.True(t, ok)
	assert.Equal(t, TierGreen, m.Tier)
}

func TestMatchBlacklistByExecutableSubstring(t *testing.T) {
	p := compile("p", config.PolicyConfig{
		Blacklist: config.BlacklistConfig{Executables: []string{"mkfs"}},
	}, 300, func(string, string, string) {})

	exe, hit := p.MatchBlacklist("sudo MKFS.ext4 /dev/sda1")
	assert.True(t, hit)
	assert.Equal(t, "mkfs", exe)
}

func TestApprovalTimeoutFallsBackToDefault(t *testing.T) {
	r := NewRegistry(map[string]config.PolicyConfig{
		"no_timeout": {Classification: config.ClassificationConfig{
			Red: config.PatternGroupConfig{Patterns: []string{".*"}},
		}},
		"with_timeout": {Classification: config.ClassificationConfig{
			Red: config.PatternGroupConfig{Patterns: []string{".*"}, ApprovalTimeout: 60},
		}},
	}, 300)

	assert.Equal(t, 300, r.ApprovalTimeout("no_timeout"))
	assert.Equal(t, 60, r.ApprovalTimeout("with_timeout"))
}

func TestReloadSwapsAtomically(t *testing.T) {
	r := NewRegistry(map[string]config.PolicyConfig{
		"default": {Classification: config.ClassificationConfig{
			Green: config.PatternGroupConfig{Patterns: []string{"^ls$"}},
		}},
	}, 300)

	r.Reload(map[string]config.PolicyConfig{
		"default": {Classification: config.ClassificationConfig{
			Red: config.PatternGroupConfig{Patterns: []string{"^ls$"}},
		}},
	})

	m, ok := r.Global().ClassifyTiers("ls")
	require.True(t, ok)
	assert.Equal(t, TierRed, m.Tier)
}
