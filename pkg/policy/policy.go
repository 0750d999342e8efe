package policy

import "github.com/relaybroker/broker/pkg/config"

// Tier is one of the three classification pattern tiers a policy declares.
type Tier string

const (
	TierGreen  Tier = "GREEN"
	TierYellow Tier = "YELLOW"
	TierRed    Tier = "RED"
)

// Match describes the outcome of evaluating a command against a policy's
// tiers or blacklist.
type Match struct {
	Tier    Tier
	Pattern string
}

// CompiledPolicy is a named policy with every pattern tier compiled at
// load time (§4.2).
type CompiledPolicy struct {
	Name            string
	ApprovalTimeout int // seconds, red tier

	blacklistPatterns    []CompiledPattern
	blacklistExecutables []string
	green                []CompiledPattern
	yellow               []CompiledPattern
	red                  []CompiledPattern
}

// MatchBlacklist reports whether command hits this policy's blacklist,
// either by pattern or by executable-token substring containment.
func (p *CompiledPolicy) MatchBlacklist(command string) (pattern string, hit bool) {
	if m, ok := matchFirst(p.blacklistPatterns, command); ok {
		return m.Source, true
	}
	if exe, ok := matchExecutable(p.blacklistExecutables, command); ok {
		return exe, true
	}
	return "", false
}

// ClassifyTiers evaluates command against the green, yellow, and red tiers
// in that order and returns the first hit across all three.
func (p *CompiledPolicy) ClassifyTiers(command string) (Match, bool) {
	if m, ok := matchFirst(p.green, command); ok {
		return Match{Tier: TierGreen, Pattern: m.Source}, true
	}
	if m, ok := matchFirst(p.yellow, command); ok {
		return Match{Tier: TierYellow, Pattern: m.Source}, true
	}
	if m, ok := matchFirst(p.red, command); ok {
		return Match{Tier: TierRed, Pattern: m.Source}, true
	}
	return Match{}, false
}

// IsEmpty reports whether the policy has no blacklist and no tier
// patterns at all (the boundary case in §8: "policy with all-empty tier
// lists must classify any command as YELLOW").
func (p *CompiledPolicy) IsEmpty() bool {
	return len(p.blacklistPatterns) == 0 && len(p.blacklistExecutables) == 0 &&
		len(p.green) == 0 && len(p.yellow) == 0 && len(p.red) == 0
}

// compile builds a CompiledPolicy from its on-disk configuration,
// logging and dropping any pattern that fails to compile.
func compile(name string, cfg config.PolicyConfig, approvalTimeoutDefault int, onInvalid func(name, tier, pattern string)) *CompiledPolicy {
	green, invalidGreen := compilePatterns(cfg.Classification.Green.Patterns)
	yellow, invalidYellow := compilePatterns(cfg.Classification.Yellow.Patterns)
	red, invalidRed := compilePatterns(cfg.Classification.Red.Patterns)
	blacklist, invalidBlacklist := compilePatterns(cfg.Blacklist.Patterns)

	for _, s := range invalidGreen {
		onInvalid(name, "green", s)
	}
	for _, s := range invalidYellow {
		onInvalid(name, "yellow", s)
	}
	for _, s := range invalidRed {
		onInvalid(name, "red", s)
	}
	for _, s := range invalidBlacklist {
		onInvalid(name, "blacklist", s)
	}

	timeout := cfg.Classification.Red.ApprovalTimeout
	if timeout <= 0 {
		timeout = approvalTimeoutDefault
	}

	return &CompiledPolicy{
		Name:                 name,
		ApprovalTimeout:      timeout,
		blacklistPatterns:    blacklist,
		blacklistExecutables: cfg.Blacklist.Executables,
		green:                green,
		yellow:               yellow,
		red:                  red,
	}
}

// emptyPolicy is the permissive-but-cautious fallback returned by Get
// when a name has no registered policy (§4.2).
func emptyPolicy(name string, approvalTimeoutDefault int) *CompiledPolicy {
	return &CompiledPolicy{Name: name, ApprovalTimeout: approvalTimeoutDefault}
}
