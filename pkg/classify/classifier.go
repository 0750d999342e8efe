package classify

import (
	"github.com/relaybroker/broker/pkg/persona"
	"github.com/relaybroker/broker/pkg/policy"
)

// PersonaLookup resolves a persona id to its guard policy configuration.
// Satisfied by *persona.Registry.
type PersonaLookup interface {
	Get(id string) (*persona.Persona, bool)
}

// PolicyLookup resolves a policy name to its compiled form.
// Satisfied by *policy.Registry.
type PolicyLookup interface {
	Get(name string) *policy.CompiledPolicy
	Global() *policy.CompiledPolicy
}

// Classifier implements the §4.4 tiered classification contract.
// Classify is a pure function of (command, personaID) and the frozen
// registries it was built with — no side effects.
type Classifier struct {
	policies PolicyLookup
	personas PersonaLookup
}

// NewClassifier builds a Classifier over the given registries.
func NewClassifier(policies PolicyLookup, personas PersonaLookup) *Classifier {
	return &Classifier{policies: policies, personas: personas}
}

// Classify evaluates command for personaID following the §4.4 evaluation
// order: persona blacklist, global blacklist, persona tiers, global
// tiers, persona-override-of-global-GREEN, and finally the YELLOW
// cautious default.
func (c *Classifier) Classify(command, personaID string) Decision {
	personaPolicyName := c.personaPolicyName(personaID)

	if personaPolicyName != "" {
		p := c.policies.Get(personaPolicyName)
		if pattern, hit := p.MatchBlacklist(command); hit {
			return Decision{
				Level:          LevelBlacklisted,
				MatchedPattern: pattern,
				Reason:         "blacklisted by persona policy",
				PolicyUsed:     personaPolicyName,
				PersonaID:      personaID,
			}
		}
	}

	global := c.policies.Global()
	if pattern, hit := global.MatchBlacklist(command); hit {
		return Decision{
			Level:          LevelBlacklisted,
			MatchedPattern: pattern,
			Reason:         "blacklisted by global policy",
			PolicyUsed:     "global",
			PersonaID:      personaID,
		}
	}

	var personaMatch policy.Match
	var personaHit bool
	if personaPolicyName != "" {
		personaMatch, personaHit = c.policies.Get(personaPolicyName).ClassifyTiers(command)
		if personaHit && (personaMatch.Tier == policy.TierRed || personaMatch.Tier == policy.TierYellow) {
			return Decision{
				Level:          Level(personaMatch.Tier),
				MatchedPattern: personaMatch.Pattern,
				Reason:         "matched persona policy tier",
				PolicyUsed:     personaPolicyName,
				PersonaID:      personaID,
			}
		}
	}

	globalMatch, globalHit := global.ClassifyTiers(command)

	if globalHit && globalMatch.Tier == policy.TierGreen {
		if personaHit {
			return Decision{
				Level:          Level(personaMatch.Tier),
				MatchedPattern: personaMatch.Pattern,
				Reason:         "persona policy overrides global GREEN",
				PolicyUsed:     personaPolicyName,
				PersonaID:      personaID,
			}
		}
		return Decision{
			Level:          LevelGreen,
			MatchedPattern: globalMatch.Pattern,
			Reason:         "matched global policy tier",
			PolicyUsed:     "global",
			PersonaID:      personaID,
		}
	}

	if globalHit {
		return Decision{
			Level:          Level(globalMatch.Tier),
			MatchedPattern: globalMatch.Pattern,
			Reason:         "matched global policy tier",
			PolicyUsed:     "global",
			PersonaID:      personaID,
		}
	}

	if personaHit {
		return Decision{
			Level:          Level(personaMatch.Tier),
			MatchedPattern: personaMatch.Pattern,
			Reason:         "matched persona policy tier",
			PolicyUsed:     personaPolicyName,
			PersonaID:      personaID,
		}
	}

	return Decision{
		Level:      LevelYellow,
		Reason:     "unknown command type",
		PolicyUsed: "global",
		PersonaID:  personaID,
	}
}

// personaPolicyName returns the persona's guard policy name, or "" if the
// persona is unknown or uses the default (global) policy.
func (c *Classifier) personaPolicyName(personaID string) string {
	p, ok := c.personas.Get(personaID)
	if !ok || p.GuardPolicyName == "" || p.GuardPolicyName == "default" {
		return ""
	}
	return p.GuardPolicyName
}
