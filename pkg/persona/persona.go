package persona

import "github.com/relaybroker/broker/pkg/config"

// Persona is a named capability profile governing how a message is
// handled (§3).
type Persona struct {
	ID              string
	SystemPrompt    string
	AllowedSkills   []string
	GuardPolicyName string
	MemoryScope     string
	PrioritySkill   string
	RequiresBrowser bool
}

// AllowsSkill reports whether skill is permitted for p. The sentinel
// element "all" in AllowedSkills means unrestricted; any other list is a
// literal subset (§8 boundary behavior).
func (p *Persona) AllowsSkill(skill string) bool {
	for _, s := range p.AllowedSkills {
		if s == "all" || s == skill {
			return true
		}
	}
	return false
}

func fromConfig(id string, c config.PersonaConfig) *Persona {
	return &Persona{
		ID:              id,
		SystemPrompt:    c.SystemPrompt,
		AllowedSkills:   c.AllowedSkills,
		GuardPolicyName: c.GuardPolicyName,
		MemoryScope:     c.MemoryScope,
		PrioritySkill:   c.PrioritySkill,
		RequiresBrowser: c.RequiresBrowser,
	}
}
