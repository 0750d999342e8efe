package config

// PersonaConfig is the on-disk shape of a persona entry in personas.yaml.
type PersonaConfig struct {
	SystemPrompt    string   `yaml:"system_prompt"`
	AllowedSkills   []string `yaml:"allowed_skills"`
	GuardPolicyName string   `yaml:"guard_policy_name"`
	MemoryScope     string   `yaml:"memory_scope,omitempty"`
	PrioritySkill   string   `yaml:"priority_skill,omitempty"`
	RequiresBrowser bool     `yaml:"requires_browser,omitempty"`
}

// MappingRuleConfig is one entry of the ordered mapping-rule list in mappings.yaml.
type MappingRuleConfig struct {
	Pattern   string `yaml:"pattern" validate:"required"`
	PersonaID string `yaml:"persona_id" validate:"required"`
	Priority  int    `yaml:"priority"`
}

// MappingsConfig is the complete mappings.yaml file structure.
type MappingsConfig struct {
	Rules                  []MappingRuleConfig `yaml:"rules"`
	IDOverride             map[string]string   `yaml:"id_override,omitempty"`
	DefaultPersonaID       string              `yaml:"default_persona_id" validate:"required"`
	DirectMessagePersonaID string              `yaml:"direct_message_persona_id" validate:"required"`
}

// PatternGroupConfig holds one tier (green/yellow/red) of a policy.
type PatternGroupConfig struct {
	Patterns        []string `yaml:"patterns,omitempty"`
	ApprovalTimeout int      `yaml:"approval_timeout,omitempty"` // seconds, red tier only
}

// BlacklistConfig holds a policy's blacklist tier.
type BlacklistConfig struct {
	Patterns    []string `yaml:"patterns,omitempty"`
	Executables []string `yaml:"executables,omitempty"`
}

// ClassificationConfig groups the three pattern tiers of a policy.
type ClassificationConfig struct {
	Green PatternGroupConfig `yaml:"green,omitempty"`
	Yellow PatternGroupConfig `yaml:"yellow,omitempty"`
	Red    PatternGroupConfig `yaml:"red,omitempty"`
}

// PolicyConfig is the on-disk shape of one named policy in policies.yaml.
type PolicyConfig struct {
	Blacklist      BlacklistConfig       `yaml:"blacklist,omitempty"`
	Classification ClassificationConfig  `yaml:"classification,omitempty"`
}

// PoliciesConfig is the complete policies.yaml file structure.
type PoliciesConfig struct {
	Policies map[string]PolicyConfig `yaml:"policies"`
}

// PersonasConfig is the complete personas.yaml file structure.
type PersonasConfig struct {
	Personas map[string]PersonaConfig `yaml:"personas"`
}
