package config

import "fmt"

// Validator validates configuration comprehensively with clear error messages.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast - stops at first error).
func (v *Validator) ValidateAll() error {
	if err := v.validatePersonas(); err != nil {
		return fmt.Errorf("persona validation failed: %w", err)
	}
	if err := v.validateMappings(); err != nil {
		return fmt.Errorf("mapping validation failed: %w", err)
	}
	return nil
}

// validatePersonas ensures every persona's guard_policy_name resolves.
// "default" and "" both mean the global policy and always resolve.
func (v *Validator) validatePersonas() error {
	for id, p := range v.cfg.Personas {
		name := p.GuardPolicyName
		if name == "" || name == "default" {
			continue
		}
		if _, ok := v.cfg.Policies[name]; !ok {
			return NewValidationError("persona", id, "guard_policy_name",
				fmt.Errorf("%w: %s", ErrPolicyNotFound, name))
		}
	}
	return nil
}

// validateMappings ensures every persona reference in mappings.yaml exists.
// Pattern syntax is intentionally not validated here: a malformed pattern
// is a load-time warning and skip, not a fatal config error (§4.3, §7).
func (v *Validator) validateMappings() error {
	m := v.cfg.Mappings

	if m.DefaultPersonaID == "" {
		return NewValidationError("mappings", "", "default_persona_id", ErrMissingRequiredField)
	}
	if _, ok := v.cfg.Personas[m.DefaultPersonaID]; !ok {
		return NewValidationError("mappings", "", "default_persona_id",
			fmt.Errorf("%w: %s", ErrPersonaNotFound, m.DefaultPersonaID))
	}

	if m.DirectMessagePersonaID == "" {
		return NewValidationError("mappings", "", "direct_message_persona_id", ErrMissingRequiredField)
	}
	if _, ok := v.cfg.Personas[m.DirectMessagePersonaID]; !ok {
		return NewValidationError("mappings", "", "direct_message_persona_id",
			fmt.Errorf("%w: %s", ErrPersonaNotFound, m.DirectMessagePersonaID))
	}

	for chatID, personaID := range m.IDOverride {
		if _, ok := v.cfg.Personas[personaID]; !ok {
			return NewValidationError("mappings", "id_override["+chatID+"]", "persona_id",
				fmt.Errorf("%w: %s", ErrPersonaNotFound, personaID))
		}
	}

	for i, rule := range m.Rules {
		if _, ok := v.cfg.Personas[rule.PersonaID]; !ok {
			return NewValidationError("mappings", fmt.Sprintf("rule[%d]", i), "persona_id",
				fmt.Errorf("%w: %s", ErrPersonaNotFound, rule.PersonaID))
		}
	}

	return nil
}
