package persona

import (
	"log/slog"
	"sync/atomic"

	"github.com/relaybroker/broker/pkg/config"
)

// MatchKind names which rule of the resolution algorithm (§4.3) produced
// a result.
type MatchKind string

const (
	MatchDirectMessage MatchKind = "direct_message"
	MatchIDOverride    MatchKind = "id_override"
	MatchPattern        MatchKind = "pattern"
	MatchDefault        MatchKind = "default"
)

// ChatContext is the routing input for Resolve.
type ChatContext struct {
	ChatID      string
	DisplayName string
	IsGroup     bool
}

// Resolution is the output of Resolve.
type Resolution struct {
	PersonaID string
	MatchKind MatchKind
}

// Registry holds the persona set and compiled mapping rules. It is
// immutable after construction; Reload performs an atomic swap (§5).
type Registry struct {
	snapshot atomic.Pointer[snapshot]
}

type snapshot struct {
	personas               map[string]*Persona
	rules                  []compiledRule
	idOverride             map[string]string
	defaultPersonaID       string
	directMessagePersonaID string
}

// NewRegistry builds a Registry from loaded configuration, compiling
// mapping patterns eagerly and skipping malformed ones with a warning
// (§4.3: "the loader must not abort").
func NewRegistry(personas map[string]config.PersonaConfig, mappings config.MappingsConfig) *Registry {
	r := &Registry{}
	r.snapshot.Store(buildSnapshot(personas, mappings))
	return r
}

func buildSnapshot(personas map[string]config.PersonaConfig, mappings config.MappingsConfig) *snapshot {
	pm := make(map[string]*Persona, len(personas))
	for id, pc := range personas {
		pm[id] = fromConfig(id, pc)
	}

	rules := compileRules(mappings.Rules, func(pattern string, err error) {
		slog.Warn("skipping malformed mapping pattern", "pattern", pattern, "error", err)
	})

	return &snapshot{
		personas:               pm,
		rules:                  rules,
		idOverride:             mappings.IDOverride,
		defaultPersonaID:       mappings.DefaultPersonaID,
		directMessagePersonaID: mappings.DirectMessagePersonaID,
	}
}

// Get returns the persona by id.
func (r *Registry) Get(id string) (*Persona, bool) {
	s := r.snapshot.Load()
	p, ok := s.personas[id]
	return p, ok
}

// Resolve implements the §4.3 algorithm: first match wins.
//  1. Not a group -> direct_message_persona_id.
//  2. chat_id in id_override -> that persona.
//  3. First matching compiled pattern in ascending priority order.
//  4. default_persona_id.
func (r *Registry) Resolve(ctx ChatContext) Resolution {
	s := r.snapshot.Load()

	if !ctx.IsGroup {
		return Resolution{PersonaID: s.directMessagePersonaID, MatchKind: MatchDirectMessage}
	}

	if personaID, ok := s.idOverride[ctx.ChatID]; ok {
		return Resolution{PersonaID: personaID, MatchKind: MatchIDOverride}
	}

	for _, rule := range s.rules {
		if rule.pattern.MatchString(ctx.DisplayName) {
			return Resolution{PersonaID: rule.personaID, MatchKind: MatchPattern}
		}
	}

	return Resolution{PersonaID: s.defaultPersonaID, MatchKind: MatchDefault}
}

// Reload atomically swaps in a freshly compiled persona/mapping snapshot.
func (r *Registry) Reload(personas map[string]config.PersonaConfig, mappings config.MappingsConfig) {
	r.snapshot.Store(buildSnapshot(personas, mappings))
}
