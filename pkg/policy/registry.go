package policy

import (
	"log/slog"
	"sync/atomic"

	"github.com/relaybroker/broker/pkg/config"
)

// Registry holds every named policy compiled from policies.yaml plus the
// global ("default") policy. It is immutable after construction; Reload
// builds a new snapshot and swaps it in atomically (§4.2, §5).
type Registry struct {
	approvalTimeoutDefault int
	snapshot               atomic.Pointer[snapshot]
}

type snapshot struct {
	policies map[string]*CompiledPolicy
}

// NewRegistry compiles every policy in cfg and returns a ready Registry.
func NewRegistry(cfg map[string]config.PolicyConfig, approvalTimeoutDefault int) *Registry {
	r := &Registry{approvalTimeoutDefault: approvalTimeoutDefault}
	r.snapshot.Store(buildSnapshot(cfg, approvalTimeoutDefault))
	return r
}

func buildSnapshot(cfg map[string]config.PolicyConfig, approvalTimeoutDefault int) *snapshot {
	policies := make(map[string]*CompiledPolicy, len(cfg))
	for name, pc := range cfg {
		policies[name] = compile(name, pc, approvalTimeoutDefault, func(policyName, tier, pattern string) {
			slog.Warn("skipping invalid policy pattern",
				"policy", policyName, "tier", tier, "pattern", pattern)
		})
	}
	return &snapshot{policies: policies}
}

// Get returns the named policy, or the global ("default") policy if name
// is "" or "default", or a permissive-but-cautious empty policy if name
// resolves to nothing registered. Get never fails (§4.2).
func (r *Registry) Get(name string) *CompiledPolicy {
	s := r.snapshot.Load()
	if name == "" {
		name = "default"
	}
	if p, ok := s.policies[name]; ok {
		return p
	}
	return emptyPolicy(name, r.approvalTimeoutDefault)
}

// Global returns the global policy (policy name "default").
func (r *Registry) Global() *CompiledPolicy {
	return r.Get("default")
}

// ApprovalTimeout returns the RED approval timeout in seconds for name.
func (r *Registry) ApprovalTimeout(name string) int {
	return r.Get(name).ApprovalTimeout
}

// Reload atomically swaps in a freshly compiled set of policies.
func (r *Registry) Reload(cfg map[string]config.PolicyConfig) {
	r.snapshot.Store(buildSnapshot(cfg, r.approvalTimeoutDefault))
}
