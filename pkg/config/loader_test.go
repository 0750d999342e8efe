package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func writeMinimalConfig(t *testing.T, dir string) {
	t.Helper()
	writeConfigFile(t, dir, "personas.yaml", `
personas:
  General:
    system_prompt: "You are General."
    allowed_skills: ["all"]
    guard_policy_name: default
  Trading:
    system_prompt: "You are Trading."
    allowed_skills: ["all"]
    guard_policy_name: trading_policy
`)
	writeConfigFile(t, dir, "mappings.yaml", `
rules:
  - pattern: ".*Crypto.*"
    persona_id: Trading
    priority: 2
  - pattern: ".*"
    persona_id: General
    priority: 99
default_persona_id: General
direct_message_persona_id: General
`)
	writeConfigFile(t, dir, "policies.yaml", `
policies:
  default:
    classification:
      green:
        patterns: ["^ls$"]
  trading_policy:
    classification:
      red:
        patterns: ["^ls$"]
        approval_timeout: 60
`)
}

func TestInitializeLoadsValidConfig(t *testing.T) {
	dir := t.TempDir()
	writeMinimalConfig(t, dir)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Len(t, cfg.Personas, 2)
	assert.Equal(t, "General", cfg.Mappings.DefaultPersonaID)
	assert.Len(t, cfg.Policies, 2)
	assert.Equal(t, 300, cfg.Defaults.ApprovalTimeout)
}

func TestInitializeMergesUserDefaults(t *testing.T) {
	dir := t.TempDir()
	writeMinimalConfig(t, dir)
	writeConfigFile(t, dir, "defaults.yaml", `
defaults:
  approval_timeout: 45
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 45, cfg.Defaults.ApprovalTimeout)
	// unset fields keep their built-in value
	assert.Equal(t, 16, cfg.Defaults.QueueSoftBound)
}

func TestInitializeMissingPersonasFile(t *testing.T) {
	dir := t.TempDir()

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestInitializeExpandsEnvVars(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GUARD_POLICY", "trading_policy")
	writeConfigFile(t, dir, "personas.yaml", `
personas:
  General:
    system_prompt: "hi"
    allowed_skills: ["all"]
    guard_policy_name: ${GUARD_POLICY}
`)
	writeConfigFile(t, dir, "mappings.yaml", `
rules: []
default_persona_id: General
direct_message_persona_id: General
`)
	writeConfigFile(t, dir, "policies.yaml", `
policies:
  trading_policy: {}
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "trading_policy", cfg.Personas["General"].GuardPolicyName)
}

func TestInitializeUnresolvablePolicyIsFatal(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "personas.yaml", `
personas:
  General:
    system_prompt: "hi"
    guard_policy_name: nonexistent
`)
	writeConfigFile(t, dir, "mappings.yaml", `
rules: []
default_persona_id: General
direct_message_persona_id: General
`)
	writeConfigFile(t, dir, "policies.yaml", `policies: {}`)

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPolicyNotFound)
}
