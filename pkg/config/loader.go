package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// DefaultsYAMLConfig is the optional defaults.yaml file structure; every
// field is optional and merged over DefaultDefaults().
type DefaultsYAMLConfig struct {
	Defaults *Defaults `yaml:"defaults"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
//
// Steps performed:
//  1. Load personas.yaml, mappings.yaml, policies.yaml, defaults.yaml
//  2. Expand environment variables in each file
//  3. Merge defaults.yaml over the built-in Defaults
//  4. Validate all cross-references
//  5. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("configuration initialized",
		"personas", stats.Personas,
		"mappings", stats.Mappings,
		"policies", stats.Policies)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	personas, err := loader.loadPersonasYAML()
	if err != nil {
		return nil, NewLoadError("personas.yaml", err)
	}

	mappings, err := loader.loadMappingsYAML()
	if err != nil {
		return nil, NewLoadError("mappings.yaml", err)
	}

	policies, err := loader.loadPoliciesYAML()
	if err != nil {
		return nil, NewLoadError("policies.yaml", err)
	}

	defaults := DefaultDefaults()
	userDefaults, err := loader.loadDefaultsYAML()
	if err != nil && !isNotFound(err) {
		return nil, NewLoadError("defaults.yaml", err)
	}
	if userDefaults != nil {
		if err := mergo.Merge(defaults, userDefaults, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge defaults: %w", err)
		}
	}

	return &Config{
		configDir: configDir,
		Defaults:  defaults,
		Personas:  personas,
		Mappings:  mappings,
		Policies:  policies,
	}, nil
}

func validate(cfg *Config) error {
	v := NewValidator(cfg)
	return v.ValidateAll()
}

func isNotFound(err error) bool {
	le, ok := err.(*LoadError)
	if !ok {
		return false
	}
	return os.IsNotExist(le.Err) || le.Err == ErrConfigNotFound
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadPersonasYAML() (map[string]PersonaConfig, error) {
	var cfg PersonasConfig
	cfg.Personas = make(map[string]PersonaConfig)
	if err := l.loadYAML("personas.yaml", &cfg); err != nil {
		return nil, err
	}
	return cfg.Personas, nil
}

func (l *configLoader) loadMappingsYAML() (MappingsConfig, error) {
	var cfg MappingsConfig
	if err := l.loadYAML("mappings.yaml", &cfg); err != nil {
		return MappingsConfig{}, err
	}
	return cfg, nil
}

func (l *configLoader) loadPoliciesYAML() (map[string]PolicyConfig, error) {
	var cfg PoliciesConfig
	cfg.Policies = make(map[string]PolicyConfig)
	if err := l.loadYAML("policies.yaml", &cfg); err != nil {
		return nil, err
	}
	return cfg.Policies, nil
}

func (l *configLoader) loadDefaultsYAML() (*Defaults, error) {
	path := filepath.Join(l.configDir, "defaults.yaml")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{File: "defaults.yaml", Err: err}
		}
		return nil, err
	}

	var cfg DefaultsYAMLConfig
	if err := l.loadYAML("defaults.yaml", &cfg); err != nil {
		return nil, err
	}
	return cfg.Defaults, nil
}
