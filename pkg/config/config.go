package config

// Config is the umbrella object returned by Initialize: everything the
// broker needs, loaded once at startup and immutable until an explicit
// Reload.
type Config struct {
	configDir string

	Defaults *Defaults

	Personas map[string]PersonaConfig
	Mappings MappingsConfig
	Policies map[string]PolicyConfig
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// Stats reports counts for logging and the health endpoint.
type Stats struct {
	Personas int
	Mappings int
	Policies int
}

// Stats returns configuration statistics.
func (c *Config) Stats() Stats {
	return Stats{
		Personas: len(c.Personas),
		Mappings: len(c.Mappings.Rules),
		Policies: len(c.Policies),
	}
}
