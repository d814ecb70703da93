package locator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// configEnvVar names the environment variable pointing at the mount table
// configuration file.
const configEnvVar = "GOVFS_CONFIG"

// Config is the mount table configuration of the reference locator.
type Config struct {
	// EnvFile is an optional dotenv file whose values participate in
	// ${VAR} expansion of the configured roots, winning over the process
	// environment.
	EnvFile string `yaml:"env_file"`

	// Mounts maps each scheme to its ordered native root directories.
	Mounts map[string][]string `yaml:"mounts"`
}

// Default returns the default (empty) configuration.
func Default() *Config {
	return &Config{
		Mounts: make(map[string][]string),
	}
}

// Load loads the configuration from the file named by the GOVFS_CONFIG
// environment variable. There are no fallback locations.
func Load() (*Config, error) {
	path := os.Getenv(configEnvVar)
	if path == "" {
		return nil, fmt.Errorf("(locator-config) %w: %s not set", ErrNoConfig, configEnvVar)
	}

	return LoadFile(path)
}

// LoadFile loads the configuration from a specific file path, expands
// ${VAR} patterns in the configured roots and validates the result.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("(locator-config) failed to read: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("(locator-config) failed to parse: %w", err)
	}

	if err := cfg.expandVariables(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in the
// configured roots, from the optional dotenv file merged over the process
// environment.
func (c *Config) expandVariables() error {
	vars := map[string]string{}

	if c.EnvFile != "" {
		envMap, err := godotenv.Read(c.EnvFile)
		if err != nil {
			return fmt.Errorf("(locator-config) failed to read env file: %w", err)
		}
		vars = envMap
	}

	for scheme, roots := range c.Mounts {
		for i, root := range roots {
			c.Mounts[scheme][i] = expandVars(root, vars)
		}
	}

	return nil
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}

		return defaultValue
	})
}

// Validate checks the configuration for errors, reporting all of them at
// once.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Mounts) == 0 {
		errs = append(errs, errors.New("no mounts configured"))
	}

	for scheme, roots := range c.Mounts {
		if scheme == "" {
			errs = append(errs, errors.New("empty scheme configured"))
		}
		if strings.ContainsAny(scheme, "/:") {
			errs = append(errs, fmt.Errorf("scheme %q contains separator characters", scheme))
		}
		if len(roots) == 0 {
			errs = append(errs, fmt.Errorf("scheme %q has no roots", scheme))
		}
		for _, root := range roots {
			if !filepath.IsAbs(root) {
				errs = append(errs, fmt.Errorf("root %q of scheme %q is not absolute", root, scheme))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("(locator-config) %w: %w", ErrInvalidConfig, errors.Join(errs...))
	}

	return nil
}
