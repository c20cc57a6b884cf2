package loader

import (
	"fmt"
	"os"
	"strings"
)

// EnvLoader collects configuration overrides from environment variables.
type EnvLoader struct {
	prefix  string            // Environment variable prefix (e.g., "SIGNALSLOT_")
	mapping map[string]string // Env var -> config path
	environ func() []string
}

// NewEnvLoader creates a new environment variable loader.
// The prefix should include the trailing underscore (e.g., "SIGNALSLOT_").
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: make(map[string]string),
		environ: os.Environ,
	}
}

// NewEnvLoaderWithMapping creates a loader with shorthand variable names.
// Variables not in mapping are still converted with the default rule.
func NewEnvLoaderWithMapping(prefix string, mapping map[string]string) *EnvLoader {
	l := NewEnvLoader(prefix)
	for env, path := range mapping {
		l.mapping[env] = path
	}
	return l
}

// AddMapping adds a shorthand environment variable.
func (l *EnvLoader) AddMapping(envVar, configPath string) {
	l.mapping[envVar] = configPath
}

// Load returns the raw value of every prefixed variable keyed by config
// path. A mapped variable wins over the long form of the same path.
// Empty string values are treated as valid values, not as unset.
func (l *EnvLoader) Load() map[string]string {
	values := make(map[string]string)
	mapped := make(map[string]bool)

	for _, env := range l.environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(name, l.prefix) {
			continue
		}

		if path, ok := l.mapping[name]; ok {
			values[path] = value
			mapped[path] = true
			continue
		}

		path := l.envToPath(name)
		if path == "" || mapped[path] {
			continue
		}
		values[path] = value
	}

	return values
}

// envToPath converts SIGNALSLOT_DISPATCHER_QUEUE_WARN_THRESHOLD to
// dispatcher.queue_warn_threshold: the first word is the section.
func (l *EnvLoader) envToPath(env string) string {
	name := strings.ToLower(strings.TrimPrefix(env, l.prefix))
	section, key, ok := strings.Cut(name, "_")
	if !ok || section == "" || key == "" {
		return ""
	}
	return section + "." + key
}

// ParseBool accepts the boolean spellings commonly used in environment
// variables: true/false, yes/no, on/off and 1/0.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}
