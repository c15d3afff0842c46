package config

import (
	"os"
	"regexp"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} references with environment values. Unset
// variables expand to the empty string so an unconfigured credential reads
// as absent, which silently disables the channel that needed it.
func expandEnv(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// expandSensitiveFields resolves environment references in credential
// fields so tokens never have to live in the config file itself.
func expandSensitiveFields(cfg *Config) {
	cfg.Telegram.Token = expandEnv(cfg.Telegram.Token)
	cfg.Telegram.ChatID = expandEnv(cfg.Telegram.ChatID)
	cfg.Telegram.GroupID = expandEnv(cfg.Telegram.GroupID)
}
