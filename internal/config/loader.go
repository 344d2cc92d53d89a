package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// envSections are the nested config prefixes, longest first, so that
// TABLEDB_PERSISTENCE_REMOTE_TOKEN lands on persistence.remote.token.
var envSections = []string{
	"persistence_remote",
	"persistence",
	"identity",
	"server",
	"auth",
	"log",
	"s3",
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"registry":   "registry",
	"log-level":  "log.level",
	"log-format": "log.format",
	"data-dir":   "persistence.base_dir",
	"git-url":    "persistence.git_url",
	"addr":       "server.addr",
	"http-addr":  "server.http_addr",
	"auth":       "auth.enabled",
	"jwt-secret": "auth.jwt_secret",
	"schema":     "schema",
}

// findConfigFile returns explicit if set, else tabledb.yaml or tabledb.yml
// from the working directory when present.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"tabledb.yaml", "tabledb.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

func envKey(name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	for _, section := range envSections {
		if rest, ok := strings.CutPrefix(key, section+"_"); ok {
			return strings.ReplaceAll(section, "_", ".") + "." + rest
		}
	}
	return key
}

// Load builds a Config. Precedence, highest first: flags that were set
// explicitly, TABLEDB_* environment variables, the config file, defaults.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, known := flagKeys[f.Name]
			if !f.Changed || !known {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RegisterFlags declares the flags Load understands on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("registry", "", "Registry (database) name")
	fs.String("log-level", "", "Log level (debug|info|warn|error)")
	fs.String("log-format", "", "Log format (text|json)")
	fs.String("data-dir", "", "Directory of the snapshot git repository (empty for in-memory)")
	fs.String("git-url", "", "Remote git repository to clone snapshots from")
	fs.String("schema", "", "Schema file to apply at startup (local, http(s)://, s3://)")
}

// RegisterServerFlags declares the server-only flags on fs.
func RegisterServerFlags(fs *pflag.FlagSet) {
	fs.String("addr", "", "TCP listen address (default :3307)")
	fs.String("http-addr", "", "HTTP listen address (disabled when empty)")
	fs.Bool("auth", false, "Require JWT authentication")
	fs.String("jwt-secret", "", "Shared secret for HS256/384/512 tokens")
}
