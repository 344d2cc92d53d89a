// Package config loads TableDB settings from defaults, a YAML file, TABLEDB_
// environment variables and command-line flags.
package config

import (
	"github.com/nickyhof/TableDB/core"
	"github.com/nickyhof/TableDB/db"
	"github.com/nickyhof/TableDB/ps"
)

// Default values.
const (
	DefaultRegistry   = "main"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
	DefaultServerAddr = ":3307"
	DefaultNameClaim  = "name"
	DefaultEmailClaim = "email"
	EnvPrefix         = "TABLEDB_"
)

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // text | json
}

// PersistenceConfig selects where snapshots go. An empty BaseDir keeps the
// git repository in memory.
type PersistenceConfig struct {
	BaseDir string        `koanf:"base_dir"`
	GitURL  string        `koanf:"git_url"`
	Remote  ps.RemoteAuth `koanf:"remote"`
}

type ServerConfig struct {
	Addr     string `koanf:"addr"`
	HTTPAddr string `koanf:"http_addr"`
}

// AuthConfig gates server connections behind a shared-secret JWT.
type AuthConfig struct {
	Enabled    bool   `koanf:"enabled"`
	JWTSecret  string `koanf:"jwt_secret"`
	Issuer     string `koanf:"issuer"`
	Audience   string `koanf:"audience"`
	NameClaim  string `koanf:"name_claim"`
	EmailClaim string `koanf:"email_claim"`
}

// Config holds every TableDB option.
type Config struct {
	Registry    string            `koanf:"registry"`
	Log         LogConfig         `koanf:"log"`
	Persistence PersistenceConfig `koanf:"persistence"`
	Server      ServerConfig      `koanf:"server"`
	Auth        AuthConfig        `koanf:"auth"`
	S3          db.S3Config       `koanf:"s3"`
	Identity    core.Identity     `koanf:"identity"`
	Schema      string            `koanf:"schema"` // applied at startup when set
}

func defaults() map[string]any {
	return map[string]any{
		"registry":                DefaultRegistry,
		"log.level":               DefaultLogLevel,
		"log.format":              DefaultLogFormat,
		"server.addr":             DefaultServerAddr,
		"auth.name_claim":         DefaultNameClaim,
		"auth.email_claim":        DefaultEmailClaim,
		"identity.name":           "TableDB",
		"identity.email":          "tabledb@localhost",
		"persistence.remote.type": string(ps.AuthTypeNone),
	}
}
