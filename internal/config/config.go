package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tablewright/tablewright/internal/dialect"
	"github.com/tablewright/tablewright/internal/layout"
)

const (
	CurrentVersion = 1
	DefaultPath    = "~/.tablewright/tablewright.yaml"
)

// Config is the top-level configuration.
type Config struct {
	Version     int                `yaml:"version"`
	Connections []ConnectionConfig `yaml:"connections"`
	Diagram     layout.Options     `yaml:"diagram,omitempty"`
	DDL         DDLConfig          `yaml:"ddl,omitempty"`
	History     HistoryConfig      `yaml:"history,omitempty"`
	Export      ExportConfig       `yaml:"export,omitempty"`
	Server      ServerConfig       `yaml:"server,omitempty"`
	Logging     LogConfig          `yaml:"logging,omitempty"`
	Workspace   string             `yaml:"workspace,omitempty"` // default ~/.tablewright/workspace.yaml
}

// ConnectionConfig defines one database the console can open.
type ConnectionConfig struct {
	ID             string            `yaml:"id"`
	Name           string            `yaml:"name,omitempty"`
	Engine         string            `yaml:"engine"` // postgresql, mysql, mariadb, sqlite, oracle
	Host           string            `yaml:"host,omitempty"`
	Port           int               `yaml:"port,omitempty"`
	Database       string            `yaml:"database,omitempty"`
	Schema         string            `yaml:"schema,omitempty"`
	Username       string            `yaml:"username,omitempty"`
	Password       string            `yaml:"password,omitempty"`
	Path           string            `yaml:"path,omitempty"` // sqlite file
	SSL            bool              `yaml:"ssl,omitempty"`
	MaxConnections int               `yaml:"max_connections,omitempty"`
	Options        map[string]string `yaml:"options,omitempty"`
}

// DDLConfig controls statement synthesis.
type DDLConfig struct {
	DefaultPolicy string `yaml:"default_policy,omitempty"` // passthrough or strict
}

// HistoryConfig selects where executed statements are recorded.
type HistoryConfig struct {
	Backend    string `yaml:"backend,omitempty"` // memory, postgres, mongodb
	DSN        string `yaml:"dsn,omitempty"`
	URI        string `yaml:"uri,omitempty"`
	Database   string `yaml:"database,omitempty"`
	Collection string `yaml:"collection,omitempty"`
	MaxEntries int    `yaml:"max_entries,omitempty"`
}

// ExportConfig defines the S3 destination for diagram exports.
type ExportConfig struct {
	Bucket  string `yaml:"bucket,omitempty"`
	Prefix  string `yaml:"prefix,omitempty"`
	Region  string `yaml:"region,omitempty"`
	Profile string `yaml:"profile,omitempty"`
}

// ServerConfig defines the web server settings.
type ServerConfig struct {
	Port    int  `yaml:"port,omitempty"`
	DevMode bool `yaml:"dev_mode,omitempty"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level     string `yaml:"level,omitempty"`     // debug, info, warn, error
	Directory string `yaml:"directory,omitempty"` // default ~/.tablewright/logs/
}

// Load reads and parses the config file from the given path.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentVersion)
	}

	if err := cfg.resolveSecrets(); err != nil {
		return nil, fmt.Errorf("resolving secrets: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Default returns an empty config with defaults applied.
func Default() *Config {
	cfg := &Config{Version: CurrentVersion}
	cfg.applyDefaults()
	return cfg
}

// Save writes the config to the given path.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Connection returns the connection with the given id.
func (c *Config) Connection(id string) (*ConnectionConfig, bool) {
	for i := range c.Connections {
		if c.Connections[i].ID == id {
			return &c.Connections[i], true
		}
	}
	return nil, false
}

// Validate returns every problem found in the config.
func (c *Config) Validate() []string {
	var problems []string
	seen := make(map[string]bool)

	for i, conn := range c.Connections {
		where := fmt.Sprintf("connections[%d]", i)
		if conn.ID == "" {
			problems = append(problems, where+".id is required")
		} else if seen[conn.ID] {
			problems = append(problems, fmt.Sprintf("%s.id %q is duplicated", where, conn.ID))
		}
		seen[conn.ID] = true

		engine, err := dialect.Parse(conn.Engine)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s.engine: %v", where, err))
			continue
		}
		if engine == dialect.SQLite {
			if conn.Path == "" {
				problems = append(problems, where+".path is required for sqlite")
			}
			continue
		}
		if conn.Host == "" {
			problems = append(problems, where+".host is required")
		}
		if conn.Database == "" {
			problems = append(problems, where+".database is required")
		}
	}

	if _, err := layout.ForName(c.Diagram.Strategy); err != nil {
		problems = append(problems, "diagram.strategy: "+err.Error())
	}

	switch c.History.Backend {
	case "", "memory":
	case "postgres":
		if c.History.DSN == "" {
			problems = append(problems, "history.dsn is required for the postgres backend")
		}
	case "mongodb":
		if c.History.URI == "" {
			problems = append(problems, "history.uri is required for the mongodb backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("history.backend %q is not one of memory, postgres, mongodb", c.History.Backend))
	}

	return problems
}

// DefaultSchema is the schema diagrams open when none is given.
func (cc *ConnectionConfig) DefaultSchema() string {
	if cc.Schema != "" {
		return cc.Schema
	}
	engine, _ := dialect.Parse(cc.Engine)
	switch engine {
	case dialect.PostgreSQL:
		return "public"
	case dialect.SQLite:
		return "main"
	case dialect.Oracle:
		return strings.ToUpper(cc.Username)
	default:
		return cc.Database
	}
}

// Redacted returns a copy safe to show to users.
func (cc ConnectionConfig) Redacted() ConnectionConfig {
	if cc.Password != "" {
		cc.Password = "********"
	}
	return cc
}

func (c *Config) applyDefaults() {
	for i := range c.Connections {
		conn := &c.Connections[i]
		if engine, err := dialect.Parse(conn.Engine); err == nil {
			conn.Engine = string(engine)
			if conn.Port == 0 {
				conn.Port = defaultPort(engine)
			}
		}
		if conn.Name == "" {
			conn.Name = conn.ID
		}
		if conn.MaxConnections == 0 {
			conn.MaxConnections = 5
		}
		if conn.Path != "" {
			conn.Path = ExpandHome(conn.Path)
		}
	}

	d := layout.DefaultOptions()
	if c.Diagram.Strategy == "" {
		c.Diagram.Strategy = d.Strategy
	}
	if c.Diagram.NodeWidth == 0 {
		c.Diagram.NodeWidth = d.NodeWidth
	}
	if c.Diagram.NodeHeight == 0 {
		c.Diagram.NodeHeight = d.NodeHeight
	}
	if c.Diagram.HorizontalGap == 0 {
		c.Diagram.HorizontalGap = d.HorizontalGap
	}
	if c.Diagram.VerticalGap == 0 {
		c.Diagram.VerticalGap = d.VerticalGap
	}
	if c.Diagram.MinRadius == 0 {
		c.Diagram.MinRadius = d.MinRadius
	}
	if c.Diagram.RadiusPerTable == 0 {
		c.Diagram.RadiusPerTable = d.RadiusPerTable
	}

	if c.DDL.DefaultPolicy == "" {
		c.DDL.DefaultPolicy = "passthrough"
	}
	if c.History.Backend == "" {
		c.History.Backend = "memory"
	}
	if c.History.Database == "" {
		c.History.Database = "tablewright"
	}
	if c.History.Collection == "" {
		c.History.Collection = "history"
	}
	if c.History.MaxEntries == 0 {
		c.History.MaxEntries = 500
	}
	if c.Export.Prefix == "" {
		c.Export.Prefix = "tablewright"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8230
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Directory == "" {
		c.Logging.Directory = ExpandHome("~/.tablewright/logs/")
	}
	if c.Workspace == "" {
		c.Workspace = ExpandHome("~/.tablewright/workspace.yaml")
	}
}

func defaultPort(e dialect.Engine) int {
	switch e {
	case dialect.PostgreSQL:
		return 5432
	case dialect.MySQL, dialect.MariaDB:
		return 3306
	case dialect.Oracle:
		return 1521
	}
	return 0
}

var secretPattern = regexp.MustCompile(`\$\{(ENV|VAULT|AWS_SM):([^}]+)\}`)

func (c *Config) resolveSecrets() error {
	var err error
	for i := range c.Connections {
		conn := &c.Connections[i]
		conn.Password, err = ResolveValue(conn.Password)
		if err != nil {
			return fmt.Errorf("connection %s password: %w", conn.ID, err)
		}
	}
	c.History.DSN, err = ResolveValue(c.History.DSN)
	if err != nil {
		return fmt.Errorf("history dsn: %w", err)
	}
	c.History.URI, err = ResolveValue(c.History.URI)
	if err != nil {
		return fmt.Errorf("history uri: %w", err)
	}
	return nil
}

// ResolveValue replaces every ${ENV:..}, ${VAULT:..} and ${AWS_SM:..}
// reference in val. Text around the references is kept, so references can
// sit inside a DSN.
func ResolveValue(val string) (string, error) {
	var firstErr error
	out := secretPattern.ReplaceAllStringFunc(val, func(ref string) string {
		if firstErr != nil {
			return ref
		}
		m := secretPattern.FindStringSubmatch(ref)
		v, err := resolveRef(m[1], m[2])
		if err != nil {
			firstErr = err
			return ref
		}
		return v
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

func resolveRef(provider, ref string) (string, error) {
	switch provider {
	case "ENV":
		v := os.Getenv(ref)
		if v == "" {
			return "", fmt.Errorf("environment variable %s not set", ref)
		}
		return v, nil
	case "VAULT":
		return resolveVault(ref)
	case "AWS_SM":
		return resolveAWSSecretsManager(ref)
	default:
		return "", fmt.Errorf("unknown secrets provider: %s", provider)
	}
}

// ExpandHome expands ~ to the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
