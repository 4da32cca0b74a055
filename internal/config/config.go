package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/passguard/internal/policy"
)

// Config is the full passguard configuration, loaded from YAML and then
// overridden by PASSGUARD_* environment variables.
type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr        string `yaml:"addr"`
		AdminAPIKey string `yaml:"admin_api_key"`
		// ReportAll: include every violation in responses. When false only
		// the first one (rule order) is returned; the rest still count in
		// metrics and audit.
		ReportAll *bool `yaml:"report_all"`
	} `yaml:"server"`

	// Policy holds the default tunables, applied when no per-role override
	// matches. Mirrors the seven pg_passwordguard.* settings.
	Policy struct {
		MinLength      *int  `yaml:"min_length"`
		RequireUpper   *bool `yaml:"require_upper"`
		RequireLower   *bool `yaml:"require_lower"`
		RequireDigit   *bool `yaml:"require_digit"`
		RequireSpecial *bool `yaml:"require_special"`
		RejectUsername *bool `yaml:"reject_username"`
		LogOnly        *bool `yaml:"log_only"`
	} `yaml:"policy"`

	Overrides struct {
		// Driver: "none" | "file" | "postgres"
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"` // file driver
		DSN    string `yaml:"dsn"`  // postgres driver
	} `yaml:"overrides"`

	Cache struct {
		// Kind: "memory" | "redis" | "none"
		Kind  string `yaml:"kind"`
		TTL   string `yaml:"ttl"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load reads the YAML file at path, applies defaults and env overrides.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	c.applyDefaults()
	c.applyEnvOverrides()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// FromEnv builds a config without a YAML file (env vars + defaults only).
func FromEnv() (*Config, error) {
	var c Config
	c.applyDefaults()
	c.applyEnvOverrides()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8090"
	}
	if c.Server.ReportAll == nil {
		c.Server.ReportAll = boolPtr(true)
	}
	if c.Overrides.Driver == "" {
		c.Overrides.Driver = "none"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.TTL == "" {
		c.Cache.TTL = "30s"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// DefaultPolicy resolves the configured default tunables onto the shipped
// policy defaults.
func (c *Config) DefaultPolicy() policy.Config {
	p := policy.Default()
	if c.Policy.MinLength != nil {
		p.MinLength = *c.Policy.MinLength
	}
	if c.Policy.RequireUpper != nil {
		p.RequireUpper = *c.Policy.RequireUpper
	}
	if c.Policy.RequireLower != nil {
		p.RequireLower = *c.Policy.RequireLower
	}
	if c.Policy.RequireDigit != nil {
		p.RequireDigit = *c.Policy.RequireDigit
	}
	if c.Policy.RequireSpecial != nil {
		p.RequireSpecial = *c.Policy.RequireSpecial
	}
	if c.Policy.RejectUsername != nil {
		p.RejectUsername = *c.Policy.RejectUsername
	}
	if c.Policy.LogOnly != nil {
		p.LogOnly = *c.Policy.LogOnly
	}
	return p
}

// CacheTTL parses Cache.TTL; invalid values fall back to 30s.
func (c *Config) CacheTTL() time.Duration {
	if d, err := time.ParseDuration(c.Cache.TTL); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}

// ReportAll returns the resolved report_all flag.
func (c *Config) ReportAll() bool {
	return c.Server.ReportAll == nil || *c.Server.ReportAll
}

func (c *Config) Validate() error {
	if c.Policy.MinLength != nil && *c.Policy.MinLength < 0 {
		return fmt.Errorf("config: policy.min_length must be >= 0, got %d", *c.Policy.MinLength)
	}
	switch c.Overrides.Driver {
	case "none", "file", "postgres":
	default:
		return fmt.Errorf("config: unknown overrides.driver %q", c.Overrides.Driver)
	}
	if c.Overrides.Driver == "file" && c.Overrides.Path == "" {
		return fmt.Errorf("config: overrides.path required for the file driver")
	}
	if c.Overrides.Driver == "postgres" && c.Overrides.DSN == "" {
		return fmt.Errorf("config: overrides.dsn required for the postgres driver")
	}
	switch c.Cache.Kind {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("config: unknown cache.kind %q", c.Cache.Kind)
	}
	return nil
}

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

// applyEnvOverrides: env vars win over the YAML file.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("PASSGUARD_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("PASSGUARD_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("PASSGUARD_ADMIN_API_KEY"); ok {
		c.Server.AdminAPIKey = v
	}
	if v, ok := getEnvBool("PASSGUARD_REPORT_ALL"); ok {
		c.Server.ReportAll = boolPtr(v)
	}

	if v, ok := getEnvInt("PASSGUARD_MIN_LENGTH"); ok {
		c.Policy.MinLength = &v
	}
	if v, ok := getEnvBool("PASSGUARD_REQUIRE_UPPER"); ok {
		c.Policy.RequireUpper = boolPtr(v)
	}
	if v, ok := getEnvBool("PASSGUARD_REQUIRE_LOWER"); ok {
		c.Policy.RequireLower = boolPtr(v)
	}
	if v, ok := getEnvBool("PASSGUARD_REQUIRE_DIGIT"); ok {
		c.Policy.RequireDigit = boolPtr(v)
	}
	if v, ok := getEnvBool("PASSGUARD_REQUIRE_SPECIAL"); ok {
		c.Policy.RequireSpecial = boolPtr(v)
	}
	if v, ok := getEnvBool("PASSGUARD_REJECT_USERNAME"); ok {
		c.Policy.RejectUsername = boolPtr(v)
	}
	if v, ok := getEnvBool("PASSGUARD_LOG_ONLY"); ok {
		c.Policy.LogOnly = boolPtr(v)
	}

	if v, ok := getEnvStr("PASSGUARD_OVERRIDES_DRIVER"); ok {
		c.Overrides.Driver = v
	}
	if v, ok := getEnvStr("PASSGUARD_OVERRIDES_PATH"); ok {
		c.Overrides.Path = v
	}
	if v, ok := getEnvStr("PASSGUARD_OVERRIDES_DSN"); ok {
		c.Overrides.DSN = v
	}

	if v, ok := getEnvStr("PASSGUARD_CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("PASSGUARD_CACHE_TTL"); ok {
		c.Cache.TTL = v
	}
	if v, ok := getEnvStr("PASSGUARD_REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("PASSGUARD_REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("PASSGUARD_REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("PASSGUARD_REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	if v, ok := getEnvStr("PASSGUARD_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
}

func boolPtr(b bool) *bool { return &b }
