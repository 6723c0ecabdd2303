// Package config loads the root YAML configuration and applies environment
// overrides. Engines keep their exported defaults; the file and the
// environment only override what they name.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/harunaga/adpilot/internal/apperr"
	"github.com/harunaga/adpilot/internal/apply"
	"github.com/harunaga/adpilot/internal/engine/bid"
	"github.com/harunaga/adpilot/internal/engine/budget"
	"github.com/harunaga/adpilot/internal/engine/lifecycle"
	"github.com/harunaga/adpilot/internal/engine/negative"
	"github.com/harunaga/adpilot/internal/engine/seolaunch"
	"github.com/harunaga/adpilot/internal/httpapi"
	"github.com/harunaga/adpilot/internal/notify"
	"github.com/harunaga/adpilot/internal/orchestrator"
	"github.com/harunaga/adpilot/internal/scheduler"
	"github.com/harunaga/adpilot/internal/warehouse"
)

// Snowflake holds the DSN parts when the warehouse DSN is not given whole.
type Snowflake struct {
	User      string `yaml:"user" env:"SNOWFLAKE_USER"`
	Password  string `yaml:"password" env:"SNOWFLAKE_PASSWORD"`
	Account   string `yaml:"account" env:"SNOWFLAKE_ACCOUNT"`
	Database  string `yaml:"database" env:"SNOWFLAKE_DATABASE"`
	Schema    string `yaml:"schema" env:"SNOWFLAKE_SCHEMA"`
	Warehouse string `yaml:"warehouse" env:"SNOWFLAKE_WAREHOUSE"`
}

// Redis holds the shared redis wiring (apply dedupe + run locks).
type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db"`
}

// Engines overrides the per-engine calibrations. Zero values fall back to
// the engine defaults.
type Engines struct {
	Bid       bid.Config              `yaml:"bid"`
	Budget    budget.Config           `yaml:"budget"`
	Placement budget.PlacementConfig  `yaml:"placement"`
	SeoLaunch seolaunch.Config        `yaml:"seo_launch"`
	Exit      seolaunch.ExitConfig    `yaml:"launch_exit"`
	Lifecycle lifecycle.Config        `yaml:"lifecycle"`
	Negative  negative.Config         `yaml:"negative"`
	Promoter  negative.PromoterConfig `yaml:"promoter"`
	Discovery negative.PromoterConfig  `yaml:"discovery"`
	Whitelist negative.WhitelistConfig `yaml:"whitelist"`
}

// Config is the root of the YAML file.
type Config struct {
	LogLevel  string           `yaml:"log_level"`
	Server    httpapi.Config   `yaml:"server"`
	Warehouse warehouse.Config `yaml:"warehouse"`
	Snowflake Snowflake        `yaml:"snowflake"`
	Redis     Redis            `yaml:"redis"`
	Apply     apply.Config     `yaml:"apply"`
	Slack     notify.Config    `yaml:"slack"`
	Scheduler scheduler.Config `yaml:"scheduler"`
	Engines   Engines          `yaml:"engines"`

	// Apply gates, environment only.
	BidExecutionMode      string `yaml:"-"`
	BudgetExecutionMode   string `yaml:"-"`
	NegativeApplyEnabled  bool   `yaml:"-"`
	AutoExactApplyEnabled bool   `yaml:"-"`
}

// Default seeds every section with its package default.
func Default() Config {
	return Config{
		LogLevel:  "info",
		Server:    httpapi.DefaultConfig(),
		Warehouse: warehouse.DefaultConfig(),
		Apply:     apply.DefaultConfig(),
		Scheduler: scheduler.DefaultConfig(),
		Engines: Engines{
			Bid:       bid.DefaultConfig(),
			Budget:    budget.DefaultConfig(),
			Placement: budget.DefaultPlacementConfig(),
			SeoLaunch: seolaunch.DefaultConfig(),
			Exit:      seolaunch.DefaultExitConfig(),
			Lifecycle: lifecycle.DefaultConfig(),
			Negative:  negative.DefaultConfig(),
			Promoter:  negative.DefaultPromoterConfig(),
			Discovery: negative.DefaultDiscoveryConfig(),
			Whitelist: negative.DefaultWhitelistConfig(),
		},
		BidExecutionMode:    "SHADOW",
		BudgetExecutionMode: "SHADOW",
	}
}

// Load reads the YAML file (optional) and applies environment overrides. A
// .env file next to the process is honored.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, &apperr.ConfigError{Key: path, Err: err}
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, &apperr.ConfigError{Key: path, Err: err}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Warehouse.Driver, "WAREHOUSE_DRIVER")
	setString(&c.Warehouse.DSN, "WAREHOUSE_DSN")
	setString(&c.Snowflake.User, "SNOWFLAKE_USER")
	setString(&c.Snowflake.Password, "SNOWFLAKE_PASSWORD")
	setString(&c.Snowflake.Account, "SNOWFLAKE_ACCOUNT")
	setString(&c.Snowflake.Database, "SNOWFLAKE_DATABASE")
	setString(&c.Snowflake.Schema, "SNOWFLAKE_SCHEMA")
	setString(&c.Snowflake.Warehouse, "SNOWFLAKE_WAREHOUSE")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Slack.Token, "SLACK_TOKEN")
	setString(&c.Slack.Channel, "SLACK_CHANNEL")
	setString(&c.LogLevel, "LOG_LEVEL")

	if raw := os.Getenv("HTTP_PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return &apperr.ConfigError{Key: "HTTP_PORT", Err: err}
		}
		c.Server.Port = port
	}

	setString(&c.BidExecutionMode, "BID_ENGINE_EXECUTION_MODE")
	setString(&c.BudgetExecutionMode, "BUDGET_ENGINE_EXECUTION_MODE")
	if err := setBool(&c.NegativeApplyEnabled, "NEGATIVE_APPLY_ENABLED"); err != nil {
		return err
	}
	if err := setBool(&c.AutoExactApplyEnabled, "AUTO_EXACT_APPLY_ENABLED"); err != nil {
		return err
	}

	// Assemble the snowflake DSN from parts when it was not given whole.
	if c.Warehouse.Driver == "snowflake" && c.Warehouse.DSN == "" && c.Snowflake.Account != "" {
		c.Warehouse.DSN = warehouse.SnowflakeDSN(
			c.Snowflake.User, c.Snowflake.Password, c.Snowflake.Account,
			c.Snowflake.Database, c.Snowflake.Schema, c.Snowflake.Warehouse,
		)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Warehouse.DSN == "" {
		return &apperr.ConfigError{Key: "WAREHOUSE_DSN", Err: fmt.Errorf("required")}
	}
	if m := c.BidExecutionMode; m != "SHADOW" && m != "APPLY" {
		return &apperr.ConfigError{Key: "BID_ENGINE_EXECUTION_MODE", Err: fmt.Errorf("must be SHADOW or APPLY, got %q", m)}
	}
	if m := c.BudgetExecutionMode; m != "SHADOW" && m != "APPLY" {
		return &apperr.ConfigError{Key: "BUDGET_ENGINE_EXECUTION_MODE", Err: fmt.Errorf("must be SHADOW or APPLY, got %q", m)}
	}
	if c.Slack.Enabled && (c.Slack.Token == "" || c.Slack.Channel == "") {
		return &apperr.ConfigError{Key: "SLACK_TOKEN", Err: fmt.Errorf("slack enabled but token or channel missing")}
	}
	return nil
}

// Flags maps the environment gates into the orchestrator's shape.
func (c Config) Flags() orchestrator.Flags {
	return orchestrator.Flags{
		BidExecutionMode:      c.BidExecutionMode,
		BudgetExecutionMode:   c.BudgetExecutionMode,
		NegativeApplyEnabled:  c.NegativeApplyEnabled,
		AutoExactApplyEnabled: c.AutoExactApplyEnabled,
	}
}

// EngineConfigs maps the engine section into the orchestrator's shape.
func (c Config) EngineConfigs() orchestrator.EngineConfigs {
	return orchestrator.EngineConfigs{
		Bid:       c.Engines.Bid,
		BidMode:   "NORMAL",
		Budget:    c.Engines.Budget,
		Placement: c.Engines.Placement,
		SeoLaunch: c.Engines.SeoLaunch,
		Exit:      c.Engines.Exit,
		Lifecycle: c.Engines.Lifecycle,
		Negative:  c.Engines.Negative,
		Promoter:  c.Engines.Promoter,
		Discovery: c.Engines.Discovery,
		Whitelist: c.Engines.Whitelist,
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return &apperr.ConfigError{Key: key, Err: err}
	}
	*dst = v
	return nil
}
