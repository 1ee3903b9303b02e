package config

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"
)

const (
	KindJellyfin  = "jellyfin"
	KindMinecraft = "minecraft"
)

type TargetConfig struct {
	Name      string   `mapstructure:"name"`
	Kind      string   `mapstructure:"kind"`
	Endpoints []string `mapstructure:"endpoints"`
}

type Config struct {
	APIAddr        string `mapstructure:"api_addr"`
	LogDir         string `mapstructure:"log_dir"`
	LogLevel       string `mapstructure:"log_level"`
	DiscordWebhook string `mapstructure:"discord_webhook"`
	JellyfinAPIKey string `mapstructure:"jellyfin_api_key"`

	HealthInterval  string `mapstructure:"health_interval"`
	MembersInterval string `mapstructure:"members_interval"`
	ProbeTimeout    string `mapstructure:"probe_timeout"`

	Targets []TargetConfig `mapstructure:"targets"`
}

// Load reads config.yaml (working directory or ./config) with environment
// overrides (SERVERWATCH_API_ADDR and friends).
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("api_addr", ":8080")
	v.SetDefault("log_dir", "logs")
	v.SetDefault("log_level", "info")
	v.SetDefault("health_interval", "1m")
	v.SetDefault("members_interval", "30s")
	v.SetDefault("probe_timeout", "5s")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("serverwatch")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.APIAddr, validation.Required),
		validation.Field(&c.LogLevel,
			validation.Required,
			validation.In("debug", "info", "warn", "error"),
		),
		validation.Field(&c.HealthInterval, validation.Required, validation.By(validateDuration)),
		validation.Field(&c.MembersInterval, validation.Required, validation.By(validateDuration)),
		validation.Field(&c.ProbeTimeout, validation.Required, validation.By(validateDuration)),
		validation.Field(&c.Targets,
			validation.Required,
			validation.Length(1, 0),
			validation.By(validateTargets),
		),
	)
}

func validateDuration(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a duration like 30s or 1m")
	}
	if d <= 0 {
		return validation.NewError("validation_invalid_duration", "must be positive")
	}
	return nil
}

func validateTargets(value interface{}) error {
	targets, ok := value.([]TargetConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a target list")
	}
	seen := map[string]bool{}
	for i, t := range targets {
		err := validation.ValidateStruct(&t,
			validation.Field(&t.Name, validation.Required),
			validation.Field(&t.Kind,
				validation.Required,
				validation.In(KindJellyfin, KindMinecraft),
			),
			validation.Field(&t.Endpoints, validation.Required, validation.Length(1, 0)),
		)
		if err != nil {
			return validation.NewError("validation_invalid_target",
				fmt.Sprintf("target %d: %v", i, err))
		}
		if seen[t.Name] {
			return validation.NewError("validation_duplicate_target",
				fmt.Sprintf("duplicate target name %q", t.Name))
		}
		seen[t.Name] = true
	}
	return nil
}

// Durations returns the parsed interval settings. Call after Validate.
func (c *Config) Durations() (health, members, timeout time.Duration) {
	health, _ = time.ParseDuration(c.HealthInterval)
	members, _ = time.ParseDuration(c.MembersInterval)
	timeout, _ = time.ParseDuration(c.ProbeTimeout)
	return health, members, timeout
}
