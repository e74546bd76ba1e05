// Package config loads engine configuration from a YAML file plus
// environment overrides. Configuration errors are fatal at construction;
// nothing downstream revalidates.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/execdesk/execdesk/internal/domain/metric"
)

// OrgProfile describes one organization the engine runs cycles for.
type OrgProfile struct {
	Name            string                      `mapstructure:"name"`
	Industry        string                      `mapstructure:"industry"`
	Vision          string                      `mapstructure:"vision"`
	Mission         string                      `mapstructure:"mission"`
	NorthStarMetric string                      `mapstructure:"north_star_metric"`
	Website         string                      `mapstructure:"website"`
	Markets         []string                    `mapstructure:"markets"`
	Products        []string                    `mapstructure:"products"`
	TeamSize        int                         `mapstructure:"team_size"`
	Thresholds      map[string]metric.Threshold `mapstructure:"thresholds"`
}

// BusinessContext renders the profile as prompt context for executors.
func (p *OrgProfile) BusinessContext() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s (%s)\n", p.Name, p.Industry)
	if p.Vision != "" {
		fmt.Fprintf(&b, "Vision: %s\n", p.Vision)
	}
	if p.Mission != "" {
		fmt.Fprintf(&b, "Mission: %s\n", p.Mission)
	}
	if p.NorthStarMetric != "" {
		fmt.Fprintf(&b, "North-star metric: %s\n", p.NorthStarMetric)
	}
	if len(p.Markets) > 0 {
		fmt.Fprintf(&b, "Markets: %s\n", strings.Join(p.Markets, ", "))
	}
	if len(p.Products) > 0 {
		fmt.Fprintf(&b, "Products: %s\n", strings.Join(p.Products, ", "))
	}
	if p.TeamSize > 0 {
		fmt.Fprintf(&b, "Team size: %d\n", p.TeamSize)
	}
	return b.String()
}

// Config holds engine configuration.
type Config struct {
	StateDir       string                `mapstructure:"state_dir"`
	RolesDir       string                `mapstructure:"roles_dir"`
	ServerAddr     string                `mapstructure:"server_addr"`
	SigningKey     string                `mapstructure:"signing_key"`
	CycleInterval  time.Duration         `mapstructure:"cycle_interval"`
	NotifyChannels []string              `mapstructure:"notify_channels"`
	Orgs           map[string]OrgProfile `mapstructure:"orgs"`
}

// Load reads configuration from path (optional) and the EXECDESK_*
// environment. A missing file yields defaults with the built-in demo org.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("state_dir", ".execdesk")
	v.SetDefault("server_addr", "0.0.0.0:8080")
	v.SetDefault("cycle_interval", "1h")
	v.SetDefault("notify_channels", []string{"log"})

	v.SetEnvPrefix("EXECDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("execdesk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(cfg.Orgs) == 0 {
		cfg.Orgs = map[string]OrgProfile{"default": defaultOrg()}
	}
	for key, org := range cfg.Orgs {
		if err := validateOrg(key, org); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// ForOrg returns the profile for an organization key. Unknown keys are a
// configuration error.
func (c *Config) ForOrg(key string) (OrgProfile, error) {
	org, ok := c.Orgs[key]
	if !ok {
		return OrgProfile{}, fmt.Errorf("unknown organization: %q", key)
	}
	return org, nil
}

// OrgKeys lists configured organizations in map order.
func (c *Config) OrgKeys() []string {
	keys := make([]string, 0, len(c.Orgs))
	for k := range c.Orgs {
		keys = append(keys, k)
	}
	return keys
}

func validateOrg(key string, org OrgProfile) error {
	if org.Name == "" {
		return fmt.Errorf("org %q: name is required", key)
	}
	if org.NorthStarMetric == "" {
		return fmt.Errorf("org %q: north_star_metric is required", key)
	}
	return nil
}

func defaultOrg() OrgProfile {
	min := 8000.0
	return OrgProfile{
		Name:            "Acme Demo Co",
		Industry:        "SaaS",
		Vision:          "Every small team runs like a well-staffed company.",
		Mission:         "Automate the operating cadence of early-stage businesses.",
		NorthStarMetric: "weekly_active_users",
		Markets:         []string{"US", "EU"},
		Products:        []string{"execdesk"},
		TeamSize:        4,
		Thresholds: map[string]metric.Threshold{
			"weekly_active_users": {Name: "weekly_active_users", MinValue: &min, Direction: "up"},
		},
	}
}
