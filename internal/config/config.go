// Package config loads and validates the tool's configuration document.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"github.com/oncallops/pagemigrate/internal/marker"
	"github.com/oncallops/pagemigrate/internal/model"
)

// Defaults applied when the document leaves them out.
const (
	DefaultWebhookName = "incident-io"
	DefaultTagPrefix   = "team"
)

// WebhookMode selects how destination webhooks are laid out. It is a closed
// set: SingleWebhook or PerTeamWebhook.
type WebhookMode interface {
	webhookMode()
}

// SingleWebhook routes every alert to one shared destination webhook.
type SingleWebhook struct {
	// Name is the webhook resource name, e.g. "incident-io".
	Name string
}

func (SingleWebhook) webhookMode() {}

// PerTeamWebhook routes each alert to one webhook per destination team. The
// resource name is Prefix + "-" + team.
type PerTeamWebhook struct {
	Prefix string
}

func (PerTeamWebhook) webhookMode() {}

// Destination describes the destination alerting platform side of a run.
type Destination struct {
	Mode      WebhookMode
	URL       string
	AuthToken string
	Provider  marker.Provider

	// AnnotateTeams appends team and metadata tags to alerts whose provider
	// services resolve through the mapping table.
	AnnotateTeams bool
	TagPrefix     string
}

// TeamRequired reports whether team identity is needed: per-team webhooks
// or team-tag annotation.
func (d Destination) TeamRequired() bool {
	if _, ok := d.Mode.(PerTeamWebhook); ok {
		return true
	}
	return d.AnnotateTeams
}

// Platform holds the monitoring platform API credentials.
type Platform struct {
	APIURL string `mapstructure:"api_url"`
	APIKey string `mapstructure:"api_key"`
	AppKey string `mapstructure:"app_key"`
}

// Config is the validated configuration for one run.
type Config struct {
	Destination Destination
	Platform    Platform
	Mappings    []model.ServiceMapping
}

// rawConfig mirrors the YAML document before validation.
type rawConfig struct {
	Destination struct {
		Mode             string `mapstructure:"mode"`
		Name             string `mapstructure:"name"`
		Prefix           string `mapstructure:"prefix"`
		URL              string `mapstructure:"url"`
		AuthToken        string `mapstructure:"auth_token"`
		Provider         string `mapstructure:"provider"`
		AnnotateTeamTags bool   `mapstructure:"annotate_team_tags"`
		TagPrefix        string `mapstructure:"tag_prefix"`
	} `mapstructure:"destination"`
	Platform Platform     `mapstructure:"platform"`
	Mappings []rawMapping `mapstructure:"mappings"`
}

type rawMapping struct {
	Service  string            `mapstructure:"service"`
	Team     string            `mapstructure:"team"`
	Provider string            `mapstructure:"provider"`
	Metadata map[string]string `mapstructure:"metadata"`
}

// Load reads the configuration file at path and validates it.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return build(raw)
}

func build(raw rawConfig) (*Config, error) {
	provider := marker.Provider(raw.Destination.Provider)
	if !provider.Valid() {
		return nil, fmt.Errorf("unknown provider %q (want %q or %q)",
			raw.Destination.Provider, marker.ProviderPagerDuty, marker.ProviderOpsgenie)
	}

	var mode WebhookMode
	switch raw.Destination.Mode {
	case "", "single":
		name := raw.Destination.Name
		if name == "" {
			name = DefaultWebhookName
		}
		mode = SingleWebhook{Name: name}
	case "per-team":
		prefix := raw.Destination.Prefix
		if prefix == "" {
			prefix = raw.Destination.Name
		}
		if prefix == "" {
			prefix = DefaultWebhookName
		}
		mode = PerTeamWebhook{Prefix: prefix}
	default:
		return nil, fmt.Errorf("unknown webhook mode %q (want \"single\" or \"per-team\")", raw.Destination.Mode)
	}

	tagPrefix := raw.Destination.TagPrefix
	if tagPrefix == "" {
		tagPrefix = DefaultTagPrefix
	}

	cfg := &Config{
		Destination: Destination{
			Mode:          mode,
			URL:           raw.Destination.URL,
			AuthToken:     raw.Destination.AuthToken,
			Provider:      provider,
			AnnotateTeams: raw.Destination.AnnotateTeamTags,
			TagPrefix:     tagPrefix,
		},
		Platform: raw.Platform,
	}

	// Mapping entries may name their provider; entries for other providers
	// belong to a disjoint namespace and are not loaded into this run.
	for _, m := range raw.Mappings {
		if m.Service == "" {
			return nil, errors.New("mapping entry missing service key")
		}
		if m.Provider != "" && marker.Provider(m.Provider) != provider {
			continue
		}
		cfg.Mappings = append(cfg.Mappings, model.ServiceMapping{
			Service:  m.Service,
			Team:     m.Team,
			Metadata: m.Metadata,
		})
	}
	return cfg, nil
}
